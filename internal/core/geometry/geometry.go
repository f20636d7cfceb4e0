// Package geometry converts between pointer pixels, page percentages and raster pixels.
package geometry

import (
	"fmt"
	"math"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// Point is a 2D coordinate; units depend on context (px or percent).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom is Top+Height.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// PixelCrop is a source rectangle on a raster.
type PixelCrop struct {
	SX      int `json:"sx"`
	SY      int `json:"sy"`
	SWidth  int `json:"sWidth"`
	SHeight int `json:"sHeight"`
}

// ToPercent maps a pointer position to percent of the page rectangle.
// A zero-sized page rect is a caller bug.
func ToPercent(pointer Point, page Rect) Point {
	return Point{
		X: 100 * (pointer.X - page.Left) / page.Width,
		Y: 100 * (pointer.Y - page.Top) / page.Height,
	}
}

// NormalizeRect builds the box spanned by a drag, whatever its direction.
func NormalizeRect(start, current Point) models.BoundingBox {
	return models.BoundingBox{
		X:      math.Min(start.X, current.X),
		Y:      math.Min(start.Y, current.Y),
		Width:  math.Abs(current.X - start.X),
		Height: math.Abs(current.Y - start.Y),
	}
}

// Clamp limits box to the page, keeping x+width and y+height within 100.
func Clamp(box models.BoundingBox) models.BoundingBox {
	x0, y0 := clamp100(box.X), clamp100(box.Y)
	x1, y1 := clamp100(box.X+box.Width), clamp100(box.Y+box.Height)
	return models.BoundingBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// PercentToPixelCrop scales a percentage box onto a raster of the given size.
func PercentToPixelCrop(box models.BoundingBox, width, height int) PixelCrop {
	w, h := float64(width), float64(height)
	return PixelCrop{
		SX:      int(math.Round(box.X / 100 * w)),
		SY:      int(math.Round(box.Y / 100 * h)),
		SWidth:  int(math.Round(box.Width / 100 * w)),
		SHeight: int(math.Round(box.Height / 100 * h)),
	}
}

// FitScale returns the scale that makes nativeWidth fill viewportWidth.
// It falls back to fallback when either width is unusable.
func FitScale(viewportWidth, nativeWidth, fallback float64) float64 {
	if viewportWidth <= 0 || nativeWidth <= 0 {
		return fallback
	}
	return viewportWidth / nativeWidth
}

// PageGeometries computes the display size of every page at scale.
// The result always has doc.PageCount() entries.
func PageGeometries(doc core.Document, scale float64) ([]models.PageGeometry, error) {
	n := doc.PageCount()
	out := make([]models.PageGeometry, 0, n)
	for i := 0; i < n; i++ {
		w, h, err := doc.PageNativeSize(i)
		if err != nil {
			return nil, core.RenderError(fmt.Sprintf("failed to measure page %d", i+1), err)
		}
		out = append(out, models.PageGeometry{PageIndex: i, Width: w * scale, Height: h * scale})
	}
	return out, nil
}
