package geometry

import "github.com/markdave123-py/Alttexta/internal/models"

// Viewport is the visible window of the scrollable page column.
type Viewport struct {
	ScrollTop float64 `json:"scrollTop"`
	Height    float64 `json:"height"`
}

// Layout stacks page containers vertically, separated by gap, in scroll coordinates.
func Layout(pages []models.PageGeometry, gap float64) []Rect {
	out := make([]Rect, len(pages))
	top := 0.0
	for i, p := range pages {
		out[i] = Rect{Left: 0, Top: top, Width: p.Width, Height: p.Height}
		top += p.Height + gap
	}
	return out
}

// NearViewport reports whether r lies within margin px of the visible window.
func NearViewport(r Rect, vp Viewport, margin float64) bool {
	return r.Top < vp.ScrollTop+vp.Height+margin && r.Bottom() > vp.ScrollTop-margin
}

// ScrollOffset returns the scroll position that brings box on page into view.
func ScrollOffset(layout []Rect, pageIndex int, box *models.BoundingBox) float64 {
	if pageIndex < 0 || pageIndex >= len(layout) {
		return 0
	}
	r := layout[pageIndex]
	if box == nil {
		return r.Top
	}
	return r.Top + box.Y/100*r.Height
}
