package renderer

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/markdave123-py/Alttexta/internal/core"
)

// pointsPerInch is the PDF user-space unit; scale 1.0 renders at 72 DPI.
const pointsPerInch = 72.0

var _ core.DocumentBackend = (*FitzBackend)(nil)

// FitzBackend rasterizes documents through MuPDF (go-fitz).
type FitzBackend struct{}

func NewFitzBackend() *FitzBackend {
	return &FitzBackend{}
}

// Open loads a document from memory.
func (b *FitzBackend) Open(data []byte) (core.Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, core.RenderError("failed to open document", err)
	}
	if doc.NumPage() == 0 {
		_ = doc.Close()
		return nil, core.InputValidationError("document has no pages", nil)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

// PageNativeSize returns the page size in points.
func (d *fitzDocument) PageNativeSize(pageIndex int) (float64, float64, error) {
	r, err := d.doc.Bound(pageIndex)
	if err != nil {
		return 0, 0, err
	}
	return float64(r.Dx()), float64(r.Dy()), nil
}

// RenderPage rasterizes one page; scale 1.0 is one pixel per point.
func (d *fitzDocument) RenderPage(ctx context.Context, pageIndex int, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageIndex < 0 || pageIndex >= d.doc.NumPage() {
		return nil, core.RenderError(fmt.Sprintf("page %d out of range", pageIndex+1), nil)
	}
	img, err := d.doc.ImageDPI(pageIndex, pointsPerInch*scale)
	if err != nil {
		return nil, core.RenderError(fmt.Sprintf("failed to render page %d", pageIndex+1), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
