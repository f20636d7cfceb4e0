package core

import (
	"context"
	"image"
)

// DocumentBackend opens raw document bytes into a renderable handle.
type DocumentBackend interface {
	Open(data []byte) (Document, error)
}

// Document is an opened, paginated document.
// Page indexes are zero-based.
type Document interface {
	PageCount() int
	PageNativeSize(pageIndex int) (width, height float64, err error)
	RenderPage(ctx context.Context, pageIndex int, scale float64) (image.Image, error)
	Close() error
}

// TextExtractor pulls plain text out of non-paginated documents.
type TextExtractor interface {
	// ExtractText takes raw bytes and the content type hint and returns the document text.
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
}
