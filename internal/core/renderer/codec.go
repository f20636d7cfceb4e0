package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/models"
)

const (
	DefaultJPEGQuality = 85
	jpegMIME           = "image/jpeg"
	pngMIME            = "image/png"
)

// EncodeJPEG compresses a raster into a metadata-service payload.
func EncodeJPEG(img image.Image, quality int) (models.ImagePayload, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return models.ImagePayload{}, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return models.ImagePayload{MIMEType: jpegMIME, Data: buf.Bytes()}, nil
}

// EncodePNG is used for display surfaces, where text crispness matters more than size.
func EncodePNG(img image.Image) (models.ImagePayload, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed)); err != nil {
		return models.ImagePayload{}, fmt.Errorf("png encode failed: %w", err)
	}
	return models.ImagePayload{MIMEType: pngMIME, Data: buf.Bytes()}, nil
}

// Crop cuts crop out of img. The result is clipped to the raster and never
// smaller than one pixel, so degenerate selections still yield an image.
func Crop(img image.Image, crop geometry.PixelCrop) image.Image {
	b := img.Bounds()
	r := image.Rect(
		b.Min.X+crop.SX,
		b.Min.Y+crop.SY,
		b.Min.X+crop.SX+max(crop.SWidth, 1),
		b.Min.Y+crop.SY+max(crop.SHeight, 1),
	).Intersect(b)
	if r.Empty() {
		// Selection entirely off the raster: fall back to its nearest corner pixel.
		x := min(max(b.Min.X+crop.SX, b.Min.X), b.Max.X-1)
		y := min(max(b.Min.Y+crop.SY, b.Min.Y), b.Max.Y-1)
		r = image.Rect(x, y, x+1, y+1)
	}
	return imaging.Crop(img, r)
}
