package renderer

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Alttexta/internal/core/geometry"
)

func TestCrop(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))

	out := Crop(src, geometry.PixelCrop{SX: 20, SY: 10, SWidth: 50, SHeight: 40})
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 40, out.Bounds().Dy())

	// Clipped to the raster.
	out = Crop(src, geometry.PixelCrop{SX: 180, SY: 90, SWidth: 50, SHeight: 50})
	assert.Equal(t, 20, out.Bounds().Dx())
	assert.Equal(t, 10, out.Bounds().Dy())

	// Degenerate and off-raster selections still produce one pixel.
	out = Crop(src, geometry.PixelCrop{SX: 20, SY: 10})
	assert.Equal(t, image.Rect(0, 0, 1, 1), out.Bounds())
	out = Crop(src, geometry.PixelCrop{SX: -50, SY: 500, SWidth: 10, SHeight: 10})
	assert.Equal(t, image.Rect(0, 0, 1, 1), out.Bounds())
}

func TestEncodeJPEG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 32))
	payload, err := EncodeJPEG(src, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", payload.MIMEType)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(payload.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}
