package assets

import (
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// FromDescriptor turns a metadata-service descriptor into a new asset on pageNumber.
// Unknown asset types fall back to Figure; boxes are limited to the page.
func FromDescriptor(d models.AssetDescriptor, pageNumber int) models.Asset {
	t, err := models.ParseAssetType(string(d.AssetType))
	if err != nil {
		t = models.AssetFigure
	}
	keywords := make([]string, 0, len(d.Keywords))
	for _, k := range d.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	a := models.Asset{
		ID:         uuid.NewString(),
		AssetID:    strings.TrimSpace(d.AssetID),
		AssetType:  t,
		PageNumber: pageNumber,
		Preview:    d.Preview,
		AltText:    d.AltText,
		Keywords:   keywords,
		Taxonomy:   d.Taxonomy,
	}
	if d.BoundingBox != nil {
		box := geometry.Clamp(*d.BoundingBox)
		a.BoundingBox = &box
	}
	return a
}
