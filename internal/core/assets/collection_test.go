package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

func asset(id string, page int, y *float64) models.Asset {
	a := models.Asset{
		ID:         id,
		AssetID:    "Figure " + id,
		AssetType:  models.AssetFigure,
		PageNumber: page,
		AltText:    "alt " + id,
		Keywords:   []string{"one", "two"},
		Taxonomy:   "A > B",
	}
	if y != nil {
		a.BoundingBox = &models.BoundingBox{X: 5, Y: *y, Width: 10, Height: 10}
	}
	return a
}

func ptr(v float64) *float64 { return &v }

func ids(list []models.Asset) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestInsertAll_SortOrder(t *testing.T) {
	c := NewCollection()
	c.InsertAll([]models.Asset{asset("p3", 3, ptr(10))})
	c.InsertAll([]models.Asset{
		asset("p1-low", 1, ptr(80)),
		asset("p1-none", 1, nil),
		asset("p1-high", 1, ptr(5)),
	})
	c.InsertAll([]models.Asset{asset("p2", 2, nil), asset("p1-none-2", 1, nil)})

	assert.Equal(t, []string{"p1-high", "p1-low", "p1-none", "p1-none-2", "p2", "p3"}, ids(c.Snapshot()))
}

func TestInsertAll_PageOrderIndependentOfInsertion(t *testing.T) {
	forward := NewCollection()
	backward := NewCollection()
	list := []models.Asset{asset("a", 1, ptr(50)), asset("b", 2, ptr(1)), asset("c", 3, nil)}
	for _, a := range list {
		forward.InsertAll([]models.Asset{a})
	}
	for i := len(list) - 1; i >= 0; i-- {
		backward.InsertAll([]models.Asset{list[i]})
	}
	assert.Equal(t, ids(forward.Snapshot()), ids(backward.Snapshot()))
}

func TestUpdateField(t *testing.T) {
	c := NewCollection()
	c.InsertAll([]models.Asset{asset("a", 1, nil)})

	require.NoError(t, c.UpdateField("a", FieldTaxonomy, "X > Y"))
	once := c.Snapshot()
	require.NoError(t, c.UpdateField("a", FieldTaxonomy, "X > Y"))
	assert.Equal(t, once, c.Snapshot())

	require.NoError(t, c.UpdateField("a", FieldAssetType, "table"))
	got, _ := c.Get("a")
	assert.Equal(t, models.AssetTable, got.AssetType)

	require.NoError(t, c.UpdateField("a", FieldKeywords, []any{"x", "y"}))
	got, _ = c.Get("a")
	assert.Equal(t, []string{"x", "y"}, got.Keywords)

	err := c.UpdateField("a", FieldAltText, 12)
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
	err = c.UpdateField("a", FieldAssetType, "Diagram")
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
	err = c.UpdateField("a", Field("pageNumber"), "4")
	assert.Error(t, err)

	assert.NoError(t, c.UpdateField("missing", FieldAltText, "x"))
	assert.Equal(t, 1, c.Len())
}

func TestKeywords(t *testing.T) {
	c := NewCollection()
	c.InsertAll([]models.Asset{asset("a", 1, nil)})

	c.AddKeyword("a", "  three ")
	c.AddKeyword("a", "   ")
	c.AddKeyword("a", "one")
	got, _ := c.Get("a")
	assert.Equal(t, []string{"one", "two", "three", "one"}, got.Keywords)

	c.RemoveKeyword("a", 1)
	c.RemoveKeyword("a", 9)
	c.RemoveKeyword("a", -1)
	got, _ = c.Get("a")
	assert.Equal(t, []string{"one", "three", "one"}, got.Keywords)
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewCollection()
	c.InsertAll([]models.Asset{asset("a", 1, ptr(3))})
	snap := c.Snapshot()
	snap[0].Keywords[0] = "mutated"
	snap[0].BoundingBox.Y = 99

	got, _ := c.Get("a")
	assert.Equal(t, "one", got.Keywords[0])
	assert.Equal(t, 3.0, got.BoundingBox.Y)
}

func TestDelete(t *testing.T) {
	c := NewCollection()
	c.InsertAll([]models.Asset{asset("a", 1, nil), asset("b", 1, nil)})

	_, ok := c.Select("a")
	require.True(t, ok)
	assert.True(t, c.Delete("a"))
	assert.Empty(t, c.Selected())

	// Nothing but InsertAll brings it back.
	assert.False(t, c.Delete("a"))
	assert.NoError(t, c.UpdateField("a", FieldAltText, "x"))
	c.AddKeyword("a", "k")
	c.RemoveKeyword("a", 0)
	assert.False(t, c.ReplaceAltText("a", "new"))
	_, ok = c.Select("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, ids(c.Snapshot()))

	c.InsertAll([]models.Asset{asset("a", 1, nil)})
	assert.Equal(t, 2, c.Len())
}

func TestReset(t *testing.T) {
	c := NewCollection()
	c.InsertAll([]models.Asset{asset("a", 1, nil)})
	c.Select("a")
	c.Reset()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Selected())
}

func TestFromDescriptor(t *testing.T) {
	d := models.AssetDescriptor{
		AssetID:     " Table 2 ",
		AssetType:   "table",
		AltText:     "rows",
		Keywords:    []string{"a", " ", "b "},
		BoundingBox: &models.BoundingBox{X: 90, Y: -5, Width: 20, Height: 10},
	}
	a := FromDescriptor(d, 4)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Table 2", a.AssetID)
	assert.Equal(t, models.AssetTable, a.AssetType)
	assert.Equal(t, 4, a.PageNumber)
	assert.Equal(t, []string{"a", "b"}, a.Keywords)
	assert.Equal(t, models.BoundingBox{X: 90, Y: 0, Width: 10, Height: 5}, *a.BoundingBox)

	other := FromDescriptor(models.AssetDescriptor{AssetType: "Sketch"}, 1)
	assert.Equal(t, models.AssetFigure, other.AssetType)
	assert.NotEqual(t, a.ID, other.ID)
	assert.Nil(t, other.BoundingBox)
	assert.NotNil(t, other.Keywords)
}
