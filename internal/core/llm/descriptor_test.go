package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/models"
)

func TestParseDescriptors(t *testing.T) {
	raw := "```json\n[{\"assetId\":\"Figure 1\",\"assetType\":\"figure\",\"preview\":\"p\",\"altText\":\"a bar chart\",\"keywords\":[\"bars\"],\"taxonomy\":\"Stats\",\"boundingBox\":{\"x\":10,\"y\":20,\"width\":30,\"height\":40}}]\n```"
	list, err := parseDescriptors(raw)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AssetFigure, list[0].AssetType)
	assert.Equal(t, &models.BoundingBox{X: 10, Y: 20, Width: 30, Height: 40}, list[0].BoundingBox)

	list, err = parseDescriptors(`{"assets": []}`)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = parseDescriptors(`[]`)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = parseDescriptors(`{"assetId":"Eq 1","assetType":"Equation","altText":"x squared","pageNumber":4}`)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].PageNumber)
	assert.NotNil(t, list[0].Keywords)
}

func TestParseDescriptors_Malformed(t *testing.T) {
	for _, raw := range []string{"", "not json", `[{"assetType":"Poster","altText":"x"}]`, `[{"assetType":"Table","altText":" "}]`} {
		_, err := parseDescriptors(raw)
		assert.True(t, core.IsType(err, core.ErrorTypeService), "input %q", raw)
	}
}

func TestParseDescriptor(t *testing.T) {
	d, err := parseDescriptor(`{"assetId":"Map A","assetType":"Map","altText":"coastline","keywords":["sea"],"taxonomy":"Geo"}`)
	require.NoError(t, err)
	assert.Equal(t, models.AssetMap, d.AssetType)

	d, err = parseDescriptor(`[{"assetId":"T","assetType":"Table","altText":"cells"}]`)
	require.NoError(t, err)
	assert.Equal(t, "T", d.AssetID)

	_, err = parseDescriptor(`[]`)
	assert.Error(t, err)
}

func TestSchemas(t *testing.T) {
	page := descriptorListSchema(true)
	assert.Contains(t, page.Items.Properties, "boundingBox")
	assert.NotContains(t, page.Items.Properties, "pageNumber")

	doc := descriptorListSchema(false)
	assert.Contains(t, doc.Items.Properties, "pageNumber")
	assert.NotContains(t, doc.Items.Properties, "boundingBox")

	region := descriptorSchema(false, false)
	assert.Len(t, region.Properties, 6)
}
