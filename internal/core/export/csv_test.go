package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Alttexta/internal/models"
)

func sampleAssets() []models.Asset {
	return []models.Asset{
		{
			ID: "1", AssetID: "Figure 1.1", AssetType: models.AssetFigure, PageNumber: 2,
			AltText:  `A chart titled "Growth", rising steadily`,
			Keywords: []string{"growth", "revenue, annual"},
			Taxonomy: "Economics > Markets",
		},
		{
			ID: "2", AssetID: "Table 3", AssetType: models.AssetTable, PageNumber: 5,
			AltText:  "Line one\nLine two",
			Keywords: nil,
			Taxonomy: "",
		},
	}
}

func TestWriteCSV_Layout(t *testing.T) {
	out := string(CSV("report.pdf", sampleAssets()))
	lines := strings.Split(out, "\r\n")

	assert.Equal(t, Header, lines[0])
	assert.Equal(t,
		`report.pdf,Figure 1.1,Figure,2,"A chart titled ""Growth"", rising steadily","growth, revenue, annual","Economics > Markets"`,
		lines[1])
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	list := sampleAssets()
	records, err := csv.NewReader(bytes.NewReader(CSV("my, report.pdf", list))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(list)+1)

	assert.Equal(t, strings.Split(Header, ","), records[0])
	for i, a := range list {
		row := records[i+1]
		assert.Equal(t, "my, report.pdf", row[0])
		assert.Equal(t, a.AssetID, row[1])
		assert.Equal(t, string(a.AssetType), row[2])
		assert.Equal(t, strconv.Itoa(a.PageNumber), row[3])
		assert.Equal(t, a.AltText, row[4])
		assert.Equal(t, strings.Join(a.Keywords, ", "), row[5])
		assert.Equal(t, a.Taxonomy, row[6])
	}
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "N/A", Location(0))
	assert.Equal(t, "12", Location(12))
}
