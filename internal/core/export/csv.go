// Package export serializes an asset collection for download.
package export

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/markdave123-py/Alttexta/internal/models"
)

// Header is the exact first row of every export.
const Header = "Filename,Asset ID,Asset Type,Page/Location,Alt Text,Keywords,Taxonomy"

// KeywordSeparator joins keywords inside their single column.
const KeywordSeparator = ", "

// WriteCSV writes one row per asset in the given order. Alt text, keywords and
// taxonomy are always quoted; the other columns only when they need it.
func WriteCSV(w io.Writer, fileName string, list []models.Asset) error {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\r\n")
	for _, a := range list {
		fields := []string{
			quoteIfNeeded(fileName),
			quoteIfNeeded(a.AssetID),
			quoteIfNeeded(string(a.AssetType)),
			quoteIfNeeded(Location(a.PageNumber)),
			quote(a.AltText),
			quote(strings.Join(a.Keywords, KeywordSeparator)),
			quote(a.Taxonomy),
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteString("\r\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// CSV is WriteCSV into memory.
func CSV(fileName string, list []models.Asset) []byte {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, fileName, list)
	return buf.Bytes()
}

// Location renders a page number; 0 means the page is unknown.
func Location(page int) string {
	if page <= 0 {
		return "N/A"
	}
	return strconv.Itoa(page)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") || strings.HasPrefix(s, " ") {
		return quote(s)
	}
	return s
}
