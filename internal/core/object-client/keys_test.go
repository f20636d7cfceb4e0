package objectclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "users/u1/documents/d1/report.pdf", DocumentKey("u1", "d1", "report.pdf"))
	assert.Equal(t, "users/u1/documents/d1/evil.pdf", DocumentKey("u1", "d1", "../../evil.pdf"))
	assert.Equal(t, "users/u1/documents/d1/x.docx", DocumentKey("u1", "d1", `C:\tmp\x.docx`))
	assert.Equal(t, "users/u1/documents/d1/source", DocumentKey("u1", "d1", ""))
}

func TestExportKey(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "users/u1/exports/s1/20260304T050607Z.csv", ExportKey("u1", "s1", at))
}
