package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Alttexta/internal/core"
	db "github.com/markdave123-py/Alttexta/internal/core/database"
	"github.com/markdave123-py/Alttexta/internal/models"
)

var pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")

func TestIntake_RequiresExactlyOneSource(t *testing.T) {
	svc := NewDocumentService(db.NewMemoryClient(), nil, "bucket", 1024, nop)
	ctx := context.Background()

	_, err := svc.Intake(ctx, "u1", SourceInput{})
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))

	_, err = svc.Intake(ctx, "u1", SourceInput{FileName: "a.pdf", Data: pdfBytes, URL: "https://example.com/a.pdf"})
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
}

func TestIntake_SizeLimit(t *testing.T) {
	svc := NewDocumentService(db.NewMemoryClient(), nil, "bucket", 100*1024*1024, nop)

	_, err := svc.Intake(context.Background(), "u1", SourceInput{
		FileName: "big.pdf",
		Data:     pdfBytes,
		Size:     100*1024*1024 + 1,
	})
	require.Error(t, err)
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
	assert.Contains(t, err.Error(), "100 MB")
}

func TestIntake_UploadArchivesAndRecords(t *testing.T) {
	store := db.NewMemoryClient()
	objects := newFakeObjects()
	svc := NewDocumentService(store, objects, "bucket", 1024, nop)

	src, err := svc.Intake(context.Background(), "u1", SourceInput{FileName: "dir/My Paper.pdf", ContentType: "application/octet-stream", Data: pdfBytes})
	require.NoError(t, err)

	assert.Equal(t, models.DocKindPDF, src.Kind)
	assert.Equal(t, "application/pdf", src.ContentType)
	assert.Equal(t, "My Paper.pdf", src.FileName)
	assert.Equal(t, "upload", src.SourceType)
	assert.Equal(t, int64(len(pdfBytes)), src.SizeBytes)
	assert.Equal(t, []string{"users/u1/documents/" + src.ID + "/My Paper.pdf"}, objects.keys())
	assert.Contains(t, src.StorageURL, "users/u1/documents/")

	docs, err := svc.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, src.ID, docs[0].ID)
}

func TestIntake_ArchiveFailureIsNotFatal(t *testing.T) {
	objects := newFakeObjects()
	objects.err = errors.New("access denied")
	svc := NewDocumentService(db.NewMemoryClient(), objects, "bucket", 1024, nop)

	src, err := svc.Intake(context.Background(), "u1", SourceInput{FileName: "a.pdf", Data: pdfBytes})
	require.NoError(t, err)
	assert.Empty(t, src.StorageURL)
}

func TestIntake_ReopenArchived(t *testing.T) {
	store := db.NewMemoryClient()
	objects := newFakeObjects()
	svc := NewDocumentService(store, objects, "bucket", 1024, nop)
	ctx := context.Background()

	first, err := svc.Intake(ctx, "u1", SourceInput{FileName: "paper.pdf", Data: pdfBytes})
	require.NoError(t, err)

	again, err := svc.Intake(ctx, "u1", SourceInput{DocumentID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, pdfBytes, again.Data)
	assert.Len(t, objects.keys(), 1)

	docs, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = svc.Intake(ctx, "u2", SourceInput{DocumentID: first.ID})
	assert.True(t, core.IsType(err, core.ErrorTypeNotFound))

	_, err = svc.Intake(ctx, "u1", SourceInput{DocumentID: first.ID, URL: "https://example.com/a.pdf"})
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
}

func TestIntake_ReopenNeedsArchive(t *testing.T) {
	store := db.NewMemoryClient()
	svc := NewDocumentService(store, nil, "bucket", 1024, nop)
	ctx := context.Background()

	src, err := svc.Intake(ctx, "u1", SourceInput{FileName: "paper.pdf", Data: pdfBytes})
	require.NoError(t, err)

	_, err = svc.Intake(ctx, "u1", SourceInput{DocumentID: src.ID})
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
}

func TestDelete_RemovesRecordAndArchive(t *testing.T) {
	store := db.NewMemoryClient()
	objects := newFakeObjects()
	svc := NewDocumentService(store, objects, "bucket", 1024, nop)
	ctx := context.Background()

	src, err := svc.Intake(ctx, "u1", SourceInput{FileName: "paper.pdf", Data: pdfBytes})
	require.NoError(t, err)

	err = svc.Delete(ctx, "u2", src.ID)
	assert.True(t, core.IsType(err, core.ErrorTypeNotFound))
	assert.Len(t, objects.keys(), 1)

	require.NoError(t, svc.Delete(ctx, "u1", src.ID))
	assert.Empty(t, objects.keys())
	docs, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, docs)

	err = svc.Delete(ctx, "u1", src.ID)
	assert.True(t, core.IsType(err, core.ErrorTypeNotFound))
}

func TestIntake_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/paper.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(pdfBytes)
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body><img src=x alt=''></body></html>"))
		case "/huge":
			_, _ = w.Write([]byte(strings.Repeat("a", 4096)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewDocumentService(db.NewMemoryClient(), nil, "bucket", 1024, nop)
	ctx := context.Background()

	src, err := svc.Intake(ctx, "u1", SourceInput{URL: srv.URL + "/paper.pdf"})
	require.NoError(t, err)
	assert.Equal(t, models.DocKindPDF, src.Kind)
	assert.Equal(t, "paper.pdf", src.FileName)
	assert.Equal(t, "url", src.SourceType)
	assert.Equal(t, pdfBytes, src.Data)

	src, err = svc.Intake(ctx, "u1", SourceInput{URL: srv.URL + "/article"})
	require.NoError(t, err)
	assert.Equal(t, models.DocKindHTML, src.Kind)

	_, err = svc.Intake(ctx, "u1", SourceInput{URL: srv.URL + "/missing"})
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))

	_, err = svc.Intake(ctx, "u1", SourceInput{URL: srv.URL + "/huge"})
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))

	_, err = svc.Intake(ctx, "u1", SourceInput{URL: "ftp://example.com/a.pdf"})
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		declared string
		data     []byte
		want     models.DocKind
		wantErr  bool
	}{
		{"pdf magic", "scan.bin", "", pdfBytes, models.DocKindPDF, false},
		{"docx extension", "notes.docx", "", []byte("PK\x03\x04zip"), models.DocKindWord, false},
		{"doc declared", "notes", "application/msword", []byte{0xD0, 0xCF, 0x11, 0xE0}, models.DocKindWord, false},
		{"html sniffed", "page", "", []byte("<!DOCTYPE html><html></html>"), models.DocKindHTML, false},
		{"fake pdf", "a.pdf", "application/pdf", []byte("hello"), "", true},
		{"plain text", "a.txt", "text/plain", []byte("hello"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, _, err := DetectKind(tt.file, tt.declared, tt.data)
			if tt.wantErr {
				assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}
