package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/core"
	objectclient "github.com/markdave123-py/Alttexta/internal/core/object-client"
	"github.com/markdave123-py/Alttexta/internal/models"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
	mimeHTML = "text/html"
)

// SourceInput is an upload, a URL or a previously archived document; exactly one must be set.
type SourceInput struct {
	FileName    string
	ContentType string
	Data        []byte
	// Size is the declared size, checked before the body is trusted.
	Size       int64
	URL        string
	DocumentID string
}

type DocumentService struct {
	db       core.DbClient
	storage  core.ObjectClient
	bucket   string
	maxBytes int64
	client   *http.Client
	log      zerolog.Logger
}

// NewDocumentService builds the intake service. storage may be nil, in
// which case sources are not archived.
func NewDocumentService(db core.DbClient, storage core.ObjectClient, bucket string, maxBytes int64, log zerolog.Logger) *DocumentService {
	return &DocumentService{
		db:       db,
		storage:  storage,
		bucket:   bucket,
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: 2 * time.Minute},
		log:      log.With().Str("component", "document_service").Logger(),
	}
}

func (s *DocumentService) tooLarge(n int64) error {
	return core.InputValidationError(
		fmt.Sprintf("file is %d bytes, the limit is %d MB", n, s.maxBytes/(1024*1024)), nil)
}

// Intake validates a source, classifies it and archives it when storage is configured.
func (s *DocumentService) Intake(ctx context.Context, userID string, in SourceInput) (models.SourceDocument, error) {
	rawURL := strings.TrimSpace(in.URL)
	docID := strings.TrimSpace(in.DocumentID)
	hasFile := len(in.Data) > 0 || in.Size > 0
	supplied := 0
	for _, ok := range []bool{hasFile, rawURL != "", docID != ""} {
		if ok {
			supplied++
		}
	}
	switch {
	case supplied == 0:
		return models.SourceDocument{}, core.InputValidationError("no file or URL supplied", nil)
	case supplied > 1:
		return models.SourceDocument{}, core.InputValidationError("supply only one of a file, a URL or a document id", nil)
	case docID != "":
		return s.reopen(ctx, userID, docID)
	}

	doc := models.Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	var data []byte
	declared := in.ContentType

	if hasFile {
		if size := max(in.Size, int64(len(in.Data))); s.maxBytes > 0 && size > s.maxBytes {
			return models.SourceDocument{}, s.tooLarge(size)
		}
		if len(in.Data) == 0 {
			return models.SourceDocument{}, core.InputValidationError("uploaded file is empty", nil)
		}
		data = in.Data
		doc.FileName = path.Base(strings.ReplaceAll(in.FileName, "\\", "/"))
		doc.SourceType = "upload"
	} else {
		body, ct, name, err := s.fetch(ctx, rawURL)
		if err != nil {
			return models.SourceDocument{}, err
		}
		data, declared = body, ct
		doc.FileName = name
		doc.SourceURL = rawURL
		doc.SourceType = "url"
	}

	kind, contentType, err := DetectKind(doc.FileName, declared, data)
	if err != nil {
		return models.SourceDocument{}, err
	}
	doc.Kind = kind
	doc.ContentType = contentType
	doc.SizeBytes = int64(len(data))

	if s.storage != nil {
		key := objectclient.DocumentKey(userID, doc.ID, doc.FileName)
		storageURL, err := s.storage.UploadFile(ctx, s.bucket, key, bytes.NewReader(data), contentType)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("source archive failed")
		} else {
			doc.StorageURL = storageURL
		}
	}
	if err := s.db.CreateDocument(ctx, &doc); err != nil {
		s.log.Warn().Err(err).Str("document_id", doc.ID).Msg("failed to record document")
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("kind", string(kind)).
		Int64("bytes", doc.SizeBytes).
		Msg("document accepted")
	return models.SourceDocument{Document: doc, Data: data}, nil
}

// fetch downloads a URL source, refusing bodies above the size limit.
func (s *DocumentService) fetch(ctx context.Context, raw string) ([]byte, string, string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", "", core.InputValidationError("URL must be an absolute http(s) address", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", "", core.InputValidationError("invalid URL", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", "", core.InputValidationError("could not fetch URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", "", core.InputValidationError(fmt.Sprintf("URL returned status %d", resp.StatusCode), nil)
	}
	if s.maxBytes > 0 && resp.ContentLength > s.maxBytes {
		return nil, "", "", s.tooLarge(resp.ContentLength)
	}

	limit := s.maxBytes
	if limit <= 0 {
		limit = 1 << 40
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", "", core.InputValidationError("could not read URL body", err)
	}
	if int64(len(body)) > limit {
		return nil, "", "", s.tooLarge(int64(len(body)))
	}
	if len(body) == 0 {
		return nil, "", "", core.InputValidationError("URL returned an empty body", nil)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = u.Host
	}
	return body, resp.Header.Get("Content-Type"), name, nil
}

// DetectKind classifies a source into pdf, word or html from its magic
// bytes, its extension and the declared content type, in that order.
func DetectKind(fileName, declared string, data []byte) (models.DocKind, string, error) {
	sniffed := http.DetectContentType(data)
	ext := strings.ToLower(path.Ext(fileName))
	declared = strings.ToLower(declared)

	switch {
	case bytes.HasPrefix(data, []byte("%PDF")) || sniffed == mimePDF:
		return models.DocKindPDF, mimePDF, nil
	case ext == ".docx" || strings.Contains(declared, "wordprocessingml"):
		return models.DocKindWord, mimeDOCX, nil
	case ext == ".doc" || strings.Contains(declared, "msword"):
		return models.DocKindWord, mimeDOC, nil
	case strings.HasPrefix(sniffed, mimeHTML) || ext == ".html" || ext == ".htm" || strings.Contains(declared, mimeHTML):
		return models.DocKindHTML, mimeHTML, nil
	case ext == ".pdf" || strings.Contains(declared, mimePDF):
		return "", "", core.InputValidationError("file claims to be a PDF but has no PDF header", nil)
	}
	return "", "", core.InputValidationError(
		fmt.Sprintf("unsupported document type %q; upload a PDF, Word document or web page", sniffed), nil)
}

func (s *DocumentService) owned(ctx context.Context, userID, docID string) (*models.Document, error) {
	doc, err := s.db.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.UserID != userID {
		return nil, core.NotFoundError("document not found", nil)
	}
	return doc, nil
}

// reopen loads an archived source back from object storage. It is neither
// archived nor recorded again.
func (s *DocumentService) reopen(ctx context.Context, userID, docID string) (models.SourceDocument, error) {
	doc, err := s.owned(ctx, userID, docID)
	if err != nil {
		return models.SourceDocument{}, err
	}
	if s.storage == nil || doc.StorageURL == "" {
		return models.SourceDocument{}, core.InputValidationError("document was not archived; upload it again", nil)
	}
	data, err := s.storage.GetFile(ctx, s.bucket, objectclient.DocumentKey(userID, doc.ID, doc.FileName))
	if err != nil {
		return models.SourceDocument{}, core.ServiceError("could not load the archived document", err)
	}
	s.log.Info().Str("document_id", doc.ID).Msg("archived document reopened")
	return models.SourceDocument{Document: *doc, Data: data}, nil
}

// Delete removes a document record and its archived copy.
func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	doc, err := s.owned(ctx, userID, docID)
	if err != nil {
		return err
	}
	if s.storage != nil && doc.StorageURL != "" {
		key := objectclient.DocumentKey(userID, doc.ID, doc.FileName)
		if err := s.storage.DeleteFile(ctx, s.bucket, key); err != nil {
			return core.ServiceError("could not delete the archived document", err)
		}
	}
	return s.db.DeleteDocument(ctx, doc.ID)
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	return s.db.ListDocumentsByUser(ctx, userID)
}
