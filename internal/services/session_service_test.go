package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/coretest"
	db "github.com/markdave123-py/Alttexta/internal/core/database"
	"github.com/markdave123-py/Alttexta/internal/core/extraction_engine"
	"github.com/markdave123-py/Alttexta/internal/core/session"
	"github.com/markdave123-py/Alttexta/internal/models"
)

type sessionFixture struct {
	svc     *SessionService
	store   *db.MemoryClient
	objects *fakeObjects
	backend *coretest.FakeBackend
}

func newSessionFixture(t *testing.T, docs ...*coretest.FakeDocument) *sessionFixture {
	t.Helper()
	store := db.NewMemoryClient()
	seedUser(t, store, "u1", 1_000_000)
	seedUser(t, store, "u2", 1_000_000)

	meta := &coretest.FakeMetadataService{
		PageResponses: [][]models.AssetDescriptor{
			{coretest.Descriptor("Figure 1.1", models.AssetFigure, 20)},
			{coretest.Descriptor("Table 2.1", models.AssetTable, 40)},
		},
	}
	usage := NewUsageService(store, nop)
	backend := &coretest.FakeBackend{Docs: docs}
	deps := session.Deps{
		Backend:  backend,
		Meta:     meta,
		Usage:    usage,
		Pipeline: extraction_engine.NewPipeline(meta, usage, extraction_engine.DefaultPipelineConfig(), nop),
	}

	ctx, cancel := context.WithCancel(context.Background())
	queue := extraction_engine.NewQueue(8, nop)
	queue.Start(ctx, 1)

	objects := newFakeObjects()
	docsSvc := NewDocumentService(store, objects, "bucket", 100*1024*1024, nop)
	svc := NewSessionService(deps, session.DefaultOptions(), queue, docsSvc, objects, "bucket", nop)
	t.Cleanup(func() {
		svc.Close()
		cancel()
	})
	return &sessionFixture{svc: svc, store: store, objects: objects, backend: backend}
}

func upload(name string) SourceInput {
	return SourceInput{FileName: name, ContentType: "application/pdf", Data: pdfBytes}
}

func waitStatus(t *testing.T, sess *session.Session, want session.Status) {
	t.Helper()
	require.Eventually(t, func() bool { return sess.Status() == want }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionService_CreateQueuesExtraction(t *testing.T) {
	f := newSessionFixture(t, coretest.NewFakeDocument(2))

	sess, err := f.svc.Create(context.Background(), "u1", upload("paper.pdf"), 0)
	require.NoError(t, err)
	waitStatus(t, sess, session.StatusComplete)

	v := sess.View()
	assert.Len(t, v.Assets, 2)
	assert.Equal(t, "Figure 1.1", v.Assets[0].AssetID)

	user, err := f.store.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Positive(t, user.TokensUsed)

	views := f.svc.List("u1")
	require.Len(t, views, 1)
	assert.Equal(t, sess.ID(), views[0].ID)
	assert.Empty(t, f.svc.List("u2"))
}

func TestSessionService_OwnerIsolation(t *testing.T) {
	f := newSessionFixture(t, coretest.NewFakeDocument(1))
	sess, err := f.svc.Create(context.Background(), "u1", upload("paper.pdf"), 0)
	require.NoError(t, err)

	_, err = f.svc.Get("u2", sess.ID())
	assert.True(t, core.IsType(err, core.ErrorTypeNotFound))
	assert.True(t, core.IsType(f.svc.Delete("u2", sess.ID()), core.ErrorTypeNotFound))

	require.NoError(t, f.svc.Delete("u1", sess.ID()))
	_, err = f.svc.Get("u1", sess.ID())
	assert.True(t, core.IsType(err, core.ErrorTypeNotFound))
}

func TestSessionService_BudgetExhaustedKeepsSession(t *testing.T) {
	f := newSessionFixture(t, coretest.NewFakeDocument(1))
	seedUser(t, f.store, "broke", 0)

	sess, err := f.svc.Create(context.Background(), "broke", upload("paper.pdf"), 0)
	assert.True(t, core.IsType(err, core.ErrorTypeBudgetExceeded))
	require.NotNil(t, sess)
	assert.Equal(t, session.StatusReady, sess.Status())

	_, err = f.svc.Get("broke", sess.ID())
	assert.NoError(t, err)
}

func TestSessionService_InvalidInputCreatesNothing(t *testing.T) {
	f := newSessionFixture(t)
	sess, err := f.svc.Create(context.Background(), "u1", SourceInput{}, 0)
	assert.Nil(t, sess)
	assert.True(t, core.IsType(err, core.ErrorTypeInputValidation))
	assert.Empty(t, f.svc.List("u1"))
	assert.Zero(t, f.backend.Opened())
}

func TestSessionService_CancelAndRetry(t *testing.T) {
	doc := coretest.NewFakeDocument(2)
	doc.Gate = make(chan struct{})
	f := newSessionFixture(t, doc)

	sess, err := f.svc.Create(context.Background(), "u1", upload("paper.pdf"), 0)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return doc.RenderCount(0) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.svc.CancelExtraction("u1", sess.ID()))
	waitStatus(t, sess, session.StatusCancelled)

	close(doc.Gate)
	_, err = f.svc.Retry(context.Background(), "u1", sess.ID())
	require.NoError(t, err)
	waitStatus(t, sess, session.StatusComplete)
	assert.Len(t, sess.View().Assets, 2)
}

func TestSessionService_ExportCSV(t *testing.T) {
	f := newSessionFixture(t, coretest.NewFakeDocument(2))
	sess, err := f.svc.Create(context.Background(), "u1", upload("paper.pdf"), 0)
	require.NoError(t, err)
	waitStatus(t, sess, session.StatusComplete)

	out, err := f.svc.ExportCSV(context.Background(), "u1", sess.ID(), false)
	require.NoError(t, err)
	assert.Equal(t, "paper_alt_text.csv", out.FileName)
	assert.True(t, strings.HasPrefix(string(out.Data), "Filename,Asset ID,Asset Type,Page/Location,Alt Text,Keywords,Taxonomy\r\n"))
	assert.Empty(t, out.ArchiveKey)

	out, err = f.svc.ExportCSV(context.Background(), "u1", sess.ID(), true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.ArchiveKey, "users/u1/exports/"+sess.ID()+"/"))
	archived, err := f.objects.GetFile(context.Background(), "bucket", out.ArchiveKey)
	require.NoError(t, err)
	assert.Equal(t, out.Data, archived)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "paper_alt_text.csv", ExportFileName("paper.pdf"))
	assert.Equal(t, "article_alt_text.csv", ExportFileName("https://example.com/news/article.html"))
	assert.Equal(t, "document_alt_text.csv", ExportFileName(""))
}
