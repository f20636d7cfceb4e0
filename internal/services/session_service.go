package services

import (
	"bytes"
	"context"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/extraction_engine"
	objectclient "github.com/markdave123-py/Alttexta/internal/core/object-client"
	"github.com/markdave123-py/Alttexta/internal/core/session"
)

// SessionService owns the in-memory viewer sessions of every user.
type SessionService struct {
	deps    session.Deps
	opts    session.Options
	queue   *extraction_engine.Queue
	docs    *DocumentService
	storage core.ObjectClient
	bucket  string
	log     zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionService(deps session.Deps, opts session.Options, queue *extraction_engine.Queue, docs *DocumentService, storage core.ObjectClient, bucket string, log zerolog.Logger) *SessionService {
	return &SessionService{
		deps:     deps,
		opts:     opts,
		queue:    queue,
		docs:     docs,
		storage:  storage,
		bucket:   bucket,
		log:      log,
		sessions: map[string]*session.Session{},
	}
}

// Create loads a document into a new session and queues its extraction.
// When the budget check fails the session is kept, so the document can
// still be viewed, and both the session and the error are returned.
func (s *SessionService) Create(ctx context.Context, userID string, in SourceInput, viewportWidth float64) (*session.Session, error) {
	src, err := s.docs.Intake(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	sess := session.New(uuid.NewString(), userID, s.deps, s.opts, s.log)
	if err := sess.Load(src, viewportWidth); err != nil {
		sess.Close()
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	return sess, s.start(ctx, sess, sess.PrepareExtraction)
}

func (s *SessionService) start(ctx context.Context, sess *session.Session, prepare func(context.Context) (*session.Run, error)) error {
	run, err := prepare(ctx)
	if err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, run); err != nil {
		run.Abandon()
		return err
	}
	s.log.Debug().Str("session_id", sess.ID()).Str("job_id", run.ID()).Msg("extraction queued")
	return nil
}

// Get returns a session owned by userID. Sessions of other users are reported as missing.
func (s *SessionService) Get(userID, id string) (*session.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.UserID() != userID {
		return nil, core.NotFoundError("session not found", nil)
	}
	return sess, nil
}

func (s *SessionService) List(userID string) []session.View {
	s.mu.RLock()
	var owned []*session.Session
	for _, sess := range s.sessions {
		if sess.UserID() == userID {
			owned = append(owned, sess)
		}
	}
	s.mu.RUnlock()

	views := make([]session.View, 0, len(owned))
	for _, sess := range owned {
		views = append(views, sess.View())
	}
	slices.SortFunc(views, func(a, b session.View) int { return strings.Compare(a.ID, b.ID) })
	return views
}

// Load replaces the session's document and queues a fresh extraction.
func (s *SessionService) Load(ctx context.Context, userID, id string, in SourceInput, viewportWidth float64) (*session.Session, error) {
	sess, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	src, err := s.docs.Intake(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if err := sess.Load(src, viewportWidth); err != nil {
		return nil, err
	}
	return sess, s.start(ctx, sess, sess.PrepareExtraction)
}

func (s *SessionService) Retry(ctx context.Context, userID, id string) (*session.Session, error) {
	sess, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	return sess, s.start(ctx, sess, sess.Retry)
}

func (s *SessionService) CancelExtraction(userID, id string) error {
	sess, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	return sess.CancelExtraction()
}

// Delete closes a session; its document is released once background work drains.
func (s *SessionService) Delete(userID, id string) error {
	sess, err := s.Get(userID, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	sess.Close()
	s.log.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

// Export is a rendered CSV and, when archived, its object key.
type Export struct {
	FileName   string
	Data       []byte
	ArchiveKey string
	ArchiveURL string
}

// ExportCSV serializes a session's assets; archive uploads the file to object storage.
func (s *SessionService) ExportCSV(ctx context.Context, userID, id string, archive bool) (Export, error) {
	sess, err := s.Get(userID, id)
	if err != nil {
		return Export{}, err
	}
	name, data, err := sess.ExportCSV()
	if err != nil {
		return Export{}, err
	}
	out := Export{FileName: ExportFileName(name), Data: data}
	if !archive {
		return out, nil
	}
	if s.storage == nil {
		return Export{}, core.InputValidationError("export archiving is not configured", nil)
	}
	out.ArchiveKey = objectclient.ExportKey(userID, id, time.Now())
	out.ArchiveURL, err = s.storage.UploadFile(ctx, s.bucket, out.ArchiveKey, bytes.NewReader(data), "text/csv")
	if err != nil {
		return Export{}, core.ServiceError("failed to archive export", err)
	}
	return out, nil
}

// ExportFileName derives the download name from the source name.
func ExportFileName(source string) string {
	base := path.Base(strings.ReplaceAll(source, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "_alt_text.csv"
}

// Close ends every session.
func (s *SessionService) Close() {
	s.mu.Lock()
	all := make([]*session.Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	for _, sess := range all {
		sess.Close()
	}
}
