// Package session is the viewer orchestrator. A Session owns one loaded
// document and wires page geometry, lazy rendering, extraction, the asset
// collection and region selection together.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/assets"
	"github.com/markdave123-py/Alttexta/internal/core/extraction_engine"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/core/renderer"
	"github.com/markdave123-py/Alttexta/internal/core/selection"
	"github.com/markdave123-py/Alttexta/internal/models"
)

type Status string

const (
	StatusEmpty      Status = "empty"
	StatusReady      Status = "ready"
	StatusExtracting Status = "extracting"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Mode tells whether the loaded document has pages the viewer can show.
type Mode string

const (
	ModePaginated     Mode = "paginated"
	ModeWholeDocument Mode = "whole_document"
)

// Options tunes a session.
//
// DisplayScale:  geometry scale used when the viewport width is unknown.
// RenderScale:   raster scale of lazily rendered page images.
// RegionScale:   raster scale for region crops and regeneration.
// PreloadMargin: px around the viewport that triggers a page render.
type Options struct {
	DisplayScale      float64
	RenderScale       float64
	RegionScale       float64
	PreloadMargin     float64
	PageGap           float64
	RenderConcurrency int
	ClampSelection    bool
	MaxUploadBytes    int64
	JPEGQuality       int
}

func DefaultOptions() Options {
	return Options{
		DisplayScale:      1.5,
		RenderScale:       1.5,
		RegionScale:       2.0,
		PreloadMargin:     500,
		PageGap:           16,
		RenderConcurrency: 4,
		ClampSelection:    true,
		MaxUploadBytes:    100 * 1024 * 1024,
	}
}

// Deps are the collaborators a session drives. Usage may be nil.
type Deps struct {
	Backend  core.DocumentBackend
	Meta     core.MetadataService
	Usage    core.UsageAccountant
	Pipeline *extraction_engine.Pipeline
	Whole    *extraction_engine.WholeDocument
}

// Progress is the last page reported done out of Total.
type Progress struct {
	Page  int `json:"page"`
	Total int `json:"total"`
}

// docHandle lets background work keep a document open after a newer load replaced it.
type docHandle struct {
	doc   core.Document
	users sync.WaitGroup
}

func (h *docHandle) closeWhenIdle(lazy *renderer.LazyRenderer, log zerolog.Logger) {
	if lazy != nil {
		lazy.Wait()
	}
	h.users.Wait()
	if err := h.doc.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close document")
	}
}

type Session struct {
	id     string
	userID string
	deps   Deps
	opts   Options
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup

	mu            sync.Mutex
	gen           uint64
	source        *models.SourceDocument
	handle        *docHandle
	mode          Mode
	viewportWidth float64
	scale         float64
	pages         []models.PageGeometry
	layout        []geometry.Rect
	lazy          *renderer.LazyRenderer
	status        Status
	progress      Progress
	lastErr       string
	result        *extraction_engine.Result
	runCancel     context.CancelFunc
	regenerating  map[string]struct{}
	closed        bool

	assets    *assets.Collection
	selection *selection.Controller
	events    *Broker
	notices   noticeBoard
}

func New(id, userID string, deps Deps, opts Options, log zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:           id,
		userID:       userID,
		deps:         deps,
		opts:         opts,
		log:          log.With().Str("component", "session").Str("session_id", id).Logger(),
		ctx:          ctx,
		cancel:       cancel,
		status:       StatusEmpty,
		regenerating: map[string]struct{}{},
		assets:       assets.NewCollection(),
		selection:    selection.NewController(opts.ClampSelection),
		events:       NewBroker(),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

// Subscribe streams future session events.
func (s *Session) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

func (s *Session) validate(src models.SourceDocument) error {
	if len(src.Data) == 0 && src.SourceURL == "" {
		return core.InputValidationError("no file or URL supplied", nil)
	}
	size := max(src.SizeBytes, int64(len(src.Data)))
	if s.opts.MaxUploadBytes > 0 && size > s.opts.MaxUploadBytes {
		return core.InputValidationError(
			fmt.Sprintf("file is %d bytes, the limit is %d MB", size, s.opts.MaxUploadBytes/(1024*1024)), nil)
	}
	if src.Kind.Paginated() && len(src.Data) == 0 {
		return core.InputValidationError("document body is empty", nil)
	}
	return nil
}

// Load replaces the current document. On failure the previous document
// stays loaded. A running extraction of the previous document is cancelled
// and nothing it produces afterwards is applied.
func (s *Session) Load(src models.SourceDocument, viewportWidth float64) error {
	if err := s.validate(src); err != nil {
		s.notify(NoticeError, core.UserMessage(err))
		return err
	}

	var (
		doc core.Document
		lay pageLayout
	)
	mode := ModeWholeDocument
	if src.Kind.Paginated() {
		var err error
		doc, err = s.deps.Backend.Open(src.Data)
		if err != nil {
			s.notify(NoticeError, core.UserMessage(err))
			return err
		}
		if lay, err = measure(doc, viewportWidth, s.opts); err != nil {
			if cerr := doc.Close(); cerr != nil {
				s.log.Warn().Err(cerr).Msg("failed to close document")
			}
			s.notify(NoticeError, core.UserMessage(err))
			return err
		}
		mode = ModePaginated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if doc != nil {
			_ = doc.Close()
		}
		return core.ConflictError("session is closed", nil)
	}

	s.teardownLocked()
	s.gen++
	s.source = &src
	s.mode = mode
	s.viewportWidth = viewportWidth
	s.status = StatusReady
	s.progress = Progress{}
	s.lastErr = ""
	s.result = nil
	s.regenerating = map[string]struct{}{}
	s.assets.Reset()
	s.selection.Reset()
	s.applyLayoutLocked(lay)

	if doc != nil {
		s.handle = &docHandle{doc: doc}
		s.lazy = renderer.NewLazyRenderer(doc, renderer.LazyOptions{
			Scale:         s.opts.RenderScale,
			PreloadMargin: s.opts.PreloadMargin,
			Concurrency:   s.opts.RenderConcurrency,
			OnSettled: func(pageIndex int, state renderer.PageState) {
				s.events.Publish(EventPageRendered, pageIndex+1, map[string]any{"state": state})
			},
		}, s.log)
	}

	s.log.Info().
		Str("file", src.FileName).
		Str("kind", string(src.Kind)).
		Int("pages", len(s.pages)).
		Msg("document loaded")
	s.events.Publish(EventGeometry, 0, s.geometryPayloadLocked())
	return nil
}

// teardownLocked releases everything tied to the current load.
func (s *Session) teardownLocked() {
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	lazy, h := s.lazy, s.handle
	s.lazy, s.handle = nil, nil
	if lazy != nil {
		lazy.Teardown()
	}
	if h != nil {
		go h.closeWhenIdle(lazy, s.log)
	}
}

// acquireLocked pins the current document for background work.
func (s *Session) acquireLocked() *docHandle {
	if s.handle == nil {
		return nil
	}
	s.handle.users.Add(1)
	return s.handle
}

// pageLayout is the measured geometry of one document at one viewport width.
type pageLayout struct {
	scale  float64
	pages  []models.PageGeometry
	layout []geometry.Rect
}

// measure fits the first page to viewportWidth and sizes every page at that scale.
func measure(doc core.Document, viewportWidth float64, opts Options) (pageLayout, error) {
	w0, _, err := doc.PageNativeSize(0)
	if err != nil {
		return pageLayout{}, core.RenderError("failed to measure page 1", err)
	}
	scale := geometry.FitScale(viewportWidth, w0, opts.DisplayScale)
	pages, err := geometry.PageGeometries(doc, scale)
	if err != nil {
		return pageLayout{}, err
	}
	return pageLayout{scale: scale, pages: pages, layout: geometry.Layout(pages, opts.PageGap)}, nil
}

func (s *Session) applyLayoutLocked(l pageLayout) {
	s.scale, s.pages, s.layout = l.scale, l.pages, l.layout
}

func (s *Session) geometryPayloadLocked() map[string]any {
	return map[string]any{
		"scale":  s.scale,
		"pages":  append([]models.PageGeometry(nil), s.pages...),
		"layout": append([]geometry.Rect(nil), s.layout...),
	}
}

// Resize recomputes page geometry for a new viewport width. Rendered page
// images are kept; only their display size changes.
func (s *Session) Resize(viewportWidth float64) ([]models.PageGeometry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, core.InputValidationError("page layout is unavailable for this document", nil)
	}
	lay, err := measure(s.handle.doc, viewportWidth, s.opts)
	if err != nil {
		return nil, err
	}
	s.viewportWidth = viewportWidth
	s.applyLayoutLocked(lay)
	s.events.Publish(EventGeometry, 0, s.geometryPayloadLocked())
	return append([]models.PageGeometry(nil), s.pages...), nil
}

// ViewportChanged starts renders for pages near the visible window and returns their indexes.
func (s *Session) ViewportChanged(vp geometry.Viewport) ([]int, error) {
	s.mu.Lock()
	lazy := s.lazy
	layout := append([]geometry.Rect(nil), s.layout...)
	s.mu.Unlock()
	if lazy == nil {
		return nil, core.InputValidationError("page images are unavailable for this document", nil)
	}
	return lazy.ViewportChanged(layout, vp), nil
}

// PageImage returns the display surface of a page, requesting it if it was never observed.
func (s *Session) PageImage(pageIndex int) (renderer.Surface, error) {
	s.mu.Lock()
	lazy := s.lazy
	s.mu.Unlock()
	if lazy == nil {
		return renderer.Surface{}, core.InputValidationError("page images are unavailable for this document", nil)
	}
	surface, ok := lazy.Surface(pageIndex)
	if !ok {
		return renderer.Surface{}, core.NotFoundError(fmt.Sprintf("page %d does not exist", pageIndex+1), nil)
	}
	if surface.State == renderer.PageUnobserved && lazy.Observe(pageIndex) {
		surface, _ = lazy.Surface(pageIndex)
	}
	return surface, nil
}

func (s *Session) notify(level NoticeLevel, msg string) Notice {
	n := s.notices.add(level, msg)
	s.events.Publish(EventNotice, 0, n)
	return n
}

func (s *Session) Notices() []Notice { return s.notices.list() }

// DismissNotice removes one notice, or all of them when id is empty.
func (s *Session) DismissNotice(id string) bool { return s.notices.dismiss(id) }

// Wait blocks until background regenerations have finished.
func (s *Session) Wait() { s.bg.Wait() }

// Close cancels all work and ends event subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.teardownLocked()
	s.mu.Unlock()

	s.cancel()
	s.events.Close()
}
