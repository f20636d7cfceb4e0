// Package renderer rasterizes document pages, either eagerly for extraction
// or lazily as page containers approach the viewport.
package renderer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// PageState is the lifecycle of one page's display surface.
type PageState string

const (
	PageUnobserved PageState = "unobserved"
	PagePending    PageState = "pending"
	PageRendered   PageState = "rendered"
	PageFailed     PageState = "failed"
	PageCancelled  PageState = "cancelled"
)

// Surface is the display raster of one page.
type Surface struct {
	PageIndex int                 `json:"pageIndex"`
	State     PageState           `json:"state"`
	Image     models.ImagePayload `json:"-"`
	Width     int                 `json:"width,omitempty"`
	Height    int                 `json:"height,omitempty"`
	Err       string              `json:"error,omitempty"`
}

// LazyOptions tunes a LazyRenderer.
//
// Scale:         raster scale of display surfaces (independent of page geometry).
// PreloadMargin: px beyond the visible window that still counts as "near".
// Concurrency:   max rasterizations in flight; 0 means unbounded.
// OnSettled:     called after a page leaves the pending state (rendered or failed).
type LazyOptions struct {
	Scale         float64
	PreloadMargin float64
	Concurrency   int
	OnSettled     func(pageIndex int, state PageState)
}

// LazyRenderer renders each page of one document load at most once, when it
// is first observed near the viewport. After Teardown no result is stored.
type LazyRenderer struct {
	doc  core.Document
	opts LazyOptions
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu    sync.Mutex
	slots []Surface
	torn  bool
}

func NewLazyRenderer(doc core.Document, opts LazyOptions, log zerolog.Logger) *LazyRenderer {
	ctx, cancel := context.WithCancel(context.Background())
	r := &LazyRenderer{
		doc:    doc,
		opts:   opts,
		log:    log.With().Str("component", "lazy_renderer").Logger(),
		ctx:    ctx,
		cancel: cancel,
		slots:  make([]Surface, doc.PageCount()),
	}
	if opts.Concurrency > 0 {
		r.group.SetLimit(opts.Concurrency)
	}
	for i := range r.slots {
		r.slots[i] = Surface{PageIndex: i, State: PageUnobserved}
	}
	return r
}

// Observe fires the one-shot Unobserved -> Pending transition and starts the
// rasterization. It returns false when the page was already observed, is out
// of range, or the renderer was torn down. When Concurrency renders are in
// flight, Observe blocks until one finishes.
func (r *LazyRenderer) Observe(pageIndex int) bool {
	r.mu.Lock()
	if r.torn || pageIndex < 0 || pageIndex >= len(r.slots) || r.slots[pageIndex].State != PageUnobserved {
		r.mu.Unlock()
		return false
	}
	r.slots[pageIndex].State = PagePending
	r.mu.Unlock()

	r.group.Go(func() error {
		r.render(pageIndex)
		return nil
	})
	return true
}

// ViewportChanged observes every page whose container lies within the
// preload margin of vp and returns the indexes that were newly observed.
func (r *LazyRenderer) ViewportChanged(layout []geometry.Rect, vp geometry.Viewport) []int {
	var observed []int
	for i, rect := range layout {
		if !geometry.NearViewport(rect, vp, r.opts.PreloadMargin) {
			continue
		}
		if r.Observe(i) {
			observed = append(observed, i)
		}
	}
	return observed
}

func (r *LazyRenderer) render(pageIndex int) {
	img, err := r.doc.RenderPage(r.ctx, pageIndex, r.opts.Scale)
	var payload models.ImagePayload
	if err == nil {
		payload, err = EncodePNG(img)
	}

	r.mu.Lock()
	if r.torn {
		r.mu.Unlock()
		r.log.Debug().Int("page", pageIndex+1).Msg("discarding render that resolved after teardown")
		return
	}
	slot := &r.slots[pageIndex]
	if err != nil {
		slot.State = PageFailed
		slot.Err = core.UserMessage(err)
	} else {
		b := img.Bounds()
		slot.State = PageRendered
		slot.Image = payload
		slot.Width, slot.Height = b.Dx(), b.Dy()
	}
	state := slot.State
	r.mu.Unlock()

	if err != nil {
		r.log.Warn().Err(err).Int("page", pageIndex+1).Msg("page render failed")
	}
	if r.opts.OnSettled != nil {
		r.opts.OnSettled(pageIndex, state)
	}
}

// Surface returns a copy of the page's current surface.
func (r *LazyRenderer) Surface(pageIndex int) (Surface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pageIndex < 0 || pageIndex >= len(r.slots) {
		return Surface{}, false
	}
	return r.slots[pageIndex], true
}

// States lists the state of every page in order.
func (r *LazyRenderer) States() []PageState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PageState, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.State
	}
	return out
}

// Teardown cancels in-flight renders; their results are dropped when they resolve.
func (r *LazyRenderer) Teardown() {
	r.mu.Lock()
	if r.torn {
		r.mu.Unlock()
		return
	}
	r.torn = true
	for i := range r.slots {
		if r.slots[i].State == PagePending {
			r.slots[i].State = PageCancelled
		}
	}
	r.mu.Unlock()
	r.cancel()
}

// Wait blocks until every started render has resolved.
func (r *LazyRenderer) Wait() {
	_ = r.group.Wait()
}
