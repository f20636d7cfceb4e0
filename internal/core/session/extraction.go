package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/extraction_engine"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// Run is an extraction prepared for one document load. It satisfies
// extraction_engine.Job so it can be queued.
type Run struct {
	s      *Session
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

var _ extraction_engine.Job = (*Run)(nil)

func (r *Run) ID() string { return fmt.Sprintf("%s#%d", r.s.id, r.gen) }

// PrepareExtraction checks the token budget and moves the session to
// extracting. The metadata service is not called when the budget is spent.
func (s *Session) PrepareExtraction(ctx context.Context) (*Run, error) {
	return s.prepare(ctx, false)
}

// prepare checks preconditions and the budget before touching any state.
// A retry clears the previous results only once the new run is accepted.
func (s *Session) prepare(ctx context.Context, retry bool) (*Run, error) {
	s.mu.Lock()
	if err := s.checkStartLocked(retry); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gen := s.gen
	s.mu.Unlock()

	if s.deps.Usage != nil {
		if err := s.deps.Usage.CheckBudget(ctx, s.userID); err != nil {
			s.notify(NoticeError, core.UserMessage(err))
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		return nil, core.ConflictError("document changed before extraction started", nil)
	}
	if err := s.checkStartLocked(retry); err != nil {
		return nil, err
	}
	if retry {
		s.gen++
		s.assets.Reset()
		s.selection.Reset()
		s.regenerating = map[string]struct{}{}
		s.events.Publish(EventAssets, 0, []models.Asset{})
	}
	runCtx, cancel := context.WithCancel(s.ctx)
	s.runCancel = cancel
	s.status = StatusExtracting
	s.progress = Progress{Total: len(s.pages)}
	s.lastErr = ""
	s.result = nil
	s.events.Publish(EventStart, 0, map[string]any{"total_pages": len(s.pages), "mode": s.mode})
	return &Run{s: s, gen: s.gen, ctx: runCtx, cancel: cancel}, nil
}

func (s *Session) checkStartLocked(retry bool) error {
	switch {
	case s.source == nil:
		return core.InputValidationError("no document loaded", nil)
	case s.status == StatusExtracting:
		return core.ConflictError("extraction already running", nil)
	case !retry:
		return nil
	case s.status != StatusFailed && s.status != StatusCancelled:
		return core.ConflictError(fmt.Sprintf("cannot retry while %s", s.status), nil)
	case s.source.Kind.Paginated() && s.handle == nil:
		return core.InputValidationError("document could not be opened; load it again", nil)
	}
	return nil
}

// Extract prepares and runs an extraction on the calling goroutine.
func (s *Session) Extract(ctx context.Context) (extraction_engine.Result, error) {
	run, err := s.PrepareExtraction(ctx)
	if err != nil {
		return extraction_engine.Result{}, err
	}
	return run.execute(ctx)
}

// Run executes the extraction. Cancelling ctx or the session's extraction stops it.
func (r *Run) Run(ctx context.Context) error {
	_, err := r.execute(ctx)
	return err
}

// Abandon settles a run that will never execute, e.g. when it could not be queued.
func (r *Run) Abandon() {
	r.cancel()
	r.s.finishRun(r.gen, extraction_engine.Result{}, context.Canceled)
}

func (r *Run) execute(ctx context.Context) (extraction_engine.Result, error) {
	stop := context.AfterFunc(ctx, r.cancel)
	defer stop()
	defer r.cancel()

	s := r.s
	s.mu.Lock()
	if r.gen != s.gen {
		s.mu.Unlock()
		return extraction_engine.Result{}, context.Canceled
	}
	h := s.acquireLocked()
	src, mode, scale := s.source, s.mode, s.scale
	s.mu.Unlock()
	if h != nil {
		defer h.users.Done()
	}

	sink := &runSink{s: s, gen: r.gen}
	var (
		res extraction_engine.Result
		err error
	)
	switch {
	case r.ctx.Err() != nil:
		err = r.ctx.Err()
	case mode == ModePaginated && h == nil:
		err = core.RenderError("document is not open", nil)
	case mode == ModePaginated:
		res, err = s.deps.Pipeline.Run(r.ctx, extraction_engine.RunRequest{
			Doc:          h.doc,
			UserID:       s.userID,
			DisplayScale: scale,
		}, sink)
	default:
		res, err = s.deps.Whole.Run(r.ctx, *src, s.userID, sink)
	}
	s.finishRun(r.gen, res, err)
	return res, err
}

func (s *Session) finishRun(gen uint64, res extraction_engine.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug().Uint64("gen", gen).Msg("discarding result of superseded extraction")
		return
	}
	s.runCancel = nil
	s.result = &res

	switch {
	case err == nil:
		s.status = StatusComplete
		s.events.Publish(EventComplete, 0, res)
		msg := fmt.Sprintf("Extraction complete: %d assets found", res.TotalAssets)
		if total := res.Usage.Total(); total > 0 {
			msg += fmt.Sprintf(" (%d tokens used)", total)
		}
		if len(res.FailedPages) > 0 {
			msg += fmt.Sprintf(", %d pages skipped", len(res.FailedPages))
		}
		s.notices.add(NoticeSuccess, msg)
		s.log.Info().Int("assets", res.TotalAssets).Int64("tokens", res.Usage.Total()).Msg("extraction complete")
	case errors.Is(err, context.Canceled):
		s.status = StatusCancelled
		s.lastErr = "extraction cancelled"
		s.events.Publish(EventError, 0, map[string]any{"message": s.lastErr, "cancelled": true})
		s.notices.add(NoticeInfo, "Extraction cancelled")
	default:
		s.status = StatusFailed
		s.lastErr = core.UserMessage(err)
		s.events.Publish(EventError, 0, map[string]any{"message": s.lastErr, "type": core.TypeOf(err)})
		s.notices.add(NoticeError, s.lastErr)
		s.log.Warn().Err(err).Msg("extraction failed")
	}
}

// CancelExtraction stops the running extraction; assets already appended stay.
func (s *Session) CancelExtraction() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusExtracting || s.runCancel == nil {
		return core.ConflictError("no extraction is running", nil)
	}
	s.runCancel()
	return nil
}

// Retry clears the results of a failed or cancelled run and prepares a new
// one. A rejected retry leaves the previous results in place.
func (s *Session) Retry(ctx context.Context) (*Run, error) {
	return s.prepare(ctx, true)
}

// runSink applies pipeline output unless a newer load or retry superseded it.
type runSink struct {
	s   *Session
	gen uint64
}

func (k *runSink) PublishGeometry([]models.PageGeometry) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.gen == s.gen {
		s.events.Publish(EventGeometry, 0, s.geometryPayloadLocked())
	}
}

func (k *runSink) PageStarted(page, total int) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.gen == s.gen {
		s.progress.Total = total
		s.events.Publish(EventPageProcessing, page, map[string]int{"page": page, "total": total})
	}
}

func (k *runSink) AppendAssets(page int, found []models.Asset) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.gen != s.gen {
		return
	}
	s.assets.InsertAll(found)
	s.events.Publish(EventAssets, page, s.assets.Snapshot())
}

func (k *runSink) ReportProgress(page, total int) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.gen != s.gen {
		return
	}
	s.progress = Progress{Page: page, Total: total}
	s.events.Publish(EventPageComplete, page, map[string]int{"page": page, "total": total})
}
