package session

import (
	"context"
	"fmt"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/assets"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/core/selection"
	"github.com/markdave123-py/Alttexta/internal/models"
)

func (s *Session) publishSelection() selection.Snapshot {
	snap := s.selection.Snapshot()
	s.events.Publish(EventSelection, 0, snap)
	return snap
}

func (s *Session) requirePages() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return core.InputValidationError("region selection needs a paginated document", nil)
	}
	return nil
}

// ToggleSelection switches selection mode on or off.
func (s *Session) ToggleSelection() (selection.Snapshot, error) {
	if err := s.requirePages(); err != nil {
		return selection.Snapshot{}, err
	}
	if _, err := s.selection.Toggle(); err != nil {
		return s.selection.Snapshot(), err
	}
	return s.publishSelection(), nil
}

// PointerDown starts a drag on a page. pageRect is the page container in the
// pointer's coordinate space; nil selects the session's own page layout.
func (s *Session) PointerDown(pageIndex int, pointer geometry.Point, pageRect *geometry.Rect) (selection.Snapshot, error) {
	s.mu.Lock()
	if s.handle == nil {
		s.mu.Unlock()
		return selection.Snapshot{}, core.InputValidationError("region selection needs a paginated document", nil)
	}
	if pageIndex < 0 || pageIndex >= len(s.layout) {
		s.mu.Unlock()
		return selection.Snapshot{}, core.InputValidationError(fmt.Sprintf("page %d does not exist", pageIndex+1), nil)
	}
	rect := s.layout[pageIndex]
	s.mu.Unlock()
	if pageRect != nil {
		rect = *pageRect
	}

	if err := s.selection.PointerDown(pageIndex, pointer, rect); err != nil {
		return s.selection.Snapshot(), err
	}
	return s.publishSelection(), nil
}

func (s *Session) PointerMove(pointer geometry.Point) (selection.Snapshot, error) {
	if err := s.selection.PointerMove(pointer); err != nil {
		return s.selection.Snapshot(), err
	}
	return s.publishSelection(), nil
}

func (s *Session) PointerUp(pointer geometry.Point) (selection.Snapshot, error) {
	if err := s.selection.PointerUp(pointer); err != nil {
		return s.selection.Snapshot(), err
	}
	return s.publishSelection(), nil
}

// CancelSelection dismisses the selection and leaves selection mode.
func (s *Session) CancelSelection() (selection.Snapshot, error) {
	if err := s.selection.Cancel(); err != nil {
		return s.selection.Snapshot(), err
	}
	return s.publishSelection(), nil
}

// ConfirmSelection generates one asset for the proposed rectangle. Success
// or failure, selection mode is left afterwards.
func (s *Session) ConfirmSelection(ctx context.Context) (models.Asset, error) {
	s.mu.Lock()
	gen := s.gen
	h := s.acquireLocked()
	s.mu.Unlock()
	if h == nil {
		return models.Asset{}, core.InputValidationError("region selection needs a paginated document", nil)
	}
	defer h.users.Done()

	if s.selection.State() != selection.StateProposed {
		_, err := s.selection.BeginGenerate()
		return models.Asset{}, err
	}
	if s.deps.Usage != nil {
		if err := s.deps.Usage.CheckBudget(ctx, s.userID); err != nil {
			_ = s.selection.Cancel()
			s.publishSelection()
			s.notify(NoticeError, core.UserMessage(err))
			return models.Asset{}, err
		}
	}

	prop, err := s.selection.BeginGenerate()
	if err != nil {
		return models.Asset{}, err
	}
	s.publishSelection()
	defer func() {
		s.selection.Finish(prop.Ticket)
		s.publishSelection()
	}()

	desc, err := s.describeRegion(ctx, h.doc, prop.PageIndex, &prop.Box)
	if err != nil {
		s.log.Warn().Err(err).Int("page", prop.PageIndex+1).Msg("region generation failed")
		s.notify(NoticeError, "Region generation failed: "+core.UserMessage(err))
		return models.Asset{}, err
	}

	a := assets.FromDescriptor(*desc, prop.PageIndex+1)
	box := prop.Box
	a.BoundingBox = &box

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return models.Asset{}, core.ConflictError("document changed during region generation", nil)
	}
	s.assets.InsertAll([]models.Asset{a})
	s.mu.Unlock()

	s.publishAssets()
	s.recordUsage(ctx, core.ToolRegionSelection)
	s.notify(NoticeSuccess, fmt.Sprintf("Added %s from page %d", a.AssetID, a.PageNumber))
	return a, nil
}
