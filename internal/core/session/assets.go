package session

import (
	"context"
	"fmt"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/assets"
	"github.com/markdave123-py/Alttexta/internal/core/export"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/core/renderer"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// Asset edits address assets by id. An id that no longer exists is a no-op.

func (s *Session) publishAssets() {
	s.events.Publish(EventAssets, 0, s.assets.Snapshot())
}

func (s *Session) UpdateAsset(id string, field assets.Field, value any) error {
	if err := s.assets.UpdateField(id, field, value); err != nil {
		return err
	}
	s.publishAssets()
	return nil
}

func (s *Session) AddKeyword(id, text string) {
	s.assets.AddKeyword(id, text)
	s.publishAssets()
}

func (s *Session) RemoveKeyword(id string, index int) {
	s.assets.RemoveKeyword(id, index)
	s.publishAssets()
}

func (s *Session) DeleteAsset(id string) bool {
	ok := s.assets.Delete(id)
	if ok {
		s.publishAssets()
	}
	return ok
}

func (s *Session) Asset(id string) (models.Asset, bool) {
	return s.assets.Get(id)
}

// ScrollTarget is where the viewer scrolls to bring a selected asset into view.
type ScrollTarget struct {
	AssetID    string  `json:"asset_id"`
	PageNumber int     `json:"page_number"`
	ScrollTop  float64 `json:"scroll_top"`
}

// SelectAsset highlights an asset and returns its scroll target, or nil when the id is unknown.
func (s *Session) SelectAsset(id string) *ScrollTarget {
	a, ok := s.assets.Select(id)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &ScrollTarget{AssetID: id, PageNumber: a.PageNumber}
	if a.PageNumber > 0 {
		t.ScrollTop = geometry.ScrollOffset(s.layout, a.PageNumber-1, a.BoundingBox)
	}
	return t
}

// describeRegion renders one page at region scale, crops it to box when
// given, and asks for a single descriptor.
func (s *Session) describeRegion(ctx context.Context, doc core.Document, pageIndex int, box *models.BoundingBox) (*models.AssetDescriptor, error) {
	img, err := doc.RenderPage(ctx, pageIndex, s.opts.RegionScale)
	if err != nil {
		return nil, err
	}
	if box != nil {
		b := img.Bounds()
		img = renderer.Crop(img, geometry.PercentToPixelCrop(*box, b.Dx(), b.Dy()))
	}
	payload, err := renderer.EncodeJPEG(img, s.opts.JPEGQuality)
	if err != nil {
		return nil, core.RenderError("failed to encode region", err)
	}
	return s.deps.Meta.DescribeRegion(ctx, payload)
}

func (s *Session) recordUsage(ctx context.Context, tool string) {
	if s.deps.Usage == nil {
		return
	}
	if _, err := s.deps.Usage.RecordUsage(ctx, s.userID, tool); err != nil {
		s.log.Warn().Err(err).Str("tool", tool).Msg("failed to record usage")
	}
}

// Regenerate replaces one asset's alt text in the background. It returns
// false when the asset does not exist. Other edits proceed meanwhile; if the
// asset is deleted before the call returns, the new text is dropped.
func (s *Session) Regenerate(ctx context.Context, id string) (bool, error) {
	a, ok := s.assets.Get(id)
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	if s.handle == nil {
		s.mu.Unlock()
		return false, core.InputValidationError("alt text regeneration needs a paginated document", nil)
	}
	if a.PageNumber < 1 || a.PageNumber > len(s.pages) {
		s.mu.Unlock()
		return false, core.InputValidationError(fmt.Sprintf("asset page %d is out of range", a.PageNumber), nil)
	}
	if _, busy := s.regenerating[id]; busy {
		s.mu.Unlock()
		return false, core.ConflictError("alt text is already being regenerated", nil)
	}
	s.regenerating[id] = struct{}{}
	gen := s.gen
	h := s.acquireLocked()
	s.mu.Unlock()

	release := func() {
		h.users.Done()
		s.mu.Lock()
		if gen == s.gen {
			delete(s.regenerating, id)
		}
		s.mu.Unlock()
	}

	if s.deps.Usage != nil {
		if err := s.deps.Usage.CheckBudget(ctx, s.userID); err != nil {
			release()
			s.notify(NoticeError, core.UserMessage(err))
			return false, err
		}
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer release()

		desc, err := s.describeRegion(s.ctx, h.doc, a.PageNumber-1, a.BoundingBox)
		if err != nil {
			s.log.Warn().Err(err).Str("asset_id", id).Msg("regenerate failed")
			s.notify(NoticeError, fmt.Sprintf("Could not regenerate alt text for %s: %s", a.AssetID, core.UserMessage(err)))
			return
		}

		s.mu.Lock()
		applied := gen == s.gen && s.assets.ReplaceAltText(id, desc.AltText)
		s.mu.Unlock()
		if !applied {
			s.log.Debug().Str("asset_id", id).Msg("asset gone before regeneration finished")
			return
		}
		s.publishAssets()
		s.recordUsage(s.ctx, core.ToolRegenerateAltText)
		s.notify(NoticeSuccess, fmt.Sprintf("Alt text regenerated for %s", a.AssetID))
	}()
	return true, nil
}

// ExportCSV serializes the collection in display order.
func (s *Session) ExportCSV() (string, []byte, error) {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()
	if src == nil {
		return "", nil, core.InputValidationError("no document loaded", nil)
	}
	name := src.FileName
	if name == "" {
		name = src.SourceURL
	}
	return name, export.CSV(name, s.assets.Snapshot()), nil
}
