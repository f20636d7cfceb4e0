package session

import (
	"slices"

	"github.com/markdave123-py/Alttexta/internal/core/extraction_engine"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/core/renderer"
	"github.com/markdave123-py/Alttexta/internal/core/selection"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// View is a consistent snapshot of everything the viewer shows.
type View struct {
	ID              string                    `json:"id"`
	Status          Status                    `json:"status"`
	Mode            Mode                      `json:"mode,omitempty"`
	Document        *models.Document          `json:"document,omitempty"`
	Progress        Progress                  `json:"progress"`
	Error           string                    `json:"error,omitempty"`
	Result          *extraction_engine.Result `json:"result,omitempty"`
	DisplayScale    float64                   `json:"display_scale,omitempty"`
	Pages           []models.PageGeometry     `json:"pages"`
	Layout          []geometry.Rect           `json:"layout"`
	PageStates      []renderer.PageState      `json:"page_states"`
	Assets          []models.Asset            `json:"assets"`
	SelectedAssetID string                    `json:"selected_asset_id,omitempty"`
	Selection       selection.Snapshot        `json:"selection"`
	Regenerating    []string                  `json:"regenerating"`
	Notices         []Notice                  `json:"notices"`
}

func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		ID:           s.id,
		Status:       s.status,
		Mode:         s.mode,
		Progress:     s.progress,
		Error:        s.lastErr,
		DisplayScale: s.scale,
		Pages:        append([]models.PageGeometry{}, s.pages...),
		Layout:       append([]geometry.Rect{}, s.layout...),
		Regenerating: make([]string, 0, len(s.regenerating)),
		Assets:       s.assets.Snapshot(),
	}
	if s.source != nil {
		d := s.source.Document
		v.Document = &d
	}
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	for id := range s.regenerating {
		v.Regenerating = append(v.Regenerating, id)
	}
	lazy := s.lazy
	s.mu.Unlock()

	slices.Sort(v.Regenerating)
	v.PageStates = []renderer.PageState{}
	if lazy != nil {
		v.PageStates = lazy.States()
	}
	v.SelectedAssetID = s.assets.Selected()
	v.Selection = s.selection.Snapshot()
	v.Notices = s.notices.list()
	return v
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Source returns the loaded document, if any.
func (s *Session) Source() (models.SourceDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return models.SourceDocument{}, false
	}
	return *s.source, true
}
