package extraction_engine

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/Alttexta/internal/models"
)

// FailurePolicy decides what a page-level metadata failure does to the run.
type FailurePolicy string

const (
	// FailAbort stops the run at the first failing page; earlier pages stay appended.
	FailAbort FailurePolicy = "abort"
	// FailSkip logs the page as failed and moves on.
	FailSkip FailurePolicy = "skip"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailAbort:
		return FailAbort, nil
	case FailSkip:
		return FailSkip, nil
	}
	return "", fmt.Errorf("unknown page failure policy %q", s)
}

// PipelineConfig tunes the page-by-page extraction.
//
// ExtractionScale: raster scale for metadata calls, independent of display scale (1.5).
// JPEGQuality:     compression of the page payload (0 selects the default).
// FailurePolicy:   abort or skip on a failing page.
type PipelineConfig struct {
	ExtractionScale float64
	JPEGQuality     int
	FailurePolicy   FailurePolicy
}

// DefaultPipelineConfig mirrors the reference behavior: 1.5x rasters, abort on failure.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{ExtractionScale: 1.5, FailurePolicy: FailAbort}
}

// Sink receives the incremental output of a run. Calls arrive from the
// goroutine executing Run, in page order.
type Sink interface {
	// PublishGeometry is called once, before any page is processed.
	PublishGeometry(pages []models.PageGeometry)
	PageStarted(page, total int)
	// AppendAssets may receive an empty slice for pages without assets.
	AppendAssets(page int, found []models.Asset)
	ReportProgress(page, total int)
}

// Result summarizes a finished run.
type Result struct {
	TotalAssets int               `json:"totalAssets"`
	Usage       models.TokenUsage `json:"usage"`
	FailedPages []int             `json:"failedPages,omitempty"`
}
