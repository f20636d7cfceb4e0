package extraction_engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/assets"
	"github.com/markdave123-py/Alttexta/internal/core/geometry"
	"github.com/markdave123-py/Alttexta/internal/core/renderer"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// RunRequest is one document handed to the pipeline.
type RunRequest struct {
	Doc          core.Document
	UserID       string
	DisplayScale float64
}

// Pipeline drives extraction for a paginated document, strictly one page at a time.
type Pipeline struct {
	meta  core.MetadataService
	usage core.UsageAccountant
	cfg   PipelineConfig
	log   zerolog.Logger
}

func NewPipeline(meta core.MetadataService, usage core.UsageAccountant, cfg PipelineConfig, log zerolog.Logger) *Pipeline {
	if cfg.ExtractionScale <= 0 {
		cfg.ExtractionScale = DefaultPipelineConfig().ExtractionScale
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = FailAbort
	}
	return &Pipeline{
		meta:  meta,
		usage: usage,
		cfg:   cfg,
		log:   log.With().Str("component", "extraction_pipeline").Logger(),
	}
}

// Run publishes page geometry, then rasterizes each page, asks the metadata
// service for its assets and appends them before moving to the next page.
// Budget is the caller's concern and is not re-checked here.
func (p *Pipeline) Run(ctx context.Context, req RunRequest, sink Sink) (Result, error) {
	var res Result

	total := req.Doc.PageCount()
	if total == 0 {
		return res, core.InputValidationError("document has no pages", nil)
	}

	pages, err := geometry.PageGeometries(req.Doc, req.DisplayScale)
	if err != nil {
		return res, err
	}
	sink.PublishGeometry(pages)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page := i + 1
		sink.PageStarted(page, total)

		found, err := p.extractPage(ctx, req.Doc, i)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			if p.cfg.FailurePolicy == FailSkip {
				p.log.Warn().Err(err).Int("page", page).Msg("skipping page after metadata failure")
				res.FailedPages = append(res.FailedPages, page)
				sink.ReportProgress(page, total)
				continue
			}
			return res, fmt.Errorf("extraction stopped at page %d: %w", page, err)
		}

		sink.AppendAssets(page, found)
		res.TotalAssets += len(found)
		sink.ReportProgress(page, total)
		p.log.Debug().Int("page", page).Int("total", total).Int("assets", len(found)).Msg("page extracted")
	}

	if p.usage != nil {
		usage, err := p.usage.RecordUsage(ctx, req.UserID, core.ToolAssetExtraction)
		if err != nil {
			p.log.Warn().Err(err).Str("user_id", req.UserID).Msg("failed to record usage")
		}
		res.Usage = usage
	}
	return res, nil
}

func (p *Pipeline) extractPage(ctx context.Context, doc core.Document, pageIndex int) ([]models.Asset, error) {
	img, err := doc.RenderPage(ctx, pageIndex, p.cfg.ExtractionScale)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.EncodeJPEG(img, p.cfg.JPEGQuality)
	if err != nil {
		return nil, core.RenderError("failed to encode page", err)
	}
	descs, err := p.meta.DescribePage(ctx, payload)
	if err != nil {
		return nil, err
	}
	found := make([]models.Asset, 0, len(descs))
	for _, d := range descs {
		found = append(found, assets.FromDescriptor(d, pageIndex+1))
	}
	return found, nil
}
