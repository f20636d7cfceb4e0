package extraction_engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/assets"
	"github.com/markdave123-py/Alttexta/internal/models"
)

// maxDocumentText bounds the text sent in one whole-document request.
const maxDocumentText = 200_000

// WholeDocument extracts assets from sources that cannot be paginated
// (Word files, web pages) in a single metadata call.
type WholeDocument struct {
	meta  core.MetadataService
	text  core.TextExtractor
	usage core.UsageAccountant
	log   zerolog.Logger
}

func NewWholeDocument(meta core.MetadataService, text core.TextExtractor, usage core.UsageAccountant, log zerolog.Logger) *WholeDocument {
	return &WholeDocument{
		meta:  meta,
		text:  text,
		usage: usage,
		log:   log.With().Str("component", "whole_document").Logger(),
	}
}

// Run reports a single step of progress. Assets carry the page number the
// service reported, 0 when unknown.
func (w *WholeDocument) Run(ctx context.Context, src models.SourceDocument, userID string, sink Sink) (Result, error) {
	var res Result
	sink.PublishGeometry(nil)
	sink.PageStarted(1, 1)

	text, err := w.text.ExtractText(ctx, src.Data, src.ContentType)
	if err != nil {
		return res, err
	}
	if r := []rune(text); len(r) > maxDocumentText {
		text = string(r[:maxDocumentText])
	}

	descs, err := w.meta.DescribeDocument(ctx, models.DocumentPayload{
		FileName: src.FileName,
		MIMEType: src.ContentType,
		URL:      src.SourceURL,
		Text:     text,
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("document extraction failed: %w", err)
	}

	found := make([]models.Asset, 0, len(descs))
	for _, d := range descs {
		page := d.PageNumber
		if page < 0 {
			page = 0
		}
		found = append(found, assets.FromDescriptor(d, page))
	}
	sink.AppendAssets(0, found)
	sink.ReportProgress(1, 1)
	res.TotalAssets = len(found)

	if w.usage != nil {
		usage, err := w.usage.RecordUsage(ctx, userID, core.ToolDocumentExtraction)
		if err != nil {
			w.log.Warn().Err(err).Str("user_id", userID).Msg("failed to record usage")
		}
		res.Usage = usage
	}
	return res, nil
}
