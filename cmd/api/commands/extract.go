package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/markdave123-py/Alttexta/internal/app"
	"github.com/markdave123-py/Alttexta/internal/config"
	"github.com/markdave123-py/Alttexta/internal/core"
	"github.com/markdave123-py/Alttexta/internal/core/assets"
	"github.com/markdave123-py/Alttexta/internal/core/export"
	"github.com/markdave123-py/Alttexta/internal/core/extraction_engine"
	"github.com/markdave123-py/Alttexta/internal/core/llm"
	"github.com/markdave123-py/Alttexta/internal/core/renderer"
	"github.com/markdave123-py/Alttexta/internal/models"
	"github.com/markdave123-py/Alttexta/internal/services"
)

var (
	extractOutput string
	extractQuiet  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract assets from a local document into a CSV file",
	Long: `Runs the extraction pipeline without the HTTP service. PDFs are processed
page by page; Word documents and web pages in a single request. The result
is written in the same CSV layout the service exports.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "CSV path (default <name>_alt_text.csv next to the input)")
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false, "hide the progress bar")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	log := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.AIAPIKey == "" {
		return errors.New("GEMINI_API_KEY not set")
	}

	input := args[0]
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	if int64(len(data)) > cfg.MaxUploadBytes() {
		return fmt.Errorf("%s exceeds the %d MB limit", input, cfg.MaxUploadMB)
	}
	kind, contentType, err := services.DetectKind(input, "", data)
	if err != nil {
		return errors.New(core.UserMessage(err))
	}

	meta, err := llm.NewGeminiMetadata(ctx, cfg.AIAPIKey, cfg.GenModel, log)
	if err != nil {
		return fmt.Errorf("couldn't initialize the metadata service: %w", err)
	}
	defer meta.Close()

	sink := newBarSink(!extractQuiet)
	src := models.SourceDocument{
		Document: models.Document{
			FileName:    filepath.Base(input),
			ContentType: contentType,
			Kind:        kind,
			SizeBytes:   int64(len(data)),
		},
		Data: data,
	}

	res, err := runPipeline(ctx, cfg, meta, src, sink, log)
	sink.finish()
	if err != nil {
		return err
	}

	out := extractOutput
	if out == "" {
		out = filepath.Join(filepath.Dir(input), services.ExportFileName(input))
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(f, src.FileName, sink.assets.Snapshot()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Info().
		Int("assets", res.TotalAssets).
		Ints("failed_pages", res.FailedPages).
		Str("output", out).
		Msg("extraction finished")
	return nil
}

// runPipeline has no usage accountant: local runs are not metered.
func runPipeline(ctx context.Context, cfg *config.Config, meta core.MetadataService, src models.SourceDocument, sink extraction_engine.Sink, log zerolog.Logger) (extraction_engine.Result, error) {
	if !src.Kind.Paginated() {
		whole := extraction_engine.NewWholeDocument(meta, extraction_engine.NewDocconvExtractor(false, log), nil, log)
		return whole.Run(ctx, src, "", sink)
	}

	pc, err := app.PipelineConfig(cfg)
	if err != nil {
		return extraction_engine.Result{}, err
	}
	doc, err := renderer.NewFitzBackend().Open(src.Data)
	if err != nil {
		return extraction_engine.Result{}, err
	}
	defer doc.Close()

	pipeline := extraction_engine.NewPipeline(meta, nil, pc, log)
	return pipeline.Run(ctx, extraction_engine.RunRequest{Doc: doc, DisplayScale: cfg.DisplayScale}, sink)
}

// barSink collects assets in reading order and drives the progress bar.
type barSink struct {
	assets *assets.Collection
	bar    *progressBar
}

func newBarSink(show bool) *barSink {
	s := &barSink{assets: assets.NewCollection()}
	if show {
		s.bar = newProgressBar("extracting")
	}
	return s
}

func (s *barSink) PublishGeometry(pages []models.PageGeometry) {
	if s.bar != nil && len(pages) > 0 {
		s.bar.setTotal(len(pages))
	}
}

func (s *barSink) PageStarted(page, total int) {
	if s.bar != nil {
		s.bar.describe(fmt.Sprintf("page %d/%d", page, total))
	}
}

func (s *barSink) AppendAssets(_ int, found []models.Asset) {
	s.assets.InsertAll(found)
}

func (s *barSink) ReportProgress(page, total int) {
	if s.bar != nil {
		s.bar.set(page)
	}
}

func (s *barSink) finish() {
	if s.bar != nil {
		s.bar.finish()
	}
}
