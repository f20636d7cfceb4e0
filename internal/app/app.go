package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/api/handlers"
	"github.com/markdave123-py/Alttexta/internal/config"
	"github.com/markdave123-py/Alttexta/internal/core"
	db "github.com/markdave123-py/Alttexta/internal/core/database"
	"github.com/markdave123-py/Alttexta/internal/core/extraction_engine"
	"github.com/markdave123-py/Alttexta/internal/core/llm"
	objectclient "github.com/markdave123-py/Alttexta/internal/core/object-client"
	"github.com/markdave123-py/Alttexta/internal/core/renderer"
	"github.com/markdave123-py/Alttexta/internal/core/session"
	"github.com/markdave123-py/Alttexta/internal/services"
)

// Infra are the external clients an App runs on. Objects may be nil.
type Infra struct {
	DB      core.DbClient
	Objects core.ObjectClient
	Meta    core.MetadataService
	Text    core.TextExtractor
	Backend core.DocumentBackend
}

type App struct {
	Config *config.Config
	Infra  Infra

	Users     *services.UserService
	Usage     *services.UsageService
	Documents *services.DocumentService
	Sessions  *services.SessionService
	Queue     *extraction_engine.Queue
	Server    *Server

	log     zerolog.Logger
	closers []func() error
}

// NewApp connects to the configured store, object storage and Gemini.
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var infra Infra
	var closers []func() error

	if cfg.DatabaseURL != "" {
		dbClient, err := db.NewDatabaseClient(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		infra.DB = dbClient
		log.Info().Msg("database initialized and ready")
	} else {
		infra.DB = db.NewMemoryClient()
		log.Warn().Msg("DATABASE_URL not set; users and usage are kept in memory")
	}
	closers = append(closers, infra.DB.Close)

	if cfg.S3Enabled() {
		objClient, err := objectclient.NewS3Client(appCtx, cfg, log)
		if err != nil {
			return nil, err
		}
		infra.Objects = objClient
		log.Info().Str("bucket", cfg.BucketName).Msg("object client initialized and ready")
	}

	meta, err := llm.NewGeminiMetadata(appCtx, cfg.AIAPIKey, cfg.GenModel, log)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the metadata service: %w", err)
	}
	infra.Meta = meta
	closers = append(closers, meta.Close)

	useReadability := false
	infra.Text = extraction_engine.NewDocconvExtractor(useReadability, log)
	infra.Backend = renderer.NewFitzBackend()

	a, err := Assemble(cfg, infra, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(closers, a.closers...)

	if err := a.Users.EnsureAdmin(appCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, err
	}
	return a, nil
}

// SessionOptions maps configuration onto viewer session tuning.
func SessionOptions(cfg *config.Config) session.Options {
	opts := session.DefaultOptions()
	opts.DisplayScale = cfg.DisplayScale
	opts.RenderScale = cfg.RenderScale
	opts.RegionScale = cfg.RegionScale
	opts.PreloadMargin = cfg.PreloadMarginPx
	opts.PageGap = cfg.PageGapPx
	opts.RenderConcurrency = cfg.RenderConcurrency
	opts.ClampSelection = cfg.ClampSelection
	opts.MaxUploadBytes = cfg.MaxUploadBytes()
	return opts
}

// PipelineConfig maps configuration onto the extraction pipeline.
func PipelineConfig(cfg *config.Config) (extraction_engine.PipelineConfig, error) {
	policy, err := extraction_engine.ParseFailurePolicy(cfg.PageFailurePolicy)
	if err != nil {
		return extraction_engine.PipelineConfig{}, err
	}
	pc := extraction_engine.DefaultPipelineConfig()
	pc.ExtractionScale = cfg.ExtractionScale
	pc.FailurePolicy = policy
	return pc, nil
}

// Assemble builds services, handlers and the server on top of infra.
func Assemble(cfg *config.Config, infra Infra, log zerolog.Logger) (*App, error) {
	pc, err := PipelineConfig(cfg)
	if err != nil {
		return nil, err
	}

	users := services.NewUserService(infra.DB, cfg.JWTSecret, cfg.TokenTTL, cfg.DefaultTokenCap, log)
	usage := services.NewUsageService(infra.DB, log)
	docs := services.NewDocumentService(infra.DB, infra.Objects, cfg.BucketName, cfg.MaxUploadBytes(), log)

	deps := session.Deps{
		Backend:  infra.Backend,
		Meta:     infra.Meta,
		Usage:    usage,
		Pipeline: extraction_engine.NewPipeline(infra.Meta, usage, pc, log),
		Whole:    extraction_engine.NewWholeDocument(infra.Meta, infra.Text, usage, log),
	}
	queue := extraction_engine.NewQueue(64, log)
	sessions := services.NewSessionService(deps, SessionOptions(cfg), queue, docs, infra.Objects, cfg.BucketName, log)

	h := Handlers{
		Auth:      handlers.NewAuthHandler(users, usage),
		Admin:     handlers.NewAdminHandler(users, usage),
		Sessions:  handlers.NewSessionHandler(sessions, docs, cfg.MaxUploadBytes()),
		Assets:    handlers.NewAssetHandler(sessions),
		Selection: handlers.NewSelectionHandler(sessions),
		Events:    handlers.NewEventsHandler(sessions),
	}

	return &App{
		Config:    cfg,
		Infra:     infra,
		Users:     users,
		Usage:     usage,
		Documents: docs,
		Sessions:  sessions,
		Queue:     queue,
		Server:    NewServer(cfg, h, log),
		log:       log,
	}, nil
}

// Start runs the extraction workers; they stop when ctx ends.
func (a *App) Start(ctx context.Context) {
	a.Queue.Start(ctx, a.Config.ExtractionWorkers)
}

func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close failed")
		}
	}
}
