package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Alttexta/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Alttexta/internal/api/middlewares"
	"github.com/markdave123-py/Alttexta/internal/config"
	"github.com/markdave123-py/Alttexta/internal/observability"
)

const requestTimeout = 2 * time.Minute

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Admin     *handlers.AdminHandler
	Sessions  *handlers.SessionHandler
	Assets    *handlers.AssetHandler
	Selection *handlers.SelectionHandler
	Events    *handlers.EventsHandler
}

// NewRouter wires all routes.
func NewRouter(cfg *config.Config, h Handlers, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(log))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Archive-Key"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Group(func(public chi.Router) {
			public.Use(middleware.Timeout(requestTimeout))
			public.Post("/signup", h.Auth.Signup)
			public.Post("/login", h.Auth.Login)
		})

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

			protected.Group(func(p chi.Router) {
				p.Use(middleware.Timeout(requestTimeout))
				p.Get("/me", h.Auth.Me)
				p.Get("/documents", h.Sessions.Documents)
				p.Delete("/documents/{documentID}", h.Sessions.DeleteDocument)
				p.Get("/sessions", h.Sessions.List)
				p.Post("/sessions", h.Sessions.Create)

				p.Route("/admin", func(admin chi.Router) {
					admin.Use(appMiddleware.RequireAdmin)
					admin.Get("/users", h.Admin.ListUsers)
					admin.Post("/users", h.Admin.CreateUser)
					admin.Put("/users/{userID}/token-cap", h.Admin.SetTokenCap)
					admin.Post("/users/{userID}/reset-usage", h.Admin.ResetUsage)
					admin.Delete("/users/{userID}", h.Admin.DeleteUser)
					admin.Get("/usage-logs", h.Admin.UsageLogs)
				})
			})

			protected.Route("/sessions/{sessionID}", func(sr chi.Router) {
				// long-lived stream, no request timeout
				sr.Get("/events", h.Events.Stream)

				sr.Group(func(s chi.Router) {
					s.Use(middleware.Timeout(requestTimeout))
					s.Get("/", h.Sessions.Get)
					s.Delete("/", h.Sessions.Delete)
					s.Put("/document", h.Sessions.Load)
					s.Post("/retry", h.Sessions.Retry)
					s.Delete("/extraction", h.Sessions.CancelExtraction)
					s.Post("/viewport", h.Sessions.Viewport)
					s.Post("/resize", h.Sessions.Resize)
					s.Get("/pages/{page}/image", h.Sessions.PageImage)
					s.Get("/export.csv", h.Sessions.ExportCSV)
					s.Get("/notices", h.Sessions.Notices)
					s.Delete("/notices", h.Sessions.DismissNotice)
					s.Delete("/notices/{noticeID}", h.Sessions.DismissNotice)

					s.Route("/assets/{assetID}", func(a chi.Router) {
						a.Patch("/", h.Assets.Update)
						a.Delete("/", h.Assets.Delete)
						a.Post("/keywords", h.Assets.AddKeyword)
						a.Delete("/keywords/{index}", h.Assets.RemoveKeyword)
						a.Post("/regenerate", h.Assets.Regenerate)
						a.Post("/select", h.Assets.Select)
					})

					s.Route("/selection", func(sel chi.Router) {
						sel.Post("/toggle", h.Selection.Toggle)
						sel.Post("/pointer-down", h.Selection.PointerDown)
						sel.Post("/pointer-move", h.Selection.PointerMove)
						sel.Post("/pointer-up", h.Selection.PointerUp)
						sel.Post("/confirm", h.Selection.Confirm)
						sel.Post("/cancel", h.Selection.Cancel)
					})
				})
			})
		})
	})

	return r
}

func NewServer(cfg *config.Config, h Handlers, log zerolog.Logger) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
