package http

import (
	"log/slog"
	"net/http"

	"bodhiment-quiz/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Logger   *slog.Logger
	Identity *Identity
	Hosts    app.HostRegistry
	NewHost  func() *app.Host
	Results  app.ResultStore
}

func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", NewWSHandler(logger, cfg.Identity, cfg.Hosts, cfg.NewHost).ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/identity", handleGetIdentity(cfg.Identity))
		r.Post("/identity", handleSetIdentity(cfg.Identity))
		r.Delete("/identity", handleClearIdentity(cfg.Identity))
		if cfg.Results != nil {
			r.Get("/results", handleResults(logger, cfg.Identity, cfg.Results))
		}
	})
	return r
}
