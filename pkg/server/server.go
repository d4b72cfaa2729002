package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/hstream-dev/hstream/pkg/engine"
)

// Server is the HTTP transport layer in front of the reconciliation engine.
// Every route maps 1:1 to one engine operation.
type Server struct {
	engine         *engine.Engine
	config         *Config
	logger         *slog.Logger
	trustedProxies *proxyMatcher
	upgrader       websocket.Upgrader
	httpServer     *http.Server
}

// New creates a Server for eng. A nil config uses DefaultConfig; a nil logger
// uses slog.Default.
func New(eng *engine.Engine, config *Config, logger *slog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		// Defaults below are applied to the copy, never the caller's struct.
		config = config.Clone()
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = SameOriginCheck
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:         eng,
		config:         config,
		logger:         logger.With("component", "server"),
		trustedProxies: newProxyMatcher(config.TrustedProxies, logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.config.CheckOrigin,
	}
	return s
}

// Handler returns the fully routed HTTP handler. Mount it directly or under a
// parent router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	for _, mw := range s.config.Middleware {
		r.Use(mw)
	}

	r.Get("/", s.handleRoot)
	r.Get("/update", s.handleUpdate)
	r.Get("/update/ws", s.handleUpdateSocket)
	r.Post("/value_changed/{componentKey}", s.handleValueChanged)
	r.Get("/{componentKey}/label", s.handleLabel)

	return r
}

// Run starts the server and blocks until ctx is canceled, then shuts down
// gracefully within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.config.Address)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

// writeError maps engine and identity errors onto HTTP status codes. Failures
// present as generic errors to the visitor; detail goes to the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var scriptErr *engine.ScriptError

	switch {
	case errors.Is(err, ErrInvalidIdentity), errors.Is(err, ErrSecureCookiesRequired):
		http.Error(w, "bad request", http.StatusBadRequest)
	case errors.Is(err, ErrNoValue):
		http.Error(w, "bad request", http.StatusBadRequest)
	case errors.Is(err, engine.ErrUnknownComponent):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &scriptErr):
		http.Error(w, "internal server error", http.StatusInternalServerError)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}

	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
}
