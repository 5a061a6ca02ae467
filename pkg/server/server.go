// Package server serves the live diagram over HTTP and websockets.
//
// Routes:
//
//	GET  /                    minimal viewer page
//	GET  /api/graph           snapshot document (?before=&after= unix seconds)
//	GET  /api/diagram         current diagram as JSON
//	GET  /api/render/{format} current diagram in any pipeline format
//	GET  /diagram.svg         shorthand for /api/render/svg
//	GET  /diagram.dot         shorthand for /api/render/dot
//	POST /api/refresh         request an immediate poll pass
//	GET  /api/ws              websocket; pushes {"type":"diagram","data":...}
//	GET  /api/stats           pipeline, cache and feed counters
//	GET  /healthz             liveness
//
// [Server.Apply] is a feed handler: it applies a fetched snapshot through
// the runner and pushes the diagram to websocket clients when it changed.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/gitway/pkg/observability"
	"github.com/matzehuels/gitway/pkg/pipeline"
	"github.com/matzehuels/gitway/pkg/snapshot"
)

// DefaultWindow is the /api/graph window when no after parameter is given.
const DefaultWindow = 250 * time.Hour

const shutdownTimeout = 5 * time.Second

// Snapshotter produces snapshots on demand for /api/graph.
type Snapshotter interface {
	Snapshot(ctx context.Context, before, after time.Time) (*snapshot.Snapshot, error)
}

// Trigger requests an immediate poll pass.
type Trigger interface {
	Trigger()
}

// Options configures a Server.
type Options struct {
	Listen string
	Runner *pipeline.Runner

	// Source answers /api/graph. Without it the raw document of the current
	// result is served.
	Source Snapshotter
	Window time.Duration

	// Poller is triggered by /api/refresh and by the watcher.
	Poller Trigger

	// WatchDir, when set, is watched for ref changes.
	WatchDir string

	// AllowedOrigins may open /api/ws in addition to the server's own
	// origin.
	AllowedOrigins []string

	// Counters backs /api/stats.
	Counters *observability.Counters

	Logger *log.Logger
}

// SetDefaults fills zero values.
func (o *Options) SetDefaults() {
	if o.Listen == "" {
		o.Listen = ":8080"
	}
	if o.Window == 0 {
		o.Window = DefaultWindow
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Runner == nil {
		o.Runner = pipeline.NewRunner(nil, nil, nil, o.Logger)
	}
}

// Server is the HTTP front end of a runner.
type Server struct {
	opts     Options
	hub      *Hub
	upgrader *websocket.Upgrader
	logger   *log.Logger
	now      func() time.Time
}

// New returns a server. Nothing listens until Run.
func New(opts Options) *Server {
	opts.SetDefaults()
	return &Server{
		opts:     opts,
		hub:      NewHub(opts.Logger),
		upgrader: newUpgrader(opts.AllowedOrigins),
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Apply applies one fetched snapshot and broadcasts the diagram if it
// changed. Stale passes are not an error.
func (s *Server) Apply(ctx context.Context, seq uint64, data []byte) error {
	res, err := s.opts.Runner.Apply(ctx, seq, data)
	if stderrors.Is(err, pipeline.ErrStale) {
		return nil
	}
	if err != nil {
		return err
	}
	if res.Changed {
		s.hub.Broadcast(diagramMessage(res))
	}
	return nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/diagram.svg", s.handleRenderFormat(pipeline.FormatSVG))
	r.Get("/diagram.dot", s.handleRenderFormat(pipeline.FormatDOT))

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/diagram", s.handleDiagram)
		r.Get("/render/{format}", s.handleRender)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/stats", s.handleStats)
		r.Get("/ws", s.handleWebSocket)
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully. The hub and,
// if configured, the watcher run alongside.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(ctx)

	if s.opts.WatchDir != "" && s.opts.Poller != nil {
		w := NewWatcher(s.opts.WatchDir, s.opts.Poller.Trigger, s.logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				s.logger.Warn("watcher stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Listen)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	s.hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
