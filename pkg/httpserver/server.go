// Package httpserver is the net/http front door: it wires chi as the
// reserved-route mux, exposes Prometheus metrics and otel tracing around
// every dispatched request, and serves the HMR websocket bridge. The
// dispatcher itself is transport-agnostic; this package is the real
// transport that calls its streaming entry point, HandleStreamingRequest.
package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/dispatch"
	"github.com/vango-dev/devserver/internal/evaluator"
	"github.com/vango-dev/devserver/internal/hmr"
	"github.com/vango-dev/devserver/internal/routeresolve"
	"github.com/vango-dev/devserver/internal/shell"
	"github.com/vango-dev/devserver/internal/transform"
	"github.com/vango-dev/devserver/internal/vfs"
)

// Options configures a Server.
type Options struct {
	// Fsys is the VFS backing the served project. Callers running against
	// a real directory pass vfs.NewOSBacked(dir); tests pass vfs.NewMemory.
	Fsys vfs.VFS

	// VirtualPrefix namespaces this instance's traffic under a
	// "/__virtual__/<port>" root. Defaults to empty (no virtual prefix)
	// when unset, which is the common case for a directly-browsed dev
	// server not fronted by a service worker.
	VirtualPrefix string

	// RouterMode forces pages or app mode; config.PreferAuto (the zero
	// value) keeps the auto-detection done at config resolution.
	RouterMode config.PreferRouter

	// Logger is passed to the transformer, shell synthesizer, dispatcher and
	// HMR notifier, and receives config warnings; defaults to slog.Default().
	Logger *slog.Logger

	// Registerer receives the Prometheus collectors; defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Server bundles the Request Dispatcher with the real HTTP transport,
// metrics, tracing, and the HMR websocket bridge.
type Server struct {
	mux        chi.Router
	dispatcher *dispatch.Dispatcher
	notifier   *hmr.Notifier
	bridge     *hmr.Bridge
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *metrics
}

// New constructs a Server, leaves first: config, then the route resolver,
// transformer, shell synthesizer, evaluator, and finally the dispatcher
// that composes them.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}

	cfg, warnings := config.Resolve(opts.Fsys)
	for _, w := range warnings {
		opts.Logger.Warn("config: " + w.FormatCompact())
	}
	if opts.RouterMode != config.PreferAuto {
		cfg.ForceRouter(opts.RouterMode)
	}

	resolver := routeresolve.New(opts.Fsys, cfg)
	backend := transform.NewEsbuildBackend()
	transformer := transform.New(opts.Fsys, cfg, backend, opts.Logger)
	synth := shell.New(opts.Fsys, cfg, opts.Logger)
	eval := evaluator.NewGoja()

	d := dispatch.New(opts.Fsys, cfg, resolver, transformer, synth, eval, opts.Logger, opts.VirtualPrefix)

	notifier := hmr.New(opts.Fsys, opts.Logger, nil)
	bridge := hmr.NewBridge()
	notifier.Subscribe(bridge.Deliver)
	notifier.Watch(context.Background(), cfg.PagesDir, cfg.AppDir, cfg.PublicDir)

	s := &Server{
		dispatcher: d,
		notifier:   notifier,
		bridge:     bridge,
		cfg:        cfg,
		logger:     opts.Logger,
		metrics:    newMetrics(opts.Registerer),
	}
	s.mux = s.buildMux(opts.Registerer)
	return s, nil
}

// buildMux wires the chi router: /metrics (served from reg when it is also
// a prometheus.Gatherer, else from the default gatherer), the HMR websocket
// upgrade, and a catch-all that funnels every other request through the
// dispatcher.
func (s *Server) buildMux(reg prometheus.Registerer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/_next/hmr", s.bridge.ServeHTTP)
	r.Handle("/*", http.HandlerFunc(s.dispatchHTTP))

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// ServeHTTP lets Server be used directly as an http.Handler, e.g. in tests
// with httptest.NewServer.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// dispatchHTTP is the adapter between net/http and the Dispatcher's
// HTTP-shaped, transport-agnostic contract.
func (s *Server) dispatchHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := startRequestSpan(r.Context(), r.Method, r.URL.Path)
	defer span.End()

	req := dispatch.Request{
		Method:  r.Method,
		URL:     r.URL.RequestURI(),
		Headers: flattenHeaders(r.Header),
	}
	if r.Body != nil {
		defer r.Body.Close()
		req.Body, _ = io.ReadAll(r.Body)
	}

	flusher, canFlush := w.(http.Flusher)
	var status int
	var cacheResult string

	start := time.Now()
	s.dispatcher.HandleStreamingRequest(ctx, req, dispatch.StreamCallbacks{
		OnStart: func(st int, _ string, headers map[string]string) {
			status = st
			cacheResult = headers["X-Cache"]
			for k, v := range headers {
				w.Header().Set(k, v)
			}
			w.WriteHeader(st)
		},
		OnChunk: func(chunk []byte) {
			w.Write(chunk)
			if canFlush {
				flusher.Flush()
			}
		},
		OnEnd: func() {},
	})
	duration := time.Since(start)

	endRequestSpan(span, status)
	s.metrics.requestsTotal.WithLabelValues(statusClass(status)).Inc()
	s.metrics.requestDuration.WithLabelValues(statusClass(status)).Observe(duration.Seconds())
	if cacheResult == "hit" {
		s.metrics.transformCache.WithLabelValues("hit").Inc()
	} else if cacheResult == "miss" {
		s.metrics.transformCache.WithLabelValues("miss").Inc()
	}
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

// Config returns the resolved Config so callers (cmd/devserver) can print
// the effective base path, asset prefix, and router mode at startup.
func (s *Server) Config() *config.Config { return s.cfg }

// Close stops the HMR watchers and closes the websocket bridge.
func (s *Server) Close() {
	s.notifier.Close()
	s.bridge.Close()
}
