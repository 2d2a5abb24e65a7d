package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linguabridge/linguabridge/internal/health"
	"github.com/linguabridge/linguabridge/internal/observe"
	"github.com/linguabridge/linguabridge/internal/pipeline"
	"github.com/linguabridge/linguabridge/pkg/lang"
)

// shutdownGrace is how long in-flight requests get to finish during
// graceful shutdown.
const shutdownGrace = 10 * time.Second

// Server hosts the WebSocket channel and the lookup endpoints:
//
//	/voice     WebSocket upgrade, one [Session] per connection
//	/languages supported language list
//	/healthz   liveness probe
//	/readyz    readiness probe
//	/metrics   Prometheus scrape endpoint
type Server struct {
	addr    string
	pipe    *pipeline.Pipeline
	metrics *observe.Metrics
	log     *slog.Logger

	certFile string
	keyFile  string

	httpSrv *http.Server
}

// ServerOption configures a [Server].
type ServerOption func(*Server)

// WithLogger sets the server logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithTLS serves HTTPS using the given PEM-encoded certificate and key.
func WithTLS(certFile, keyFile string) ServerOption {
	return func(s *Server) {
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

// New creates a Server listening on addr once [Server.Run] is called.
func New(addr string, pipe *pipeline.Pipeline, opts ...ServerOption) *Server {
	s := &Server{
		addr: addr,
		pipe: pipe,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/voice", s.handleVoice)
	mux.HandleFunc("GET /languages", s.handleLanguages)
	mux.Handle("GET /metrics", promhttp.Handler())

	hh := health.New(health.Checker{
		Name: "engines",
		Check: func(_ context.Context) error {
			if len(pipe.STTModels()) == 0 {
				return errors.New("no recognition engine configured")
			}
			return nil
		},
	})
	hh.Register(mux)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(s.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's root handler, including middleware. Useful
// for serving through a test listener.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gateway listening", slog.String("addr", s.addr), slog.Bool("tls", s.certFile != ""))
		var err error
		if s.certFile != "" {
			err = s.httpSrv.ListenAndServeTLS(s.certFile, s.keyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway: shutdown: %w", err)
	}
	return nil
}

// handleVoice upgrades the connection and runs a session to completion.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The channel carries no cookies or credentials, so cross-origin
		// clients (browser demos, local tooling) are acceptable.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session ended")

	s.metrics.ActiveSessions.Add(r.Context(), 1)
	defer s.metrics.ActiveSessions.Add(context.Background(), -1)

	sess := NewSession(conn, s.pipe,
		WithSessionLogger(s.log.With(slog.String("remote", r.RemoteAddr))),
		WithSessionMetrics(s.metrics),
	)

	s.log.Info("session started", slog.String("remote", r.RemoteAddr))
	if err := sess.Run(r.Context()); err != nil {
		s.log.Info("session ended",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}
	s.log.Info("session ended", slog.String("remote", r.RemoteAddr))
	conn.Close(websocket.StatusNormalClosure, "bye")
}

// handleLanguages serves the supported language table.
func (s *Server) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(struct {
		Languages []lang.Language `json:"languages"`
	}{Languages: lang.Supported()}); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
