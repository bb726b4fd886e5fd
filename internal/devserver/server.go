// Package devserver serves built templates to the browser during development,
// with optional live reload over Server-Sent Events.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alnah/go-mailbuild/internal/assets"
	"github.com/alnah/go-mailbuild/internal/pipeline"
)

// LiveReloadPath is the Server-Sent Events endpoint.
const LiveReloadPath = "/__livereload"

// Server timeouts. WriteTimeout stays zero: event streams are long-lived.
const (
	defaultShutdownTimeout   = 5 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// Sentinel errors.
var (
	ErrListen     = errors.New("cannot listen")
	ErrNotStarted = errors.New("server not listening")
)

// Config configures a Server.
type Config struct {
	Root       string // directory served at /
	CSSDir     string // optional directory served at /css/
	Addr       string // host:port; port 0 picks a free port
	LiveReload bool
	Logger     *slog.Logger

	ShutdownTimeout time.Duration
}

// Server is a static file server for a build output directory.
type Server struct {
	cfg    Config
	hub    *Hub
	logger *slog.Logger
	server *http.Server

	mu sync.Mutex
	ln net.Listener
}

// New creates a Server. Call Listen then Serve.
func New(cfg Config) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{cfg: cfg, hub: NewHub(), logger: logger}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	return s
}

// Handler returns the router; useful with httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(s.logRequests)

	if s.cfg.LiveReload {
		r.Get(LiveReloadPath, s.hub.ServeHTTP)
	}
	if s.cfg.CSSDir != "" {
		r.Handle("/css/*", http.StripPrefix("/css/", http.FileServer(http.Dir(s.cfg.CSSDir))))
	}
	r.Handle("/*", s.static())
	return r
}

// Reload notifies connected browsers to reload. No-op without live reload.
func (s *Server) Reload() {
	if s.cfg.LiveReload {
		s.hub.Broadcast(EventReload)
	}
}

// Hub returns the live-reload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Listen binds the configured address so bind errors surface before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %v", ErrListen, s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// URL returns the base URL of a listening server.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	addr := s.ln.Addr().(*net.TCPAddr)
	host := "localhost"
	if h, _, err := net.SplitHostPort(s.cfg.Addr); err == nil && h != "" && h != "0.0.0.0" && h != "::" {
		host = h
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(addr.Port)))
}

// Serve blocks until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return ErrNotStarted
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server started", slog.String("url", s.URL()), slog.String("root", s.cfg.Root))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Debug("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	// Streams never end on their own; release them before waiting on connections.
	s.hub.Close()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// static serves the root directory, injecting the live-reload client into HTML pages.
func (s *Server) static() http.Handler {
	files := http.FileServer(http.Dir(s.cfg.Root))
	if !s.cfg.LiveReload {
		return files
	}
	script := assets.LiveReloadScript()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}
		if path.Ext(name) != ".html" {
			files.ServeHTTP(w, r)
			return
		}

		data, err := os.ReadFile(filepath.Join(s.cfg.Root, filepath.FromSlash(name))) // #nosec G304 -- cleaned path under the served root
		if err != nil {
			files.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, pipeline.InjectScript(string(data), script))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
