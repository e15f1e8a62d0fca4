package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"qrdrop/internal/store"
)

// BuildInfo identifies the running binary in health output and logs.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config wires the HTTP surface to the lifecycle and store.
type Config struct {
	Addr      string // e.g. ":8080"
	Build     BuildInfo
	Lifecycle *Lifecycle
	Store     store.Store
	RateLimit int // requests per minute per IP; 0 disables the limiter
}

type Server struct {
	httpServer *http.Server
}

func New(cfg Config) *Server {
	mux := http.NewServeMux()

	mux.Handle("/health", cfg.healthHandler())
	mux.Handle("/upload", cfg.uploadHandler())
	mux.Handle("/view/{filename}", cfg.viewHandler())
	mux.Handle("/decrypt/{filename}", cfg.decryptHandler())
	mux.Handle("/uploads/{filename}", cfg.downloadHandler())
	mux.Handle("/codes/{filename}", cfg.codeHandler())

	// Wrap middleware: requestID -> logging -> security headers -> rate limit -> mux
	var handler http.Handler = mux
	if cfg.RateLimit > 0 {
		handler = newRateLimiter(cfg.RateLimit, time.Minute).middleware(handler)
	}
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{httpServer: s}
}

// healthHandler reports liveness plus a cheap store probe.
func (cfg Config) healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		storeStatus := "up"

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := cfg.Store.List(ctx, store.NSEncrypted); err != nil {
			status = "degraded"
			storeStatus = "down"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  status,
			"store":   storeStatus,
			"version": cfg.Build.Version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the fully wrapped handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
