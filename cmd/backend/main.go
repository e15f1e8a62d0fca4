package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"qrdrop/internal/server"
	"qrdrop/internal/store"
)

func main() {
	addr := getenvDefault("QRDROP_ADDR", ":8080")

	build := server.BuildInfo{
		Version: getenvDefault("QRDROP_VERSION", "dev"),
		Commit:  getenvDefault("QRDROP_COMMIT", "unknown"),
	}

	st, err := newStore()
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "store_init_failed", err)
		os.Exit(1)
	}

	baseURL := getenvDefault("QRDROP_BASE_URL", "http://localhost:8080")

	lc := &server.Lifecycle{
		Store:   st,
		BaseURL: server.StaticBaseURL(baseURL),
		Encode:  server.QRPNGEncoder,
	}

	rateLimit, err := strconv.Atoi(getenvDefault("QRDROP_RATE_LIMIT", "120"))
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "bad_rate_limit", err)
		os.Exit(1)
	}

	srv := server.New(server.Config{
		Addr:      addr,
		Build:     build,
		Lifecycle: lc,
		Store:     st,
		RateLimit: rateLimit,
	})

	// The janitor shares nothing with the request path but the store;
	// cancelling this context is its only shutdown signal.
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go server.StartJanitor(janitorCtx, server.JanitorConfig{
		Enabled:   getenvDefault("QRDROP_CLEANUP_ENABLED", "true") == "true",
		Interval:  getenvDuration("QRDROP_SWEEP_INTERVAL", 10*time.Minute),
		Retention: getenvDuration("QRDROP_RETENTION", time.Hour),
		Store:     st,
	})

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while the server runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s version=%s commit=%s",
			"starting", addr, build.Version, build.Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Block until either a shutdown signal is received or the server errors.
	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		stopJanitor()
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// newStore picks the storage backend from QRDROP_STORE: "fs" (default)
// keeps the three namespaces as flat directories under QRDROP_DATA_DIR,
// "s3" uses a MinIO/S3 bucket.
func newStore() (store.Store, error) {
	switch getenvDefault("QRDROP_STORE", "fs") {
	case "s3":
		return store.NewMinio(context.Background(), store.MinioConfig{
			Endpoint:  os.Getenv("QRDROP_S3_ENDPOINT"),
			AccessKey: os.Getenv("QRDROP_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("QRDROP_S3_SECRET_KEY"),
			Bucket:    os.Getenv("QRDROP_S3_BUCKET"),
		})
	default:
		return store.NewFS(getenvDefault("QRDROP_DATA_DIR", "data"))
	}
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// getenvDuration parses a duration env var ("45m", "3600s"), also
// accepting a bare integer as seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
