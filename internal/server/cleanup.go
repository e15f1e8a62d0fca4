package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"qrdrop/internal/store"
)

// JanitorConfig holds configuration for the retention sweep job.
type JanitorConfig struct {
	Enabled   bool
	Interval  time.Duration // time between sweeps
	Retention time.Duration // max age before an entry is deleted
	Store     store.Store
}

// StartJanitor runs the retention sweep on a fixed interval until ctx is
// cancelled. The janitor never coordinates with request handlers; the
// store is the only shared resource, and per-entry delete failures are
// logged and skipped so one bad entry cannot stall retention.
func StartJanitor(ctx context.Context, cfg JanitorConfig) {
	if !cfg.Enabled {
		log.Printf("service=janitor msg=%q", "disabled")
		return
	}

	log.Printf("service=janitor msg=%q interval=%s retention=%s",
		"starting", cfg.Interval, cfg.Retention)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	// Run immediately on start
	runSweep(ctx, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Printf("service=janitor msg=%q", "shutting_down")
			return
		case <-ticker.C:
			runSweep(ctx, cfg)
		}
	}
}

// runSweep deletes every entry older than the retention window across
// all namespaces. Exposed to tests so a sweep can be triggered
// deterministically instead of waiting on the ticker.
//
// The cutoff compares wall-clock now against stored mtimes. With heavy
// clock skew a freshly written entry can look expired and be swept right
// after creation; accepted as a rare edge case rather than guarded with
// locks.
func runSweep(ctx context.Context, cfg JanitorConfig) {
	start := time.Now()
	sweepID := uuid.NewString()
	cutoff := start.Add(-cfg.Retention)

	deleted, failed := 0, 0

	for _, ns := range store.Namespaces {
		entries, err := cfg.Store.List(ctx, ns)
		if err != nil {
			Error("sweep listing failed", map[string]interface{}{
				"sweep":     sweepID,
				"namespace": string(ns),
				"error":     err.Error(),
			})
			continue
		}

		for _, e := range entries {
			if !e.ModTime.Before(cutoff) {
				continue
			}

			err := cfg.Store.Delete(ctx, ns, e.Name)
			switch {
			case err == nil:
				deleted++
			case errors.Is(err, store.ErrNotFound):
				// Already gone, likely a concurrent delete.
			default:
				failed++
				Warn("sweep entry delete failed", map[string]interface{}{
					"sweep":     sweepID,
					"namespace": string(ns),
					"name":      e.Name,
					"error":     err.Error(),
				})
			}
		}
	}

	log.Printf("service=janitor sweep=%s deleted=%d failed=%d duration_ms=%d",
		sweepID, deleted, failed, time.Since(start).Milliseconds())
}
