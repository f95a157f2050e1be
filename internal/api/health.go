package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Check is one named dependency reported by the health endpoint.
type Check struct {
	Name   string
	Pinger Pinger
}

// HealthHandlerFunc returns an http.HandlerFunc that pings every check in
// parallel.
// It answers 200 when all pass and 503 otherwise. No checks means ok: the
// service still answers from fallback data.
func HealthHandlerFunc(checks []Check, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		var (
			mu     sync.Mutex
			status = http.StatusOK
			body   = map[string]string{"status": "ok"}
		)

		// Dependencies are pinged concurrently; a failure is reported, not
		// propagated, so every check runs to completion.
		var g errgroup.Group
		for _, c := range checks {
			g.Go(func() error {
				result := "ok"
				if err := c.Pinger.Ping(ctx); err != nil {
					log.Error().Err(err).Str("dependency", c.Name).Msg("health check failed")
					result = "error"
				}

				mu.Lock()
				defer mu.Unlock()
				body[c.Name] = result
				if result != "ok" {
					body["status"] = "degraded"
					status = http.StatusServiceUnavailable
				}
				return nil
			})
		}
		_ = g.Wait()

		writeJSON(w, status, body)
	}
}
