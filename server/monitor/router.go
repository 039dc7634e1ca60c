package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Source reports live standings, e.g. a running pool's tallies or a
// tournament's leaderboard.
type Source interface {
	Standings() any
}

// SourceFunc adapts a function to Source.
type SourceFunc func() any

func (f SourceFunc) Standings() any { return f() }

// Router serves /metrics, /api/health and /api/standings.
func Router(src Source) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})
	r.Get("/api/standings", func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			writeJSON(w, map[string]any{})
			return
		}
		writeJSON(w, src.Standings())
	})
	return r
}

// Serve runs h on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("status server listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
