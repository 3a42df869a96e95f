package watch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/brim/internal/logfields"
	"git.home.luguber.info/inful/brim/internal/metrics"
)

// health is the JSON body of /healthz.
type health struct {
	Builds       int    `json:"builds"`
	HasGoodBuild bool   `json:"has_good_build"`
	LastError    string `json:"last_error,omitempty"`
	Rendered     int    `json:"rendered"`
	Failed       int    `json:"failed"`
}

// Router serves reg on /metrics and, when status is set, the watcher's
// state on /healthz. /healthz answers 503 until a build has succeeded.
func Router(reg *prom.Registry, status func() Status) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.HTTPHandler(reg))
	if status != nil {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			st := status()
			h := health{Builds: st.Builds, HasGoodBuild: st.HasGoodBuild}
			if st.LastError != nil {
				h.LastError = st.LastError.Error()
			}
			if st.LastResult != nil {
				h.Rendered = st.LastResult.Rendered
				h.Failed = st.LastResult.Failed
			}
			w.Header().Set("Content-Type", "application/json")
			if !st.HasGoodBuild {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			_ = json.NewEncoder(w).Encode(h)
		})
	}
	return r
}

// Serve runs h at addr until ctx is done. It returns the bound address once
// the listener is open.
func Serve(ctx context.Context, addr string, h http.Handler, log *slog.Logger) (net.Addr, error) {
	if log == nil {
		log = slog.Default()
	}
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Metrics server shutdown error", logfields.Error(err))
		}
	}()
	log.Info("Metrics server listening", slog.String("addr", ln.Addr().String()))
	return ln.Addr(), nil
}
