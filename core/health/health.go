// Package health serves liveness and build information over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/rentbot/core/buildinfo"
	"github.com/m3rciful/rentbot/core/logger"
)

const (
	component = "health"

	probeTimeout    = 3 * time.Second
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	idleTimeout     = time.Minute
	shutdownTimeout = 5 * time.Second
)

// Probe reports whether a dependency is usable.
type Probe interface {
	Ping(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

// Ping calls f.
func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

// Options configure the health server.
type Options struct {
	Listen string
	// Probes are checked by /healthz; any failure yields 503.
	Probes map[string]Probe
	// Counters adds runtime numbers to /healthz.
	Counters func() map[string]uint64
}

// Handler builds the chi router.
func Handler(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), probeTimeout)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(opts.Probes))
		for name, p := range opts.Probes {
			if err := p.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}
		body := map[string]any{"status": http.StatusText(status), "checks": checks}
		if opts.Counters != nil {
			body["counters"] = opts.Counters()
		}
		writeJSON(w, status, body)
	})

	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": buildinfo.Version,
			"commit":  buildinfo.Commit,
			"date":    buildinfo.Date,
		})
	})

	return r
}

// Serve runs the server until ctx is done. An empty Listen disables it.
func Serve(ctx context.Context, opts Options) error {
	if opts.Listen == "" {
		return nil
	}
	srv := &http.Server{
		Addr:         opts.Listen,
		Handler:      Handler(opts),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	if l := logger.Component(component); l != nil {
		srv.ErrorLog = slog.NewLogLogger(l.Handler(), slog.LevelWarn)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, component, "listen", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info(ctx, component, "stopped", slog.String("addr", srv.Addr))
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
