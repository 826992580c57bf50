// control/admin.go
// Author: momentics <momentics@gmail.com>
//
// HTTP admin endpoint: metrics, health and debug state.

package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/momentics/puki/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewAdminRouter builds the admin HTTP handler. Any argument may be nil,
// in which case its routes are omitted.
func NewAdminRouter(g prometheus.Gatherer, probes api.Debug, store *ConfigStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if g != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	if probes != nil {
		r.Get("/debug/state", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, probes.DumpState())
		})
	}
	if store != nil {
		r.Get("/debug/config", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, store.GetSnapshot())
		})
	}
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// AdminServer serves the admin router on its own goroutine.
type AdminServer struct {
	addr string
	srv  *http.Server
	ln   net.Listener
	log  *slog.Logger
	done chan struct{}
}

var _ api.GracefulShutdown = (*AdminServer)(nil)

// NewAdminServer prepares a server for h on addr.
func NewAdminServer(addr string, h http.Handler, log *slog.Logger) *AdminServer {
	if log == nil {
		log = slog.Default()
	}
	return &AdminServer{
		addr: addr,
		srv:  &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		log:  log,
		done: make(chan struct{}),
	}
}

// Start binds and begins serving.
func (a *AdminServer) Start() error {
	if a.ln != nil {
		return api.ErrAlreadyStarted
	}
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("admin listen %s: %w", a.addr, err)
	}
	a.ln = ln
	a.log.Info("admin endpoint listening", "addr", ln.Addr().String())
	go func() {
		defer close(a.done)
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("admin server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (a *AdminServer) Addr() net.Addr {
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

// Shutdown stops the server gracefully.
func (a *AdminServer) Shutdown(ctx context.Context) error {
	if a.ln == nil {
		return nil
	}
	err := a.srv.Shutdown(ctx)
	select {
	case <-a.done:
	case <-ctx.Done():
	}
	return err
}
