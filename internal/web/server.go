package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hpungsan/feedq/internal/config"
	"github.com/hpungsan/feedq/internal/ops"
)

// maxBodyBytes bounds request bodies for activity and object writes.
const maxBodyBytes = 1 << 20

// NewServer creates and configures the HTTP server for the feedq JSON API.
func NewServer(deps ops.Deps, version string) *http.Server {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		deps.Config = cfg
	}

	h := &Handlers{deps: deps, version: version}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /feeds/{group}/{user}/activities", h.HandleList)
	mux.HandleFunc("POST /feeds/{group}/{user}/activities", h.HandleAdd)
	mux.HandleFunc("PUT /feeds/{group}/{user}/activities", h.HandleUpdate)
	mux.HandleFunc("DELETE /feeds/{group}/{user}/activities/{foreign_id}", h.HandleRemove)
	mux.HandleFunc("PUT /feeds/{group}/{user}/kind", h.HandleKind)
	mux.HandleFunc("PUT /objects/{ref}", h.HandleObjectPut)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Wrap with security headers
	handler := securityHeaders(mux)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("feedq API listening", zap.String("addr", "http://"+srv.Addr))

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
