// Package gateway serves the operational HTTP surface: health, metrics,
// active sessions and recent game history. It never touches game state
// directly; everything goes through read-only snapshots.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/knyzorg/discord-game-manager/pkg/history"
	"github.com/knyzorg/discord-game-manager/pkg/manager"
)

type Gateway struct {
	server *http.Server
	router *chi.Mux
	mgr    *manager.Manager
	rec    *history.Recorder
	logger *slog.Logger
}

type Config struct {
	Bind    string
	Port    int
	Manager *manager.Manager
	History *history.Recorder
	Logger  *slog.Logger
}

func New(cfg Config) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	g := &Gateway{
		router: r,
		mgr:    cfg.Manager,
		rec:    cfg.History,
		logger: cfg.Logger,
	}

	r.Get("/healthz", g.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/sessions", g.handleSessions)
	r.Get("/history", g.handleHistory)

	g.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return g
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (g *Gateway) Start(ctx context.Context) error {
	g.logger.Info("status server listening", slog.String("addr", g.server.Addr))

	ln, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return fmt.Errorf("gateway: listening on %s: %w", g.server.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := g.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return g.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gateway: serving: %w", err)
		}
		return nil
	}
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (g *Gateway) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, g.mgr.Snapshot())
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	if g.rec == nil {
		writeJSON(w, []history.Entry{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := g.rec.Recent(r.Context(), limit)
	if err != nil {
		g.logger.Error("history query failed", slog.String("err", err.Error()))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
