// Package ops serves the operational endpoints: Prometheus metrics and a
// liveness probe over the database and cache connections.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/resonatelabs/resonate/internal/infrastructure/cache"
)

const probeTimeout = 2 * time.Second

// Server is the ops listener.
type Server struct {
	addr  string
	db    *sqlx.DB
	cache cache.Cache
}

// NewServer wires the listener.
func NewServer(addr string, db *sqlx.DB, c cache.Cache) *Server {
	return &Server{addr: addr, db: db, cache: c}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	status := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true
	if err := s.db.PingContext(ctx); err != nil {
		status["postgres"] = err.Error()
		healthy = false
	}
	if err := s.cache.Ping(ctx); err != nil {
		status["redis"] = err.Error()
		healthy = false
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Run serves until the context is cancelled, then drains.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("ops listener starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
