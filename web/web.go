// SPDX-License-Identifier: GPL-3.0-or-later

// Package web exposes the adapter over HTTP for deployments that pull
// metrics instead of running the binary per item: discovery and per-cluster
// metrics as JSON, plus Prometheus self-telemetry.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onec-tools/zbx1c/logger"
	"github.com/onec-tools/zbx1c/monitor"
	"github.com/onec-tools/zbx1c/rac"
	"github.com/onec-tools/zbx1c/zabbix"
)

// MetricsProvider is the part of the monitor the HTTP surface needs.
type MetricsProvider interface {
	DiscoverClusters(ctx context.Context) ([]rac.Cluster, error)
	ClusterMetrics(ctx context.Context, clusterID string) (monitor.ClusterMetrics, error)
	AllClusterMetrics(ctx context.Context) ([]monitor.ClusterMetrics, error)
	SessionSummary(ctx context.Context, clusterID string) (monitor.SessionSummary, error)
}

type Server struct {
	*logger.Logger

	provider MetricsProvider
	addr     string
}

func New(addr string, provider MetricsProvider, log *logger.Logger) *Server {
	return &Server{
		Logger:   log.With("component", "web"),
		provider: provider,
		addr:     addr,
	}
}

// Handler builds the router. Split from Run so tests can drive it with
// httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/discovery", s.handleDiscovery)
		r.Get("/clusters", s.handleAllMetrics)
		r.Get("/clusters/{clusterID}/metrics", s.handleClusterMetrics)
		r.Get("/clusters/{clusterID}/sessions", s.handleSessionSummary)
	})

	return r
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.Infof("listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.provider.DiscoverClusters(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, zabbix.NewDiscovery(clusters))
}

func (s *Server) handleAllMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.provider.AllClusterMetrics(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleClusterMetrics(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "clusterID")

	metrics, err := s.provider.ClusterMetrics(r.Context(), clusterID)
	if err != nil {
		if errors.Is(err, monitor.ErrClusterNotFound) {
			s.writeError(w, http.StatusNotFound, err)
		} else {
			s.writeError(w, http.StatusBadGateway, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "clusterID")

	summary, err := s.provider.SessionSummary(r.Context(), clusterID)
	if err != nil {
		if errors.Is(err, monitor.ErrClusterNotFound) {
			s.writeError(w, http.StatusNotFound, err)
		} else {
			s.writeError(w, http.StatusBadGateway, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.Warningf("request failed: %v", err)
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
