// SPDX-License-Identifier: GPL-3.0-or-later

// Package monitor derives cluster health metrics from the raw entity lists
// returned by the administration tool: session and job activity
// classification, capacity aggregation and the final per-cluster payload.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/onec-tools/zbx1c/logger"
	"github.com/onec-tools/zbx1c/rac"
)

// ErrClusterNotFound reports a cluster identifier the administration service
// does not know. It is distinct from a cluster that merely has zero metrics.
var ErrClusterNotFound = errors.New("cluster not found")

// EntityClient fetches raw entity lists from the administration service.
type EntityClient interface {
	Clusters(ctx context.Context) ([]rac.Cluster, error)
	Sessions(ctx context.Context, clusterID string) ([]rac.Session, error)
	WorkingServers(ctx context.Context, clusterID string) ([]rac.WorkingServer, error)
	Processes(ctx context.Context, clusterID string) ([]rac.Process, error)
	Infobases(ctx context.Context, clusterID string) ([]rac.Infobase, error)
}

// Config tunes the whole pipeline.
type Config struct {
	Classifier ClassifierConfig
	Aggregator AggregatorConfig
	Assembler  AssemblerConfig

	// ProbeTimeout bounds the TCP probe of a cluster's worker-server port.
	ProbeTimeout time.Duration // 5s
	// MaxConcurrency bounds parallel work against the administration
	// service, per invocation.
	MaxConcurrency int // 4
}

// Monitor orchestrates entity retrieval and metric assembly. Per-cluster
// aggregation is fully isolated; the only shared state is the client's
// in-process cluster cache.
type Monitor struct {
	*logger.Logger

	client    EntityClient
	assembler *Assembler
	cfg       Config

	now   func() time.Time
	probe func(host string, port int, timeout time.Duration) bool
}

func New(client EntityClient, cfg Config, log *logger.Logger) *Monitor {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &Monitor{
		Logger: log.With("component", "monitor"),
		client: client,
		assembler: NewAssembler(
			NewClassifier(cfg.Classifier),
			NewAggregator(cfg.Aggregator),
			cfg.Assembler,
		),
		cfg:   cfg,
		now:   time.Now,
		probe: ProbeTCP,
	}
}

// DiscoverClusters lists the known clusters with availability derived by
// probing each cluster's worker-server port. Probes run in parallel, bounded.
func (m *Monitor) DiscoverClusters(ctx context.Context) ([]rac.Cluster, error) {
	clusters, err := m.client.Clusters(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]rac.Cluster, len(clusters))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.MaxConcurrency)

	for i, cl := range clusters {
		i, cl := i, cl
		g.Go(func() error {
			out[i] = m.withAvailability(cl)
			return nil
		})
	}

	_ = g.Wait()

	return out, nil
}

// ClusterMetrics computes the metrics payload for one cluster. An unknown
// identifier yields ErrClusterNotFound.
func (m *Monitor) ClusterMetrics(ctx context.Context, clusterID string) (ClusterMetrics, error) {
	cluster, err := m.findCluster(ctx, clusterID)
	if err != nil {
		return ClusterMetrics{}, err
	}

	set := m.collectEntities(ctx, cluster.ID)

	return m.assembler.Assemble(cluster, set, m.now()), nil
}

// AllClusterMetrics computes metrics for every discovered cluster, in
// parallel with bounded concurrency. Per-cluster failures degrade to
// zero-valued metrics for that cluster rather than failing the batch.
func (m *Monitor) AllClusterMetrics(ctx context.Context) ([]ClusterMetrics, error) {
	clusters, err := m.DiscoverClusters(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ClusterMetrics, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.MaxConcurrency)

	for i, cl := range clusters {
		i, cl := i, cl
		g.Go(func() error {
			set := m.collectEntities(gctx, cl.ID)
			out[i] = m.assembler.Assemble(cl, set, m.now())
			return nil
		})
	}

	_ = g.Wait()

	return out, nil
}

func (m *Monitor) findCluster(ctx context.Context, clusterID string) (rac.Cluster, error) {
	if uuid.Validate(clusterID) != nil {
		return rac.Cluster{}, fmt.Errorf("%w: malformed identifier '%s'", ErrClusterNotFound, clusterID)
	}

	clusters, err := m.client.Clusters(ctx)
	if err != nil {
		return rac.Cluster{}, err
	}

	for _, cl := range clusters {
		if cl.ID == clusterID {
			return m.withAvailability(cl), nil
		}
	}

	return rac.Cluster{}, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterID)
}

// collectEntities fetches the four entity lists in parallel. Each failed
// retrieval is logged and leaves its list empty, which propagates as
// zero-valued metrics; it never aborts the computation.
func (m *Monitor) collectEntities(ctx context.Context, clusterID string) EntitySet {
	var set EntitySet

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.MaxConcurrency)

	g.Go(func() error {
		v, err := m.client.Sessions(gctx, clusterID)
		if err != nil {
			m.Warningf("cluster %s: sessions unavailable: %v", clusterID, err)
			return nil
		}
		set.Sessions = v
		return nil
	})
	g.Go(func() error {
		v, err := m.client.WorkingServers(gctx, clusterID)
		if err != nil {
			m.Warningf("cluster %s: working servers unavailable: %v", clusterID, err)
			return nil
		}
		set.Servers = v
		return nil
	})
	g.Go(func() error {
		v, err := m.client.Processes(gctx, clusterID)
		if err != nil {
			m.Warningf("cluster %s: processes unavailable: %v", clusterID, err)
			return nil
		}
		set.Processes = v
		return nil
	})
	g.Go(func() error {
		v, err := m.client.Infobases(gctx, clusterID)
		if err != nil {
			m.Warningf("cluster %s: infobases unavailable: %v", clusterID, err)
			return nil
		}
		set.Infobases = v
		return nil
	})

	_ = g.Wait()

	return set
}

func (m *Monitor) withAvailability(cl rac.Cluster) rac.Cluster {
	if cl.Host == "" || cl.Port == 0 {
		cl.Status = rac.StatusUnknown
		return cl
	}
	if m.probe(cl.Host, cl.Port, m.cfg.ProbeTimeout) {
		cl.Status = rac.StatusAvailable
	} else {
		cl.Status = rac.StatusUnavailable
	}
	return cl
}

// ProbeTCP reports whether host:port accepts a TCP connection within timeout.
func ProbeTCP(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
