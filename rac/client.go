// SPDX-License-Identifier: GPL-3.0-or-later

// Package rac drives the 1C:Enterprise remote administration client (rac)
// and maps its block-structured text output into typed entities.
package rac

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/onec-tools/zbx1c/logger"
)

// Config holds everything needed to reach the administration service through
// the external tool.
type Config struct {
	BinaryPath  string
	Host        string
	Port        int
	ClusterUser string
	ClusterPass string
	Timeout     time.Duration

	// CacheTTL bounds the cluster-list cache. Non-positive falls back to
	// one minute.
	CacheTTL time.Duration
}

func (c Config) address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Client fetches entity lists from the administration service. It keeps a
// short-lived cluster-list cache so that one metrics computation does not
// list clusters once per entity lookup; nothing survives the process. The
// Client is safe for concurrent use.
type Client struct {
	*logger.Logger

	runner Runner
	cfg    Config

	mux      sync.Mutex
	clusters []Cluster
	cachedAt time.Time
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	log = log.With("component", "rac")
	return &Client{
		Logger: log,
		runner: newToolExec(cfg.BinaryPath, cfg.Timeout, log),
		cfg:    cfg,
	}
}

// SetRunner replaces the command runner. Used by tests.
func (c *Client) SetRunner(r Runner) { c.runner = r }

// Clusters returns the clusters registered with the administration service.
// The result is cached for CacheTTL; concurrent callers share one fetch.
func (c *Client) Clusters(ctx context.Context) ([]Cluster, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.clusters != nil && time.Since(c.cachedAt) < c.cfg.CacheTTL {
		return c.clusters, nil
	}

	out, err := c.runner.Run(ctx, "cluster", "list", c.cfg.address())
	if err != nil {
		return nil, fmt.Errorf("cluster list: %w", err)
	}

	var clusters []Cluster
	for _, rec := range ParseRecords(decodeOutput(out)) {
		cl, ok := clusterFromRecord(rec)
		if !ok {
			c.Debugf("skipping cluster record without a valid identifier: %v", rec)
			continue
		}
		clusters = append(clusters, cl)
	}

	c.clusters = clusters
	c.cachedAt = time.Now()

	return clusters, nil
}

// InvalidateClusters drops the cached cluster list.
func (c *Client) InvalidateClusters() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.clusters = nil
	c.cachedAt = time.Time{}
}

// Sessions returns all sessions of the given cluster.
func (c *Client) Sessions(ctx context.Context, clusterID string) ([]Session, error) {
	recs, err := c.listForCluster(ctx, clusterID, "session", "list")
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(recs))
	for _, rec := range recs {
		sessions = append(sessions, sessionFromRecord(rec))
	}
	return sessions, nil
}

// WorkingServers returns the working servers of the given cluster.
func (c *Client) WorkingServers(ctx context.Context, clusterID string) ([]WorkingServer, error) {
	recs, err := c.listForCluster(ctx, clusterID, "server", "list")
	if err != nil {
		return nil, err
	}

	servers := make([]WorkingServer, 0, len(recs))
	for _, rec := range recs {
		servers = append(servers, workingServerFromRecord(rec))
	}
	return servers, nil
}

// Processes returns the worker processes of the given cluster.
func (c *Client) Processes(ctx context.Context, clusterID string) ([]Process, error) {
	recs, err := c.listForCluster(ctx, clusterID, "process", "list")
	if err != nil {
		return nil, err
	}

	procs := make([]Process, 0, len(recs))
	for _, rec := range recs {
		procs = append(procs, processFromRecord(rec))
	}
	return procs, nil
}

// Infobases returns the information bases of the given cluster.
func (c *Client) Infobases(ctx context.Context, clusterID string) ([]Infobase, error) {
	recs, err := c.listForCluster(ctx, clusterID, "infobase", "summary", "list")
	if err != nil {
		return nil, err
	}

	bases := make([]Infobase, 0, len(recs))
	for _, rec := range recs {
		bases = append(bases, infobaseFromRecord(rec))
	}
	return bases, nil
}

func (c *Client) listForCluster(ctx context.Context, clusterID string, cmd ...string) ([]Record, error) {
	args := append([]string(nil), cmd...)
	args = append(args, "--cluster="+clusterID)
	if c.cfg.ClusterUser != "" {
		args = append(args, "--cluster-user="+c.cfg.ClusterUser)
	}
	if c.cfg.ClusterPass != "" {
		args = append(args, "--cluster-pwd="+c.cfg.ClusterPass)
	}
	args = append(args, c.cfg.address())

	out, err := c.runner.Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd[0], err)
	}

	return ParseRecords(decodeOutput(out)), nil
}
