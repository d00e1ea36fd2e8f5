// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"math"
	"time"

	"github.com/onec-tools/zbx1c/rac"
)

// Capacity is the cluster-wide session and memory capacity derived from the
// working-server and worker-process topology.
type Capacity struct {
	// SessionLimit is Σ over servers of connections-limit × worker-process
	// count on the server's host. connections-limit applies to each worker
	// process individually, so a fixed per-cluster constant would be wrong
	// for any host running more than one process.
	SessionLimit int64

	// InfobaseSessionLimit is the legacy limit: Σ max-connections over all
	// information bases (entries with 0 = unlimited contribute nothing).
	// Informational only.
	InfobaseSessionLimit int64

	MemoryUsedKB   int64
	MemoryLimitKB  int64
	MemoryLimitSet bool
	MemoryPercent  float64

	TotalServers      int
	WorkingServers    int
	RecentlyRestarted int
}

// AggregatorConfig tunes the capacity computation.
type AggregatorConfig struct {
	// RestartThreshold is how fresh a server's derived start time must be to
	// count as recently restarted. Defaults to 5m.
	RestartThreshold time.Duration
}

type Aggregator struct {
	cfg AggregatorConfig
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	if cfg.RestartThreshold <= 0 {
		cfg.RestartThreshold = 5 * time.Minute
	}
	return &Aggregator{cfg: cfg}
}

// Aggregate computes cluster capacity from the raw entity lists. Empty lists
// are legitimate degraded inputs and produce zero-valued capacity, never an
// error.
func (a *Aggregator) Aggregate(servers []rac.WorkingServer, processes []rac.Process, infobases []rac.Infobase, now time.Time) Capacity {
	var agg Capacity

	procsByHost := make(map[string][]rac.Process)
	for _, p := range processes {
		procsByHost[p.Host] = append(procsByHost[p.Host], p)
	}

	agg.TotalServers = len(servers)

	for _, srv := range servers {
		procs := procsByHost[srv.Host]

		// With no visible processes assume a single one; a discovery gap in
		// `process list` must not zero out the whole server's share.
		count := int64(len(procs))
		if count == 0 {
			count = 1
		}
		agg.SessionLimit += srv.ConnectionsLimit * count

		agg.MemoryLimitKB += srv.MemoryLimitKB

		if hasRunningProcess(procs) {
			agg.WorkingServers++
		}

		if start := earliestStart(procs); !start.IsZero() && now.Sub(start) <= a.cfg.RestartThreshold {
			agg.RecentlyRestarted++
		}
	}

	for _, p := range processes {
		agg.MemoryUsedKB += p.MemoryKB
	}

	// A zero limit means "no limit configured", not "always over capacity";
	// the flag lets the consumer alert on absolute usage instead.
	agg.MemoryLimitSet = agg.MemoryLimitKB > 0
	if agg.MemoryLimitSet {
		agg.MemoryPercent = Percent(agg.MemoryUsedKB, agg.MemoryLimitKB)
	}

	for _, ib := range infobases {
		agg.InfobaseSessionLimit += ib.MaxConnections
	}

	return agg
}

func hasRunningProcess(procs []rac.Process) bool {
	for _, p := range procs {
		if p.Running {
			return true
		}
	}
	return false
}

// earliestStart derives a server's start time as the minimum start time among
// its worker processes. Zero when no process has a usable timestamp.
func earliestStart(procs []rac.Process) time.Time {
	var min time.Time
	for _, p := range procs {
		if p.StartedAt.IsZero() {
			continue
		}
		if min.IsZero() || p.StartedAt.Before(min) {
			min = p.StartedAt
		}
	}
	return min
}

// Percent returns current/limit as a percentage rounded to two decimals, or
// 0 when the limit is not positive.
func Percent(current, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(float64(current)/float64(limit)*100*100) / 100
}
