// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"time"

	"github.com/onec-tools/zbx1c/rac"
)

// EntitySet carries the raw entity lists for one cluster. Any of the slices
// may be empty; the assembler degrades to zero-valued metrics instead of
// failing.
type EntitySet struct {
	Sessions  []rac.Session
	Servers   []rac.WorkingServer
	Processes []rac.Process
	Infobases []rac.Infobase
}

// MetricSet is the flat per-cluster metrics block shipped to the collector.
type MetricSet struct {
	TotalSessions  int `json:"total_sessions"`
	ActiveSessions int `json:"active_sessions"`

	TotalJobs            int   `json:"total_jobs"`
	ActiveJobs           int   `json:"active_jobs"`
	LongRunningJobs      int   `json:"long_running_jobs"`
	StuckJobs            int   `json:"stuck_jobs"`
	MaxActiveJobDuration int64 `json:"max_active_job_duration_sec"`

	SessionLimit         int64   `json:"session_limit"`
	SessionPercent       float64 `json:"session_percent"`
	InfobaseSessionLimit int64   `json:"infobase_session_limit"`

	TotalInfobases int `json:"total_infobases"`

	TotalServers             int `json:"total_servers"`
	WorkingServers           int `json:"working_servers"`
	ServersRestartedRecently int `json:"servers_restarted_recently"`

	MemoryUsedKB   int64   `json:"memory_used_kb"`
	MemoryLimitKB  int64   `json:"memory_limit_kb"`
	MemoryLimitSet bool    `json:"memory_limit_is_set"`
	MemoryPercent  float64 `json:"memory_percent"`
}

// ClusterMetrics is the full per-cluster payload: identity plus metrics. It
// is recomputed on every request and never stored.
type ClusterMetrics struct {
	ClusterID   string    `json:"cluster_id"`
	ClusterName string    `json:"cluster_name"`
	Status      string    `json:"status"`
	Metrics     MetricSet `json:"metrics"`
}

// AssemblerConfig tunes the job thresholds used by the assembler.
type AssemblerConfig struct {
	StuckJobThreshold       time.Duration // 30m
	LongRunningJobThreshold time.Duration // 60m
}

// Assembler combines classifier and aggregator outputs into ClusterMetrics.
// It is deterministic given its inputs and the supplied clock.
type Assembler struct {
	classifier *Classifier
	aggregator *Aggregator
	cfg        AssemblerConfig
}

func NewAssembler(classifier *Classifier, aggregator *Aggregator, cfg AssemblerConfig) *Assembler {
	if cfg.StuckJobThreshold <= 0 {
		cfg.StuckJobThreshold = 30 * time.Minute
	}
	if cfg.LongRunningJobThreshold <= 0 {
		cfg.LongRunningJobThreshold = 60 * time.Minute
	}
	return &Assembler{
		classifier: classifier,
		aggregator: aggregator,
		cfg:        cfg,
	}
}

// Assemble computes the metrics payload for one cluster. No side effects;
// now is the only non-deterministic input.
func (a *Assembler) Assemble(cluster rac.Cluster, set EntitySet, now time.Time) ClusterMetrics {
	var m MetricSet

	m.TotalSessions = len(set.Sessions)
	for _, s := range set.Sessions {
		if a.classifier.IsActive(s, now) {
			m.ActiveSessions++
		}
	}

	jobs := JobsFromSessions(set.Sessions)
	m.TotalJobs = len(jobs)
	for _, j := range jobs {
		if !j.IsActive() {
			continue
		}
		m.ActiveJobs++

		d := j.Duration(now)
		if sec := int64(d.Seconds()); sec > m.MaxActiveJobDuration {
			m.MaxActiveJobDuration = sec
		}
		if d > a.cfg.LongRunningJobThreshold {
			m.LongRunningJobs++
		}
		if j.IsStuck(now, a.cfg.StuckJobThreshold) {
			m.StuckJobs++
		}
	}

	capacity := a.aggregator.Aggregate(set.Servers, set.Processes, set.Infobases, now)

	m.SessionLimit = capacity.SessionLimit
	m.SessionPercent = Percent(int64(m.TotalSessions), capacity.SessionLimit)
	m.InfobaseSessionLimit = capacity.InfobaseSessionLimit
	m.TotalInfobases = len(set.Infobases)
	m.TotalServers = capacity.TotalServers
	m.WorkingServers = capacity.WorkingServers
	m.ServersRestartedRecently = capacity.RecentlyRestarted
	m.MemoryUsedKB = capacity.MemoryUsedKB
	m.MemoryLimitKB = capacity.MemoryLimitKB
	m.MemoryLimitSet = capacity.MemoryLimitSet
	m.MemoryPercent = capacity.MemoryPercent

	return ClusterMetrics{
		ClusterID:   cluster.ID,
		ClusterName: cluster.Name,
		Status:      cluster.Status,
		Metrics:     m,
	}
}
