// SPDX-License-Identifier: GPL-3.0-or-later

// Package zabbix renders discovery and metric payloads in the shapes the
// Zabbix server expects from an external script: LLD macros for discovery and
// a flat object (not an array) per cluster so JSONPath preprocessing works.
package zabbix

import (
	"github.com/onec-tools/zbx1c/monitor"
	"github.com/onec-tools/zbx1c/rac"
)

// DiscoveryItem is one low-level-discovery entry.
type DiscoveryItem struct {
	ClusterID     string `json:"{#CLUSTER.ID}"`
	ClusterName   string `json:"{#CLUSTER.NAME}"`
	ClusterHost   string `json:"{#CLUSTER.HOST}"`
	ClusterPort   int    `json:"{#CLUSTER.PORT}"`
	ClusterStatus string `json:"{#CLUSTER.STATUS}"`
}

// Discovery is the LLD payload.
type Discovery struct {
	Data []DiscoveryItem `json:"data"`
}

// NewDiscovery builds the LLD payload from discovered clusters. Entries
// without an identifier never reach this point; the repository layer drops
// them.
func NewDiscovery(clusters []rac.Cluster) Discovery {
	d := Discovery{Data: make([]DiscoveryItem, 0, len(clusters))}
	for _, cl := range clusters {
		d.Data = append(d.Data, DiscoveryItem{
			ClusterID:     cl.ID,
			ClusterName:   cl.Name,
			ClusterHost:   cl.Host,
			ClusterPort:   cl.Port,
			ClusterStatus: cl.Status,
		})
	}
	return d
}

// Metric is one trapper-style key/value pair.
type Metric struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Keys flattens a cluster metrics payload into trapper item keys.
func Keys(m monitor.ClusterMetrics) []Metric {
	ms := m.Metrics
	return []Metric{
		{Key: "zbx1c.cluster.status", Value: m.Status},
		{Key: "zbx1c.cluster.total_sessions", Value: ms.TotalSessions},
		{Key: "zbx1c.cluster.active_sessions", Value: ms.ActiveSessions},
		{Key: "zbx1c.cluster.total_jobs", Value: ms.TotalJobs},
		{Key: "zbx1c.cluster.active_jobs", Value: ms.ActiveJobs},
		{Key: "zbx1c.cluster.long_running_jobs", Value: ms.LongRunningJobs},
		{Key: "zbx1c.cluster.stuck_jobs", Value: ms.StuckJobs},
		{Key: "zbx1c.cluster.max_active_job_duration_sec", Value: ms.MaxActiveJobDuration},
		{Key: "zbx1c.cluster.session_limit", Value: ms.SessionLimit},
		{Key: "zbx1c.cluster.session_percent", Value: ms.SessionPercent},
		{Key: "zbx1c.cluster.infobase_session_limit", Value: ms.InfobaseSessionLimit},
		{Key: "zbx1c.cluster.total_infobases", Value: ms.TotalInfobases},
		{Key: "zbx1c.cluster.total_servers", Value: ms.TotalServers},
		{Key: "zbx1c.cluster.working_servers", Value: ms.WorkingServers},
		{Key: "zbx1c.cluster.servers_restarted_recently", Value: ms.ServersRestartedRecently},
		{Key: "zbx1c.cluster.memory_used_kb", Value: ms.MemoryUsedKB},
		{Key: "zbx1c.cluster.memory_limit_kb", Value: ms.MemoryLimitKB},
		{Key: "zbx1c.cluster.memory_limit_is_set", Value: ms.MemoryLimitSet},
		{Key: "zbx1c.cluster.memory_percent", Value: ms.MemoryPercent},
	}
}
