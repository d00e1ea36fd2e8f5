// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"context"
	"fmt"
)

// SessionSummary breaks one cluster's sessions down by user and application
// type, for the HTTP detail view.
type SessionSummary struct {
	ClusterID   string `json:"cluster_id"`
	Total       int    `json:"total"`
	Active      int    `json:"active"`
	Hibernating int    `json:"hibernating"`

	ByUser map[string]int `json:"by_user"`
	ByApp  map[string]int `json:"by_app"`
}

// SessionSummary returns the per-user/per-application session breakdown for
// one cluster. Unlike the metrics path, a failed session fetch is an error
// here: an empty breakdown would be indistinguishable from an idle cluster.
func (m *Monitor) SessionSummary(ctx context.Context, clusterID string) (SessionSummary, error) {
	cluster, err := m.findCluster(ctx, clusterID)
	if err != nil {
		return SessionSummary{}, err
	}

	sessions, err := m.client.Sessions(ctx, cluster.ID)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("cluster %s: %w", cluster.ID, err)
	}

	now := m.now()
	s := SessionSummary{
		ClusterID: cluster.ID,
		ByUser:    make(map[string]int),
		ByApp:     make(map[string]int),
	}

	for _, sess := range sessions {
		s.Total++
		if m.assembler.classifier.IsActive(sess, now) {
			s.Active++
		}
		if sess.Hibernating {
			s.Hibernating++
		}

		user := sess.UserName
		if user == "" {
			user = "unknown"
		}
		s.ByUser[user]++

		app := sess.AppID
		if app == "" {
			app = "unknown"
		}
		s.ByApp[app]++
	}

	return s, nil
}
