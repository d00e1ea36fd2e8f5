// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"time"

	"github.com/onec-tools/zbx1c/rac"
)

// ActivityPolicy names a session activity heuristic. The heuristics evolved
// over time and none of them was ever declared final, so the classifier keeps
// all three selectable.
type ActivityPolicy string

const (
	// PolicyLayered: a recent last-active timestamp alone is sufficient;
	// with a stale timestamp the session must be awake and show call or
	// traffic activity. Default.
	PolicyLayered ActivityPolicy = "layered"
	// PolicyTraffic: awake and showing call or traffic activity, timestamps
	// ignored.
	PolicyTraffic ActivityPolicy = "traffic"
	// PolicyRecency: recent last-active timestamp, nothing else.
	PolicyRecency ActivityPolicy = "recency"
)

func (p ActivityPolicy) IsValid() bool {
	switch p {
	case PolicyLayered, PolicyTraffic, PolicyRecency:
		return true
	}
	return false
}

// ClassifierConfig tunes the activity heuristics. Zero values fall back to
// the defaults below.
type ClassifierConfig struct {
	Policy ActivityPolicy

	// Recency thresholds per application type.
	DefaultThreshold  time.Duration // 5m
	DesignerThreshold time.Duration // 10m
	JobThreshold      time.Duration // 5m, BackgroundJob and SystemBackgroundJob

	// Floors for the call/traffic check (logical OR).
	MinCalls int64 // 1
	MinBytes int64 // 1
}

func (cfg ClassifierConfig) withDefaults() ClassifierConfig {
	if !cfg.Policy.IsValid() {
		cfg.Policy = PolicyLayered
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 5 * time.Minute
	}
	if cfg.DesignerThreshold <= 0 {
		cfg.DesignerThreshold = 10 * time.Minute
	}
	if cfg.JobThreshold <= 0 {
		cfg.JobThreshold = 5 * time.Minute
	}
	if cfg.MinCalls <= 0 {
		cfg.MinCalls = 1
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 1
	}
	return cfg
}

// Classifier decides whether a session counts toward "active" totals. It is
// a pure function of the session fields and the supplied clock; it never
// mutates sessions.
type Classifier struct {
	cfg ClassifierConfig
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg.withDefaults()}
}

// IsActive applies the configured policy to one session.
func (c *Classifier) IsActive(s rac.Session, now time.Time) bool {
	threshold, always := c.thresholdFor(s.AppID)
	if always {
		return true
	}

	switch c.cfg.Policy {
	case PolicyRecency:
		return recentlyActive(s, now, threshold)
	case PolicyTraffic:
		return !s.Hibernating && c.hasCallOrTrafficActivity(s)
	default: // PolicyLayered
		if recentlyActive(s, now, threshold) {
			return true
		}
		return !s.Hibernating && c.hasCallOrTrafficActivity(s)
	}
}

// thresholdFor returns the recency threshold for an application type. The
// second result reports an infinite threshold (always active), which only the
// job scheduler gets.
func (c *Classifier) thresholdFor(appID string) (time.Duration, bool) {
	switch appID {
	case rac.AppJobScheduler:
		return 0, true
	case rac.AppDesigner:
		return c.cfg.DesignerThreshold, false
	case rac.AppBackgroundJob, rac.AppSystemBackgroundJob:
		return c.cfg.JobThreshold, false
	default:
		return c.cfg.DefaultThreshold, false
	}
}

// recentlyActive reports whether the session's last activity falls within
// threshold of now. A zero (missing or unparsable) timestamp is never recent,
// and a timestamp in the future is bad data, not "maximally recent".
func recentlyActive(s rac.Session, now time.Time, threshold time.Duration) bool {
	if s.LastActiveAt.IsZero() || s.LastActiveAt.After(now) {
		return false
	}
	return now.Sub(s.LastActiveAt) <= threshold
}

// hasCallOrTrafficActivity checks the 5-minute call and byte counters. The
// two floors are ORed: traffic with zero calls still counts, and vice versa.
func (c *Classifier) hasCallOrTrafficActivity(s rac.Session) bool {
	return s.CallsLast5Min >= c.cfg.MinCalls || s.BytesLast5Min >= c.cfg.MinBytes
}
