// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"time"

	"github.com/onec-tools/zbx1c/rac"
)

// Job is a background job, a derived view over a session whose application
// type is one of the background-job tags.
type Job struct {
	SessionID   string
	AppID       string
	Infobase    string
	Host        string
	StartedAt   time.Time
	Hibernating bool
}

// JobsFromSessions filters the session list down to background jobs.
func JobsFromSessions(sessions []rac.Session) []Job {
	var jobs []Job
	for _, s := range sessions {
		switch s.AppID {
		case rac.AppBackgroundJob, rac.AppSystemBackgroundJob, rac.AppJobScheduler:
			jobs = append(jobs, Job{
				SessionID:   s.ID,
				AppID:       s.AppID,
				Infobase:    s.Infobase,
				Host:        s.Host,
				StartedAt:   s.StartedAt,
				Hibernating: s.Hibernating,
			})
		}
	}
	return jobs
}

// IsActive reports whether the job counts as running. The scheduler session
// is always active regardless of its other fields; user and system jobs are
// active unless hibernating.
func (j Job) IsActive() bool {
	if j.AppID == rac.AppJobScheduler {
		return true
	}
	return !j.Hibernating
}

// Status renders the computed running/idle state.
func (j Job) Status() string {
	if j.IsActive() {
		return "running"
	}
	return "idle"
}

// Duration is the job's age at now. A missing or future start timestamp
// yields zero.
func (j Job) Duration(now time.Time) time.Duration {
	if j.StartedAt.IsZero() || j.StartedAt.After(now) {
		return 0
	}
	return now.Sub(j.StartedAt)
}

// IsStuck flags a user or system background job that has been running longer
// than threshold without hibernating. Scheduler sessions live for the
// cluster's whole uptime and are never stuck.
func (j Job) IsStuck(now time.Time, threshold time.Duration) bool {
	switch j.AppID {
	case rac.AppBackgroundJob, rac.AppSystemBackgroundJob:
	default:
		return false
	}
	if j.Hibernating {
		return false
	}
	return j.Duration(now) > threshold
}
