// SPDX-License-Identifier: GPL-3.0-or-later

package rac

import (
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

// Application type tags as the platform reports them in session lists.
const (
	AppDesigner            = "Designer"
	AppThinClient          = "1CV8C"
	AppBackgroundJob       = "BackgroundJob"
	AppSystemBackgroundJob = "SystemBackgroundJob"
	AppJobScheduler        = "JobScheduler"
)

// Cluster availability as derived by probing the worker-server port.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
	StatusUnknown     = "unknown"
)

// Cluster is one entry of `cluster list`.
type Cluster struct {
	ID     string
	Name   string
	Host   string
	Port   int
	Status string
}

// Session is one entry of `session list --cluster=ID`.
type Session struct {
	ID            string
	Number        int64
	UserName      string
	AppID         string
	Infobase      string
	Host          string
	StartedAt     time.Time
	LastActiveAt  time.Time
	Hibernating   bool
	CallsLast5Min int64
	BytesLast5Min int64
}

// WorkingServer is one entry of `server list --cluster=ID`.
// ConnectionsLimit is the connection limit PER WORKER PROCESS, not per
// server; the cluster-wide session limit multiplies it by the number of
// worker processes on the host.
type WorkingServer struct {
	Name             string
	Host             string
	Port             int
	ConnectionsLimit int64
	MemoryLimitKB    int64 // 0 means no limit configured
}

// Process is one worker process (rphost) from `process list --cluster=ID`.
type Process struct {
	ID          string
	PID         int64
	Host        string
	Port        int
	MemoryKB    int64
	Connections int64
	Running     bool
	StartedAt   time.Time
}

// Infobase is one entry of `infobase summary list --cluster=ID`.
// MaxConnections of 0 means unlimited.
type Infobase struct {
	ID             string
	Name           string
	Descr          string
	MaxConnections int64
}

func clusterFromRecord(r Record) (Cluster, bool) {
	id := r.String("cluster")
	if id == "" {
		id = r.String("id")
	}
	if uuid.Validate(id) != nil {
		return Cluster{}, false
	}
	c := Cluster{
		ID:     id,
		Name:   r.String("name"),
		Host:   r.String("host"),
		Port:   int(r.Int("port")),
		Status: StatusUnknown,
	}
	if c.Name == "" {
		c.Name = "unknown"
	}
	return c, true
}

func sessionFromRecord(r Record) Session {
	return Session{
		ID:            r.String("session"),
		Number:        r.Int("session-id"),
		UserName:      r.String("user-name"),
		AppID:         r.String("app-id"),
		Infobase:      r.String("infobase"),
		Host:          r.String("host"),
		StartedAt:     parseTime(r.String("started-at")),
		LastActiveAt:  parseTime(r.String("last-active-at")),
		Hibernating:   r.String("hibernate") == "yes",
		CallsLast5Min: r.Int("calls-last-5min"),
		BytesLast5Min: r.Int("bytes-last-5min"),
	}
}

func workingServerFromRecord(r Record) WorkingServer {
	return WorkingServer{
		Name:             r.String("name"),
		Host:             r.String("host"),
		Port:             int(r.Int("port")),
		ConnectionsLimit: r.Int("connections-limit"),
		MemoryLimitKB:    r.Int("memory-limit"),
	}
}

func processFromRecord(r Record) Process {
	return Process{
		ID:          r.String("process"),
		PID:         r.Int("pid"),
		Host:        r.String("host"),
		Port:        int(r.Int("port")),
		MemoryKB:    r.Int("memory-size") / 1024,
		Connections: r.Int("connections"),
		Running:     r.Bool("running"),
		StartedAt:   parseTime(r.String("started-at")),
	}
}

func infobaseFromRecord(r Record) Infobase {
	return Infobase{
		ID:             r.String("infobase"),
		Name:           r.String("name"),
		Descr:          r.String("descr"),
		MaxConnections: r.Int("max-connections"),
	}
}

// parseTime parses the tool's ISO-8601 timestamps, with or without a zone
// suffix. An empty or unparsable value yields the zero time; callers treat
// zero as "unknown", never as an error.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseLocal(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
