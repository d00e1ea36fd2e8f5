// SPDX-License-Identifier: GPL-3.0-or-later

package rac

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onec-tools/zbx1c/logger"
)

const stderrLimit = 8 << 10 // 8 KiB

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zbx1c_rac_commands_total",
		Help: "Administration tool invocations by mode and outcome.",
	}, []string{"command", "status"})

	commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zbx1c_rac_command_duration_seconds",
		Help:    "Administration tool invocation duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
)

// Runner executes one administration tool command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

func newToolExec(binPath string, timeout time.Duration, log *logger.Logger) *toolExec {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &toolExec{
		Logger:  log,
		binPath: binPath,
		timeout: timeout,
	}
}

type toolExec struct {
	*logger.Logger

	binPath string
	timeout time.Duration
}

// Run executes the tool with a timeout. On error it wraps the original error
// and includes a trimmed stderr snippet. Context deadline errors are
// normalized so callers can errors.Is(..., context.DeadlineExceeded).
func (e *toolExec) Run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	ex := exec.CommandContext(ctx, e.binPath, args...)

	e.Debugf("executing: %v", ex)

	var stderr bytes.Buffer
	ex.Stderr = &stderr

	mode := "unknown"
	if len(args) > 0 {
		mode = args[0]
	}

	start := time.Now()
	out, err := ex.Output()
	commandDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		commandsTotal.WithLabelValues(mode, "error").Inc()

		s := stderr.String()
		if len(s) > stderrLimit {
			s = s[:stderrLimit] + "… (truncated)"
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}

		return nil, fmt.Errorf("%v: %w (stderr: %s)", ex, err, strings.TrimSpace(s))
	}

	commandsTotal.WithLabelValues(mode, "success").Inc()

	return out, nil
}
