// SPDX-License-Identifier: GPL-3.0-or-later

// zbx1c is a Zabbix external script for 1C:Enterprise cluster monitoring.
// It queries the cluster administration service through the rac tool and
// prints JSON: LLD discovery, per-cluster metrics, or a RAS reachability
// check. Stdout carries nothing but the payload; logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/onec-tools/zbx1c/config"
	"github.com/onec-tools/zbx1c/logger"
	"github.com/onec-tools/zbx1c/monitor"
	"github.com/onec-tools/zbx1c/rac"
	"github.com/onec-tools/zbx1c/web"
	"github.com/onec-tools/zbx1c/zabbix"
)

var version = "dev"

type option struct {
	Discovery bool   `short:"D" long:"discovery" description:"print Zabbix LLD discovery JSON and exit"`
	CheckRAS  bool   `long:"check-ras" description:"probe the administration service port and exit"`
	Serve     bool   `long:"serve" description:"run the HTTP API instead of a one-shot command"`
	Keys      bool   `short:"k" long:"keys" description:"print metrics as flat trapper key/value pairs"`
	Config    string `short:"c" long:"config" description:"path to YAML config file"`
	Indent    bool   `short:"i" long:"json-indent" description:"indent JSON output"`
	Debug     bool   `short:"d" long:"debug" description:"debug mode"`
	Version   bool   `short:"v" long:"version" description:"display version and exit"`
}

func parseCLI() (*option, []string) {
	var opt option
	parser := flags.NewParser(&opt, flags.Default)
	parser.Name = "zbx1c"
	parser.Usage = "[OPTIONS] [cluster-id]"

	rest, err := parser.ParseArgs(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	return &opt, rest
}

func main() {
	opt, rest := parseCLI()

	if opt.Version {
		fmt.Printf("zbx1c, version: %s\n", version)
		return
	}

	// Quiet by default: Zabbix reads stdout, noise on stderr still ends up
	// in the agent log.
	logger.Level.SetByName("error")
	if opt.Debug {
		logger.Level.Set(slog.LevelDebug)
	}

	log := logger.New().With("plugin", "zbx1c")

	cfg, err := config.Load(opt.Config)
	if err != nil {
		log.Errorf("configuration: %v", err)
		os.Exit(1)
	}

	client := rac.NewClient(rac.Config{
		BinaryPath:  cfg.RACPath,
		Host:        cfg.RACHost,
		Port:        cfg.RACPort,
		ClusterUser: cfg.ClusterUser,
		ClusterPass: cfg.ClusterPass,
		Timeout:     cfg.Timeout.Duration(),
		CacheTTL:    cfg.ClusterCacheTTL.Duration(),
	}, log)

	mon := monitor.New(client, cfg.MonitorConfig(), log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, opt, rest, cfg, mon, log))
}

func run(ctx context.Context, opt *option, rest []string, cfg config.Config, mon *monitor.Monitor, log *logger.Logger) int {
	switch {
	case opt.CheckRAS:
		return checkRAS(cfg, opt.Indent)

	case opt.Discovery:
		clusters, err := mon.DiscoverClusters(ctx)
		if err != nil {
			log.Errorf("discovery: %v", err)
			return 1
		}
		printJSON(zabbix.NewDiscovery(clusters), opt.Indent)
		return 0

	case opt.Serve:
		srv := web.New(cfg.HTTPAddr, mon, log)
		if err := srv.Run(ctx); err != nil {
			log.Errorf("http server: %v", err)
			return 1
		}
		return 0

	default:
		return clusterMetrics(ctx, opt, rest, mon, log)
	}
}

func clusterMetrics(ctx context.Context, opt *option, rest []string, mon *monitor.Monitor, log *logger.Logger) int {
	clusterID := ""
	if len(rest) > 0 {
		clusterID = strings.TrimSpace(rest[0])
	}

	// Without an argument report the first discovered cluster, the way the
	// original single-cluster deployments call it.
	if clusterID == "" {
		clusters, err := mon.DiscoverClusters(ctx)
		if err != nil || len(clusters) == 0 {
			log.Errorf("no clusters discoverable: %v", err)
			printJSON(monitor.ClusterMetrics{ClusterName: "unknown", Status: rac.StatusUnknown}, opt.Indent)
			return 1
		}
		clusterID = clusters[0].ID
	}

	m, err := mon.ClusterMetrics(ctx, clusterID)
	if err != nil {
		log.Errorf("metrics for cluster %s: %v", clusterID, err)
		if errors.Is(err, monitor.ErrClusterNotFound) {
			// Keep the item populated with an explicit zero payload; the
			// not-found condition is still signaled via the exit code.
			printJSON(monitor.ClusterMetrics{ClusterID: clusterID, ClusterName: "unknown", Status: rac.StatusUnknown}, opt.Indent)
		}
		return 1
	}

	if opt.Keys {
		printJSON(zabbix.Keys(m), opt.Indent)
	} else {
		printJSON(m, opt.Indent)
	}
	return 0
}

func checkRAS(cfg config.Config, indent bool) int {
	available := monitor.ProbeTCP(cfg.RACHost, cfg.RACPort, cfg.ProbeTimeout.Duration())

	printJSON(map[string]any{
		"host":      cfg.RACHost,
		"port":      cfg.RACPort,
		"available": available,
	}, indent)

	if !available {
		return 1
	}
	return 0
}

func printJSON(v any, indent bool) {
	enc := json.NewEncoder(os.Stdout)
	if indent {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
