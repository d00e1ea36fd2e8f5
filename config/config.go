// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the adapter configuration: compiled-in defaults, then
// an optional YAML file, then environment variables (with .env support, the
// way the Zabbix agent deployments ship it). The result is a plain struct
// handed to constructors; there is no ambient global.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/onec-tools/zbx1c/monitor"
	"github.com/onec-tools/zbx1c/pkg/confopt"
)

type Config struct {
	RACPath     string `yaml:"rac_path" env:"RAC_PATH"`
	RACHost     string `yaml:"rac_host" env:"RAC_HOST"`
	RACPort     int    `yaml:"rac_port" env:"RAC_PORT"`
	ClusterUser string `yaml:"cluster_user" env:"CLUSTER_USER"`
	ClusterPass string `yaml:"cluster_pass" env:"CLUSTER_PASS"`

	Timeout         confopt.Duration `yaml:"timeout" env:"RAC_TIMEOUT"`
	ProbeTimeout    confopt.Duration `yaml:"probe_timeout" env:"PROBE_TIMEOUT"`
	ClusterCacheTTL confopt.Duration `yaml:"cluster_cache_ttl" env:"CLUSTER_CACHE_TTL"`

	ActivityPolicy    string           `yaml:"activity_policy" env:"ACTIVITY_POLICY"`
	ActivityThreshold confopt.Duration `yaml:"activity_threshold" env:"ACTIVITY_THRESHOLD"`
	DesignerThreshold confopt.Duration `yaml:"designer_threshold" env:"DESIGNER_THRESHOLD"`
	JobThreshold      confopt.Duration `yaml:"job_threshold" env:"JOB_THRESHOLD"`
	MinCalls          int64            `yaml:"min_calls" env:"MIN_CALLS"`
	MinBytes          int64            `yaml:"min_bytes" env:"MIN_BYTES"`

	StuckJobThreshold       confopt.Duration `yaml:"stuck_job_threshold" env:"STUCK_JOB_THRESHOLD"`
	LongRunningJobThreshold confopt.Duration `yaml:"long_running_job_threshold" env:"LONG_RUNNING_JOB_THRESHOLD"`
	RestartThreshold        confopt.Duration `yaml:"restart_threshold" env:"RESTART_THRESHOLD"`

	MaxConcurrency int `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`

	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		RACPath:         "rac",
		RACHost:         "127.0.0.1",
		RACPort:         1545,
		Timeout:         confopt.Duration(30 * time.Second),
		ProbeTimeout:    confopt.Duration(5 * time.Second),
		ClusterCacheTTL: confopt.Duration(time.Minute),

		ActivityPolicy:    string(monitor.PolicyLayered),
		ActivityThreshold: confopt.Duration(5 * time.Minute),
		DesignerThreshold: confopt.Duration(10 * time.Minute),
		JobThreshold:      confopt.Duration(5 * time.Minute),
		MinCalls:          1,
		MinBytes:          1,

		StuckJobThreshold:       confopt.Duration(30 * time.Minute),
		LongRunningJobThreshold: confopt.Duration(60 * time.Minute),
		RestartThreshold:        confopt.Duration(5 * time.Minute),

		MaxConcurrency: 4,

		HTTPAddr: "127.0.0.1:9181",
	}
}

// Load builds the configuration. path may be empty (no YAML file). A .env
// file in the working directory is honored the way the original deployments
// expect.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		bs, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(bs, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file '%s': %w", path, err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.RACPath == "" {
		return fmt.Errorf("rac_path must not be empty")
	}
	if c.RACPort < 1 || c.RACPort > 65535 {
		return fmt.Errorf("invalid rac_port %d", c.RACPort)
	}
	if !monitor.ActivityPolicy(c.ActivityPolicy).IsValid() {
		return fmt.Errorf("unknown activity_policy '%s'", c.ActivityPolicy)
	}
	return nil
}

// MonitorConfig maps the flat configuration onto the pipeline knobs.
func (c Config) MonitorConfig() monitor.Config {
	return monitor.Config{
		Classifier: monitor.ClassifierConfig{
			Policy:            monitor.ActivityPolicy(c.ActivityPolicy),
			DefaultThreshold:  c.ActivityThreshold.Duration(),
			DesignerThreshold: c.DesignerThreshold.Duration(),
			JobThreshold:      c.JobThreshold.Duration(),
			MinCalls:          c.MinCalls,
			MinBytes:          c.MinBytes,
		},
		Aggregator: monitor.AggregatorConfig{
			RestartThreshold: c.RestartThreshold.Duration(),
		},
		Assembler: monitor.AssemblerConfig{
			StuckJobThreshold:       c.StuckJobThreshold.Duration(),
			LongRunningJobThreshold: c.LongRunningJobThreshold.Duration(),
		},
		ProbeTimeout:   c.ProbeTimeout.Duration(),
		MaxConcurrency: c.MaxConcurrency,
	}
}
