// Package config loads pipeline settings from defaults, an optional YAML
// file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourorg/cc-corpus/internal/dispatch"
	"github.com/yourorg/cc-corpus/internal/iopkg"
	"github.com/yourorg/cc-corpus/internal/pipeline"
	"github.com/yourorg/cc-corpus/internal/quality"
	"github.com/yourorg/cc-corpus/internal/record"
	"github.com/yourorg/cc-corpus/internal/sink"
)

const (
	configPathEnv = "CC_CONFIG"
	rootEnv       = "CC_PATH"
	workersEnv    = "CC_WORKERS"
	overwriteEnv  = "CC_OVERWRITE"
	policyEnv     = "CC_POLICY"
	ledgerEnv     = "CC_LEDGER_DIR"
	publishEnv    = "CC_PUBLISH_URI"
	sourceBaseEnv = "CC_SOURCE_BASE"
	logLevelEnv   = "LOG_LEVEL"
	metricsEnv    = "METRICS_ADDR"
	namespaceEnv  = "TEMPORAL_NAMESPACE"
	taskQueueEnv  = "TEMPORAL_TASK_QUEUE"
)

var ErrInvalid = errors.New("invalid config")

// Config is the full set of settings shared by the CLI, worker and API.
type Config struct {
	Root       string         `yaml:"cc_path"`
	SourceBase string         `yaml:"source_base"`
	Workers    int            `yaml:"workers"`
	Overwrite  string         `yaml:"overwrite"`
	Policy     string         `yaml:"policy"`
	LedgerDir  string         `yaml:"ledger_dir"`
	PublishURI string         `yaml:"publish_uri"`
	Cleanup    bool           `yaml:"cleanup"`
	Quality    quality.Config `yaml:"quality"`
	// SkipExtractErrors drops captures the extractor fails on instead of
	// failing the archive.
	SkipExtractErrors bool `yaml:"skip_extract_errors"`

	Sink     sink.Options   `yaml:"sink"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Temporal TemporalConfig `yaml:"temporal"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// TemporalConfig locates the Temporal frontend used by the worker and API.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

// Default is the configuration before any file or env is applied.
func Default() Config {
	return Config{
		Root:       "/var/cc-corpus",
		SourceBase: pipeline.DefaultSourceBase,
		Overwrite:  iopkg.Rename.String(),
		Policy:     dispatch.FailFast.String(),
		Quality:    quality.DefaultConfig(),
		Sink: sink.Options{
			FlushThreshold:  sink.DefaultFlushThreshold,
			InitialCapacity: sink.DefaultInitialCapacity,
		},
		Log:     LogConfig{Level: "info"},
		Metrics: MetricsConfig{Addr: ":9090"},
		Temporal: TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "cc-corpus",
		},
	}
}

// Load applies the YAML file at path (or $CC_CONFIG when path is empty)
// and then environment overrides over the defaults, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		rootEnv:       &c.Root,
		overwriteEnv:  &c.Overwrite,
		policyEnv:     &c.Policy,
		ledgerEnv:     &c.LedgerDir,
		publishEnv:    &c.PublishURI,
		sourceBaseEnv: &c.SourceBase,
		logLevelEnv:   &c.Log.Level,
		metricsEnv:    &c.Metrics.Addr,
		namespaceEnv:  &c.Temporal.Namespace,
		taskQueueEnv:  &c.Temporal.TaskQueue,
	}
	for k, dst := range str {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}
	// Support both TEMPORAL_TARGET_HOST and TEMPORAL_ADDRESS for compatibility
	if v := os.Getenv("TEMPORAL_TARGET_HOST"); v != "" {
		c.Temporal.HostPort = v
	} else if v := os.Getenv("TEMPORAL_ADDRESS"); v != "" {
		c.Temporal.HostPort = v
	}
	if v := os.Getenv(workersEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, workersEnv, v)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks every enumerated field once, at load time.
func (c Config) Validate() error {
	if _, err := record.NewLayout(c.Root); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers)
	}
	if _, err := iopkg.ParseOverwrite(c.Overwrite); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := dispatch.ParsePolicy(c.Policy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	if c.Quality.MinWords < 0 || (c.Quality.MaxWords > 0 && c.Quality.MaxWords < c.Quality.MinWords) {
		return fmt.Errorf("%w: word band %d..%d", ErrInvalid, c.Quality.MinWords, c.Quality.MaxWords)
	}
	return nil
}

// Layout is the storage layout rooted at cc_path.
func (c Config) Layout() record.Layout {
	l, _ := record.NewLayout(c.Root)
	return l
}

// OverwritePolicy is the parsed overwrite field.
func (c Config) OverwritePolicy() iopkg.Overwrite {
	o, _ := iopkg.ParseOverwrite(c.Overwrite)
	return o
}

// BatchPolicy is the parsed policy field.
func (c Config) BatchPolicy() dispatch.Policy {
	p, _ := dispatch.ParsePolicy(c.Policy)
	return p
}

// RunnerOptions derives the stage runner options.
func (c Config) RunnerOptions() pipeline.Options {
	return pipeline.Options{
		SourceBase: c.SourceBase,
		Overwrite:  c.OverwritePolicy(),
		Sink:       c.Sink,
	}
}
