// Package config loads settings for training and serving.
//
// Precedence, lowest first: built-in defaults, the YAML file named by
// --config or ABALONE_CONFIG, ABALONE_* environment variables, then CLI
// flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
	"github.com/YuminosukeSato/abalone/pkg/retry"
	"github.com/YuminosukeSato/abalone/selection"
	"github.com/YuminosukeSato/abalone/sklearn/gbdt"
)

// Environment variables.
const (
	EnvConfigFile   = "ABALONE_CONFIG"
	EnvDataPath     = "ABALONE_DATA_PATH"
	EnvModelPath    = "ABALONE_MODEL_PATH"
	EnvAddr         = "ABALONE_ADDR"
	EnvLogLevel     = "ABALONE_LOG_LEVEL"
	EnvLogFormat    = "ABALONE_LOG_FORMAT"
	EnvTrackingPath = "ABALONE_TRACKING_PATH"
	EnvRetryDelay   = "ABALONE_RETRY_DELAY"
	EnvRetryMax     = "ABALONE_RETRY_MAX_ATTEMPTS"
	EnvCacheSize    = "ABALONE_CACHE_SIZE"
)

type Config struct {
	Data     DataConfig     `yaml:"data"`
	Model    ModelConfig    `yaml:"model"`
	Training TrainingConfig `yaml:"training"`
	Retry    RetryConfig    `yaml:"retry"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Tracking TrackingConfig `yaml:"tracking"`
}

type DataConfig struct {
	Path string `yaml:"path"`
}

type ModelConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cacheSize"`
}

type TrainingConfig struct {
	DropRings bool        `yaml:"dropRings"`
	TestSize  float64     `yaml:"testSize"`
	Seed      uint64      `yaml:"seed"`
	Params    gbdt.Params `yaml:"params"`
	PlotPath  string      `yaml:"plotPath"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	Delay       time.Duration `yaml:"delay"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TrackingConfig struct {
	// Path of the bbolt file. Empty means runs are only logged.
	Path       string `yaml:"path"`
	Experiment string `yaml:"experiment"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Data:  DataConfig{Path: "data/abalone.csv"},
		Model: ModelConfig{Path: "models/model.abalone", CacheSize: 4},
		Training: TrainingConfig{
			DropRings: true,
			TestSize:  selection.DefaultTestSize,
			Seed:      selection.DefaultSeed,
			Params:    gbdt.DefaultParams(),
		},
		Retry: RetryConfig{
			MaxAttempts: retry.DefaultMaxAttempts,
			Delay:       retry.DefaultDelay,
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log:      LogConfig{Level: "info", Format: "json"},
		Tracking: TrackingConfig{Experiment: "abalone-age"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// ABALONE_CONFIG when path is empty) and the environment.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// mergeFile overlays the YAML file onto cfg. Keys absent from the file keep
// their current values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIOError("read config", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewValueError("config.Load", fmt.Sprintf("parse %s: %v", path, err))
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDataPath); ok && v != "" {
		c.Data.Path = v
	}
	if v, ok := lookup(EnvModelPath); ok && v != "" {
		c.Model.Path = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvTrackingPath); ok {
		c.Tracking.Path = v
	}
	if v, ok := lookup(EnvRetryDelay); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewValueError("config.Load", fmt.Sprintf("%s: %v", EnvRetryDelay, err))
		}
		c.Retry.Delay = d
	}
	if v, ok := lookup(EnvRetryMax); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValueError("config.Load", fmt.Sprintf("%s: %v", EnvRetryMax, err))
		}
		c.Retry.MaxAttempts = n
	}
	if v, ok := lookup(EnvCacheSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValueError("config.Load", fmt.Sprintf("%s: %v", EnvCacheSize, err))
		}
		c.Model.CacheSize = n
	}
	return nil
}

// Validate checks the assembled configuration.
func (c Config) Validate() error {
	switch {
	case c.Data.Path == "":
		return errors.NewValueError("config.Validate", "data path is required")
	case c.Model.Path == "":
		return errors.NewValueError("config.Validate", "model path is required")
	case c.Model.CacheSize < 1:
		return errors.NewValueError("config.Validate", "model cache size must be >= 1")
	case c.Training.TestSize <= 0 || c.Training.TestSize >= 1:
		return errors.NewValueError("config.Validate", "training test size must be in (0, 1)")
	case c.Retry.MaxAttempts < 1:
		return errors.NewValueError("config.Validate", "retry max attempts must be >= 1")
	case c.Retry.Delay < 0:
		return errors.NewValueError("config.Validate", "retry delay must not be negative")
	case c.Server.Addr == "":
		return errors.NewValueError("config.Validate", "server address is required")
	}
	if _, ok := log.ParseLevel(c.Log.Level); !ok {
		return errors.NewValueError("config.Validate", fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return errors.NewValueError("config.Validate", fmt.Sprintf("invalid log format %q", c.Log.Format))
	}
	return c.Training.Params.Validate()
}

// RetryPolicy returns the step retry policy described by the configuration.
func (c Config) RetryPolicy() retry.Policy {
	return retry.DefaultPolicy().
		WithMaxAttempts(c.Retry.MaxAttempts).
		WithDelay(c.Retry.Delay)
}

// SplitOptions returns the train/test split settings.
func (c Config) SplitOptions() selection.SplitOptions {
	return selection.SplitOptions{TestSize: c.Training.TestSize, Seed: c.Training.Seed}
}
