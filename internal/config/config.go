package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the CLI looks for a config file when --config is not set.
const DefaultPath = "./reptrack.toml"

type Config struct {
	// logging
	LogLevel string `toml:"log_level"`
	// pose worker
	PythonBin     string   `toml:"python_bin"`
	WorkerScript  string   `toml:"worker_script"`
	WorkerTimeout Duration `toml:"worker_timeout"`
	// frame source
	Device string `toml:"device"`
	// tracking
	MinVisibility float64 `toml:"min_visibility"`
	// metrics
	MetricsAddr string `toml:"metrics_addr"`
}

// Duration lets TOML files spell durations as "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() *Config {
	return &Config{
		LogLevel:      "info",
		PythonBin:     "python3",
		WorkerScript:  "python/pose_worker.py",
		WorkerTimeout: Duration{10 * time.Second},
		Device:        "",
		MinVisibility: 0,
	}
}

// Load reads path on top of the defaults. A missing file is not an error
// when optional is true.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML from a string on top of the defaults.
func Decode(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MinVisibility < 0 || c.MinVisibility > 1 {
		return fmt.Errorf("min_visibility must be between 0.0 and 1.0, got %g", c.MinVisibility)
	}
	if c.WorkerTimeout.Duration < 0 {
		return fmt.Errorf("worker_timeout must not be negative, got %s", c.WorkerTimeout)
	}
	if c.PythonBin == "" {
		return errors.New("python_bin must not be empty")
	}
	if c.WorkerScript == "" {
		return errors.New("worker_script must not be empty")
	}
	return nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
