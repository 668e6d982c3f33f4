// Package config holds the settings of a run and loads them from a YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AsManyAsTasks makes a container as large as the number of submitted tasks.
const AsManyAsTasks = -1

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "TACTSCHED_"

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// RecordConfig configures the SQLite recorder.
type RecordConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // without the .sqlite3 suffix; empty picks one
}

// MonitorConfig configures the HTTP monitor.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"` // 0 picks a free port
	OpenBrowser bool `yaml:"open_browser"`
}

// TraceConfig configures OpenTelemetry output.
type TraceConfig struct {
	OTelFile string `yaml:"otel_file"` // empty disables tracing
}

// Config holds everything a run needs besides the tasks.
type Config struct {
	StackCapacity int    `yaml:"stack_capacity"`
	QueueCapacity int    `yaml:"queue_capacity"`
	StepMode      bool   `yaml:"step_mode"`
	MaxTacts      uint64 `yaml:"max_tacts"` // 0 means no limit
	Seed          int64  `yaml:"seed"`

	Log     LogConfig     `yaml:"log"`
	Record  RecordConfig  `yaml:"record"`
	Monitor MonitorConfig `yaml:"monitor"`
	Trace   TraceConfig   `yaml:"trace"`
}

// Default returns the settings used when nothing else is given.
func Default() Config {
	return Config{
		StackCapacity: AsManyAsTasks,
		QueueCapacity: AsManyAsTasks,
		Seed:          1,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile overlays the YAML file at path on c. Keys missing from the file
// keep their value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}

// LoadEnv loads the given .env files, if they exist, into the process
// environment and then overlays the TACTSCHED_* variables on c. Variables
// already set in the environment win over .env files.
func (c *Config) LoadEnv(envFiles ...string) error {
	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}

	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok
	}

	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	setInt("STACK_CAPACITY", &c.StackCapacity)
	setInt("QUEUE_CAPACITY", &c.QueueCapacity)
	setBool("STEP_MODE", &c.StepMode)

	if v, ok := get("MAX_TACTS"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_TACTS: %w", EnvPrefix, err))
		} else {
			c.MaxTacts = n
		}
	}

	if v, ok := get("SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSEED: %w", EnvPrefix, err))
		} else {
			c.Seed = n
		}
	}

	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setBool("RECORD", &c.Record.Enabled)
	setString("RECORD_PATH", &c.Record.Path)
	setBool("MONITOR", &c.Monitor.Enabled)
	setInt("MONITOR_PORT", &c.Monitor.Port)
	setBool("OPEN_BROWSER", &c.Monitor.OpenBrowser)
	setString("OTEL_FILE", &c.Trace.OTelFile)

	return errors.Join(errs...)
}

// Validate checks that the settings can be used.
func (c Config) Validate() error {
	if c.StackCapacity < AsManyAsTasks {
		return fmt.Errorf("stack capacity %d is negative", c.StackCapacity)
	}

	if c.QueueCapacity < AsManyAsTasks {
		return fmt.Errorf("queue capacity %d is negative", c.QueueCapacity)
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return fmt.Errorf("monitor port %d is out of range", c.Monitor.Port)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}

// Capacities resolves AsManyAsTasks against the number of tasks.
func (c Config) Capacities(numTasks int) (stack, queue int) {
	stack, queue = c.StackCapacity, c.QueueCapacity

	if stack == AsManyAsTasks {
		stack = numTasks
	}

	if queue == AsManyAsTasks {
		queue = numTasks
	}

	return stack, queue
}
