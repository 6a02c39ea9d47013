package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sharegraph/dialect"
)

const (
	defaultSchemaPath = "schema.yaml"
	defaultLogLevel   = "info"
	defaultSlowQuery  = 200 * time.Millisecond
)

// Config holds the settings shared by every subcommand. Values come from
// the YAML file named by -config or SHAREGRAPH_CONFIG, then SHAREGRAPH_*
// environment variables, then flags.
type Config struct {
	SchemaPath string              `yaml:"schema"`
	Driver     string              `yaml:"driver"`
	DSN        string              `yaml:"dsn"`
	Workers    int                 `yaml:"workers"`
	LogLevel   string              `yaml:"log_level"`
	SlowQuery  time.Duration       `yaml:"slow_query"`
	Metrics    string              `yaml:"metrics"`
	IDTags     map[string]uint8    `yaml:"id_tags"`
	Identity   map[string][]string `yaml:"identity"`
}

// LoadConfig parses the common flags of a subcommand. Flags specific to
// the subcommand are registered by setup before parsing. The remaining
// positional arguments are returned. Help output for -h goes to out, and
// bad flags fail with an error wrapping errUsage.
func LoadConfig(name string, args []string, out io.Writer, setup func(*flag.FlagSet)) (Config, []string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, nil, fmt.Errorf("failed to get cwd: %w", err)
	}
	cfg := Config{
		SchemaPath: defaultSchemaPath,
		LogLevel:   defaultLogLevel,
		SlowQuery:  defaultSlowQuery,
	}

	flagSet := flag.NewFlagSet("sharegraph "+name, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagConfig := flagSet.String("config", os.Getenv("SHAREGRAPH_CONFIG"), "path to a YAML config file")
	flagSchema := flagSet.String("schema", "", "path to the schema specification")
	flagDriver := flagSet.String("driver", "", "database driver: sqlite|postgres|mysql")
	flagDSN := flagSet.String("dsn", "", "database data source name")
	flagWorkers := flagSet.Int("workers", 0, "records processed at once")
	flagLogLevel := flagSet.String("log-level", "", "log level: debug|info|warn|error")
	flagMetrics := flagSet.String("metrics", "", "write metrics in text format to this file on exit")
	if setup != nil {
		setup(flagSet)
	}
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(out)
			flagSet.PrintDefaults()
			return Config{}, nil, err
		}
		return Config{}, nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	if path := strings.TrimSpace(*flagConfig); path != "" {
		if err := cfg.readFile(resolvePath(path, cwd)); err != nil {
			return Config{}, nil, err
		}
	}
	if err := cfg.readEnv(); err != nil {
		return Config{}, nil, err
	}

	set := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["schema"] {
		cfg.SchemaPath = *flagSchema
	}
	if set["driver"] {
		cfg.Driver = *flagDriver
	}
	if set["dsn"] {
		cfg.DSN = *flagDSN
	}
	if set["workers"] {
		cfg.Workers = *flagWorkers
	}
	if set["log-level"] {
		cfg.LogLevel = *flagLogLevel
	}
	if set["metrics"] {
		cfg.Metrics = *flagMetrics
	}

	cfg.SchemaPath = resolvePath(cfg.SchemaPath, cwd)
	cfg.Metrics = resolvePath(cfg.Metrics, cwd)
	if err := cfg.validate(); err != nil {
		return Config{}, nil, err
	}
	return cfg, flagSet.Args(), nil
}

func (c *Config) readFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) readEnv() error {
	c.SchemaPath = envOrDefault("SHAREGRAPH_SCHEMA", c.SchemaPath)
	c.Driver = envOrDefault("SHAREGRAPH_DRIVER", c.Driver)
	c.DSN = envOrDefault("SHAREGRAPH_DSN", c.DSN)
	c.LogLevel = envOrDefault("SHAREGRAPH_LOG_LEVEL", c.LogLevel)
	c.Metrics = envOrDefault("SHAREGRAPH_METRICS", c.Metrics)
	if v := os.Getenv("SHAREGRAPH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHAREGRAPH_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("SHAREGRAPH_SLOW_QUERY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SHAREGRAPH_SLOW_QUERY: %w", err)
		}
		c.SlowQuery = d
	}
	return nil
}

func (c *Config) validate() error {
	if c.SchemaPath == "" {
		return errors.New("schema cannot be empty")
	}
	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch {
	case c.Driver == "" && c.DSN != "":
		return errors.New("dsn requires driver")
	case c.Driver != "" && !dialect.Supported(c.Driver):
		return fmt.Errorf("unsupported driver: %s", c.Driver)
	case c.Driver != "" && c.DSN == "":
		return fmt.Errorf("driver %s requires dsn", c.Driver)
	}
	return nil
}

// Logger returns a JSON logger at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unsupported log level: %s", s)
	}
	return level, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
