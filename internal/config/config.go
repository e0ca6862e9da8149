// Package config parses the command line and environment of bbgraph.
package config

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

// ErrHelp is returned when -h/--help was requested; usage has been printed.
var ErrHelp = pflag.ErrHelp

// EnvConfig holds defaults taken from the environment. Flags override them.
type EnvConfig struct {
	LogLevel    string `env:"BBGRAPH_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"BBGRAPH_LOG_FORMAT" envDefault:"logfmt"`
	Concurrency int    `env:"BBGRAPH_CONCURRENCY" envDefault:"0"`
	Out         string `env:"BBGRAPH_OUT" envDefault:"."`
}

// ParseEnv reads EnvConfig from the environment.
func ParseEnv() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Config holds the parsed command-line configuration.
type Config struct {
	// TraceDir is the directory holding pid<N>.bb.csv / pid<N>.trace.csv.
	TraceDir string
	// PIDs restricts the run to these processes; empty means all.
	PIDs []int
	// Out is the output directory (json) or database file (sqlite).
	Out    string
	Format string
	Indent bool
	// WriteNodes also writes pid<N>.nodes.json.
	WriteNodes bool
	// Select is an expr thread selection expression.
	Select      string
	Concurrency int
	MetricsFile string
	// TraceID and ParentID attach the run's spans to an existing trace.
	TraceID   string
	ParentID  string
	LogLevel  string
	LogFormat string
	// ShowVersion requests version output only.
	ShowVersion bool
}

// ParseArgs parses command-line arguments on top of environment defaults.
// Expected format: program_name [flags] <trace-dir>
func ParseArgs(args []string, defaults *EnvConfig, stderr io.Writer) (*Config, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no arguments provided")
	}
	if defaults == nil {
		defaults = &EnvConfig{LogLevel: "info", LogFormat: "logfmt", Out: "."}
	}

	programName := args[0]
	cfg := &Config{}

	fs := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [options] <trace-dir>\n\n", programName)
		fmt.Fprintf(stderr, "Builds per-thread weighted control-flow graphs from basic-block traces.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  %s ./traces                    # every process, JSON in .\n", programName)
		fmt.Fprintf(stderr, "  %s -p 4242 -o out ./traces     # one process\n", programName)
		fmt.Fprintf(stderr, "  %s -f sqlite -o g.db ./traces  # SQLite database\n", programName)
		fmt.Fprintf(stderr, "  %s -s 'links > 0' ./traces     # skip threads without links\n", programName)
	}

	fs.IntSliceVarP(&cfg.PIDs, "pid", "p", nil, "Process ids to build (default: all discovered)")
	fs.StringVarP(&cfg.Out, "out", "o", defaults.Out, "Output directory, or database file with --format=sqlite")
	fs.StringVarP(&cfg.Format, "format", "f", FormatJSON, "Output format: json or sqlite")
	fs.BoolVar(&cfg.Indent, "indent", false, "Indent JSON output")
	fs.BoolVar(&cfg.WriteNodes, "nodes", false, "Also write pid<N>.nodes.json")
	fs.StringVarP(&cfg.Select, "select", "s", "", "Thread selection expression, e.g. 'links > 0 && pin_tid < 4'")
	fs.IntVarP(&cfg.Concurrency, "concurrency", "j", defaults.Concurrency, "Processes built in parallel (0: number of CPUs)")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus text metrics to this file on exit")
	fs.StringVar(&cfg.TraceID, "trace-id", "", "Trace id the run's spans join (32 hex chars; other values are hashed)")
	fs.StringVar(&cfg.ParentID, "parent-id", "", "Parent span id of the run span (16 hex chars)")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "Log level: error, warn, info or debug")
	fs.StringVar(&cfg.LogFormat, "log-format", defaults.LogFormat, "Log format: logfmt or json")
	fs.BoolVarP(&cfg.ShowVersion, "version", "V", false, "Print version information")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	if cfg.ShowVersion {
		return cfg, nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one trace directory, got %d arguments", fs.NArg())
	}
	cfg.TraceDir = fs.Arg(0)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Format = strings.ToLower(c.Format)
	switch c.Format {
	case FormatJSON, FormatSQLite:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Format, FormatJSON, FormatSQLite)
	}

	if c.Format == FormatSQLite && (c.Indent || c.WriteNodes) {
		return errors.New("--indent and --nodes only apply to json output")
	}

	switch c.LogLevel {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "logfmt", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Concurrency == 0 {
		c.Concurrency = runtime.NumCPU()
	}

	seen := make(map[int]struct{}, len(c.PIDs))
	pids := c.PIDs[:0]
	for _, pid := range c.PIDs {
		if pid < 0 {
			return fmt.Errorf("invalid pid %d", pid)
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		pids = append(pids, pid)
	}
	c.PIDs = pids
	return nil
}
