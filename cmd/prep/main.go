// Command prep normalizes scraped appearance records into the appearances
// table, writing checkpoints, the output CSV and its table schema.
//
// Usage:
//
//	prep -config configs/appearances.yaml [-metrics-backend none|datadog] [-validate]
//	prep -config configs/appearances.yaml -probe [-probe-limit 1000]
//	prep -print-schema
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"prep/internal/appearances"
	"prep/internal/config"
	"prep/internal/logging"
	"prep/internal/metrics"
	"prep/internal/metrics/datadog"
	"prep/internal/pipeline"
	"prep/internal/probe"

	// register all storage backends; the config picks one for checkpoints.
	_ "prep/internal/storage/all"
)

type runner interface {
	Run(ctx context.Context, p config.Pipeline) error
	Probe(ctx context.Context, p config.Pipeline, limit int) (probe.Report, error)
}

// appDeps are the side-effecting collaborators of runMain.
type appDeps struct {
	readFile    func(path string) ([]byte, error)
	unmarshal   func(path string, data []byte, p *config.Pipeline) error
	loadEnv     func(envPath, configPath string) error
	newRunner   func(logger *slog.Logger, runID string) runner
	initMetrics func(ctx context.Context, jobName, backendName, runID string) (func(), error)
}

func defaultDeps() appDeps {
	return appDeps{
		readFile:  os.ReadFile,
		unmarshal: config.Unmarshal,
		loadEnv:   config.LoadEnv,
		newRunner: func(logger *slog.Logger, runID string) runner {
			r := pipeline.NewDefaultRunner(logger)
			r.RunID = runID
			return r
		},
		initMetrics: initMetrics,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// runMain is main without process globals. Exit codes: 0 success, 1 failure,
// 2 usage error.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("prep", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath     string
		backendName string
		envPath     string
		logLevel    string
		logFormat   string
		validate    bool
		printSchema bool
		probeOnly   bool
		probeLimit  int
	)
	fs.StringVar(&cfgPath, "config", "", "pipeline config path (.json, .yaml or .yml)")
	fs.StringVar(&backendName, "metrics-backend", "", "metrics backend: none|datadog (default $METRICS_BACKEND, else none)")
	fs.StringVar(&envPath, "env", "", "dotenv file to load before expanding the config (default: .env next to the config, if present)")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.StringVar(&logFormat, "log-format", "text", "log format: text|json")
	fs.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&printSchema, "print-schema", false, "write the appearances table schema as JSON and exit")
	fs.BoolVar(&probeOnly, "probe", false, "profile the source's flattened paths and exit")
	fs.IntVar(&probeLimit, "probe-limit", 1000, "records to profile with -probe (<= 0 for all)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if printSchema {
		if err := appearances.Schema().WriteJSON(stdout); err != nil {
			fmt.Fprintf(stderr, "print schema: %v\n", err)
			return 1
		}
		return 0
	}

	cfgPath = strings.TrimSpace(cfgPath)
	if cfgPath == "" {
		fmt.Fprintln(stderr, "usage: prep -config <path> [-metrics-backend none|datadog] [-env <file>] [-validate] [-probe]")
		return 2
	}

	if err := deps.loadEnv(envPath, cfgPath); err != nil {
		fmt.Fprintf(stderr, "load env: %v\n", err)
		return 1
	}

	data, err := deps.readFile(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "read config: %v\n", err)
		return 1
	}
	var p config.Pipeline
	if err := deps.unmarshal(cfgPath, data, &p); err != nil {
		fmt.Fprintf(stderr, "parse config: %v\n", err)
		return 1
	}
	p.ExpandEnv()

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintln(stderr, iss.String())
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "invalid config: %s\n", cfgPath)
		return 1
	}
	if validate {
		fmt.Fprintln(stdout, "config ok")
		return 0
	}

	if probeOnly {
		rep, err := deps.newRunner(logging.Setup(stderr, logLevel, logFormat), "").Probe(ctx, p, probeLimit)
		if err != nil {
			fmt.Fprintf(stderr, "probe: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, rep.Format())
		if rep.Records > 0 && len(rep.Missing) > 0 {
			return 1
		}
		return 0
	}

	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	runID := logging.NewRunID()
	logger := logging.Setup(stderr, logLevel, logFormat)

	cleanup, err := deps.initMetrics(ctx, p.Job, backendName, runID)
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := deps.newRunner(logger, runID).Run(ctx, p); err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "ok")
	return 0
}

// metricsBackend is what initMetrics needs from a constructed backend.
type metricsBackend interface {
	Close() error
}

// Seams for tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		b, err := datadog.NewBackend(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	setMetricsBackend = func(b any) {
		if mb, ok := b.(metrics.Backend); ok {
			metrics.SetBackend(mb)
		}
	}
	logPrintf = log.Printf
)

// initMetrics installs the named metrics backend. The returned cleanup is
// never nil and flushes the backend; it is safe to call when err != nil.
//
// Backends:
//   - "", "none", "noop": metrics stay disabled
//   - "datadog", "dd": Datadog, tagged job:<jobName> and run_id:<runID>, plus
//     $METRICS_TAGS (comma separated)
func initMetrics(ctx context.Context, jobName, backendName, runID string) (func(), error) {
	noop := func() {}

	switch strings.ToLower(strings.TrimSpace(backendName)) {
	case "", "none", "noop":
		return noop, nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName: jobName,
			RunID:   runID,
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			return noop, fmt.Errorf("datadog: %w", err)
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
		}, nil

	default:
		return noop, fmt.Errorf("unknown metrics backend %q (want none|datadog)", backendName)
	}
}
