package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/okian/matchtune/internal/app"
	"github.com/okian/matchtune/internal/config"
	"github.com/okian/matchtune/pkg/logger"
	"github.com/okian/matchtune/pkg/metrics"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usage = `matchtune tunes property/profile match weights for NDCG@10.

Usage:
  matchtune [flags] [evaluate|optimize]

Commands:
  evaluate   score the configured weights against the ground truth
  optimize   search for better weights and print a report (default)

Configuration is layered: defaults, the YAML file named by -config or
MATCHTUNE_CONFIG, then MATCHTUNE_* environment variables (nested keys use
"__", e.g. MATCHTUNE_OPTIMIZER__SEED=7). Flags override all of them.

Flags:
`

const groundTruthHelp = `no ground truth found. Create one of:
  - a hand-labelled file at %s ({"ground_truth": {"<profile_id>": [{"property_id": 1, "rank": 1}]}})
  - a rule-based file with: go run ./cmd/ground-truth
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// overrides are flag values applied on top of the loaded configuration.
type overrides struct {
	configPath  string
	properties  string
	profiles    string
	groundTruth string
	seed        int64
	seedSet     bool
	methods     string
	reportPath  string
	format      string
	metricsPath string
	logLevel    string
	logFormat   string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("matchtune", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o overrides
	fs.StringVar(&o.configPath, "config", os.Getenv(config.EnvConfigPath), "YAML config file")
	fs.StringVar(&o.properties, "properties", "", "property catalog JSON")
	fs.StringVar(&o.profiles, "profiles", "", "profiles JSON")
	fs.StringVar(&o.groundTruth, "ground-truth", "", "ground truth JSON")
	fs.Int64Var(&o.seed, "seed", 0, "optimizer seed (default: the configured seed)")
	fs.StringVar(&o.methods, "methods", "", "comma-separated optimizer methods")
	fs.StringVar(&o.reportPath, "report", "", "write the run report to this path")
	fs.StringVar(&o.format, "format", "", "report format: json, yaml or toml")
	fs.StringVar(&o.metricsPath, "metrics", "", "write Prometheus metrics to this textfile")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "", "text or json")
	fs.Usage = func() {
		_, _ = io.WriteString(stderr, usage)
		fs.PrintDefaults()
	}
	command := "optimize"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.seedSet = true
		}
	})
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}
	if command != "optimize" && command != "evaluate" {
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.LoadFile(ctx, o.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitFailure
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return exitUsage
	}

	if err := logger.InitWithOptions(logger.Options{Format: logger.Format(cfg.LogFormat), Writer: stderr}); err != nil {
		fmt.Fprintf(stderr, "failed to initialize logging: %v\n", err)
		return exitFailure
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(
		app.WithConfig(cfg),
		app.WithLogger(log),
		app.WithOutput(stdout),
		app.WithMetrics(metrics.NewManager(metrics.WithRun(command, cfg.Optimizer.Seed))),
	)
	ds, err := svc.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load data", logger.Error(err))
		return exitFailure
	}

	switch command {
	case "evaluate":
		res, warnings, err := svc.Evaluate(ctx, ds)
		if errors.Is(err, app.ErrNoGroundTruth) {
			fmt.Fprintf(stdout, "NDCG@%d: %.4f\n", res.K, res.Mean)
			fmt.Fprintf(stderr, groundTruthHelp, cfg.Data.GroundTruth)
			return exitFailure
		}
		if err != nil {
			log.Error(ctx, "evaluation failed", logger.Error(err))
			return exitFailure
		}
		fmt.Fprintf(stdout, "NDCG@%d: %.4f over %d profiles (%s relevance, empty ground truth: %s)\n",
			res.K, res.Mean, res.Evaluated, res.Relevance, res.Policy)
		for _, p := range res.Profiles {
			if p.Included {
				fmt.Fprintf(stdout, "  %-20s %.4f\n", p.ProfileID, p.NDCG)
			}
		}
		for _, w := range warnings {
			fmt.Fprintf(stdout, "warning: %s\n", w)
		}
	default:
		doc, err := svc.Optimize(ctx, ds)
		if errors.Is(err, app.ErrNoGroundTruth) {
			fmt.Fprintf(stderr, groundTruthHelp, cfg.Data.GroundTruth)
			return exitFailure
		}
		if err != nil {
			log.Error(ctx, "optimization failed", logger.Error(err))
			return exitFailure
		}
		if err := svc.Summarize(doc); err != nil {
			log.Error(ctx, "failed to print summary", logger.Error(err))
			return exitFailure
		}
	}
	return exitOK
}

func (o overrides) apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Data.Properties, o.properties)
	set(&cfg.Data.Profiles, o.profiles)
	set(&cfg.Data.GroundTruth, o.groundTruth)
	set(&cfg.Report.Path, o.reportPath)
	set(&cfg.Report.Format, o.format)
	set(&cfg.Report.MetricsPath, o.metricsPath)
	set(&cfg.LogLevel, o.logLevel)
	set(&cfg.LogFormat, o.logFormat)
	if o.seedSet {
		cfg.Optimizer.Seed = o.seed
	}
	if o.methods != "" {
		cfg.Optimizer.Methods = config.SplitList(o.methods)
	}
}
