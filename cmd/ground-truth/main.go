package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

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

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := logger.InitWithOptions(logger.Options{Writer: stderr}); err != nil {
		fmt.Fprintf(stderr, "failed to initialize logging: %v\n", err)
		return exitFailure
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitFailure
	}

	fs := flag.NewFlagSet("ground-truth", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Data.Properties, "properties", cfg.Data.Properties, "Property catalog JSON")
	fs.StringVar(&cfg.Data.Profiles, "profiles", cfg.Data.Profiles, "Profiles JSON")
	fs.StringVar(&cfg.Labels.Output, "out", cfg.Labels.Output, "Ground truth output JSON")
	fs.IntVar(&cfg.Labels.PerProfile, "n", cfg.Labels.PerProfile, "Matches kept per profile")
	fs.StringVar(&cfg.Labels.Rule, "rule", cfg.Labels.Rule, "CEL eligibility rule over property and profile")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return exitUsage
	}

	svc := app.New(
		app.WithConfig(cfg),
		app.WithLogger(logger.Get()),
		app.WithMetrics(metrics.NewManager(metrics.WithRun("ground-truth", cfg.Synth.Seed))),
	)
	ds, err := svc.LoadCatalog(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load data: %v\n", err)
		return exitFailure
	}
	gt, err := svc.Label(ctx, ds)
	if err != nil {
		fmt.Fprintf(stderr, "labelling failed: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "ground truth for %d of %d profiles saved to %s\n", len(gt), len(ds.Profiles), cfg.Labels.Output)
	return exitOK
}
