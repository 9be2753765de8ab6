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

	fs := flag.NewFlagSet("gen-data", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&cfg.Synth.Properties, "properties", cfg.Synth.Properties, "Number of properties to generate")
	fs.IntVar(&cfg.Synth.Profiles, "profiles", cfg.Synth.Profiles, "Number of profiles to generate")
	fs.Int64Var(&cfg.Synth.Seed, "seed", cfg.Synth.Seed, "Random seed")
	fs.StringVar(&cfg.Synth.OutputDir, "out", cfg.Synth.OutputDir, "Output directory")
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
		app.WithMetrics(metrics.NewManager(metrics.WithRun("gen-data", cfg.Synth.Seed))),
	)
	propsPath, profilesPath, err := svc.Generate(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "generation failed: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "properties: %s\nprofiles:   %s\n", propsPath, profilesPath)
	return exitOK
}
