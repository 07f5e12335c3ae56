package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/augur/internal/analyzer/external"
	"github.com/panbanda/augur/internal/engine"
	"github.com/panbanda/augur/internal/output"
	"github.com/panbanda/augur/internal/progress"
	"github.com/panbanda/augur/pkg/config"
	"github.com/panbanda/augur/pkg/models"
)

func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "path",
			Aliases: []string{"p"},
			Usage:   "Directory to analyze (default: first argument or .)",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "Maximum concurrent file analyses (default: CPU count)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format: text, markdown, json, yaml, toon",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "Deadline for the external duplicate detector in seconds",
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "Similarity threshold passed to the external duplicate detector",
		},
		&cli.BoolFlag{
			Name:  "no-structured",
			Usage: "Disable tree-sitter parsing and use pattern analysis only",
		},
		&cli.BoolFlag{
			Name:  "no-external",
			Usage: "Do not run the external duplicate detector even if installed",
		},
		verboseFlag(),
	}
}

func analyzeCmd() *cli.Command {
	flags := append(analysisFlags(),
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the report to a file",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Hide the progress bar",
		},
	)
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Analyze a source tree and print a report",
		ArgsUsage: "[path]",
		Flags:     flags,
		Action:    runAnalyzeCmd,
	}
}

// applyFlags overlays command line settings on the loaded configuration.
func applyFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("workers") {
		cfg.Analysis.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		if c.Int("timeout") <= 0 {
			return fmt.Errorf("--timeout must be a positive number of seconds (got %d)", c.Int("timeout"))
		}
		cfg.External.Timeout = time.Duration(c.Int("timeout")) * time.Second
	}
	if c.IsSet("threshold") {
		cfg.External.Threshold = c.Float64("threshold")
	}
	if c.Bool("no-structured") {
		cfg.Analysis.StructuredParser = false
	}
	return cfg.Validate()
}

// capabilities probes for the external tool; the engine never does.
func capabilities(c *cli.Context, cfg *config.Config, logger *slog.Logger) engine.Options {
	available := !c.Bool("no-external") && external.Available(cfg.External.Command)
	if !available {
		logger.Debug("external duplicate detector disabled", slog.String("command", cfg.External.Command))
	}
	return engine.Options{Capabilities: engine.CapabilitiesFromConfig(cfg, available)}
}

func runAnalyzeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := applyFlags(c, cfg); err != nil {
		return err
	}
	logger := newLogger(c)

	format := output.ParseFormat(c.String("format"))
	outPath := c.String("output")
	showProgress := !c.Bool("no-progress") && !color.NoColor

	eng := engine.New(engine.WithConfig(cfg), engine.WithLogger(logger))
	report, err := analyze(c.Context, c, eng, logger, showProgress)
	if err != nil {
		return err
	}

	var formatter *output.Formatter
	if outPath != "" {
		formatter, err = output.NewFormatter(format, outPath, false)
		if err != nil {
			return err
		}
	} else {
		formatter = output.NewWriterFormatter(format, c.App.Writer, !color.NoColor)
	}
	defer formatter.Close()

	if err := formatter.WriteReport(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if n := len(report.Diagnostics); n > 0 {
		status(c.App.ErrWriter).Warning("%d files or tools reported diagnostics; see the report", n)
	}
	if outPath != "" {
		status(c.App.ErrWriter).Success("Report written to %s", outPath)
	}
	return nil
}

// analyze runs eng once with optional progress output on stderr.
func analyze(ctx context.Context, c *cli.Context, eng *engine.Engine, logger *slog.Logger, showProgress bool) (*models.Report, error) {
	opts := capabilities(c, eng.Config(), logger)
	opts.Root = getPath(c)

	var tracker *progress.Tracker
	if showProgress {
		opts.OnDiscovered = func(total int) {
			tracker = progress.NewTrackerTo(c.App.ErrWriter, "Analyzing files...", total)
		}
		opts.OnProgress = func() {
			if tracker != nil {
				tracker.Tick()
			}
		}
	}

	report, err := eng.Run(ctx, opts)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	return report, err
}
