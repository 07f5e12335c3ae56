package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/augur/internal/engine"
	"github.com/panbanda/augur/internal/output"
	"github.com/panbanda/augur/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and re-analyze",
		ArgsUsage: "[path]",
		Flags: append(analysisFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before re-running analysis",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := applyFlags(c, cfg); err != nil {
		return err
	}
	logger := newLogger(c)
	formatter := output.NewWriterFormatter(output.ParseFormat(c.String("format")), c.App.Writer, !color.NoColor)

	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	eng := engine.New(engine.WithConfig(cfg), engine.WithLogger(logger), engine.WithResultCache())
	run := func(ctx context.Context) error {
		report, err := analyze(ctx, c, eng, logger, false)
		if err != nil {
			return err
		}
		stats := eng.CacheStats()
		logger.Debug("result cache", slog.Int("entries", stats.Entries), slog.Int("hits", stats.Hits), slog.Int("misses", stats.Misses))
		return formatter.WriteReport(report)
	}
	if err := run(c.Context); err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(root, cfg,
		watch.WithDebounce(c.Duration("debounce")),
		watch.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	watcher.SetCallback(func(ctx context.Context, changed []string) {
		fmt.Fprintln(c.App.Writer)
		formatter.Info("Changed: %s", strings.Join(changed, ", "))
		fmt.Fprintln(c.App.Writer, strings.Repeat("-", 40))
		if err := run(ctx); err != nil && ctx.Err() == nil {
			status(c.App.ErrWriter).Error("Analysis failed: %v", err)
		}
	})

	status(c.App.ErrWriter).Info("Watching for changes in %s (Ctrl+C to stop)", root)
	if err := watcher.Start(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
