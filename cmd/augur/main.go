package main

import (
	"context"
		"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/augur/internal/output"
	"github.com/panbanda/augur/pkg/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		status(os.Stderr).Error("%v", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "augur",
		Usage:     "Multi-language static analysis for duplication, complexity and risky patterns",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Description: `Augur scans a source tree, extracts functions and classes with tree-sitter
where a grammar is available, and reports duplicated code, overly long or
complex functions, security and performance smells, and per-language statistics.

Supports: TypeScript, JavaScript, Vue, Python, Java, C, C++, C#, PHP, Ruby, Go,
Rust, Swift, Kotlin`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"AUGUR_CONFIG"},
			},
			verboseFlag(),
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			watchCmd(),
			configCmd(),
			mcpCmd(),
		},
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Enable debug logging on stderr",
	}
}

// loadConfig reads --config when given, otherwise the first config file in
// the standard locations, otherwise the defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(), nil
}

// newLogger returns a text logger on the app's error writer.
func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

// getPath returns --path, else the first positional argument, else ".".
func getPath(c *cli.Context) string {
	if p := c.String("path"); p != "" {
		return p
	}
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

// status returns a formatter for colored status lines on w.
func status(w io.Writer) *output.Formatter {
	return output.NewWriterFormatter(output.FormatText, w, !color.NoColor)
}
