// Package engine orchestrates a full analysis run: discovery, per-file
// analysis on a bounded pool, the external duplicate detector, corpus-wide
// aggregation and report assembly.
package engine

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/panbanda/augur/internal/analyzer/duplicates"
	"github.com/panbanda/augur/internal/analyzer/external"
	"github.com/panbanda/augur/internal/analyzer/metrics"
	"github.com/panbanda/augur/internal/analyzer/rules"
	"github.com/panbanda/augur/internal/cache"
	"github.com/panbanda/augur/internal/fileproc"
	"github.com/panbanda/augur/internal/scanner"
	"github.com/panbanda/augur/pkg/config"
	"github.com/panbanda/augur/pkg/models"
	"github.com/panbanda/augur/pkg/parser"
)

// Engine runs analyses. It holds configuration and the optional result
// cache; every run builds its own RunContext.
type Engine struct {
	config  *config.Config
	logger  *slog.Logger
	results *cache.Cache[fileResult]
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithResultCache keeps per-file results between runs and reuses them for
// files whose content and capabilities are unchanged. Meant for engines
// that run repeatedly over the same tree, such as watch mode.
func WithResultCache() Option {
	return func(e *Engine) {
		e.results = cache.New[fileResult]()
	}
}

// New creates an engine with the default configuration unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		config: config.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config {
	return e.config
}

// CacheStats reports result cache usage. It is zero without WithResultCache.
func (e *Engine) CacheStats() cache.Stats {
	if e.results == nil {
		return cache.Stats{}
	}
	return e.results.GetStats()
}

// Options are the per-run inputs.
type Options struct {
	// Root is the directory to analyze.
	Root string
	// Capabilities says which strategies are available. Tool probing
	// happens in the caller; the engine never looks for binaries itself.
	Capabilities parser.Capabilities
	// OnDiscovered is called once with the number of files found.
	OnDiscovered func(total int)
	// OnProgress is called once per analyzed file.
	OnProgress fileproc.ProgressFunc
}

// CapabilitiesFromConfig derives run capabilities from configuration. The
// delegated tool flag comes from the caller's availability probe.
func CapabilitiesFromConfig(cfg *config.Config, delegatedAvailable bool) parser.Capabilities {
	return parser.Capabilities{
		StructuredParser:    cfg.Analysis.StructuredParser,
		DelegatedTool:       delegatedAvailable,
		DelegatedExtensions: cfg.External.Extensions,
	}
}

// Run analyzes opts.Root. Per-file and external-tool failures become
// diagnostics in the report. Only an invalid root is returned as an error,
// together with an empty but well-formed report.
func (e *Engine) Run(ctx context.Context, opts Options) (*models.Report, error) {
	start := time.Now()
	report := models.NewReport(opts.Root)
	report.Capabilities = models.Capabilities{
		StructuredParser: opts.Capabilities.StructuredParser,
		DelegatedTool:    opts.Capabilities.DelegatedTool,
		WindowFallback:   e.config.Analysis.WindowFallback,
	}

	root, err := scanner.ResolveRoot(opts.Root)
	if err != nil {
		return e.fail(report, start, err)
	}
	report.Root = root

	files, err := scanner.NewScanner(e.config).Scan(root)
	if err != nil {
		return e.fail(report, start, err)
	}
	report.Timing.Scan = time.Since(start)
	e.logger.Debug("scan complete", slog.String("root", root), slog.Int("files", len(files)))
	if opts.OnDiscovered != nil {
		opts.OnDiscovered(len(files))
	}

	rc := newRunContext(root, e.config, opts.Capabilities, e.logger)
	rc.results = e.results

	var owned []models.FileDescriptor
	for _, fd := range files {
		if rc.capabilities.Owns(fd.Path) {
			owned = append(owned, fd)
		}
	}

	var (
		wg       conc.WaitGroup
		extRes   external.Result
		extSince time.Duration
	)
	if len(owned) > 0 {
		wg.Go(func() {
			t := time.Now()
			adapter := external.New(e.config.External, external.WithLogger(e.logger))
			extRes = adapter.Run(ctx, root, owned, len(files))
			extSince = time.Since(t)
		})
	}

	analyzeStart := time.Now()
	results := rc.analyzeAll(ctx, files, opts.OnProgress)
	report.Timing.Analyze = time.Since(analyzeStart)

	wg.Wait()
	report.Timing.External = extSince

	if e.results != nil {
		keep := make(map[string]bool, len(files))
		for _, fd := range files {
			keep[rc.cacheKey(fd)] = true
		}
		e.results.Retain(keep)
	}

	aggStart := time.Now()
	e.assemble(report, rc, results, extRes)
	report.Timing.Aggregate = time.Since(aggStart)
	report.Timing.Total = time.Since(start)

	e.logger.Debug("analysis complete",
		slog.Int("files", len(report.FileMetrics)),
		slog.Int("issues", len(report.Issues)),
		slog.Int("diagnostics", len(report.Diagnostics)),
		slog.Duration("elapsed", report.Timing.Total))
	return report, nil
}

func (e *Engine) fail(report *models.Report, start time.Time, err error) (*models.Report, error) {
	e.logger.Error("analysis aborted", slog.String("root", report.Root), slog.Any("error", err))
	report.Diagnostics = append(report.Diagnostics, models.NewDiagnostic(report.Root, err))
	report.Summarize()
	report.Timing.Total = time.Since(start)
	return report, err
}

// assemble aggregates the per-file results into the report.
func (e *Engine) assemble(report *models.Report, rc *RunContext, results []fileResult, ext external.Result) {
	slices.SortFunc(results, func(a, b fileResult) int {
		return cmp.Compare(a.analysis.Metrics.Path, b.analysis.Metrics.Path)
	})

	var (
		functions []models.FunctionInfo
		classes   []models.ClassInfo
		issues    []models.CodeIssue
		windows   []duplicates.Source
	)
	for _, r := range results {
		a := r.analysis
		report.FileMetrics = append(report.FileMetrics, a.Metrics)
		report.Diagnostics = append(report.Diagnostics, a.Diagnostics...)
		functions = append(functions, a.Functions...)
		classes = append(classes, a.Classes...)
		issues = append(issues, a.Issues...)
		if a.Windowed {
			windows = append(windows, duplicates.Source{File: a.Metrics.Path, Content: a.Content})
		}

		switch r.strategy {
		case strategyStructured:
			report.Summary.StructuredFiles++
		case strategyPattern:
			report.Summary.PatternFiles++
		case strategyDelegated:
			report.Summary.DelegatedFiles++
		}
	}
	report.Diagnostics = append(report.Diagnostics, ext.Diagnostics...)

	issues = append(issues, rc.duplicates.Aggregate(functions, classes, ext.Issues, windows)...)

	report.LanguageStatistics = metrics.Aggregate(report.FileMetrics)
	issues = append(issues, rc.rules.Project(report.FileMetrics, metrics.AverageComplexity(report.FileMetrics))...)

	models.SortIssues(issues)
	if issues == nil {
		issues = []models.CodeIssue{}
	}
	report.Issues = issues

	slices.SortStableFunc(report.Diagnostics, func(a, b models.Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Message, b.Message),
		)
	})

	report.Summarize()
	report.Summary.Recommendations = rules.Recommendations(report.Summary)
}
