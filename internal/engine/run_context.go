package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/panbanda/augur/internal/analyzer/duplicates"
	"github.com/panbanda/augur/internal/analyzer/metrics"
	"github.com/panbanda/augur/internal/analyzer/pattern"
	"github.com/panbanda/augur/internal/analyzer/rules"
	"github.com/panbanda/augur/internal/analyzer/structured"
	"github.com/panbanda/augur/internal/cache"
	"github.com/panbanda/augur/internal/fileproc"
	"github.com/panbanda/augur/pkg/config"
	"github.com/panbanda/augur/pkg/models"
	"github.com/panbanda/augur/pkg/parser"
)

// strategy is the analysis path a file actually took.
type strategy int

const (
	strategyNone strategy = iota
	strategyStructured
	strategyPattern
	strategyDelegated
)

// fileResult is one worker's output.
type fileResult struct {
	analysis models.FileAnalysis
	strategy strategy
}

// RunContext is everything a worker needs for one run. It is created per
// run and passed explicitly; workers share it read-only.
type RunContext struct {
	root         string
	config       *config.Config
	capabilities parser.Capabilities
	logger       *slog.Logger

	pattern    *pattern.Analyzer
	rules      *rules.Scanner
	duplicates *duplicates.Aggregator

	// results is shared across runs of one Engine; nil disables caching.
	results *cache.Cache[fileResult]
}

func newRunContext(root string, cfg *config.Config, caps parser.Capabilities, logger *slog.Logger) *RunContext {
	return &RunContext{
		root:         root,
		config:       cfg,
		capabilities: caps,
		logger:       logger,
		pattern:      pattern.New(),
		rules: rules.New(
			rules.WithThresholds(cfg.Thresholds),
			rules.WithSecurityIgnore(cfg.Exclude.RuleIgnoreFiles...),
		),
		duplicates: duplicates.New(
			duplicates.WithWindow(cfg.Thresholds.WindowLines, cfg.Thresholds.WindowMinChars),
		),
	}
}

// analyzeAll runs analyzeFile over files on the bounded pool. Files the pool
// could not finish (cancellation, panics) still get empty metrics.
func (rc *RunContext) analyzeAll(ctx context.Context, files []models.FileDescriptor, onProgress fileproc.ProgressFunc) []fileResult {
	results, errs := fileproc.Run(ctx, files, fileproc.Options{
		Workers:    rc.config.Analysis.Workers,
		Threshold:  rc.config.Analysis.ParallelThreshold,
		OnProgress: onProgress,
	}, rc.analyzeFile)

	if errs == nil {
		return results
	}

	byPath := make(map[string]models.FileDescriptor, len(files))
	for _, fd := range files {
		byPath[fd.RelPath] = fd
	}
	for _, pe := range errs.Errors {
		fd := byPath[pe.Path]
		rc.logger.Warn("file analysis failed", slog.String("path", pe.Path), slog.Any("error", pe.Err))
		results = append(results, fileResult{
			analysis: models.FileAnalysis{
				Metrics:     metrics.Empty(fd),
				Diagnostics: []models.Diagnostic{models.NewDiagnostic(pe.Path, pe.Err)},
			},
		})
	}
	return results
}

// analyzeFile never fails: problems become diagnostics and metrics are
// always collected for readable files.
func (rc *RunContext) analyzeFile(ctx context.Context, fd models.FileDescriptor) (fileResult, error) {
	content, err := os.ReadFile(fd.Path)
	if err != nil {
		err = &models.AnalysisError{Path: fd.RelPath, Op: "read", Err: fmt.Errorf("%w: %v", models.ErrFileUnreadable, err)}
		rc.logger.Warn("file unreadable", slog.String("path", fd.RelPath), slog.Any("error", err))
		return fileResult{
			analysis: models.FileAnalysis{
				Metrics:     metrics.Empty(fd),
				Diagnostics: []models.Diagnostic{models.NewDiagnostic(fd.RelPath, err)},
			},
		}, nil
	}

	var hash string
	if rc.results != nil {
		hash = cache.HashBytes(content)
		if cached, ok := rc.results.Get(rc.cacheKey(fd), hash); ok {
			return cached, nil
		}
	}

	res := rc.analyzeContent(ctx, fd, content)
	if rc.results != nil && ctx.Err() == nil {
		rc.results.Set(rc.cacheKey(fd), hash, res)
	}
	return res, nil
}

// cacheKey includes the capabilities since they decide the strategy.
func (rc *RunContext) cacheKey(fd models.FileDescriptor) string {
	return fmt.Sprintf("%s|%t|%t", fd.RelPath, rc.capabilities.StructuredParser, rc.capabilities.DelegatedTool)
}

func (rc *RunContext) analyzeContent(ctx context.Context, fd models.FileDescriptor, content []byte) fileResult {
	var (
		res   fileResult
		decls *models.Declarations
		err   error
	)
	switch c := rc.capabilities.Resolve(fd.Path).(type) {
	case parser.DelegatedTool:
		res.strategy = strategyDelegated
	case parser.StructuredParse:
		decls, err = rc.structuredAnalyzer().Analyze(ctx, fd.RelPath, c.Lang, content)
		if err == nil {
			res.strategy = strategyStructured
			break
		}
		if !errors.Is(err, models.ErrParseFailed) {
			err = fmt.Errorf("%w: %v", models.ErrParseFailed, err)
		}
		err = &models.AnalysisError{Path: fd.RelPath, Op: "parse", Err: err}
		rc.logger.Debug("falling back to pattern analysis", slog.String("path", fd.RelPath), slog.Any("error", err))
		res.analysis.Diagnostics = append(res.analysis.Diagnostics, models.NewDiagnostic(fd.RelPath, err))
		decls = rc.pattern.Analyze(fd.RelPath, c.Lang, content)
		res.strategy = strategyPattern
	case parser.PatternFallback:
		decls = rc.pattern.Analyze(fd.RelPath, c.Lang, content)
		res.strategy = strategyPattern
	}

	a := &res.analysis
	a.Metrics = metrics.Collect(fd, content)
	a.Issues = rc.rules.Lines(fd.RelPath, content)
	a.Issues = append(a.Issues, rc.rules.TestCases(fd.RelPath, content)...)
	if decls != nil {
		a.Functions = decls.Functions
		a.Classes = decls.Classes
		a.Issues = append(a.Issues, rc.rules.Functions(decls.Functions)...)
	}
	if res.strategy == strategyPattern && rc.config.Analysis.WindowFallback {
		a.Windowed = true
		a.Content = content
	}
	return res
}

// structuredAnalyzer returns a fresh analyzer for one file.
func (rc *RunContext) structuredAnalyzer() *structured.Analyzer {
	return structured.New(
		structured.WithMaxFileSize(rc.config.Analysis.MaxFileSize),
		structured.WithParseTimeout(rc.config.Analysis.ParseTimeout),
	)
}
