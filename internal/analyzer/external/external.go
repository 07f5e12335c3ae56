// Package external delegates duplicate detection for a subset of file
// extensions to an external copy/paste detector (jscpd-compatible) and maps
// its JSON report onto issues.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/panbanda/augur/pkg/config"
	"github.com/panbanda/augur/pkg/models"
)

// DefaultTimeout bounds one invocation of the external tool.
const DefaultTimeout = 300 * time.Second

// waitDelay is how long Run waits for the tool's pipes to drain after the
// process was killed.
const waitDelay = 2 * time.Second

// Result is what one invocation contributes to the report.
type Result struct {
	Issues      []models.CodeIssue
	Diagnostics []models.Diagnostic
}

// Adapter runs the external duplicate detector.
type Adapter struct {
	command   string
	timeout   time.Duration
	threshold float64
	ignore    []string
	logger    *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for tool failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// WithTimeout overrides the configured timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		a.timeout = d
	}
}

// New creates an Adapter from the external section of the configuration.
func New(cfg config.ExternalConfig, opts ...Option) *Adapter {
	a := &Adapter{
		command:   cfg.Command,
		timeout:   cfg.Timeout,
		threshold: cfg.Threshold,
		ignore:    cfg.Ignore,
		logger:    slog.Default(),
	}
	if a.command == "" {
		a.command = "jscpd"
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.timeout <= 0 {
		a.timeout = DefaultTimeout
	}
	return a
}

// Available reports whether the configured command can be found on PATH.
func Available(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}

// Run invokes the tool over root restricted to the owned files. total is the
// number of files discovered under root; when owned covers fewer, the tool
// receives an explicit file list. Failures never propagate: they become a
// single diagnostic and an empty issue list.
func (a *Adapter) Run(ctx context.Context, root string, owned []models.FileDescriptor, total int) Result {
	if len(owned) == 0 {
		return Result{}
	}

	issues, err := a.run(ctx, root, owned, total)
	if err != nil {
		a.logger.Warn("external duplicate detection skipped",
			slog.String("command", a.command),
			slog.String("root", root),
			slog.Any("error", err))
		return Result{Diagnostics: []models.Diagnostic{models.NewDiagnostic("", err)}}
	}

	a.logger.Debug("external duplicate detection finished",
		slog.String("command", a.command),
		slog.Int("files", len(owned)),
		slog.Int("issues", len(issues)))
	return Result{Issues: issues}
}

func (a *Adapter) run(ctx context.Context, root string, owned []models.FileDescriptor, total int) ([]models.CodeIssue, error) {
	bin, err := exec.LookPath(a.command)
	if err != nil {
		return nil, &models.AnalysisError{Op: "external", Err: fmt.Errorf("%w: %s: %v", models.ErrExternalToolUnavailable, a.command, err)}
	}

	args := []string{root,
		"--format", "json",
		"--output", "-",
		"--threshold", strconv.FormatFloat(a.threshold, 'f', -1, 64),
	}
	for _, pattern := range a.ignore {
		args = append(args, "--ignore", pattern)
	}

	if len(owned) < total {
		list, err := writeFileList(owned)
		if err != nil {
			return nil, &models.AnalysisError{Op: "external", Err: fmt.Errorf("%w: writing file list: %v", models.ErrExternalToolFailed, err)}
		}
		defer os.Remove(list)
		args = append(args, "--files-list", list)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, bin, args...)
	cmd.Dir = root
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return nil, &models.AnalysisError{Op: "external", Err: fmt.Errorf("%w after %s", models.ErrExternalToolTimeout, a.timeout)}
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return nil, &models.AnalysisError{Op: "external", Err: fmt.Errorf("%w: %s", models.ErrExternalToolFailed, msg)}
	}

	rep, err := decodeReport(stdout.Bytes())
	if err != nil {
		return nil, &models.AnalysisError{Op: "external", Err: err}
	}

	targets := make(map[string]bool, len(owned))
	for _, fd := range owned {
		targets[fd.RelPath] = true
	}
	return a.issues(rep, root, targets), nil
}

// writeFileList writes one root-relative path per line to a temp file.
func writeFileList(owned []models.FileDescriptor) (string, error) {
	f, err := os.CreateTemp("", "augur-files-*.txt")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, fd := range owned {
		buf.WriteString(fd.RelPath)
		buf.WriteByte('\n')
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// issues turns every fragment after the first of each clone into an issue.
func (a *Adapter) issues(rep *report, root string, targets map[string]bool) []models.CodeIssue {
	var issues []models.CodeIssue
	for _, clone := range rep.clones() {
		if len(clone.Fragments) < 2 {
			continue
		}
		first := clone.Fragments[0]
		if first.File == "" {
			continue
		}
		origin := relative(root, first.File)
		similarity := clampSimilarity(clone.Similarity)

		for _, frag := range clone.Fragments[1:] {
			file := relative(root, frag.File)
			if file == "" || !targets[file] || a.ignored(file) {
				continue
			}
			severity, effort := classify(frag.Size)
			issues = append(issues, models.CodeIssue{
				File:     file,
				Line:     oneBased(frag.Start),
				Kind:     models.KindDuplication,
				Severity: severity,
				Title:    fmt.Sprintf("Duplicate code block (%d lines)", frag.Size),
				Description: fmt.Sprintf("Duplicates %s:%d (%.1f%% similar)",
					origin, oneBased(first.Start), similarity),
				Suggestion: "Extract the shared block into a common function or module",
				Effort:     effort,
			})
		}
	}
	return issues
}

func (a *Adapter) ignored(file string) bool {
	for _, pattern := range a.ignore {
		if ok, _ := doublestar.Match(pattern, file); ok {
			return true
		}
	}
	return false
}

// classify maps a fragment's size in lines to severity and effort.
func classify(lines int) (models.Severity, models.Effort) {
	switch {
	case lines >= 50:
		return models.SeverityHigh, models.Effort4H
	case lines >= 20:
		return models.SeverityMedium, models.Effort2H
	default:
		return models.SeverityLow, models.Effort1H
	}
}

func oneBased(start int) int {
	return max(1, start+1)
}

func clampSimilarity(s float64) float64 {
	return min(100, max(0, s))
}

// relative normalizes a fragment path reported by the tool to a
// root-relative slash path.
func relative(root, file string) string {
	if file == "" {
		return ""
	}
	if filepath.IsAbs(file) {
		rel, err := filepath.Rel(root, file)
		if err != nil {
			return filepath.ToSlash(file)
		}
		file = rel
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(file)), "./")
}

// report is the subset of the tool's JSON output that is consumed.
type report struct {
	Duplication  []clone `json:"duplication"`
	Duplications []clone `json:"duplications"`

	hasDuplication bool
}

type clone struct {
	Similarity float64    `json:"similarity"`
	Fragments  []fragment `json:"fragments"`
}

type fragment struct {
	File  string `json:"file"`
	Start int    `json:"start"`
	Size  int    `json:"size"`
}

// clones prefers the "duplication" key when present.
func (r *report) clones() []clone {
	if r.hasDuplication {
		return r.Duplication
	}
	return r.Duplications
}

func decodeReport(data []byte) (*report, error) {
	if err := validate(data); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalToolMalformedOutput, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalToolMalformedOutput, err)
	}
	var rep report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrExternalToolMalformedOutput, err)
	}
	_, rep.hasDuplication = raw["duplication"]
	return &rep, nil
}
