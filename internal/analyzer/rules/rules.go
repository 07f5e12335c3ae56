// Package rules turns line patterns, function measurements and corpus-wide
// ratios into issues.
package rules

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/panbanda/augur/pkg/config"
	"github.com/panbanda/augur/pkg/models"
)

// linePattern is a single-line rule.
type linePattern struct {
	regex       *regexp.Regexp
	kind        models.IssueKind
	severity    models.Severity
	effort      models.Effort
	description string
	// credential rules capture the assigned value in group 1; placeholder
	// values and test files are exempt.
	credential bool
}

var securityPatterns = []linePattern{
	{
		regex:       regexp.MustCompile(`(?i)\beval\s*\(`),
		kind:        models.KindSecurity,
		severity:    models.SeverityHigh,
		effort:      models.Effort4H,
		description: "eval() executes arbitrary code",
	},
	{
		regex:       regexp.MustCompile(`(?i)innerHTML\s*=`),
		kind:        models.KindSecurity,
		severity:    models.SeverityHigh,
		effort:      models.Effort2H,
		description: "Assigning innerHTML directly risks XSS",
	},
	{
		regex:       regexp.MustCompile(`(?i)document\.write\s*\(`),
		kind:        models.KindSecurity,
		severity:    models.SeverityHigh,
		effort:      models.Effort2H,
		description: "document.write() injects unescaped markup",
	},
	{
		regex:       regexp.MustCompile(`(?i)console\.log\s*\(`),
		kind:        models.KindSecurity,
		severity:    models.SeverityLow,
		effort:      models.Effort15Min,
		description: "console.log left in production code",
	},
	{
		regex:       regexp.MustCompile(`(?i)password\s*[:=]\s*["']([^"']+)["']`),
		kind:        models.KindSecurity,
		severity:    models.SeverityHigh,
		effort:      models.Effort1H,
		description: "Hard-coded password",
		credential:  true,
	},
	{
		regex:       regexp.MustCompile(`(?i)api[_-]?key\s*[:=]\s*["']([^"']+)["']`),
		kind:        models.KindSecurity,
		severity:    models.SeverityHigh,
		effort:      models.Effort1H,
		description: "Hard-coded API key",
		credential:  true,
	},
}

var performancePatterns = []linePattern{
	{
		regex:       regexp.MustCompile(`for\s*\([^)]*\bin\b[^)]+\)`),
		kind:        models.KindPerformance,
		severity:    models.SeverityMedium,
		effort:      models.Effort30Min,
		description: "for...in loops are slow over arrays",
	},
	{
		regex:       regexp.MustCompile(`Array\.prototype\.forEach\.call`),
		kind:        models.KindPerformance,
		severity:    models.SeverityLow,
		effort:      models.Effort15Min,
		description: "Array.prototype.forEach.call is slower than a plain loop",
	},
	{
		regex:       regexp.MustCompile(`setTimeout\s*\(\s*["']`),
		kind:        models.KindPerformance,
		severity:    models.SeverityMedium,
		effort:      models.Effort30Min,
		description: "setTimeout with a string argument is evaluated at runtime",
	},
}

// placeholderPrefixes mark credential values that are obviously not secrets.
var placeholderPrefixes = []string{"mock", "test", "placeholder", "dummy", "env", "process"}

var testPatterns = []*regexp.Regexp{
	regexp.MustCompile(`_test\.go$`),
	regexp.MustCompile(`(^|/)test_[^/]*\.py$`),
	regexp.MustCompile(`_test\.py$`),
	regexp.MustCompile(`\.(test|spec)\.[jt]sx?$`),
	regexp.MustCompile(`(^|/)__tests__/`),
	regexp.MustCompile(`(^|/)tests?/`),
	regexp.MustCompile(`(^|/)spec/`),
	regexp.MustCompile(`Tests?\.(java|kt|cs|swift)$`),
	regexp.MustCompile(`_test\.rs$`),
	regexp.MustCompile(`_spec\.rb$`),
	regexp.MustCompile(`Test\.php$`),
}

// IsTestFile reports whether a root-relative path looks like a test file.
func IsTestFile(path string) bool {
	path = filepath.ToSlash(path)
	for _, p := range testPatterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

// Scanner applies the rule set. It holds no per-file state.
type Scanner struct {
	thresholds config.ThresholdConfig
	ignore     map[string]bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithThresholds overrides the default thresholds.
func WithThresholds(t config.ThresholdConfig) Option {
	return func(s *Scanner) {
		s.thresholds = t
	}
}

// WithSecurityIgnore skips the security rules for files with these base names.
func WithSecurityIgnore(names ...string) Option {
	return func(s *Scanner) {
		for _, n := range names {
			s.ignore[n] = true
		}
	}
}

// New creates a Scanner with the default thresholds.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		thresholds: config.DefaultConfig().Thresholds,
		ignore:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lines runs the security and performance rules over every line of content.
func (s *Scanner) Lines(file string, content []byte) []models.CodeIssue {
	security := !s.ignore[filepath.Base(file)]
	isTest := IsTestFile(file)

	var issues []models.CodeIssue
	lineNum := 0
	for line := range bytes.Lines(content) {
		lineNum++
		if security {
			for _, p := range securityPatterns {
				if p.credential && isTest {
					continue
				}
				if p.matches(line) {
					issues = append(issues, p.issue(file, lineNum, "Security concern", "Use a safer alternative"))
				}
			}
		}
		for _, p := range performancePatterns {
			if p.matches(line) {
				issues = append(issues, p.issue(file, lineNum, "Possible performance problem", "Consider a more efficient construct"))
			}
		}
	}
	return issues
}

func (p linePattern) matches(line []byte) bool {
	if !p.credential {
		return p.regex.Match(line)
	}
	for _, m := range p.regex.FindAllSubmatch(line, -1) {
		if !isPlaceholder(string(m[1])) {
			return true
		}
	}
	return false
}

func isPlaceholder(value string) bool {
	value = strings.ToLower(value)
	for _, prefix := range placeholderPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

func (p linePattern) issue(file string, line int, title, suggestion string) models.CodeIssue {
	if p.credential {
		suggestion = "Load the secret from the environment or a secret store"
	}
	return models.CodeIssue{
		File:        file,
		Line:        line,
		Kind:        p.kind,
		Severity:    p.severity,
		Title:       title,
		Description: p.description,
		Suggestion:  suggestion,
		Effort:      p.effort,
	}
}

// MinTestCases is the fewest describe/it/test/expect calls a JavaScript or
// TypeScript test file may contain before it is flagged.
const MinTestCases = 5

var (
	testCasePattern = regexp.MustCompile(`\b(describe|it|test|expect)\s*\(`)
	scriptTestExt   = regexp.MustCompile(`\.(js|jsx|mjs|cjs|ts|tsx)$`)
)

// TestCases flags JavaScript and TypeScript test files with few test cases.
// Other test files are left alone since their frameworks do not use these calls.
func (s *Scanner) TestCases(file string, content []byte) []models.CodeIssue {
	if !IsTestFile(file) || !scriptTestExt.MatchString(file) {
		return nil
	}
	n := len(testCasePattern.FindAllIndex(content, -1))
	if n >= MinTestCases {
		return nil
	}
	return []models.CodeIssue{{
		File:        file,
		Line:        0,
		Kind:        models.KindTesting,
		Severity:    models.SeverityMedium,
		Title:       "Thin test file",
		Description: fmt.Sprintf("Only %d describe/it/test/expect calls (recommended: %d+)", n, MinTestCases),
		Suggestion:  "Add test cases for the untested paths",
		Effort:      models.Effort1H,
	}}
}

// Functions flags long and branch-heavy functions.
func (s *Scanner) Functions(functions []models.FunctionInfo) []models.CodeIssue {
	t := s.thresholds
	var issues []models.CodeIssue
	for _, fn := range functions {
		switch {
		case fn.Lines > t.FunctionLinesHigh:
			issues = append(issues, longFunction(fn, models.SeverityHigh, models.Effort4H, t.FunctionLinesMedium))
		case fn.Lines > t.FunctionLinesMedium:
			issues = append(issues, longFunction(fn, models.SeverityMedium, models.Effort2H, t.FunctionLinesMedium))
		}
		switch {
		case fn.Complexity > t.ComplexityHigh:
			issues = append(issues, complexFunction(fn, models.SeverityHigh, models.Effort4H, t.ComplexityMedium))
		case fn.Complexity > t.ComplexityMedium:
			issues = append(issues, complexFunction(fn, models.SeverityMedium, models.Effort2H, t.ComplexityMedium))
		}
	}
	return issues
}

func longFunction(fn models.FunctionInfo, sev models.Severity, effort models.Effort, limit int) models.CodeIssue {
	return models.CodeIssue{
		File:        fn.File,
		Line:        fn.Line,
		Kind:        models.KindComplexity,
		Severity:    sev,
		Title:       "Function too long: " + fn.Name,
		Description: fmt.Sprintf("%s spans %d lines, above the recommended %d", fn.Name, fn.Lines, limit),
		Suggestion:  "Split the function into smaller functions",
		Effort:      effort,
	}
}

func complexFunction(fn models.FunctionInfo, sev models.Severity, effort models.Effort, limit int) models.CodeIssue {
	return models.CodeIssue{
		File:        fn.File,
		Line:        fn.Line,
		Kind:        models.KindComplexity,
		Severity:    sev,
		Title:       "Function too complex: " + fn.Name,
		Description: fmt.Sprintf("%s has cyclomatic complexity %d, above the recommended %d", fn.Name, fn.Complexity, limit),
		Suggestion:  "Reduce branching with early returns or extracted helpers",
		Effort:      effort,
	}
}

// Project evaluates the corpus-wide rules. avgComplexity is the mean estimated
// complexity of files. An empty corpus yields no issues.
func (s *Scanner) Project(files []models.FileMetrics, avgComplexity float64) []models.CodeIssue {
	if len(files) == 0 {
		return nil
	}

	var issues []models.CodeIssue

	tests := 0
	for _, m := range files {
		if IsTestFile(m.Path) {
			tests++
		}
	}
	ratio := float64(tests) / float64(len(files))
	if ratio < s.thresholds.MinTestRatio {
		issues = append(issues, models.CodeIssue{
			File:        models.ProjectPath,
			Line:        0,
			Kind:        models.KindTesting,
			Severity:    models.SeverityHigh,
			Title:       "Insufficient test coverage",
			Description: fmt.Sprintf("Test file ratio: %.1f%% (recommended: 20%%+)", ratio*100),
			Suggestion:  "Add unit and integration tests",
			Effort:      models.Effort2D,
		})
	}

	if avgComplexity > s.thresholds.MaxAvgComplexity {
		issues = append(issues, models.CodeIssue{
			File:        models.ProjectPath,
			Line:        0,
			Kind:        models.KindComplexity,
			Severity:    models.SeverityMedium,
			Title:       "High average complexity",
			Description: fmt.Sprintf("Average estimated complexity is %.1f (limit %.0f)", avgComplexity, s.thresholds.MaxAvgComplexity),
			Suggestion:  "Refactor the most complex files first",
			Effort:      models.Effort1D,
		})
	}
	return issues
}

// Recommendations summarizes what to tackle first.
func Recommendations(s models.Summary) []string {
	var recs []string
	if s.HighIssues > 0 {
		recs = append(recs, fmt.Sprintf("%d high-priority issues found; address these first", s.HighIssues))
	}
	if n := s.ByKind[string(models.KindDuplication)]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d duplicated blocks can be extracted into shared code", n))
	}
	if n := s.ByKind[string(models.KindSecurity)]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d security findings need review", n))
	}
	if s.EffortHours > 0 {
		recs = append(recs, fmt.Sprintf("Fixing all issues is estimated at %.1f days", s.EffortHours/8))
	}
	return recs
}
