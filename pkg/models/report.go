package models

import (
	"sort"
	"time"
)

// Capabilities records which analysis strategies were active for a run.
type Capabilities struct {
	StructuredParser bool `json:"structured_parser"`
	DelegatedTool    bool `json:"delegated_tool"`
	WindowFallback   bool `json:"window_fallback"`
}

// Summary is the headline view of a report.
type Summary struct {
	TotalFiles       int            `json:"total_files"`
	TotalLines       int            `json:"total_lines"`
	TotalFunctions   int            `json:"total_functions"`
	TotalClasses     int            `json:"total_classes"`
	TotalIssues      int            `json:"total_issues"`
	HighIssues       int            `json:"high_issues"`
	MediumIssues     int            `json:"medium_issues"`
	LowIssues        int            `json:"low_issues"`
	ByKind           map[string]int `json:"by_kind"`
	EffortHours      float64        `json:"effort_hours"`
	Recommendations  []string       `json:"recommendations,omitempty"`
	StructuredFiles  int            `json:"structured_files"`
	PatternFiles     int            `json:"pattern_files"`
	DelegatedFiles   int            `json:"delegated_files"`
	DiagnosticsCount int            `json:"diagnostics_count"`
}

// Timing holds the wall-clock duration of each engine phase.
type Timing struct {
	Scan      time.Duration `json:"scan"`
	Analyze   time.Duration `json:"analyze"`
	External  time.Duration `json:"external"`
	Aggregate time.Duration `json:"aggregate"`
	Total     time.Duration `json:"total"`
}

// Report is the complete output of one engine run.
type Report struct {
	Root               string                   `json:"root"`
	GeneratedAt        time.Time                `json:"generated_at"`
	Summary            Summary                  `json:"summary"`
	Capabilities       Capabilities             `json:"capabilities"`
	FileMetrics        []FileMetrics            `json:"file_metrics"`
	Issues             []CodeIssue              `json:"issues"`
	LanguageStatistics map[string]LanguageStats `json:"language_statistics"`
	Diagnostics        []Diagnostic             `json:"diagnostics,omitempty"`
	Timing             Timing                   `json:"timing"`
}

// NewReport returns an empty but well-formed report for root.
func NewReport(root string) *Report {
	return &Report{
		Root:               root,
		GeneratedAt:        time.Now().UTC(),
		Summary:            Summary{ByKind: make(map[string]int)},
		FileMetrics:        []FileMetrics{},
		Issues:             []CodeIssue{},
		LanguageStatistics: make(map[string]LanguageStats),
	}
}

// Summarize recomputes the issue counters and effort total from r.Issues and r.FileMetrics.
func (r *Report) Summarize() {
	s := &r.Summary
	s.TotalFiles = len(r.FileMetrics)
	s.TotalLines, s.TotalFunctions, s.TotalClasses = 0, 0, 0
	for _, m := range r.FileMetrics {
		s.TotalLines += m.LinesOfCode
		s.TotalFunctions += m.Functions
		s.TotalClasses += m.Classes
	}

	s.TotalIssues = len(r.Issues)
	s.HighIssues, s.MediumIssues, s.LowIssues = 0, 0, 0
	s.ByKind = make(map[string]int)
	s.EffortHours = 0
	for _, issue := range r.Issues {
		switch issue.Severity {
		case SeverityHigh:
			s.HighIssues++
		case SeverityMedium:
			s.MediumIssues++
		case SeverityLow:
			s.LowIssues++
		}
		s.ByKind[string(issue.Kind)]++
		s.EffortHours += issue.Effort.Hours()
	}
	s.DiagnosticsCount = len(r.Diagnostics)
}

// SortedLanguages returns the language names in the statistics map in order.
func (r *Report) SortedLanguages() []string {
	langs := make([]string, 0, len(r.LanguageStatistics))
	for lang := range r.LanguageStatistics {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// IssuesBySeverity returns the issues with the given severity, preserving order.
func (r *Report) IssuesBySeverity(sev Severity) []CodeIssue {
	var out []CodeIssue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}
