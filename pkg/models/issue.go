package models

import (
	"cmp"
	"slices"
)

// IssueKind is the category of a CodeIssue.
type IssueKind string

const (
	KindDuplication IssueKind = "duplication"
	KindComplexity  IssueKind = "complexity"
	KindSecurity    IssueKind = "security"
	KindPerformance IssueKind = "performance"
	KindTesting     IssueKind = "testing"
)

// Severity ranks an issue for prioritization and effort estimation.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Weight orders severities with high first.
func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Effort is a fixed-enumeration estimate of the time needed to fix an issue.
type Effort string

const (
	Effort15Min Effort = "15min"
	Effort30Min Effort = "30min"
	Effort1H    Effort = "1h"
	Effort2H    Effort = "2h"
	Effort4H    Effort = "4h"
	Effort1D    Effort = "1d"
	Effort2D    Effort = "2d"
)

// Hours converts the estimate to working hours (a day is 8 hours).
func (e Effort) Hours() float64 {
	switch e {
	case Effort15Min:
		return 0.25
	case Effort30Min:
		return 0.5
	case Effort1H:
		return 1
	case Effort2H:
		return 2
	case Effort4H:
		return 4
	case Effort1D:
		return 8
	case Effort2D:
		return 16
	default:
		return 0
	}
}

// ProjectPath is the pseudo-path used for issues about the codebase as a whole.
const ProjectPath = "(project)"

// CodeIssue is a single finding. Values are never mutated after creation.
type CodeIssue struct {
	File        string    `json:"file"`
	Line        int       `json:"line"`
	Kind        IssueKind `json:"kind"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion"`
	Effort      Effort    `json:"effort"`
}

// CompareIssues orders issues by file, line, kind, severity, title, then description.
func CompareIssues(a, b CodeIssue) int {
	return cmp.Or(
		cmp.Compare(a.File, b.File),
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(b.Severity.Weight(), a.Severity.Weight()),
		cmp.Compare(a.Title, b.Title),
		cmp.Compare(a.Description, b.Description),
	)
}

// SortIssues sorts issues in place into their canonical order.
func SortIssues(issues []CodeIssue) {
	slices.SortStableFunc(issues, CompareIssues)
}
