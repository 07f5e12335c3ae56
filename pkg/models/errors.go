package models

import (
	"errors"
	"fmt"
)

var (
	// ErrParseFailed means the structured parser rejected a file; the pattern analyzer takes over.
	ErrParseFailed = errors.New("parse failed")
	// ErrFileUnreadable means a discovered file could not be read.
	ErrFileUnreadable = errors.New("file unreadable")
	// ErrExternalToolUnavailable means the delegated duplicate detector is not installed.
	ErrExternalToolUnavailable = errors.New("external tool unavailable")
	// ErrExternalToolTimeout means the delegated duplicate detector exceeded its deadline.
	ErrExternalToolTimeout = errors.New("external tool timed out")
	// ErrExternalToolFailed means the delegated duplicate detector exited non-zero without a report.
	ErrExternalToolFailed = errors.New("external tool failed")
	// ErrExternalToolMalformedOutput means the delegated tool's report did not have the expected shape.
	ErrExternalToolMalformedOutput = errors.New("external tool produced malformed output")
	// ErrInvalidRoot means the analysis root is missing or not a directory.
	ErrInvalidRoot = errors.New("invalid root")
)

// AnalysisError attaches a path and an operation to an underlying error.
type AnalysisError struct {
	Path string
	Op   string
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// ErrorKind returns the taxonomy name of a sentinel wrapped in err.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParseFailed):
		return "ParseFailed"
	case errors.Is(err, ErrFileUnreadable):
		return "FileUnreadable"
	case errors.Is(err, ErrExternalToolUnavailable):
		return "ExternalToolUnavailable"
	case errors.Is(err, ErrExternalToolTimeout):
		return "ExternalToolTimeout"
	case errors.Is(err, ErrExternalToolFailed):
		return "ExternalToolFailed"
	case errors.Is(err, ErrExternalToolMalformedOutput):
		return "ExternalToolMalformedOutput"
	case errors.Is(err, ErrInvalidRoot):
		return "InvalidRoot"
	default:
		return "Internal"
	}
}

// Diagnostic is a non-fatal problem surfaced in the report instead of aborting the run.
type Diagnostic struct {
	Path    string `json:"path,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewDiagnostic builds a Diagnostic from an error, classifying it by sentinel.
func NewDiagnostic(path string, err error) Diagnostic {
	return Diagnostic{Path: path, Kind: ErrorKind(err), Message: err.Error()}
}
