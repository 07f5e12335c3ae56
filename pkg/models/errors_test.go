package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrParseFailed, "ParseFailed"},
		{fmt.Errorf("reading: %w", ErrFileUnreadable), "FileUnreadable"},
		{&AnalysisError{Path: "x", Op: "run", Err: ErrExternalToolTimeout}, "ExternalToolTimeout"},
		{ErrExternalToolUnavailable, "ExternalToolUnavailable"},
		{ErrExternalToolMalformedOutput, "ExternalToolMalformedOutput"},
		{ErrExternalToolFailed, "ExternalToolFailed"},
		{ErrInvalidRoot, "InvalidRoot"},
		{errors.New("boom"), "Internal"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestAnalysisError(t *testing.T) {
	err := &AnalysisError{Path: "src/a.py", Op: "parse", Err: ErrParseFailed}

	if !errors.Is(err, ErrParseFailed) {
		t.Error("AnalysisError should unwrap to its cause")
	}
	if got := err.Error(); got != "parse src/a.py: parse failed" {
		t.Errorf("Error() = %q", got)
	}

	noPath := &AnalysisError{Op: "scan", Err: ErrInvalidRoot}
	if got := noPath.Error(); got != "scan: invalid root" {
		t.Errorf("Error() = %q", got)
	}

	d := NewDiagnostic("src/a.py", err)
	if d.Kind != "ParseFailed" || d.Path != "src/a.py" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}
