package parser

import (
	"path/filepath"
	"slices"
	"strings"
)

// Capability is the analysis strategy selected for one file. The set of
// implementations is closed: StructuredParse, PatternFallback and DelegatedTool.
type Capability interface {
	Language() Language
	String() string
	capability()
}

// StructuredParse means a tree-sitter grammar analyzes the file.
type StructuredParse struct{ Lang Language }

// PatternFallback means regex heuristics approximate the file's declarations.
type PatternFallback struct{ Lang Language }

// DelegatedTool means the external duplicate detector owns the file; only
// metrics are collected per file.
type DelegatedTool struct{ Lang Language }

func (c StructuredParse) Language() Language { return c.Lang }
func (c PatternFallback) Language() Language { return c.Lang }
func (c DelegatedTool) Language() Language   { return c.Lang }

func (c StructuredParse) String() string { return "structured(" + string(c.Lang) + ")" }
func (c PatternFallback) String() string { return "pattern(" + string(c.Lang) + ")" }
func (c DelegatedTool) String() string   { return "delegated(" + string(c.Lang) + ")" }

func (StructuredParse) capability() {}
func (PatternFallback) capability() {}
func (DelegatedTool) capability()   {}

// DefaultDelegatedExtensions are the extensions the external duplicate detector owns.
var DefaultDelegatedExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

// Capabilities are the flags supplied to a run describing which strategies are available.
type Capabilities struct {
	StructuredParser    bool
	DelegatedTool       bool
	DelegatedExtensions []string
}

// Resolve maps a path to its capability. The delegated tool wins for the
// extensions it owns, then any wired grammar, then the pattern analyzer.
func (c Capabilities) Resolve(path string) Capability {
	lang := DetectLanguage(path)
	ext := strings.ToLower(filepath.Ext(path))

	if c.DelegatedTool && slices.Contains(c.delegated(), ext) {
		return DelegatedTool{Lang: lang}
	}
	if c.StructuredParser && HasGrammar(lang) {
		return StructuredParse{Lang: lang}
	}
	return PatternFallback{Lang: lang}
}

func (c Capabilities) delegated() []string {
	if len(c.DelegatedExtensions) == 0 {
		return DefaultDelegatedExtensions
	}
	return c.DelegatedExtensions
}

// Owns reports whether the delegated tool owns path.
func (c Capabilities) Owns(path string) bool {
	_, ok := c.Resolve(path).(DelegatedTool)
	return ok
}
