// Package structured extracts functions and classes from source files using
// tree-sitter grammars.
package structured

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/augur/pkg/models"
	"github.com/panbanda/augur/pkg/parser"
)

// DefaultParseTimeout bounds a single parse.
const DefaultParseTimeout = 5 * time.Second

// Frontend parses one language and extracts its declarations.
type Frontend interface {
	Language() parser.Language
	Parse(ctx context.Context, source []byte) (*parser.ParseResult, error)
	Declarations(result *parser.ParseResult, file string) ([]models.FunctionInfo, []models.ClassInfo)
	Close()
}

// NewFrontend returns the tree-sitter frontend for lang.
func NewFrontend(lang parser.Language) (Frontend, error) {
	table := tableFor(lang)
	if table == nil || !parser.HasGrammar(lang) {
		return nil, fmt.Errorf("%w: no structured frontend for %s", models.ErrParseFailed, lang)
	}
	return &treeSitterFrontend{lang: lang, table: table, parser: parser.New()}, nil
}

type treeSitterFrontend struct {
	lang   parser.Language
	table  *declTable
	parser *parser.Parser
}

func (f *treeSitterFrontend) Language() parser.Language { return f.lang }

func (f *treeSitterFrontend) Parse(ctx context.Context, source []byte) (*parser.ParseResult, error) {
	return f.parser.Parse(ctx, source, f.lang)
}

func (f *treeSitterFrontend) Close() {
	f.parser.Close()
}

func (f *treeSitterFrontend) Declarations(result *parser.ParseResult, file string) ([]models.FunctionInfo, []models.ClassInfo) {
	var (
		functions []models.FunctionInfo
		classes   []models.ClassInfo
	)
	src := result.Source

	parser.WalkTyped(result.Tree.RootNode(), func(node *sitter.Node, nodeType string) bool {
		// Keyword tokens share type names with the nodes they introduce.
		if !node.IsNamed() {
			return true
		}
		switch {
		case f.table.functions[nodeType]:
			name := functionName(node, src, f.lang)
			if name == "" {
				// Anonymous callbacks are not declarations.
				return true
			}
			functions = append(functions, models.FunctionInfo{
				File:        file,
				Name:        name,
				Line:        int(node.StartPoint().Row) + 1,
				Params:      parameterNames(node, src, f.lang),
				Lines:       lineSpan(node),
				Fingerprint: Fingerprint(node, src),
				Complexity:  Cyclomatic(node, f.table),
				Source:      models.SourceStructured,
			})
		case f.table.classes[nodeType] && isClassLike(node, nodeType):
			classes = append(classes, models.ClassInfo{
				File:        file,
				Name:        className(node, src),
				Line:        int(node.StartPoint().Row) + 1,
				Lines:       lineSpan(node),
				Fingerprint: Fingerprint(node, src),
				Complexity:  Cyclomatic(node, f.table),
				Methods:     f.methodNames(node, src),
				Source:      models.SourceStructured,
			})
		}
		return true
	})

	return functions, classes
}

// methodNames lists the function-like nodes directly owned by a class, in
// source order, without descending into nested functions or classes.
func (f *treeSitterFrontend) methodNames(class *sitter.Node, src []byte) []string {
	var methods []string
	for i := range int(class.ChildCount()) {
		parser.WalkTyped(class.Child(i), func(node *sitter.Node, nodeType string) bool {
			if !node.IsNamed() {
				return true
			}
			if f.table.functions[nodeType] {
				if name := functionName(node, src, f.lang); name != "" {
					methods = append(methods, name)
				}
				return false
			}
			return !f.table.classes[nodeType]
		})
	}
	return methods
}

func lineSpan(node *sitter.Node) int {
	return int(node.EndPoint().Row-node.StartPoint().Row) + 1
}

// Analyzer runs a fresh Frontend per file. It holds no state between files
// and is safe to share across goroutines.
type Analyzer struct {
	maxFileSize  int64
	parseTimeout time.Duration
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMaxFileSize sets the largest file that will be parsed (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithParseTimeout bounds each parse.
func WithParseTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		a.parseTimeout = d
	}
}

// New creates a new structured analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		parseTimeout: DefaultParseTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze parses source as lang and extracts its declarations. Oversized
// input, a parse exceeding the timeout, or a tree with syntax errors returns
// an error wrapping models.ErrParseFailed.
func (a *Analyzer) Analyze(ctx context.Context, file string, lang parser.Language, source []byte) (*models.Declarations, error) {
	if a.maxFileSize > 0 && int64(len(source)) > a.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", models.ErrParseFailed, len(source), a.maxFileSize)
	}

	frontend, err := NewFrontend(lang)
	if err != nil {
		return nil, err
	}
	defer frontend.Close()

	if a.parseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.parseTimeout)
		defer cancel()
	}

	result, err := frontend.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	functions, classes := frontend.Declarations(result, file)
	return &models.Declarations{Functions: functions, Classes: classes}, nil
}
