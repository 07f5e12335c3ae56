package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/panbanda/augur/pkg/models"
)

// Language represents a programming language tag.
type Language string

const (
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangTSX        Language = "tsx"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangBash       Language = "bash"
	LangVue        Language = "vue"
	LangSwift      Language = "swift"
	LangKotlin     Language = "kotlin"
	LangUnknown    Language = "unknown"
)

// Family groups languages that share declaration syntax for pattern matching
// and metrics counting.
func (l Language) Family() string {
	switch l {
	case LangTypeScript, LangJavaScript, LangTSX, LangVue:
		return "js"
	default:
		return string(l)
	}
}

// Parser wraps a tree-sitter parser. A Parser is not safe for concurrent use;
// create one per file.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed tree and the source it was built from.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
}

// Close releases the tree.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// New creates a new parser instance.
func New() *Parser {
	return &Parser{
		parser: sitter.NewParser(),
	}
}

// Parse parses source with the grammar for lang. Cancellation of ctx aborts
// the parse. A tree containing syntax errors is rejected with models.ErrParseFailed.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*ParseResult, error) {
	grammar := Grammar(lang)
	if grammar == nil {
		return nil, fmt.Errorf("%w: no grammar for %s", models.ErrParseFailed, lang)
	}

	p.parser.SetLanguage(grammar)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParseFailed, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: parser returned no tree", models.ErrParseFailed)
	}
	if ctx.Err() != nil {
		tree.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrParseFailed, ctx.Err())
	}

	root := tree.RootNode()
	if root == nil || root.HasError() {
		tree.Close()
		return nil, fmt.Errorf("%w: syntax error", models.ErrParseFailed)
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   source,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// Grammar returns the tree-sitter grammar for lang, or nil when none is wired in.
func Grammar(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangJava:
		return java.GetLanguage()
	case LangC:
		return c.GetLanguage()
	case LangCPP:
		return cpp.GetLanguage()
	case LangCSharp:
		return csharp.GetLanguage()
	case LangRuby:
		return ruby.GetLanguage()
	case LangPHP:
		return php.GetLanguage()
	case LangBash:
		return bash.GetLanguage()
	default:
		return nil
	}
}

// HasGrammar reports whether a structured grammar is wired in for lang.
func HasGrammar(lang Language) bool {
	switch lang {
	case LangGo, LangRust, LangPython, LangTypeScript, LangTSX, LangJavaScript,
		LangJava, LangC, LangCPP, LangCSharp, LangRuby, LangPHP, LangBash:
		return true
	default:
		return false
	}
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo
	case ".rs":
		return LangRust
	case ".py", ".pyw", ".pyi":
		return LangPython
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	case ".jsx":
		return LangTSX // TSX grammar accepts JSX
	case ".java":
		return LangJava
	case ".c", ".h":
		return LangC
	case ".cpp", ".cc", ".cxx", ".hpp", ".hxx":
		return LangCPP
	case ".cs":
		return LangCSharp
	case ".rb":
		return LangRuby
	case ".php":
		return LangPHP
	case ".sh", ".bash":
		return LangBash
	case ".vue":
		return LangVue
	case ".swift":
		return LangSwift
	case ".kt", ".kts":
		return LangKotlin
	default:
		return LangUnknown
	}
}

// TypedNodeVisitor visits tree nodes with the node type cached to avoid repeated CGO calls.
// Returning false skips the node's children.
type TypedNodeVisitor func(node *sitter.Node, nodeType string) bool

// WalkTyped traverses the tree in preorder.
func WalkTyped(node *sitter.Node, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), visitor)
	}
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}
