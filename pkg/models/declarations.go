package models

// DeclarationSource records which analyzer produced a declaration.
type DeclarationSource string

const (
	SourceStructured DeclarationSource = "structured"
	SourcePattern    DeclarationSource = "pattern"
)

// FunctionInfo describes one function or method found in a file.
type FunctionInfo struct {
	File        string            `json:"file"`
	Name        string            `json:"name"`
	Line        int               `json:"line"`
	Params      []string          `json:"params,omitempty"`
	Lines       int               `json:"lines"`
	Fingerprint string            `json:"fingerprint"`
	Complexity  int               `json:"complexity"`
	Source      DeclarationSource `json:"source"`
}

// ClassInfo describes one class, interface, struct or type alias found in a file.
type ClassInfo struct {
	File        string            `json:"file"`
	Name        string            `json:"name"`
	Line        int               `json:"line"`
	Lines       int               `json:"lines"`
	Fingerprint string            `json:"fingerprint"`
	Complexity  int               `json:"complexity"`
	Methods     []string          `json:"methods,omitempty"`
	Source      DeclarationSource `json:"source"`
}

// Declaration is the (file, line, name) identity shared by functions and classes.
type Declaration interface {
	Location() (file string, line int, name string)
	Hash() string
}

func (f FunctionInfo) Location() (string, int, string) { return f.File, f.Line, f.Name }
func (f FunctionInfo) Hash() string                    { return f.Fingerprint }

func (c ClassInfo) Location() (string, int, string) { return c.File, c.Line, c.Name }
func (c ClassInfo) Hash() string                    { return c.Fingerprint }

// Declarations holds the functions and classes extracted from one file.
type Declarations struct {
	Functions []FunctionInfo `json:"functions"`
	Classes   []ClassInfo    `json:"classes"`
}

// FileAnalysis is everything produced for a single file by one worker.
type FileAnalysis struct {
	Metrics     FileMetrics    `json:"metrics"`
	Functions   []FunctionInfo `json:"functions,omitempty"`
	Classes     []ClassInfo    `json:"classes,omitempty"`
	Issues      []CodeIssue    `json:"issues,omitempty"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	// Windowed marks files whose content takes part in window duplicate detection.
	Windowed bool   `json:"-"`
	Content  []byte `json:"-"`
}
