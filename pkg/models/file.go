package models

// FileDescriptor identifies one candidate source file discovered under the analysis root.
type FileDescriptor struct {
	Path    string `json:"path"`     // Absolute path
	RelPath string `json:"rel_path"` // Root-relative, slash separated
	Ext     string `json:"ext"`      // Lower-case, with leading dot
	Size    int64  `json:"size"`
}

// FileMetrics holds the size and complexity estimate for a single file.
// Exactly one is produced per FileDescriptor, even when analysis fails.
type FileMetrics struct {
	Path        string `json:"path"`
	LinesOfCode int    `json:"lines_of_code"`
	Functions   int    `json:"functions"`
	Classes     int    `json:"classes"`
	Complexity  int    `json:"complexity"`
	Language    string `json:"language"`
}

// MaxEstimatedComplexity caps FileMetrics.Complexity.
const MaxEstimatedComplexity = 50

// LanguageStats aggregates FileMetrics for one language.
type LanguageStats struct {
	Files         int     `json:"files"`
	Lines         int     `json:"lines"`
	Functions     int     `json:"functions"`
	Classes       int     `json:"classes"`
	AvgComplexity float64 `json:"avg_complexity"`
}
