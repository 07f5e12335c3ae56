// Package metrics computes per-file size and complexity estimates and rolls
// them up per language. It runs for every discovered file regardless of how
// the structural analysis went.
package metrics

import (
	"bytes"
	"regexp"

	"gonum.org/v1/gonum/stat"

	"github.com/panbanda/augur/internal/analyzer/pattern"
	"github.com/panbanda/augur/pkg/models"
	"github.com/panbanda/augur/pkg/parser"
)

// counters are the rough function and class counting patterns of a language family.
type counters struct {
	functions *regexp.Regexp
	classes   *regexp.Regexp
}

var familyCounters = map[string]counters{
	"js": {
		functions: regexp.MustCompile(`function\s+\w+|const\s+\w+\s*=\s*(?:\([^)]*\)\s*)?=>|\w+\s*:\s*\([^)]*\)\s*=>`),
		classes:   regexp.MustCompile(`class\s+\w+|interface\s+\w+|type\s+\w+`),
	},
	"python": {
		functions: regexp.MustCompile(`def\s+\w+`),
		classes:   regexp.MustCompile(`class\s+\w+`),
	},
	"go": {
		functions: regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?\w+`),
		classes:   regexp.MustCompile(`(?m)^type\s+\w+\s+(?:struct|interface)\b`),
	},
	"rust": {
		functions: regexp.MustCompile(`\bfn\s+\w+`),
		classes:   regexp.MustCompile(`\b(?:struct|enum|trait)\s+\w+`),
	},
	"ruby": {
		functions: regexp.MustCompile(`(?m)^\s*def\s+[\w.?!]+`),
		classes:   regexp.MustCompile(`(?m)^\s*(?:class|module)\s+\w+`),
	},
	"php": {
		functions: regexp.MustCompile(`\bfunction\s+\w+`),
		classes:   regexp.MustCompile(`\b(?:class|interface|trait)\s+\w+`),
	},
	"swift": {
		functions: regexp.MustCompile(`\bfunc\s+\w+`),
		classes:   regexp.MustCompile(`\b(?:class|struct|protocol|enum)\s+\w+`),
	},
	"kotlin": {
		functions: regexp.MustCompile(`\bfun\s+(?:<[^>]*>\s*)?[\w.]+`),
		classes:   regexp.MustCompile(`\b(?:class|interface|object)\s+\w+`),
	},
}

var (
	complexityKeywords = regexp.MustCompile(`\b(?:if|else|for|while|do|switch|case|try|catch|break|continue|return)\b`)

	logicalAnd = []byte("&&")
	logicalOr  = []byte("||")
	coalesce   = []byte("??")
	question   = []byte("?")
)

// Collect computes the metrics of one readable file.
func Collect(fd models.FileDescriptor, content []byte) models.FileMetrics {
	lang := parser.DetectLanguage(fd.Path)
	m := Empty(fd)
	m.LinesOfCode = nonBlankLines(content)
	m.Complexity = EstimateComplexity(content)

	counted := content
	if lang == parser.LangVue {
		counted = pattern.ScriptContent(content)
	}
	if c, ok := familyCounters[lang.Family()]; ok {
		m.Functions = len(c.functions.FindAllIndex(counted, -1))
		m.Classes = len(c.classes.FindAllIndex(counted, -1))
	}
	return m
}

// Empty returns zero metrics for a file whose content could not be read.
func Empty(fd models.FileDescriptor) models.FileMetrics {
	return models.FileMetrics{
		Path:     fd.RelPath,
		Language: string(parser.DetectLanguage(fd.Path)),
	}
}

// EstimateComplexity is 1 plus the count of control-flow keywords and logical
// operators, capped at models.MaxEstimatedComplexity.
func EstimateComplexity(content []byte) int {
	n := 1 + len(complexityKeywords.FindAllIndex(content, -1))
	n += bytes.Count(content, logicalAnd)
	n += bytes.Count(content, logicalOr)

	coalesces := bytes.Count(content, coalesce)
	n += coalesces
	n += bytes.Count(content, question) - 2*coalesces

	return min(n, models.MaxEstimatedComplexity)
}

func nonBlankLines(content []byte) int {
	n := 0
	for line := range bytes.Lines(content) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}

// Aggregate rolls file metrics up per language.
func Aggregate(files []models.FileMetrics) map[string]models.LanguageStats {
	complexities := make(map[string][]float64)
	stats := make(map[string]models.LanguageStats)

	for _, m := range files {
		s := stats[m.Language]
		s.Files++
		s.Lines += m.LinesOfCode
		s.Functions += m.Functions
		s.Classes += m.Classes
		stats[m.Language] = s
		complexities[m.Language] = append(complexities[m.Language], float64(m.Complexity))
	}

	for lang, values := range complexities {
		s := stats[lang]
		s.AvgComplexity = stat.Mean(values, nil)
		stats[lang] = s
	}
	return stats
}

// AverageComplexity is the mean estimated complexity across all files, or 0
// for an empty corpus.
func AverageComplexity(files []models.FileMetrics) float64 {
	if len(files) == 0 {
		return 0
	}
	values := make([]float64, 0, len(files))
	for _, m := range files {
		values = append(values, float64(m.Complexity))
	}
	return stat.Mean(values, nil)
}
