package duplicates

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/augur/pkg/models"
)

// noisePrefixes mark lines that disqualify a window.
var noisePrefixes = []string{"import ", "export ", "from ", "package ", "using ", "include "}

// commentPrefixes mark comment lines; windows that are mostly comments are skipped.
var commentPrefixes = []string{"/", "*", "#"}

type location struct {
	file string
	line int
}

type block struct {
	text      string
	locations []location
}

// windowIssues slides a fixed-size line window over every source and reports
// each repeat of a window after its first location. Windows are compared as
// raw trimmed text, so whitespace and identifier changes defeat the match.
func (a *Aggregator) windowIssues(sources []Source) []models.CodeIssue {
	sorted := slices.Clone(sources)
	slices.SortStableFunc(sorted, func(x, y Source) int {
		return strings.Compare(x.File, y.File)
	})

	buckets := make(map[uint64][]*block)
	var order []*block

	for _, src := range sorted {
		lines := strings.Split(string(src.Content), "\n")
		if len(lines) < a.windowLines {
			continue
		}
		for i := 0; i+a.windowLines <= len(lines); i++ {
			window := lines[i : i+a.windowLines]
			if !a.eligible(window) {
				continue
			}
			text := strings.TrimSpace(strings.Join(window, "\n"))
			if len(text) <= a.windowMinChars {
				continue
			}

			key := xxhash.Sum64String(text)
			loc := location{file: src.File, line: i + 1}
			if b := find(buckets[key], text); b != nil {
				b.locations = append(b.locations, loc)
				continue
			}
			b := &block{text: text, locations: []location{loc}}
			buckets[key] = append(buckets[key], b)
			order = append(order, b)
		}
	}

	var issues []models.CodeIssue
	for _, b := range order {
		if len(b.locations) < 2 {
			continue
		}
		first := b.locations[0]
		for _, loc := range b.locations[1:] {
			issues = append(issues, models.CodeIssue{
				File:        loc.file,
				Line:        loc.line,
				Kind:        models.KindDuplication,
				Severity:    models.SeverityMedium,
				Title:       "Possible duplicate block",
				Description: fmt.Sprintf("This %d-line block also appears at %s:%d", a.windowLines, first.file, first.line),
				Suggestion:  "Consider extracting a shared function",
				Effort:      models.Effort1H,
			})
		}
	}
	return issues
}

// find verifies a hash hit by text equality.
func find(candidates []*block, text string) *block {
	for _, b := range candidates {
		if b.text == text {
			return b
		}
	}
	return nil
}

func (a *Aggregator) eligible(window []string) bool {
	comments := 0
	for _, line := range window {
		trimmed := strings.TrimSpace(line)
		if hasAnyPrefix(trimmed, noisePrefixes) {
			return false
		}
		if hasAnyPrefix(trimmed, commentPrefixes) {
			comments++
		}
	}
	return comments*2 <= len(window)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
