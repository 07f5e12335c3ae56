// Package duplicates turns the fingerprints collected across the corpus into
// duplication issues. It is the only analysis step that sees every file.
package duplicates

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/augur/pkg/models"
)

// Source is the content of a file taking part in window detection.
type Source struct {
	File    string
	Content []byte
}

// Aggregator builds the duplication issue list.
type Aggregator struct {
	windowLines    int
	windowMinChars int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWindow sets the window size in lines and the minimum trimmed window
// length in characters.
func WithWindow(lines, minChars int) Option {
	return func(a *Aggregator) {
		if lines > 0 {
			a.windowLines = lines
		}
		if minChars > 0 {
			a.windowMinChars = minChars
		}
	}
}

// New creates an Aggregator with 10-line, 100-character windows.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{windowLines: 10, windowMinChars: 100}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate reports exact function and class duplicates, inconsistent
// function names, repeated text windows and the external tool's issues.
// The result is sorted with models.SortIssues.
func (a *Aggregator) Aggregate(functions []models.FunctionInfo, classes []models.ClassInfo, external []models.CodeIssue, windows []Source) []models.CodeIssue {
	var issues []models.CodeIssue

	for _, group := range exactGroups(functions) {
		original := group[0]
		for _, fn := range group[1:] {
			issues = append(issues, models.CodeIssue{
				File:        fn.File,
				Line:        fn.Line,
				Kind:        models.KindDuplication,
				Severity:    models.SeverityMedium,
				Title:       "Duplicate function: " + fn.Name,
				Description: fmt.Sprintf("Same implementation as %s in %s:%d", original.Name, original.File, original.Line),
				Suggestion:  "Extract a shared utility function",
				Effort:      models.Effort1H,
			})
		}
	}

	for _, group := range exactGroups(classes) {
		original := group[0]
		for _, cls := range group[1:] {
			issues = append(issues, models.CodeIssue{
				File:        cls.File,
				Line:        cls.Line,
				Kind:        models.KindDuplication,
				Severity:    models.SeverityHigh,
				Title:       "Duplicate class: " + cls.Name,
				Description: fmt.Sprintf("Same implementation as %s in %s:%d", original.Name, original.File, original.Line),
				Suggestion:  "Extract a base class or a shared type",
				Effort:      models.Effort4H,
			})
		}
	}

	issues = append(issues, namingIssues(functions)...)
	issues = append(issues, external...)
	issues = append(issues, a.windowIssues(windows)...)

	models.SortIssues(issues)
	return issues
}

func compareDeclarations[T models.Declaration](x, y T) int {
	xf, xl, xn := x.Location()
	yf, yl, yn := y.Location()
	return cmp.Or(cmp.Compare(xf, yf), cmp.Compare(xl, yl), cmp.Compare(xn, yn))
}

func sameLocation[T models.Declaration](x, y T) bool {
	return compareDeclarations(x, y) == 0
}

// exactGroups sorts decls into tie-break order and returns every fingerprint
// group with at least two distinct locations. The first member of each group
// is the original; groups are ordered by their original.
func exactGroups[T models.Declaration](decls []T) [][]T {
	sorted := slices.Clone(decls)
	slices.SortStableFunc(sorted, compareDeclarations[T])

	byHash := make(map[string]*roaring.Bitmap)
	for i, d := range sorted {
		h := d.Hash()
		if h == "" {
			continue
		}
		bm, ok := byHash[h]
		if !ok {
			bm = roaring.New()
			byHash[h] = bm
		}
		bm.Add(uint32(i))
	}

	bitmaps := make([]*roaring.Bitmap, 0, len(byHash))
	for _, bm := range byHash {
		if bm.GetCardinality() > 1 {
			bitmaps = append(bitmaps, bm)
		}
	}
	slices.SortFunc(bitmaps, func(x, y *roaring.Bitmap) int {
		return cmp.Compare(x.Minimum(), y.Minimum())
	})

	var groups [][]T
	for _, bm := range bitmaps {
		var group []T
		it := bm.Iterator()
		for it.HasNext() {
			d := sorted[it.Next()]
			if len(group) > 0 && sameLocation(group[len(group)-1], d) {
				continue
			}
			group = append(group, d)
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

// normalizeName folds case and drops separators so getUser and get_user collide.
func normalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(name))
}

// namingIssues flags functions whose names differ only in case or separators
// while their implementations differ.
func namingIssues(functions []models.FunctionInfo) []models.CodeIssue {
	sorted := slices.Clone(functions)
	slices.SortStableFunc(sorted, compareDeclarations[models.FunctionInfo])

	groups := make(map[string][]models.FunctionInfo)
	var keys []string
	for _, fn := range sorted {
		key := normalizeName(fn.Name)
		if key == "" {
			continue
		}
		if group := groups[key]; len(group) > 0 && sameLocation(group[len(group)-1], fn) {
			continue
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], fn)
	}

	var issues []models.CodeIssue
	for _, key := range keys {
		group := groups[key]
		spellings := make(map[string]bool)
		hashes := make(map[string]bool)
		for _, fn := range group {
			spellings[fn.Name] = true
			hashes[fn.Fingerprint] = true
		}
		if len(spellings) < 2 || len(hashes) < 2 {
			continue
		}

		names := make([]string, 0, len(spellings))
		for name := range spellings {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, fn := range group {
			issues = append(issues, models.CodeIssue{
				File:        fn.File,
				Line:        fn.Line,
				Kind:        models.KindDuplication,
				Severity:    models.SeverityLow,
				Title:       "Inconsistent function name: " + fn.Name,
				Description: "Similar names with different implementations: " + strings.Join(names, ", "),
				Suggestion:  "Give the functions distinct names or unify their implementations",
				Effort:      models.Effort30Min,
			})
		}
	}
	return issues
}
