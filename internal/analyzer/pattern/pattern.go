// Package pattern approximates declaration extraction with regular
// expressions for files no grammar can handle. Fingerprints hash the
// matched text, which is coarser than the structured analyzer.
package pattern

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/panbanda/augur/pkg/models"
	"github.com/panbanda/augur/pkg/parser"
)

// Analyzer extracts declarations with regular expressions. It is stateless
// and safe for concurrent use.
type Analyzer struct{}

// New creates a new pattern analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// segment is a region of the file scanned with the language's rules.
type segment struct {
	text   []byte
	offset int // byte offset of text within the file
}

// Analyze extracts functions and classes from source. Every rule runs over
// the whole text and overlapping matches are all kept.
func (a *Analyzer) Analyze(file string, lang parser.Language, source []byte) *models.Declarations {
	set := patternsFor(lang)
	result := &models.Declarations{}

	for _, seg := range segments(lang, source) {
		for _, r := range set.functions {
			for _, m := range r.re.FindAllSubmatchIndex(seg.text, -1) {
				name := string(seg.text[m[2]:m[3]])
				if controlKeywords[name] || inComment(seg.text, m[0], m[1]) {
					continue
				}
				span := seg.text[m[0]:m[1]]
				var params []string
				if r.paramsGroup > 0 && m[2*r.paramsGroup] >= 0 {
					params = splitParams(string(seg.text[m[2*r.paramsGroup]:m[2*r.paramsGroup+1]]), set.lastToken)
				}
				result.Functions = append(result.Functions, models.FunctionInfo{
					File:        file,
					Name:        name,
					Line:        lineAt(source, seg.offset+m[0]),
					Params:      params,
					Lines:       bytes.Count(span, []byte("\n")) + 1,
					Fingerprint: hashSpan(span),
					Complexity:  1,
					Source:      models.SourcePattern,
				})
			}
		}

		for _, r := range set.classes {
			for _, m := range r.re.FindAllSubmatchIndex(seg.text, -1) {
				if inComment(seg.text, m[0], m[1]) {
					continue
				}
				span := seg.text[m[0]:m[1]]
				result.Classes = append(result.Classes, models.ClassInfo{
					File:        file,
					Name:        string(seg.text[m[2]:m[3]]),
					Line:        lineAt(source, seg.offset+m[0]),
					Lines:       bytes.Count(span, []byte("\n")) + 1,
					Fingerprint: hashSpan(span),
					Complexity:  1,
					Source:      models.SourcePattern,
				})
			}
		}
	}

	return result
}

// segments returns the regions to scan: script blocks for Vue components,
// the whole file otherwise.
func segments(lang parser.Language, source []byte) []segment {
	if lang != parser.LangVue {
		return []segment{{text: source}}
	}
	var segs []segment
	for _, m := range scriptBlock.FindAllSubmatchIndex(source, -1) {
		segs = append(segs, segment{text: source[m[2]:m[3]], offset: m[2]})
	}
	return segs
}

// ScriptContent returns the concatenated <script> blocks of a Vue component.
func ScriptContent(source []byte) []byte {
	var buf bytes.Buffer
	for _, seg := range segments(parser.LangVue, source) {
		buf.Write(seg.text)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// inComment reports whether the line holding a match, read up to the match
// end, starts with a comment marker.
func inComment(text []byte, start, end int) bool {
	lineStart := bytes.LastIndexByte(text[:start], '\n') + 1
	line := strings.TrimSpace(string(text[lineStart:end]))
	for _, prefix := range []string{"//", "/*", "*", "#"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func lineAt(source []byte, offset int) int {
	return bytes.Count(source[:offset], []byte("\n")) + 1
}

func hashSpan(span []byte) string {
	sum := blake3.Sum256(span)
	return hex.EncodeToString(sum[:])
}

// splitParams turns a raw parameter list into names, dropping defaults,
// type annotations and spread or pointer markers.
func splitParams(raw string, lastToken bool) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var names []string
	for _, part := range strings.Split(raw, ",") {
		part, _, _ = strings.Cut(part, "=")
		useLast := lastToken
		if before, _, ok := strings.Cut(part, ":"); ok {
			part = before
			useLast = true
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if useLast {
			name = fields[len(fields)-1]
		}
		name = strings.TrimLeft(name, "*&.")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
