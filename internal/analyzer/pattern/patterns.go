package pattern

import (
	"regexp"

	"github.com/panbanda/augur/pkg/parser"
)

// rule is one declaration pattern. Group 1 captures the name; paramsGroup,
// when non-zero, captures the raw parameter list.
type rule struct {
	re          *regexp.Regexp
	paramsGroup int
}

// patternSet is the ordered list of function and class rules for a language family.
type patternSet struct {
	functions []rule
	classes   []rule
	// lastToken selects the final whitespace-separated token of a parameter
	// as its name (C-like "int x") instead of the first (Go "x int").
	lastToken bool
}

func fn(expr string, paramsGroup int) rule {
	return rule{re: regexp.MustCompile(expr), paramsGroup: paramsGroup}
}

func cls(expr string) rule {
	return rule{re: regexp.MustCompile(expr)}
}

var jsPatterns = &patternSet{
	functions: []rule{
		fn(`(?:export\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(([^)]*)\)`, 2),
		fn(`(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?(?:\(([^)]*)\)\s*)?=>`, 2),
		fn(`(\w+)\s*:\s*(?:async\s*)?(?:\(([^)]*)\)\s*)?=>`, 2),
		fn(`(?:async\s+)?(\w+)\s*\(([^)]*)\)\s*\{`, 2),
	},
	classes: []rule{
		cls(`(?:class|interface)\s+(\w+)[^{]*\{`),
		cls(`type\s+(\w+)\s*=`),
	},
}

var genericPatterns = &patternSet{
	functions: []rule{
		fn(`function\s+(\w+)\s*\(([^)]*)\)`, 2),
		fn(`def\s+(\w+)\s*\(([^)]*)\)`, 2),
		fn(`(\w+)\s*\(([^)]*)\)\s*\{`, 2),
		fn(`public\s+[\w<>\[\],]+\s+(\w+)\s*\(([^)]*)\)`, 2),
		fn(`private\s+[\w<>\[\],]+\s+(\w+)\s*\(([^)]*)\)`, 2),
	},
	classes: []rule{
		cls(`class\s+(\w+)`),
		cls(`interface\s+(\w+)`),
		cls(`struct\s+(\w+)`),
		cls(`enum\s+(\w+)`),
	},
	lastToken: true,
}

var familyPatterns = map[string]*patternSet{
	"js": jsPatterns,
	string(parser.LangPython): {
		functions: []rule{fn(`(?:async\s+)?def\s+(\w+)\s*\(([^)]*)\)`, 2)},
		classes:   []rule{cls(`class\s+(\w+)`)},
	},
	string(parser.LangGo): {
		functions: []rule{fn(`func\s+(?:\([^)]*\)\s*)?(\w+)\s*(?:\[[^\]]*\])?\s*\(([^)]*)\)`, 2)},
		classes:   []rule{cls(`type\s+(\w+)\s+(?:struct|interface)\b`)},
	},
	string(parser.LangRust): {
		functions: []rule{fn(`fn\s+(\w+)\s*(?:<[^>]*>)?\s*\(([^)]*)\)`, 2)},
		classes:   []rule{cls(`(?:struct|enum|trait)\s+(\w+)`)},
	},
	string(parser.LangRuby): {
		functions: []rule{fn(`def\s+(?:self\.)?(\w+[?!]?)(?:\s*\(([^)]*)\))?`, 2)},
		classes:   []rule{cls(`(?:class|module)\s+(\w+)`)},
	},
	string(parser.LangPHP): {
		functions: []rule{fn(`function\s+(\w+)\s*\(([^)]*)\)`, 2)},
		classes:   []rule{cls(`(?:class|interface|trait)\s+(\w+)`)},
		lastToken: true,
	},
	string(parser.LangSwift): {
		functions: []rule{fn(`func\s+(\w+)\s*(?:<[^>]*>)?\s*\(([^)]*)\)`, 2)},
		classes:   []rule{cls(`(?:class|struct|protocol|enum|extension)\s+(\w+)`)},
	},
	string(parser.LangKotlin): {
		functions: []rule{fn(`fun\s+(?:<[^>]*>\s*)?(?:\w+\.)?(\w+)\s*\(([^)]*)\)`, 2)},
		classes:   []rule{cls(`(?:class|interface|object)\s+(\w+)`)},
	},
}

// patternsFor returns the rule set for lang, falling back to the generic set.
func patternsFor(lang parser.Language) *patternSet {
	if set, ok := familyPatterns[lang.Family()]; ok {
		return set
	}
	return genericPatterns
}

// scriptBlock matches the <script> sections of a Vue single-file component.
var scriptBlock = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)

// controlKeywords are captured by the call-like rules but never name a declaration.
var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "else": true, "do": true, "try": true,
	"with": true, "elif": true, "new": true, "typeof": true, "sizeof": true,
	"foreach": true, "using": true, "lock": true, "synchronized": true,
}
