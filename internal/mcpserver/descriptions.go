package mcpserver

// describeAnalyze explains the tool to the calling model: when to use it and
// how to read the result.
func describeAnalyze() string {
	return `Analyzes a source tree for duplication, complexity, security and performance issues.

USE WHEN:
- Getting a first overview of an unfamiliar codebase
- Finding copy-pasted functions and classes worth extracting
- Reviewing risky patterns such as eval, innerHTML or hardcoded credentials
- Estimating the effort needed to clean up a project

INTERPRETING RESULTS:
- Severity: high issues should be fixed first, low issues are cosmetic
- Duplicate findings point at the later copy and name the original location
- "(project)" issues describe the codebase as a whole, such as a low test ratio
- Effort is a rough fix estimate per issue (15min to 2d); the summary adds them up
- Diagnostics list files that could not be parsed or read and tool failures; they are not issues

METRICS RETURNED:
- summary: files, lines, functions, classes, issue counts by severity and kind, effort hours
- file_metrics: per-file lines of code, function and class counts, complexity estimate
- language_statistics: per-language totals and average complexity
- issues: file, line, kind, severity, title, description, suggestion, effort`
}
