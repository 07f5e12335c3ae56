package output

import (
	"fmt"
	"strings"

	"github.com/panbanda/augur/pkg/models"
)

// ReportView lays out an analysis report for the text and markdown formats.
// Structured formats serialize the report itself.
func ReportView(r *models.Report) *Document {
	doc := &Document{
		Title: "Codebase Analysis: " + r.Root,
		Data:  r,
	}
	doc.Sections = append(doc.Sections, summarySection(r))

	if len(r.LanguageStatistics) > 0 {
		doc.Sections = append(doc.Sections, languageTable(r))
	}
	if len(r.Issues) > 0 {
		doc.Sections = append(doc.Sections, issueTable(r.Issues))
	}
	if len(r.Diagnostics) > 0 {
		doc.Sections = append(doc.Sections, diagnosticTable(r.Diagnostics))
	}
	return doc
}

func summarySection(r *models.Report) *Section {
	s := r.Summary
	lines := []string{
		fmt.Sprintf("Files: %d  Lines: %d  Functions: %d  Classes: %d",
			s.TotalFiles, s.TotalLines, s.TotalFunctions, s.TotalClasses),
		fmt.Sprintf("Issues: %d (high %d, medium %d, low %d)",
			s.TotalIssues, s.HighIssues, s.MediumIssues, s.LowIssues),
		fmt.Sprintf("Estimated effort: %.1f hours", s.EffortHours),
		fmt.Sprintf("Strategies: structured %d, pattern %d, delegated %d",
			s.StructuredFiles, s.PatternFiles, s.DelegatedFiles),
	}
	if s.DiagnosticsCount > 0 {
		lines = append(lines, fmt.Sprintf("Diagnostics: %d", s.DiagnosticsCount))
	}
	section := &Section{Title: "Summary", Content: strings.Join(lines, "\n")}
	if len(s.Recommendations) > 0 {
		items := make([]string, len(s.Recommendations))
		for i, rec := range s.Recommendations {
			items[i] = "- " + rec
		}
		section.Sections = append(section.Sections, Section{
			Title:   "Recommendations",
			Content: strings.Join(items, "\n"),
		})
	}
	return section
}

func languageTable(r *models.Report) *Table {
	var rows [][]string
	for _, lang := range r.SortedLanguages() {
		st := r.LanguageStatistics[lang]
		rows = append(rows, []string{
			lang,
			fmt.Sprintf("%d", st.Files),
			fmt.Sprintf("%d", st.Lines),
			fmt.Sprintf("%d", st.Functions),
			fmt.Sprintf("%d", st.Classes),
			fmt.Sprintf("%.1f", st.AvgComplexity),
		})
	}
	return NewTable("Languages",
		[]string{"Language", "Files", "Lines", "Functions", "Classes", "Avg Complexity"},
		rows, nil, r.LanguageStatistics)
}

func issueTable(issues []models.CodeIssue) *Table {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, []string{
			string(issue.Severity),
			string(issue.Kind),
			location(issue),
			issue.Title,
			string(issue.Effort),
		})
	}
	return NewTable("Issues",
		[]string{"Severity", "Kind", "Location", "Title", "Effort"},
		rows, []string{"", "", "", fmt.Sprintf("%d issues", len(issues)), ""}, issues)
}

func location(issue models.CodeIssue) string {
	if issue.Line <= 0 {
		return issue.File
	}
	return fmt.Sprintf("%s:%d", issue.File, issue.Line)
}

func diagnosticTable(diags []models.Diagnostic) *Table {
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		rows = append(rows, []string{d.Kind, d.Path, d.Message})
	}
	return NewTable("Diagnostics", []string{"Kind", "Path", "Message"}, rows, nil, diags)
}

// WriteReport renders r in format to the formatter's writer.
func (f *Formatter) WriteReport(r *models.Report) error {
	return f.Output(ReportView(r))
}
