package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/augur/internal/engine"
	"github.com/panbanda/augur/internal/output"
	"github.com/panbanda/augur/pkg/models"
)

// AnalyzeInput is the input of the analyze_codebase tool.
type AnalyzeInput struct {
	Path        string  `json:"path,omitempty" jsonschema:"Directory to analyze. Defaults to the current directory."`
	Format      string  `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	Workers     int     `json:"workers,omitempty" jsonschema:"Maximum concurrent file analyses. Defaults to the CPU count."`
	Threshold   float64 `json:"threshold,omitempty" jsonschema:"Similarity threshold passed to the external duplicate detector."`
	MinSeverity string  `json:"min_severity,omitempty" jsonschema:"Only return issues at or above this severity: low, medium or high."`
	MaxIssues   int     `json:"max_issues,omitempty" jsonschema:"Truncate the issue list to this many entries. 0 returns all."`
	TimeoutSecs int     `json:"timeout_seconds,omitempty" jsonschema:"Deadline for the external duplicate detector in seconds."`
}

func getPath(input AnalyzeInput) string {
	if input.Path == "" {
		return "."
	}
	return input.Path
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(report *models.Report, format output.Format) (string, error) {
	switch format {
	case output.FormatTOON:
		return output.MarshalTOON(report)
	default:
		var buf bytes.Buffer
		if err := output.NewWriterFormatter(format, &buf, false).WriteReport(report); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}

func toolResult(report *models.Report, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(report, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	cfg := *s.config
	if input.Workers > 0 {
		cfg.Analysis.Workers = input.Workers
	}
	if input.Threshold > 0 {
		cfg.External.Threshold = input.Threshold
	}
	if input.TimeoutSecs > 0 {
		cfg.External.Timeout = time.Duration(input.TimeoutSecs) * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return toolError(err.Error())
	}

	eng := engine.New(engine.WithConfig(&cfg), engine.WithLogger(s.logger))
	report, err := eng.Run(ctx, engine.Options{
		Root:         getPath(input),
		Capabilities: engine.CapabilitiesFromConfig(&cfg, s.available(cfg.External.Command)),
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidRoot) {
			return toolError(fmt.Sprintf("cannot analyze %s: %v", getPath(input), err))
		}
		return toolError(err.Error())
	}

	filterIssues(report, models.Severity(input.MinSeverity), input.MaxIssues)
	return toolResult(report, getFormat(input))
}

// filterIssues trims the issue list for the caller's context window. The
// summary keeps describing the full result.
func filterIssues(report *models.Report, floor models.Severity, limit int) {
	if w := floor.Weight(); w > 0 {
		kept := report.Issues[:0:0]
		for _, issue := range report.Issues {
			if issue.Severity.Weight() >= w {
				kept = append(kept, issue)
			}
		}
		report.Issues = kept
	}
	if limit > 0 && len(report.Issues) > limit {
		report.Issues = report.Issues[:limit]
	}
}
