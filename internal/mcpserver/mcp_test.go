package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/augur/internal/output"
	"github.com/panbanda/augur/internal/testutil"
	"github.com/panbanda/augur/pkg/models"
)

func newTestServer() *Server {
	return NewServer("1.0.0-test",
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithToolProbe(func(string) bool { return false }),
	)
}

// connect runs the server over in-memory transports and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "augur-test", Version: "0.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func callAnalyze(t *testing.T, session *mcp.ClientSession, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "analyze_codebase",
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestNewServer(t *testing.T) {
	s := NewServer("")
	require.NotNil(t, s)
	require.NotNil(t, s.server)
	assert.NotNil(t, s.available)
}

func TestListToolsAndPrompts(t *testing.T) {
	session := connect(t, newTestServer())

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, "analyze_codebase", tools.Tools[0].Name)
	assert.Contains(t, tools.Tools[0].Description, "USE WHEN:")

	prompts, err := session.ListPrompts(context.Background(), nil)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, p := range prompts.Prompts {
		names[p.Name] = true
		assert.NotEmpty(t, p.Description, p.Name)
	}
	assert.True(t, names["triage"])
	assert.True(t, names["duplication"])
}

func TestAnalyzeTool_JSON(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a.py": "def total(x, y): return x + y\n",
		"b.py": "def total(x, y): return x + y\n",
	})

	session := connect(t, newTestServer())
	res := callAnalyze(t, session, map[string]any{"path": root, "format": "json"})
	require.False(t, res.IsError, text(t, res))

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &report))
	assert.Len(t, report.FileMetrics, 2)

	var dup bool
	for _, issue := range report.Issues {
		if issue.Kind == models.KindDuplication && issue.File == "b.py" {
			dup = true
		}
	}
	assert.True(t, dup, "expected a duplicate function issue on b.py")
}

func TestAnalyzeTool_DefaultsToTOON(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})

	session := connect(t, newTestServer())
	res := callAnalyze(t, session, map[string]any{"path": root})
	require.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, "file_metrics")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "default output should not be JSON")
}

func TestAnalyzeTool_InvalidRoot(t *testing.T) {
	session := connect(t, newTestServer())
	res := callAnalyze(t, session, map[string]any{"path": "/definitely/not/here"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "cannot analyze")
}

func TestAnalyzeTool_InvalidOverride(t *testing.T) {
	session := connect(t, newTestServer())
	res := callAnalyze(t, session, map[string]any{"path": t.TempDir(), "threshold": 150})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "external.threshold")
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		format string
		want   output.Format
	}{
		{"", output.FormatTOON},
		{"json", output.FormatJSON},
		{"markdown", output.FormatMarkdown},
		{"md", output.FormatMarkdown},
		{"yaml", output.FormatTOON},
	}
	for _, tt := range tests {
		if got := getFormat(AnalyzeInput{Format: tt.format}); got != tt.want {
			t.Errorf("getFormat(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFilterIssues(t *testing.T) {
	issues := func() []models.CodeIssue {
		return []models.CodeIssue{
			{File: "a", Severity: models.SeverityLow},
			{File: "b", Severity: models.SeverityHigh},
			{File: "c", Severity: models.SeverityMedium},
		}
	}

	r := &models.Report{Issues: issues()}
	filterIssues(r, models.SeverityMedium, 0)
	require.Len(t, r.Issues, 2)
	assert.Equal(t, "b", r.Issues[0].File)
	assert.Equal(t, "c", r.Issues[1].File)

	r = &models.Report{Issues: issues()}
	filterIssues(r, "", 1)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, "a", r.Issues[0].File)

	r = &models.Report{Issues: issues()}
	filterIssues(r, "bogus", 0)
	assert.Len(t, r.Issues, 3)
}

func TestParseFrontmatter(t *testing.T) {
	desc, body := parseFrontmatter([]byte("---\ndescription: Do things\n---\nBody text\n"))
	assert.Equal(t, "Do things", desc)
	assert.Equal(t, "Body text\n", body)

	desc, body = parseFrontmatter([]byte("no frontmatter"))
	assert.Empty(t, desc)
	assert.Equal(t, "no frontmatter", body)

	desc, body = parseFrontmatter([]byte("---\ndescription: unterminated\n"))
	assert.Empty(t, desc)
	assert.Equal(t, "---\ndescription: unterminated\n", body)
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("")
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "0.0.0", m.Version)
	assert.Equal(t, "io.github.panbanda/augur", m.Name)
	require.Len(t, m.Packages, 1)
	assert.Equal(t, "stdio", m.Packages[0].Transport.Type)
	assert.Equal(t, "mcp", m.Packages[0].PackageArguments[0].Value)
	assert.Equal(t, "AUGUR_CONFIG", m.Packages[0].EnvironmentVariables[0].Name)
	assert.Equal(t, "Analyzes a source tree for duplication, complexity, security and performance issues", m.Description)

	caps, ok := m.Meta[publisherKey]
	require.True(t, ok)
	require.Len(t, caps.Tools, 1)
	assert.Equal(t, "analyze_codebase", caps.Tools[0].Name)

	var prompts []string
	for _, p := range caps.Prompts {
		prompts = append(prompts, p.Name)
		assert.NotEmpty(t, p.Description, p.Name)
	}
	assert.Equal(t, []string{"duplication", "triage"}, prompts)
}
