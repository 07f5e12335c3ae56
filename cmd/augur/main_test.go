package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/augur/internal/testutil"
	"github.com/panbanda/augur/pkg/models"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"augur"}, args...))
	return stdout.String(), stderr.String(), err
}

func duplicateTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a.py": "def total(x, y): return x + y\n",
		"b.py": "def total(x, y): return x + y\n",
		"c.py": "def total(x, y): return x - y\n",
	})
	return root
}

func TestGetPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default", nil, "."},
		{"positional", []string{"src"}, "src"},
		{"flag wins", []string{"--path", "lib", "src"}, "lib"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			app := &cli.App{
				Flags: []cli.Flag{&cli.StringFlag{Name: "path"}},
				Action: func(c *cli.Context) error {
					got = getPath(c)
					return nil
				},
			}
			require.NoError(t, app.Run(append([]string{"test"}, tt.args...)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyze_JSON(t *testing.T) {
	root := duplicateTree(t)

	stdout, _, err := run(t, "analyze", "--no-external", "--format", "json", "--workers", "2", root)
	require.NoError(t, err)

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Len(t, report.FileMetrics, 3)

	var dups []models.CodeIssue
	for _, issue := range report.Issues {
		if issue.Kind == models.KindDuplication {
			dups = append(dups, issue)
		}
	}
	require.Len(t, dups, 1)
	assert.Equal(t, "b.py", dups[0].File)
}

func TestAnalyze_TextAndMarkdown(t *testing.T) {
	root := duplicateTree(t)

	stdout, _, err := run(t, "analyze", "--no-external", "--path", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Summary")
	assert.Contains(t, stdout, "Duplicate function: total")

	stdout, _, err = run(t, "analyze", "--no-external", "-f", "md", root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "# Codebase Analysis"), stdout)
}

func TestAnalyze_OutputFile(t *testing.T) {
	root := duplicateTree(t)
	out := filepath.Join(t.TempDir(), "report.yaml")

	stdout, stderr, err := run(t, "analyze", "--no-external", "--format", "yaml", "--output", out, root)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Report written to")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "issues")
}

func TestAnalyze_NoStructured(t *testing.T) {
	root := duplicateTree(t)

	stdout, _, err := run(t, "analyze", "--no-external", "--no-structured", "-f", "json", root)
	require.NoError(t, err)

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 3, report.Summary.PatternFiles)
	assert.False(t, report.Capabilities.StructuredParser)
}

func TestAnalyze_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	_, _, err := run(t, "analyze", "--no-external", missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidRoot)

	_, _, err = run(t, "analyze", "--timeout", "0", t.TempDir())
	assert.ErrorContains(t, err, "--timeout")

	_, _, err = run(t, "analyze", "--threshold", "120", t.TempDir())
	assert.ErrorContains(t, err, "external.threshold")
}

func TestAnalyze_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "augur.toml")
	testutil.WriteFile(t, path, "[analysis]\nworkers = 0\n")

	_, _, err := run(t, "--config", path, "analyze", t.TempDir())
	assert.ErrorContains(t, err, "analysis.workers")
}

func TestConfigInitShowValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "augur.toml")

	stdout, _, err := run(t, "config", "init", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)

	_, _, err = run(t, "config", "init", "--output", path)
	assert.ErrorContains(t, err, "already exists")

	_, _, err = run(t, "config", "init", "--output", path, "--force")
	require.NoError(t, err)

	stdout, _, err = run(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration valid")

	stdout, _, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[analysis]")
	assert.Contains(t, stdout, "jscpd")
}

func TestMCPManifest(t *testing.T) {
	stdout, _, err := run(t, "mcp", "manifest")
	require.NoError(t, err)

	var manifest map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &manifest))
	assert.Equal(t, "io.github.panbanda/augur", manifest["name"])
}
