package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/augur/internal/testutil"
	"github.com/panbanda/augur/pkg/config"
	"github.com/panbanda/augur/pkg/models"
	"github.com/panbanda/augur/pkg/parser"
)

func newTestEngine(mutate func(*config.Config)) *Engine {
	cfg := config.DefaultConfig()
	cfg.Analysis.Workers = 4
	if mutate != nil {
		mutate(cfg)
	}
	return New(WithConfig(cfg), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func structuredOnly() parser.Capabilities {
	return parser.Capabilities{StructuredParser: true}
}

func issuesFor(report *models.Report, file string) []models.CodeIssue {
	var out []models.CodeIssue
	for _, issue := range report.Issues {
		if issue.File == file {
			out = append(out, issue)
		}
	}
	return out
}

func ofKind(issues []models.CodeIssue, kind models.IssueKind) []models.CodeIssue {
	var out []models.CodeIssue
	for _, issue := range issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}

func TestRun_ExactDuplicateScenario(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a.py": "def total(x, y): return x + y\n",
		"b.py": "def total(x, y): return x + y\n",
		"c.py": "def total(x, y): return x - y\n",
	})

	report, err := newTestEngine(nil).Run(context.Background(), Options{Root: root, Capabilities: structuredOnly()})
	require.NoError(t, err)

	assert.Len(t, report.FileMetrics, 3)
	dups := ofKind(report.Issues, models.KindDuplication)
	require.Len(t, dups, 1)
	assert.Equal(t, "b.py", dups[0].File)
	assert.Equal(t, 1, dups[0].Line)
	assert.Contains(t, dups[0].Description, "a.py")
	assert.Empty(t, issuesFor(report, "c.py"))
	assert.Equal(t, 3, report.Summary.StructuredFiles)
	assert.Empty(t, report.Diagnostics)
}

func TestRun_DistinctClassesAreNotDuplicates(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a.js": "class Alpha {\n  run() { return 1; }\n}\n",
		"b.js": "class Beta {\n  stop(a, b) { if (a) { return b; } return a; }\n}\n",
		"c.rb": "class Gamma\n  def go(x)\n    x\n  end\nend\n",
	})

	report, err := newTestEngine(nil).Run(context.Background(), Options{Root: root, Capabilities: structuredOnly()})
	require.NoError(t, err)

	assert.Empty(t, ofKind(report.Issues, models.KindDuplication))
	assert.Empty(t, report.Diagnostics)
}

func TestRun_ResilienceScenario(t *testing.T) {
	files := map[string]string{
		"broken.py": "def broken(:\n    eval(x)\n",
	}
	for i := range 9 {
		files[fmt.Sprintf("mod%d.py", i)] = fmt.Sprintf("def handler_%d(data):\n    return eval(data)\n", i)
	}

	for _, threshold := range []int{100, 0} {
		t.Run(fmt.Sprintf("threshold %d", threshold), func(t *testing.T) {
			root := t.TempDir()
			testutil.CreateFileTree(t, root, files)

			engine := newTestEngine(func(c *config.Config) { c.Analysis.ParallelThreshold = threshold })
			report, err := engine.Run(context.Background(), Options{Root: root, Capabilities: structuredOnly()})
			require.NoError(t, err)

			assert.Len(t, report.FileMetrics, 10)
			for i := range 9 {
				file := fmt.Sprintf("mod%d.py", i)
				assert.NotEmpty(t, ofKind(issuesFor(report, file), models.KindSecurity), file)
			}

			require.Len(t, report.Diagnostics, 1)
			assert.Equal(t, "broken.py", report.Diagnostics[0].Path)
			assert.Equal(t, "ParseFailed", report.Diagnostics[0].Kind)
			assert.Equal(t, 9, report.Summary.StructuredFiles)
			assert.Equal(t, 1, report.Summary.PatternFiles)
		})
	}
}

func TestRun_SequentialAndParallelAreIdentical(t *testing.T) {
	root := t.TempDir()
	files := make(map[string]string)
	for i := range 30 {
		switch i % 3 {
		case 0:
			files[fmt.Sprintf("py/m%02d.py", i)] = "def area(w, h):\n    if w > 0 and h > 0:\n        return w * h\n    return 0\n"
		case 1:
			files[fmt.Sprintf("go/m%02d.go", i)] = fmt.Sprintf("package m\n\nfunc Sum%d(xs []int) int {\n\tt := 0\n\tfor _, x := range xs {\n\t\tt += x\n\t}\n\treturn t\n}\n", i)
		default:
			files[fmt.Sprintf("web/m%02d.js", i)] = "function show(el, html) {\n  el.innerHTML = html\n  console.log(html)\n}\n"
		}
	}
	testutil.CreateFileTree(t, root, files)

	sequential, err := newTestEngine(func(c *config.Config) { c.Analysis.ParallelThreshold = 1000 }).
		Run(context.Background(), Options{Root: root, Capabilities: structuredOnly()})
	require.NoError(t, err)

	for _, workers := range []int{2, 8} {
		parallel, err := newTestEngine(func(c *config.Config) {
			c.Analysis.ParallelThreshold = 0
			c.Analysis.Workers = workers
		}).Run(context.Background(), Options{Root: root, Capabilities: structuredOnly()})
		require.NoError(t, err)

		assert.Equal(t, sequential.Issues, parallel.Issues, "workers=%d", workers)
		assert.Equal(t, sequential.FileMetrics, parallel.FileMetrics, "workers=%d", workers)
		assert.Equal(t, sequential.LanguageStatistics, parallel.LanguageStatistics, "workers=%d", workers)
	}
	assert.NotEmpty(t, ofKind(sequential.Issues, models.KindDuplication))
}

func TestRun_PatternFallbackWhenParserDisabled(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"shapes.py": "class Square:\n    def area(self):\n        return self.side ** 2\n",
		"util.go":   "package util\n\ntype Point struct{ X, Y int }\n\nfunc Dist(a, b Point) int {\n\treturn a.X - b.X\n}\n",
	})

	report, err := newTestEngine(nil).Run(context.Background(), Options{Root: root, Capabilities: parser.Capabilities{}})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.PatternFiles)
	assert.Zero(t, report.Summary.StructuredFiles)
	assert.False(t, report.Capabilities.StructuredParser)

	byPath := map[string]models.FileMetrics{}
	for _, m := range report.FileMetrics {
		byPath[m.Path] = m
	}
	assert.Equal(t, 1, byPath["shapes.py"].Functions)
	assert.Equal(t, 1, byPath["shapes.py"].Classes)
	assert.Equal(t, 1, byPath["util.go"].Functions)
	assert.Equal(t, 1, byPath["util.go"].Classes)
}

const kotlinBody = `    val total = items.sumOf { it.price }
    val tax = total * rate
    val shipping = if (total > 100) 0 else 5
    val discount = coupons.sumOf { it.amount }
    val subtotal = total - discount
    val grand = subtotal + tax + shipping
    logger.info("grand total computed")
    audit.record(grand)
    cache.put(orderId, grand)
    return grand`

func TestRun_WindowFallbackForPatternFiles(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a.kt": "fun a() = 1\n" + kotlinBody,
		"b.kt": kotlinBody + "\nfun z() = 2",
	})

	report, err := newTestEngine(nil).Run(context.Background(), Options{Root: root, Capabilities: structuredOnly()})
	require.NoError(t, err)
	assert.True(t, report.Capabilities.WindowFallback)

	var windows []models.CodeIssue
	for _, issue := range report.Issues {
		if issue.Title == "Possible duplicate block" {
			windows = append(windows, issue)
		}
	}
	require.Len(t, windows, 1)
	assert.Equal(t, "b.kt", windows[0].File)

	disabled, err := newTestEngine(func(c *config.Config) { c.Analysis.WindowFallback = false }).
		Run(context.Background(), Options{Root: root, Capabilities: structuredOnly()})
	require.NoError(t, err)
	for _, issue := range disabled.Issues {
		assert.NotEqual(t, "Possible duplicate block", issue.Title)
	}
}

func TestRun_DelegatedTool(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"web/a.js": "export const a = () => 1\n",
		"web/b.js": "export const b = () => 1\n",
		"lib.py":   "def f():\n    return 1\n",
	})
	toolDir := t.TempDir()
	script := testutil.WriteScript(t, toolDir, "fake-cpd", `echo '{"duplications":[{"similarity":97.5,"fragments":[{"file":"web/a.js","start":0,"size":22},{"file":"web/b.js","start":4,"size":22}]}]}'
`)

	engine := newTestEngine(func(c *config.Config) { c.External.Command = script })
	caps := CapabilitiesFromConfig(engine.Config(), true)
	report, err := engine.Run(context.Background(), Options{Root: root, Capabilities: caps})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.DelegatedFiles)
	assert.Equal(t, 1, report.Summary.StructuredFiles)
	assert.True(t, report.Capabilities.DelegatedTool)

	ext := ofKind(issuesFor(report, "web/b.js"), models.KindDuplication)
	require.Len(t, ext, 1)
	assert.Equal(t, 5, ext[0].Line)
	assert.Equal(t, models.SeverityMedium, ext[0].Severity)
	assert.Equal(t, "Duplicate code block (22 lines)", ext[0].Title)
}

func TestRun_DelegatedToolFailureIsDiagnostic(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{"a.ts": "export function f() { return 1 }\n"})

	engine := newTestEngine(func(c *config.Config) { c.External.Command = "augur-test-missing-cpd" })
	report, err := engine.Run(context.Background(), Options{
		Root:         root,
		Capabilities: CapabilitiesFromConfig(engine.Config(), true),
	})
	require.NoError(t, err)

	assert.Len(t, report.FileMetrics, 1)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "ExternalToolUnavailable", report.Diagnostics[0].Kind)
	assert.Equal(t, 1, report.Summary.DiagnosticsCount)
}

func TestRun_InvalidRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	report, err := newTestEngine(nil).Run(context.Background(), Options{Root: missing, Capabilities: structuredOnly()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidRoot))

	require.NotNil(t, report)
	assert.Empty(t, report.FileMetrics)
	assert.Empty(t, report.Issues)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "InvalidRoot", report.Diagnostics[0].Kind)
}

func TestRun_RootIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.go")
	testutil.WriteFile(t, file, "package main\n")

	_, err := newTestEngine(nil).Run(context.Background(), Options{Root: file})
	assert.True(t, errors.Is(err, models.ErrInvalidRoot))
}

func TestRun_UnreadableFile(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"ok.py":     "def ok():\n    return 1\n",
		"secret.py": "def hidden():\n    return 2\n",
	})
	locked := filepath.Join(root, "secret.py")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })
	if f, err := os.Open(locked); err == nil {
		f.Close()
		t.Skip("file permissions are not enforced for this user")
	}

	report, err := newTestEngine(nil).Run(context.Background(), Options{Root: root, Capabilities: structuredOnly()})
	require.NoError(t, err)

	require.Len(t, report.FileMetrics, 2)
	assert.Equal(t, models.FileMetrics{Path: "secret.py", Language: "python"}, report.FileMetrics[1])
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "FileUnreadable", report.Diagnostics[0].Kind)
}

func TestRun_EmptyCorpus(t *testing.T) {
	report, err := newTestEngine(nil).Run(context.Background(), Options{Root: t.TempDir(), Capabilities: structuredOnly()})
	require.NoError(t, err)
	assert.Empty(t, report.FileMetrics)
	assert.Empty(t, report.Issues)
	assert.Zero(t, report.Summary.TotalFiles)
}

func TestRun_ProjectRulesAndSummary(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"app.py": "def run():\n    return 1\n",
	})

	var discovered int
	var ticks atomic.Int32
	report, err := newTestEngine(nil).Run(context.Background(), Options{
		Root:         root,
		Capabilities: structuredOnly(),
		OnDiscovered: func(n int) { discovered = n },
		OnProgress:   func() { ticks.Add(1) },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, discovered)
	assert.Equal(t, int32(1), ticks.Load())

	project := issuesFor(report, models.ProjectPath)
	require.Len(t, project, 1)
	assert.Equal(t, models.KindTesting, project[0].Kind)
	assert.Equal(t, 1, report.Summary.TotalIssues)
	assert.Equal(t, 1, report.Summary.HighIssues)
	assert.InDelta(t, 16.0, report.Summary.EffortHours, 1e-9)
	require.NotEmpty(t, report.Summary.Recommendations)
	assert.True(t, strings.HasPrefix(report.Summary.Recommendations[0], "1 high-priority"))
	assert.Contains(t, report.LanguageStatistics, "python")
}

func TestRun_ResultCacheReusesUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"a.py": "def total(x, y): return x + y\n",
		"b.py": "def total(x, y): return x + y\n",
		"c.py": "def other():\n    return eval(data)\n",
	})

	engine := New(
		WithConfig(config.DefaultConfig()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithResultCache(),
	)
	opts := Options{Root: root, Capabilities: structuredOnly()}

	first, err := engine.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, engine.CacheStats().Hits)

	second, err := engine.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, engine.CacheStats().Hits)
	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, first.FileMetrics, second.FileMetrics)

	testutil.WriteFile(t, filepath.Join(root, "b.py"), "def total(x, y): return x * y\n")
	require.NoError(t, os.Remove(filepath.Join(root, "c.py")))

	third, err := engine.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 4, engine.CacheStats().Hits)
	assert.Equal(t, 2, engine.CacheStats().Entries)
	assert.Empty(t, ofKind(third.Issues, models.KindDuplication))
	assert.Len(t, third.FileMetrics, 2)

	// Without the option nothing is cached.
	assert.Equal(t, 0, newTestEngine(nil).CacheStats().Entries)
}
