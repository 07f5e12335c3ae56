package duplicates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/augur/pkg/models"
)

func fn(file string, line int, name, fp string) models.FunctionInfo {
	return models.FunctionInfo{File: file, Line: line, Name: name, Fingerprint: fp, Complexity: 1, Lines: 3}
}

func filter(issues []models.CodeIssue, title string) []models.CodeIssue {
	var out []models.CodeIssue
	for _, issue := range issues {
		if strings.HasPrefix(issue.Title, title) {
			out = append(out, issue)
		}
	}
	return out
}

func TestAggregate_ExactFunctions(t *testing.T) {
	functions := []models.FunctionInfo{
		fn("c.py", 1, "total", "minus"),
		fn("b.py", 1, "total", "plus"),
		fn("a.py", 1, "total", "plus"),
	}

	issues := New().Aggregate(functions, nil, nil, nil)
	require.Len(t, issues, 1)
	issue := issues[0]
	assert.Equal(t, "b.py", issue.File)
	assert.Equal(t, 1, issue.Line)
	assert.Equal(t, models.KindDuplication, issue.Kind)
	assert.Equal(t, models.SeverityMedium, issue.Severity)
	assert.Equal(t, models.Effort1H, issue.Effort)
	assert.Contains(t, issue.Description, "a.py:1")
}

func TestAggregate_OriginalIsFirstByPathThenLine(t *testing.T) {
	functions := []models.FunctionInfo{
		fn("src/z.go", 1, "f", "same"),
		fn("src/a.go", 40, "g", "same"),
		fn("src/a.go", 7, "h", "same"),
	}

	for range 3 {
		issues := New().Aggregate(functions, nil, nil, nil)
		require.Len(t, issues, 2)
		for _, issue := range issues {
			assert.Contains(t, issue.Description, "src/a.go:7")
		}
		assert.Equal(t, "src/a.go", issues[0].File)
		assert.Equal(t, 40, issues[0].Line)
		assert.Equal(t, "src/z.go", issues[1].File)

		functions[0], functions[2] = functions[2], functions[0]
	}
}

func TestAggregate_CollapsesIdenticalLocations(t *testing.T) {
	functions := []models.FunctionInfo{
		fn("a.js", 3, "handler", "x"),
		fn("a.js", 3, "handler", "x"),
	}
	assert.Empty(t, New().Aggregate(functions, nil, nil, nil))
}

func TestAggregate_SkipsEmptyFingerprints(t *testing.T) {
	functions := []models.FunctionInfo{
		fn("a.js", 1, "one", ""),
		fn("b.js", 1, "two", ""),
	}
	assert.Empty(t, New().Aggregate(functions, nil, nil, nil))
}

func TestAggregate_Classes(t *testing.T) {
	classes := []models.ClassInfo{
		{File: "b.py", Line: 10, Name: "Repo", Fingerprint: "cls"},
		{File: "a.py", Line: 2, Name: "Store", Fingerprint: "cls"},
		{File: "c.py", Line: 2, Name: "Other", Fingerprint: "other"},
	}

	issues := New().Aggregate(nil, classes, nil, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, "b.py", issues[0].File)
	assert.Equal(t, "Duplicate class: Repo", issues[0].Title)
	assert.Equal(t, models.SeverityHigh, issues[0].Severity)
	assert.Equal(t, models.Effort4H, issues[0].Effort)
	assert.Contains(t, issues[0].Description, "Store in a.py:2")
}

func TestAggregate_NamingRule(t *testing.T) {
	t.Run("different spellings and bodies", func(t *testing.T) {
		functions := []models.FunctionInfo{
			fn("api/users.js", 4, "getUser", "one"),
			fn("db/users.py", 9, "get_user", "two"),
		}
		issues := filter(New().Aggregate(functions, nil, nil, nil), "Inconsistent function name")
		require.Len(t, issues, 2)
		for _, issue := range issues {
			assert.Equal(t, models.SeverityLow, issue.Severity)
			assert.Equal(t, models.Effort30Min, issue.Effort)
			assert.Equal(t, "Similar names with different implementations: getUser, get_user", issue.Description)
		}
	})

	t.Run("different spellings same body is only an exact duplicate", func(t *testing.T) {
		functions := []models.FunctionInfo{
			fn("a.js", 1, "getUser", "same"),
			fn("b.py", 1, "get_user", "same"),
		}
		issues := New().Aggregate(functions, nil, nil, nil)
		assert.Empty(t, filter(issues, "Inconsistent function name"))
		assert.Len(t, filter(issues, "Duplicate function"), 1)
	})

	t.Run("same spelling different bodies", func(t *testing.T) {
		functions := []models.FunctionInfo{
			fn("a.py", 1, "total", "plus"),
			fn("c.py", 1, "total", "minus"),
		}
		assert.Empty(t, New().Aggregate(functions, nil, nil, nil))
	})

	t.Run("orthogonal to exact duplicates", func(t *testing.T) {
		functions := []models.FunctionInfo{
			fn("a.js", 1, "getUser", "one"),
			fn("b.js", 1, "getUser", "one"),
			fn("c.py", 1, "get_user", "two"),
		}
		issues := New().Aggregate(functions, nil, nil, nil)
		assert.Len(t, filter(issues, "Duplicate function"), 1)
		assert.Len(t, filter(issues, "Inconsistent function name"), 3)
	})
}

func TestAggregate_MergesExternalIssues(t *testing.T) {
	external := []models.CodeIssue{
		{File: "web/b.ts", Line: 3, Kind: models.KindDuplication, Severity: models.SeverityLow, Title: "Duplicate code block (5 lines)", Effort: models.Effort1H},
		{File: "web/a.ts", Line: 8, Kind: models.KindDuplication, Severity: models.SeverityHigh, Title: "Duplicate code block (60 lines)", Effort: models.Effort4H},
	}
	issues := New().Aggregate(nil, nil, external, nil)
	require.Len(t, issues, 2)
	assert.Equal(t, external[1], issues[0])
	assert.Equal(t, external[0], issues[1])
}

const kotlinBlock = `    val total = items.sumOf { it.price }
    val tax = total * rate
    val shipping = if (total > 100) 0 else 5
    val discount = coupons.sumOf { it.amount }
    val subtotal = total - discount
    val grand = subtotal + tax + shipping
    logger.info("grand total computed")
    audit.record(grand)
    cache.put(orderId, grand)
    return grand`

func TestAggregate_Windows(t *testing.T) {
	sources := []Source{
		{File: "b.kt", Content: []byte(kotlinBlock + "\nfun z() = 2")},
		{File: "a.kt", Content: []byte("fun a() = 1\n" + kotlinBlock)},
	}

	issues := New().Aggregate(nil, nil, nil, sources)
	require.Len(t, issues, 1)
	assert.Equal(t, "b.kt", issues[0].File)
	assert.Equal(t, 1, issues[0].Line)
	assert.Equal(t, "Possible duplicate block", issues[0].Title)
	assert.Equal(t, models.SeverityMedium, issues[0].Severity)
	assert.Contains(t, issues[0].Description, "a.kt:2")
}

func TestAggregate_WindowsSkipNoise(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"import line inside every window", strings.Replace(kotlinBlock, "    audit.record(grand)", "import foo.Bar", 1)},
		{"too short", strings.Repeat("x\n", 12)},
		{"mostly comments", strings.Repeat("// a fairly long comment line that goes on\n", 6) + strings.TrimSuffix(strings.Repeat("val longEnoughName = compute()\n", 4), "\n")},
		{"fewer lines than the window", "val a = 1\nval b = 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := []Source{
				{File: "a.kt", Content: []byte(tt.body)},
				{File: "b.kt", Content: []byte(tt.body)},
			}
			assert.Empty(t, New().Aggregate(nil, nil, nil, sources))
		})
	}
}

func TestWithWindow(t *testing.T) {
	a := New(WithWindow(3, 10))
	assert.Equal(t, 3, a.windowLines)
	assert.Equal(t, 10, a.windowMinChars)

	a = New(WithWindow(0, 0))
	assert.Equal(t, 10, a.windowLines)
	assert.Equal(t, 100, a.windowMinChars)
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"getUser":  "getuser",
		"get_user": "getuser",
		"get-user": "getuser",
		"Get User": "getuser",
		"__init__": "init",
		"___":      "",
	}
	for in, want := range tests {
		if got := normalizeName(in); got != want {
			t.Errorf("normalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
