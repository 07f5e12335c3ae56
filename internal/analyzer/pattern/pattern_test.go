package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/augur/pkg/models"
	"github.com/panbanda/augur/pkg/parser"
)

func names(fns []models.FunctionInfo) []string {
	out := make([]string, 0, len(fns))
	for _, fn := range fns {
		out = append(out, fn.Name)
	}
	return out
}

func TestAnalyze_Python(t *testing.T) {
	src := `class Account:
    def deposit(self, amount: int = 0):
        pass

# def commented(x):
def total(x, y): return x + y
`
	r := New().Analyze("a.py", parser.LangPython, []byte(src))

	assert.Equal(t, []string{"deposit", "total"}, names(r.Functions))
	require.Len(t, r.Classes, 1)
	assert.Equal(t, "Account", r.Classes[0].Name)
	assert.Equal(t, 1, r.Classes[0].Line)

	deposit := r.Functions[0]
	assert.Equal(t, 2, deposit.Line)
	assert.Equal(t, []string{"self", "amount"}, deposit.Params)
	assert.Equal(t, 1, deposit.Complexity)
	assert.Equal(t, models.SourcePattern, deposit.Source)
	assert.Len(t, deposit.Fingerprint, 64)

	total := r.Functions[1]
	assert.Equal(t, 6, total.Line)
	assert.Equal(t, []string{"x", "y"}, total.Params)
}

func TestAnalyze_JavaScriptOverlapsKept(t *testing.T) {
	src := `export async function load(url, opts) {
  return fetch(url);
}
const add = (a, b) => a + b;
// function hidden() {}
const api = {
  get: async (id) => id,
};
if (ready) {
  start();
}
class Store extends Base {
}
type Id = string;
`
	r := New().Analyze("app.ts", parser.LangTypeScript, []byte(src))

	// "load" is matched by both the function rule and the call-like rule.
	assert.Equal(t, []string{"load", "add", "get", "load"}, names(r.Functions))
	assert.Equal(t, []string{"url", "opts"}, r.Functions[0].Params)
	assert.Equal(t, []string{"a", "b"}, r.Functions[1].Params)

	var classNames []string
	for _, c := range r.Classes {
		classNames = append(classNames, c.Name)
	}
	assert.Equal(t, []string{"Store", "Id"}, classNames)
}

func TestAnalyze_GoFallback(t *testing.T) {
	src := "package p\n\ntype Point struct{ X int }\n\nfunc (p Point) Add(q Point) Point { return p }\n\nfunc Scale(x, y int) int { return x }\n"
	r := New().Analyze("p.go", parser.LangGo, []byte(src))

	assert.Equal(t, []string{"Add", "Scale"}, names(r.Functions))
	assert.Equal(t, []string{"x", "y"}, r.Functions[1].Params)
	require.Len(t, r.Classes, 1)
	assert.Equal(t, "Point", r.Classes[0].Name)
}

func TestAnalyze_Kotlin(t *testing.T) {
	src := "class Repo {\n    fun find(id: Long, name: String): User? = null\n}\n"
	r := New().Analyze("Repo.kt", parser.LangKotlin, []byte(src))

	require.Len(t, r.Functions, 1)
	assert.Equal(t, "find", r.Functions[0].Name)
	assert.Equal(t, []string{"id", "name"}, r.Functions[0].Params)
	require.Len(t, r.Classes, 1)
	assert.Equal(t, "Repo", r.Classes[0].Name)
}

func TestAnalyze_GenericCLike(t *testing.T) {
	src := "public class Main {\n  public static int sum(int a, int b) {\n    return a + b;\n  }\n}\n"
	r := New().Analyze("Main.java", parser.LangJava, []byte(src))

	assert.Contains(t, names(r.Functions), "sum")
	for _, fn := range r.Functions {
		if fn.Name == "sum" {
			assert.Equal(t, []string{"a", "b"}, fn.Params)
		}
	}
	assert.NotContains(t, names(r.Functions), "if")
}

func TestAnalyze_VueScriptBlocks(t *testing.T) {
	src := `<template>
  <div @click="save()">{{ title }}</div>
</template>

<script setup lang="ts">
const save = () => {
  emit('saved')
}
function reset(form) {
  form.clear()
}
</script>
`
	r := New().Analyze("Form.vue", parser.LangVue, []byte(src))

	fns := names(r.Functions)
	assert.Contains(t, fns, "save")
	assert.Contains(t, fns, "reset")
	for _, fn := range r.Functions {
		switch fn.Name {
		case "save":
			assert.Equal(t, 6, fn.Line)
		case "reset":
			assert.Equal(t, 9, fn.Line)
		}
	}
}

func TestAnalyze_FingerprintOfMatchedText(t *testing.T) {
	a := New().Analyze("a.rb", parser.LangRuby, []byte("def total(x, y)\n  x + y\nend\n"))
	b := New().Analyze("b.rb", parser.LangRuby, []byte("# helpers\ndef total(x, y)\n  x - y\nend\n"))
	c := New().Analyze("c.rb", parser.LangRuby, []byte("def total(a, b)\n  a + b\nend\n"))

	require.Len(t, a.Functions, 1)
	require.Len(t, b.Functions, 1)
	require.Len(t, c.Functions, 1)
	// Only the signature is matched, so bodies do not affect the fingerprint.
	assert.Equal(t, a.Functions[0].Fingerprint, b.Functions[0].Fingerprint)
	assert.NotEqual(t, a.Functions[0].Fingerprint, c.Functions[0].Fingerprint)
}

func TestSplitParams(t *testing.T) {
	tests := []struct {
		raw       string
		lastToken bool
		want      []string
	}{
		{"", false, nil},
		{"x, y", false, []string{"x", "y"}},
		{"self, *args, **kwargs", false, []string{"self", "args", "kwargs"}},
		{"ctx context.Context, n int", false, []string{"ctx", "n"}},
		{"int a, char *b", true, []string{"a", "b"}},
		{"mut x: i32, &self", false, []string{"x", "self"}},
		{"...rest", false, []string{"rest"}},
		{"limit = 10", false, []string{"limit"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, splitParams(tt.raw, tt.lastToken))
		})
	}
}
