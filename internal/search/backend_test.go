package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bugscope/internal/crawler"
	"bugscope/internal/extractor"
	"bugscope/internal/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureA = `class A:
    def foo(self):
        return 1
`

const fixtureB = `def bar():
    print("hello world")
`

const fixtureMany = `class C1:
    def ping(self):
        return 1


class C2:
    def ping(self):
        return 2


class C3:
    def ping(self):
        return 3


class C4:
    def ping(self):
        return 4
`

func newBackend(t *testing.T, files map[string]string) *Backend {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	ext, err := extractor.NewExtractor("go", "python")
	require.NoError(t, err)
	builder := index.NewBuilder(ext, crawler.NewCrawler(ext.Extensions()))
	ix, err := builder.Build(context.Background(), root)
	require.NoError(t, err)
	return NewBackend(ix)
}

func TestSearchClass(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA, "b.py": fixtureB})

	out, results, ok := b.SearchClass("A")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Start)
	assert.Equal(t, 3, results[0].End)
	assert.Equal(t, "A", results[0].ClassName)
	assert.Contains(t, out, "Found 1 classes with name A in the codebase:")
	assert.Contains(t, out, "<file>a.py</file>")
}

func TestSearchClass_NotFound(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	out, results, ok := b.SearchClass("Missing")
	assert.False(t, ok)
	assert.Empty(t, results)
	assert.Equal(t, "Could not find class Missing in the codebase.", out)
}

func TestSearchClassInFile_SuffixMatchIsCaseInsensitive(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	_, results, ok := b.SearchClassInFile("A", "A.PY")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Code, "class A:")
}

func TestSearchMethodInClass_SubsetOfSearchMethod(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA, "b.py": fixtureB})

	_, inClass, ok := b.SearchMethodInClass("foo", "A")
	require.True(t, ok)
	_, all, ok := b.SearchMethod("foo")
	require.True(t, ok)

	for _, want := range inClass {
		found := false
		for _, got := range all {
			if got.Equal(want) {
				found = true
				break
			}
		}
		assert.True(t, found, "result %+v missing from search_method", want)
	}
}

func TestSearchMethodInClass_UnknownClass(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	out, _, ok := b.SearchMethodInClass("foo", "Nope")
	assert.False(t, ok)
	assert.Equal(t, "Could not find class Nope in the codebase.", out)
}

func TestSearchMethod_TopLevel(t *testing.T) {
	b := newBackend(t, map[string]string{"b.py": fixtureB})

	_, results, ok := b.SearchMethod("bar")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Start)
	assert.Equal(t, 2, results[0].End)
	assert.Equal(t, "", results[0].ClassName)
}

func TestSearchMethod_CollapsesBeyondCap(t *testing.T) {
	b := newBackend(t, map[string]string{"many.py": fixtureMany})

	out, results, ok := b.SearchMethod("ping")
	require.True(t, ok)
	assert.Len(t, results, 3)
	assert.Contains(t, out, "Found 4 methods with name ping in the codebase:")
	assert.Contains(t, out, "They appeared in the following files:")
	assert.Contains(t, out, "<file>many.py</file> (4 matches)")
}

func TestSearchCode(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA, "b.py": fixtureB})

	out, results, ok := b.SearchCode("hello world")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Start)
	assert.Equal(t, "bar", results[0].FuncName)
	assert.Contains(t, results[0].Code, "1 def bar():")
	assert.Contains(t, results[0].Code, "2     print(\"hello world\")")
	assert.Contains(t, out, "<func>bar</func>")
}

func TestSearchCode_NotFound(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	_, results, ok := b.SearchCode("no such snippet")
	assert.False(t, ok)
	assert.Empty(t, results)
}

func TestSearchCodeInFile_StripsTrailingParen(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	_, results, ok := b.SearchCodeInFile("return 1)", "a.py")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].ClassName)
	assert.Equal(t, "foo", results[0].FuncName)
}

func TestGetCodeAroundLine(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	out, results, ok := b.GetCodeAroundLine("a.py", "2", "1")
	require.True(t, ok)
	assert.Contains(t, out, "1 class A:")
	assert.Contains(t, out, "3         return 1")

	// the returned results are the enclosing function, not the window
	require.NotEmpty(t, results)
	assert.Equal(t, "foo", results[0].FuncName)
	assert.Equal(t, "A", results[0].ClassName)
	assert.Equal(t, 2, results[0].Start)
	assert.Equal(t, 3, results[0].End)
}

func TestGetCodeAroundLine_BadArguments(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	_, _, ok := b.GetCodeAroundLine("a.py", "abc", "1")
	assert.False(t, ok)
	_, _, ok = b.GetCodeAroundLine("a.py", "2", "x")
	assert.False(t, ok)
	_, _, ok = b.GetCodeAroundLine("a.py", "99", "1")
	assert.False(t, ok)
}

func TestGetFileContent_TakesFirstSuffixMatch(t *testing.T) {
	// whole-file fetch deliberately takes the first match while class and
	// method queries operate over all matches
	b := newBackend(t, map[string]string{
		"dir1/util.py": "def one():\n    return 1\n",
		"dir2/util.py": "def two():\n    return 2\n",
	})

	out, results, ok := b.GetFileContent("util.py")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.True(t, strings.HasSuffix(results[0].File, filepath.Join("dir1", "util.py")))
	assert.Contains(t, out, "def one():")
	assert.NotContains(t, out, "def two():")
}

func TestGetClassFullSnippet(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	_, results, ok := b.GetClassFullSnippet("A")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Code, "return 1")
}

func TestRegistry_AritiesMatchPrimitives(t *testing.T) {
	want := map[string]int{
		"search_class":           1,
		"search_class_in_file":   2,
		"search_method_in_file":  2,
		"search_method_in_class": 2,
		"search_method":          1,
		"search_code":            1,
		"search_code_in_file":    2,
		"get_code_around_line":   3,
	}
	assert.Len(t, PrimitiveNames(), len(want))
	for name, arity := range want {
		prim, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, arity, prim.Arity, name)
		assert.NotNil(t, prim.Run, name)
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	b := newBackend(t, map[string]string{"a.py": fixtureA})

	prim, ok := Lookup("search_class")
	require.True(t, ok)
	out, results, found := prim.Run(b, []string{"A"})
	require.True(t, found)
	assert.Len(t, results, 1)
	assert.Contains(t, out, "Found 1 classes")
}
