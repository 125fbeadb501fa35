package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bugscope/internal/crawler"
	"bugscope/internal/extractor"

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

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	ext, err := extractor.NewExtractor("go", "python")
	require.NoError(t, err)
	return NewBuilder(ext, crawler.NewCrawler(ext.Extensions()))
}

func TestBuilder_Build(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a.py": fixtureA,
		"b.py": fixtureB,
	})

	ix, err := newBuilder(t).Build(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, ix.ParsedFiles, 2)
	assert.Equal(t, filepath.Join(ix.ProjectRoot, "a.py"), ix.ParsedFiles[0])
	assert.Equal(t, filepath.Join(ix.ProjectRoot, "b.py"), ix.ParsedFiles[1])

	require.Len(t, ix.Class["A"], 1)
	assert.Equal(t, LineRange{Start: 1, End: 3}, ix.Class["A"][0].Range)

	require.Len(t, ix.ClassMethod["A"]["foo"], 1)
	assert.Equal(t, LineRange{Start: 2, End: 3}, ix.ClassMethod["A"]["foo"][0].Range)

	require.Len(t, ix.Function["bar"], 1)
	assert.Equal(t, LineRange{Start: 1, End: 2}, ix.Function["bar"][0].Range)

	assert.Empty(t, ix.Relation["A"])
}

func TestBuilder_BuildIsDeterministic(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a.py": fixtureA,
		"b.py": fixtureB,
	})

	first, err := newBuilder(t).Build(context.Background(), root)
	require.NoError(t, err)
	second, err := newBuilder(t).Build(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuilder_BuildIsMemoized(t *testing.T) {
	root := writeProject(t, map[string]string{"a.py": fixtureA})
	b := newBuilder(t)

	first, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), root)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestBuilder_ParseFailureSkipsFile(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a.py":      fixtureA,
		"broken.py": "def broken(:\n",
	})

	ix, err := newBuilder(t).Build(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, ix.ParsedFiles, 1)
	assert.Equal(t, filepath.Join(ix.ProjectRoot, "a.py"), ix.ParsedFiles[0])
}

func TestBuilder_EmptyProjectYieldsEmptyIndices(t *testing.T) {
	root := t.TempDir()

	ix, err := newBuilder(t).Build(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, ix.ParsedFiles)
	assert.Empty(t, ix.Class)
	assert.Empty(t, ix.Function)
}

func TestIndices_MatchFiles(t *testing.T) {
	root := writeProject(t, map[string]string{
		"pkg/util.py":   fixtureB,
		"other/util.py": fixtureB,
	})

	ix, err := newBuilder(t).Build(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, ix.MatchFiles("util.py"), 2)
	assert.Len(t, ix.MatchFiles("pkg/util.py"), 1)
	assert.Len(t, ix.MatchFiles("UTIL.PY"), 2)
	assert.Empty(t, ix.MatchFiles("missing.py"))
}

func TestIndices_FileLineToClassAndFunc(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a.py": fixtureA,
		"b.py": fixtureB,
	})

	ix, err := newBuilder(t).Build(context.Background(), root)
	require.NoError(t, err)

	aPath := filepath.Join(ix.ProjectRoot, "a.py")
	bPath := filepath.Join(ix.ProjectRoot, "b.py")

	class, fn := ix.FileLineToClassAndFunc(aPath, 3)
	assert.Equal(t, "A", class)
	assert.Equal(t, "foo", fn)

	class, fn = ix.FileLineToClassAndFunc(bPath, 2)
	assert.Equal(t, "", class)
	assert.Equal(t, "bar", fn)

	class, fn = ix.FileLineToClassAndFunc(aPath, 1)
	assert.Equal(t, "", class)
	assert.Equal(t, "", fn)
}
