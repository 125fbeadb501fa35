package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bugscope/internal/crawler"
	"bugscope/internal/extractor"
	"bugscope/internal/index"
	"bugscope/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hierarchyBase = `class Base:
    def run(self):
        return 0
`

const hierarchyMid = `class Mid(Base):
    def other(self):
        return 1
`

const hierarchyChild = `class Child(Mid):
    def run(self):
        return 2
`

func newResolver(t *testing.T, files map[string]string) *Resolver {
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
	return NewResolver(search.NewBackend(ix))
}

func hierarchyFiles() map[string]string {
	return map[string]string{
		"base.py":  hierarchyBase,
		"mid.py":   hierarchyMid,
		"child.py": hierarchyChild,
	}
}

func TestResolve_MethodInClassWithInheritedContext(t *testing.T) {
	r := newResolver(t, hierarchyFiles())

	locs, err := r.Resolve(Proposal{
		Class:            "Child",
		Method:           "run",
		IntendedBehavior: "should return 3",
	})
	require.NoError(t, err)
	require.NotEmpty(t, locs)

	// the direct match comes first and carries the caller's intent
	assert.Equal(t, "child.py", locs[0].RelFile)
	assert.Equal(t, "Child", locs[0].ClassName)
	assert.Equal(t, "run", locs[0].MethodName)
	assert.Equal(t, "should return 3", locs[0].IntendedBehavior)

	var inheritedSeen, classContextSeen bool
	for _, loc := range locs {
		if loc.ClassName == "Base" && loc.MethodName == "run" {
			inheritedSeen = true
			assert.Equal(t, "should return 3", loc.IntendedBehavior)
		}
		if loc.ClassName == "Child" && loc.MethodName == "" {
			classContextSeen = true
			assert.Equal(t, classContextIntent, loc.IntendedBehavior)
		}
	}
	assert.True(t, inheritedSeen, "nearest ancestor override should be included")
	assert.True(t, classContextSeen, "enclosing class context should be included")
}

func TestResolve_InheritedWalkStopsAtNearestDepth(t *testing.T) {
	// Mid redeclares run, so Base's version is shadowed and must not appear.
	files := hierarchyFiles()
	files["mid.py"] = `class Mid(Base):
    def run(self):
        return 1
`
	r := newResolver(t, files)

	locs, err := r.Resolve(Proposal{Class: "Child", Method: "run"})
	require.NoError(t, err)

	for _, loc := range locs {
		assert.NotEqual(t, "Base", loc.ClassName, "shadowed ancestor must not be returned")
	}
	var midSeen bool
	for _, loc := range locs {
		if loc.ClassName == "Mid" && loc.MethodName == "run" {
			midSeen = true
		}
	}
	assert.True(t, midSeen)
}

func TestResolve_FallbackOrderIsStrict(t *testing.T) {
	// class + file with no method must use the class-in-file path; the
	// weaker class-alone and file-alone strategies are never attempted
	r := newResolver(t, hierarchyFiles())

	locs, err := r.Resolve(Proposal{File: "mid.py", Class: "Mid"})
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "mid.py", locs[0].RelFile)
	assert.Equal(t, "Mid", locs[0].ClassName)
	assert.Equal(t, "", locs[0].MethodName)
	assert.Equal(t, 1, locs[0].Start)
	assert.Equal(t, 3, locs[0].End)
}

func TestResolve_ClassAloneUsesFullSnippet(t *testing.T) {
	r := newResolver(t, hierarchyFiles())

	locs, err := r.Resolve(Proposal{Class: "Base"})
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Contains(t, locs[0].Code, "return 0")
}

func TestResolve_FileAloneUsesWholeFile(t *testing.T) {
	r := newResolver(t, hierarchyFiles())

	locs, err := r.Resolve(Proposal{File: "base.py"})
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "base.py", locs[0].RelFile)
	assert.Equal(t, 1, locs[0].Start)
}

func TestResolve_SplitsDottedMethodName(t *testing.T) {
	r := newResolver(t, hierarchyFiles())

	locs, err := r.Resolve(Proposal{Method: "Base.run"})
	require.NoError(t, err)
	require.NotEmpty(t, locs)
	assert.Equal(t, "Base", locs[0].ClassName)
	assert.Equal(t, "run", locs[0].MethodName)
}

func TestResolve_EmptyProposalIsCallerError(t *testing.T) {
	r := newResolver(t, hierarchyFiles())

	_, err := r.Resolve(Proposal{IntendedBehavior: "something"})
	assert.Error(t, err)
}

func TestResolve_UnresolvableYieldsEmptyList(t *testing.T) {
	r := newResolver(t, hierarchyFiles())

	locs, err := r.Resolve(Proposal{Class: "Ghost", Method: "haunt"})
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestResolveAll_DeduplicatesAcrossProposals(t *testing.T) {
	r := newResolver(t, hierarchyFiles())

	p := Proposal{Class: "Base", Method: "run", IntendedBehavior: "fix it"}
	locs, err := r.ResolveAll([]Proposal{p, p})
	require.NoError(t, err)

	for i := range locs {
		for j := i + 1; j < len(locs); j++ {
			assert.False(t, locs[i].region().Equal(locs[j].region()), "duplicate location at %d and %d", i, j)
		}
	}
}

func TestResolveAll_DedupIgnoresIntent(t *testing.T) {
	// {class, method} attaches the class body as context with the fixed
	// intent; {class} alone resolves the same body with the caller's intent.
	// The region must still come back exactly once, first-seen intent kept.
	r := newResolver(t, hierarchyFiles())

	locs, err := r.ResolveAll([]Proposal{
		{Class: "Child", Method: "run", IntendedBehavior: "should return 3"},
		{Class: "Child", IntendedBehavior: "should return 3"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, locs)

	var classBodies []BugLocation
	for _, loc := range locs {
		if loc.ClassName == "Child" && loc.MethodName == "" {
			classBodies = append(classBodies, loc)
		}
	}
	require.Len(t, classBodies, 1)
	assert.Equal(t, classContextIntent, classBodies[0].IntendedBehavior)
}
