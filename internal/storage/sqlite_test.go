package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveRound_Upserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.BeginSession(ctx, "/tmp/project", "issue text")
	require.NoError(t, err)

	require.NoError(t, store.SaveRound(ctx, sessionID, 0, `[{"role":"system","content":"a"}]`))
	require.NoError(t, store.SaveRound(ctx, sessionID, 1, `[{"role":"system","content":"a"},{"role":"user","content":"b"}]`))
	// same round saved again replaces the transcript
	require.NoError(t, store.SaveRound(ctx, sessionID, 1, `[{"role":"user","content":"c"}]`))

	rounds, err := store.SessionRounds(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, `[{"role":"system","content":"a"}]`, rounds[0])
	assert.Equal(t, `[{"role":"user","content":"c"}]`, rounds[1])
}

func TestSQLiteStore_SaveCallsAndLocations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.BeginSession(ctx, "/tmp/project", "issue text")
	require.NoError(t, err)

	calls := []CallRecord{
		{Text: `search_class("A")`, OK: true},
		{Text: `search_method("ghost")`, OK: false},
	}
	require.NoError(t, store.SaveCalls(ctx, sessionID, 0, calls))

	locations := []LocationRecord{
		{RelFile: "a.py", Start: 2, End: 3, ClassName: "A", MethodName: "foo", IntendedBehavior: "should return 2"},
		{RelFile: "a.py", Start: 1, End: 3, ClassName: "A", IntendedBehavior: "context"},
	}
	require.NoError(t, store.SaveLocations(ctx, sessionID, locations))

	got, err := store.SessionLocations(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, locations, got)
}

func TestSQLiteStore_SessionsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.BeginSession(ctx, "/tmp/p1", "issue 1")
	require.NoError(t, err)
	second, err := store.BeginSession(ctx, "/tmp/p2", "issue 2")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, store.SaveLocations(ctx, first, []LocationRecord{
		{RelFile: "a.py", Start: 1, End: 2, IntendedBehavior: "x"},
	}))

	got, err := store.SessionLocations(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarshalLocations(t *testing.T) {
	out, err := MarshalLocations([]LocationRecord{
		{RelFile: "a.py", Start: 2, End: 3, ClassName: "A", MethodName: "foo", IntendedBehavior: "fix"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, `"rel_file": "a.py"`)
	assert.Contains(t, out, `"intended_behavior": "fix"`)
}
