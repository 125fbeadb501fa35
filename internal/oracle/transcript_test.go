package oracle

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_RoundTrip(t *testing.T) {
	tr := NewTranscript()
	tr.AddSystem("you are a developer")
	tr.AddUser("<issue>\nsomething broke\n</issue>")
	tr.AddAssistant("let me search")
	tr.AddUser("result of search")
	tr.AddAssistant("found it")

	path := filepath.Join(t.TempDir(), "conversation_round_0.json")
	require.NoError(t, tr.SaveToFile(path))

	loaded, err := LoadTranscript(path)
	require.NoError(t, err)
	assert.Equal(t, tr.Messages(), loaded.Messages())
	assert.Equal(t, 2, loaded.CompletedRounds())
}

func TestTranscript_MessagesReturnsCopy(t *testing.T) {
	tr := NewTranscript()
	tr.AddUser("original")

	msgs := tr.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "original", tr.Messages()[0].Content)
}

func TestTranscript_CompletedRounds(t *testing.T) {
	tr := NewTranscript()
	assert.Equal(t, 0, tr.CompletedRounds())
	tr.AddSystem("s")
	tr.AddUser("u")
	assert.Equal(t, 0, tr.CompletedRounds())
	tr.AddAssistant("a")
	assert.Equal(t, 1, tr.CompletedRounds())
}
