package oracle

import (
	"encoding/json"
	"os"
)

// Transcript is an append-only conversation record. The retrieval
// coordinator owns exactly one transcript per session.
type Transcript struct {
	messages []Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) add(role, content string) {
	t.messages = append(t.messages, Message{Role: role, Content: content})
}

// AddSystem appends a system message.
func (t *Transcript) AddSystem(content string) { t.add(RoleSystem, content) }

// AddUser appends a user message.
func (t *Transcript) AddUser(content string) { t.add(RoleUser, content) }

// AddAssistant appends an assistant message.
func (t *Transcript) AddAssistant(content string) { t.add(RoleAssistant, content) }

// Messages returns a copy of the conversation so far.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.messages) }

// CompletedRounds counts assistant turns, which is how many times the oracle
// has answered so far.
func (t *Transcript) CompletedRounds() int {
	n := 0
	for _, m := range t.messages {
		if m.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// SaveToFile writes the transcript as a JSON array of messages.
func (t *Transcript) SaveToFile(path string) error {
	data, err := json.MarshalIndent(t.messages, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadTranscript reads a transcript previously written by SaveToFile.
func LoadTranscript(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}
	return &Transcript{messages: messages}, nil
}
