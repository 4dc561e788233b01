package notebook

import (
	"time"

	"github.com/google/uuid"
)

// Chat roles as they appear in persisted transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Notebook is a named container of markdown notes plus its chat transcript.
type Notebook struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Notes       string        `json:"notes"`
	ChatHistory []ChatMessage `json:"chatHistory"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ChatMessage records one transcript entry.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage builds a message stamped with the current time.
func NewMessage(role, content string) ChatMessage {
	return ChatMessage{Role: role, Content: content, Timestamp: time.Now()}
}

// New creates a notebook with a fresh ID and empty notes.
func New(name string) *Notebook {
	if name == "" {
		name = "Untitled Notebook"
	}
	now := time.Now()
	return &Notebook{
		ID:          uuid.NewString(),
		Name:        name,
		Notes:       "",
		ChatHistory: []ChatMessage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetName renames the notebook.
func (n *Notebook) SetName(name string) {
	n.Name = name
	n.touch()
}

// SetNotes replaces the notes content.
func (n *Notebook) SetNotes(notes string) {
	n.Notes = notes
	n.touch()
}

// AppendMessage adds a transcript entry.
func (n *Notebook) AppendMessage(msg ChatMessage) {
	n.ChatHistory = append(n.ChatHistory, msg)
	n.touch()
}

// ClearChat empties the transcript.
func (n *Notebook) ClearChat() {
	n.ChatHistory = n.ChatHistory[:0]
	n.touch()
}

// Clone returns a deep copy safe to hand to a background writer.
func (n *Notebook) Clone() *Notebook {
	clone := *n
	clone.ChatHistory = append([]ChatMessage(nil), n.ChatHistory...)
	return &clone
}

func (n *Notebook) touch() {
	n.UpdatedAt = time.Now()
}
