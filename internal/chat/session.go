package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/csheth/lectern/internal/notebook"
)

const notesContextPreamble = "You are a helpful assistant. The user has provided the following notes for context:\n\n"

const notesContextPostamble = "\n\nPlease use these notes to provide accurate and relevant answers to their questions."

// Session holds one ordered conversation for one chat partner plus an
// optional notes context delivered as a system instruction, never as a turn.
//
// Turns are append-only except for the rollback in Send: a failed send leaves
// the history exactly as it was before the call. The UI serializes sends per
// session; the mutex is a defensive guard since sends run off the update loop.
type Session struct {
	mu           sync.Mutex
	completer    Completer
	history      []Turn
	notesContext string
}

// NewSession returns an empty session dispatching through completer.
func NewSession(completer Completer) *Session {
	return &Session{completer: completer}
}

// SetNotesContext stores trimmed steering text, or clears it when blank.
// Pure state update; it only affects the payload built by the next Send.
func (s *Session) SetNotesContext(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notesContext = strings.TrimSpace(text)
}

// Send appends a user turn, dispatches the full history, and appends the
// assistant's reply. On any failure the user turn is rolled back and the
// error propagated.
func (s *Session) Send(ctx context.Context, userMessage string) (string, error) {
	if strings.TrimSpace(userMessage) == "" {
		return "", fmt.Errorf("message cannot be empty")
	}

	s.mu.Lock()
	s.history = append(s.history, Turn{Role: RoleUser, Parts: []Part{{Text: userMessage}}})
	req := s.buildRequestLocked()
	s.mu.Unlock()

	resp, err := s.completer.Complete(ctx, req)
	if err != nil {
		s.rollback()
		return "", err
	}
	reply, err := ReplyText(resp)
	if err != nil {
		s.rollback()
		return "", err
	}

	s.mu.Lock()
	s.history = append(s.history, Turn{Role: RoleModel, Parts: []Part{{Text: reply}}})
	s.mu.Unlock()
	return reply, nil
}

// Clear empties the history. The notes context is untouched.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Restore replaces the history wholesale from a persisted transcript and
// applies the notes context when non-blank. Messages are mapped in order,
// user stays user and anything else becomes a model turn; no context text is
// prefixed onto turns, so restoring is stable regardless of notes edits.
func (s *Session) Restore(messages []notebook.ChatMessage, notesContext string) {
	history := make([]Turn, 0, len(messages))
	for _, msg := range messages {
		role := RoleModel
		if msg.Role == notebook.RoleUser {
			role = RoleUser
		}
		history = append(history, Turn{Role: role, Parts: []Part{{Text: msg.Content}}})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = history
	if trimmed := strings.TrimSpace(notesContext); trimmed != "" {
		s.notesContext = trimmed
	}
}

// History returns a copy of the conversation turns.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

// Len reports the number of turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *Session) buildRequestLocked() Request {
	req := Request{Contents: append([]Turn(nil), s.history...)}
	if s.notesContext != "" {
		req.SystemInstruction = &Instruction{
			Parts: []Part{{Text: notesContextPreamble + s.notesContext + notesContextPostamble}},
		}
	}
	return req
}

func (s *Session) rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) > 0 {
		s.history = s.history[:len(s.history)-1]
	}
}
