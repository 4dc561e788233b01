package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/lectern/internal/chat"
	"github.com/csheth/lectern/internal/notebook"
	"github.com/csheth/lectern/internal/remote"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, req chat.Request) (*chat.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	encoded, err := json.Marshal(f.reply)
	if err != nil {
		return nil, err
	}
	raw := `{"candidates":[{"content":{"parts":[{"text":` + string(encoded) + `}]}}]}`
	var resp chat.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func newTestModel(t *testing.T, completer chat.Completer) *model {
	t.Helper()
	store, err := notebook.NewStore(filepath.Join(t.TempDir(), "notebooks"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	teaModel, ok := New(Config{
		Store: store,
		Chat:  completer,
		Audio: remote.NewAudioBackend(remote.AudioConfig{Endpoint: "http://127.0.0.1:1"}),
	}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	return teaModel
}

func openTestNotebook(t *testing.T, m *model, name string) *notebook.Notebook {
	t.Helper()
	nb, err := m.config.Store.Create(name)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.openNotebook(nb)
	return nb
}

func TestSubmitChatRequiresSession(t *testing.T) {
	m := newTestModel(t, nil)
	openTestNotebook(t, m, "Biology")

	m.chatInput.SetValue("What is chlorophyll?")
	_, cmd := m.submitChatMessage()
	if cmd != nil {
		t.Fatal("no task should be dispatched without a session")
	}
	if m.errorMessage == "" {
		t.Fatal("expected an error message explaining chat is disabled")
	}
}

func TestSubmitChatDispatchesOnce(t *testing.T) {
	m := newTestModel(t, &fakeCompleter{reply: "ok"})
	openTestNotebook(t, m, "Biology")

	m.chatInput.SetValue("What is chlorophyll?")
	_, cmd := m.submitChatMessage()
	if cmd == nil {
		t.Fatal("expected a chat task to be dispatched")
	}
	if !m.sendPending {
		t.Fatal("send should be marked pending")
	}
	if m.chatInput.Value() != "" {
		t.Fatal("composer should be cleared on submit")
	}

	// A second submit while one is in flight is ignored.
	m.chatInput.SetValue("another question")
	_, cmd = m.submitChatMessage()
	if cmd != nil {
		t.Fatal("concurrent sends against one session must be blocked")
	}
}

func TestChatReplyAppendsAndSaves(t *testing.T) {
	m := newTestModel(t, &fakeCompleter{reply: "A green pigment."})
	nb := openTestNotebook(t, m, "Biology")
	m.sendPending = true
	m.pendingQuestion = "What is chlorophyll?"

	_, cmd := m.handleChatReply(chatReplyMsg{
		notebookID: nb.ID,
		question:   "What is chlorophyll?",
		reply:      "A green pigment.",
	})
	if cmd == nil {
		t.Fatal("expected a save task after a successful reply")
	}
	if m.sendPending {
		t.Fatal("send should no longer be pending")
	}
	if len(nb.ChatHistory) != 2 {
		t.Fatalf("expected 2 transcript entries, got %d", len(nb.ChatHistory))
	}
	if nb.ChatHistory[0].Role != notebook.RoleUser || nb.ChatHistory[1].Role != notebook.RoleAssistant {
		t.Fatalf("unexpected transcript roles: %+v", nb.ChatHistory)
	}
}

func TestChatReplyFailureLeavesTranscriptAlone(t *testing.T) {
	m := newTestModel(t, &fakeCompleter{})
	nb := openTestNotebook(t, m, "Biology")
	m.sendPending = true

	_, cmd := m.handleChatReply(chatReplyMsg{
		notebookID: nb.ID,
		question:   "hello",
		err:        &remote.TransportError{StatusCode: 500, Body: "boom"},
	})
	if cmd != nil {
		t.Fatal("a failed reply must not trigger a save")
	}
	if len(nb.ChatHistory) != 0 {
		t.Fatalf("transcript must be unchanged, got %d entries", len(nb.ChatHistory))
	}
	if m.errorMessage == "" {
		t.Fatal("expected a human-readable error message")
	}
}

func TestTranscriptionReplacesNotes(t *testing.T) {
	m := newTestModel(t, &fakeCompleter{reply: "ok"})
	nb := openTestNotebook(t, m, "Biology")
	m.transcribing = true

	_, cmd := m.handleTranscription(transcriptionMsg{
		notebookID: nb.ID,
		notes:      "# Lecture\n\n- item",
	})
	if cmd == nil {
		t.Fatal("expected a save task after transcription")
	}
	if nb.Notes != "# Lecture\n\n- item" {
		t.Fatalf("unexpected notes: %q", nb.Notes)
	}
	if m.transcribing {
		t.Fatal("transcription should no longer be pending")
	}
}

func TestTranscriptionBackendUnavailableMessage(t *testing.T) {
	m := newTestModel(t, nil)
	nb := openTestNotebook(t, m, "Biology")
	m.transcribing = true

	m.handleTranscription(transcriptionMsg{
		notebookID: nb.ID,
		err:        fmt.Errorf("%w at http://127.0.0.1:1", remote.ErrBackendUnavailable),
	})
	if !strings.Contains(m.errorMessage, "not reachable") {
		t.Fatalf("expected a backend-unreachable message, got %q", m.errorMessage)
	}
}

func TestClearChatEmptiesSessionAndTranscript(t *testing.T) {
	m := newTestModel(t, &fakeCompleter{reply: "ok"})
	nb := openTestNotebook(t, m, "Biology")
	nb.AppendMessage(notebook.NewMessage(notebook.RoleUser, "q"))
	nb.AppendMessage(notebook.NewMessage(notebook.RoleAssistant, "a"))
	m.session.Restore(nb.ChatHistory, "")

	_, cmd := m.clearChat()
	if cmd == nil {
		t.Fatal("clearing should persist the notebook")
	}
	if len(nb.ChatHistory) != 0 {
		t.Fatal("transcript should be empty")
	}
	if m.session.Len() != 0 {
		t.Fatal("session history should be empty")
	}
}

func TestOpenNotebookRestoresSession(t *testing.T) {
	m := newTestModel(t, &fakeCompleter{reply: "ok"})
	nb, err := m.config.Store.Create("Biology")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	nb.AppendMessage(notebook.NewMessage(notebook.RoleUser, "q"))
	nb.AppendMessage(notebook.NewMessage(notebook.RoleAssistant, "a"))

	m.openNotebook(nb)
	if m.session == nil {
		t.Fatal("expected a session to be created")
	}
	if m.session.Len() != 2 {
		t.Fatalf("expected restored history of 2 turns, got %d", m.session.Len())
	}
	if m.screen != screenNotebook {
		t.Fatal("expected the notebook screen to be active")
	}
}

func TestNotebooksLoadedClampsCursor(t *testing.T) {
	m := newTestModel(t, nil)
	m.cursor = 5

	m.handleNotebooksLoaded(notebooksLoadedMsg{notebooks: []*notebook.Notebook{notebook.New("only")}})
	if m.cursor != 0 {
		t.Fatalf("cursor should be clamped, got %d", m.cursor)
	}
	if m.loading {
		t.Fatal("loading flag should be cleared")
	}
}

func TestTaskResultUnwrapsPayload(t *testing.T) {
	m := newTestModel(t, nil)
	m.running["load-1"] = taskSnapshot{ID: "load-1", Kind: taskKindLoad, Status: taskStatusRunning}

	updated, _ := m.Update(taskResultMsg{
		Snapshot: taskSnapshot{ID: "load-1", Kind: taskKindLoad, Status: taskStatusSucceeded},
		Payload:  notebooksLoadedMsg{notebooks: []*notebook.Notebook{notebook.New("x")}},
	})
	got, ok := updated.(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", updated)
	}
	if len(got.running) != 0 {
		t.Fatal("finished task should be removed from the running set")
	}
	if len(got.notebooks) != 1 {
		t.Fatalf("payload should have been applied, got %d notebooks", len(got.notebooks))
	}
}

func TestAudioPromptRejectsEmptyPath(t *testing.T) {
	m := newTestModel(t, nil)
	openTestNotebook(t, m, "Biology")
	m.nbMode = nbAudioPrompt
	m.audioInput.SetValue("   ")

	_, cmd := m.handleNotebookKey(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("no task should be dispatched for a blank path")
	}
	if m.errorMessage == "" {
		t.Fatal("expected an invalid-input error message")
	}
	if m.transcribing {
		t.Fatal("transcription must not start")
	}
}
