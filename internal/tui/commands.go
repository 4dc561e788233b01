package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/lectern/internal/chat"
	"github.com/csheth/lectern/internal/notebook"
	"github.com/csheth/lectern/internal/remote"
)

const (
	chatCallTimeout       = 2 * time.Minute
	transcribeCallTimeout = 5 * time.Minute
)

type notebooksLoadedMsg struct {
	notebooks []*notebook.Notebook
	err       error
}

type notebookCreatedMsg struct {
	nb  *notebook.Notebook
	err error
}

type notebookSavedMsg struct {
	id  string
	err error
}

type notebookDeletedMsg struct {
	id  string
	err error
}

type chatReplyMsg struct {
	notebookID string
	question   string
	reply      string
	err        error
}

type transcriptionMsg struct {
	notebookID string
	notes      string
	err        error
}

func loadNotebooksJob(store *notebook.Store) taskRunner {
	return func(parent context.Context) (tea.Msg, error) {
		notebooks, err := store.LoadAll()
		if err != nil {
			return notebooksLoadedMsg{err: err}, err
		}
		return notebooksLoadedMsg{notebooks: notebooks}, nil
	}
}

func createNotebookJob(store *notebook.Store, name string) taskRunner {
	return func(parent context.Context) (tea.Msg, error) {
		nb, err := store.Create(name)
		if err != nil {
			return notebookCreatedMsg{err: err}, err
		}
		return notebookCreatedMsg{nb: nb}, nil
	}
}

func saveNotebookJob(store *notebook.Store, nb *notebook.Notebook) taskRunner {
	snapshot := nb.Clone()
	return func(parent context.Context) (tea.Msg, error) {
		if err := store.Save(snapshot); err != nil {
			return notebookSavedMsg{id: snapshot.ID, err: err}, err
		}
		return notebookSavedMsg{id: snapshot.ID}, nil
	}
}

func deleteNotebookJob(store *notebook.Store, id string) taskRunner {
	return func(parent context.Context) (tea.Msg, error) {
		if err := store.Delete(id); err != nil {
			return notebookDeletedMsg{id: id, err: err}, err
		}
		return notebookDeletedMsg{id: id}, nil
	}
}

func sendMessageJob(session *chat.Session, notebookID, message string) taskRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, chatCallTimeout)
		defer cancel()
		reply, err := session.Send(ctx, message)
		if err != nil {
			return chatReplyMsg{notebookID: notebookID, question: message, err: err}, err
		}
		return chatReplyMsg{notebookID: notebookID, question: message, reply: reply}, nil
	}
}

func transcribeAudioJob(backend *remote.AudioBackend, notebookID, path string) taskRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, transcribeCallTimeout)
		defer cancel()
		notes, err := backend.NotesFromAudio(ctx, path)
		if err != nil {
			return transcriptionMsg{notebookID: notebookID, err: err}, err
		}
		return transcriptionMsg{notebookID: notebookID, notes: notes}, nil
	}
}
