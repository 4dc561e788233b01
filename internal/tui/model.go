package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/lectern/internal/chat"
	"github.com/csheth/lectern/internal/notebook"
	"github.com/csheth/lectern/internal/remote"
)

// Config wires runtime collaborators into the TUI program.
type Config struct {
	Store *notebook.Store
	Chat  chat.Completer
	Audio *remote.AudioBackend
}

type screen int

const (
	screenDashboard screen = iota
	screenNotebook
)

type dashboardMode int

const (
	dashBrowse dashboardMode = iota
	dashName
	dashConfirmDelete
)

type notebookMode int

const (
	nbChat notebookMode = iota
	nbEditNotes
	nbAudioPrompt
)

const (
	minPanelWidth   = 30
	chromeHeight    = 12
	defaultPanelTop = 20
)

type model struct {
	config Config
	tasks  *taskBus
	screen screen

	// Dashboard state.
	dashMode  dashboardMode
	notebooks []*notebook.Notebook
	cursor    int
	nameInput textinput.Model
	loading   bool

	// Notebook state.
	nbMode          notebookMode
	current         *notebook.Notebook
	session         *chat.Session
	chatInput       textinput.Model
	notesEditor     textarea.Model
	audioInput      textinput.Model
	chatViewport    viewport.Model
	notesViewport   viewport.Model
	chatDirty       bool
	notesDirty      bool
	sendPending     bool
	pendingQuestion string
	transcribing    bool

	spinner      spinner.Model
	running      map[string]taskSnapshot
	width        int
	height       int
	infoMessage  string
	errorMessage string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	nameInput := textinput.New()
	nameInput.Placeholder = "Notebook name…"
	nameInput.CharLimit = 80
	nameInput.Width = 50

	chatInput := textinput.New()
	chatInput.Placeholder = "Ask about your notes…"
	chatInput.CharLimit = 500
	chatInput.Width = 60

	audioInput := textinput.New()
	audioInput.Placeholder = "/path/to/lecture.mp3"
	audioInput.CharLimit = 300
	audioInput.Width = 60

	notesEditor := textarea.New()
	notesEditor.Placeholder = "Write markdown notes…"
	notesEditor.CharLimit = 0

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &model{
		config:        config,
		tasks:         newTaskBus(),
		screen:        screenDashboard,
		dashMode:      dashBrowse,
		nameInput:     nameInput,
		chatInput:     chatInput,
		audioInput:    audioInput,
		notesEditor:   notesEditor,
		chatViewport:  viewport.New(60, defaultPanelTop),
		notesViewport: viewport.New(60, defaultPanelTop),
		spinner:       spin,
		running:       map[string]taskSnapshot{},
		loading:       true,
		infoMessage:   "Loading notebooks…",
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.tasks.Dispatch(taskKindLoad, loadNotebooksJob(m.config.Store)),
	)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case taskSignalMsg:
		m.running[msg.Snapshot.ID] = msg.Snapshot
		return m, m.spinner.Tick
	case taskResultMsg:
		delete(m.running, msg.Snapshot.ID)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case notebooksLoadedMsg:
		return m.handleNotebooksLoaded(msg)
	case notebookCreatedMsg:
		return m.handleNotebookCreated(msg)
	case notebookSavedMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Failed to save notebook: %v", msg.err)
		}
		return m, nil
	case notebookDeletedMsg:
		return m.handleNotebookDeleted(msg)
	case chatReplyMsg:
		return m.handleChatReply(msg)
	case transcriptionMsg:
		return m.handleTranscription(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) busy() bool {
	return len(m.running) > 0 || m.sendPending || m.transcribing || m.loading
}

func (m *model) resize(width, height int) {
	m.width = width
	m.height = height
	panelWidth := width/2 - 4
	if panelWidth < minPanelWidth {
		panelWidth = minPanelWidth
	}
	panelHeight := height - chromeHeight
	if panelHeight < 5 {
		panelHeight = 5
	}
	m.chatViewport.Width = panelWidth
	m.chatViewport.Height = panelHeight
	m.notesViewport.Width = panelWidth
	m.notesViewport.Height = panelHeight
	m.notesEditor.SetWidth(panelWidth)
	m.notesEditor.SetHeight(panelHeight)
	m.chatInput.Width = panelWidth - 4
	m.chatDirty = true
	m.notesDirty = true
}

func (m *model) handleNotebooksLoaded(msg notebooksLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("Failed to load notebooks: %v", msg.err)
		return m, nil
	}
	m.errorMessage = ""
	m.infoMessage = ""
	m.notebooks = msg.notebooks
	if m.cursor >= len(m.notebooks) {
		m.cursor = len(m.notebooks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m, nil
}

func (m *model) handleNotebookCreated(msg notebookCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("Failed to create notebook: %v", msg.err)
		return m, nil
	}
	m.notebooks = append([]*notebook.Notebook{msg.nb}, m.notebooks...)
	m.cursor = 0
	m.openNotebook(msg.nb)
	return m, textinput.Blink
}

func (m *model) handleNotebookDeleted(msg notebookDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errorMessage = fmt.Sprintf("Failed to delete notebook: %v", msg.err)
		return m, nil
	}
	kept := m.notebooks[:0]
	for _, nb := range m.notebooks {
		if nb.ID != msg.id {
			kept = append(kept, nb)
		}
	}
	m.notebooks = kept
	if m.cursor >= len(m.notebooks) {
		m.cursor = len(m.notebooks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.infoMessage = "Notebook deleted."
	return m, nil
}

func (m *model) handleChatReply(msg chatReplyMsg) (tea.Model, tea.Cmd) {
	m.sendPending = false
	m.pendingQuestion = ""
	if m.current == nil || m.current.ID != msg.notebookID {
		return m, nil
	}
	if msg.err != nil {
		m.errorMessage = humanizeChatError(msg.err)
		m.chatDirty = true
		return m, nil
	}
	m.errorMessage = ""
	m.current.AppendMessage(notebook.NewMessage(notebook.RoleUser, msg.question))
	m.current.AppendMessage(notebook.NewMessage(notebook.RoleAssistant, msg.reply))
	m.chatDirty = true
	return m, m.saveCurrent()
}

func (m *model) handleTranscription(msg transcriptionMsg) (tea.Model, tea.Cmd) {
	m.transcribing = false
	if m.current == nil || m.current.ID != msg.notebookID {
		return m, nil
	}
	if msg.err != nil {
		m.errorMessage = humanizeTranscriptionError(msg.err, m.config.Audio)
		return m, nil
	}
	m.errorMessage = ""
	m.infoMessage = "Notes generated from audio."
	m.current.SetNotes(msg.notes)
	if m.session != nil {
		m.session.SetNotesContext(msg.notes)
	}
	m.notesDirty = true
	return m, m.saveCurrent()
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.screen == screenDashboard {
		return m.handleDashboardKey(msg)
	}
	return m.handleNotebookKey(msg)
}

func (m *model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.dashMode {
	case dashName:
		switch msg.Type {
		case tea.KeyEsc:
			m.dashMode = dashBrowse
			m.nameInput.SetValue("")
			m.nameInput.Blur()
			return m, nil
		case tea.KeyEnter:
			name := strings.TrimSpace(m.nameInput.Value())
			m.dashMode = dashBrowse
			m.nameInput.SetValue("")
			m.nameInput.Blur()
			return m, m.tasks.Dispatch(taskKindCreate, createNotebookJob(m.config.Store, name))
		}
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd
	case dashConfirmDelete:
		switch msg.String() {
		case "y", "Y":
			m.dashMode = dashBrowse
			if m.cursor < len(m.notebooks) {
				id := m.notebooks[m.cursor].ID
				return m, m.tasks.Dispatch(taskKindDelete, deleteNotebookJob(m.config.Store, id))
			}
			return m, nil
		default:
			m.dashMode = dashBrowse
			return m, nil
		}
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.notebooks)-1 {
			m.cursor++
		}
		return m, nil
	case "n":
		m.dashMode = dashName
		m.errorMessage = ""
		m.nameInput.Focus()
		return m, textinput.Blink
	case "d":
		if len(m.notebooks) > 0 {
			m.dashMode = dashConfirmDelete
		}
		return m, nil
	case "r":
		m.loading = true
		m.infoMessage = "Reloading notebooks…"
		return m, tea.Batch(m.spinner.Tick, m.tasks.Dispatch(taskKindLoad, loadNotebooksJob(m.config.Store)))
	case "enter":
		if m.cursor < len(m.notebooks) {
			m.openNotebook(m.notebooks[m.cursor])
			return m, textinput.Blink
		}
		return m, nil
	}
	return m, nil
}

func (m *model) handleNotebookKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.nbMode {
	case nbEditNotes:
		switch msg.Type {
		case tea.KeyEsc:
			m.nbMode = nbChat
			m.notesEditor.Blur()
			m.chatInput.Focus()
			m.infoMessage = "Notes edit canceled."
			return m, nil
		case tea.KeyCtrlS:
			m.nbMode = nbChat
			m.notesEditor.Blur()
			m.chatInput.Focus()
			m.applyNotes(m.notesEditor.Value())
			return m, m.saveCurrent()
		}
		var cmd tea.Cmd
		m.notesEditor, cmd = m.notesEditor.Update(msg)
		return m, cmd
	case nbAudioPrompt:
		switch msg.Type {
		case tea.KeyEsc:
			m.nbMode = nbChat
			m.audioInput.SetValue("")
			m.audioInput.Blur()
			m.chatInput.Focus()
			return m, nil
		case tea.KeyEnter:
			path := strings.TrimSpace(m.audioInput.Value())
			m.nbMode = nbChat
			m.audioInput.SetValue("")
			m.audioInput.Blur()
			m.chatInput.Focus()
			if path == "" {
				m.errorMessage = "Audio file path cannot be empty."
				return m, nil
			}
			m.transcribing = true
			m.infoMessage = "Processing audio file…"
			return m, tea.Batch(
				m.spinner.Tick,
				m.tasks.Dispatch(taskKindTranscribe, transcribeAudioJob(m.config.Audio, m.current.ID, path)),
			)
		}
		var cmd tea.Cmd
		m.audioInput, cmd = m.audioInput.Update(msg)
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyEsc:
		return m.closeNotebook()
	case tea.KeyEnter:
		return m.submitChatMessage()
	case tea.KeyCtrlS:
		m.infoMessage = "Notebook saved."
		return m, m.saveCurrent()
	case tea.KeyCtrlE:
		m.nbMode = nbEditNotes
		m.notesEditor.SetValue(m.current.Notes)
		m.chatInput.Blur()
		m.notesEditor.Focus()
		m.infoMessage = "Editing notes. Ctrl+S applies, Esc cancels."
		return m, textarea.Blink
	case tea.KeyCtrlU:
		m.nbMode = nbAudioPrompt
		m.chatInput.Blur()
		m.audioInput.Focus()
		m.errorMessage = ""
		return m, textinput.Blink
	case tea.KeyCtrlL:
		return m.clearChat()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.chatViewport, cmd = m.chatViewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func (m *model) submitChatMessage() (tea.Model, tea.Cmd) {
	if m.sendPending {
		return m, nil
	}
	if m.session == nil {
		m.errorMessage = "Chat disabled: no API key configured."
		return m, nil
	}
	message := strings.TrimSpace(m.chatInput.Value())
	if message == "" {
		return m, nil
	}
	m.chatInput.SetValue("")
	m.session.SetNotesContext(m.current.Notes)
	m.sendPending = true
	m.pendingQuestion = message
	m.errorMessage = ""
	m.chatDirty = true
	return m, tea.Batch(
		m.spinner.Tick,
		m.tasks.Dispatch(taskKindChat, sendMessageJob(m.session, m.current.ID, message)),
	)
}

func (m *model) clearChat() (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.Clear()
	}
	m.current.ClearChat()
	m.chatDirty = true
	m.infoMessage = "Conversation cleared. Starting fresh!"
	return m, m.saveCurrent()
}

func (m *model) openNotebook(nb *notebook.Notebook) {
	m.screen = screenNotebook
	m.nbMode = nbChat
	m.current = nb
	m.session = nil
	if m.config.Chat != nil {
		m.session = chat.NewSession(m.config.Chat)
		m.session.Restore(nb.ChatHistory, nb.Notes)
	}
	m.chatInput.SetValue("")
	m.chatInput.Focus()
	m.sendPending = false
	m.pendingQuestion = ""
	m.transcribing = false
	m.chatDirty = true
	m.notesDirty = true
	m.errorMessage = ""
	if m.session == nil {
		m.infoMessage = "Chat disabled: set GEMINI_API_KEY to enable it."
	} else if len(nb.ChatHistory) == 0 {
		m.infoMessage = "Chat with your notes! Ask questions about the content."
	} else {
		m.infoMessage = ""
	}
}

func (m *model) closeNotebook() (tea.Model, tea.Cmd) {
	save := m.saveCurrent()
	m.screen = screenDashboard
	m.dashMode = dashBrowse
	m.current = nil
	m.session = nil
	m.chatInput.Blur()
	m.loading = true
	m.infoMessage = "Loading notebooks…"
	return m, tea.Batch(save, m.tasks.Dispatch(taskKindLoad, loadNotebooksJob(m.config.Store)))
}

func (m *model) applyNotes(notes string) {
	m.current.SetNotes(notes)
	if m.session != nil {
		m.session.SetNotesContext(notes)
	}
	m.notesDirty = true
	m.infoMessage = "Notes updated."
}

func (m *model) saveCurrent() tea.Cmd {
	if m.current == nil {
		return nil
	}
	return m.tasks.Dispatch(taskKindSave, saveNotebookJob(m.config.Store, m.current))
}

func humanizeChatError(err error) string {
	var transport *remote.TransportError
	switch {
	case errors.As(err, &transport):
		return fmt.Sprintf("Chat request failed (HTTP %d). Check your API key and try again.", transport.StatusCode)
	case errors.Is(err, chat.ErrMalformedResponse):
		return "The model returned an unreadable reply. Please try again."
	default:
		return fmt.Sprintf("Chat request failed: %v", err)
	}
}

func humanizeTranscriptionError(err error, backend *remote.AudioBackend) string {
	var transport *remote.TransportError
	switch {
	case errors.Is(err, remote.ErrBackendUnavailable):
		endpoint := "the audio backend"
		if backend != nil {
			endpoint = backend.Endpoint()
		}
		return fmt.Sprintf("Audio backend not reachable at %s. Start it and try again.", endpoint)
	case errors.As(err, &transport):
		return fmt.Sprintf("Audio backend error (HTTP %d): %s", transport.StatusCode, transport.Body)
	default:
		return fmt.Sprintf("Error generating notes: %v", err)
	}
}
