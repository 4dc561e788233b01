package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/lectern/internal/notebook"
)

const heroTagline = "Your lectures, noted. Chat with everything you capture."

func (m *model) View() string {
	if m.screen == screenNotebook && m.current != nil {
		return m.viewNotebook()
	}
	return m.viewDashboard()
}

func (m *model) viewDashboard() string {
	parts := []string{
		titleStyle.Render("LECTERN"),
		taglineStyle.Render(heroTagline),
		m.notebookListView(),
	}

	switch m.dashMode {
	case dashName:
		parts = append(parts,
			sectionHeaderStyle.Render("New Notebook"),
			m.nameInput.View(),
			helperStyle.Render("Enter to create, Esc to cancel."),
		)
	case dashConfirmDelete:
		if m.cursor < len(m.notebooks) {
			prompt := fmt.Sprintf("Delete %q and its chat history? (y/n)", m.notebooks[m.cursor].Name)
			parts = append(parts, errorStyle.Render(prompt))
		}
	default:
		parts = append(parts, helperStyle.Render("↑/↓ select • Enter open • n new • d delete • r reload • q quit"))
	}

	parts = append(parts, m.statusLines()...)
	return joinNonEmpty(parts)
}

func (m *model) notebookListView() string {
	if m.loading && len(m.notebooks) == 0 {
		return helperStyle.Render("Loading…")
	}
	if len(m.notebooks) == 0 {
		return helperStyle.Render("No notebooks yet. Press n to create one.")
	}

	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Notebooks"))
	b.WriteRune('\n')
	for idx, nb := range m.notebooks {
		line := fmt.Sprintf("%-40s  %s", truncate(nb.Name, 40), nb.UpdatedAt.Format("Jan 02, 2006 15:04"))
		if idx == m.cursor && m.dashMode != dashName {
			b.WriteString(currentLineStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteRune('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *model) viewNotebook() string {
	m.refreshNotesIfDirty()
	m.refreshChatIfDirty()

	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleStyle.Render(m.current.Name),
		helperStyle.Render(fmt.Sprintf("  updated %s", m.current.UpdatedAt.Format("Jan 02, 2006 15:04"))),
	)

	notesPanel := m.notesPanel()
	chatPanel := m.chatPanel()
	body := lipgloss.JoinHorizontal(lipgloss.Top, notesPanel, "  ", chatPanel)

	parts := []string{header, body, m.statusBarView()}
	parts = append(parts, m.statusLines()...)
	parts = append(parts, helperStyle.Render(m.notebookHelpText()))
	return joinNonEmpty(parts)
}

func (m *model) notesPanel() string {
	var body string
	if m.nbMode == nbEditNotes {
		body = m.notesEditor.View()
	} else {
		body = m.notesViewport.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, sectionHeaderStyle.Render("Notes"), panelStyle.Render(body))
}

func (m *model) chatPanel() string {
	parts := []string{
		sectionHeaderStyle.Render("Chat"),
		panelStyle.Render(m.chatViewport.View()),
	}
	if m.nbMode == nbAudioPrompt {
		parts = append(parts,
			sectionHeaderStyle.Render("Audio File"),
			m.audioInput.View(),
			helperStyle.Render("Enter to upload, Esc to cancel."),
		)
	} else {
		parts = append(parts, m.chatInput.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *model) notebookHelpText() string {
	switch m.nbMode {
	case nbEditNotes:
		return "Ctrl+S apply notes • Esc cancel"
	case nbAudioPrompt:
		return "Enter upload • Esc cancel"
	default:
		return "Enter send • Ctrl+E edit notes • Ctrl+U audio to notes • Ctrl+L clear chat • Ctrl+S save • Esc back"
	}
}

func (m *model) statusBarView() string {
	stats := []string{fmt.Sprintf("Turns %d", len(m.current.ChatHistory))}
	if m.session == nil {
		stats = append(stats, "Chat offline")
	} else if m.sendPending {
		stats = append(stats, "LLM working…")
	}
	if m.transcribing {
		stats = append(stats, "Transcribing…")
	}
	for _, snapshot := range m.running {
		if snapshot.Status == taskStatusRunning {
			stats = append(stats, string(snapshot.Kind))
		}
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) statusLines() []string {
	var lines []string
	if m.errorMessage != "" {
		lines = append(lines, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.busy() {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		lines = append(lines, helperStyle.Render(message))
	}
	return lines
}

func (m *model) refreshNotesIfDirty() {
	if !m.notesDirty {
		return
	}
	m.notesDirty = false
	notes := m.current.Notes
	if strings.TrimSpace(notes) == "" {
		notes = "No notes yet. Press Ctrl+E to write some, or Ctrl+U to generate them from a recording."
	}
	m.notesViewport.SetContent(wordwrap.String(notes, m.notesViewport.Width))
}

func (m *model) refreshChatIfDirty() {
	if !m.chatDirty {
		return
	}
	m.chatDirty = false
	m.chatViewport.SetContent(m.renderTranscript())
	m.chatViewport.GotoBottom()
}

func (m *model) renderTranscript() string {
	width := m.chatViewport.Width
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	for _, msg := range m.current.ChatHistory {
		b.WriteString(transcriptEntry(msg, width))
		b.WriteRune('\n')
	}
	if m.sendPending && m.pendingQuestion != "" {
		b.WriteString(userLabelStyle.Render("You"))
		b.WriteRune('\n')
		b.WriteString(wordwrap.String(m.pendingQuestion, width))
		b.WriteRune('\n')
		b.WriteString(assistantLabelStyle.Render("Lectern"))
		b.WriteRune('\n')
		b.WriteString(helperStyle.Render("thinking…"))
		b.WriteRune('\n')
	}
	if b.Len() == 0 {
		return helperStyle.Render("The conversation will appear here.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func transcriptEntry(msg notebook.ChatMessage, width int) string {
	label := assistantLabelStyle.Render("Lectern")
	if msg.Role == notebook.RoleUser {
		label = userLabelStyle.Render("You")
	}
	return label + "\n" + wordwrap.String(msg.Content, width)
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
