package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/lectern/internal/notebook"
	"github.com/csheth/lectern/internal/remote"
	"github.com/csheth/lectern/internal/tui"
)

func main() {
	dataDir := flag.String("data-dir", "", "directory for notebook storage (default ~/.lectern)")
	apiKey := flag.String("api-key", "", "Gemini API key (or GEMINI_API_KEY)")
	model := flag.String("model", "", "Gemini model name (or GEMINI_MODEL, default gemini-2.5-flash)")
	geminiEndpoint := flag.String("gemini-endpoint", "", "custom Gemini base URL (or GEMINI_ENDPOINT)")
	audioBackend := flag.String("audio-backend", "", "audio-to-notes backend address (or LECTERN_AUDIO_BACKEND, default http://localhost:8000)")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	dir := *dataDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println("failed to resolve home directory:", err)
			os.Exit(1)
		}
		dir = filepath.Join(home, ".lectern")
	}

	store, err := notebook.NewStore(filepath.Join(dir, "notebooks"))
	if err != nil {
		fmt.Println("failed to open notebook store:", err)
		os.Exit(1)
	}

	key := firstNonEmpty(*apiKey, os.Getenv("GEMINI_API_KEY"))
	var completer *remote.Gemini
	if key != "" {
		completer = remote.NewGemini(remote.GeminiConfig{
			APIKey:   key,
			Model:    firstNonEmpty(*model, os.Getenv("GEMINI_MODEL")),
			Endpoint: firstNonEmpty(*geminiEndpoint, os.Getenv("GEMINI_ENDPOINT")),
		})
	}

	audio := remote.NewAudioBackend(remote.AudioConfig{
		Endpoint: firstNonEmpty(*audioBackend, os.Getenv("LECTERN_AUDIO_BACKEND")),
	})

	// Keep the stdlib logger off the terminal; the alt screen owns it.
	if os.Getenv("LECTERN_DEBUG") != "" {
		logFile, err := tea.LogToFile(filepath.Join(dir, "lectern.log"), "lectern")
		if err != nil {
			fmt.Println("failed to open log file:", err)
			os.Exit(1)
		}
		defer logFile.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	config := tui.Config{Store: store, Audio: audio}
	if completer != nil {
		config.Chat = completer
	}

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(tui.New(config), opts...)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
