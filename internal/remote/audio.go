package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultAudioBackend = "http://localhost:8000"
	// Transcription covers upload plus note generation on the backend side.
	defaultAudioHTTPTimeout = 5 * time.Minute
	probeTimeout            = 5 * time.Second
)

// AudioConfig describes how to reach the audio-to-notes backend.
type AudioConfig struct {
	Endpoint   string
	HTTPClient *http.Client
}

// AudioBackend uploads recordings to the local transcription backend and
// returns the generated markdown notes.
type AudioBackend struct {
	endpoint string
	client   *http.Client
}

// NewAudioBackend builds a client from config, defaulting to the local backend.
func NewAudioBackend(cfg AudioConfig) *AudioBackend {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultAudioBackend
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultAudioHTTPTimeout}
	}
	return &AudioBackend{endpoint: endpoint, client: client}
}

// Endpoint reports the configured backend address.
func (b *AudioBackend) Endpoint() string {
	return b.endpoint
}

// Available probes the backend's health endpoint.
func (b *AudioBackend) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// NotesFromAudio uploads the audio file at path and returns the generated
// notes. The health probe runs first; when it fails the real call is never
// attempted and ErrBackendUnavailable is returned.
func (b *AudioBackend) NotesFromAudio(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("audio file path cannot be empty")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	if !b.Available(ctx) {
		return "", fmt.Errorf("%w at %s", ErrBackendUnavailable, b.endpoint)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreatePart(filePartHeader(filepath.Base(path)))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/audio-to-notes", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed struct {
		Notes *string `json:"notes"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if parsed.Notes == nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Body: "no notes in response"}
	}
	return *parsed.Notes, nil
}

func filePartHeader(filename string) textproto.MIMEHeader {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeTypeFor(filename))
	return header
}

// mimeTypeFor maps an audio file extension to the content type the backend
// forwards to the transcription API.
func mimeTypeFor(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "wav":
		return "audio/wav"
	case "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "m4a":
		return "audio/mp4"
	case "aac":
		return "audio/aac"
	case "aiff":
		return "audio/aiff"
	default:
		return "audio/mpeg"
	}
}
