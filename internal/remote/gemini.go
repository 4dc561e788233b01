package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/csheth/lectern/internal/chat"
)

const (
	defaultGeminiBase  = "https://generativelanguage.googleapis.com"
	defaultGeminiModel = "gemini-2.5-flash"
)

const defaultChatHTTPTimeout = 2 * time.Minute

// GeminiConfig describes how to build a completion client.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
}

// Gemini speaks the generateContent REST endpoint, authenticated via a key
// query parameter. It implements chat.Completer.
type Gemini struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewGemini builds a client from config, filling in the hosted defaults.
func NewGemini(cfg GeminiConfig) *Gemini {
	base := strings.TrimRight(cfg.Endpoint, "/")
	if base == "" {
		base = defaultGeminiBase
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultChatHTTPTimeout}
	}
	return &Gemini{
		apiKey:   cfg.APIKey,
		endpoint: fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, model),
		client:   client,
	}
}

// Complete posts the request payload and decodes the reply envelope.
func (g *Gemini) Complete(ctx context.Context, payload chat.Request) (*chat.Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := g.endpoint + "?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chat.Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", chat.ErrMalformedResponse, err)
	}
	return &parsed, nil
}
