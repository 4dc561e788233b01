// Package chat maintains per-notebook conversation state and builds the
// payloads sent to the completion endpoint. It is unaware of storage and of
// the transport; network dispatch goes through the Completer interface.
package chat

import (
	"context"
	"errors"
)

// Turn roles in the remote API's vocabulary.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrMalformedResponse reports a reply envelope missing the expected text
// field at some nesting level.
var ErrMalformedResponse = errors.New("malformed completion response")

// Part carries one text fragment of a turn.
type Part struct {
	Text string `json:"text"`
}

// Turn is one conversation entry in transport form.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Instruction is the out-of-band steering text kept out of the turn sequence.
type Instruction struct {
	Parts []Part `json:"parts"`
}

// Request is the outgoing completion payload.
type Request struct {
	SystemInstruction *Instruction `json:"systemInstruction,omitempty"`
	Contents          []Turn       `json:"contents"`
}

// Response is the reply envelope from the completion endpoint.
type Response struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Completer dispatches a completion request to the remote service.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ReplyText extracts the assistant's reply from the envelope. A missing key
// at any level yields ErrMalformedResponse rather than a panic.
func ReplyText(resp *Response) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrMalformedResponse
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", ErrMalformedResponse
	}
	return parts[0].Text, nil
}
