// Package remote holds the HTTP clients for the two external services: the
// hosted completion endpoint and the local audio-to-notes backend.
package remote

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable reports a failed liveness probe; the real call is
// never attempted in that case.
var ErrBackendUnavailable = errors.New("audio backend unavailable")

// TransportError is a remote call that came back with a failure status.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}
