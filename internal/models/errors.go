package models

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a valid terminal outcome: an expected grant, friend,
// or customer does not exist. Never coerced into success.
var ErrNotFound = errors.New("not found")

// ErrNoToken is a configuration error: every operation requires an
// account access token.
var ErrNoToken = errors.New("plex token required")

// DiscoveryError means resource discovery completed but found zero owned
// server devices. Distinct from a reachable-but-erroring server.
type DiscoveryError struct {
	Detail string
}

func (e *DiscoveryError) Error() string {
	if e.Detail == "" {
		return "no owned plex servers found for this token"
	}
	return "discovery: " + e.Detail
}

// TransportError means a specific endpoint was unreachable or timed out.
type TransportError struct {
	URI string
	Err error
}

func (e *TransportError) Error() string {
	if e.URI == "" {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.URI, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the remote service responded but signaled failure.
// Message carries the remote body so the CRM layer can show an accurate
// operator-facing message.
type ProtocolError struct {
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned status %d", e.Status)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.Status, e.Message)
}
