package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionUnavailable: the table could not be resolved into a session.
	ErrSessionUnavailable = errors.New("session unavailable: table could not be resolved")
	// ErrChannelUnavailable: the sync channel exhausted its connection attempts.
	ErrChannelUnavailable = errors.New("sync channel unavailable")
	// ErrInvalidQuantity: quantities below 1 are never valid; zero routes
	// through RemoveItem, not an update.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrInvalidSharing: a shared-with-users annotation with an empty set or
	// naming someone not on the roster.
	ErrInvalidSharing = errors.New("invalid sharing annotation")
	// ErrNotJoined: the engine has no active table session.
	ErrNotJoined = errors.New("not joined to a table session")
	// ErrAlreadyJoined: EnterTable while a session is active on this device.
	ErrAlreadyJoined = errors.New("already joined to a table session")
)

// MissingCustomizationError is a local validation failure: the product has a
// required customization group with no selection from it. It is surfaced
// before any network effect.
type MissingCustomizationError struct {
	Group string
}

func (e *MissingCustomizationError) Error() string {
	return fmt.Sprintf("missing required customization: %s", e.Group)
}

// RequestError is an authoritative request that failed, network or server.
// The engine never retries these; a caller that wants retries applies its
// own policy.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("request failed: %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
