package voxagent

import (
	"errors"
	"fmt"
)

// ErrGatewayUnavailable marks gateway failures (transport errors, exceeded
// deadlines). The engine degrades to scripted prompts instead of failing the
// turn.
var ErrGatewayUnavailable = errors.New("language model gateway unavailable")

// ErrSessionFinalized is returned by mutations attempted after a session was
// frozen. Finalizing twice is benign: the existing record is returned
// alongside this error.
var ErrSessionFinalized = errors.New("session already finalized")

// ValidationError rejects a single proposed slot value. It is routed back to
// the dialogue policy as a clarify trigger, never silently dropped.
type ValidationError struct {
	Slot   string `json:"slot"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("slot %q: %s", e.Slot, e.Reason)
}

// StorageError wraps a persistence failure. The finalized record is retained
// in the session for a later retry; it must not be lost silently.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ModeTransitionError rejects an invalid mode switch. The session is left
// unchanged and the user is informed.
type ModeTransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *ModeTransitionError) Error() string {
	return fmt.Sprintf("cannot switch from %q to %q: %s", e.From, e.To, e.Reason)
}
