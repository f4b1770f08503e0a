package session

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle status of the session manager.
type Status int32

const (
	// StatusUninitialized means Initialize has not run yet.
	StatusUninitialized Status = iota

	// StatusInitializing means session bootstrap is in progress.
	StatusInitializing

	// StatusAuthenticated means a signed-in identity is loaded.
	StatusAuthenticated

	// StatusAnonymous means no identity is signed in.
	StatusAnonymous

	// StatusError means bootstrap failed. The state is recoverable:
	// Initialize may be retried.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ParseStatus(str)
	return nil
}

// ParseStatus converts a string to Status.
func ParseStatus(s string) Status {
	switch s {
	case "initializing":
		return StatusInitializing
	case "authenticated":
		return StatusAuthenticated
	case "anonymous":
		return StatusAnonymous
	case "error":
		return StatusError
	default:
		return StatusUninitialized
	}
}

// Ready reports whether bootstrap has settled into a usable state.
func (s Status) Ready() bool {
	return s == StatusAuthenticated || s == StatusAnonymous
}

// ValidTransitions defines allowed status transitions. Authenticated
// permits a self-transition for identity switches delivered by the
// auth-change stream. Error is not terminal.
var ValidTransitions = map[Status][]Status{
	StatusUninitialized: {StatusInitializing},
	StatusInitializing:  {StatusAuthenticated, StatusAnonymous, StatusError},
	StatusAuthenticated: {StatusAuthenticated, StatusAnonymous, StatusInitializing, StatusError},
	StatusAnonymous:     {StatusAuthenticated, StatusInitializing, StatusError},
	StatusError:         {StatusInitializing, StatusAuthenticated, StatusAnonymous},
}

// CanTransition returns true if the transition from -> to is valid.
func CanTransition(from, to Status) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError represents an invalid status transition.
type TransitionError struct {
	From Status
	To   Status
}

// Error implements error.
func (e TransitionError) Error() string {
	return fmt.Sprintf("invalid session transition: %s -> %s", e.From, e.To)
}
