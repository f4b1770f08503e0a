package session

import "testing"

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusUninitialized: "uninitialized",
		StatusInitializing:  "initializing",
		StatusAuthenticated: "authenticated",
		StatusAnonymous:     "anonymous",
		StatusError:         "error",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("String(%d) = %q, want %q", status, got, want)
		}
		if got := ParseStatus(want); got != status {
			t.Errorf("ParseStatus(%q) = %v, want %v", want, got, status)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusUninitialized, StatusInitializing, true},
		{StatusUninitialized, StatusAuthenticated, false},
		{StatusInitializing, StatusAuthenticated, true},
		{StatusInitializing, StatusAnonymous, true},
		{StatusInitializing, StatusError, true},
		{StatusAuthenticated, StatusAnonymous, true},
		{StatusAuthenticated, StatusAuthenticated, true},
		{StatusAnonymous, StatusAuthenticated, true},
		{StatusError, StatusInitializing, true},
		{StatusError, StatusUninitialized, false},
		{StatusAnonymous, StatusUninitialized, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%v, %v) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestErrorStatusIsRecoverable(t *testing.T) {
	if !CanTransition(StatusError, StatusInitializing) {
		t.Error("error state must allow re-initialization")
	}
	if StatusError.Ready() {
		t.Error("error state is not ready")
	}
	if !StatusAnonymous.Ready() || !StatusAuthenticated.Ready() {
		t.Error("settled states must report ready")
	}
}

func TestTransitionError(t *testing.T) {
	err := TransitionError{From: StatusAnonymous, To: StatusUninitialized}
	want := "invalid session transition: anonymous -> uninitialized"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
