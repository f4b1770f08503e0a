package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

func TestSignInWithPassword(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ana@example.com" {
			t.Errorf("email = %q", body["email"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"user":          map[string]any{"id": "u-1", "email": "ana@example.com"},
		})
	})

	changes, cancel := c.Auth().OnAuthChange()
	defer cancel()

	sess, err := c.Auth().SignInWithPassword(context.Background(), "ana@example.com", "secret")
	if err != nil {
		t.Fatalf("SignInWithPassword() error: %v", err)
	}
	if sess.AccessToken != "at-1" || sess.User == nil || sess.User.ID != "u-1" {
		t.Errorf("session = %+v, want token at-1 for u-1", sess)
	}
	if got := c.Auth().CurrentSession(); got != sess {
		t.Error("CurrentSession should return the signed-in session")
	}

	select {
	case change := <-changes:
		if change.Event != AuthSignedIn || change.Session != sess {
			t.Errorf("change = %+v, want SignedIn with session", change)
		}
	case <-time.After(time.Second):
		t.Fatal("no auth change emitted")
	}
}

func TestSignInInvalidCredentials(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := c.Auth().SignInWithPassword(context.Background(), "ana@example.com", "wrong")
	if !apperrors.IsKind(err, apperrors.KindAuth) {
		t.Errorf("err = %v, want KindAuth", err)
	}
	if c.Auth().CurrentSession() != nil {
		t.Error("failed sign-in must not establish a session")
	}
}

func TestSignUpDuplicateAccount(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Existing accounts come back as a user with no identities.
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "u-1", "email": "ana@example.com", "identities": []any{}},
		})
	})

	_, err := c.Auth().SignUp(context.Background(), "ana@example.com", "secret", nil)
	if !apperrors.IsKind(err, apperrors.KindDuplicateAccount) {
		t.Errorf("err = %v, want KindDuplicateAccount", err)
	}
}

func TestSignUpSendsMetadata(t *testing.T) {
	var gotData map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotData, _ = body["data"].(map[string]any)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"user": map[string]any{
				"id":         "u-2",
				"identities": []any{map[string]any{"id": "i-1"}},
			},
		})
	})

	_, err := c.Auth().SignUp(context.Background(), "ana@example.com", "secret",
		map[string]any{"display_name": "Ana"})
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if gotData["display_name"] != "Ana" {
		t.Errorf("metadata = %+v, want display_name Ana", gotData)
	}
}

func TestSignOutClearsSessionAndEmits(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1"})
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	if _, err := c.Auth().SignInWithPassword(context.Background(), "a@b.co", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	changes, cancel := c.Auth().OnAuthChange()
	defer cancel()

	if err := c.Auth().SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}
	if c.Auth().CurrentSession() != nil {
		t.Error("session should be cleared after sign-out")
	}

	select {
	case change := <-changes:
		if change.Event != AuthSignedOut || change.Session != nil {
			t.Errorf("change = %+v, want SignedOut with nil session", change)
		}
	case <-time.After(time.Second):
		t.Fatal("no auth change emitted")
	}
}

func TestSignOutWithoutSessionIsNoop(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if err := c.Auth().SignOut(context.Background()); err != nil {
		t.Errorf("SignOut() error: %v", err)
	}
}

func TestOnAuthChangeCancel(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	changes, cancel := c.Auth().OnAuthChange()
	cancel()

	if _, ok := <-changes; ok {
		t.Error("channel should be closed after cancel")
	}
	// Cancel twice must not panic.
	cancel()
}

func TestRecoverPassword(t *testing.T) {
	var gotRedirect string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRedirect = r.URL.Query().Get("redirect_to")
		w.WriteHeader(http.StatusOK)
	})

	err := c.Auth().RecoverPassword(context.Background(), "ana@example.com", "https://app.example.com/reset")
	if err != nil {
		t.Fatalf("RecoverPassword() error: %v", err)
	}
	if gotRedirect != "https://app.example.com/reset" {
		t.Errorf("redirect_to = %q", gotRedirect)
	}
}

func TestRecoverPasswordEscapesRedirect(t *testing.T) {
	var gotRedirect string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRedirect = r.URL.Query().Get("redirect_to")
		w.WriteHeader(http.StatusOK)
	})

	// Reserved characters must survive the query string intact.
	redirect := "https://app.example.com/reset?lang=es&theme=dark#top"
	err := c.Auth().RecoverPassword(context.Background(), "ana@example.com", redirect)
	if err != nil {
		t.Fatalf("RecoverPassword() error: %v", err)
	}
	if gotRedirect != redirect {
		t.Errorf("redirect_to = %q, want %q", gotRedirect, redirect)
	}
}

func TestUpdatePasswordRequiresSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	err := c.Auth().UpdatePassword(context.Background(), "newpw")
	if !apperrors.IsKind(err, apperrors.KindAuth) {
		t.Errorf("err = %v, want KindAuth", err)
	}
}
