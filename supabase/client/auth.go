package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

// AuthEvent identifies a session-change notification.
type AuthEvent string

const (
	// AuthSignedIn is emitted when a session is established.
	AuthSignedIn AuthEvent = "SIGNED_IN"

	// AuthSignedOut is emitted when the session ends.
	AuthSignedOut AuthEvent = "SIGNED_OUT"
)

// AuthChange is a session-change notification delivered on the
// subscription stream. Session is nil for AuthSignedOut.
type AuthChange struct {
	Event   AuthEvent
	Session *Session
}

// Session is an authenticated session issued by the auth subsystem.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`

	// issuedAt anchors ExpiresIn for local expiry checks.
	issuedAt time.Time
}

// Expired reports whether the access token has passed its lifetime.
func (s *Session) Expired() bool {
	if s.ExpiresIn <= 0 || s.issuedAt.IsZero() {
		return false
	}
	return time.Since(s.issuedAt) > time.Duration(s.ExpiresIn)*time.Second
}

// User is an identity as known to the auth subsystem.
type User struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	Role         string           `json:"role"`
	UserMetadata map[string]any   `json:"user_metadata"`
	Identities   []map[string]any `json:"identities"`
	CreatedAt    string           `json:"created_at"`
}

// Auth returns the auth client.
func (c *Client) Auth() *AuthClient {
	c.authOnce.Do(func() {
		c.auth = &AuthClient{
			client: c,
			subs:   make(map[int]chan AuthChange),
		}
	})
	return c.auth
}

// AuthClient handles authentication against the remote auth subsystem
// and owns the session-change notification stream.
type AuthClient struct {
	client *Client

	mu      sync.RWMutex
	session *Session
	subs    map[int]chan AuthChange
	nextSub int
}

// GetSession returns the current session, refreshing it first when the
// access token has expired and a refresh token is held. Returns
// (nil, nil) when no session exists.
func (a *AuthClient) GetSession(ctx context.Context) (*Session, error) {
	a.mu.RLock()
	sess := a.session
	a.mu.RUnlock()

	if sess == nil {
		return nil, nil
	}
	if !sess.Expired() {
		return sess, nil
	}
	if sess.RefreshToken == "" {
		return nil, apperrors.Auth("session expired")
	}
	return a.RefreshSession(ctx, sess.RefreshToken)
}

// CurrentSession returns the held session without any remote call.
func (a *AuthClient) CurrentSession() *Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// SignUp registers a new identity. Metadata is attached as user
// metadata (the profile layer derives the display name from it).
// An identity that already exists fails with a DuplicateAccount error:
// the remote service reports it either directly or by returning a user
// with no identities.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		payload["data"] = metadata
	}

	sess, err := a.tokenRequest(ctx, "/auth/v1/signup", "", payload, "sign up")
	if err != nil {
		return nil, err
	}
	if sess.User != nil && len(sess.User.Identities) == 0 {
		return nil, apperrors.DuplicateAccount(email)
	}

	if sess.AccessToken != "" {
		a.setSession(sess)
		a.emit(AuthChange{Event: AuthSignedIn, Session: sess})
	}
	return sess, nil
}

// SignInWithPassword exchanges credentials for a session. Invalid
// credentials fail with an auth error. On success a SignedIn
// notification is emitted on the subscription stream.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}
	sess, err := a.tokenRequest(ctx, "/auth/v1/token", "grant_type=password", payload, "sign in")
	if err != nil {
		return nil, err
	}

	a.setSession(sess)
	a.emit(AuthChange{Event: AuthSignedIn, Session: sess})
	return sess, nil
}

// RefreshSession exchanges a refresh token for a fresh session.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	sess, err := a.tokenRequest(ctx, "/auth/v1/token", "grant_type=refresh_token", payload, "refresh session")
	if err != nil {
		return nil, err
	}

	a.setSession(sess)
	return sess, nil
}

// SignOut invalidates the remote session and emits SignedOut. The
// local session is cleared even when the remote call fails, so a stale
// token cannot keep the process authenticated.
func (a *AuthClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	sess := a.session
	a.session = nil
	a.mu.Unlock()

	defer a.emit(AuthChange{Event: AuthSignedOut})

	if sess == nil || sess.AccessToken == "" {
		return nil
	}

	resp, err := a.request(ctx, http.MethodPost, "/auth/v1/logout", sess.AccessToken, nil, "sign out")
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnauthorized {
		return apperrors.FromSupabase("sign out", resp.StatusCode, resp.Body)
	}
	return nil
}

// GetUser fetches the identity behind an access token.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := a.request(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, "get user")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.FromSupabase("get user", resp.StatusCode, resp.Body)
	}

	var user User
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// RecoverPassword triggers the password-reset email flow. redirectTo,
// when non-empty, is where the reset link lands.
func (a *AuthClient) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	resp, err := a.request(ctx, http.MethodPost, path, "", map[string]string{"email": email}, "recover password")
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return apperrors.FromSupabase("recover password", resp.StatusCode, resp.Body)
	}
	return nil
}

// UpdatePassword sets a new password for the current session.
func (a *AuthClient) UpdatePassword(ctx context.Context, newPassword string) error {
	sess := a.CurrentSession()
	if sess == nil {
		return apperrors.Auth("no active session")
	}

	resp, err := a.request(ctx, http.MethodPut, "/auth/v1/user", sess.AccessToken,
		map[string]string{"password": newPassword}, "update password")
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return apperrors.FromSupabase("update password", resp.StatusCode, resp.Body)
	}
	return nil
}

// OnAuthChange subscribes to session-change notifications. The
// returned cancel func tears the subscription down; the channel is
// closed on cancellation. Events are dropped, not blocked on, if the
// consumer falls behind.
func (a *AuthClient) OnAuthChange() (<-chan AuthChange, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextSub
	a.nextSub++
	ch := make(chan AuthChange, 8)
	a.subs[id] = ch

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if sub, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (a *AuthClient) setSession(sess *Session) {
	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
}

func (a *AuthClient) emit(change AuthChange) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, ch := range a.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

func (a *AuthClient) tokenRequest(ctx context.Context, path, query string, payload any, op string) (*Session, error) {
	if query != "" {
		path += "?" + query
	}
	resp, err := a.request(ctx, http.MethodPost, path, "", payload, op)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.FromSupabase(op, resp.StatusCode, resp.Body)
	}

	var sess Session
	if err := json.Unmarshal(resp.Body, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	sess.issuedAt = time.Now()
	return &sess, nil
}

func (a *AuthClient) request(ctx context.Context, method, path, accessToken string, payload any, op string) (*Response, error) {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.client.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	a.client.setHeaders(req, accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return a.client.do(req, op)
}
