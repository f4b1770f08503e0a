package session

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/pkg/logger"
	"github.com/ViveCali/community_layer/supabase/client"
)

type fakeAuth struct {
	session    *client.Session
	sessionErr error
	signInErr  error
	signUpErr  error
	signOutErr error

	recoverEmails []string
	changes       chan client.AuthChange
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{changes: make(chan client.AuthChange, 8)}
}

func (f *fakeAuth) GetSession(ctx context.Context) (*client.Session, error) {
	return f.session, f.sessionErr
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*client.Session, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &client.Session{
		AccessToken: "at-signup",
		User:        &client.User{ID: "u-new", Email: email, UserMetadata: metadata},
	}, nil
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*client.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.session = &client.Session{
		AccessToken: "at-1",
		User:        &client.User{ID: "u-1", Email: email},
	}
	return f.session, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.session = nil
	return f.signOutErr
}

func (f *fakeAuth) RecoverPassword(ctx context.Context, email, redirectTo string) error {
	f.recoverEmails = append(f.recoverEmails, email)
	return nil
}

func (f *fakeAuth) UpdatePassword(ctx context.Context, newPassword string) error {
	return nil
}

func (f *fakeAuth) OnAuthChange() (<-chan client.AuthChange, func()) {
	return f.changes, func() {}
}

func newTestManager(t *testing.T, auth *fakeAuth, store Store) *Manager {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	m := NewManager(auth, store, Config{}, logger.NewDefault("session-test"))
	t.Cleanup(m.Close)
	return m
}

func TestInitializeAnonymous(t *testing.T) {
	m := newTestManager(t, newFakeAuth(), nil)

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	snap := m.Snapshot()
	if snap.Status != StatusAnonymous {
		t.Errorf("status = %v, want anonymous", snap.Status)
	}
	if snap.User != nil || snap.Profile != nil {
		t.Error("anonymous session must carry no user data")
	}
}

func TestInitializeProvisionsFreshIdentity(t *testing.T) {
	auth := newFakeAuth()
	auth.session = &client.Session{
		AccessToken: "at-1",
		User:        &client.User{ID: "u-1", Email: "ana@example.com"},
	}
	store := NewMemoryStore()
	m := newTestManager(t, auth, store)

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	snap := m.Snapshot()
	if snap.Status != StatusAuthenticated {
		t.Fatalf("status = %v, want authenticated", snap.Status)
	}
	if snap.Profile == nil {
		t.Fatal("profile should be provisioned")
	}
	if snap.Profile.DisplayName != "ana" {
		t.Errorf("display name = %q, want email local part", snap.Profile.DisplayName)
	}
	if len(snap.Profile.Interests) != 0 {
		t.Errorf("interests = %v, want empty", snap.Profile.Interests)
	}
	if snap.Role != RoleUser {
		t.Errorf("role = %v, want user", snap.Role)
	}
	if snap.OnboardingComplete() {
		t.Error("fresh identity has not completed onboarding")
	}

	if role, err := store.GetRole(context.Background(), "u-1"); err != nil || role != RoleUser {
		t.Errorf("stored role = %v (%v), want user", role, err)
	}
}

func TestInitializeUsesExistingProfile(t *testing.T) {
	auth := newFakeAuth()
	auth.session = &client.Session{
		User: &client.User{ID: "u-1", Email: "ana@example.com"},
	}
	store := NewMemoryStore()
	store.CreateProfile(context.Background(), Profile{
		ID: "u-1", Email: "ana@example.com", DisplayName: "Ana", Interests: []string{"música"},
	})
	store.AssignRole(context.Background(), "u-1", RoleAdmin)
	m := newTestManager(t, auth, store)

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	snap := m.Snapshot()
	if snap.Profile.DisplayName != "Ana" {
		t.Errorf("display name = %q, want Ana", snap.Profile.DisplayName)
	}
	if snap.Role != RoleAdmin {
		t.Errorf("role = %v, want admin", snap.Role)
	}
	if !snap.OnboardingComplete() {
		t.Error("profile with interests means onboarding is complete")
	}
}

func TestInitializeErrorIsRecoverable(t *testing.T) {
	auth := newFakeAuth()
	auth.sessionErr = apperrors.Transport("get session", errors.New("timeout"))
	m := newTestManager(t, auth, nil)

	if err := m.Initialize(context.Background()); err == nil {
		t.Fatal("Initialize() should fail")
	}

	snap := m.Snapshot()
	if snap.Status != StatusError {
		t.Fatalf("status = %v, want error", snap.Status)
	}
	if snap.LastError == nil {
		t.Fatal("LastError should be recorded")
	}

	auth.sessionErr = nil
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("retry Initialize() error: %v", err)
	}
	snap = m.Snapshot()
	if snap.Status != StatusAnonymous {
		t.Errorf("status after retry = %v, want anonymous", snap.Status)
	}
	if snap.LastError != nil {
		t.Errorf("LastError = %v, want cleared", snap.LastError)
	}
}

type conflictingStore struct {
	*MemoryStore
	conflicted bool
}

func (s *conflictingStore) CreateProfile(ctx context.Context, profile Profile) (*Profile, error) {
	if !s.conflicted {
		s.conflicted = true
		s.MemoryStore.CreateProfile(ctx, Profile{
			ID: profile.ID, Email: profile.Email, DisplayName: "Racer", Interests: []string{},
		})
		return nil, apperrors.Conflict("profile already exists")
	}
	return s.MemoryStore.CreateProfile(ctx, profile)
}

func TestProvisioningRaceRefetches(t *testing.T) {
	auth := newFakeAuth()
	auth.session = &client.Session{
		User: &client.User{ID: "u-1", Email: "ana@example.com"},
	}
	store := &conflictingStore{MemoryStore: NewMemoryStore()}
	m := newTestManager(t, auth, store)

	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	snap := m.Snapshot()
	if snap.Status != StatusAuthenticated {
		t.Fatalf("status = %v, want authenticated", snap.Status)
	}
	if snap.Profile == nil || snap.Profile.DisplayName != "Racer" {
		t.Errorf("profile = %+v, want the row that won the race", snap.Profile)
	}
}

func TestSignInLoadsUserData(t *testing.T) {
	auth := newFakeAuth()
	m := newTestManager(t, auth, nil)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	if err := m.SignIn(context.Background(), "ana@example.com", "pw"); err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}

	snap := m.Snapshot()
	if snap.Status != StatusAuthenticated {
		t.Errorf("status = %v, want authenticated", snap.Status)
	}
	if snap.User == nil || snap.User.ID != "u-1" {
		t.Errorf("user = %+v, want u-1", snap.User)
	}
	if snap.Profile == nil {
		t.Error("profile should be provisioned on first sign-in")
	}
}

func TestSignInFailureKeepsState(t *testing.T) {
	auth := newFakeAuth()
	auth.signInErr = apperrors.Auth("invalid login credentials")
	m := newTestManager(t, auth, nil)
	m.Initialize(context.Background())

	err := m.SignIn(context.Background(), "ana@example.com", "wrong")
	if !apperrors.IsKind(err, apperrors.KindAuth) {
		t.Fatalf("err = %v, want KindAuth", err)
	}

	snap := m.Snapshot()
	if snap.Status != StatusAnonymous {
		t.Errorf("status = %v, want still anonymous", snap.Status)
	}
	if snap.LastError == nil {
		t.Error("LastError should be recorded")
	}

	m.ClearError()
	if m.Snapshot().LastError != nil {
		t.Error("ClearError should discard the error")
	}
}

func TestSignUpDuplicatePropagates(t *testing.T) {
	auth := newFakeAuth()
	auth.signUpErr = apperrors.DuplicateAccount("ana@example.com")
	m := newTestManager(t, auth, nil)
	m.Initialize(context.Background())

	err := m.SignUp(context.Background(), "ana@example.com", "pw", "Ana")
	if !apperrors.IsKind(err, apperrors.KindDuplicateAccount) {
		t.Errorf("err = %v, want KindDuplicateAccount", err)
	}
}

func TestSignUpProvisionsProfileAndRole(t *testing.T) {
	auth := newFakeAuth()
	store := NewMemoryStore()
	m := newTestManager(t, auth, store)
	m.Initialize(context.Background())

	if err := m.SignUp(context.Background(), "ana@example.com", "pw", "Ana"); err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}

	profile, err := store.GetProfile(context.Background(), "u-new")
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if profile.DisplayName != "Ana" {
		t.Errorf("display name = %q, want Ana", profile.DisplayName)
	}
	if role, err := store.GetRole(context.Background(), "u-new"); err != nil || role != RoleUser {
		t.Errorf("role = %v (%v), want user", role, err)
	}
}

func TestSignOutClearsState(t *testing.T) {
	auth := newFakeAuth()
	m := newTestManager(t, auth, nil)
	m.Initialize(context.Background())
	m.SignIn(context.Background(), "ana@example.com", "pw")

	if err := m.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}

	snap := m.Snapshot()
	if snap.Status != StatusAnonymous {
		t.Errorf("status = %v, want anonymous", snap.Status)
	}
	if snap.User != nil || snap.Profile != nil || snap.Role != "" {
		t.Error("sign-out must clear user, profile, and role")
	}
}

func TestUpdateProfileWhitelist(t *testing.T) {
	auth := newFakeAuth()
	store := NewMemoryStore()
	m := newTestManager(t, auth, store)
	m.Initialize(context.Background())
	m.SignIn(context.Background(), "ana@example.com", "pw")

	name := "  Ana María  "
	profile, err := m.UpdateProfile(context.Background(), ProfileUpdate{DisplayName: &name})
	if err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if profile.DisplayName != "Ana María" {
		t.Errorf("display name = %q, want trimmed", profile.DisplayName)
	}

	interests := []string{"música", "gastronomía"}
	profile, err = m.UpdateProfile(context.Background(), ProfileUpdate{Interests: &interests})
	if err != nil {
		t.Fatalf("UpdateProfile() error: %v", err)
	}
	if len(profile.Interests) != 2 {
		t.Errorf("interests = %v, want 2 entries", profile.Interests)
	}
	if !m.Snapshot().OnboardingComplete() {
		t.Error("onboarding completes once interests are set")
	}
}

func TestUpdateProfileRejectsEmptyUpdate(t *testing.T) {
	auth := newFakeAuth()
	m := newTestManager(t, auth, nil)
	m.Initialize(context.Background())
	m.SignIn(context.Background(), "ana@example.com", "pw")

	blank := "   "
	_, err := m.UpdateProfile(context.Background(), ProfileUpdate{DisplayName: &blank})
	if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Errorf("err = %v, want KindInvalidInput", err)
	}
}

func TestUpdateProfileBlankNameRejectsWholeUpdate(t *testing.T) {
	auth := newFakeAuth()
	store := NewMemoryStore()
	m := newTestManager(t, auth, store)
	m.Initialize(context.Background())
	m.SignIn(context.Background(), "ana@example.com", "pw")

	blank := "   "
	interests := []string{"música"}
	_, err := m.UpdateProfile(context.Background(), ProfileUpdate{
		DisplayName: &blank,
		Interests:   &interests,
	})
	if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("err = %v, want KindInvalidInput", err)
	}

	// The interests must not slip through alongside the bad name.
	profile := m.Snapshot().Profile
	if profile == nil {
		t.Fatal("profile missing after rejected update")
	}
	if len(profile.Interests) != 0 {
		t.Errorf("interests = %v, want unchanged", profile.Interests)
	}
	if profile.DisplayName != "ana" {
		t.Errorf("display name = %q, want unchanged", profile.DisplayName)
	}
}

func TestSignInRequiresBootstrap(t *testing.T) {
	m := newTestManager(t, newFakeAuth(), nil)

	err := m.SignIn(context.Background(), "ana@example.com", "pw")
	var terr TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TransitionError", err)
	}

	snap := m.Snapshot()
	if snap.Status != StatusUninitialized {
		t.Errorf("status = %v, want uninitialized", snap.Status)
	}
	if snap.User != nil {
		t.Error("rejected sign-in must not load a user")
	}
}

func TestUpdateProfileRequiresUser(t *testing.T) {
	m := newTestManager(t, newFakeAuth(), nil)
	m.Initialize(context.Background())

	name := "Ana"
	_, err := m.UpdateProfile(context.Background(), ProfileUpdate{DisplayName: &name})
	if !apperrors.IsKind(err, apperrors.KindAuth) {
		t.Errorf("err = %v, want KindAuth", err)
	}
}

func TestAuthChangeStream(t *testing.T) {
	auth := newFakeAuth()
	m := newTestManager(t, auth, nil)
	m.Initialize(context.Background())

	snaps, cancel := m.Subscribe()
	defer cancel()

	auth.changes <- client.AuthChange{
		Event: client.AuthSignedIn,
		Session: &client.Session{
			User: &client.User{ID: "u-9", Email: "ext@example.com"},
		},
	}

	waitFor(t, snaps, func(s Snapshot) bool { return s.Status == StatusAuthenticated })
	if got := m.Snapshot().User.ID; got != "u-9" {
		t.Errorf("user = %q, want u-9", got)
	}

	auth.changes <- client.AuthChange{Event: client.AuthSignedOut}
	waitFor(t, snaps, func(s Snapshot) bool { return s.Status == StatusAnonymous })
	if m.Snapshot().User != nil {
		t.Error("signed-out change must clear the user")
	}
}

func waitFor(t *testing.T, snaps <-chan Snapshot, cond func(Snapshot) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-snaps:
			if cond(snap) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestResetPassword(t *testing.T) {
	auth := newFakeAuth()
	m := newTestManager(t, auth, nil)

	if err := m.ResetPassword(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if len(auth.recoverEmails) != 1 || auth.recoverEmails[0] != "ana@example.com" {
		t.Errorf("recover emails = %v", auth.recoverEmails)
	}
}
