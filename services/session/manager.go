package session

import (
	"context"
	"sync"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/pkg/logger"
	"github.com/ViveCali/community_layer/supabase/client"
)

// AuthAPI is the slice of the auth client the manager depends on.
type AuthAPI interface {
	GetSession(ctx context.Context) (*client.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*client.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*client.Session, error)
	SignOut(ctx context.Context) error
	RecoverPassword(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	OnAuthChange() (<-chan client.AuthChange, func())
}

// Snapshot is a point-in-time view of the session state.
type Snapshot struct {
	Status    Status
	User      *client.User
	Profile   *Profile
	Role      Role
	LastError error
}

// OnboardingComplete reports whether the signed-in user finished
// onboarding.
func (s Snapshot) OnboardingComplete() bool {
	return s.Status == StatusAuthenticated && s.Profile.OnboardingComplete()
}

// Config holds manager configuration.
type Config struct {
	// ResetRedirectURL is where password-reset links land.
	ResetRedirectURL string
}

// Manager owns the session lifecycle: bootstrap, sign-in/out, and lazy
// provisioning of the profile and role rows for a fresh identity.
type Manager struct {
	auth  AuthAPI
	store Store
	cfg   Config
	log   *logger.Logger

	mu      sync.RWMutex
	status  Status
	user    *client.User
	profile *Profile
	role    Role
	lastErr error

	subs    map[int]chan Snapshot
	nextSub int

	watchOnce  sync.Once
	cancelAuth func()
}

// NewManager constructs a session manager.
func NewManager(auth AuthAPI, store Store, cfg Config, log *logger.Logger) *Manager {
	return &Manager{
		auth:   auth,
		store:  store,
		cfg:    cfg,
		log:    log,
		status: StatusUninitialized,
		subs:   make(map[int]chan Snapshot),
	}
}

// Initialize bootstraps the session: it resolves the current auth
// session, loads or provisions the user's profile and role, and starts
// consuming auth-change notifications. Safe to call again after an
// error state.
func (m *Manager) Initialize(ctx context.Context) error {
	if err := m.transition(StatusInitializing); err != nil {
		return err
	}
	m.setError(nil)

	m.watchOnce.Do(func() {
		changes, cancel := m.auth.OnAuthChange()
		m.cancelAuth = cancel
		go m.watchAuthChanges(changes)
	})

	sess, err := m.auth.GetSession(ctx)
	if err != nil {
		m.setError(err)
		m.transition(StatusError)
		m.broadcast()
		return err
	}

	if sess != nil && sess.User != nil {
		m.loadUserData(ctx, sess.User)
		m.transition(StatusAuthenticated)
	} else {
		m.clearUser()
		m.transition(StatusAnonymous)
	}

	m.broadcast()
	return nil
}

// loadUserData resolves the profile and role for user, creating
// defaults when the rows do not exist yet. Missing or failing profile
// data degrades: the session still authenticates with a nil profile
// and the default role.
func (m *Manager) loadUserData(ctx context.Context, user *client.User) {
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()

	log := m.log.WithField("user_id", user.ID)

	profile, err := m.store.GetProfile(ctx, user.ID)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		profile, err = m.store.CreateProfile(ctx, Profile{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: DefaultDisplayName(user.Email, user.UserMetadata),
			Interests:   []string{},
		})
		if apperrors.IsKind(err, apperrors.KindConflict) {
			// Lost a provisioning race; the row exists now.
			profile, err = m.store.GetProfile(ctx, user.ID)
		}
	}
	if err != nil {
		log.WithError(err).Warn("profile unavailable, continuing without one")
		profile = nil
	}

	role, err := m.store.GetRole(ctx, user.ID)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		if assignErr := m.store.AssignRole(ctx, user.ID, RoleUser); assignErr != nil {
			log.WithError(assignErr).Warn("default role assignment failed")
		}
		role, err = RoleUser, nil
	}
	if err != nil {
		log.WithError(err).Warn("role unavailable, defaulting")
		role = RoleUser
	}

	m.mu.Lock()
	m.profile = profile
	m.role = role
	m.mu.Unlock()
}

// SignIn authenticates with email and password and loads the user's
// data. The manager must be bootstrapped first; signing in from the
// uninitialized state is a transition error.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	m.mu.RLock()
	from := m.status
	m.mu.RUnlock()
	if !CanTransition(from, StatusAuthenticated) {
		err := TransitionError{From: from, To: StatusAuthenticated}
		m.setError(err)
		return err
	}

	m.setError(nil)

	sess, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.setError(err)
		m.broadcast()
		return err
	}

	m.loadUserData(ctx, sess.User)
	if err := m.transition(StatusAuthenticated); err != nil {
		m.setError(err)
		m.broadcast()
		return err
	}
	m.broadcast()
	return nil
}

// SignUp registers a new account and provisions its profile and role.
// Provisioning failures are logged, not returned: the next bootstrap
// recreates the missing rows.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) error {
	m.setError(nil)

	sess, err := m.auth.SignUp(ctx, email, password, map[string]any{
		"display_name": displayName,
	})
	if err != nil {
		m.setError(err)
		m.broadcast()
		return err
	}

	if sess.User != nil {
		log := m.log.WithField("user_id", sess.User.ID)
		if _, err := m.store.CreateProfile(ctx, Profile{
			ID:          sess.User.ID,
			Email:       email,
			DisplayName: displayName,
			Interests:   []string{},
		}); err != nil {
			log.WithError(err).Warn("profile provisioning failed")
		}
		if err := m.store.AssignRole(ctx, sess.User.ID, RoleUser); err != nil {
			log.WithError(err).Warn("role provisioning failed")
		}
	}
	return nil
}

// SignOut ends the session and clears the loaded identity.
func (m *Manager) SignOut(ctx context.Context) error {
	m.setError(nil)

	err := m.auth.SignOut(ctx)
	if err != nil {
		m.setError(err)
	}

	m.clearUser()
	m.transition(StatusAnonymous)
	m.broadcast()
	return err
}

// UpdateProfile applies an update to the signed-in user's profile.
// Only the display name and interests can change; an update carrying
// neither is rejected.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	m.mu.RLock()
	user := m.user
	m.mu.RUnlock()
	if user == nil {
		return nil, apperrors.Auth("no user signed in")
	}

	clean, err := update.Normalize()
	if err != nil {
		m.setError(err)
		return nil, err
	}
	if clean.Empty() {
		err := apperrors.InvalidInput("no valid changes to apply")
		m.setError(err)
		return nil, err
	}

	m.setError(nil)
	profile, err := m.store.UpdateProfile(ctx, user.ID, clean)
	if err != nil {
		m.setError(err)
		m.broadcast()
		return nil, err
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	m.broadcast()
	return profile, nil
}

// ResetPassword triggers the password-reset email flow.
func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	m.setError(nil)
	if err := m.auth.RecoverPassword(ctx, email, m.cfg.ResetRedirectURL); err != nil {
		m.setError(err)
		return err
	}
	return nil
}

// UpdatePassword sets a new password for the current session.
func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) error {
	m.setError(nil)
	if err := m.auth.UpdatePassword(ctx, newPassword); err != nil {
		m.setError(err)
		return err
	}
	return nil
}

// ClearError discards the recorded error without touching the rest of
// the session state.
func (m *Manager) ClearError() {
	m.setError(nil)
	m.broadcast()
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Status:    m.status,
		User:      m.user,
		Profile:   m.profile,
		Role:      m.role,
		LastError: m.lastErr,
	}
}

// Subscribe delivers a snapshot after every state change. The channel
// is buffered; slow consumers miss intermediate snapshots but always
// see the latest on the next receive. Cancel closes the channel.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Snapshot, 8)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close stops the auth-change consumer.
func (m *Manager) Close() {
	if m.cancelAuth != nil {
		m.cancelAuth()
	}
}

func (m *Manager) watchAuthChanges(changes <-chan client.AuthChange) {
	for change := range changes {
		switch change.Event {
		case client.AuthSignedIn:
			if change.Session == nil || change.Session.User == nil {
				continue
			}
			m.mu.RLock()
			sameUser := m.status == StatusAuthenticated &&
				m.user != nil && m.user.ID == change.Session.User.ID
			m.mu.RUnlock()
			if sameUser {
				continue
			}
			m.loadUserData(context.Background(), change.Session.User)
			m.transition(StatusAuthenticated)
			m.broadcast()

		case client.AuthSignedOut:
			m.mu.RLock()
			anonymous := m.status == StatusAnonymous
			m.mu.RUnlock()
			if anonymous {
				continue
			}
			m.clearUser()
			m.transition(StatusAnonymous)
			m.broadcast()
		}
	}
}

func (m *Manager) transition(to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.status, to) {
		return TransitionError{From: m.status, To: to}
	}
	m.status = to
	return nil
}

func (m *Manager) clearUser() {
	m.mu.Lock()
	m.user = nil
	m.profile = nil
	m.role = ""
	m.mu.Unlock()
}

func (m *Manager) setError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) broadcast() {
	snap := m.Snapshot()
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
