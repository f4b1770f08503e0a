package session

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	roles    map[string]Role
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
		roles:    make(map[string]Role),
	}
}

// GetProfile returns the profile for id.
func (m *MemoryStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFound("profile", id)
	}
	return &profile, nil
}

// CreateProfile stores a new profile. Creating the same id twice is a
// conflict, matching the unique constraint in the remote store.
func (m *MemoryStore) CreateProfile(ctx context.Context, profile Profile) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[profile.ID]; exists {
		return nil, apperrors.Conflict("profile " + profile.ID + " already exists")
	}
	if profile.Interests == nil {
		profile.Interests = []string{}
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	m.profiles[profile.ID] = profile
	return &profile, nil
}

// UpdateProfile applies the update to an existing profile.
func (m *MemoryStore) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFound("profile", id)
	}
	if update.DisplayName != nil {
		profile.DisplayName = *update.DisplayName
	}
	if update.Interests != nil {
		profile.Interests = *update.Interests
	}
	m.profiles[id] = profile
	return &profile, nil
}

// GetRole returns the role assigned to userID.
func (m *MemoryStore) GetRole(ctx context.Context, userID string) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[userID]
	if !ok {
		return "", apperrors.NotFound("role", userID)
	}
	return role, nil
}

// AssignRole sets the role for userID.
func (m *MemoryStore) AssignRole(ctx context.Context, userID string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roles[userID] = role
	return nil
}
