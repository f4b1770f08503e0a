package session

import "context"

// ProfileStore persists profiles. Missing rows are reported as
// not-found errors; duplicate creates as conflicts.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)
	CreateProfile(ctx context.Context, profile Profile) (*Profile, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*Profile, error)
}

// RoleStore persists role assignments.
type RoleStore interface {
	GetRole(ctx context.Context, userID string) (Role, error)
	AssignRole(ctx context.Context, userID string, role Role) error
}

// Store combines the session persistence interfaces.
type Store interface {
	ProfileStore
	RoleStore
}
