// Package session manages the signed-in identity for the community
// platform: bootstrap, auth-change tracking, and lazy provisioning of
// the profile and role rows backing a user.
package session

import (
	"strings"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

// Role is an identity's platform role.
type Role string

const (
	RoleUser     Role = "user"
	RoleBusiness Role = "business"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBusiness, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a string to Role, defaulting to RoleUser.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(s))
	if r.Valid() {
		return r
	}
	return RoleUser
}

// Profile is the user-editable record backing an identity. ID matches
// the auth identity ID.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Interests   []string  `json:"interests"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// OnboardingComplete reports whether the user has picked at least one
// interest.
func (p *Profile) OnboardingComplete() bool {
	return p != nil && len(p.Interests) > 0
}

// DefaultDisplayName derives a display name for a fresh profile: the
// metadata-provided name when present, otherwise the local part of the
// email address.
func DefaultDisplayName(email string, metadata map[string]any) string {
	if name, ok := metadata["display_name"].(string); ok && name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// ProfileUpdate carries the editable profile fields. Nil fields are
// left untouched; only DisplayName and Interests may ever change.
type ProfileUpdate struct {
	DisplayName *string
	Interests   *[]string
}

// Normalize trims the display name and returns the cleaned update.
// A display name that is empty after trimming is invalid input, even
// when the update carries other changes.
func (u ProfileUpdate) Normalize() (ProfileUpdate, error) {
	clean := ProfileUpdate{Interests: u.Interests}
	if u.DisplayName != nil {
		trimmed := strings.TrimSpace(*u.DisplayName)
		if trimmed == "" {
			return ProfileUpdate{}, apperrors.InvalidInput("display name must not be empty")
		}
		clean.DisplayName = &trimmed
	}
	return clean, nil
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.Interests == nil
}
