// Package supabase implements the session store against the managed
// Supabase backend.
package supabase

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/services/session"
	"github.com/ViveCali/community_layer/supabase/client"
)

const (
	profilesTable = "profiles"
	rolesTable    = "user_roles"
)

// Repository is a session.Store backed by Supabase.
type Repository struct {
	client *client.Client
}

// NewRepository creates a repository using the given client.
func NewRepository(c *client.Client) *Repository {
	return &Repository{client: c}
}

type profileRow struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Interests   []string  `json:"interests"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

func (r profileRow) toDomain() *session.Profile {
	interests := r.Interests
	if interests == nil {
		interests = []string{}
	}
	return &session.Profile{
		ID:          r.ID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		Interests:   interests,
		CreatedAt:   r.CreatedAt,
	}
}

type roleRow struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role"`
}

// GetProfile fetches a profile by identity ID.
func (r *Repository) GetProfile(ctx context.Context, id string) (*session.Profile, error) {
	resp, err := r.client.From(profilesTable).
		Select("*").
		Eq("id", id).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var row profileRow
	if err := resp.JSON(&row); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return row.toDomain(), nil
}

// CreateProfile inserts a new profile row.
func (r *Repository) CreateProfile(ctx context.Context, profile session.Profile) (*session.Profile, error) {
	interests := profile.Interests
	if interests == nil {
		interests = []string{}
	}
	resp, err := r.client.From(profilesTable).ExecuteInsert(ctx, profileRow{
		ID:          profile.ID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Interests:   interests,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []profileRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("unmarshal created profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFound("profile", profile.ID)
	}
	return rows[0].toDomain(), nil
}

// UpdateProfile patches the editable profile columns.
func (r *Repository) UpdateProfile(ctx context.Context, id string, update session.ProfileUpdate) (*session.Profile, error) {
	patch := map[string]any{}
	if update.DisplayName != nil {
		patch["display_name"] = *update.DisplayName
	}
	if update.Interests != nil {
		patch["interests"] = *update.Interests
	}
	if len(patch) == 0 {
		return nil, apperrors.InvalidInput("empty profile update")
	}

	resp, err := r.client.From(profilesTable).
		Eq("id", id).
		ExecuteUpdate(ctx, patch)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []profileRow
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("unmarshal updated profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFound("profile", id)
	}
	return rows[0].toDomain(), nil
}

// GetRole fetches the role assigned to userID.
func (r *Repository) GetRole(ctx context.Context, userID string) (session.Role, error) {
	resp, err := r.client.From(rolesTable).
		Select("role").
		Eq("user_id", userID).
		Single().
		Execute(ctx)
	if err != nil {
		return "", err
	}
	if err := resp.Error(); err != nil {
		return "", err
	}

	var row roleRow
	if err := resp.JSON(&row); err != nil {
		return "", fmt.Errorf("unmarshal role: %w", err)
	}
	return session.ParseRole(row.Role), nil
}

// AssignRole inserts a role row for userID.
func (r *Repository) AssignRole(ctx context.Context, userID string, role session.Role) error {
	resp, err := r.client.From(rolesTable).ExecuteInsert(ctx, roleRow{
		UserID: userID,
		Role:   string(role),
	})
	if err != nil {
		return err
	}
	return resp.Error()
}
