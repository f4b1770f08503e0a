// Package supabase implements the engagement store against the
// managed Supabase backend.
package supabase

import (
	"context"
	"fmt"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/services/engagement"
	"github.com/ViveCali/community_layer/supabase/client"
)

const (
	rewardsTable = "rewards"
	moodsTable   = "moods"
)

// Repository is an engagement.Store backed by Supabase.
type Repository struct {
	client *client.Client
}

// NewRepository creates a repository using the given client.
func NewRepository(c *client.Client) *Repository {
	return &Repository{client: c}
}

// InsertReward appends a ledger entry.
func (r *Repository) InsertReward(ctx context.Context, entry engagement.RewardEntry) (*engagement.RewardEntry, error) {
	resp, err := r.client.From(rewardsTable).ExecuteInsert(ctx, entry)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []engagement.RewardEntry
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("unmarshal created reward: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.Persistence("insert reward", fmt.Errorf("no row returned"))
	}
	return &rows[0], nil
}

// ListRewards returns every ledger entry for a user.
func (r *Repository) ListRewards(ctx context.Context, userID string) ([]engagement.RewardEntry, error) {
	resp, err := r.client.From(rewardsTable).
		Select("*").
		Eq("user_id", userID).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var entries []engagement.RewardEntry
	if err := resp.JSON(&entries); err != nil {
		return nil, fmt.Errorf("unmarshal rewards: %w", err)
	}
	return entries, nil
}

// UpsertMood writes the mood for a user and day, keyed on the
// (user_id, day) unique constraint.
func (r *Repository) UpsertMood(ctx context.Context, entry engagement.MoodEntry) (*engagement.MoodEntry, error) {
	resp, err := r.client.From(moodsTable).
		OnConflict("user_id,day").
		ExecuteUpsert(ctx, entry)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []engagement.MoodEntry
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("unmarshal upserted mood: %w", err)
	}
	if len(rows) == 0 {
		return &entry, nil
	}
	return &rows[0], nil
}

// LatestMood returns the most recent mood entry for a user, or
// (nil, nil) when the user never logged one.
func (r *Repository) LatestMood(ctx context.Context, userID string) (*engagement.MoodEntry, error) {
	resp, err := r.client.From(moodsTable).
		Select("*").
		Eq("user_id", userID).
		Order("day", false).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var entries []engagement.MoodEntry
	if err := resp.JSON(&entries); err != nil {
		return nil, fmt.Errorf("unmarshal moods: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}
