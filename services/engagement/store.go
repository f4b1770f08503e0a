package engagement

import "context"

// Store persists reward ledger entries and mood logs.
type Store interface {
	// InsertReward appends a ledger entry. The ledger is append-only.
	InsertReward(ctx context.Context, entry RewardEntry) (*RewardEntry, error)
	// ListRewards returns every ledger entry for a user.
	ListRewards(ctx context.Context, userID string) ([]RewardEntry, error)

	// UpsertMood writes the mood for the entry's user and day,
	// replacing any existing entry for that day.
	UpsertMood(ctx context.Context, entry MoodEntry) (*MoodEntry, error)
	// LatestMood returns the most recent mood entry for a user, or
	// (nil, nil) when none exists.
	LatestMood(ctx context.Context, userID string) (*MoodEntry, error)
}
