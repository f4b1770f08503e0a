package engagement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	rewards map[string][]RewardEntry
	moods   map[string]map[string]MoodEntry // userID -> day -> entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rewards: make(map[string][]RewardEntry),
		moods:   make(map[string]map[string]MoodEntry),
	}
}

// InsertReward appends a ledger entry.
func (m *MemoryStore) InsertReward(ctx context.Context, entry RewardEntry) (*RewardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.rewards[entry.UserID] = append(m.rewards[entry.UserID], entry)
	return &entry, nil
}

// ListRewards returns every ledger entry for a user.
func (m *MemoryStore) ListRewards(ctx context.Context, userID string) ([]RewardEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RewardEntry{}, m.rewards[userID]...), nil
}

// UpsertMood writes the mood for a user and day.
func (m *MemoryStore) UpsertMood(ctx context.Context, entry MoodEntry) (*MoodEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	days, ok := m.moods[entry.UserID]
	if !ok {
		days = make(map[string]MoodEntry)
		m.moods[entry.UserID] = days
	}
	days[entry.Day] = entry
	return &entry, nil
}

// LatestMood returns the most recent mood entry for a user.
func (m *MemoryStore) LatestMood(ctx context.Context, userID string) (*MoodEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *MoodEntry
	for day := range m.moods[userID] {
		entry := m.moods[userID][day]
		if latest == nil || entry.Day > latest.Day {
			latest = &entry
		}
	}
	return latest, nil
}
