package engagement

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/pkg/logger"
)

// Service exposes the engagement operations. It keeps per-user caches
// of the reward total and current mood so reads never hit the store.
type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time

	mu     sync.RWMutex
	totals map[string]int64
	moods  map[string]Mood
}

// New constructs an engagement service.
func New(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		log:    log,
		now:    time.Now,
		totals: make(map[string]int64),
		moods:  make(map[string]Mood),
	}
}

// AddReward appends a ledger entry for an event payment and bumps the
// cached total by the earned points.
func (s *Service) AddReward(ctx context.Context, userID, eventID string, amount int64) (*RewardEntry, error) {
	if userID == "" {
		return nil, apperrors.MissingFields("user_id")
	}
	if amount < 0 {
		return nil, apperrors.InvalidInput("amount must not be negative")
	}

	entry := RewardEntry{
		UserID:     userID,
		EventID:    eventID,
		AmountPaid: amount,
		Points:     PointsFor(amount),
		CreatedAt:  s.now().UTC(),
	}
	created, err := s.store.InsertReward(ctx, entry)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.totals[userID] += created.Points
	s.mu.Unlock()

	s.log.WithField("user_id", userID).
		WithField("points", created.Points).
		Info("reward recorded")
	return created, nil
}

// LoadUserRewards recomputes the user's point total from the ledger
// and resets the cached total to it.
func (s *Service) LoadUserRewards(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, apperrors.MissingFields("user_id")
	}

	entries, err := s.store.ListRewards(ctx, userID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, entry := range entries {
		total += entry.Points
	}

	s.mu.Lock()
	s.totals[userID] = total
	s.mu.Unlock()
	return total, nil
}

// RewardTotal returns the cached point total for a user.
func (s *Service) RewardTotal(userID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals[userID]
}

// UpdateUserMood sets the user's mood for today. A second update on
// the same day replaces the earlier one.
func (s *Service) UpdateUserMood(ctx context.Context, userID string, mood Mood) error {
	if userID == "" {
		return apperrors.MissingFields("user_id")
	}
	if !mood.Valid() {
		return apperrors.InvalidInput("unknown mood " + string(mood))
	}

	_, err := s.store.UpsertMood(ctx, MoodEntry{
		UserID: userID,
		Mood:   mood,
		Day:    DayOf(s.now()),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.moods[userID] = mood
	s.mu.Unlock()
	return nil
}

// LoadUserMood fetches the user's most recent mood and caches it.
// Returns the empty mood when the user never logged one.
func (s *Service) LoadUserMood(ctx context.Context, userID string) (Mood, error) {
	if userID == "" {
		return "", apperrors.MissingFields("user_id")
	}

	entry, err := s.store.LatestMood(ctx, userID)
	if err != nil {
		return "", err
	}

	var mood Mood
	if entry != nil {
		mood = entry.Mood
	}

	s.mu.Lock()
	s.moods[userID] = mood
	s.mu.Unlock()
	return mood, nil
}

// CurrentMood returns the cached mood for a user.
func (s *Service) CurrentMood(userID string) Mood {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.moods[userID]
}
