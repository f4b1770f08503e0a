package content

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	events      map[string]Event
	communities map[string]Community
	places      map[string]Place
	now         func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:      make(map[string]Event),
		communities: make(map[string]Community),
		places:      make(map[string]Place),
		now:         time.Now,
	}
}

// ListEvents returns events in the given status, date ascending.
func (m *MemoryStore) ListEvents(ctx context.Context, status ModerationStatus, filter EventFilter) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start, end := filter.Bounds(m.now())

	out := []Event{}
	for _, event := range m.events {
		if event.Status != status {
			continue
		}
		if !start.IsZero() && event.Date.Before(start) {
			continue
		}
		if !end.IsZero() && event.Date.After(end) {
			continue
		}
		if filter.Category != "" && event.Category != filter.Category {
			continue
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// CreateEvent stores a new event.
func (m *MemoryStore) CreateEvent(ctx context.Context, event Event) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = m.now().UTC()
	}
	m.events[event.ID] = event
	return &event, nil
}

// ListCommunities returns communities in the given status, newest
// first.
func (m *MemoryStore) ListCommunities(ctx context.Context, status ModerationStatus) ([]Community, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Community{}
	for _, community := range m.communities {
		if community.Status == status {
			out = append(out, community)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreateCommunity stores a new community.
func (m *MemoryStore) CreateCommunity(ctx context.Context, community Community) (*Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if community.ID == "" {
		community.ID = uuid.NewString()
	}
	if community.CreatedAt.IsZero() {
		community.CreatedAt = m.now().UTC()
	}
	m.communities[community.ID] = community
	return &community, nil
}

// ListPlaces returns places in the given status, newest first.
func (m *MemoryStore) ListPlaces(ctx context.Context, status ModerationStatus) ([]Place, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Place{}
	for _, place := range m.places {
		if place.Status == status {
			out = append(out, place)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreatePlace stores a new place.
func (m *MemoryStore) CreatePlace(ctx context.Context, place Place) (*Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if place.ID == "" {
		place.ID = uuid.NewString()
	}
	if place.CreatedAt.IsZero() {
		place.CreatedAt = m.now().UTC()
	}
	m.places[place.ID] = place
	return &place, nil
}

// UpdateStatus moves a row to a new moderation status.
func (m *MemoryStore) UpdateStatus(ctx context.Context, kind Kind, id string, status ModerationStatus, adminComment *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case KindEvent:
		event, ok := m.events[id]
		if !ok {
			return apperrors.NotFound("event", id)
		}
		event.Status = status
		if adminComment != nil {
			event.AdminComment = *adminComment
		}
		m.events[id] = event
	case KindCommunity:
		community, ok := m.communities[id]
		if !ok {
			return apperrors.NotFound("community", id)
		}
		community.Status = status
		if adminComment != nil {
			community.AdminComment = *adminComment
		}
		m.communities[id] = community
	case KindPlace:
		place, ok := m.places[id]
		if !ok {
			return apperrors.NotFound("place", id)
		}
		place.Status = status
		if adminComment != nil {
			place.AdminComment = *adminComment
		}
		m.places[id] = place
	default:
		return apperrors.InvalidInput("unknown content kind " + string(kind))
	}
	return nil
}
