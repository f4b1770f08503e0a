package content

import (
	"context"
	"strings"
	"sync"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/pkg/logger"
)

// Service exposes the content operations: approved-content listings
// with a cached snapshot, moderated submissions, and the admin
// moderation queue.
type Service struct {
	store Store
	log   *logger.Logger

	mu          sync.RWMutex
	events      []Event
	communities []Community
	places      []Place
	lastErr     error

	subs    map[int]chan Collections
	nextSub int
}

// New constructs a content service.
func New(store Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
		subs:  make(map[int]chan Collections),
	}
}

// LoadEvents refreshes the cached approved events, applying the
// filter. A listing failure degrades the cache to empty and records
// the error; the error is also returned.
func (s *Service) LoadEvents(ctx context.Context, filter EventFilter) ([]Event, error) {
	events, err := s.store.ListEvents(ctx, StatusApproved, filter)
	if err != nil {
		s.log.WithError(err).Warn("event listing failed, serving empty")
		events = []Event{}
	}
	if events == nil {
		events = []Event{}
	}

	s.mu.Lock()
	s.events = events
	s.lastErr = err
	s.mu.Unlock()
	s.broadcast()
	return events, err
}

// LoadCommunities refreshes the cached approved communities.
func (s *Service) LoadCommunities(ctx context.Context) ([]Community, error) {
	communities, err := s.store.ListCommunities(ctx, StatusApproved)
	if err != nil {
		s.log.WithError(err).Warn("community listing failed, serving empty")
		communities = []Community{}
	}
	if communities == nil {
		communities = []Community{}
	}

	s.mu.Lock()
	s.communities = communities
	s.lastErr = err
	s.mu.Unlock()
	s.broadcast()
	return communities, err
}

// LoadPlaces refreshes the cached approved places.
func (s *Service) LoadPlaces(ctx context.Context) ([]Place, error) {
	places, err := s.store.ListPlaces(ctx, StatusApproved)
	if err != nil {
		s.log.WithError(err).Warn("place listing failed, serving empty")
		places = []Place{}
	}
	if places == nil {
		places = []Place{}
	}

	s.mu.Lock()
	s.places = places
	s.lastErr = err
	s.mu.Unlock()
	s.broadcast()
	return places, err
}

// Snapshot returns the cached approved content.
func (s *Service) Snapshot() Collections {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Collections{
		Events:      append([]Event(nil), s.events...),
		Communities: append([]Community(nil), s.communities...),
		Places:      append([]Place(nil), s.places...),
	}
}

// LastError returns the most recent listing error, if any.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// CreateEvent submits an event for moderation. Required fields are
// checked before any network call; the status is always forced to
// pending regardless of what the caller set.
func (s *Service) CreateEvent(ctx context.Context, event Event) (*Event, error) {
	event.Title = strings.TrimSpace(event.Title)
	event.Description = strings.TrimSpace(event.Description)
	event.Location = strings.TrimSpace(event.Location)

	var missing []string
	if event.Title == "" {
		missing = append(missing, "title")
	}
	if event.Description == "" {
		missing = append(missing, "description")
	}
	if event.Date.IsZero() {
		missing = append(missing, "date")
	}
	if event.Location == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}
	if event.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}

	event.Status = StatusPending
	event.AdminComment = ""

	created, err := s.store.CreateEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	s.log.WithField("event_id", created.ID).
		WithField("created_by", created.CreatedBy).
		Info("event submitted for moderation")
	return created, nil
}

// CreateCommunity submits a community for moderation.
func (s *Service) CreateCommunity(ctx context.Context, community Community) (*Community, error) {
	community.Name = strings.TrimSpace(community.Name)
	community.Description = strings.TrimSpace(community.Description)

	var missing []string
	if community.Name == "" {
		missing = append(missing, "name")
	}
	if community.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}

	if community.Interests == nil {
		community.Interests = []string{}
	}
	community.Status = StatusPending
	community.AdminComment = ""

	created, err := s.store.CreateCommunity(ctx, community)
	if err != nil {
		return nil, err
	}

	s.log.WithField("community_id", created.ID).
		WithField("created_by", created.CreatedBy).
		Info("community submitted for moderation")
	return created, nil
}

// CreatePlace submits a place for moderation.
func (s *Service) CreatePlace(ctx context.Context, place Place) (*Place, error) {
	place.Name = strings.TrimSpace(place.Name)
	place.Description = strings.TrimSpace(place.Description)
	place.Address = strings.TrimSpace(place.Address)

	var missing []string
	if place.Name == "" {
		missing = append(missing, "name")
	}
	if place.Description == "" {
		missing = append(missing, "description")
	}
	if place.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}

	place.Status = StatusPending
	place.AdminComment = ""

	created, err := s.store.CreatePlace(ctx, place)
	if err != nil {
		return nil, err
	}

	s.log.WithField("place_id", created.ID).
		WithField("created_by", created.CreatedBy).
		Info("place submitted for moderation")
	return created, nil
}

// LoadPendingContent loads the moderation queue across all three
// kinds concurrently. A failing kind degrades to an empty list; the
// call errors only when every kind fails.
func (s *Service) LoadPendingContent(ctx context.Context) (PendingSet, error) {
	var set PendingSet
	errs := make([]error, 3)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		set.Events, errs[0] = s.store.ListEvents(ctx, StatusPending, EventFilter{})
	}()
	go func() {
		defer wg.Done()
		set.Communities, errs[1] = s.store.ListCommunities(ctx, StatusPending)
	}()
	go func() {
		defer wg.Done()
		set.Places, errs[2] = s.store.ListPlaces(ctx, StatusPending)
	}()
	wg.Wait()

	if set.Events == nil {
		set.Events = []Event{}
	}
	if set.Communities == nil {
		set.Communities = []Community{}
	}
	if set.Places == nil {
		set.Places = []Place{}
	}

	var firstErr error
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			s.log.WithError(err).Warn("pending listing failed")
		}
	}
	if failed == len(errs) {
		return PendingSet{Events: []Event{}, Communities: []Community{}, Places: []Place{}},
			apperrors.Persistence("load pending content", firstErr)
	}
	return set, nil
}

// Approve moves a content row to approved. Repeated moderation
// decisions are last-write-wins.
func (s *Service) Approve(ctx context.Context, kind Kind, id string) error {
	if !kind.Valid() {
		return apperrors.InvalidInput("unknown content kind " + string(kind))
	}
	if id == "" {
		return apperrors.MissingFields("id")
	}

	if err := s.store.UpdateStatus(ctx, kind, id, StatusApproved, nil); err != nil {
		return err
	}
	s.log.WithField("kind", string(kind)).WithField("id", id).Info("content approved")
	return nil
}

// Reject moves a content row to rejected with a mandatory comment
// explaining the decision.
func (s *Service) Reject(ctx context.Context, kind Kind, id, comment string) error {
	if !kind.Valid() {
		return apperrors.InvalidInput("unknown content kind " + string(kind))
	}
	if id == "" {
		return apperrors.MissingFields("id")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return apperrors.MissingFields("comment")
	}

	if err := s.store.UpdateStatus(ctx, kind, id, StatusRejected, &comment); err != nil {
		return err
	}
	s.log.WithField("kind", string(kind)).WithField("id", id).Info("content rejected")
	return nil
}

// Subscribe delivers the cached collections after every refresh.
// Cancel closes the channel.
func (s *Service) Subscribe() (<-chan Collections, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Collections, 4)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (s *Service) broadcast() {
	snap := s.Snapshot()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
