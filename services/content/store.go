package content

import "context"

// Store persists content rows across the three tables.
type Store interface {
	ListEvents(ctx context.Context, status ModerationStatus, filter EventFilter) ([]Event, error)
	CreateEvent(ctx context.Context, event Event) (*Event, error)

	ListCommunities(ctx context.Context, status ModerationStatus) ([]Community, error)
	CreateCommunity(ctx context.Context, community Community) (*Community, error)

	ListPlaces(ctx context.Context, status ModerationStatus) ([]Place, error)
	CreatePlace(ctx context.Context, place Place) (*Place, error)

	// UpdateStatus moves a row to a new moderation status. A nil
	// adminComment leaves the comment column untouched.
	UpdateStatus(ctx context.Context, kind Kind, id string, status ModerationStatus, adminComment *string) error
}
