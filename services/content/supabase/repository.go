// Package supabase implements the content store against the managed
// Supabase backend.
package supabase

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/services/content"
	"github.com/ViveCali/community_layer/supabase/client"
)

const (
	eventsTable      = "events"
	communitiesTable = "communities"
	placesTable      = "places"
)

func tableFor(kind content.Kind) (string, error) {
	switch kind {
	case content.KindEvent:
		return eventsTable, nil
	case content.KindCommunity:
		return communitiesTable, nil
	case content.KindPlace:
		return placesTable, nil
	default:
		return "", apperrors.InvalidInput("unknown content kind " + string(kind))
	}
}

// Repository is a content.Store backed by Supabase.
type Repository struct {
	client *client.Client
	now    func() time.Time
}

// NewRepository creates a repository using the given client.
func NewRepository(c *client.Client) *Repository {
	return &Repository{client: c, now: time.Now}
}

// ListEvents returns events in status, date ascending.
func (r *Repository) ListEvents(ctx context.Context, status content.ModerationStatus, filter content.EventFilter) ([]content.Event, error) {
	q := r.client.From(eventsTable).
		Select("*").
		Eq("status", string(status))

	start, end := filter.Bounds(r.now())
	if !start.IsZero() {
		q = q.Gte("date", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		q = q.Lte("date", end.UTC().Format(time.RFC3339))
	}
	if filter.Category != "" {
		q = q.Eq("category", filter.Category)
	}

	resp, err := q.Order("date", true).Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var events []content.Event
	if err := resp.JSON(&events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return events, nil
}

// CreateEvent inserts a new event row.
func (r *Repository) CreateEvent(ctx context.Context, event content.Event) (*content.Event, error) {
	resp, err := r.client.From(eventsTable).ExecuteInsert(ctx, event)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []content.Event
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("unmarshal created event: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.Persistence("insert event", fmt.Errorf("no row returned"))
	}
	return &rows[0], nil
}

// ListCommunities returns communities in status, newest first.
func (r *Repository) ListCommunities(ctx context.Context, status content.ModerationStatus) ([]content.Community, error) {
	resp, err := r.client.From(communitiesTable).
		Select("*").
		Eq("status", string(status)).
		Order("created_at", false).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var communities []content.Community
	if err := resp.JSON(&communities); err != nil {
		return nil, fmt.Errorf("unmarshal communities: %w", err)
	}
	return communities, nil
}

// CreateCommunity inserts a new community row.
func (r *Repository) CreateCommunity(ctx context.Context, community content.Community) (*content.Community, error) {
	resp, err := r.client.From(communitiesTable).ExecuteInsert(ctx, community)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []content.Community
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("unmarshal created community: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.Persistence("insert community", fmt.Errorf("no row returned"))
	}
	return &rows[0], nil
}

// ListPlaces returns places in status, newest first.
func (r *Repository) ListPlaces(ctx context.Context, status content.ModerationStatus) ([]content.Place, error) {
	resp, err := r.client.From(placesTable).
		Select("*").
		Eq("status", string(status)).
		Order("created_at", false).
		Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var places []content.Place
	if err := resp.JSON(&places); err != nil {
		return nil, fmt.Errorf("unmarshal places: %w", err)
	}
	return places, nil
}

// CreatePlace inserts a new place row.
func (r *Repository) CreatePlace(ctx context.Context, place content.Place) (*content.Place, error) {
	resp, err := r.client.From(placesTable).ExecuteInsert(ctx, place)
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []content.Place
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("unmarshal created place: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.Persistence("insert place", fmt.Errorf("no row returned"))
	}
	return &rows[0], nil
}

// UpdateStatus patches the status (and comment when given) of a row.
func (r *Repository) UpdateStatus(ctx context.Context, kind content.Kind, id string, status content.ModerationStatus, adminComment *string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	patch := map[string]any{"status": string(status)}
	if adminComment != nil {
		patch["admin_comment"] = *adminComment
	}

	resp, err := r.client.From(table).
		Eq("id", id).
		ExecuteUpdate(ctx, patch)
	if err != nil {
		return err
	}
	if err := resp.Error(); err != nil {
		return err
	}

	var rows []map[string]any
	if err := resp.JSON(&rows); err != nil {
		return fmt.Errorf("unmarshal updated row: %w", err)
	}
	if len(rows) == 0 {
		return apperrors.NotFound(string(kind), id)
	}
	return nil
}
