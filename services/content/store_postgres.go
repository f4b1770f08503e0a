package content

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

// PostgresStore is a Store backed by a direct Postgres connection,
// used when the service runs against its own database instead of the
// managed backend.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresStore creates a store on top of db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

type eventRow struct {
	ID           string          `db:"id"`
	Title        string          `db:"title"`
	Description  string          `db:"description"`
	Date         time.Time       `db:"date"`
	Time         sql.NullString  `db:"time"`
	Location     string          `db:"location"`
	Price        int64           `db:"price"`
	Category     sql.NullString  `db:"category"`
	ImageURL     sql.NullString  `db:"image_url"`
	Lat          sql.NullFloat64 `db:"lat"`
	Lng          sql.NullFloat64 `db:"lng"`
	CommunityID  sql.NullString  `db:"community_id"`
	CreatedBy    string          `db:"created_by"`
	Status       string          `db:"status"`
	AdminComment sql.NullString  `db:"admin_comment"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (r eventRow) toDomain() Event {
	event := Event{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Date:         r.Date,
		Time:         r.Time.String,
		Location:     r.Location,
		Price:        r.Price,
		Category:     r.Category.String,
		ImageURL:     r.ImageURL.String,
		CommunityID:  r.CommunityID.String,
		CreatedBy:    r.CreatedBy,
		Status:       ModerationStatus(r.Status),
		AdminComment: r.AdminComment.String,
		CreatedAt:    r.CreatedAt,
	}
	if r.Lat.Valid && r.Lng.Valid {
		event.Geo = &Geo{Lat: r.Lat.Float64, Lng: r.Lng.Float64}
	}
	return event
}

// ListEvents returns events in status, date ascending.
func (s *PostgresStore) ListEvents(ctx context.Context, status ModerationStatus, filter EventFilter) ([]Event, error) {
	query := `SELECT id, title, description, date, time, location, price, category,
		image_url, lat, lng, community_id, created_by, status, admin_comment, created_at
		FROM events WHERE status = $1`
	args := []any{string(status)}

	start, end := filter.Bounds(s.now())
	if !start.IsZero() {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, start)
	}
	if !end.IsZero() {
		query += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, end)
	}
	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", len(args)+1)
		args = append(args, filter.Category)
	}
	query += " ORDER BY date ASC"

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.Persistence("list events", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toDomain())
	}
	return events, nil
}

// CreateEvent inserts a new event row.
func (s *PostgresStore) CreateEvent(ctx context.Context, event Event) (*Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = s.now().UTC()

	var lat, lng sql.NullFloat64
	if event.Geo != nil {
		lat = sql.NullFloat64{Float64: event.Geo.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: event.Geo.Lng, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, title, description, date, time, location, price, category,
			image_url, lat, lng, community_id, created_by, status, admin_comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		event.ID, event.Title, event.Description, event.Date,
		nullString(event.Time), event.Location, event.Price, nullString(event.Category),
		nullString(event.ImageURL), lat, lng, nullString(event.CommunityID),
		event.CreatedBy, string(event.Status), nullString(event.AdminComment), event.CreatedAt)
	if err != nil {
		return nil, apperrors.Persistence("insert event", err)
	}
	return &event, nil
}

type communityRow struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Description  string          `db:"description"`
	Interests    pq.StringArray  `db:"interests"`
	ImageURL     sql.NullString  `db:"image_url"`
	Lat          sql.NullFloat64 `db:"lat"`
	Lng          sql.NullFloat64 `db:"lng"`
	Location     sql.NullString  `db:"location"`
	CreatedBy    string          `db:"created_by"`
	Status       string          `db:"status"`
	AdminComment sql.NullString  `db:"admin_comment"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (r communityRow) toDomain() Community {
	community := Community{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Interests:    append([]string{}, r.Interests...),
		ImageURL:     r.ImageURL.String,
		Location:     r.Location.String,
		CreatedBy:    r.CreatedBy,
		Status:       ModerationStatus(r.Status),
		AdminComment: r.AdminComment.String,
		CreatedAt:    r.CreatedAt,
	}
	if r.Lat.Valid && r.Lng.Valid {
		community.Geo = &Geo{Lat: r.Lat.Float64, Lng: r.Lng.Float64}
	}
	return community
}

// ListCommunities returns communities in status, newest first.
func (s *PostgresStore) ListCommunities(ctx context.Context, status ModerationStatus) ([]Community, error) {
	var rows []communityRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, description, interests, image_url, lat, lng, location,
			created_by, status, admin_comment, created_at
		FROM communities WHERE status = $1 ORDER BY created_at DESC`,
		string(status))
	if err != nil {
		return nil, apperrors.Persistence("list communities", err)
	}

	communities := make([]Community, 0, len(rows))
	for _, row := range rows {
		communities = append(communities, row.toDomain())
	}
	return communities, nil
}

// CreateCommunity inserts a new community row.
func (s *PostgresStore) CreateCommunity(ctx context.Context, community Community) (*Community, error) {
	if community.ID == "" {
		community.ID = uuid.NewString()
	}
	community.CreatedAt = s.now().UTC()

	var lat, lng sql.NullFloat64
	if community.Geo != nil {
		lat = sql.NullFloat64{Float64: community.Geo.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: community.Geo.Lng, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO communities (id, name, description, interests, image_url, lat, lng,
			location, created_by, status, admin_comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		community.ID, community.Name, community.Description, pq.StringArray(community.Interests),
		nullString(community.ImageURL), lat, lng, nullString(community.Location),
		community.CreatedBy, string(community.Status), nullString(community.AdminComment),
		community.CreatedAt)
	if err != nil {
		return nil, apperrors.Persistence("insert community", err)
	}
	return &community, nil
}

type placeRow struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Description  string          `db:"description"`
	Type         sql.NullString  `db:"type"`
	Address      string          `db:"address"`
	Lat          sql.NullFloat64 `db:"lat"`
	Lng          sql.NullFloat64 `db:"lng"`
	ImageURL     sql.NullString  `db:"image_url"`
	CreatedBy    string          `db:"created_by"`
	Status       string          `db:"status"`
	AdminComment sql.NullString  `db:"admin_comment"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (r placeRow) toDomain() Place {
	place := Place{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Type:         r.Type.String,
		Address:      r.Address,
		ImageURL:     r.ImageURL.String,
		CreatedBy:    r.CreatedBy,
		Status:       ModerationStatus(r.Status),
		AdminComment: r.AdminComment.String,
		CreatedAt:    r.CreatedAt,
	}
	if r.Lat.Valid && r.Lng.Valid {
		place.Geo = &Geo{Lat: r.Lat.Float64, Lng: r.Lng.Float64}
	}
	return place
}

// ListPlaces returns places in status, newest first.
func (s *PostgresStore) ListPlaces(ctx context.Context, status ModerationStatus) ([]Place, error) {
	var rows []placeRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, name, description, type, address, lat, lng, image_url,
			created_by, status, admin_comment, created_at
		FROM places WHERE status = $1 ORDER BY created_at DESC`,
		string(status))
	if err != nil {
		return nil, apperrors.Persistence("list places", err)
	}

	places := make([]Place, 0, len(rows))
	for _, row := range rows {
		places = append(places, row.toDomain())
	}
	return places, nil
}

// CreatePlace inserts a new place row.
func (s *PostgresStore) CreatePlace(ctx context.Context, place Place) (*Place, error) {
	if place.ID == "" {
		place.ID = uuid.NewString()
	}
	place.CreatedAt = s.now().UTC()

	var lat, lng sql.NullFloat64
	if place.Geo != nil {
		lat = sql.NullFloat64{Float64: place.Geo.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: place.Geo.Lng, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO places (id, name, description, type, address, lat, lng, image_url,
			created_by, status, admin_comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		place.ID, place.Name, place.Description, nullString(place.Type), place.Address,
		lat, lng, nullString(place.ImageURL), place.CreatedBy, string(place.Status),
		nullString(place.AdminComment), place.CreatedAt)
	if err != nil {
		return nil, apperrors.Persistence("insert place", err)
	}
	return &place, nil
}

// UpdateStatus moves a row to a new moderation status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, kind Kind, id string, status ModerationStatus, adminComment *string) error {
	var table string
	switch kind {
	case KindEvent:
		table = "events"
	case KindCommunity:
		table = "communities"
	case KindPlace:
		table = "places"
	default:
		return apperrors.InvalidInput("unknown content kind " + string(kind))
	}

	var (
		result sql.Result
		err    error
	)
	if adminComment != nil {
		result, err = s.db.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET status = $1, admin_comment = $2 WHERE id = $3", table),
			string(status), *adminComment, id)
	} else {
		result, err = s.db.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET status = $1 WHERE id = $2", table),
			string(status), id)
	}
	if err != nil {
		return apperrors.Persistence("update "+table+" status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence("update "+table+" status", err)
	}
	if affected == 0 {
		return apperrors.NotFound(string(kind), id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
