// Package content manages community-submitted content: events,
// communities, and places, all flowing through a pending/approved/
// rejected moderation lifecycle.
package content

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies a content table.
type Kind string

const (
	KindEvent     Kind = "event"
	KindCommunity Kind = "community"
	KindPlace     Kind = "place"
)

// Valid reports whether the kind is known.
func (k Kind) Valid() bool {
	switch k {
	case KindEvent, KindCommunity, KindPlace:
		return true
	}
	return false
}

// ModerationStatus is the moderation state of a content row.
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

// Valid reports whether the status is known.
func (s ModerationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ParseModerationStatus converts a string to ModerationStatus.
func ParseModerationStatus(s string) (ModerationStatus, error) {
	status := ModerationStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown moderation status %q", s)
	}
	return status, nil
}

// Geo is a geographic point.
type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is a dated happening submitted by a user.
type Event struct {
	ID           string           `json:"id,omitempty"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Date         time.Time        `json:"date"`
	Time         string           `json:"time,omitempty"`
	Location     string           `json:"location"`
	Price        int64            `json:"price"`
	Category     string           `json:"category,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
	Geo          *Geo             `json:"geo,omitempty"`
	CommunityID  string           `json:"community_id,omitempty"`
	CreatedBy    string           `json:"created_by"`
	Status       ModerationStatus `json:"status"`
	AdminComment string           `json:"admin_comment,omitempty"`
	CreatedAt    time.Time        `json:"created_at,omitempty"`
}

// Community is an interest group submitted by a user.
type Community struct {
	ID           string           `json:"id,omitempty"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Interests    []string         `json:"interests"`
	ImageURL     string           `json:"image_url,omitempty"`
	Geo          *Geo             `json:"geo,omitempty"`
	Location     string           `json:"location,omitempty"`
	CreatedBy    string           `json:"created_by"`
	Status       ModerationStatus `json:"status"`
	AdminComment string           `json:"admin_comment,omitempty"`
	CreatedAt    time.Time        `json:"created_at,omitempty"`
}

// Place is a venue submitted by a user.
type Place struct {
	ID           string           `json:"id,omitempty"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Type         string           `json:"type,omitempty"`
	Address      string           `json:"address"`
	Geo          *Geo             `json:"geo,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
	CreatedBy    string           `json:"created_by"`
	Status       ModerationStatus `json:"status"`
	AdminComment string           `json:"admin_comment,omitempty"`
	CreatedAt    time.Time        `json:"created_at,omitempty"`
}

// EventFilter narrows approved-event listings.
type EventFilter struct {
	// ThisMonth restricts events to the current calendar month and
	// takes precedence over From/To.
	ThisMonth bool
	// From and To bound the event date inclusively. A zero value
	// leaves that side open.
	From time.Time
	To   time.Time
	// Category matches the event category exactly when non-empty.
	Category string
}

// Bounds resolves the filter's inclusive date window. Either bound
// may be zero, meaning unbounded on that side.
func (f EventFilter) Bounds(now time.Time) (start, end time.Time) {
	if f.ThisMonth {
		return MonthRange(now)
	}
	return f.From, f.To
}

// MonthRange returns the [start, end] bounds of now's calendar month.
func MonthRange(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// PendingSet holds the moderation queue across all content kinds.
type PendingSet struct {
	Events      []Event     `json:"events"`
	Communities []Community `json:"communities"`
	Places      []Place     `json:"places"`
}

// Collections is a snapshot of the cached approved content.
type Collections struct {
	Events      []Event     `json:"events"`
	Communities []Community `json:"communities"`
	Places      []Place     `json:"places"`
}

// UnmarshalJSON rejects unknown kinds.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind := Kind(s)
	if !kind.Valid() {
		return fmt.Errorf("unknown content kind %q", s)
	}
	*k = kind
	return nil
}
