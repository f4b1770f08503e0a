// Package engagement tracks user engagement: the rewards ledger for
// event spending and the daily mood log.
package engagement

import "time"

// PointsPerUnit is the spend amount that earns one reward point.
const PointsPerUnit = 1000

// PointsFor converts a spend amount into reward points, rounding
// down. Amounts under one unit earn nothing.
func PointsFor(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount / PointsPerUnit
}

// RewardEntry is one row of the rewards ledger.
type RewardEntry struct {
	ID         string    `json:"id,omitempty"`
	UserID     string    `json:"user_id"`
	EventID    string    `json:"event_id"`
	AmountPaid int64     `json:"amount_paid"`
	Points     int64     `json:"points"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Mood is a daily mood choice.
type Mood string

const (
	MoodHappy       Mood = "happy"
	MoodExcited     Mood = "excited"
	MoodRelaxed     Mood = "relaxed"
	MoodAdventurous Mood = "adventurous"
	MoodSocial      Mood = "social"
	MoodCultural    Mood = "cultural"
)

// Moods lists every valid mood.
var Moods = []Mood{
	MoodHappy, MoodExcited, MoodRelaxed, MoodAdventurous, MoodSocial, MoodCultural,
}

// Valid reports whether the mood is one of the known moods.
func (m Mood) Valid() bool {
	for _, mood := range Moods {
		if m == mood {
			return true
		}
	}
	return false
}

// MoodEntry is a user's mood for one calendar day. At most one entry
// exists per user per day.
type MoodEntry struct {
	UserID string `json:"user_id"`
	Mood   Mood   `json:"mood"`
	// Day is the calendar date in DayFormat. Lexicographic order
	// matches chronological order.
	Day string `json:"day"`
}

// DayFormat is the calendar-date layout used for mood days.
const DayFormat = "2006-01-02"

// DayOf returns the calendar day of t in DayFormat.
func DayOf(t time.Time) string {
	return t.Format(DayFormat)
}
