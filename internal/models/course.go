package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ClockMinutes is a time of day expressed as minutes after midnight.
type ClockMinutes int

// ParseClock parses an "HH:MM" clock string into ClockMinutes.
func ParseClock(raw string) (ClockMinutes, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(raw, "%d:%d", &hours, &minutes); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", raw)
	}
	return ClockMinutes(hours*60 + minutes), nil
}

// String renders the clock value as "HH:MM".
func (m ClockMinutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Valid reports whether the value falls within a single day.
func (m ClockMinutes) Valid() bool {
	return m >= 0 && m < 24*60
}

// MarshalJSON encodes the value as an "HH:MM" string.
func (m ClockMinutes) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts an "HH:MM" string.
func (m *ClockMinutes) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Course represents a course offering with a daily time window.
type Course struct {
	ID        string       `db:"id" json:"id"`
	Code      string       `db:"code" json:"code"`
	Name      string       `db:"name" json:"name"`
	Credits   int          `db:"credits" json:"credits"`
	Capacity  int          `db:"capacity" json:"capacity"`
	StartTime ClockMinutes `db:"start_minutes" json:"start_time"`
	EndTime   ClockMinutes `db:"end_minutes" json:"end_time"`
	Active    bool         `db:"active" json:"active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the course window shares any instant with [start, end).
// Half-open interval semantics: touching endpoints do not overlap.
func (c Course) Overlaps(start, end ClockMinutes) bool {
	return c.StartTime < end && start < c.EndTime
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Search          string
	MinCredits      int
	MaxCredits      int
	StartsAfter     *ClockMinutes
	EndsBefore      *ClockMinutes
	IncludeInactive bool
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
