package models

import "time"

// Profile carries the birth data needed to resolve natal positions.
type Profile struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	// BirthLocal holds the local wall clock time of birth; its location is ignored.
	BirthLocal time.Time `json:"birth_local"`
	// TZOffsetMinutes is the offset east of UTC at birth, used when Location is nil.
	TZOffsetMinutes int            `json:"tz_offset_minutes"`
	Location        *time.Location `json:"-"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	PlaceName string   `json:"place_name,omitempty"`

	// Bodies restricts the catalog; empty means every body.
	Bodies []Body `json:"bodies,omitempty"`
}

// BirthUTC resolves the birth instant in UTC.
func (p Profile) BirthUTC() (time.Time, error) {
	if p.BirthLocal.IsZero() {
		return time.Time{}, ErrMissingBirthInstant
	}
	l := p.BirthLocal
	if p.Location != nil {
		return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), p.Location).UTC(), nil
	}
	wall := time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
	return wall.Add(-time.Duration(p.TZOffsetMinutes) * time.Minute), nil
}

// BodySet returns the bodies to sample, defaulting to the full catalog.
func (p Profile) BodySet() []Body {
	if len(p.Bodies) == 0 {
		return AllBodies()
	}
	return append([]Body(nil), p.Bodies...)
}
