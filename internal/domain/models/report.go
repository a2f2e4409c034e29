package models

import (
	"time"

	"github.com/google/uuid"
)

// Position is an oracle sample: ecliptic longitude in [0,360) and speed in degrees/day.
type Position struct {
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
}

// Retrograde reports apparent backward motion.
func (p Position) Retrograde() bool { return p.Speed < 0 }

// NatalPosition is a body's longitude at the birth instant.
type NatalPosition struct {
	Body      Body    `json:"body"`
	Longitude float64 `json:"longitude"`
}

// SampleFailure records a non fatal oracle error.
type SampleFailure struct {
	Instant time.Time `json:"instant"`
	Body    Body      `json:"body"`
	Natal   bool      `json:"natal"`
	Error   string    `json:"error"`
}

// Diagnostics summarises a run.
type Diagnostics struct {
	DaysScanned   int             `json:"days_scanned"`
	SamplesTaken  int             `json:"samples_taken"`
	HitsFound     int             `json:"hits_found"`
	EpisodesFound int             `json:"episodes_found"`
	NatalExcluded []Body          `json:"natal_excluded,omitempty"`
	Failures      []SampleFailure `json:"failures,omitempty"`
}

// TransitReport is the result of one computation over a target month.
type TransitReport struct {
	ID          uuid.UUID       `json:"id"`
	ProfileID   string          `json:"profile_id,omitempty"`
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	ScanStart   time.Time       `json:"scan_start"`
	ScanEnd     time.Time       `json:"scan_end"`
	Natal       []NatalPosition `json:"natal"`
	Episodes    []Episode       `json:"episodes"`
	Diagnostics Diagnostics     `json:"diagnostics"`
	GeneratedAt time.Time       `json:"generated_at"`
}
