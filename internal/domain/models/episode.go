package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HitKey identifies one (transiting body, aspect, natal body) triple.
type HitKey struct {
	Transiting Body
	Aspect     AspectKind
	Natal      Body
}

func (k HitKey) String() string {
	return fmt.Sprintf("%s %s %s", k.Transiting, k.Aspect, k.Natal)
}

// Less orders keys by transiting body, then aspect, then natal body.
func (k HitKey) Less(o HitKey) bool {
	if k.Transiting != o.Transiting {
		return k.Transiting < o.Transiting
	}
	if k.Aspect != o.Aspect {
		return k.Aspect < o.Aspect
	}
	return k.Natal < o.Natal
}

// DailyHit is one in-orb sample for a key on a calendar day.
type DailyHit struct {
	Date       time.Time  `json:"date"`
	Transiting Body       `json:"transiting_body"`
	Aspect     AspectKind `json:"aspect"`
	Natal      Body       `json:"natal_body"`
	Deviation  float64    `json:"deviation"`
}

func (h DailyHit) Key() HitKey {
	return HitKey{Transiting: h.Transiting, Aspect: h.Aspect, Natal: h.Natal}
}

// Episode is a contiguous run of daily hits for one key, with its closest approach.
type Episode struct {
	ID             uuid.UUID  `json:"id"`
	TransitingBody Body       `json:"transiting_body"`
	Aspect         AspectKind `json:"aspect"`
	NatalBody      Body       `json:"natal_body"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	PeakDate       time.Time  `json:"peak_date"`
	PeakDeviation  float64    `json:"peak_deviation"`
	// Relation is set by the engine for the month it was computed for.
	Relation PeakRelation `json:"peak_relation,omitempty"`
}

func (e Episode) Key() HitKey {
	return HitKey{Transiting: e.TransitingBody, Aspect: e.Aspect, Natal: e.NatalBody}
}

// Duration counts the calendar days covered, both ends included.
func (e Episode) Duration() int {
	return int(e.EndDate.Sub(e.StartDate).Hours()/24+0.5) + 1
}

var episodeNamespace = uuid.MustParse("5b1f3c0e-6a7d-4e43-9a55-2f0c1d7e8b21")

// EpisodeID derives a stable identifier from the key and start date so that
// recomputing the same episode yields the same ID.
func EpisodeID(key HitKey, start time.Time) uuid.UUID {
	name := fmt.Sprintf("%s|%s", key, start.UTC().Format("2006-01-02"))
	return uuid.NewSHA1(episodeNamespace, []byte(name))
}

// PeakRelation tells how far an episode's peak lies from the target month.
type PeakRelation string

const (
	PeakInMonth       PeakRelation = "in_month"
	PeakAdjacentMonth PeakRelation = "adjacent_month"
	PeakDistant       PeakRelation = "distant"
)
