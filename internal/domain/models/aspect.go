package models

import (
	"fmt"
	"math"
)

// AspectKind names an angular relationship between two bodies.
type AspectKind int

const (
	Conjunction AspectKind = iota
	Sextile
	Square
	Trine
	Opposition
)

var aspectIDs = [...]string{"conjunction", "sextile", "square", "trine", "opposition"}

var aspectLabels = [...]string{"conjonction", "sextile", "carré", "trigone", "opposition"}

func (k AspectKind) Valid() bool { return k >= Conjunction && int(k) < len(aspectIDs) }

func (k AspectKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("aspect(%d)", int(k))
	}
	return aspectIDs[k]
}

// Label is the display name used in reports.
func (k AspectKind) Label() string {
	if !k.Valid() {
		return k.String()
	}
	return aspectLabels[k]
}

func (k AspectKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidAspect, int(k))
	}
	return []byte(aspectIDs[k]), nil
}

func (k *AspectKind) UnmarshalText(text []byte) error {
	parsed, err := ParseAspectKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseAspectKind accepts the English identifier or the French label.
func ParseAspectKind(s string) (AspectKind, error) {
	key := foldName(s)
	for i := range aspectIDs {
		if key == aspectIDs[i] || key == foldName(aspectLabels[i]) {
			return AspectKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidAspect, s)
}

// Tone is the "weather" of an aspect.
type Tone string

const (
	ToneNeutral     Tone = "neutral"
	ToneHarmonious  Tone = "harmonious"
	ToneChallenging Tone = "challenging"
)

// Tone classifies the aspect as harmonious, challenging or neutral.
func (k AspectKind) Tone() Tone {
	switch k {
	case Sextile, Trine:
		return ToneHarmonious
	case Square, Opposition:
		return ToneChallenging
	default:
		return ToneNeutral
	}
}

// ImpactScore weights the aspect in the monthly mood summary.
func (k AspectKind) ImpactScore() int {
	switch k {
	case Sextile, Trine:
		return 2
	case Conjunction:
		return 1
	case Square, Opposition:
		return -2
	default:
		return 0
	}
}

// AspectDefinition is one row of the aspect table.
type AspectDefinition struct {
	Kind       AspectKind `json:"kind" yaml:"kind"`
	ExactAngle float64    `json:"exact_angle" yaml:"exact_angle"`
	Orb        float64    `json:"orb" yaml:"orb"`
}

// Deviation is the distance between a separation in [0,180] and the exact angle.
func (d AspectDefinition) Deviation(separation float64) float64 {
	return math.Abs(separation - d.ExactAngle)
}

// Within reports whether separation lies inside the orb, boundary included.
func (d AspectDefinition) Within(separation float64) bool {
	return d.Deviation(separation) <= d.Orb
}

// AspectCatalog is an immutable, ordered aspect table.
type AspectCatalog struct {
	defs []AspectDefinition
}

var defaultAspects = []AspectDefinition{
	{Kind: Conjunction, ExactAngle: 0, Orb: 5},
	{Kind: Sextile, ExactAngle: 60, Orb: 2},
	{Kind: Square, ExactAngle: 90, Orb: 3},
	{Kind: Trine, ExactAngle: 120, Orb: 3},
	{Kind: Opposition, ExactAngle: 180, Orb: 4},
}

// DefaultCatalog returns the five classical aspects.
func DefaultCatalog() AspectCatalog {
	return AspectCatalog{defs: append([]AspectDefinition(nil), defaultAspects...)}
}

// NewAspectCatalog validates defs and keeps them in the given order.
func NewAspectCatalog(defs ...AspectDefinition) (AspectCatalog, error) {
	if len(defs) == 0 {
		return AspectCatalog{}, fmt.Errorf("%w: empty table", ErrInvalidAspect)
	}
	seen := make(map[AspectKind]bool, len(defs))
	for _, d := range defs {
		if !d.Kind.Valid() {
			return AspectCatalog{}, fmt.Errorf("%w: kind %d", ErrInvalidAspect, int(d.Kind))
		}
		if seen[d.Kind] {
			return AspectCatalog{}, fmt.Errorf("%w: duplicate %s", ErrInvalidAspect, d.Kind)
		}
		seen[d.Kind] = true
		if d.ExactAngle < 0 || d.ExactAngle > 180 {
			return AspectCatalog{}, fmt.Errorf("%w: %s exact angle %.2f outside [0,180]", ErrInvalidAspect, d.Kind, d.ExactAngle)
		}
		if d.Orb <= 0 || d.Orb >= 30 {
			return AspectCatalog{}, fmt.Errorf("%w: %s orb %.2f outside (0,30)", ErrInvalidAspect, d.Kind, d.Orb)
		}
	}
	return AspectCatalog{defs: append([]AspectDefinition(nil), defs...)}, nil
}

// Definitions returns a copy of the table in declaration order.
func (c AspectCatalog) Definitions() []AspectDefinition {
	return append([]AspectDefinition(nil), c.defs...)
}

// Len returns the number of aspect kinds in the table.
func (c AspectCatalog) Len() int { return len(c.defs) }

// Lookup returns the definition for kind.
func (c AspectCatalog) Lookup(kind AspectKind) (AspectDefinition, bool) {
	for _, d := range c.defs {
		if d.Kind == kind {
			return d, true
		}
	}
	return AspectDefinition{}, false
}

// Match returns the aspect whose orb contains separation along with the deviation
// from its exact angle. When orbs overlap the closest exact angle wins, and equal
// distances resolve to the earlier declared kind.
func (c AspectCatalog) Match(separation float64) (AspectDefinition, float64, bool) {
	var (
		best    AspectDefinition
		bestDev float64
		found   bool
	)
	for _, d := range c.defs {
		dev := d.Deviation(separation)
		if dev > d.Orb {
			continue
		}
		if !found || dev < bestDev {
			best, bestDev, found = d, dev, true
		}
	}
	return best, bestDev, found
}
