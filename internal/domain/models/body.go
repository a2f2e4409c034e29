package models

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Body identifies a celestial point that can be sampled by a PositionOracle.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
	TrueNode
	Chiron
)

var bodyIDs = [...]string{
	"sun", "moon", "mercury", "venus", "mars", "jupiter",
	"saturn", "uranus", "neptune", "pluto", "true_node", "chiron",
}

var bodyLabels = [...]string{
	"Soleil", "Lune", "Mercure", "Vénus", "Mars", "Jupiter",
	"Saturne", "Uranus", "Neptune", "Pluton", "Nœud Nord (vrai)", "Chiron",
}

// aliases maps folded names (lower case, no diacritics) to bodies that are
// not already covered by an identifier or a label.
var aliases = map[string]Body{
	"node":            TrueNode,
	"north node":      TrueNode,
	"true node":       TrueNode,
	"truenode":        TrueNode,
	"noeud nord":      TrueNode,
	"noeud nord vrai": TrueNode,
}

// AllBodies returns the default body catalog in its fixed order.
func AllBodies() []Body {
	out := make([]Body, 0, len(bodyIDs))
	for i := range bodyIDs {
		out = append(out, Body(i))
	}
	return out
}

// Valid reports whether b belongs to the catalog.
func (b Body) Valid() bool { return b >= Sun && int(b) < len(bodyIDs) }

func (b Body) String() string {
	if !b.Valid() {
		return fmt.Sprintf("body(%d)", int(b))
	}
	return bodyIDs[b]
}

// Label is the display name used in reports.
func (b Body) Label() string {
	if !b.Valid() {
		return b.String()
	}
	return bodyLabels[b]
}

// IsSlow reports whether b is one of the outer bodies whose transits are
// classified as transformative.
func (b Body) IsSlow() bool {
	switch b {
	case Saturn, Uranus, Neptune, Pluto:
		return true
	default:
		return false
	}
}

func (b Body) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, int(b))
	}
	return []byte(bodyIDs[b]), nil
}

func (b *Body) UnmarshalText(text []byte) error {
	parsed, err := ParseBody(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBody resolves an English identifier or a French display name.
// Matching ignores case, surrounding spaces and diacritics.
func ParseBody(s string) (Body, error) {
	key := foldName(s)
	for i, id := range bodyIDs {
		if key == id || key == foldName(bodyLabels[i]) {
			return Body(i), nil
		}
	}
	if b, ok := aliases[key]; ok {
		return b, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBody, s)
}

// ParseBodies parses a comma separated list. An empty list yields the full catalog.
func ParseBodies(s string) ([]Body, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AllBodies(), nil
	}
	parts := strings.Split(s, ",")
	out := make([]Body, 0, len(parts))
	seen := make(map[Body]bool, len(parts))
	for _, p := range parts {
		b, err := ParseBody(p)
		if err != nil {
			return nil, err
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out, nil
}

func foldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "œ", "oe")
	s = strings.ReplaceAll(s, "_", " ")
	// Transformers keep state between calls; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(s), " ")
}

// Sign is one of the twelve 30° zodiac sectors.
type Sign int

var signNames = [...]string{
	"Bélier", "Taureau", "Gémeaux", "Cancer", "Lion", "Vierge",
	"Balance", "Scorpion", "Sagittaire", "Capricorne", "Verseau", "Poissons",
}

func (s Sign) String() string {
	if s < 0 || int(s) >= len(signNames) {
		return fmt.Sprintf("sign(%d)", int(s))
	}
	return signNames[s]
}

// ZodiacSign returns the sign containing the ecliptic longitude.
func ZodiacSign(longitude float64) Sign {
	idx := int(math.Floor(Normalize360(longitude) / 30))
	if idx > 11 {
		idx = 11
	}
	return Sign(idx)
}

// FormatLongitude renders a longitude as degrees within its sign, e.g. "12°30' Cancer".
func FormatLongitude(longitude float64) string {
	total := int(math.Round(Normalize360(longitude)*60)) % (360 * 60)
	sign := Sign(total / (30 * 60))
	within := total % (30 * 60)
	return fmt.Sprintf("%d°%02d' %s", within/60, within%60, sign)
}

// Normalize360 reduces any angle into [0,360).
func Normalize360(angle float64) float64 {
	r := math.Mod(angle, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r = 0
	}
	return r
}

// SignedArc is the shortest signed arc from one longitude to another, in (-180,180].
func SignedArc(from, to float64) float64 {
	d := math.Mod(to-from, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}
