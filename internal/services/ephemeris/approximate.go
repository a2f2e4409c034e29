package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

const (
	j2000        = 2451545.0
	unixEpochJD  = 2440587.5
	daysPerCent  = 36525.0
	precPerCent  = 1.396971 // general precession in longitude, degrees per century
	speedStepDay = 0.5
)

// elements are Keplerian elements at J2000 with rates per Julian century:
// semi-major axis (AU), eccentricity, inclination, mean longitude, longitude of
// perihelion and longitude of ascending node (degrees).
type elements struct {
	a, e, i, l, peri, node                   float64
	aDot, eDot, iDot, lDot, periDot, nodeDot float64
}

// Approximate positions of the planets, valid 1800-2050 (Standish, JPL).
var planetElements = map[models.Body]elements{
	models.Mercury: {0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
		0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081},
	models.Venus: {0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
		0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418},
	models.Mars: {1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
		0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343},
	models.Jupiter: {5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
		-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106},
	models.Saturn: {9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
		-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794},
	models.Uranus: {19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503,
		-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589},
	models.Neptune: {30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574,
		0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664},
	models.Pluto: {39.48211675, 0.24882730, 17.14001206, 238.92903833, 224.06891629, 110.30393684,
		-0.00031596, 0.00005170, 0.00004818, 145.20780515, -0.04062942, -0.01183482},
}

var earthElements = elements{1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0,
	0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0}

// Chiron osculating elements around its 1996 perihelion.
const (
	chironA            = 13.648
	chironE            = 0.3826
	chironI            = 6.93
	chironNode         = 209.30
	chironArgPeri      = 339.40
	chironPerihelionJD = 2450143.0
)

// Approximate is an analytic PositionOracle: Keplerian orbits for the planets,
// a truncated lunar theory for the Moon and the node, and fixed elements for
// Chiron. Longitudes are tropical (of date). It is deterministic and needs no
// data files.
type Approximate struct{}

func NewApproximate() *Approximate { return &Approximate{} }

// Name identifies the engine in logs and metrics.
func (*Approximate) Name() string { return EngineApproximate }

func (a *Approximate) LongitudeAt(ctx context.Context, instant time.Time, body models.Body) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, err
	}
	if !body.Valid() {
		return models.Position{}, fmt.Errorf("%w: %d", models.ErrUnknownBody, int(body))
	}
	jd := julianDay(instant)
	lon := longitude(body, jd)
	before := longitude(body, jd-speedStepDay)
	after := longitude(body, jd+speedStepDay)
	speed := models.SignedArc(before, after) / (2 * speedStepDay)
	return models.Position{Longitude: lon, Speed: speed}, nil
}

func julianDay(t time.Time) float64 {
	return float64(t.UTC().UnixNano())/float64(24*time.Hour) + unixEpochJD
}

func longitude(body models.Body, jd float64) float64 {
	d := jd - j2000
	t := d / daysPerCent
	switch body {
	case models.Moon:
		return moonLongitude(d)
	case models.TrueNode:
		return trueNode(d)
	case models.Sun:
		ex, ey, _ := heliocentric(earthElements, t)
		return ofDate(deg(math.Atan2(-ey, -ex)), t)
	case models.Chiron:
		m := 360 * (jd - chironPerihelionJD) / (math.Pow(chironA, 1.5) * 365.25)
		x, y, _ := orbitXYZ(chironA, chironE, chironI, chironNode, chironArgPeri, m)
		ex, ey, _ := heliocentric(earthElements, t)
		return ofDate(deg(math.Atan2(y-ey, x-ex)), t)
	default:
		el := planetElements[body]
		x, y, _ := heliocentric(el, t)
		ex, ey, _ := heliocentric(earthElements, t)
		return ofDate(deg(math.Atan2(y-ey, x-ex)), t)
	}
}

// ofDate converts a J2000 ecliptic longitude to the equinox of date.
func ofDate(lonJ2000, t float64) float64 {
	return models.Normalize360(lonJ2000 + precPerCent*t)
}

func heliocentric(el elements, t float64) (float64, float64, float64) {
	a := el.a + el.aDot*t
	e := el.e + el.eDot*t
	i := el.i + el.iDot*t
	l := el.l + el.lDot*t
	peri := el.peri + el.periDot*t
	node := el.node + el.nodeDot*t
	return orbitXYZ(a, e, i, node, peri-node, l-peri)
}

// orbitXYZ returns heliocentric ecliptic coordinates (AU) for the given elements.
// Angles are in degrees; m is the mean anomaly.
func orbitXYZ(a, e, incl, node, argPeri, m float64) (float64, float64, float64) {
	m = math.Mod(m, 360)
	if m > 180 {
		m -= 360
	} else if m < -180 {
		m += 360
	}
	ea := solveKepler(rad(m), e)
	xp := a * (math.Cos(ea) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(ea)

	w, o, i := rad(argPeri), rad(node), rad(incl)
	cw, sw := math.Cos(w), math.Sin(w)
	co, so := math.Cos(o), math.Sin(o)
	ci, si := math.Cos(i), math.Sin(i)

	x := (cw*co-sw*so*ci)*xp + (-sw*co-cw*so*ci)*yp
	y := (cw*so+sw*co*ci)*xp + (-sw*so+cw*co*ci)*yp
	z := (sw*si)*xp + (cw*si)*yp
	return x, y, z
}

func solveKepler(m, e float64) float64 {
	ea := m + e*math.Sin(m)
	for k := 0; k < 30; k++ {
		delta := (ea - e*math.Sin(ea) - m) / (1 - e*math.Cos(ea))
		ea -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}
	return ea
}

// moonLongitude uses the main periodic terms of the lunar theory; d is days from J2000.
func moonLongitude(d float64) float64 {
	l := 218.3164477 + 13.17639648*d
	dm := rad(297.8501921 + 12.19074912*d)
	ms := rad(357.5291092 + 0.98560028*d)
	mm := rad(134.9633964 + 13.06499295*d)
	f := rad(93.2720950 + 13.22935024*d)

	lon := l +
		6.288774*math.Sin(mm) +
		1.274027*math.Sin(2*dm-mm) +
		0.658314*math.Sin(2*dm) +
		0.213618*math.Sin(2*mm) -
		0.185116*math.Sin(ms) -
		0.114332*math.Sin(2*f) +
		0.058793*math.Sin(2*dm-2*mm) +
		0.057066*math.Sin(2*dm-ms-mm) +
		0.053322*math.Sin(2*dm+mm) +
		0.045758*math.Sin(2*dm-ms) -
		0.040923*math.Sin(ms-mm) -
		0.034720*math.Sin(dm) -
		0.030383*math.Sin(ms+mm)
	return models.Normalize360(lon)
}

// trueNode applies the largest periodic corrections to the mean lunar node.
func trueNode(d float64) float64 {
	mean := 125.0445479 - 0.0529537648*d
	dm := rad(297.8501921 + 12.19074912*d)
	ms := rad(357.5291092 + 0.98560028*d)
	mm := rad(134.9633964 + 13.06499295*d)
	f := rad(93.2720950 + 13.22935024*d)

	node := mean -
		1.4979*math.Sin(2*(dm-f)) -
		0.1500*math.Sin(ms) -
		0.1226*math.Sin(2*dm) +
		0.1176*math.Sin(2*f) -
		0.0801*math.Sin(2*(f-mm))
	return models.Normalize360(node)
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }
