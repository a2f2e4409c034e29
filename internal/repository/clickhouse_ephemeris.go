package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domsvc "github.com/carlcj05/Astrozee/internal/domain/service"
	pkgch "github.com/carlcj05/Astrozee/pkg/clickhouse"
)

// ErrNoEphemerisRow is returned when the table has no row bracketing the instant.
var ErrNoEphemerisRow = errors.New("no ephemeris row")

// DefaultMaxRowGap is the widest spacing between two rows that is still interpolated.
const DefaultMaxRowGap = 48 * time.Hour

type ephemerisRow struct {
	ts        time.Time
	longitude float64
	speed     float64
}

// CHEphemeris reads precomputed longitudes from ClickHouse and interpolates
// linearly between the two rows around the requested instant.
type CHEphemeris struct {
	db     *sql.DB
	table  string
	maxGap time.Duration
}

func NewCHEphemeris(ch *pkgch.Client, table string, maxGap time.Duration) *CHEphemeris {
	if maxGap <= 0 {
		maxGap = DefaultMaxRowGap
	}
	return &CHEphemeris{db: ch.DB(), table: table, maxGap: maxGap}
}

func (o *CHEphemeris) LongitudeAt(ctx context.Context, instant time.Time, body models.Body) (models.Position, error) {
	if !body.Valid() {
		return models.Position{}, fmt.Errorf("%w: %d", models.ErrUnknownBody, int(body))
	}
	instant = instant.UTC()

	before, err := o.row(ctx, body, instant, "ts <= ?", "DESC")
	if err != nil {
		return models.Position{}, err
	}
	if before.ts.Equal(instant) {
		return models.Position{Longitude: models.Normalize360(before.longitude), Speed: before.speed}, nil
	}
	after, err := o.row(ctx, body, instant, "ts >= ?", "ASC")
	if err != nil {
		return models.Position{}, err
	}
	return interpolate(before, after, instant, o.maxGap)
}

func (o *CHEphemeris) row(ctx context.Context, body models.Body, instant time.Time, cond, order string) (ephemerisRow, error) {
	q := fmt.Sprintf("SELECT ts, longitude, speed FROM %s WHERE body = ? AND %s ORDER BY ts %s LIMIT 1", o.table, cond, order)
	var r ephemerisRow
	err := o.db.QueryRowContext(ctx, q, body.String(), instant).Scan(&r.ts, &r.longitude, &r.speed)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s at %s", ErrNoEphemerisRow, body, instant.Format(time.RFC3339))
	}
	if err != nil {
		return r, fmt.Errorf("query ephemeris: %w", err)
	}
	r.ts = r.ts.UTC()
	return r, nil
}

// interpolate blends two rows along the shortest arc so that a crossing of 0°
// does not sweep backwards through the whole zodiac.
func interpolate(a, b ephemerisRow, instant time.Time, maxGap time.Duration) (models.Position, error) {
	span := b.ts.Sub(a.ts)
	if span <= 0 {
		return models.Position{Longitude: models.Normalize360(a.longitude), Speed: a.speed}, nil
	}
	if span > maxGap {
		return models.Position{}, fmt.Errorf("%w: rows %s apart", ErrNoEphemerisRow, span)
	}
	frac := float64(instant.Sub(a.ts)) / float64(span)
	lon := a.longitude + models.SignedArc(a.longitude, b.longitude)*frac
	speed := a.speed + (b.speed-a.speed)*frac
	return models.Position{Longitude: models.Normalize360(lon), Speed: speed}, nil
}

var _ domsvc.PositionOracle = (*CHEphemeris)(nil)
