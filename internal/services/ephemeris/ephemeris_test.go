package ephemeris

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domsvc "github.com/carlcj05/Astrozee/internal/domain/service"
)

var j2000Instant = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

func TestApproximate_SunAndMoonAtJ2000(t *testing.T) {
	a := NewApproximate()
	ctx := context.Background()

	sun, err := a.LongitudeAt(ctx, j2000Instant, models.Sun)
	require.NoError(t, err)
	assert.InDelta(t, 280.46, sun.Longitude, 1.0)
	assert.InDelta(t, 1.0, sun.Speed, 0.05)

	moon, err := a.LongitudeAt(ctx, j2000Instant, models.Moon)
	require.NoError(t, err)
	assert.InDelta(t, 223.3, moon.Longitude, 0.5)
	assert.Greater(t, moon.Speed, 11.0)
	assert.Less(t, moon.Speed, 15.5)
}

func TestApproximate_SaturnInPisces2024(t *testing.T) {
	pos, err := NewApproximate().LongitudeAt(context.Background(), time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), models.Saturn)
	require.NoError(t, err)
	assert.InDelta(t, 343.5, pos.Longitude, 2.0)
	assert.Equal(t, "Poissons", models.ZodiacSign(pos.Longitude).String())
}

func TestApproximate_RangeAndDeterminism(t *testing.T) {
	a := NewApproximate()
	ctx := context.Background()
	for _, body := range models.AllBodies() {
		for _, at := range []time.Time{
			j2000Instant,
			time.Date(1975, 7, 4, 6, 30, 0, 0, time.UTC),
			time.Date(2031, 11, 20, 0, 0, 0, 0, time.UTC),
		} {
			p1, err := a.LongitudeAt(ctx, at, body)
			require.NoError(t, err)
			p2, err := a.LongitudeAt(ctx, at, body)
			require.NoError(t, err)
			assert.Equal(t, p1, p2, body.String())
			assert.GreaterOrEqual(t, p1.Longitude, 0.0, body.String())
			assert.Less(t, p1.Longitude, 360.0, body.String())
		}
	}
}

func TestApproximate_MercuryRetrogradesDuringTheYear(t *testing.T) {
	a := NewApproximate()
	retro := 0
	for d := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC); d.Year() == 2024; d = d.AddDate(0, 0, 1) {
		pos, err := a.LongitudeAt(context.Background(), d, models.Mercury)
		require.NoError(t, err)
		if pos.Retrograde() {
			retro++
		}
	}
	assert.Greater(t, retro, 30)
	assert.Less(t, retro, 120)
}

func TestApproximate_Errors(t *testing.T) {
	a := NewApproximate()
	_, err := a.LongitudeAt(context.Background(), j2000Instant, models.Body(42))
	assert.ErrorIs(t, err, models.ErrUnknownBody)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.LongitudeAt(ctx, j2000Instant, models.Sun)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackOracle(t *testing.T) {
	broken := domsvc.OracleFunc(func(context.Context, time.Time, models.Body) (models.Position, error) {
		return models.Position{}, errors.New("missing file")
	})
	fixed := domsvc.OracleFunc(func(context.Context, time.Time, models.Body) (models.Position, error) {
		return models.Position{Longitude: 42}, nil
	})

	var fallbacks []models.Body
	o := NewFallbackOracle(broken, fixed, WithFallbackHook(func(b models.Body, _ error) {
		fallbacks = append(fallbacks, b)
	}))
	pos, err := o.LongitudeAt(context.Background(), j2000Instant, models.Venus)
	require.NoError(t, err)
	assert.Equal(t, 42.0, pos.Longitude)
	assert.Equal(t, []models.Body{models.Venus}, fallbacks)

	_, err = NewFallbackOracle(broken, broken).LongitudeAt(context.Background(), j2000Instant, models.Venus)
	assert.ErrorContains(t, err, "missing file")

	cancelled := domsvc.OracleFunc(func(context.Context, time.Time, models.Body) (models.Position, error) {
		return models.Position{}, context.Canceled
	})
	_, err = NewFallbackOracle(cancelled, fixed).LongitudeAt(context.Background(), j2000Instant, models.Venus)
	assert.ErrorIs(t, err, context.Canceled)
}
