package transits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hit(tr models.Body, k models.AspectKind, n models.Body, date time.Time, dev float64) models.DailyHit {
	return models.DailyHit{Date: date, Transiting: tr, Aspect: k, Natal: n, Deviation: dev}
}

func TestGroup_SplitsOnGap(t *testing.T) {
	var hits []models.DailyHit
	for _, d := range []int{1, 2, 3, 5, 6} {
		hits = append(hits, hit(models.Mars, models.Trine, models.Venus, day(2024, 3, d), 1))
	}

	eps := NewGrouper(DefaultMaxGapDays).Group(hits)

	require.Len(t, eps, 2)
	assert.Equal(t, day(2024, 3, 1), eps[0].StartDate)
	assert.Equal(t, day(2024, 3, 3), eps[0].EndDate)
	assert.Equal(t, day(2024, 3, 5), eps[1].StartDate)
	assert.Equal(t, day(2024, 3, 6), eps[1].EndDate)
}

func TestGroup_PeakIsMinimumDeviation(t *testing.T) {
	hits := []models.DailyHit{
		hit(models.Jupiter, models.Sextile, models.Moon, day(2024, 5, 3), 1.0),
		hit(models.Jupiter, models.Sextile, models.Moon, day(2024, 5, 1), 2.0),
		hit(models.Jupiter, models.Sextile, models.Moon, day(2024, 5, 2), 0.5),
	}

	eps := NewGrouper(DefaultMaxGapDays).Group(hits)

	require.Len(t, eps, 1)
	assert.Equal(t, day(2024, 5, 2), eps[0].PeakDate)
	assert.InDelta(t, 0.5, eps[0].PeakDeviation, 1e-12)
	assert.Equal(t, day(2024, 5, 1), eps[0].StartDate)
	assert.Equal(t, day(2024, 5, 3), eps[0].EndDate)
}

func TestGroup_EqualDeviationKeepsEarliestPeak(t *testing.T) {
	hits := []models.DailyHit{
		hit(models.Sun, models.Conjunction, models.Sun, day(2024, 1, 2), 0.3),
		hit(models.Sun, models.Conjunction, models.Sun, day(2024, 1, 3), 0.3),
	}
	eps := NewGrouper(DefaultMaxGapDays).Group(hits)
	require.Len(t, eps, 1)
	assert.Equal(t, day(2024, 1, 2), eps[0].PeakDate)
}

func TestGroup_KeysAreIndependent(t *testing.T) {
	hits := []models.DailyHit{
		hit(models.Saturn, models.Square, models.Sun, day(2024, 2, 10), 1),
		hit(models.Saturn, models.Square, models.Moon, day(2024, 2, 11), 1),
		hit(models.Saturn, models.Trine, models.Sun, day(2024, 2, 11), 1),
	}
	eps := NewGrouper(DefaultMaxGapDays).Group(hits)
	require.Len(t, eps, 3)
	for i := 1; i < len(eps); i++ {
		assert.True(t, eps[i-1].Key().Less(eps[i].Key()))
	}
}

func TestGroup_RetrogradeRecrossingYieldsTwoEpisodes(t *testing.T) {
	var hits []models.DailyHit
	// direct pass
	for d := 1; d <= 6; d++ {
		hits = append(hits, hit(models.Mercury, models.Conjunction, models.Venus, day(2024, 4, d), float64(6-d)/2))
	}
	// out of orb for ten days, then retrograde pass
	for d := 17; d <= 20; d++ {
		hits = append(hits, hit(models.Mercury, models.Conjunction, models.Venus, day(2024, 4, d), float64(d-17)))
	}

	eps := NewGrouper(DefaultMaxGapDays).Group(hits)

	require.Len(t, eps, 2)
	assert.Equal(t, day(2024, 4, 6), eps[0].PeakDate)
	assert.Equal(t, day(2024, 4, 17), eps[1].PeakDate)
	assert.NotEqual(t, eps[0].ID, eps[1].ID)
}

func TestGroup_LargerGapMerges(t *testing.T) {
	hits := []models.DailyHit{
		hit(models.Venus, models.Opposition, models.Mars, day(2024, 6, 1), 1),
		hit(models.Venus, models.Opposition, models.Mars, day(2024, 6, 3), 1),
	}
	assert.Len(t, NewGrouper(1).Group(hits), 2)
	assert.Len(t, NewGrouper(2).Group(hits), 1)
}

func TestGroup_NormalizesTimeOfDay(t *testing.T) {
	hits := []models.DailyHit{
		hit(models.Moon, models.Square, models.Sun, day(2024, 7, 1).Add(12*time.Hour), 2),
		hit(models.Moon, models.Square, models.Sun, day(2024, 7, 2).Add(23*time.Hour), 1),
	}
	eps := NewGrouper(DefaultMaxGapDays).Group(hits)
	require.Len(t, eps, 1)
	assert.Equal(t, day(2024, 7, 2), eps[0].PeakDate)
}

func TestGroup_EmptyInput(t *testing.T) {
	assert.Empty(t, NewGrouper(DefaultMaxGapDays).Group(nil))
}

func TestGroup_StableIDs(t *testing.T) {
	hits := []models.DailyHit{hit(models.Pluto, models.Trine, models.Moon, day(2024, 8, 1), 1)}
	a := NewGrouper(DefaultMaxGapDays).Group(hits)
	b := NewGrouper(DefaultMaxGapDays).Group(hits)
	require.Len(t, a, 1)
	assert.Equal(t, a[0].ID, b[0].ID)
}
