package models

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBody(t *testing.T) {
	tests := map[string]Body{
		"sun":              Sun,
		"Soleil":           Sun,
		"  LUNE ":          Moon,
		"venus":            Venus,
		"Vénus":            Venus,
		"saturne":          Saturn,
		"Pluton":           Pluto,
		"true_node":        TrueNode,
		"Nœud Nord (vrai)": TrueNode,
		"noeud nord":       TrueNode,
		"chiron":           Chiron,
	}
	for in, want := range tests {
		got, err := ParseBody(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseBody("vulcan")
	assert.ErrorIs(t, err, ErrUnknownBody)
}

func TestParseBodies(t *testing.T) {
	all, err := ParseBodies("")
	require.NoError(t, err)
	assert.Equal(t, AllBodies(), all)

	got, err := ParseBodies("sun, Lune,sun")
	require.NoError(t, err)
	assert.Equal(t, []Body{Sun, Moon}, got)
}

func TestParseBody_Concurrent(t *testing.T) {
	inputs := map[string]Body{
		"Vénus":            Venus,
		"Saturne":          Saturn,
		"Nœud Nord (vrai)": TrueNode,
		"Mercure":          Mercury,
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				for in, want := range inputs {
					got, err := ParseBody(in)
					if err != nil || got != want {
						mu.Lock()
						errs = append(errs, in)
						mu.Unlock()
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	assert.Empty(t, errs)
}

func TestZodiac(t *testing.T) {
	assert.Equal(t, "Bélier", ZodiacSign(0).String())
	assert.Equal(t, "Cancer", ZodiacSign(90).String())
	assert.Equal(t, "Poissons", ZodiacSign(-0.5).String())
	assert.Equal(t, "0°00' Cancer", FormatLongitude(90))
	assert.Equal(t, "12°30' Lion", FormatLongitude(132.5))
	assert.Equal(t, "0°00' Bélier", FormatLongitude(359.9999))
}

func TestProfile_BirthUTC(t *testing.T) {
	local := time.Date(1990, 6, 15, 14, 30, 0, 0, time.UTC)

	p := Profile{BirthLocal: local, TZOffsetMinutes: 120}
	got, err := p.BirthUTC()
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 6, 15, 12, 30, 0, 0, time.UTC), got)

	paris, err := time.LoadLocation("Europe/Paris")
	if err == nil {
		p = Profile{BirthLocal: local, Location: paris}
		got, err = p.BirthUTC()
		require.NoError(t, err)
		assert.Equal(t, time.Date(1990, 6, 15, 12, 30, 0, 0, time.UTC), got)
	}

	_, err = Profile{}.BirthUTC()
	assert.ErrorIs(t, err, ErrMissingBirthInstant)
}

func TestEpisodeID_Deterministic(t *testing.T) {
	k := HitKey{Transiting: Saturn, Aspect: Square, Natal: Sun}
	start := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, EpisodeID(k, start), EpisodeID(k, start))
	assert.NotEqual(t, EpisodeID(k, start), EpisodeID(k, start.AddDate(0, 0, 1)))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, MoodTransformative, CategoryOf(Episode{TransitingBody: Pluto, Aspect: Trine}))
	assert.Equal(t, MoodFluid, CategoryOf(Episode{TransitingBody: Venus, Aspect: Trine}))
	assert.Equal(t, MoodChallenge, CategoryOf(Episode{TransitingBody: Mars, Aspect: Opposition}))
	assert.Equal(t, MoodNeutral, CategoryOf(Episode{TransitingBody: Sun, Aspect: Conjunction}))
}
