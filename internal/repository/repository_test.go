package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	pkgkafka "github.com/carlcj05/Astrozee/pkg/kafka"
)

func TestInterpolate(t *testing.T) {
	t0 := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	a := ephemerisRow{ts: t0, longitude: 10, speed: 1}
	b := ephemerisRow{ts: t0.Add(24 * time.Hour), longitude: 12, speed: 1.2}

	pos, err := interpolate(a, b, t0.Add(12*time.Hour), DefaultMaxRowGap)
	require.NoError(t, err)
	assert.InDelta(t, 11, pos.Longitude, 1e-9)
	assert.InDelta(t, 1.1, pos.Speed, 1e-9)
}

func TestInterpolate_WrapsThroughZero(t *testing.T) {
	t0 := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	a := ephemerisRow{ts: t0, longitude: 359, speed: 2}
	b := ephemerisRow{ts: t0.Add(24 * time.Hour), longitude: 1, speed: 2}

	pos, err := interpolate(a, b, t0.Add(18*time.Hour), DefaultMaxRowGap)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pos.Longitude, 1e-9)
}

func TestInterpolate_Retrograde(t *testing.T) {
	t0 := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	a := ephemerisRow{ts: t0, longitude: 0.5, speed: -1}
	b := ephemerisRow{ts: t0.Add(24 * time.Hour), longitude: 359.5, speed: -1}

	pos, err := interpolate(a, b, t0.Add(12*time.Hour), DefaultMaxRowGap)
	require.NoError(t, err)
	assert.InDelta(t, 0, pos.Longitude, 1e-9)
	assert.True(t, pos.Retrograde())
}

func TestInterpolate_GapTooWide(t *testing.T) {
	t0 := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := interpolate(ephemerisRow{ts: t0}, ephemerisRow{ts: t0.Add(72 * time.Hour)}, t0.Add(time.Hour), DefaultMaxRowGap)
	assert.ErrorIs(t, err, ErrNoEphemerisRow)
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("astro", DefaultTables())
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], "CREATE DATABASE IF NOT EXISTS astro")
	assert.Contains(t, stmts[1], "astro.transit_reports")
	assert.Contains(t, stmts[2], "astro.transit_episodes")
	assert.Contains(t, stmts[3], "astro.ephemeris_longitudes")

	assert.Len(t, SchemaStatements("", DefaultTables()), 3)
}

func TestDecodeEpisode(t *testing.T) {
	id := uuid.New()
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.Local)
	e, err := decodeEpisode(models.Episode{StartDate: day, EndDate: day, PeakDate: day}, id.String(), "saturn", "square", "sun")
	require.NoError(t, err)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, models.Saturn, e.TransitingBody)
	assert.Equal(t, models.Square, e.Aspect)
	assert.Equal(t, models.Sun, e.NatalBody)
	assert.Equal(t, time.UTC, e.PeakDate.Location())

	_, err = decodeEpisode(models.Episode{}, id.String(), "vulcan", "square", "sun")
	assert.ErrorIs(t, err, models.ErrUnknownBody)
}

type captureSink struct {
	topic string
	msgs  []pkgkafka.Message
}

func (s *captureSink) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	s.topic = topic
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *captureSink) Close() error { return nil }

func TestKafkaReportPublisher(t *testing.T) {
	sink := &captureSink{}
	pub := NewKafkaReportPublisher(sink, "transit-reports")
	r := &models.TransitReport{ID: uuid.New(), ProfileID: "p1"}

	ctx := pkgkafka.WithRequestID(context.Background(), "req-1")
	require.NoError(t, pub.PublishReport(ctx, r))

	assert.Equal(t, "transit-reports", sink.topic)
	require.Len(t, sink.msgs, 1)
	assert.Equal(t, []byte("p1"), sink.msgs[0].Key)
	assert.Equal(t, "req-1", sink.msgs[0].Headers[pkgkafka.HeaderRequestID])
	assert.Equal(t, r.ID.String(), sink.msgs[0].Headers["report_id"])
	assert.Same(t, r, sink.msgs[0].Value)
}
