package repository

import (
	"context"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

// EpisodeStore persists computed reports. Persistence is a caller concern; the
// engine never reads from it.
type EpisodeStore interface {
	Init(ctx context.Context) error
	SaveReport(ctx context.Context, r *models.TransitReport) error
	ListEpisodes(ctx context.Context, profileID string, from, to time.Time) ([]models.Episode, error)
	Health(ctx context.Context) error
}

// ReportPublisher distributes computed reports.
type ReportPublisher interface {
	PublishReport(ctx context.Context, r *models.TransitReport) error
	Close() error
}

type Metrics interface {
	RecordComputation(result string)
	RecordSampleFailure(body string)
	RecordEpisodes(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
