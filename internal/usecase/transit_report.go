package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domrepo "github.com/carlcj05/Astrozee/internal/domain/repository"
	"github.com/carlcj05/Astrozee/internal/services/transits"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
	"github.com/carlcj05/Astrozee/pkg/util"
)

// ErrStoreDisabled is returned by History when no episode store is configured.
var ErrStoreDisabled = errors.New("episode store disabled")

// TransitReportUseCase wraps the engine with the caller side concerns:
// persistence, distribution and the monthly mood view.
type TransitReportUseCase struct {
	engine    *TransitEngine
	store     domrepo.EpisodeStore
	publisher domrepo.ReportPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	timeout   time.Duration
}

type ReportOption func(*TransitReportUseCase)

func WithEpisodeStore(s domrepo.EpisodeStore) ReportOption {
	return func(uc *TransitReportUseCase) { uc.store = s }
}

func WithReportPublisher(p domrepo.ReportPublisher) ReportOption {
	return func(uc *TransitReportUseCase) { uc.publisher = p }
}

func WithReportLogger(l *applogger.Logger) ReportOption {
	return func(uc *TransitReportUseCase) { uc.l = l }
}

func WithReportMetrics(m domrepo.Metrics) ReportOption {
	return func(uc *TransitReportUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// WithComputeTimeout bounds a single computation; zero disables the bound.
func WithComputeTimeout(d time.Duration) ReportOption {
	return func(uc *TransitReportUseCase) { uc.timeout = d }
}

func NewTransitReportUseCase(engine *TransitEngine, opts ...ReportOption) *TransitReportUseCase {
	uc := &TransitReportUseCase{engine: engine, metrics: nopMetrics{}, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ReportParams selects what happens with a computed report.
type ReportParams struct {
	Profile models.Profile
	Month   int
	Year    int
	Persist bool
	Publish bool
}

// Generate computes a report, then stores and publishes it when asked. Storage
// and publishing failures are logged and counted; the report is still returned.
func (uc *TransitReportUseCase) Generate(ctx context.Context, p ReportParams) (*models.TransitReport, error) {
	return uc.GenerateWithProgress(ctx, p, nil)
}

func (uc *TransitReportUseCase) GenerateWithProgress(ctx context.Context, p ReportParams, progress ProgressFunc) (*models.TransitReport, error) {
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	report, err := uc.engine.ComputeWithProgress(ctx, p.Profile, p.Month, p.Year, progress)
	if err != nil {
		return nil, err
	}

	if p.Persist && uc.store != nil {
		start := time.Now()
		if err := uc.store.SaveReport(ctx, report); err != nil {
			uc.metrics.RecordError("persist")
			uc.warn("persist report failed", report, err)
		}
		uc.metrics.RecordLatency("persist", time.Since(start).Seconds())
	}
	if p.Publish && uc.publisher != nil {
		if err := uc.publisher.PublishReport(ctx, report); err != nil {
			uc.metrics.RecordError("publish")
			uc.warn("publish report failed", report, err)
		}
	}
	return report, nil
}

// Publish sends a computed report and returns the publisher error, unlike
// Generate which only logs it. Without a publisher it is a no-op.
func (uc *TransitReportUseCase) Publish(ctx context.Context, r *models.TransitReport) error {
	if uc.publisher == nil {
		return nil
	}
	if err := uc.publisher.PublishReport(ctx, r); err != nil {
		uc.metrics.RecordError("publish")
		return fmt.Errorf("publish report %s: %w", r.ID, err)
	}
	return nil
}

// Mood computes the month and buckets the episodes peaking in it by week.
func (uc *TransitReportUseCase) Mood(ctx context.Context, profile models.Profile, month, year int) (*models.MonthMood, error) {
	window, err := transits.NewMonthWindow(month, year, uc.engine.BufferMonths())
	if err != nil {
		return nil, err
	}
	report, err := uc.Generate(ctx, ReportParams{Profile: profile, Month: month, Year: year})
	if err != nil {
		return nil, err
	}
	mood := transits.SummarizeMood(window, report.Episodes)
	return &mood, nil
}

// History lists stored episodes of a profile overlapping [from, to].
func (uc *TransitReportUseCase) History(ctx context.Context, profileID string, from, to time.Time) ([]models.Episode, error) {
	if uc.store == nil {
		return nil, ErrStoreDisabled
	}
	if profileID == "" {
		return nil, fmt.Errorf("%w: profile id required", models.ErrInvalidProfile)
	}
	return uc.store.ListEpisodes(ctx, profileID, from, to)
}

// Catalog exposes the aspect table used by the engine.
func (uc *TransitReportUseCase) Catalog() models.AspectCatalog { return uc.engine.Catalog() }

func (uc *TransitReportUseCase) warn(msg string, r *models.TransitReport, err error) {
	if uc.l == nil {
		return
	}
	uc.l.Warn(msg,
		applogger.String("report", r.ID.String()),
		applogger.String("profile", r.ProfileID),
		applogger.Error(err),
	)
}

// ProfileFromRequest builds a profile from request fields. A zoned birth
// timestamp wins over tz and tz_offset; tz wins over tz_offset.
func ProfileFromRequest(req models.TransitRequest) (models.Profile, error) {
	wall, off, zoned, err := util.ParseBirth(req.Birth)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%w: %v", models.ErrInvalidProfile, err)
	}
	p := models.Profile{
		ID:              req.ProfileID,
		BirthLocal:      wall,
		TZOffsetMinutes: req.TZOffset,
	}
	switch {
	case zoned:
		p.TZOffsetMinutes = off
	case strings.TrimSpace(req.TZ) != "":
		loc, err := time.LoadLocation(strings.TrimSpace(req.TZ))
		if err != nil {
			return models.Profile{}, fmt.Errorf("%w: unknown time zone %q", models.ErrInvalidProfile, req.TZ)
		}
		p.Location = loc
	}
	if req.Bodies != "" {
		bodies, err := models.ParseBodies(req.Bodies)
		if err != nil {
			return models.Profile{}, err
		}
		p.Bodies = bodies
	}
	return p, nil
}
