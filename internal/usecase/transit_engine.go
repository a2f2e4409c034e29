package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domrepo "github.com/carlcj05/Astrozee/internal/domain/repository"
	domsvc "github.com/carlcj05/Astrozee/internal/domain/service"
	"github.com/carlcj05/Astrozee/internal/services/transits"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

// ProgressFunc receives the number of scanned days out of the total.
type ProgressFunc func(done, total int)

// TransitEngine computes the transit episodes of a profile for one month. It
// holds no state between calls and is safe for concurrent use.
type TransitEngine struct {
	oracle  domsvc.PositionOracle
	sampler *transits.Sampler
	grouper *transits.Grouper
	bodies  []models.Body
	buffer  int
	workers int
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time

	samplerOpts []transits.SamplerOption
}

type EngineOption func(*TransitEngine)

// WithWorkers bounds the number of days sampled concurrently.
func WithWorkers(n int) EngineOption {
	return func(e *TransitEngine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithMaxGapDays(n int) EngineOption {
	return func(e *TransitEngine) { e.grouper = transits.NewGrouper(n) }
}

func WithBufferMonths(n int) EngineOption {
	return func(e *TransitEngine) {
		if n >= 0 {
			e.buffer = n
		}
	}
}

func WithSampleHour(hour int) EngineOption {
	return func(e *TransitEngine) {
		e.samplerOpts = append(e.samplerOpts, transits.WithSampleHour(hour))
	}
}

func WithAspectCatalog(c models.AspectCatalog) EngineOption {
	return func(e *TransitEngine) {
		e.samplerOpts = append(e.samplerOpts, transits.WithCatalog(c))
	}
}

// WithDefaultBodies sets the bodies used when a profile does not list any.
func WithDefaultBodies(bodies []models.Body) EngineOption {
	return func(e *TransitEngine) {
		if len(bodies) > 0 {
			e.bodies = append([]models.Body(nil), bodies...)
		}
	}
}

func WithEngineLogger(l *applogger.Logger) EngineOption {
	return func(e *TransitEngine) { e.l = l }
}

func WithEngineMetrics(m domrepo.Metrics) EngineOption {
	return func(e *TransitEngine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) EngineOption {
	return func(e *TransitEngine) { e.now = now }
}

func NewTransitEngine(oracle domsvc.PositionOracle, opts ...EngineOption) *TransitEngine {
	e := &TransitEngine{
		oracle:  oracle,
		grouper: transits.NewGrouper(transits.DefaultMaxGapDays),
		bodies:  models.AllBodies(),
		buffer:  transits.DefaultBufferMonths,
		workers: runtime.GOMAXPROCS(0),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sampler = transits.NewSampler(oracle, e.samplerOpts...)
	return e
}

// Catalog returns the aspect table used for matching.
func (e *TransitEngine) Catalog() models.AspectCatalog { return e.sampler.Catalog() }

// BufferMonths returns how many months are scanned around the target month.
func (e *TransitEngine) BufferMonths() int { return e.buffer }

// ComputeTransits returns the episodes overlapping the target month, ordered by peak date.
func (e *TransitEngine) ComputeTransits(ctx context.Context, p models.Profile, month, year int) ([]models.Episode, error) {
	r, err := e.Compute(ctx, p, month, year)
	if err != nil {
		return nil, err
	}
	return r.Episodes, nil
}

// Compute runs a full scan and returns the episodes with their diagnostics.
func (e *TransitEngine) Compute(ctx context.Context, p models.Profile, month, year int) (*models.TransitReport, error) {
	return e.ComputeWithProgress(ctx, p, month, year, nil)
}

// ComputeWithProgress is Compute with a callback invoked after each scanned day.
// The callback may be called from several goroutines, never concurrently.
func (e *TransitEngine) ComputeWithProgress(ctx context.Context, p models.Profile, month, year int, progress ProgressFunc) (*models.TransitReport, error) {
	start := time.Now()
	defer func() { e.metrics.RecordLatency("compute", time.Since(start).Seconds()) }()

	report, err := e.compute(ctx, p, month, year, progress)
	if err != nil {
		e.metrics.RecordComputation("error")
		e.metrics.RecordError(errorKind(err))
		if e.l != nil {
			e.l.Warn("transit computation failed",
				applogger.String("profile", p.ID),
				applogger.Int("month", month),
				applogger.Int("year", year),
				applogger.Error(err),
			)
		}
		return nil, err
	}

	e.metrics.RecordComputation("ok")
	e.metrics.RecordEpisodes(len(report.Episodes))
	if e.l != nil {
		e.l.Info("transit computation done",
			applogger.String("profile", p.ID),
			applogger.Int("month", month),
			applogger.Int("year", year),
			applogger.Int("days", report.Diagnostics.DaysScanned),
			applogger.Int("episodes", len(report.Episodes)),
			applogger.Int("failures", len(report.Diagnostics.Failures)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return report, nil
}

func (e *TransitEngine) compute(ctx context.Context, p models.Profile, month, year int, progress ProgressFunc) (*models.TransitReport, error) {
	window, err := transits.NewMonthWindow(month, year, e.buffer)
	if err != nil {
		return nil, err
	}
	birth, err := p.BirthUTC()
	if err != nil {
		return nil, err
	}

	bodies := p.Bodies
	if len(bodies) == 0 {
		bodies = e.bodies
	}

	report := &models.TransitReport{
		ProfileID: p.ID,
		Month:     month,
		Year:      year,
	}
	report.ScanStart, report.ScanEnd = window.ScanRange()

	natal, err := e.resolveNatal(ctx, birth, bodies, &report.Diagnostics)
	if err != nil {
		return nil, err
	}
	report.Natal = natal

	days := window.Days()
	samples, err := e.sampleDays(ctx, days, natal, bodies, progress)
	if err != nil {
		return nil, err
	}

	var hits []models.DailyHit
	for _, s := range samples {
		hits = append(hits, s.Hits...)
		report.Diagnostics.SamplesTaken += s.Sampled
		report.Diagnostics.Failures = append(report.Diagnostics.Failures, s.Failures...)
		for _, f := range s.Failures {
			e.metrics.RecordSampleFailure(f.Body.String())
		}
	}
	report.Diagnostics.DaysScanned = len(days)
	report.Diagnostics.HitsFound = len(hits)
	if report.Diagnostics.SamplesTaken == 0 {
		return nil, fmt.Errorf("%w: every transiting sample failed", models.ErrNoSamples)
	}

	episodes := window.Filter(e.grouper.Group(hits))
	for i := range episodes {
		episodes[i].Relation = window.PeakRelation(episodes[i])
	}
	transits.SortByPeak(episodes)
	report.Episodes = episodes
	report.Diagnostics.EpisodesFound = len(episodes)
	report.ID = reportID(p, window, bodies)
	report.GeneratedAt = e.now().UTC()
	return report, nil
}

// resolveNatal samples every body at the birth instant. Bodies the oracle cannot
// place are excluded from the natal set and reported in diag.
func (e *TransitEngine) resolveNatal(ctx context.Context, birth time.Time, bodies []models.Body, diag *models.Diagnostics) ([]models.NatalPosition, error) {
	natal := make([]models.NatalPosition, 0, len(bodies))
	for _, b := range bodies {
		pos, err := e.oracle.LongitudeAt(ctx, birth, b)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			diag.NatalExcluded = append(diag.NatalExcluded, b)
			diag.Failures = append(diag.Failures, models.SampleFailure{
				Instant: birth,
				Body:    b,
				Natal:   true,
				Error:   err.Error(),
			})
			e.metrics.RecordSampleFailure(b.String())
			continue
		}
		natal = append(natal, models.NatalPosition{Body: b, Longitude: models.Normalize360(pos.Longitude)})
	}
	if len(natal) == 0 {
		return nil, fmt.Errorf("%w: no natal position could be resolved", models.ErrNoSamples)
	}
	return natal, nil
}

// sampleDays fans the scan days out to a bounded pool of workers. Results are
// indexed by day so the outcome does not depend on scheduling.
func (e *TransitEngine) sampleDays(ctx context.Context, days []time.Time, natal []models.NatalPosition, bodies []models.Body, progress ProgressFunc) ([]transits.DaySample, error) {
	out := make([]transits.DaySample, len(days))
	jobs := make(chan int)

	workers := e.workers
	if workers > len(days) {
		workers = len(days)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.sampler.SampleDay(ctx, days[i], natal, bodies)
				if progress != nil {
					mu.Lock()
					done++
					progress(done, len(days))
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for i := range days {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var reportNamespace = uuid.MustParse("0d7f1c52-5a43-4d0e-9c55-3b8a2f6e1a90")

// reportID identifies a computation by its inputs so that re-running it yields the same ID.
func reportID(p models.Profile, w transits.MonthWindow, bodies []models.Body) uuid.UUID {
	birth, _ := p.BirthUTC()
	key := fmt.Sprintf("%s|%s|%04d-%02d", p.ID, birth.Format(time.RFC3339), w.Year(), w.Month())
	for _, b := range bodies {
		key += "|" + b.String()
	}
	return uuid.NewSHA1(reportNamespace, []byte(key))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, models.ErrMissingBirthInstant):
		return "missing_birth"
	case errors.Is(err, models.ErrNoSamples):
		return "no_samples"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordComputation(string)      {}
func (nopMetrics) RecordSampleFailure(string)    {}
func (nopMetrics) RecordEpisodes(int)            {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}
