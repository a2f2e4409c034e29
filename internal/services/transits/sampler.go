package transits

import (
	"context"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domsvc "github.com/carlcj05/Astrozee/internal/domain/service"
)

// DefaultSampleHourUTC is the time of day at which transiting bodies are sampled.
const DefaultSampleHourUTC = 12

// DaySample is the outcome of sampling one calendar day.
type DaySample struct {
	Day      time.Time
	Hits     []models.DailyHit
	Failures []models.SampleFailure
	Sampled  int
}

// Sampler turns one day of oracle positions into in-orb hits.
type Sampler struct {
	oracle  domsvc.PositionOracle
	catalog models.AspectCatalog
	hour    int
}

// SamplerOption configures Sampler.
type SamplerOption func(*Sampler)

// WithSampleHour sets the UTC hour used for transiting positions.
func WithSampleHour(hour int) SamplerOption {
	return func(s *Sampler) {
		if hour >= 0 && hour < 24 {
			s.hour = hour
		}
	}
}

// WithCatalog replaces the default aspect table.
func WithCatalog(c models.AspectCatalog) SamplerOption {
	return func(s *Sampler) {
		if c.Len() > 0 {
			s.catalog = c
		}
	}
}

func NewSampler(oracle domsvc.PositionOracle, opts ...SamplerOption) *Sampler {
	s := &Sampler{oracle: oracle, catalog: models.DefaultCatalog(), hour: DefaultSampleHourUTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the aspect table in use.
func (s *Sampler) Catalog() models.AspectCatalog { return s.catalog }

// InstantFor returns the sampling instant for a calendar day.
func (s *Sampler) InstantFor(day time.Time) time.Time {
	return DayOf(day).Add(time.Duration(s.hour) * time.Hour)
}

// SampleDay samples every transiting body once and compares it with every natal
// position. Oracle failures skip the body for that day and are reported in the
// result, never as an error.
func (s *Sampler) SampleDay(ctx context.Context, day time.Time, natal []models.NatalPosition, transiting []models.Body) DaySample {
	day = DayOf(day)
	instant := s.InstantFor(day)
	out := DaySample{Day: day}

	for _, body := range transiting {
		if ctx.Err() != nil {
			return out
		}
		pos, err := s.oracle.LongitudeAt(ctx, instant, body)
		if err != nil {
			out.Failures = append(out.Failures, models.SampleFailure{
				Instant: instant,
				Body:    body,
				Error:   err.Error(),
			})
			continue
		}
		out.Sampled++
		for _, np := range natal {
			sep := ShortestSeparation(pos.Longitude, np.Longitude)
			def, dev, ok := s.catalog.Match(sep)
			if !ok {
				continue
			}
			out.Hits = append(out.Hits, models.DailyHit{
				Date:       day,
				Transiting: body,
				Aspect:     def.Kind,
				Natal:      np.Body,
				Deviation:  dev,
			})
		}
	}
	return out
}
