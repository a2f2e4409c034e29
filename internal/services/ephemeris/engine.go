package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
	domsvc "github.com/carlcj05/Astrozee/internal/domain/service"
	applogger "github.com/carlcj05/Astrozee/pkg/logger"
)

// Engine names accepted in configuration.
const (
	EngineApproximate = "approximate"
	EngineClickHouse  = "clickhouse"
)

// FallbackOracle asks the primary oracle first and the secondary one when the
// primary fails. A cancelled context is never retried.
type FallbackOracle struct {
	primary    domsvc.PositionOracle
	secondary  domsvc.PositionOracle
	onFallback func(body models.Body, err error)
}

// FallbackOption configures FallbackOracle.
type FallbackOption func(*FallbackOracle)

// WithFallbackHook is called each time the secondary oracle is used.
func WithFallbackHook(fn func(body models.Body, err error)) FallbackOption {
	return func(f *FallbackOracle) {
		f.onFallback = fn
	}
}

func NewFallbackOracle(primary, secondary domsvc.PositionOracle, opts ...FallbackOption) *FallbackOracle {
	f := &FallbackOracle{primary: primary, secondary: secondary}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FallbackOracle) LongitudeAt(ctx context.Context, instant time.Time, body models.Body) (models.Position, error) {
	pos, err := f.primary.LongitudeAt(ctx, instant, body)
	if err == nil {
		return pos, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.Position{}, err
	}
	if f.onFallback != nil {
		f.onFallback(body, err)
	}
	pos, err2 := f.secondary.LongitudeAt(ctx, instant, body)
	if err2 != nil {
		return models.Position{}, fmt.Errorf("primary: %v; fallback: %w", err, err2)
	}
	return pos, nil
}

// LogFallback returns a hook that logs each fallback at debug level.
func LogFallback(l *applogger.Logger) func(models.Body, error) {
	return func(body models.Body, err error) {
		if l == nil {
			return
		}
		l.Debug("ephemeris fallback",
			applogger.String("body", body.String()),
			applogger.Error(err),
		)
	}
}
