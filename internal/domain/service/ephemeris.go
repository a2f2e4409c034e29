package service

import (
	"context"
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

// PositionOracle returns the ecliptic position of a body at an instant (UTC).
// Implementations must be safe for concurrent use and independent of call order.
type PositionOracle interface {
	LongitudeAt(ctx context.Context, instant time.Time, body models.Body) (models.Position, error)
}

// OracleFunc adapts a plain function to PositionOracle.
type OracleFunc func(ctx context.Context, instant time.Time, body models.Body) (models.Position, error)

func (f OracleFunc) LongitudeAt(ctx context.Context, instant time.Time, body models.Body) (models.Position, error) {
	return f(ctx, instant, body)
}
