package transits

import (
	"math"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

// Normalize reduces any angle into [0,360).
func Normalize(angle float64) float64 { return models.Normalize360(angle) }

// ShortestSeparation is the circular distance between two longitudes, in [0,180].
func ShortestSeparation(a, b float64) float64 {
	d := math.Abs(Normalize(a) - Normalize(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}
