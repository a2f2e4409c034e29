package transits

import (
	"sort"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

// Filter keeps the episodes that overlap the target month.
func (w MonthWindow) Filter(episodes []models.Episode) []models.Episode {
	out := make([]models.Episode, 0, len(episodes))
	for _, e := range episodes {
		if w.Overlaps(e) {
			out = append(out, e)
		}
	}
	return out
}

// SortByPeak orders episodes by peak date. Equal peaks fall back to key and start
// date so the order does not depend on how hits were produced.
func SortByPeak(episodes []models.Episode) {
	sort.SliceStable(episodes, func(i, j int) bool {
		a, b := episodes[i], episodes[j]
		if !a.PeakDate.Equal(b.PeakDate) {
			return a.PeakDate.Before(b.PeakDate)
		}
		if a.Key() != b.Key() {
			return a.Key().Less(b.Key())
		}
		return a.StartDate.Before(b.StartDate)
	})
}
