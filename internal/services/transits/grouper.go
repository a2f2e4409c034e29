package transits

import (
	"sort"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

// DefaultMaxGapDays is the largest day difference that still extends an episode.
const DefaultMaxGapDays = 1

// Grouper folds daily hits into episodes.
type Grouper struct {
	maxGapDays int
}

// NewGrouper returns a grouper that merges hits at most maxGapDays apart.
// Negative values fall back to DefaultMaxGapDays.
func NewGrouper(maxGapDays int) *Grouper {
	if maxGapDays < 0 {
		maxGapDays = DefaultMaxGapDays
	}
	return &Grouper{maxGapDays: maxGapDays}
}

func (g *Grouper) MaxGapDays() int { return g.maxGapDays }

// Group partitions hits by key and merges each partition in date order. The
// result is ordered by key, then start date; a key may yield several episodes.
func (g *Grouper) Group(hits []models.DailyHit) []models.Episode {
	if len(hits) == 0 {
		return nil
	}

	partitions := make(map[models.HitKey][]models.DailyHit)
	for _, h := range hits {
		h.Date = DayOf(h.Date)
		partitions[h.Key()] = append(partitions[h.Key()], h)
	}

	keys := make([]models.HitKey, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	var out []models.Episode
	for _, k := range keys {
		out = append(out, g.fold(k, partitions[k])...)
	}
	return out
}

// fold merges one key's hits. It sorts its input in place.
func (g *Grouper) fold(key models.HitKey, hits []models.DailyHit) []models.Episode {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Date.Before(hits[j].Date) })

	var (
		out []models.Episode
		cur models.Episode
	)
	open := false
	for _, h := range hits {
		if open && DaysBetween(cur.EndDate, h.Date) <= g.maxGapDays {
			cur.EndDate = h.Date
			if h.Deviation < cur.PeakDeviation {
				cur.PeakDate = h.Date
				cur.PeakDeviation = h.Deviation
			}
			continue
		}
		if open {
			out = append(out, cur)
		}
		cur = models.Episode{
			TransitingBody: key.Transiting,
			Aspect:         key.Aspect,
			NatalBody:      key.Natal,
			StartDate:      h.Date,
			EndDate:        h.Date,
			PeakDate:       h.Date,
			PeakDeviation:  h.Deviation,
		}
		open = true
	}
	if open {
		out = append(out, cur)
	}
	for i := range out {
		out[i].ID = models.EpisodeID(key, out[i].StartDate)
	}
	return out
}
