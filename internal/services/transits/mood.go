package transits

import (
	"time"

	"github.com/carlcj05/Astrozee/internal/domain/models"
)

const maxMoodWeek = 4

// WeekOfMonth returns the ISO-8601 week of month (Monday first, a week belongs
// to the month holding at least four of its days), clamped to 1..4.
func WeekOfMonth(t time.Time) int {
	d := DayOf(t)
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	offset := isoWeekday(first) - 1
	week := (d.Day() - 1 + offset) / 7
	if 7-offset >= 4 {
		week++
	}
	if week < 1 {
		week = 1
	}
	if week > maxMoodWeek {
		week = maxMoodWeek
	}
	return week
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// SummarizeMood buckets the episodes peaking inside the target month by week
// and sums their impact scores per category. Weeks without episodes are omitted.
func SummarizeMood(w MonthWindow, episodes []models.Episode) models.MonthMood {
	mood := models.MonthMood{Month: w.Month(), Year: w.Year()}

	byWeek := make(map[int][]models.Episode)
	for _, e := range episodes {
		if w.PeakRelation(e) != models.PeakInMonth {
			continue
		}
		wk := WeekOfMonth(e.PeakDate)
		byWeek[wk] = append(byWeek[wk], e)
	}

	for wk := 1; wk <= maxMoodWeek; wk++ {
		eps, ok := byWeek[wk]
		if !ok {
			continue
		}
		SortByPeak(eps)
		scores := make(map[models.MoodCategory]int)
		for _, e := range eps {
			scores[models.CategoryOf(e)] += e.Aspect.ImpactScore()
		}
		week := models.WeekMood{Week: wk, Episodes: eps}
		for _, c := range models.MoodCategories() {
			if s := scores[c]; s != 0 {
				week.Bars = append(week.Bars, models.MoodBar{Category: c, Score: s})
				mood.Total += s
			}
		}
		mood.Weeks = append(mood.Weeks, week)
	}
	return mood
}
