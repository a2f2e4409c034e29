package models

// MoodCategory groups episodes for the monthly mood chart.
type MoodCategory string

const (
	MoodFluid          MoodCategory = "fluid"
	MoodChallenge      MoodCategory = "challenge"
	MoodNeutral        MoodCategory = "neutral"
	MoodTransformative MoodCategory = "transformative"
)

// MoodCategories lists categories in chart order.
func MoodCategories() []MoodCategory {
	return []MoodCategory{MoodFluid, MoodChallenge, MoodNeutral, MoodTransformative}
}

// CategoryOf classifies an episode. Slow transiting bodies dominate the aspect tone.
func CategoryOf(e Episode) MoodCategory {
	if e.TransitingBody.IsSlow() {
		return MoodTransformative
	}
	switch e.Aspect.Tone() {
	case ToneHarmonious:
		return MoodFluid
	case ToneChallenging:
		return MoodChallenge
	default:
		return MoodNeutral
	}
}

type MoodBar struct {
	Category MoodCategory `json:"category"`
	Score    int          `json:"score"`
}

type WeekMood struct {
	Week     int       `json:"week"`
	Bars     []MoodBar `json:"bars"`
	Episodes []Episode `json:"episodes"`
}

type MonthMood struct {
	Month int        `json:"month"`
	Year  int        `json:"year"`
	Weeks []WeekMood `json:"weeks"`
	Total int        `json:"total"`
}
