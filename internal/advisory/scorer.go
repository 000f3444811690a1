package advisory

import "strings"

// Rule maps an advisory phrase to a risk score.
type Rule struct {
	Phrase string
	Score  float64
}

// Rules are checked in order and the first phrase found wins.
// No rule produces 2.
var Rules = []Rule{
	{Phrase: "avoid all travel", Score: 5},
	{Phrase: "avoid non-essential travel", Score: 4},
	{Phrase: "high degree of caution", Score: 3},
	{Phrase: "normal security precautions", Score: 1},
}

// Score returns the risk score for normalized advisory text, 0 when no rule matches.
func Score(text string) float64 {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	for _, r := range Rules {
		if strings.Contains(lower, r.Phrase) {
			return r.Score
		}
	}
	return 0
}

// Risk level labels shown next to a score.
const (
	LevelUnknown  = "Unknown"
	LevelLow      = "Low"
	LevelElevated = "Elevated"
	LevelHigh     = "High"
	LevelExtreme  = "Extreme"
)

// LevelFor labels a score for display. It is never stored with the result.
func LevelFor(score float64) string {
	switch {
	case score >= 5:
		return LevelExtreme
	case score >= 4:
		return LevelHigh
	case score >= 3:
		return LevelElevated
	case score >= 1:
		return LevelLow
	default:
		return LevelUnknown
	}
}
