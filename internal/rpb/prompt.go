package rpb

import (
	"fmt"
	"strings"

	"github.com/resonatelabs/resonate/internal/models"
)

// BuildEmbeddingPrompt renders the bundle into the deterministic paragraph
// sent to the embedding model. Wording is stable for a given bundle so
// repeated rebuilds of unchanged behavior produce the same vector.
func BuildEmbeddingPrompt(user *models.User, b *SignalBundle) string {
	var parts []string

	if b.Voice != nil {
		parts = append(parts, fmt.Sprintf("They speak at a %s pace.", b.Voice.SpeakingPace))
	}
	if b.Messaging != nil {
		shape := "short, punchy messages"
		switch {
		case b.Messaging.AvgLength > 80:
			shape = "long, considered messages"
		case b.Messaging.AvgLength > 40:
			shape = "medium-length messages"
		}
		parts = append(parts, fmt.Sprintf(
			"They write %s, asking questions in %.0f%% of them.",
			shape, b.Messaging.QuestionRate*100))
	}
	if b.Typing != nil {
		cadence := "a steady typing cadence"
		if b.Typing.CadenceVariance > 3000 {
			cadence = "a bursty, variable typing cadence"
		}
		parts = append(parts, fmt.Sprintf("They have %s.", cadence))
	}
	if b.Sessions != nil {
		parts = append(parts, fmt.Sprintf("They are most active in the %s.", peakBucket(b.Sessions.HourlyActivity)))
	}
	if b.Browsing != nil {
		pref := "reads bios carefully"
		if b.Browsing.PhotoDwellRatio > 2 {
			pref = "lingers on photos"
		}
		parts = append(parts, fmt.Sprintf("When browsing, this person %s.", pref))
	}
	if user.Bio != nil && strings.TrimSpace(*user.Bio) != "" {
		parts = append(parts, fmt.Sprintf("In their own words: %q", strings.TrimSpace(*user.Bio)))
	}

	if len(parts) == 0 {
		return "A new member with no recorded behavior yet."
	}
	return strings.Join(parts, " ")
}

// peakBucket maps the argmax hour to a coarse time-of-day label.
func peakBucket(activity []float64) string {
	peak, peakVal := 0, 0.0
	for h, v := range activity {
		if v > peakVal {
			peak, peakVal = h, v
		}
	}
	switch {
	case peak >= 5 && peak < 12:
		return "morning"
	case peak >= 12 && peak < 17:
		return "afternoon"
	case peak >= 17 && peak < 22:
		return "evening"
	default:
		return "late night"
	}
}
