package health

import (
	"math"

	"github.com/resonatelabs/resonate/internal/models"
)

// Overall health weights.
const (
	healthWeightLatency    = 25
	healthWeightLength     = 20
	healthWeightSentiment  = 20
	healthWeightInitiative = 20
	healthWeightDiversity  = 15
)

// overallHealth folds the five signals into a [0,100] score. Trend signals
// are shifted from [-1,1] into [0,1] first.
func overallHealth(s Signals) int {
	score := ((s.Latency+1)/2)*healthWeightLatency +
		((s.Length+1)/2)*healthWeightLength +
		((s.Sentiment+1)/2)*healthWeightSentiment +
		s.Initiative*healthWeightInitiative +
		s.Diversity*healthWeightDiversity
	return int(math.Round(score))
}

func negativeCount(s Signals) int {
	n := 0
	if s.Latency < -0.3 {
		n++
	}
	if s.Length < -0.3 {
		n++
	}
	if s.Sentiment < -0.2 {
		n++
	}
	if s.Initiative < 0.3 {
		n++
	}
	if s.Diversity < 0.3 {
		n++
	}
	return n
}

func positiveCount(s Signals) int {
	n := 0
	if s.Latency > 0.2 {
		n++
	}
	if s.Length > 0 {
		n++
	}
	if s.Sentiment > 0 {
		n++
	}
	if s.Initiative > 0.5 {
		n++
	}
	if s.Diversity > 0.5 {
		n++
	}
	return n
}

// nextState advances the vitality state machine. Dormancy and revival depend
// only on message recency; otherwise signal counts decide.
func nextState(prev models.ConversationState, daysSinceLastMessage float64, s Signals) models.ConversationState {
	switch {
	case daysSinceLastMessage >= 3:
		return models.ConversationDormant
	case prev == models.ConversationDormant && daysSinceLastMessage < 1:
		return models.ConversationRevived
	}

	if negativeCount(s) >= 2 {
		return models.ConversationCooling
	}
	pos := positiveCount(s)
	if pos >= 3 {
		return models.ConversationActive
	}
	if prev == models.ConversationWarming {
		if pos >= 2 {
			return models.ConversationActive
		}
		return models.ConversationWarming
	}
	return prev
}
