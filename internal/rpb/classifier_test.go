package rpb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resonatelabs/resonate/internal/models"
)

func TestColdStartClassification(t *testing.T) {
	// New user: short bio, fast-paced voice note, no messages yet.
	bundle := &SignalBundle{
		Voice: &VoiceSignals{
			WordCount:          42,
			VocabularyRichness: 1.0,
			Sentiment:          0.2,
			SpeakingPace:       models.PaceFast,
		},
		Bio: &BioSignals{WordCount: 4, Style: BioStyleMinimal},
	}

	cls := Classify(bundle)
	assert.Equal(t, models.ArchetypeSpark, cls.Archetype)
	assert.Equal(t, models.StyleMinimal, cls.Style)
	assert.InDelta(t, 0.5, cls.DepthScore, 1e-9)
	assert.InDelta(t, 40.0, bundle.Completeness(), 1e-9)
}

func TestArchetypeDefaultsToWaveWithNoSignals(t *testing.T) {
	cls := Classify(&SignalBundle{})
	assert.Equal(t, models.ArchetypeWave, cls.Archetype)
	assert.Equal(t, models.StyleExpressive, cls.Style)
	assert.Equal(t, 0.5, cls.DepthScore)
	assert.Empty(t, cls.DominantEmotions)
}

func TestArchetypeTieBreaksByOrder(t *testing.T) {
	// Voice at moderate pace gives wave 0.2; a 45-word bio gives anchor 0.1.
	// Wave wins outright; with no wave indicator the order decides.
	bundle := &SignalBundle{
		Voice: &VoiceSignals{SpeakingPace: models.PaceModerate},
	}
	assert.Equal(t, models.ArchetypeWave, classifyArchetype(bundle))

	// Equal 0.2 for spark (fast pace) never loses to a later archetype.
	bundle = &SignalBundle{
		Voice:    &VoiceSignals{SpeakingPace: models.PaceFast},
		Sessions: &SessionSignals{HourlyActivity: make([]float64, 24), MeanSessionMS: 700000},
	}
	// spark 0.3 (fast) vs anchor 0.2 (long sessions): spark wins.
	assert.Equal(t, models.ArchetypeSpark, classifyArchetype(bundle))
}

func TestStyleCascade(t *testing.T) {
	tests := []struct {
		name   string
		bundle SignalBundle
		want   models.Style
	}{
		{
			name: "precise_on_diverse_terse_prose",
			bundle: SignalBundle{Messaging: &MessagingSignals{
				AvgLength: 55, VocabDiversity: 0.65, EmojiRate: 0.1, MessageCount: 30,
			}},
			want: models.StylePrecise,
		},
		{
			name: "poetic_needs_voice_richness",
			bundle: SignalBundle{
				Messaging: &MessagingSignals{AvgLength: 70, VocabDiversity: 0.75, EmojiRate: 0.25},
				Voice:     &VoiceSignals{VocabularyRichness: 0.8},
			},
			want: models.StylePoetic,
		},
		{
			name: "witty_on_questions_and_emoji",
			bundle: SignalBundle{Messaging: &MessagingSignals{
				AvgLength: 35, QuestionRate: 0.4, EmojiRate: 0.4,
			}},
			want: models.StyleWitty,
		},
		{
			name: "expressive_fallback",
			bundle: SignalBundle{Messaging: &MessagingSignals{
				AvgLength: 50, QuestionRate: 0.1, EmojiRate: 0.25, VocabDiversity: 0.4,
			}},
			want: models.StyleExpressive,
		},
		{
			name: "minimal_needs_minimal_bio",
			bundle: SignalBundle{
				Messaging: &MessagingSignals{AvgLength: 20},
				Bio:       &BioSignals{WordCount: 10, Style: BioStyleMinimal},
			},
			want: models.StyleMinimal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStyle(&tt.bundle))
		})
	}
}

func TestDepthScoreContributions(t *testing.T) {
	// Messaging-only: min(80/100,1)*0.4 + 0.5*0.3 + 0.6*0.3 = 0.65
	b := &SignalBundle{Messaging: &MessagingSignals{AvgLength: 80, QuestionRate: 0.5, VocabDiversity: 0.6}}
	assert.InDelta(t, 0.65, depthScore(b), 1e-9)

	// Adding browsing averages in 0.6*0.5 = 0.3: (0.65+0.3)/2
	b.Browsing = &BrowsingSignals{BioReadRate: 0.6}
	assert.InDelta(t, 0.475, depthScore(b), 1e-9)
}

func TestCompletenessScaling(t *testing.T) {
	activity := make([]float64, 24)
	for i := 0; i < 14; i++ {
		activity[i] = 0.5
	}
	b := &SignalBundle{
		Messaging: &MessagingSignals{MessageCount: 25}, // 20 * 0.5
		Sessions:  &SessionSignals{HourlyActivity: activity}, // 14 active slots caps at 15
		Typing:    &TypingSignals{BurstCount: 6},
	}
	assert.InDelta(t, 10.0+15.0+10.0, b.Completeness(), 1e-9)
}
