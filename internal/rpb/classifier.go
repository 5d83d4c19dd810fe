package rpb

import (
	"github.com/resonatelabs/resonate/internal/models"
)

// Classification is the derived profile shape before embedding.
type Classification struct {
	Archetype        models.Archetype
	Style            models.Style
	DominantEmotions []string
	DepthScore       float64
	HumorScore       float64
	VocabRichness    float64
}

// Classify derives archetype, style and the scalar scores from the bundle.
func Classify(b *SignalBundle) Classification {
	return Classification{
		Archetype:        classifyArchetype(b),
		Style:            classifyStyle(b),
		DominantEmotions: dominantEmotions(b),
		DepthScore:       depthScore(b),
		HumorScore:       humorScore(b),
		VocabRichness:    vocabRichness(b),
	}
}

// classifyArchetype accumulates indicator scores per archetype and takes the
// maximum, ties resolved by iteration order. With no signals at all the user
// defaults to wave.
func classifyArchetype(b *SignalBundle) models.Archetype {
	if b.Empty() {
		return models.ArchetypeWave
	}

	scores := map[models.Archetype]float64{}

	// spark: quick, emoji-heavy, rapid-fire behavior.
	if b.Voice != nil && b.Voice.SpeakingPace == models.PaceFast {
		scores[models.ArchetypeSpark] += 0.3
	}
	if b.Messaging != nil && b.Messaging.EmojiRate > 0.5 {
		scores[models.ArchetypeSpark] += 0.2
	}
	if b.Typing != nil && b.Typing.MeanBurstMS > 0 && b.Typing.MeanBurstMS < 2000 {
		scores[models.ArchetypeSpark] += 0.2
	}
	if b.Sessions != nil && b.Sessions.SessionsPerDay > 5 {
		scores[models.ArchetypeSpark] += 0.2
	}
	if b.Browsing != nil && b.Browsing.ViewsPerSession > 10 {
		scores[models.ArchetypeSpark] += 0.1
	}

	// anchor: deliberate, long-form, steady sessions.
	if b.Voice != nil && b.Voice.SpeakingPace == models.PaceSlow {
		scores[models.ArchetypeAnchor] += 0.2
	}
	if b.Messaging != nil && b.Messaging.AvgLength > 80 {
		scores[models.ArchetypeAnchor] += 0.3
	}
	if b.Typing != nil && b.Typing.CadenceVariance > 0 && b.Typing.CadenceVariance < 1000 {
		scores[models.ArchetypeAnchor] += 0.2
	}
	if b.Sessions != nil && b.Sessions.MeanSessionMS > 600000 {
		scores[models.ArchetypeAnchor] += 0.2
	}
	if b.Bio != nil && b.Bio.WordCount > 40 {
		scores[models.ArchetypeAnchor] += 0.1
	}

	// wave: curious, even-keeled, reads deeply.
	if b.Voice != nil && b.Voice.SpeakingPace == models.PaceModerate {
		scores[models.ArchetypeWave] += 0.2
	}
	if b.Messaging != nil && b.Messaging.QuestionRate > 0.25 {
		scores[models.ArchetypeWave] += 0.3
	}
	if b.Voice != nil && b.Voice.Sentiment > 0.3 {
		scores[models.ArchetypeWave] += 0.2
	}
	if b.Sessions != nil && activeSlots(b.Sessions.HourlyActivity) > 12 {
		scores[models.ArchetypeWave] += 0.2
	}
	if b.Browsing != nil && b.Browsing.BioReadRate > 0.5 {
		scores[models.ArchetypeWave] += 0.1
	}

	// ember: warm, expressive, evening-weighted.
	if b.Voice != nil && b.Voice.Sentiment > 0.5 {
		scores[models.ArchetypeEmber] += 0.3
	}
	if b.Messaging != nil && b.Messaging.EmojiRate > 0.2 && b.Messaging.EmojiRate <= 0.5 {
		scores[models.ArchetypeEmber] += 0.2
	}
	if b.Messaging != nil && b.Messaging.AvgLength >= 40 && b.Messaging.AvgLength <= 80 {
		scores[models.ArchetypeEmber] += 0.2
	}
	if b.Sessions != nil && eveningPeaked(b.Sessions.HourlyActivity) {
		scores[models.ArchetypeEmber] += 0.2
	}
	if b.Bio != nil && b.Bio.Style == BioStyleExpressive {
		scores[models.ArchetypeEmber] += 0.1
	}

	// storm: volatile cadence, wide vocabulary, bursty presence.
	if b.Typing != nil && b.Typing.CadenceVariance > 3000 {
		scores[models.ArchetypeStorm] += 0.3
	}
	if b.Messaging != nil && b.Messaging.VocabDiversity > 0.7 {
		scores[models.ArchetypeStorm] += 0.2
	}
	if b.Sessions != nil && activeSlots(b.Sessions.HourlyActivity) < 5 {
		scores[models.ArchetypeStorm] += 0.2
	}
	if b.Voice != nil && len(b.Voice.DominantEmotions) >= 3 {
		scores[models.ArchetypeStorm] += 0.2
	}
	if b.Browsing != nil && b.Browsing.PhotoDwellRatio > 3 {
		scores[models.ArchetypeStorm] += 0.1
	}

	best := models.ArchetypeWave
	bestScore := -1.0
	for _, a := range models.Archetypes {
		if scores[a] > bestScore {
			best, bestScore = a, scores[a]
		}
	}
	return best
}

// classifyStyle is a decision cascade over messaging and bio signals. Missing
// messaging contributes zero values, so a terse bio alone can still land on
// minimal.
func classifyStyle(b *SignalBundle) models.Style {
	if b.Messaging == nil && b.Bio == nil {
		return models.StyleExpressive
	}

	var avgLen, questionRate, emojiRate, vocabDiv float64
	if b.Messaging != nil {
		avgLen = b.Messaging.AvgLength
		questionRate = b.Messaging.QuestionRate
		emojiRate = b.Messaging.EmojiRate
		vocabDiv = b.Messaging.VocabDiversity
	}

	switch {
	case avgLen < 30 && b.Bio != nil && b.Bio.Style == BioStyleMinimal:
		return models.StyleMinimal
	case vocabDiv > 0.6 && emojiRate < 0.2 && avgLen > 40:
		return models.StylePrecise
	case vocabDiv > 0.7 && avgLen > 60 && b.Voice != nil && b.Voice.VocabularyRichness > 0.7:
		return models.StylePoetic
	case questionRate > 0.3 && emojiRate > 0.3:
		return models.StyleWitty
	default:
		return models.StyleExpressive
	}
}

func dominantEmotions(b *SignalBundle) []string {
	if b.Voice != nil && len(b.Voice.DominantEmotions) > 0 {
		return b.Voice.DominantEmotions
	}
	return []string{}
}

// depthScore averages up to three modality contributions; 0.5 with none.
func depthScore(b *SignalBundle) float64 {
	var contributions []float64
	if b.Messaging != nil {
		m := b.Messaging
		contributions = append(contributions,
			minF(m.AvgLength/100.0, 1.0)*0.4+m.QuestionRate*0.3+m.VocabDiversity*0.3)
	}
	if b.Voice != nil {
		contributions = append(contributions, b.Voice.VocabularyRichness*0.5)
	}
	if b.Browsing != nil {
		contributions = append(contributions, b.Browsing.BioReadRate*0.5)
	}
	if len(contributions) == 0 {
		return 0.5
	}
	total := 0.0
	for _, c := range contributions {
		total += c
	}
	return total / float64(len(contributions))
}

// humorScore leans on emoji and question play in messaging, with voice
// sentiment as a weak fallback.
func humorScore(b *SignalBundle) float64 {
	if b.Messaging != nil {
		return minF(b.Messaging.EmojiRate*0.8+b.Messaging.QuestionRate*0.3, 1.0)
	}
	if b.Voice != nil && b.Voice.Sentiment > 0.5 {
		return 0.5
	}
	return 0.3
}

func vocabRichness(b *SignalBundle) float64 {
	richness := 0.0
	if b.Voice != nil && b.Voice.VocabularyRichness > richness {
		richness = b.Voice.VocabularyRichness
	}
	if b.Messaging != nil && b.Messaging.VocabDiversity > richness {
		richness = b.Messaging.VocabDiversity
	}
	return richness
}

func activeSlots(activity []float64) int {
	n := 0
	for _, v := range activity {
		if v > 0.1 {
			n++
		}
	}
	return n
}

// eveningPeaked reports whether the busiest slot falls between 18:00 and 23:00.
func eveningPeaked(activity []float64) bool {
	if len(activity) != 24 {
		return false
	}
	peak, peakVal := 0, 0.0
	for h, v := range activity {
		if v > peakVal {
			peak, peakVal = h, v
		}
	}
	return peakVal > 0 && peak >= 18 && peak <= 23
}
