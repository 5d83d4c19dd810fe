// Package rpb is the Resonance Profile Builder: it aggregates passive
// behavioral signals into a compact profile and a dense semantic vector.
package rpb

import (
	"github.com/resonatelabs/resonate/internal/models"
)

// Bio style buckets, coarser than the profile-level Style.
const (
	BioStyleMinimal    = "minimal"
	BioStyleModerate   = "moderate"
	BioStyleExpressive = "expressive"
)

// VoiceSignals comes from the most recent voice note analysis.
type VoiceSignals struct {
	WordCount          int
	VocabularyRichness float64 // [0,1]
	Sentiment          float64 // [-1,1]
	DominantEmotions   []string
	SpeakingPace       models.SpeakingPace
}

// BioSignals comes from the bio text and its edit history.
type BioSignals struct {
	WordCount    int
	EditCount    int
	DeletionRate float64
	Style        string // minimal|moderate|expressive
}

// MessagingSignals comes from the user's recent sent messages.
type MessagingSignals struct {
	AvgLength      float64 // characters
	QuestionRate   float64
	EmojiRate      float64 // emoji code points per message
	VocabDiversity float64
	MessageCount   int
}

// TypingSignals comes from paired typing start/stop events.
type TypingSignals struct {
	MeanBurstMS     float64
	CadenceVariance float64 // population std dev of burst durations
	BurstCount      int
}

// SessionSignals comes from app open/close events.
type SessionSignals struct {
	HourlyActivity []float64 // 24 slots normalized to [0,1]
	MeanSessionMS  float64
	SessionsPerDay float64
	OpenCount      int
}

// BrowsingSignals comes from profile and photo view events.
type BrowsingSignals struct {
	PhotoDwellRatio float64
	AvgDwellMS      float64
	BioReadRate     float64
	ViewsPerSession float64
	ProfileViews    int
}

// SignalBundle is the record-of-optionals all six aggregators feed. A nil
// field means the extractor had no data; every consumer must tolerate any
// combination of absences.
type SignalBundle struct {
	Voice     *VoiceSignals
	Bio       *BioSignals
	Messaging *MessagingSignals
	Typing    *TypingSignals
	Sessions  *SessionSignals
	Browsing  *BrowsingSignals
}

// Empty reports whether no extractor produced data.
func (b *SignalBundle) Empty() bool {
	return b.Voice == nil && b.Bio == nil && b.Messaging == nil &&
		b.Typing == nil && b.Sessions == nil && b.Browsing == nil
}

// Completeness weights, summing to 100.
const (
	weightVoice     = 25.0
	weightBio       = 15.0
	weightMessaging = 20.0
	weightTyping    = 10.0
	weightSessions  = 15.0
	weightBrowsing  = 15.0
)

// Completeness scores how much of the behavioral surface we observed, in
// [0,100]. Messaging scales with volume and sessions with active hours so a
// trickle of data does not masquerade as a full picture.
func (b *SignalBundle) Completeness() float64 {
	score := 0.0
	if b.Voice != nil {
		score += weightVoice
	}
	if b.Bio != nil {
		score += weightBio
	}
	if b.Messaging != nil {
		score += weightMessaging * minF(float64(b.Messaging.MessageCount)/50.0, 1.0)
	}
	if b.Typing != nil {
		score += weightTyping
	}
	if b.Sessions != nil {
		activeDays := 0
		for _, v := range b.Sessions.HourlyActivity {
			if v > 0.1 {
				activeDays++
			}
		}
		score += weightSessions * minF(float64(activeDays)/7.0, 1.0)
	}
	if b.Browsing != nil {
		score += weightBrowsing
	}
	return score
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
