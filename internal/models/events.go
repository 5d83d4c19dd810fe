package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a recognized behavioral event. Unknown types are stored
// verbatim and ignored by the aggregators.
type EventType string

const (
	EventVoiceNoteAnalyzed EventType = "voice_note_analyzed"
	EventBioEdited         EventType = "bio_edited"
	EventTypingStarted     EventType = "typing_started"
	EventTypingStopped     EventType = "typing_stopped"
	EventAppOpened         EventType = "app_opened"
	EventAppClosed         EventType = "app_closed"
	EventProfileViewed     EventType = "profile_viewed"
	EventPhotoViewed       EventType = "photo_viewed"
)

// BehavioralEvent is an immutable append-only record.
type BehavioralEvent struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	SessionID string          `json:"session_id" db:"session_id"`
	EventType string          `json:"event_type" db:"event_type"`
	EventData json.RawMessage `json:"event_data,omitempty" db:"event_data"`
	ClientTS  time.Time       `json:"client_ts" db:"client_ts"`
	ServerTS  time.Time       `json:"server_ts" db:"server_ts"`
}

// VoiceAnalysisPayload is the schema of voice_note_analyzed event data.
type VoiceAnalysisPayload struct {
	WordCount          int          `json:"wordCount"`
	VocabularyRichness float64      `json:"vocabularyRichness"` // [0,1]
	Sentiment          float64      `json:"sentiment"`          // [-1,1]
	DominantEmotions   []string     `json:"dominantEmotions"`
	SpeakingPace       SpeakingPace `json:"speakingPace"`
}

// ParseVoiceAnalysis validates and decodes a voice_note_analyzed payload.
func (e *BehavioralEvent) ParseVoiceAnalysis() (*VoiceAnalysisPayload, error) {
	if EventType(e.EventType) != EventVoiceNoteAnalyzed {
		return nil, fmt.Errorf("event %s is not a voice analysis: %w", e.EventType, ErrValidation)
	}
	var p VoiceAnalysisPayload
	if err := json.Unmarshal(e.EventData, &p); err != nil {
		return nil, fmt.Errorf("decode voice analysis payload: %w", err)
	}
	switch p.SpeakingPace {
	case PaceFast, PaceModerate, PaceSlow:
	case "":
		p.SpeakingPace = PaceModerate
	default:
		return nil, fmt.Errorf("unknown speaking pace %q: %w", p.SpeakingPace, ErrValidation)
	}
	return &p, nil
}

// KnownEventType reports whether the core recognizes the type.
func KnownEventType(t string) bool {
	switch EventType(t) {
	case EventVoiceNoteAnalyzed, EventBioEdited, EventTypingStarted, EventTypingStopped,
		EventAppOpened, EventAppClosed, EventProfileViewed, EventPhotoViewed:
		return true
	}
	return false
}

// Scheduler event names. Payloads are JSON objects.
const (
	TriggerVoiceNoteUploaded = "resonate/voice-note-uploaded" // {userId, audioUrl}
	TriggerAccountDeleted    = "resonate/account-deleted"     // {userId, email}
)
