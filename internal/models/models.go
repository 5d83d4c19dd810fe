// Package models holds the relational row types, enums and error kinds shared
// by the resonance core. Rows carry both json and db tags so they can move
// between the sqlx layer and cached payloads without translation.
package models

import (
	"errors"
	"time"
)

// Archetype is the high-level energy category classified from passive signals.
type Archetype string

const (
	ArchetypeSpark  Archetype = "spark"
	ArchetypeAnchor Archetype = "anchor"
	ArchetypeWave   Archetype = "wave"
	ArchetypeEmber  Archetype = "ember"
	ArchetypeStorm  Archetype = "storm"
)

// Archetypes lists all archetypes in classification iteration order. Tie
// breaking in the classifier depends on this order.
var Archetypes = []Archetype{ArchetypeSpark, ArchetypeAnchor, ArchetypeWave, ArchetypeEmber, ArchetypeStorm}

// ArchetypeColors is the fixed visualization palette.
var ArchetypeColors = map[Archetype]string{
	ArchetypeSpark:  "#FFD700",
	ArchetypeAnchor: "#4A90D9",
	ArchetypeWave:   "#4AF7C4",
	ArchetypeEmber:  "#FF6B35",
	ArchetypeStorm:  "#C77DFF",
}

// Style is the communication shape classified from messaging and bio signals.
type Style string

const (
	StyleExpressive Style = "expressive"
	StylePrecise    Style = "precise"
	StylePoetic     Style = "poetic"
	StyleMinimal    Style = "minimal"
	StyleWitty      Style = "witty"
)

// ConversationState tracks conversation vitality.
type ConversationState string

const (
	ConversationWarming ConversationState = "warming"
	ConversationActive  ConversationState = "active"
	ConversationCooling ConversationState = "cooling"
	ConversationDormant ConversationState = "dormant"
	ConversationRevived ConversationState = "revived"
)

// MatchState tracks the lifecycle of a pair.
type MatchState string

const (
	MatchPending             MatchState = "pending"
	MatchMatched             MatchState = "matched"
	MatchConversationStarted MatchState = "conversation_started"
	MatchDormant             MatchState = "dormant"
	MatchUnmatched           MatchState = "unmatched"
)

// SubscriptionTier gates soft-score boosts.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPlus    SubscriptionTier = "plus"
	TierPremium SubscriptionTier = "premium"
)

// SpeakingPace is the coarse voice-note pace bucket.
type SpeakingPace string

const (
	PaceFast     SpeakingPace = "fast"
	PaceModerate SpeakingPace = "moderate"
	PaceSlow     SpeakingPace = "slow"
)

// Error kinds. Repos and engines wrap these; services map them per surface.
var (
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream failure")
	ErrValidation = errors.New("validation failed")
)

// User is the identity row. Auth owns creation; the core only reads it and
// honors the soft-deletion marker.
type User struct {
	ID                  string           `json:"id" db:"id"`
	DisplayName         *string          `json:"display_name,omitempty" db:"display_name"`
	Bio                 *string          `json:"bio,omitempty" db:"bio"`
	Pronouns            *string          `json:"pronouns,omitempty" db:"pronouns"`
	City                *string          `json:"city,omitempty" db:"city"`
	Country             *string          `json:"country,omitempty" db:"country"`
	Latitude            *float64         `json:"latitude,omitempty" db:"latitude"`
	Longitude           *float64         `json:"longitude,omitempty" db:"longitude"`
	VoiceIntroURL       *string          `json:"voice_intro_url,omitempty" db:"voice_intro_url"`
	SubscriptionTier    SubscriptionTier `json:"subscription_tier" db:"subscription_tier"`
	OnboardingCompleted bool             `json:"onboarding_completed" db:"onboarding_completed"`
	LastActiveAt        time.Time        `json:"last_active_at" db:"last_active_at"`
	DeletedAt           *time.Time       `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
}

// ResonanceProfile is the compact behavioral profile, one row per user. The
// dense vector lives in the vector index keyed by user id; the row only
// records whether embedding succeeded.
type ResonanceProfile struct {
	UserID             string     `json:"user_id" db:"user_id"`
	Archetype          *Archetype `json:"archetype,omitempty" db:"archetype"`
	Style              *Style     `json:"style,omitempty" db:"style"`
	DominantEmotions   []string   `json:"dominant_emotions" db:"dominant_emotions"`
	PeakHours          []float64  `json:"peak_hours" db:"peak_hours"` // 24 slots in [0,1]
	VocabularyRichness float64    `json:"vocabulary_richness" db:"vocabulary_richness"`
	HumorScore         float64    `json:"humor_score" db:"humor_score"`
	DepthScore         float64    `json:"depth_score" db:"depth_score"`
	Completeness       float64    `json:"completeness" db:"completeness"` // [0,100]
	EmbeddingGenerated bool       `json:"embedding_generated" db:"embedding_generated"`
	ModelVersion       string     `json:"model_version" db:"model_version"`
	RecalculatedAt     time.Time  `json:"recalculated_at" db:"recalculated_at"`
}

// Message is a conversation message row. Content arrives encrypted; sentiment
// and emotion are pre-computed upstream when present.
type Message struct {
	ID             string     `json:"id" db:"id"`
	ConversationID string     `json:"conversation_id" db:"conversation_id"`
	SenderID       *string    `json:"sender_id,omitempty" db:"sender_id"`
	Content        string     `json:"content" db:"content"`
	ContentType    string     `json:"content_type" db:"content_type"`
	Sentiment      *float64   `json:"sentiment,omitempty" db:"sentiment"` // [-1,1]
	EmotionTag     *string    `json:"emotion_tag,omitempty" db:"emotion_tag"`
	SentAt         time.Time  `json:"sent_at" db:"sent_at"`
	ReadAt         *time.Time `json:"read_at,omitempty" db:"read_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Conversation holds health state for one match. At most one pending nudge.
type Conversation struct {
	ID                string            `json:"id" db:"id"`
	MatchID           string            `json:"match_id" db:"match_id"`
	LastMessageAt     *time.Time        `json:"last_message_at,omitempty" db:"last_message_at"`
	HealthState       ConversationState `json:"health_state" db:"health_state"`
	PendingNudge      *string           `json:"pending_nudge,omitempty" db:"pending_nudge"`
	NudgeGeneratedAt  *time.Time        `json:"nudge_generated_at,omitempty" db:"nudge_generated_at"`
	ArchivedByA       bool              `json:"archived_by_a" db:"archived_by_a"`
	ArchivedByB       bool              `json:"archived_by_b" db:"archived_by_b"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
}

// Match is a canonical-ordered pair row: UserAID < UserBID always.
type Match struct {
	ID                    string     `json:"id" db:"id"`
	UserAID               string     `json:"user_a_id" db:"user_a_id"`
	UserBID               string     `json:"user_b_id" db:"user_b_id"`
	ResonanceScore        *int       `json:"resonance_score,omitempty" db:"resonance_score"`
	WaveformData          []byte     `json:"waveform_data,omitempty" db:"waveform_data"` // JSON payload snapshot
	State                 MatchState `json:"state" db:"state"`
	LikedByAAt            *time.Time `json:"liked_by_a_at,omitempty" db:"liked_by_a_at"`
	LikedByBAt            *time.Time `json:"liked_by_b_at,omitempty" db:"liked_by_b_at"`
	MatchedAt             *time.Time `json:"matched_at,omitempty" db:"matched_at"`
	ConversationStartedAt *time.Time `json:"conversation_started_at,omitempty" db:"conversation_started_at"`
	UnmatchedByID         *string    `json:"unmatched_by_id,omitempty" db:"unmatched_by_id"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
}

// CanonicalPair returns the two ids in sorted order.
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// BlockReport is a block or report record. Blocks are unique per ordered pair.
type BlockReport struct {
	ID         string    `json:"id" db:"id"`
	ReporterID string    `json:"reporter_id" db:"reporter_id"`
	ReportedID string    `json:"reported_id" db:"reported_id"`
	Type       string    `json:"type" db:"type"` // block|report
	Reason     *string   `json:"reason,omitempty" db:"reason"`
	Details    *string   `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// VectorMetadata is the filterable payload stored beside each dense vector.
type VectorMetadata struct {
	UserID           string `json:"userId"`
	Archetype        string `json:"archetype,omitempty"`
	Style            string `json:"style,omitempty"`
	City             string `json:"city,omitempty"`
	SubscriptionTier string `json:"subscriptionTier,omitempty"`
	LastActive       string `json:"lastActive,omitempty"` // ISO 8601
	AgeRange         string `json:"ageRange,omitempty"`
}
