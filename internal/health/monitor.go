package health

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/infrastructure/llm"
	"github.com/resonatelabs/resonate/internal/metrics"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

const messageFetchLimit = 100

// Outcome is the result of analyzing one conversation.
type Outcome struct {
	ConversationID string                   `json:"conversation_id"`
	State          models.ConversationState `json:"state"`
	Health         int                      `json:"health"`
	Signals        Signals                  `json:"signals"`
	Nudge          *string                  `json:"nudge,omitempty"`
}

// Summary aggregates one sweep.
type Summary struct {
	Total           int `json:"total"`
	Healthy         int `json:"healthy"`
	Cooling         int `json:"cooling"`
	Dormant         int `json:"dormant"`
	NudgesGenerated int `json:"nudges_generated"`
	Failed          int `json:"failed"`
}

// Monitor analyzes conversation vitality and persists transitions.
type Monitor struct {
	repo      *persistence.Repository
	completer llm.Completer
	cfg       config.HealthConfig
	now       func() time.Time
}

// NewMonitor wires a Monitor.
func NewMonitor(repo *persistence.Repository, completer llm.Completer, cfg config.HealthConfig) *Monitor {
	return &Monitor{repo: repo, completer: completer, cfg: cfg, now: time.Now}
}

// Analyze recomputes one conversation's signals and state, generating a nudge
// on a transition into cooling. Completion failures are non-fatal: the state
// still persists with no nudge.
func (m *Monitor) Analyze(ctx context.Context, conversationID string) (*Outcome, error) {
	conv, err := m.repo.Conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := m.repo.Messages.ListByConversation(ctx, conversationID, messageFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	signals := computeSignals(msgs)

	lastAt := conv.CreatedAt
	if conv.LastMessageAt != nil {
		lastAt = *conv.LastMessageAt
	}
	days := m.now().UTC().Sub(lastAt.UTC()).Hours() / 24
	state := nextState(conv.HealthState, days, signals)

	outcome := &Outcome{
		ConversationID: conversationID,
		State:          state,
		Health:         overallHealth(signals),
		Signals:        signals,
	}

	var nudge *string
	var nudgeAt *time.Time
	if state == models.ConversationCooling && conv.HealthState != models.ConversationCooling {
		userA, userB, perr := m.repo.Conversations.Participants(ctx, conversationID)
		if perr != nil {
			return nil, perr
		}
		quiet := quietParty(msgs, userA, userB)
		other := userA
		if quiet == userA {
			other = userB
		}
		text, nerr := m.generateNudge(ctx, quiet, other, msgs)
		if nerr != nil {
			log.Warn().Err(nerr).Str("conversation_id", conversationID).
				Msg("nudge generation failed, persisting transition without one")
		} else {
			at := m.now().UTC()
			nudge, nudgeAt = &text, &at
		}
	}

	if state != conv.HealthState {
		if err := m.repo.Conversations.UpdateHealth(ctx, conversationID, state, nudge, nudgeAt); err != nil {
			return nil, fmt.Errorf("persist health state: %w", err)
		}
		metrics.HealthTransitions.WithLabelValues(string(state)).Inc()
	}
	outcome.Nudge = nudge
	return outcome, nil
}

// Sweep analyzes every conversation active within the sweep window, serially.
// Per-conversation failures are logged and counted, never fatal.
func (m *Monitor) Sweep(ctx context.Context) (*Summary, error) {
	cutoff := m.now().UTC().AddDate(0, 0, -m.cfg.SweepWindowDays)
	convs, err := m.repo.Conversations.ListActiveSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list active conversations: %w", err)
	}

	summary := &Summary{Total: len(convs)}
	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := m.Analyze(ctx, conv.ID)
		if err != nil {
			summary.Failed++
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("conversation analysis failed, skipping")
			continue
		}
		switch outcome.State {
		case models.ConversationCooling:
			summary.Cooling++
		case models.ConversationDormant:
			summary.Dormant++
		default:
			summary.Healthy++
		}
		if outcome.Nudge != nil {
			summary.NudgesGenerated++
		}
	}

	log.Info().
		Int("total", summary.Total).
		Int("healthy", summary.Healthy).
		Int("cooling", summary.Cooling).
		Int("dormant", summary.Dormant).
		Int("nudges", summary.NudgesGenerated).
		Int("failed", summary.Failed).
		Msg("conversation health sweep complete")
	return summary, nil
}
