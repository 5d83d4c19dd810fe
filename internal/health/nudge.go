package health

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/resonatelabs/resonate/internal/models"
)

// nudgeSystemPrompt is fixed; the completion provider receives it verbatim.
const nudgeSystemPrompt = "You are a conversation catalyst for a dating app. " +
	"Your job is to generate ONE specific, curious question that could naturally restart a cooling conversation. " +
	"Rules: Under 25 words; Must be a question (end with ?); Reference ONE of the provided interest tags if possible; " +
	"Never generic; Never guilt-trippy; Should spark genuine curiosity; Match the energy of the archetype provided."

const (
	quietPartyWindow   = 10
	nudgeContextWindow = 3
)

// quietParty returns whichever participant sent fewer of the last ten
// messages, userA on a tie. Messages arrive newest first.
func quietParty(msgs []models.Message, userA, userB string) string {
	counts := map[string]int{}
	for _, m := range window(msgs, quietPartyWindow) {
		if id := senderOf(m); id != "" {
			counts[id]++
		}
	}
	if counts[userB] < counts[userA] {
		return userB
	}
	return userA
}

// generateNudge asks the completion provider for one restart question aimed
// at the quiet party.
func (m *Monitor) generateNudge(ctx context.Context, quietID, otherID string, msgs []models.Message) (string, error) {
	quietProf, err := m.repo.Profiles.Get(ctx, quietID)
	if err != nil {
		return "", fmt.Errorf("quiet party profile: %w", err)
	}
	otherProf, err := m.repo.Profiles.Get(ctx, otherID)
	if err != nil {
		return "", fmt.Errorf("other party profile: %w", err)
	}

	text, usage, err := m.completer.Complete(ctx, nudgeSystemPrompt, nudgeUserPrompt(quietProf, otherProf, msgs))
	if err != nil {
		return "", err
	}
	log.Debug().
		Str("user_id", quietID).
		Int("completion_tokens", usage.CompletionTokens).
		Float64("cost_usd", usage.CostUSD).
		Msg("nudge generated")
	return strings.TrimSpace(text), nil
}

// nudgeUserPrompt packs both parties' resonance context and the last few
// messages into a structured prompt.
func nudgeUserPrompt(quiet, other *models.ResonanceProfile, msgs []models.Message) string {
	var b strings.Builder
	b.WriteString("Quiet participant:\n")
	writeProfileContext(&b, quiet)
	b.WriteString("Other participant:\n")
	writeProfileContext(&b, other)

	b.WriteString("Recent messages, newest first:\n")
	for _, m := range window(msgs, nudgeContextWindow) {
		fmt.Fprintf(&b, "- %s\n", m.Content)
	}
	b.WriteString("Generate the question for the quiet participant.")
	return b.String()
}

func writeProfileContext(b *strings.Builder, p *models.ResonanceProfile) {
	arch, style := "unknown", "unknown"
	if p.Archetype != nil {
		arch = string(*p.Archetype)
	}
	if p.Style != nil {
		style = string(*p.Style)
	}
	fmt.Fprintf(b, "  archetype: %s\n  style: %s\n", arch, style)
	if len(p.DominantEmotions) > 0 {
		fmt.Fprintf(b, "  interest tags: %s\n", strings.Join(p.DominantEmotions, ", "))
	}
}
