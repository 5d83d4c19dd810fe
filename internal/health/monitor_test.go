package health

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/infrastructure/llm"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

type healthUpdate struct {
	conversationID string
	state          models.ConversationState
	nudge          *string
	nudgeAt        *time.Time
}

type fakeConversations struct {
	convs   map[string]*models.Conversation
	parts   map[string][2]string
	updates []healthUpdate
}

func (f *fakeConversations) Get(ctx context.Context, id string) (*models.Conversation, error) {
	c, ok := f.convs[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
	}
	return c, nil
}

func (f *fakeConversations) ListActiveSince(ctx context.Context, cutoff time.Time) ([]models.Conversation, error) {
	var out []models.Conversation
	for _, c := range f.convs {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeConversations) UpdateHealth(ctx context.Context, id string, state models.ConversationState, nudge *string, nudgeAt *time.Time) error {
	f.updates = append(f.updates, healthUpdate{id, state, nudge, nudgeAt})
	return nil
}

func (f *fakeConversations) Participants(ctx context.Context, id string) (string, string, error) {
	p, ok := f.parts[id]
	if !ok {
		return "", "", fmt.Errorf("participants of %s: %w", id, models.ErrNotFound)
	}
	return p[0], p[1], nil
}

type fakeMessages struct {
	byConv map[string][]models.Message
	err    error
}

func (f *fakeMessages) ListBySender(ctx context.Context, senderID string, limit int) ([]models.Message, error) {
	return nil, nil
}

func (f *fakeMessages) ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	msgs := f.byConv[conversationID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

type fakeProfiles map[string]*models.ResonanceProfile

func (f fakeProfiles) Get(ctx context.Context, id string) (*models.ResonanceProfile, error) {
	p, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, models.ErrNotFound)
	}
	return p, nil
}

func (f fakeProfiles) GetBatch(ctx context.Context, ids []string) (map[string]*models.ResonanceProfile, error) {
	return nil, nil
}
func (f fakeProfiles) Upsert(ctx context.Context, p *models.ResonanceProfile) error { return nil }
func (f fakeProfiles) Delete(ctx context.Context, id string) error                  { return nil }

type fakeCompleter struct {
	text       string
	err        error
	systemSeen string
	userSeen   string
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, llm.Usage, error) {
	f.systemSeen = systemPrompt
	f.userSeen = userPrompt
	if f.err != nil {
		return "", llm.Usage{}, f.err
	}
	return f.text, llm.Usage{CompletionTokens: 12}, nil
}

func emberProfile(id string, tags ...string) *models.ResonanceProfile {
	arch := models.ArchetypeEmber
	style := models.StylePrecise
	return &models.ResonanceProfile{UserID: id, Archetype: &arch, Style: &style, DominantEmotions: tags}
}

// coolingMessages builds twenty alternating messages whose response latency
// doubled and whose lengths halved in the recent half.
func coolingMessages(end time.Time) []models.Message {
	var specs []msgSpec
	long := "a long reflective message with plenty of substance in it"
	for i := 0; i < 20; i++ {
		sender := "a"
		if i%2 == 1 {
			sender = "b"
		}
		gap := 20 * time.Minute
		content := long
		if i >= 10 {
			gap = 40 * time.Minute
			content = "ok"
		}
		specs = append(specs, msgSpec{sender: sender, content: content, gapAfter: gap})
	}
	return buildMessages(end, specs)
}

// steadyMessages is a short fresh exchange with no negative momentum.
func steadyMessages(end time.Time) []models.Message {
	return buildMessages(end, []msgSpec{
		{sender: "a", content: "coffee later this week maybe", gapAfter: 10 * time.Minute},
		{sender: "b", content: "definitely, thursday works well", gapAfter: 5 * time.Minute},
		{sender: "a", content: "thursday it is then"},
	})
}

type monitorFixture struct {
	monitor   *Monitor
	convs     *fakeConversations
	completer *fakeCompleter
}

func newMonitorFixture(now time.Time) *monitorFixture {
	convs := &fakeConversations{
		convs: map[string]*models.Conversation{},
		parts: map[string][2]string{},
	}
	completer := &fakeCompleter{text: "Your ember side would love this: what dish would you ferment first?"}
	repo := &persistence.Repository{
		Conversations: convs,
		Messages:      &fakeMessages{byConv: map[string][]models.Message{}},
		Profiles: fakeProfiles{
			"a": emberProfile("a", "fermentation", "hiking"),
			"b": emberProfile("b", "jazz"),
		},
	}
	m := NewMonitor(repo, completer, config.HealthConfig{SweepWindowDays: 7, SweepRetries: 2})
	m.now = func() time.Time { return now }
	return &monitorFixture{monitor: m, convs: convs, completer: completer}
}

func (f *monitorFixture) addConversation(id string, state models.ConversationState, msgs []models.Message) {
	var lastAt *time.Time
	if len(msgs) > 0 {
		t := msgs[0].SentAt
		lastAt = &t
	}
	f.convs.convs[id] = &models.Conversation{
		ID:            id,
		HealthState:   state,
		LastMessageAt: lastAt,
		CreatedAt:     f.monitor.now().Add(-30 * 24 * time.Hour),
	}
	f.convs.parts[id] = [2]string{"a", "b"}
	f.monitor.repo.Messages.(*fakeMessages).byConv[id] = msgs
}

func TestAnalyzeStaleConversationGoesDormant(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)
	f.addConversation("c1", models.ConversationActive, coolingMessages(now.Add(-4*24*time.Hour)))

	outcome, err := f.monitor.Analyze(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationDormant, outcome.State)
	assert.Nil(t, outcome.Nudge, "dormancy never nudges")

	require.Len(t, f.convs.updates, 1)
	assert.Equal(t, models.ConversationDormant, f.convs.updates[0].state)
	assert.Nil(t, f.convs.updates[0].nudge)
	assert.Empty(t, f.completer.systemSeen, "completer must not be called")
}

func TestAnalyzeCoolingGeneratesNudge(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)
	f.addConversation("c1", models.ConversationActive, coolingMessages(now.Add(-2*time.Hour)))

	outcome, err := f.monitor.Analyze(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationCooling, outcome.State)
	require.NotNil(t, outcome.Nudge)
	assert.Equal(t, f.completer.text, *outcome.Nudge)

	require.Len(t, f.convs.updates, 1)
	up := f.convs.updates[0]
	assert.Equal(t, models.ConversationCooling, up.state)
	require.NotNil(t, up.nudge)
	require.NotNil(t, up.nudgeAt)

	assert.Contains(t, f.completer.systemSeen, "conversation catalyst")
	assert.Contains(t, f.completer.userSeen, "ember")
	assert.Contains(t, f.completer.userSeen, "fermentation")
}

func TestAnalyzeAlreadyCoolingDoesNotReNudge(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)
	f.addConversation("c1", models.ConversationCooling, coolingMessages(now.Add(-2*time.Hour)))

	outcome, err := f.monitor.Analyze(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationCooling, outcome.State)
	assert.Nil(t, outcome.Nudge)
	assert.Empty(t, f.convs.updates, "unchanged state writes nothing")
}

func TestAnalyzeCompleterFailureStillPersists(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)
	f.completer.err = errors.New("completion provider down")
	f.addConversation("c1", models.ConversationActive, coolingMessages(now.Add(-2*time.Hour)))

	outcome, err := f.monitor.Analyze(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.ConversationCooling, outcome.State)
	assert.Nil(t, outcome.Nudge)

	require.Len(t, f.convs.updates, 1)
	assert.Equal(t, models.ConversationCooling, f.convs.updates[0].state)
	assert.Nil(t, f.convs.updates[0].nudge)
}

func TestAnalyzeUnknownConversation(t *testing.T) {
	f := newMonitorFixture(time.Now().UTC())
	_, err := f.monitor.Analyze(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSweepCountsBuckets(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)
	f.addConversation("cooling", models.ConversationActive, coolingMessages(now.Add(-2*time.Hour)))
	f.addConversation("dormant", models.ConversationActive, coolingMessages(now.Add(-5*24*time.Hour)))
	f.addConversation("steady", models.ConversationActive, steadyMessages(now.Add(-time.Hour)))

	summary, err := f.monitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Cooling)
	assert.Equal(t, 1, summary.Dormant)
	assert.Equal(t, 1, summary.Healthy)
	assert.Equal(t, 1, summary.NudgesGenerated)
	assert.Zero(t, summary.Failed)
}

func TestSweepSkipsFailures(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)
	f.addConversation("steady", models.ConversationActive, nil)
	f.monitor.repo.Messages.(*fakeMessages).err = errors.New("db gone")

	summary, err := f.monitor.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.Healthy)
}
