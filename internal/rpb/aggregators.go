package rpb

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/persistence"
)

const (
	messagingWindow    = 500
	messagingMinCount  = 3
	typingMinStarts    = 5
	sessionMinOpens    = 3
	browsingMinViews   = 3
	typingEventWindow  = 1000
	sessionEventWindow = 500
	browseEventWindow  = 1000

	bioDeletionRateWithEdits = 0.2
	defaultDwellMS           = 8000.0
	defaultBioReadRate       = 0.6
)

// Aggregator runs the six signal extractors.
type Aggregator struct {
	repo *persistence.Repository
}

// NewAggregator builds an Aggregator over the repository.
func NewAggregator(repo *persistence.Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Collect runs all six extractors concurrently and assembles the bundle.
// Individual extractors returning no data leave their slot nil; hard errors
// abort the pass.
func (a *Aggregator) Collect(ctx context.Context, user *models.User) (*SignalBundle, error) {
	bundle := &SignalBundle{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := a.voiceSignals(gctx, user)
		bundle.Voice = v
		return err
	})
	g.Go(func() error {
		b, err := a.bioSignals(gctx, user)
		bundle.Bio = b
		return err
	})
	g.Go(func() error {
		m, err := a.messagingSignals(gctx, user.ID)
		bundle.Messaging = m
		return err
	})
	g.Go(func() error {
		t, err := a.typingSignals(gctx, user.ID)
		bundle.Typing = t
		return err
	})
	g.Go(func() error {
		s, err := a.sessionSignals(gctx, user.ID)
		bundle.Sessions = s
		return err
	})
	g.Go(func() error {
		br, err := a.browsingSignals(gctx, user.ID)
		bundle.Browsing = br
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// voiceSignals reads the latest voice analysis event. No voice intro means no
// data; an intro with no recorded analysis yields a zeroed bundle with the
// default pace so the classifier still sees the modality.
func (a *Aggregator) voiceSignals(ctx context.Context, user *models.User) (*VoiceSignals, error) {
	if user.VoiceIntroURL == nil || *user.VoiceIntroURL == "" {
		return nil, nil
	}
	ev, err := a.repo.Events.Latest(ctx, user.ID, models.EventVoiceNoteAnalyzed)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &VoiceSignals{SpeakingPace: models.PaceModerate}, nil
		}
		return nil, err
	}
	payload, err := ev.ParseVoiceAnalysis()
	if err != nil {
		return &VoiceSignals{SpeakingPace: models.PaceModerate}, nil
	}
	return &VoiceSignals{
		WordCount:          payload.WordCount,
		VocabularyRichness: payload.VocabularyRichness,
		Sentiment:          payload.Sentiment,
		DominantEmotions:   payload.DominantEmotions,
		SpeakingPace:       payload.SpeakingPace,
	}, nil
}

func (a *Aggregator) bioSignals(ctx context.Context, user *models.User) (*BioSignals, error) {
	if user.Bio == nil || strings.TrimSpace(*user.Bio) == "" {
		return nil, nil
	}
	words := len(strings.Fields(*user.Bio))

	edits, err := a.repo.Events.CountByType(ctx, user.ID, models.EventBioEdited)
	if err != nil {
		return nil, err
	}
	deletionRate := 0.0
	if edits > 0 {
		deletionRate = bioDeletionRateWithEdits
	}

	style := BioStyleModerate
	switch {
	case words < 20:
		style = BioStyleMinimal
	case words > 80:
		style = BioStyleExpressive
	}

	return &BioSignals{WordCount: words, EditCount: edits, DeletionRate: deletionRate, Style: style}, nil
}

func (a *Aggregator) messagingSignals(ctx context.Context, userID string) (*MessagingSignals, error) {
	msgs, err := a.repo.Messages.ListBySender(ctx, userID, messagingWindow)
	if err != nil {
		return nil, err
	}
	if len(msgs) < messagingMinCount {
		return nil, nil
	}

	var (
		totalLen   int
		questions  int
		emojiCount int
		tokens     int
		unique     = map[string]struct{}{}
	)
	for _, m := range msgs {
		totalLen += len(m.Content)
		if strings.Contains(m.Content, "?") {
			questions++
		}
		for _, r := range m.Content {
			if r >= 0x1F600 && r <= 0x1F9FF {
				emojiCount++
			}
		}
		for _, tok := range strings.Fields(strings.ToLower(m.Content)) {
			tokens++
			unique[tok] = struct{}{}
		}
	}

	n := float64(len(msgs))
	diversity := 0.0
	if tokens > 0 {
		diversity = float64(len(unique)) / float64(tokens)
	}
	return &MessagingSignals{
		AvgLength:      float64(totalLen) / n,
		QuestionRate:   float64(questions) / n,
		EmojiRate:      float64(emojiCount) / n,
		VocabDiversity: diversity,
		MessageCount:   len(msgs),
	}, nil
}

// typingSignals pairs start/stop events chronologically and reports the mean
// and population standard deviation of burst durations.
func (a *Aggregator) typingSignals(ctx context.Context, userID string) (*TypingSignals, error) {
	events, err := a.repo.Events.ListByTypes(ctx, userID,
		[]models.EventType{models.EventTypingStarted, models.EventTypingStopped}, typingEventWindow)
	if err != nil {
		return nil, err
	}
	// Repo order is newest first; pairing walks forward in time.
	sort.Slice(events, func(i, j int) bool { return events[i].ClientTS.Before(events[j].ClientTS) })

	starts := 0
	var durations []float64
	var openStart *models.BehavioralEvent
	for i := range events {
		ev := &events[i]
		switch models.EventType(ev.EventType) {
		case models.EventTypingStarted:
			starts++
			openStart = ev
		case models.EventTypingStopped:
			if openStart != nil {
				durations = append(durations, float64(ev.ClientTS.Sub(openStart.ClientTS).Milliseconds()))
				openStart = nil
			}
		}
	}
	if starts < typingMinStarts {
		return nil, nil
	}

	mean := 0.0
	for _, d := range durations {
		mean += d
	}
	if len(durations) > 0 {
		mean /= float64(len(durations))
	}
	variance := 0.0
	for _, d := range durations {
		variance += (d - mean) * (d - mean)
	}
	if len(durations) > 0 {
		variance /= float64(len(durations))
	}

	return &TypingSignals{
		MeanBurstMS:     mean,
		CadenceVariance: math.Sqrt(variance),
		BurstCount:      len(durations),
	}, nil
}

// sessionSignals builds the 24-slot hourly activity histogram normalized by
// the busiest slot, plus session length and frequency estimates.
func (a *Aggregator) sessionSignals(ctx context.Context, userID string) (*SessionSignals, error) {
	events, err := a.repo.Events.ListByTypes(ctx, userID,
		[]models.EventType{models.EventAppOpened, models.EventAppClosed}, sessionEventWindow)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ClientTS.Before(events[j].ClientTS) })

	counts := make([]float64, 24)
	opens := 0
	var durations []float64
	var openAt *models.BehavioralEvent
	for i := range events {
		ev := &events[i]
		switch models.EventType(ev.EventType) {
		case models.EventAppOpened:
			opens++
			counts[ev.ClientTS.Hour()]++
			openAt = ev
		case models.EventAppClosed:
			if openAt != nil {
				durations = append(durations, float64(ev.ClientTS.Sub(openAt.ClientTS).Milliseconds()))
				openAt = nil
			}
		}
	}
	if opens < sessionMinOpens {
		return nil, nil
	}

	maxCount := 0.0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	activity := make([]float64, 24)
	if maxCount > 0 {
		for i, c := range counts {
			activity[i] = c / maxCount
		}
	}

	meanSession := 0.0
	for _, d := range durations {
		meanSession += d
	}
	if len(durations) > 0 {
		meanSession /= float64(len(durations))
	}

	return &SessionSignals{
		HourlyActivity: activity,
		MeanSessionMS:  meanSession,
		SessionsPerDay: float64(opens) / 7.0,
		OpenCount:      opens,
	}, nil
}

func (a *Aggregator) browsingSignals(ctx context.Context, userID string) (*BrowsingSignals, error) {
	events, err := a.repo.Events.ListByTypes(ctx, userID,
		[]models.EventType{models.EventProfileViewed, models.EventPhotoViewed}, browseEventWindow)
	if err != nil {
		return nil, err
	}

	profileViews, photoViews := 0, 0
	sessions := map[string]struct{}{}
	for _, ev := range events {
		switch models.EventType(ev.EventType) {
		case models.EventProfileViewed:
			profileViews++
			sessions[ev.SessionID] = struct{}{}
		case models.EventPhotoViewed:
			photoViews++
		}
	}
	if profileViews < browsingMinViews {
		return nil, nil
	}

	viewsPerSession := float64(profileViews)
	if len(sessions) > 0 {
		viewsPerSession = float64(profileViews) / float64(len(sessions))
	}

	return &BrowsingSignals{
		PhotoDwellRatio: float64(photoViews) / float64(profileViews),
		AvgDwellMS:      defaultDwellMS,
		BioReadRate:     defaultBioReadRate,
		ViewsPerSession: viewsPerSession,
		ProfileViews:    profileViews,
	}, nil
}
