// Package health is the Conversation Health Monitor: five statistical signals
// per conversation, a vitality state machine, and a nudge generator for
// conversations that start cooling.
package health

import (
	"strings"
	"sync"
	"time"

	"github.com/resonatelabs/resonate/internal/models"
)

// Signal windows and thresholds.
const (
	latencyWindow    = 50
	lengthWindow     = 50
	sentimentWindow  = 30
	initiativeWindow = 100
	diversityWindow  = 30

	sessionGap = 2 * time.Hour

	minLatencyMessages   = 4
	minLatencyGaps       = 3
	minLengthMessages    = 6
	minSentimentScored   = 4
	minDiversityMessages = 5
)

// Signals are the five per-conversation measurements. Trends live in [-1,1]
// with 0 neutral; initiative and diversity live in [0,1] with 0.5 neutral.
type Signals struct {
	Latency    float64 `json:"latency"`
	Length     float64 `json:"length"`
	Sentiment  float64 `json:"sentiment"`
	Initiative float64 `json:"initiative"`
	Diversity  float64 `json:"diversity"`
}

// computeSignals runs the five extractors in parallel over one conversation's
// messages, newest first.
func computeSignals(msgs []models.Message) Signals {
	var s Signals
	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); s.Latency = latencyTrend(msgs) }()
	go func() { defer wg.Done(); s.Length = lengthTrend(msgs) }()
	go func() { defer wg.Done(); s.Sentiment = sentimentTrajectory(msgs) }()
	go func() { defer wg.Done(); s.Initiative = initiativeRatio(msgs) }()
	go func() { defer wg.Done(); s.Diversity = topicDiversity(msgs) }()
	wg.Wait()
	return s
}

// latencyTrend compares recent vs older inter-response times. Positive means
// replies are speeding up.
func latencyTrend(msgs []models.Message) float64 {
	if len(msgs) < minLatencyMessages {
		return 0
	}
	w := window(msgs, latencyWindow)

	// Gaps only between adjacent messages with different senders, kept in
	// newest-first order.
	var gaps []float64
	for i := 0; i+1 < len(w); i++ {
		if senderOf(w[i]) != senderOf(w[i+1]) {
			gaps = append(gaps, w[i].SentAt.Sub(w[i+1].SentAt).Seconds())
		}
	}
	if len(gaps) < minLatencyGaps {
		return 0
	}

	mid := len(gaps) / 2
	recent, older := mean(gaps[:mid]), mean(gaps[mid:])
	if older <= 0 {
		return 0
	}
	return clamp(1-recent/older, -1, 1)
}

// lengthTrend compares recent vs older average message length.
func lengthTrend(msgs []models.Message) float64 {
	if len(msgs) < minLengthMessages {
		return 0
	}
	w := window(msgs, lengthWindow)

	lengths := make([]float64, len(w))
	for i, m := range w {
		lengths[i] = float64(len(m.Content))
	}
	mid := len(lengths) / 2
	recent, older := mean(lengths[:mid]), mean(lengths[mid:])
	if older <= 0 {
		return 0
	}
	return clamp(recent/older-1, -1, 1)
}

// sentimentTrajectory compares recent vs older pre-computed sentiment.
func sentimentTrajectory(msgs []models.Message) float64 {
	var scored []float64
	for _, m := range msgs {
		if m.Sentiment != nil {
			scored = append(scored, *m.Sentiment)
			if len(scored) == sentimentWindow {
				break
			}
		}
	}
	if len(scored) < minSentimentScored {
		return 0
	}
	mid := len(scored) / 2
	return clamp(mean(scored[:mid])-mean(scored[mid:]), -1, 1)
}

// initiativeRatio measures how evenly the two parties start sessions. A
// session starts at the first message and after any gap over two hours.
func initiativeRatio(msgs []models.Message) float64 {
	if len(msgs) == 0 {
		return 0.5
	}
	w := window(msgs, initiativeWindow)

	starts := map[string]int{}
	// Walk chronologically, oldest first.
	for i := len(w) - 1; i >= 0; i-- {
		isStart := i == len(w)-1 || w[i].SentAt.Sub(w[i+1].SentAt) > sessionGap
		if !isStart {
			continue
		}
		if id := senderOf(w[i]); id != "" {
			starts[id]++
		}
	}

	switch len(starts) {
	case 0:
		return 0.5
	case 1:
		return 0.2
	}
	minC, maxC := -1, 0
	for _, c := range starts {
		if minC < 0 || c < minC {
			minC = c
		}
		if c > maxC {
			maxC = c
		}
	}
	return float64(minC) / float64(maxC)
}

// topicDiversity is the unique-token ratio over recent messages, rescaled so
// that 0.2 raw maps to 0 and 0.7 raw maps to 1.
func topicDiversity(msgs []models.Message) float64 {
	if len(msgs) < minDiversityMessages {
		return 0.5
	}
	w := window(msgs, diversityWindow)

	total := 0
	unique := map[string]struct{}{}
	for _, m := range w {
		for _, tok := range strings.Fields(m.Content) {
			if len(tok) <= 3 {
				continue
			}
			total++
			unique[strings.ToLower(tok)] = struct{}{}
		}
	}
	if total == 0 {
		return 0.5
	}
	raw := float64(len(unique)) / float64(total)
	return clamp((raw-0.2)/0.5, 0, 1)
}

func window(msgs []models.Message, n int) []models.Message {
	if len(msgs) > n {
		return msgs[:n]
	}
	return msgs
}

func senderOf(m models.Message) string {
	if m.SenderID == nil {
		return ""
	}
	return *m.SenderID
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
