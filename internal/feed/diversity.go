package feed

import (
	"math"

	"github.com/resonatelabs/resonate/internal/models"
)

const (
	// diversityOverflow is how many extra candidates the page slice carries
	// as replacement material.
	diversityOverflow = 10

	// minorityShare is the minimum fraction of a page held by non-dominant
	// archetypes.
	minorityShare = 0.20

	diversityBonus = 0.1
)

// injectDiversity is stage 4. It takes an oversized window (up to
// limit+diversityOverflow ranked entries) and returns at most limit entries
// where non-dominant archetypes hold at least minorityShare of the page.
// Shortfalls are covered by swapping the lowest-scoring dominant entries for
// the best different-archetype candidates from the overflow tail; swapped-in
// entries are marked with DiversityBonus while FinalScore stays the score the
// entry actually earned.
func injectDiversity(window []RankedProfile, limit int) []RankedProfile {
	if len(window) == 0 {
		return nil
	}
	n := limit
	if n > len(window) {
		n = len(window)
	}
	page := window[:n]
	tail := window[n:]

	counts := map[models.Archetype]int{}
	for _, e := range page {
		counts[e.Archetype]++
	}
	dominant, domCount := dominantArchetype(counts)
	nonDominant := len(page) - domCount

	target := int(math.Ceil(minorityShare * float64(limit)))
	if target > len(page) {
		target = len(page)
	}
	if nonDominant >= target {
		return page
	}

	needed := target - nonDominant
	// Tail is already sorted by score, so the first usable entries are the
	// best replacements.
	replacements := make([]RankedProfile, 0, needed)
	for _, e := range tail {
		if e.Archetype != dominant {
			replacements = append(replacements, e)
			if len(replacements) == needed {
				break
			}
		}
	}
	if len(replacements) == 0 {
		return page
	}

	// Replace dominant entries from the bottom of the page upward.
	ri := 0
	for i := len(page) - 1; i >= 0 && ri < len(replacements); i-- {
		if page[i].Archetype != dominant {
			continue
		}
		injected := replacements[ri]
		injected.DiversityBonus = diversityBonus
		page[i] = injected
		ri++
	}
	return page
}

func dominantArchetype(counts map[models.Archetype]int) (models.Archetype, int) {
	best := models.ArchetypeWave
	bestCount := -1
	for _, arch := range models.Archetypes {
		if c := counts[arch]; c > bestCount {
			best, bestCount = arch, c
		}
	}
	return best, bestCount
}
