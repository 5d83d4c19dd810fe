package ers

import (
	"time"

	"github.com/resonatelabs/resonate/internal/models"
)

// Modifiers are the multiplicative adjustments applied to the base score.
// Each is symmetric in the pair, so the total stays symmetric.
type Modifiers struct {
	Geographic     float64 `json:"geographic"`
	Recency        float64 `json:"recency"`
	Completeness   float64 `json:"completeness"`
	MutualInterest float64 `json:"mutual_interest"`
}

// mutualInterestNeutral is reserved for a future match-history signal.
const mutualInterestNeutral = 1.0

func computeModifiers(userA, userB *models.User, profA, profB *models.ResonanceProfile, now time.Time) Modifiers {
	return Modifiers{
		Geographic:     geographicModifier(userA, userB),
		Recency:        recencyModifier(userA, userB, now),
		Completeness:   completenessModifier(profA, profB),
		MutualInterest: mutualInterestNeutral,
	}
}

// geographicModifier decays with haversine distance: full strength within
// 50 km, linear decay to 200 km, floored at 0.7 beyond. Unknown locations
// stay neutral.
func geographicModifier(a, b *models.User) float64 {
	if a.Latitude == nil || a.Longitude == nil || b.Latitude == nil || b.Longitude == nil {
		return 1.0
	}
	d := haversineKM(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	switch {
	case d <= 50:
		return 1.0
	case d <= 200:
		return 0.95 - (d-50)*0.0005
	default:
		return clamp(0.95-(d-50)*0.0005, 0.7, 1.0)
	}
}

// recencyModifier decays with the staler of the two last-active timestamps.
func recencyModifier(a, b *models.User, now time.Time) float64 {
	daysA := now.Sub(a.LastActiveAt).Hours() / 24
	daysB := now.Sub(b.LastActiveAt).Hours() / 24
	m := daysA
	if daysB > m {
		m = daysB
	}
	switch {
	case m <= 3:
		return 1.0
	case m <= 7:
		return 1.0 - (m-3)*0.05
	default:
		return clamp(0.8-(m-7)*0.03, 0.6, 0.8)
	}
}

// completenessModifier halves the score when either profile never classified.
func completenessModifier(a, b *models.ResonanceProfile) float64 {
	if a.Archetype == nil || b.Archetype == nil {
		return 0.5
	}
	return 1.0
}
