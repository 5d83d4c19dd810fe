package ers

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/resonatelabs/resonate/internal/models"
)

// waveformBins is the resolution of the visualization payload.
const waveformBins = 64

// WaveformPayload is the pair visualization: one 64-bin frequency array per
// side and the blended archetype color.
type WaveformPayload struct {
	UserA        []float64 `json:"user_a"`
	UserB        []float64 `json:"user_b"`
	BlendedColor string    `json:"blended_color"`
}

// buildWaveform synthesizes the payload. The storm factor draws from a PRNG
// seeded by the canonical pair so the payload is stable for a given pair.
func buildWaveform(idA, idB string, profA, profB *models.ResonanceProfile) *WaveformPayload {
	lo, hi := models.CanonicalPair(idA, idB)
	h := fnv.New64a()
	h.Write([]byte(lo + ":" + hi))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	return &WaveformPayload{
		UserA:        waveformSide(profA, 0, rng),
		UserB:        waveformSide(profB, 0.5, rng),
		BlendedColor: blendColors(archetypeOf(profA), archetypeOf(profB)),
	}
}

func archetypeOf(p *models.ResonanceProfile) models.Archetype {
	if p.Archetype == nil {
		return models.ArchetypeWave
	}
	return *p.Archetype
}

func waveformSide(p *models.ResonanceProfile, phaseShift float64, rng *rand.Rand) []float64 {
	arch := archetypeOf(p)
	bins := make([]float64, waveformBins)
	for i := range bins {
		phase := float64(i) / waveformBins * 2 * math.Pi
		base := math.Sin(phase + p.DepthScore*3 + phaseShift)
		bins[i] = base * archetypeFactor(arch, i, rng)
	}
	return bins
}

// archetypeFactor shapes the wave per energy category: spark spiky, anchor
// smooth, wave flowing, ember pulsing, storm chaotic.
func archetypeFactor(arch models.Archetype, bin int, rng *rand.Rand) float64 {
	switch arch {
	case models.ArchetypeSpark:
		if bin%4 == 0 {
			return 1.5
		}
		return 0.7
	case models.ArchetypeAnchor:
		return 1.0
	case models.ArchetypeWave:
		return 1.0 + 0.3*math.Sin(float64(bin)*0.2)
	case models.ArchetypeEmber:
		return 1.0 + 0.4*math.Sin(float64(bin)*0.5)
	case models.ArchetypeStorm:
		return 0.5 + rng.Float64()
	default:
		return 1.0
	}
}

// blendColors averages the two archetype palette colors per channel.
func blendColors(a, b models.Archetype) string {
	ra, ga, ba := parseHex(models.ArchetypeColors[a])
	rb, gb, bb := parseHex(models.ArchetypeColors[b])
	return fmt.Sprintf("#%02X%02X%02X", (ra+rb)/2, (ga+gb)/2, (ba+bb)/2)
}

func parseHex(hex string) (int, int, int) {
	var r, g, b int
	fmt.Sscanf(hex, "#%02X%02X%02X", &r, &g, &b)
	return r, g, b
}
