// Package ers computes the Emotional Resonance Score: a bounded pairwise
// compatibility score with per-component breakdown and a waveform payload.
package ers

import (
	"github.com/resonatelabs/resonate/internal/models"
)

// Component weights; they sum to 100 so the base score is already bounded.
const (
	weightVectorSim    = 30.0
	weightChrono       = 15.0
	weightCommunication = 20.0
	weightDepth        = 15.0
	weightArchetype    = 20.0
)

// defaultComponent fills in for any component with missing inputs.
const defaultComponent = 0.5

// styleMatrix scores how style A lands on style B. Queried [A][B]; the table
// is symmetric in use but not in values.
var styleMatrix = map[models.Style]map[models.Style]float64{
	models.StyleExpressive: {
		models.StyleExpressive: 0.80, models.StylePrecise: 0.55, models.StylePoetic: 0.75,
		models.StyleMinimal: 0.45, models.StyleWitty: 0.70,
	},
	models.StylePrecise: {
		models.StyleExpressive: 0.60, models.StylePrecise: 0.80, models.StylePoetic: 0.60,
		models.StyleMinimal: 0.70, models.StyleWitty: 0.65,
	},
	models.StylePoetic: {
		models.StyleExpressive: 0.75, models.StylePrecise: 0.55, models.StylePoetic: 0.85,
		models.StyleMinimal: 0.50, models.StyleWitty: 0.60,
	},
	models.StyleMinimal: {
		models.StyleExpressive: 0.40, models.StylePrecise: 0.70, models.StylePoetic: 0.50,
		models.StyleMinimal: 0.75, models.StyleWitty: 0.55,
	},
	models.StyleWitty: {
		models.StyleExpressive: 0.70, models.StylePrecise: 0.60, models.StylePoetic: 0.65,
		models.StyleMinimal: 0.50, models.StyleWitty: 0.80,
	},
}

// archetypeMatrix scores energy complementarity. Opposites can rank above
// sameness: anchors ground sparks better than another spark does.
var archetypeMatrix = map[models.Archetype]map[models.Archetype]float64{
	models.ArchetypeSpark: {
		models.ArchetypeSpark: 0.60, models.ArchetypeAnchor: 0.85, models.ArchetypeWave: 0.70,
		models.ArchetypeEmber: 0.75, models.ArchetypeStorm: 0.50,
	},
	models.ArchetypeAnchor: {
		models.ArchetypeSpark: 0.85, models.ArchetypeAnchor: 0.65, models.ArchetypeWave: 0.75,
		models.ArchetypeEmber: 0.70, models.ArchetypeStorm: 0.60,
	},
	models.ArchetypeWave: {
		models.ArchetypeSpark: 0.70, models.ArchetypeAnchor: 0.75, models.ArchetypeWave: 0.85,
		models.ArchetypeEmber: 0.70, models.ArchetypeStorm: 0.65,
	},
	models.ArchetypeEmber: {
		models.ArchetypeSpark: 0.75, models.ArchetypeAnchor: 0.70, models.ArchetypeWave: 0.70,
		models.ArchetypeEmber: 0.80, models.ArchetypeStorm: 0.55,
	},
	models.ArchetypeStorm: {
		models.ArchetypeSpark: 0.50, models.ArchetypeAnchor: 0.60, models.ArchetypeWave: 0.65,
		models.ArchetypeEmber: 0.55, models.ArchetypeStorm: 0.70,
	},
}

// styleCompatibility looks up the pair, defaulting when either is missing.
func styleCompatibility(a, b *models.Style) float64 {
	if a == nil || b == nil {
		return defaultComponent
	}
	row, ok := styleMatrix[*a]
	if !ok {
		return defaultComponent
	}
	v, ok := row[*b]
	if !ok {
		return defaultComponent
	}
	return v
}

// archetypeComplementarity looks up the pair, defaulting when either is missing.
func archetypeComplementarity(a, b *models.Archetype) float64 {
	if a == nil || b == nil {
		return defaultComponent
	}
	row, ok := archetypeMatrix[*a]
	if !ok {
		return defaultComponent
	}
	v, ok := row[*b]
	if !ok {
		return defaultComponent
	}
	return v
}
