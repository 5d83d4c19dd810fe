package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGhostRate(t *testing.T) {
	tests := []struct {
		name string
		g    GhostRate
		want float64
	}{
		{"no matches", GhostRate{}, 0},
		{"all started", GhostRate{Matched: 10, Unstarted: 0}, 0},
		{"most ghosted", GhostRate{Matched: 10, Unstarted: 7}, 0.7},
		{"all ghosted", GhostRate{Matched: 4, Unstarted: 4}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.g.Rate(), 1e-9)
		})
	}
}
