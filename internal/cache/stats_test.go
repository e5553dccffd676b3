package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_HitRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		want         string
		hits, misses uint64
		rate         float64
	}{
		{name: "no lookups", hits: 0, misses: 0, rate: 0, want: "0%"},
		{name: "all hits", hits: 4, misses: 0, rate: 100, want: "100.00%"},
		{name: "all misses", hits: 0, misses: 3, rate: 0, want: "0.00%"},
		{name: "one third", hits: 1, misses: 2, rate: 33.333, want: "33.33%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newStats(tt.hits, tt.misses, 0, 0, 0, 0)
			assert.InDelta(t, tt.rate, s.HitRate, 0.01)
			assert.Equal(t, tt.want, s.HitRateString())
		})
	}
}
