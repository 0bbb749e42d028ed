package sourcing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistribute(t *testing.T) {
	tests := []struct {
		total, percentage int
		generation, store int
	}{
		{10, 0, 0, 10},
		{10, 100, 10, 0},
		{10, 50, 5, 5},
		{3, 50, 2, 1},
		{10, 60, 6, 4},
		{1, 49, 0, 1},
		{1, 50, 1, 0},
		{7, 33, 2, 5},
		{5, 10, 1, 4},
		{50, 1, 1, 49},
	}
	for _, tt := range tests {
		g, s := Distribute(tt.total, tt.percentage)
		assert.Equal(t, tt.generation, g, "generation for T=%d P=%d", tt.total, tt.percentage)
		assert.Equal(t, tt.store, s, "store for T=%d P=%d", tt.total, tt.percentage)
		assert.Equal(t, tt.total, g+s)
	}
}

func TestDistributeBounds(t *testing.T) {
	for total := 1; total <= 50; total++ {
		g, s := Distribute(total, 0)
		assert.Equal(t, 0, g)
		assert.Equal(t, total, s)

		g, s = Distribute(total, 100)
		assert.Equal(t, total, g)
		assert.Equal(t, 0, s)
	}
}
