package vectors

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{1, 2}, []float32{0, 0}, 0},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_BoundsAndSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		a := make([]float32, 8)
		b := make([]float32, 8)
		for j := range a {
			a[j] = rng.Float32()*2 - 1
			b[j] = rng.Float32()*2 - 1
		}

		ab := Cosine(a, b)
		assert.GreaterOrEqual(t, ab, -1.0)
		assert.LessOrEqual(t, ab, 1.0)
		assert.Equal(t, ab, Cosine(b, a))
		assert.Equal(t, 1.0, Cosine(a, a))
	}
}

func TestCosine_SelfSimilarityIsExactlyOne(t *testing.T) {
	for _, v := range [][]float32{
		{0.1, 0.2, 0.3},
		{1e-3, 7, -2.5, 0.333},
		{3},
	} {
		assert.Equal(t, 1.0, Cosine(v, v))
	}
}
