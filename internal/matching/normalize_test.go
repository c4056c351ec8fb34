package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"case folding", "Vladimir PETROV", "vladimir petrov"},
		{"punctuation stripped", "Petrov, Vladimir", "petrov vladimir"},
		{"diacritics removed", "Pëtrov Vladímir", "petrov vladimir"},
		{"collapsed whitespace", "  Vladimir   Petrov ", "vladimir petrov"},
		{"corporate suffix punctuation", "Bad Actor Co., Ltd.", "bad actor co ltd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "Vladimir Petrov", "Vladimir Petrov", 1.0, 1.0},
		{"reordered with comma", "Vladimir Petrov", "Petrov, Vladimir", 1.0, 1.0},
		{"abbreviated given name", "Vladimir Petrov", "V. Petrov", 1.0, 1.0},
		{"diacritic variant", "Vladimir Petrov", "Vladímir Pëtrov", 1.0, 1.0},
		{"middle name inserted", "John Smith", "John Adam Smith", 0.6, 0.9},
		{"unrelated names", "Vladimir Petrov", "Maria Gonzalez", 0.0, 0.1},
		{"shared surname only", "Vladimir Petrov", "Ivan Petrov", 0.4, 0.6},
		{"empty side", "", "Vladimir Petrov", 0.0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"Vladimir Petrov", "V. Petrov"},
		{"John Smith", "John Adam Smith"},
		{"Bad Actor Company Ltd", "BA Company"},
	}
	for _, p := range pairs {
		assert.InDelta(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), 1e-9)
	}
}

func TestSimilarity_Bounded(t *testing.T) {
	// Repeated initials must not inflate the score past 1.0.
	got := Similarity("Vladimir", "V. V.")
	assert.LessOrEqual(t, got, 1.0)
	assert.GreaterOrEqual(t, got, 0.0)
}
