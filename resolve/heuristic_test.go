package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStableIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"lsid urn", "urn:lsid:biodiversity.org.au:afd.taxon:4d3bf7d6", true},
		{"taxon url", "https://biodiversity.org.au/afd/taxa/4d3bf7d6", true},
		{"http taxon url", "http://id.biodiversity.org.au/taxa/apni/51286863", true},
		{"plain url without taxa", "https://example.org/species/frog", false},
		{"binomial", "Litoria peronii", false},
		{"vernacular", "Laughing Kookaburra", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStableIdentifier(tt.input))
		})
	}
}

func TestIsBinomial(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"classic binomial", "Litoria peronii", true},
		{"another binomial", "Macropus rufus", true},
		{"both capitalized", "Laughing Kookaburra", false},
		{"single word", "Litoria", false},
		{"three words", "Litoria peronii complex", false},
		{"lowercase genus", "litoria peronii", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBinomial(tt.input))
		})
	}
}

func TestLooksVernacular(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"common name", "Laughing Kookaburra", true},
		{"three word common name", "Peron's Tree Frog", true},
		{"binomial is not vernacular", "Litoria peronii", false},
		{"single word", "Kookaburra", false},
		{"lowercase phrase", "tree frog", false},
		{"mixed case phrase", "Laughing kookaburra", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksVernacular(tt.input))
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Litoria Peronii", "litoria peronii"},
		{"trims", "  kookaburra  ", "kookaburra"},
		{"collapses internal whitespace", "litoria   \t peronii", "litoria peronii"},
		{"already normalized", "red kangaroo", "red kangaroo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.input))
		})
	}
}

func TestNormalizeKeyVariantsCollide(t *testing.T) {
	variants := []string{"Litoria peronii", "litoria peronii", "  LITORIA   PERONII  "}
	first := NormalizeKey(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, first, NormalizeKey(v))
	}
}
