package names

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUsesBothVocabularies(t *testing.T) {
	for i := 0; i < 100; i++ {
		name := Generate()

		adjective, aircraft, found := strings.Cut(name, " ")
		assert.True(t, found, "name %q must contain a space", name)
		assert.Contains(t, adjectives, adjective)
		assert.Contains(t, aircrafts, aircraft)
	}
}

func TestGenerateVaries(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		seen[Generate()] = struct{}{}
	}

	assert.Greater(t, len(seen), 1, "200 draws should not all collide")
}
