package atomkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashStructuralEquality(t *testing.T) {
	a := Hash([]any{"user", 42})
	b := Hash([]any{"user", 42})
	assert.Equal(t, a, b, "equal-by-value params hash identically")
}

func TestHashDistinguishesValues(t *testing.T) {
	a := Hash([]any{"user", 42})
	b := Hash([]any{"user", 43})
	assert.NotEqual(t, a, b)
}

func TestHashNoParams(t *testing.T) {
	assert.Equal(t, Hash(nil), Hash([]any{}))
}

func TestHashDeepStruct(t *testing.T) {
	type filter struct {
		Tags []string
		Min  int
	}
	a := Hash([]any{filter{Tags: []string{"x", "y"}, Min: 1}})
	b := Hash([]any{filter{Tags: []string{"x", "y"}, Min: 1}})
	c := Hash([]any{filter{Tags: []string{"x", "z"}, Min: 1}})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestHashFunctionIsIdentityBased(t *testing.T) {
	x, y := 1, 2
	fn := func() int { return x }
	a := Hash([]any{fn})
	b := Hash([]any{fn})
	assert.Equal(t, a, b, "the same closure value hashes to the same identity id")

	other := func() int { return y }
	c := Hash([]any{other})
	assert.NotEqual(t, a, c, "distinct closures never collide")
}
