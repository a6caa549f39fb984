package ids

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsValidULID(t *testing.T) {
	id := New()
	_, err := ulid.Parse(id)
	require.NoError(t, err)
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("card")
	assert.Equal(t, "card-1", gen())
	assert.Equal(t, "card-2", gen())
	for i := 0; i < 8; i++ {
		gen()
	}
	assert.Equal(t, "card-11", gen())
}
