package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRunID("")
		assert.Error(t, err)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := ParseRunID("not-a-uuid")
		assert.Error(t, err)
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRunID(uuid.Nil.String())
		assert.Error(t, err)
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		id := NewRunID()
		parsed, err := ParseRunID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.False(t, parsed.IsNil())
	})
}

func TestParseCandidateID(t *testing.T) {
	id := NewCandidateID()
	parsed, err := ParseCandidateID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseCandidateID("")
	assert.Error(t, err)
}
