package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedingValidate_Empty(t *testing.T) {
	err := Seeding{}.Validate()
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestSeedingValidate_EmptyPlayer(t *testing.T) {
	err := Seeding{"alice", ""}.Validate()
	assert.ErrorIs(t, err, ErrEmptyPlayer)
}

func TestSeedingValidate_Duplicate(t *testing.T) {
	err := Seeding{"alice", "bob", "alice"}.Validate()
	assert.ErrorIs(t, err, ErrDuplicatePlayer)
}

func TestSeedingPosition(t *testing.T) {
	s := Seeding{"alice", "bob", "carol"}
	assert.Equal(t, 0, s.Position("alice"))
	assert.Equal(t, 2, s.Position("carol"))
	assert.Equal(t, -1, s.Position("dave"))
	assert.True(t, s.Contains("bob"))
	assert.False(t, s.Contains("dave"))
}

func TestSeedingEncode_RoundTrip(t *testing.T) {
	s := Seeding{"alice", "bob", "carol"}
	decoded, err := DecodeSeeding(s.Encode())
	require.NoError(t, err)
	assert.Equal(t, s, decoded)
}

func TestSeedingEncode_EscapesDelimiters(t *testing.T) {
	s := Seeding{"a,b", `c\d`, "plain"}
	token := s.Encode()
	assert.Equal(t, `a\,b,c\\d,plain`, token)

	decoded, err := DecodeSeeding(token)
	require.NoError(t, err)
	assert.Equal(t, s, decoded)
}

func TestDecodeSeeding_Rejects(t *testing.T) {
	_, err := DecodeSeeding("")
	assert.ErrorIs(t, err, ErrInvalidSeeding)

	_, err = DecodeSeeding(`alice\`)
	assert.ErrorIs(t, err, ErrInvalidSeeding)

	_, err = DecodeSeeding("alice,alice")
	assert.ErrorIs(t, err, ErrInvalidSeeding)
}
