package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParticipant(t *testing.T, name, email string) Participant {
	t.Helper()
	p, err := ParticipantOf(name, email)
	require.NoError(t, err)
	return p
}

func TestParticipant_EqualityByEmailOnly(t *testing.T) {
	john := mustParticipant(t, "John", "a@b.com")
	johnny := mustParticipant(t, "Johnny", "A@B.com")
	jane := mustParticipant(t, "John", "jane@b.com")

	require.True(t, john.Equal(johnny))
	require.False(t, john.Equal(jane))
	require.Equal(t, "John", john.Name().String())
	require.Equal(t, "Johnny", johnny.Name().String())
}

func TestParticipantOf_PropagatesValidation(t *testing.T) {
	_, err := ParticipantOf("J", "a@b.com")
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParticipantOf("John", "not-an-email")
	require.ErrorIs(t, err, ErrValidation)
}

func TestNewParticipant_FromValueObjects(t *testing.T) {
	name, err := NewParticipantName("Alice")
	require.NoError(t, err)
	email, err := NewEmailAddress("alice@example.com")
	require.NoError(t, err)

	p := NewParticipant(name, email)
	require.Equal(t, name, p.Name())
	require.Equal(t, email, p.Email())
	require.Equal(t, "Alice <alice@example.com>", p.String())
}
