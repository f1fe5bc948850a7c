package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to AuthState
		want     bool
	}{
		{StateInitial, StateSMSSent, true},
		{StateSMSSent, StateSMSSent, true}, // resend keeps the state
		{StateSMSSent, StateSMSClicked, true},
		{StateSMSClicked, StateIdentityVerify, true},
		{StateIdentityVerify, StateOwnershipVerified, true},
		{StateInitial, StateOwnershipVerified, true}, // skipping forward is legal at this layer
		{StateSMSClicked, StateSMSSent, false},
		{StateIdentityVerify, StateInitial, false},
		{StateOwnershipVerified, StateSMSSent, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestCanTransition_LockedFromAnyStage(t *testing.T) {
	for _, from := range []AuthState{StateInitial, StateSMSSent, StateSMSClicked, StateIdentityVerify} {
		assert.True(t, from.CanTransition(StateLocked), "%s -> locked", from)
	}
}

func TestCanTransition_TerminalStates(t *testing.T) {
	for _, to := range []AuthState{StateInitial, StateSMSSent, StateLocked, StateOwnershipVerified} {
		assert.False(t, StateLocked.CanTransition(to))
		assert.False(t, StateOwnershipVerified.CanTransition(to))
	}
}

func TestAtLeast(t *testing.T) {
	assert.True(t, StateSMSClicked.AtLeast(StateSMSSent))
	assert.True(t, StateSMSClicked.AtLeast(StateSMSClicked))
	assert.False(t, StateSMSSent.AtLeast(StateSMSClicked))
	assert.False(t, StateLocked.AtLeast(StateSMSSent))
}

func TestValid(t *testing.T) {
	assert.True(t, StateInitial.Valid())
	assert.True(t, StateLocked.Valid())
	assert.False(t, AuthState("banana").Valid())
}
