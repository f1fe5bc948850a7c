package domain

// AuthState is the verification session state. States only move forward
// through the graph below; Locked is a terminal failure state reachable from
// any non-terminal state once a stage's attempt cap is exhausted.
//
//	Initial → SMSSent → SMSClicked → IdentityVerify → OwnershipVerified
type AuthState string

const (
	StateInitial           AuthState = "initial"
	StateSMSSent           AuthState = "sms_sent"
	StateSMSClicked        AuthState = "sms_clicked"
	StateIdentityVerify    AuthState = "identity_verify"
	StateOwnershipVerified AuthState = "ownership_verified"
	StateLocked            AuthState = "locked"
)

// stateRank orders the forward path. Locked has no rank; it is handled
// explicitly in CanTransition.
var stateRank = map[AuthState]int{
	StateInitial:           0,
	StateSMSSent:           1,
	StateSMSClicked:        2,
	StateIdentityVerify:    3,
	StateOwnershipVerified: 4,
}

// Valid reports whether s is a known state.
func (s AuthState) Valid() bool {
	if s == StateLocked {
		return true
	}
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether no further transition is allowed out of s.
func (s AuthState) Terminal() bool {
	return s == StateOwnershipVerified || s == StateLocked
}

// CanTransition reports whether moving from s to the given state is legal.
// Re-entering the same state is allowed (a resend keeps the record in
// SMSSent); regression is not.
func (s AuthState) CanTransition(to AuthState) bool {
	if s.Terminal() {
		return false
	}
	if to == StateLocked {
		return true
	}
	fromRank, ok := stateRank[s]
	if !ok {
		return false
	}
	toRank, ok := stateRank[to]
	if !ok {
		return false
	}
	return toRank >= fromRank
}

// AtLeast reports whether s has progressed to the given state or beyond.
// Locked counts for nothing on the forward path.
func (s AuthState) AtLeast(other AuthState) bool {
	fromRank, ok := stateRank[s]
	if !ok {
		return false
	}
	return fromRank >= stateRank[other]
}

// Stage identifies the producing verification stage of a snapshot.
type Stage string

const (
	StagePossession Stage = "possession"
	StageReputation Stage = "reputation"
	StageOwnership  Stage = "ownership"
)
