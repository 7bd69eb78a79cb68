package models

import "fmt"

// PublishState is the position of a page in its publish lifecycle.
type PublishState int

const (
	StatePrivate PublishState = iota
	StatePublishing
	StatePublic
	StateRetracting
)

func (s PublishState) String() string {
	switch s {
	case StatePrivate:
		return "private"
	case StatePublishing:
		return "publishing"
	case StatePublic:
		return "public"
	case StateRetracting:
		return "retracting"
	}
	return fmt.Sprintf("PublishState(%d)", int(s))
}

// Stable reports whether no sync is in flight.
func (s PublishState) Stable() bool {
	return s == StatePrivate || s == StatePublic
}

// StateOf returns the stable state matching the page's public flag.
func StateOf(p *Page) PublishState {
	if p != nil && p.Public() {
		return StatePublic
	}
	return StatePrivate
}

// Transition is a publish state change waiting for the remote outcome.
type Transition struct {
	From   PublishState
	Target bool
}

// Begin starts a transition from a stable state towards the given public flag.
// Re-publishing a public page is allowed and refreshes the remote copy.
func Begin(from PublishState, public bool) (Transition, error) {
	if !from.Stable() {
		return Transition{}, fmt.Errorf("publish state %s: sync already in progress", from)
	}
	return Transition{From: from, Target: public}, nil
}

// Pending is the state held while the remote call is in flight.
func (t Transition) Pending() PublishState {
	if t.Target {
		return StatePublishing
	}
	return StateRetracting
}

// Succeed is the state after the remote side confirmed the change.
func (t Transition) Succeed() PublishState {
	if t.Target {
		return StatePublic
	}
	return StatePrivate
}

// Fail is the state after the remote side rejected or missed the change.
func (t Transition) Fail() PublishState {
	return t.From
}
