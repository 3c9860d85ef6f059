// Package vote implements the per-(comment, voter) vote state machine and
// the ledger projection that comment aggregates are derived from.
package vote

import (
	"errors"
	"fmt"
	"strings"
)

// Direction is a ledger entry. The zero value means "no vote".
type Direction string

const (
	None Direction = ""
	Up   Direction = "up"
	Down Direction = "down"
)

// Label is the client-facing name of the direction ("upvote", "downvote", or "" for none).
func (d Direction) Label() string {
	switch d {
	case Up:
		return string(KindUpvote)
	case Down:
		return string(KindDownvote)
	default:
		return ""
	}
}

func (d Direction) counts() Delta {
	switch d {
	case Up:
		return Delta{Upvotes: 1}
	case Down:
		return Delta{Downvotes: 1}
	default:
		return Delta{}
	}
}

// Kind is the requested transition.
type Kind string

const (
	KindUpvote   Kind = "upvote"
	KindDownvote Kind = "downvote"
	KindRemove   Kind = "remove"
)

var ErrInvalidKind = errors.New("invalid vote kind")

func ParseKind(value string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(value))); k {
	case KindUpvote, KindDownvote, KindRemove:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, value)
	}
}

// Delta is the change a transition applies to the aggregate counters.
type Delta struct {
	Upvotes   int
	Downvotes int
}

// Next returns the state reached from current on kind, and the counter delta.
// Repeating the current direction toggles the vote off. Unknown kinds leave
// the state unchanged.
func Next(current Direction, kind Kind) (Direction, Delta) {
	if current != Up && current != Down {
		current = None
	}

	next := None
	switch kind {
	case KindUpvote:
		if current != Up {
			next = Up
		}
	case KindDownvote:
		if current != Down {
			next = Down
		}
	case KindRemove:
	default:
		return current, Delta{}
	}

	from, to := current.counts(), next.counts()
	return next, Delta{
		Upvotes:   to.Upvotes - from.Upvotes,
		Downvotes: to.Downvotes - from.Downvotes,
	}
}

// Tally is the aggregate projection of a ledger.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Score     int `json:"score"`
}

func NewTally(upvotes, downvotes int) Tally {
	return Tally{Upvotes: upvotes, Downvotes: downvotes, Score: upvotes - downvotes}
}

// Add applies d and recomputes the score.
func (t Tally) Add(d Delta) Tally {
	return NewTally(t.Upvotes+d.Upvotes, t.Downvotes+d.Downvotes)
}

// Ledger maps a voter key to that voter's direction. Each voter has at most
// one entry; voters without a vote have no entry at all.
type Ledger map[string]Direction

// Get returns the voter's current direction.
func (l Ledger) Get(voter string) Direction {
	switch d := l[voter]; d {
	case Up, Down:
		return d
	default:
		return None
	}
}

// Tally replays the whole ledger from empty.
func (l Ledger) Tally() Tally {
	var t Tally
	for _, d := range l {
		t = t.Add(d.counts())
	}
	return t
}

// Prune deletes entries that are neither up nor down and reports how many
// were dropped. Afterwards the ledger and its Tally agree entry for entry.
func (l Ledger) Prune() int {
	dropped := 0
	for voter, d := range l {
		if d != Up && d != Down {
			delete(l, voter)
			dropped++
		}
	}
	return dropped
}

// Result describes one applied transition.
type Result struct {
	Previous Direction
	Current  Direction
	Delta    Delta
	Tally    Tally
}

// Apply runs the transition for voter and updates the ledger in place.
// The ledger must be non-nil.
func (l Ledger) Apply(voter string, kind Kind) Result {
	l.Prune()
	prev := l.Get(voter)
	next, delta := Next(prev, kind)
	if next == None {
		delete(l, voter)
	} else {
		l[voter] = next
	}
	return Result{
		Previous: prev,
		Current:  next,
		Delta:    delta,
		Tally:    l.Tally(),
	}
}
