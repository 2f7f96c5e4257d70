// Package states models a card's scheduling state and computes the four
// states an answer can lead to.
//
// The variants form closed sums: CardState is either a NormalState or a
// FilteredState, and each of those has a fixed set of implementations in
// this package. Consumers use exhaustive type switches over the concrete
// types.
package states

import (
	"reflect"

	"github.com/domino14/srs_scheduler/internal/model"
)

type CardState interface {
	// IntervalKind is the delay until the card is next due.
	IntervalKind() IntervalKind
	// RevlogKind is how an answer given in this state is logged. ok is
	// false when no log entry should be written.
	RevlogKind() (kind model.RevlogReviewKind, ok bool)
	NextStates(ctx *StateContext) SchedulingStates
	// IsLeech reports whether reaching this state makes the card a leech.
	IsLeech() bool
	isCardState()
}

type NormalState interface {
	CardState
	isNormalState()
}

type FilteredState interface {
	CardState
	isFilteredState()
}

// SchedulingStates holds the current state and the state each rating
// leads to.
type SchedulingStates struct {
	Current CardState
	Again   CardState
	Hard    CardState
	Good    CardState
	Easy    CardState
}

func (s SchedulingStates) ForRating(r Rating) CardState {
	switch r {
	case Again:
		return s.Again
	case Hard:
		return s.Hard
	case Good:
		return s.Good
	case Easy:
		return s.Easy
	}
	return nil
}

// Equal compares states by value, including optional memory states.
func Equal(a, b CardState) bool {
	return reflect.DeepEqual(a, b)
}

func (NewState) isCardState()                {}
func (LearnState) isCardState()              {}
func (ReviewState) isCardState()             {}
func (RelearnState) isCardState()            {}
func (PreviewState) isCardState()            {}
func (ReschedulingFilterState) isCardState() {}

func (NewState) isNormalState()     {}
func (LearnState) isNormalState()   {}
func (ReviewState) isNormalState()  {}
func (RelearnState) isNormalState() {}

func (PreviewState) isFilteredState()            {}
func (ReschedulingFilterState) isFilteredState() {}

var (
	_ NormalState   = NewState{}
	_ NormalState   = LearnState{}
	_ NormalState   = ReviewState{}
	_ NormalState   = RelearnState{}
	_ FilteredState = PreviewState{}
	_ FilteredState = ReschedulingFilterState{}
)
