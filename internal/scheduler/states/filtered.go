package states

import (
	"github.com/domino14/srs_scheduler/internal/model"
)

// PreviewState is a card studied in a filtered deck that does not
// reschedule. Finished means the card should go back to its home deck.
type PreviewState struct {
	ScheduledSecs uint32
	Finished      bool
}

func (s PreviewState) IntervalKind() IntervalKind { return InSecs(s.ScheduledSecs) }

// RevlogKind reports no entry: previews leave no trace in the review log.
func (s PreviewState) RevlogKind() (model.RevlogReviewKind, bool) {
	return 0, false
}

func (s PreviewState) IsLeech() bool { return false }

func (s PreviewState) NextStates(ctx *StateContext) SchedulingStates {
	step := ctx.PreviewStepSecs
	return SchedulingStates{
		Current: s,
		Again:   previewDelayOrFinish(step),
		Hard:    previewDelayOrFinish(step * 3 / 2),
		Good:    previewDelayOrFinish(step * 2),
		Easy:    PreviewState{Finished: true},
	}
}

func previewDelayOrFinish(secs uint32) PreviewState {
	if secs == 0 {
		return PreviewState{Finished: true}
	}
	return PreviewState{ScheduledSecs: secs}
}

// ReschedulingFilterState wraps the state of a card that sits in a
// filtered deck which reschedules as normal.
type ReschedulingFilterState struct {
	OriginalState NormalState
}

func (s ReschedulingFilterState) IntervalKind() IntervalKind {
	return s.OriginalState.IntervalKind()
}

func (s ReschedulingFilterState) RevlogKind() (model.RevlogReviewKind, bool) {
	return s.OriginalState.RevlogKind()
}

func (s ReschedulingFilterState) IsLeech() bool { return s.OriginalState.IsLeech() }

func (s ReschedulingFilterState) NextStates(ctx *StateContext) SchedulingStates {
	normal := s.OriginalState.NextStates(ctx)
	if !ctx.InFilteredDeck {
		// Marked as filtered but no longer in a filtered deck.
		return normal
	}
	return SchedulingStates{
		Current: s,
		Again:   rewrapFiltered(normal.Again),
		Hard:    rewrapFiltered(normal.Hard),
		Good:    rewrapFiltered(normal.Good),
		Easy:    rewrapFiltered(normal.Easy),
	}
}

// Review states are left bare because reaching review takes the card out
// of the filtered deck.
func rewrapFiltered(state CardState) CardState {
	switch st := state.(type) {
	case ReviewState:
		return st
	case NormalState:
		return ReschedulingFilterState{OriginalState: st}
	}
	return state
}
