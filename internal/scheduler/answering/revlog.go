package answering

import (
	"time"

	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
)

// RevlogEntryPartial is the part of a review log entry that depends on the
// state transition alone.
type RevlogEntryPartial struct {
	Interval     states.IntervalKind
	LastInterval states.IntervalKind
	// EaseFactor is the multiplier of the next state, or zero for states
	// without one.
	EaseFactor float32
	ReviewKind model.RevlogReviewKind
}

func (u *CardStateUpdater) revlogPartial(current, next states.CardState) *RevlogEntryPartial {
	kind, ok := current.RevlogKind()
	if !ok {
		return nil
	}
	secs := u.secsUntilRollover()
	return &RevlogEntryPartial{
		Interval:     next.IntervalKind().MaybeAsDays(secs),
		LastInterval: current.IntervalKind().MaybeAsDays(secs),
		EaseFactor:   reviewEase(next),
		ReviewKind:   kind,
	}
}

func reviewEase(s states.CardState) float32 {
	switch st := s.(type) {
	case states.ReviewState:
		return st.EaseFactor
	case states.RelearnState:
		return st.Review.EaseFactor
	case states.ReschedulingFilterState:
		return reviewEase(st.OriginalState)
	}
	return 0
}

// IntoRevlogEntry fills in the fields known only at answer time. The id is
// the answer time in milliseconds; callers bump it on collision.
func (p *RevlogEntryPartial) IntoRevlogEntry(usn model.Usn, cardID model.CardID,
	button states.Rating, answeredAt time.Time, takenMillis uint32) model.RevlogEntry {

	return model.RevlogEntry{
		ID:           model.RevlogID(answeredAt.UnixMilli()),
		CardID:       cardID,
		Usn:          usn,
		ButtonChosen: uint8(button),
		Interval:     p.Interval.AsRevlogInterval(),
		LastInterval: p.LastInterval.AsRevlogInterval(),
		EaseFactor:   uint32(easeToStored(p.EaseFactor)),
		TakenMillis:  takenMillis,
		ReviewKind:   p.ReviewKind,
	}
}
