package answering

import (
	"math"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
)

func (u *CardStateUpdater) applyNormalState(current states.CardState, next states.NormalState) error {
	switch st := next.(type) {
	case states.NewState:
		u.applyNewState(st)
	case states.LearnState:
		u.applyLearningState(current, st)
	case states.ReviewState:
		u.applyReviewState(current, st)
	case states.RelearnState:
		u.applyRelearningState(st)
	default:
		return errs.InvalidInput("unknown normal state %T", next)
	}
	return nil
}

func (u *CardStateUpdater) applyNewState(next states.NewState) {
	c := &u.Card
	c.Type = model.CardTypeNew
	c.Queue = model.QueueNew
	c.Due = int64(next.Position)
	c.Interval = 0
	c.RemainingSteps = 0
	c.MemoryState = nil
}

func (u *CardStateUpdater) applyLearningState(current states.CardState, next states.LearnState) {
	c := &u.Card
	c.RemainingSteps = next.RemainingSteps
	c.Type = model.CardTypeLearn
	if pos, ok := newPosition(current); ok {
		c.OriginalPos = &pos
	}
	c.MemoryState = next.MemoryState
	u.setLearningDue(next.IntervalKind())
}

func (u *CardStateUpdater) applyReviewState(current states.CardState, next states.ReviewState) {
	c := &u.Card
	c.RemoveFromFilteredDeckBeforeReschedule()
	c.Type = model.CardTypeReview
	c.Queue = model.QueueReview
	c.Interval = next.ScheduledDays
	c.Due = int64(u.Timing.DaysElapsed) + int64(next.ScheduledDays)
	c.EaseFactor = easeToStored(next.EaseFactor)
	c.Lapses = next.Lapses
	c.RemainingSteps = 0
	c.MemoryState = next.MemoryState
	if pos, ok := newPosition(current); ok {
		c.OriginalPos = &pos
	}
}

func (u *CardStateUpdater) applyRelearningState(next states.RelearnState) {
	c := &u.Card
	c.Interval = next.Review.ScheduledDays
	c.RemainingSteps = next.Learning.RemainingSteps
	c.Type = model.CardTypeRelearn
	c.Lapses = next.Review.Lapses
	c.EaseFactor = easeToStored(next.Review.EaseFactor)
	c.MemoryState = next.Learning.MemoryState
	u.setLearningDue(next.IntervalKind())
}

func (u *CardStateUpdater) applyPreviewState(next states.PreviewState) {
	c := &u.Card
	if next.Finished {
		c.RemoveFromFilteredDeckRestoringQueue()
		return
	}
	c.Queue = model.QueuePreview
	c.Due = u.Timing.Now.Unix() + int64(next.ScheduledSecs)
}

// setLearningDue places a learning card in the intraday queue, or the
// interday one when its delay reaches past the next rollover.
func (u *CardStateUpdater) setLearningDue(interval states.IntervalKind) {
	c := &u.Card
	interval = interval.MaybeAsDays(u.secsUntilRollover())
	if interval.IsDays() {
		c.Queue = model.QueueDayLearn
		c.Due = int64(u.Timing.DaysElapsed) + int64(interval.Days())
		return
	}
	c.Queue = model.QueueLearn
	c.Due = u.Timing.Now.Unix() + int64(interval.Secs())
}

func newPosition(s states.CardState) (uint32, bool) {
	if r, ok := s.(states.ReschedulingFilterState); ok {
		s = r.OriginalState
	}
	if n, ok := s.(states.NewState); ok {
		return n.Position, true
	}
	return 0, false
}

func easeToStored(ease float32) uint16 {
	return uint16(math.Round(float64(ease) * 1000))
}
