package states

import (
	"github.com/domino14/srs_scheduler/internal/model"
)

type ReviewState struct {
	ScheduledDays uint32
	ElapsedDays   uint32
	EaseFactor    float32
	Lapses        uint32
	Leeched       bool
	MemoryState   *model.FsrsMemoryState
}

func (s ReviewState) DaysLate() int32 {
	return int32(s.ElapsedDays) - int32(s.ScheduledDays)
}

func (s ReviewState) IntervalKind() IntervalKind { return InDays(s.ScheduledDays) }

// RevlogKind logs early reviews as filtered, since they can only happen
// from a filtered deck.
func (s ReviewState) RevlogKind() (model.RevlogReviewKind, bool) {
	if s.DaysLate() < 0 {
		return model.RevlogFiltered, true
	}
	return model.RevlogReview, true
}

func (s ReviewState) IsLeech() bool { return s.Leeched }

func (s ReviewState) NextStates(ctx *StateContext) SchedulingStates {
	hard, good, easy := s.passingIntervals(ctx)
	return SchedulingStates{
		Current: s,
		Again:   s.answerAgain(ctx),
		Hard:    s.answerHard(hard, ctx),
		Good:    s.answerGood(good, ctx),
		Easy:    s.answerEasy(easy, ctx),
	}
}

func (s ReviewState) answerAgain(ctx *StateContext) CardState {
	lapses := s.Lapses + 1
	memory := ctx.fsrsMemory(Again)
	review := ReviewState{
		ScheduledDays: s.failingInterval(ctx),
		EaseFactor:    max(s.EaseFactor+easeFactorAgain, MinimumEaseFactor),
		Lapses:        lapses,
		Leeched:       LeechThresholdMet(lapses, ctx.LeechThreshold),
		MemoryState:   memory,
	}
	if delay, ok := ctx.RelearnSteps.AgainDelaySecsRelearn(); ok {
		return RelearnState{
			Learning: LearnState{
				RemainingSteps: ctx.RelearnSteps.RemainingForFailed(),
				ScheduledSecs:  delay,
				MemoryState:    memory,
			},
			Review: review,
		}
	}
	return review
}

func (s ReviewState) answerHard(days uint32, ctx *StateContext) ReviewState {
	s.ScheduledDays = days
	s.ElapsedDays = 0
	s.EaseFactor = max(s.EaseFactor+easeFactorHard, MinimumEaseFactor)
	s.MemoryState = ctx.fsrsMemory(Hard)
	return s
}

func (s ReviewState) answerGood(days uint32, ctx *StateContext) ReviewState {
	s.ScheduledDays = days
	s.ElapsedDays = 0
	s.MemoryState = ctx.fsrsMemory(Good)
	return s
}

func (s ReviewState) answerEasy(days uint32, ctx *StateContext) ReviewState {
	s.ScheduledDays = days
	s.ElapsedDays = 0
	s.EaseFactor += easeFactorEasy
	s.MemoryState = ctx.fsrsMemory(Easy)
	return s
}

func (s ReviewState) failingInterval(ctx *StateContext) uint32 {
	if ctx.FsrsNextStates != nil {
		// Fuzz is applied when the card leaves relearning.
		return max(roundU32(ctx.FsrsNextStates.Again.Interval), 1)
	}
	lo, hi := ctx.MinAndMaxReviewIntervals(ctx.MinimumLapseInterval)
	interval := float32(max(s.ScheduledDays, 1)) * ctx.LapseMultiplier
	return max(ctx.WithReviewFuzz(interval, lo, hi), 1)
}

func (s ReviewState) passingIntervals(ctx *StateContext) (uint32, uint32, uint32) {
	switch {
	case ctx.FsrsNextStates != nil:
		return s.passingFsrsIntervals(ctx)
	case s.DaysLate() < 0:
		return s.passingEarlyIntervals(ctx)
	}
	return s.passingNonEarlyIntervals(ctx)
}

func (s ReviewState) passingNonEarlyIntervals(ctx *StateContext) (uint32, uint32, uint32) {
	current := float32(max(s.ScheduledDays, 1))
	daysLate := float32(max(s.DaysLate(), 0))

	hardMinimum := s.ScheduledDays + 1
	if ctx.HardMultiplier <= 1 {
		hardMinimum = 0
	}
	hard := ctx.constrainPassingInterval(current*ctx.HardMultiplier, hardMinimum, true)

	goodMinimum := hard + 1
	if ctx.HardMultiplier <= 1 {
		goodMinimum = s.ScheduledDays + 1
	}
	good := ctx.constrainPassingInterval((current+daysLate/2)*s.EaseFactor, goodMinimum, true)

	easy := ctx.constrainPassingInterval((current+daysLate)*s.EaseFactor*ctx.EasyMultiplier, good+1, true)
	return hard, good, easy
}

// Early reviews base the new interval on the time actually elapsed, and
// never shrink below the current interval for good or easy.
func (s ReviewState) passingEarlyIntervals(ctx *StateContext) (uint32, uint32, uint32) {
	scheduled := float32(max(s.ScheduledDays, 1))
	elapsed := float32(s.ElapsedDays)

	hard := ctx.constrainPassingInterval(
		max(elapsed*ctx.HardMultiplier, scheduled*ctx.HardMultiplier/2), 0, false)
	good := ctx.constrainPassingInterval(max(elapsed*s.EaseFactor, scheduled), 0, false)
	reducedBonus := ctx.EasyMultiplier - (ctx.EasyMultiplier-1)/2
	easy := ctx.constrainPassingInterval(max(elapsed*s.EaseFactor, scheduled)*reducedBonus, 0, false)
	return hard, good, easy
}

func (s ReviewState) passingFsrsIntervals(ctx *StateContext) (uint32, uint32, uint32) {
	states := ctx.FsrsNextStates
	hard := ctx.constrainPassingInterval(states.Hard.Interval, 1, true)
	good := ctx.constrainPassingInterval(states.Good.Interval, hard+1, true)
	easy := ctx.constrainPassingInterval(states.Easy.Interval, good+1, true)
	return hard, good, easy
}

// constrainPassingInterval applies the interval multiplier (SM-2 only),
// then fuzz, then the [minimum, maximum] bounds.
func (c *StateContext) constrainPassingInterval(interval float32, minimum uint32, fuzz bool) uint32 {
	if c.FsrsNextStates == nil {
		interval *= c.IntervalMultiplier
	}
	lo, hi := c.MinAndMaxReviewIntervals(minimum)
	if fuzz {
		return c.WithReviewFuzz(interval, lo, hi)
	}
	return clampU32(roundU32(interval), lo, hi)
}
