package states

import (
	"github.com/domino14/srs_scheduler/internal/model"
)

// NewState is a card that has never been answered. Position orders it
// among the other new cards.
type NewState struct {
	Position uint32
}

func (s NewState) IntervalKind() IntervalKind { return InDays(0) }

func (s NewState) RevlogKind() (model.RevlogReviewKind, bool) {
	return model.RevlogLearning, true
}

func (s NewState) IsLeech() bool { return false }

// NextStates treats the card as a learning card that has just failed,
// while still reporting New as the current state.
func (s NewState) NextStates(ctx *StateContext) SchedulingStates {
	next := LearnState{RemainingSteps: ctx.Steps.RemainingForFailed()}.NextStates(ctx)
	next.Current = s
	return next
}

type LearnState struct {
	RemainingSteps uint32
	ScheduledSecs  uint32
	MemoryState    *model.FsrsMemoryState
}

func (s LearnState) IntervalKind() IntervalKind { return InSecs(s.ScheduledSecs) }

func (s LearnState) RevlogKind() (model.RevlogReviewKind, bool) {
	return model.RevlogLearning, true
}

func (s LearnState) IsLeech() bool { return false }

func (s LearnState) NextStates(ctx *StateContext) SchedulingStates {
	return SchedulingStates{
		Current: s,
		Again:   s.answerAgain(ctx),
		Hard:    s.answerHard(ctx),
		Good:    s.answerGood(ctx),
		Easy:    s.answerEasy(ctx),
	}
}

func (s LearnState) answerAgain(ctx *StateContext) CardState {
	memory := ctx.fsrsMemory(Again)
	if delay, ok := ctx.Steps.AgainDelaySecsLearn(); ok {
		return LearnState{
			RemainingSteps: ctx.Steps.RemainingForFailed(),
			ScheduledSecs:  delay,
			MemoryState:    memory,
		}
	}
	interval := float32(ctx.GraduatingIntervalGood)
	if ctx.FsrsNextStates != nil {
		interval = ctx.FsrsNextStates.Again.Interval
	}
	return ctx.graduate(interval, 1, memory)
}

func (s LearnState) answerHard(ctx *StateContext) CardState {
	memory := ctx.fsrsMemory(Hard)
	if delay, ok := ctx.Steps.HardDelaySecs(s.RemainingSteps); ok {
		return LearnState{
			RemainingSteps: s.RemainingSteps,
			ScheduledSecs:  delay,
			MemoryState:    memory,
		}
	}
	interval := float32(ctx.GraduatingIntervalGood)
	if ctx.FsrsNextStates != nil {
		interval = ctx.FsrsNextStates.Hard.Interval
	}
	return ctx.graduate(interval, 1, memory)
}

func (s LearnState) answerGood(ctx *StateContext) CardState {
	memory := ctx.fsrsMemory(Good)
	if delay, ok := ctx.Steps.GoodDelaySecs(s.RemainingSteps); ok {
		return LearnState{
			RemainingSteps: ctx.Steps.RemainingForGood(s.RemainingSteps),
			ScheduledSecs:  delay,
			MemoryState:    memory,
		}
	}
	interval := float32(ctx.GraduatingIntervalGood)
	if ctx.FsrsNextStates != nil {
		interval = ctx.FsrsNextStates.Good.Interval
	}
	return ctx.graduate(interval, 1, memory)
}

func (s LearnState) answerEasy(ctx *StateContext) ReviewState {
	minimum := uint32(1)
	interval := float32(ctx.GraduatingIntervalEasy)
	if ctx.FsrsNextStates != nil {
		lo, hi := ctx.MinAndMaxReviewIntervals(1)
		minimum = ctx.WithReviewFuzz(ctx.FsrsNextStates.Good.Interval, lo, hi) + 1
		interval = ctx.FsrsNextStates.Easy.Interval
	}
	return ctx.graduate(interval, minimum, ctx.fsrsMemory(Easy))
}

func (c *StateContext) graduate(interval float32, minimum uint32, memory *model.FsrsMemoryState) ReviewState {
	lo, hi := c.MinAndMaxReviewIntervals(minimum)
	return ReviewState{
		ScheduledDays: c.WithReviewFuzz(interval, lo, hi),
		EaseFactor:    c.InitialEase,
		MemoryState:   memory,
	}
}

// RelearnState is a lapsed review card working through relearning steps.
// Review holds the state it returns to once the steps are done.
type RelearnState struct {
	Learning LearnState
	Review   ReviewState
}

func (s RelearnState) IntervalKind() IntervalKind { return s.Learning.IntervalKind() }

func (s RelearnState) RevlogKind() (model.RevlogReviewKind, bool) {
	return model.RevlogRelearning, true
}

func (s RelearnState) IsLeech() bool { return s.Review.Leeched }

func (s RelearnState) NextStates(ctx *StateContext) SchedulingStates {
	return SchedulingStates{
		Current: s,
		Again:   s.answerAgain(ctx),
		Hard:    s.answerHard(ctx),
		Good:    s.answerGood(ctx),
		Easy:    s.answerEasy(ctx),
	}
}

func (s RelearnState) answerAgain(ctx *StateContext) CardState {
	memory := ctx.fsrsMemory(Again)
	review := s.Review
	review.ElapsedDays = 0
	review.MemoryState = memory
	if ctx.FsrsNextStates != nil {
		review.ScheduledDays = max(roundU32(ctx.FsrsNextStates.Again.Interval), 1)
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

func (s RelearnState) answerHard(ctx *StateContext) CardState {
	memory := ctx.fsrsMemory(Hard)
	review := s.Review
	review.ElapsedDays = 0
	review.MemoryState = memory
	if delay, ok := ctx.RelearnSteps.HardDelaySecs(s.Learning.RemainingSteps); ok {
		return RelearnState{
			Learning: LearnState{
				RemainingSteps: s.Learning.RemainingSteps,
				ScheduledSecs:  delay,
				MemoryState:    memory,
			},
			Review: review,
		}
	}
	if ctx.FsrsNextStates != nil {
		lo, hi := ctx.MinAndMaxReviewIntervals(1)
		review.ScheduledDays = ctx.WithReviewFuzz(ctx.FsrsNextStates.Hard.Interval, lo, hi)
	}
	return review
}

func (s RelearnState) answerGood(ctx *StateContext) CardState {
	memory := ctx.fsrsMemory(Good)
	review := s.Review
	review.ElapsedDays = 0
	review.MemoryState = memory
	if delay, ok := ctx.RelearnSteps.GoodDelaySecs(s.Learning.RemainingSteps); ok {
		return RelearnState{
			Learning: LearnState{
				RemainingSteps: ctx.RelearnSteps.RemainingForGood(s.Learning.RemainingSteps),
				ScheduledSecs:  delay,
				MemoryState:    memory,
			},
			Review: review,
		}
	}
	if ctx.FsrsNextStates != nil {
		lo, hi := ctx.MinAndMaxReviewIntervals(1)
		review.ScheduledDays = ctx.WithReviewFuzz(ctx.FsrsNextStates.Good.Interval, lo, hi)
	}
	return review
}

func (s RelearnState) answerEasy(ctx *StateContext) ReviewState {
	review := s.Review
	review.ElapsedDays = 0
	review.MemoryState = ctx.fsrsMemory(Easy)
	if ctx.FsrsNextStates != nil {
		lo, hi := ctx.MinAndMaxReviewIntervals(1)
		review.ScheduledDays = ctx.WithReviewFuzz(ctx.FsrsNextStates.Easy.Interval, lo, hi)
	} else {
		review.ScheduledDays++
	}
	return review
}
