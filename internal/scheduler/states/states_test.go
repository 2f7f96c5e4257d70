package states

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/matryer/is"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/domino14/srs_scheduler/internal/model"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestNewCardGoodTwiceGraduates(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()

	first := NewState{Position: 3}.NextStates(ctx)
	is.Equal(first.Current, NewState{Position: 3})
	is.Equal(first.Good, LearnState{RemainingSteps: 1, ScheduledSecs: 600})

	second := first.Good.NextStates(ctx)
	review, ok := second.Good.(ReviewState)
	is.True(ok)
	is.Equal(review.ScheduledDays, uint32(1))
	is.Equal(review.EaseFactor, float32(2.5))
	is.Equal(review.Lapses, uint32(0))
}

func TestLearningButtons(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	next := LearnState{RemainingSteps: 2}.NextStates(ctx)
	is.Equal(next.Again, LearnState{RemainingSteps: 2, ScheduledSecs: 60})
	is.Equal(next.Hard, LearnState{RemainingSteps: 2, ScheduledSecs: 330})
	is.Equal(next.Easy, ReviewState{ScheduledDays: 4, EaseFactor: 2.5})

	// a lone step doubles for hard
	ctx.Steps = LearningSteps{10}
	next = LearnState{RemainingSteps: 1}.NextStates(ctx)
	is.Equal(next.Hard, LearnState{RemainingSteps: 1, ScheduledSecs: 1200})
	_, graduated := next.Good.(ReviewState)
	is.True(graduated)
}

func TestLearningWithoutSteps(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	ctx.Steps = nil
	next := NewState{}.NextStates(ctx)
	// nothing to step through, so even a miss graduates
	is.Equal(next.Again, ReviewState{ScheduledDays: 1, EaseFactor: 2.5})
	is.Equal(next.Hard, ReviewState{ScheduledDays: 1, EaseFactor: 2.5})
	is.Equal(next.Good, ReviewState{ScheduledDays: 1, EaseFactor: 2.5})

	next = LearnState{RemainingSteps: 1, ScheduledSecs: 600}.NextStates(ctx)
	is.Equal(next.Again, ReviewState{ScheduledDays: 1, EaseFactor: 2.5})

	_, ok := ctx.Steps.AgainDelaySecsLearn()
	is.True(!ok)
}

func TestLearningWithoutStepsUsesMemoryModelOnAgain(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	ctx.Steps = nil
	again := model.FsrsMemoryState{Stability: 0.4, Difficulty: 7}
	ctx.FsrsNextStates = &FsrsNextStates{
		Again: FsrsNextState{Memory: again, Interval: 3},
		Hard:  FsrsNextState{Interval: 4},
		Good:  FsrsNextState{Interval: 5},
		Easy:  FsrsNextState{Interval: 9},
	}
	next := NewState{}.NextStates(ctx)
	is.Equal(next.Again, ReviewState{ScheduledDays: 3, EaseFactor: 2.5, MemoryState: &again})
}

func TestStepIndexIgnoresTodayCounter(t *testing.T) {
	is := is.New(t)
	steps := LearningSteps{1, 10}
	is.Equal(steps.index(2), 0)
	is.Equal(steps.index(1002), 0)
	is.Equal(steps.index(2001), 1)
	is.Equal(steps.index(7), 0)
	is.Equal(steps.RemainingForGood(2002), uint32(1))
	is.Equal(steps.CurrentDelaySecs(1), uint32(600))
}

func TestReviewAgainRelearns(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	ctx.LapseMultiplier = 0.5
	current := ReviewState{ScheduledDays: 10, ElapsedDays: 10, EaseFactor: 2.5}

	relearn, ok := current.NextStates(ctx).Again.(RelearnState)
	is.True(ok)
	is.Equal(relearn.Review.ScheduledDays, uint32(5))
	is.Equal(relearn.Review.ElapsedDays, uint32(0))
	is.Equal(relearn.Review.Lapses, uint32(1))
	is.True(approx(relearn.Review.EaseFactor, 2.3))
	is.Equal(relearn.Learning.RemainingSteps, uint32(len(ctx.RelearnSteps)))
	is.Equal(relearn.Learning.ScheduledSecs, uint32(600))

	// zero lapse multiplier still yields a day
	ctx.LapseMultiplier = 0
	relearn = current.NextStates(ctx).Again.(RelearnState)
	is.Equal(relearn.Review.ScheduledDays, uint32(1))

	// no relearning steps keeps the card in review
	ctx.RelearnSteps = nil
	_, ok = current.NextStates(ctx).Again.(ReviewState)
	is.True(ok)
}

func TestReviewEaseFloor(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	current := ReviewState{ScheduledDays: 10, ElapsedDays: 10, EaseFactor: 1.4}
	next := current.NextStates(ctx)
	is.Equal(next.Again.(RelearnState).Review.EaseFactor, MinimumEaseFactor)
	is.Equal(next.Hard.(ReviewState).EaseFactor, MinimumEaseFactor)
}

func TestReviewPassingIntervals(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	next := ReviewState{ScheduledDays: 100, ElapsedDays: 100, EaseFactor: 2.5}.NextStates(ctx)
	is.Equal(next.Hard.(ReviewState).ScheduledDays, uint32(120))
	is.True(approx(next.Hard.(ReviewState).EaseFactor, 2.35))
	is.Equal(next.Good.(ReviewState).ScheduledDays, uint32(250))
	is.Equal(next.Good.(ReviewState).EaseFactor, float32(2.5))
	is.Equal(next.Easy.(ReviewState).ScheduledDays, uint32(325))
	is.True(approx(next.Easy.(ReviewState).EaseFactor, 2.65))

	// half of the lateness counts towards good
	late := ReviewState{ScheduledDays: 10, ElapsedDays: 14, EaseFactor: 2.5}.NextStates(ctx)
	is.Equal(late.Good.(ReviewState).ScheduledDays, uint32(30))

	// the maximum interval caps everything
	ctx.MaximumReviewInterval = 200
	capped := ReviewState{ScheduledDays: 100, ElapsedDays: 100, EaseFactor: 2.5}.NextStates(ctx)
	is.Equal(capped.Good.(ReviewState).ScheduledDays, uint32(200))
	is.Equal(capped.Easy.(ReviewState).ScheduledDays, uint32(200))
}

func TestReviewZeroIntervalCountsAsOneDay(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	next := ReviewState{EaseFactor: 2.5}.NextStates(ctx)
	is.Equal(next.Hard.(ReviewState).ScheduledDays, uint32(1))
	is.Equal(next.Good.(ReviewState).ScheduledDays, uint32(3))
	is.Equal(next.Easy.(ReviewState).ScheduledDays, uint32(4))
}

func TestReviewEarly(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	current := ReviewState{ScheduledDays: 10, ElapsedDays: 5, EaseFactor: 2.5}
	kind, ok := current.RevlogKind()
	is.True(ok)
	is.Equal(kind, model.RevlogFiltered)

	next := current.NextStates(ctx)
	is.Equal(next.Hard.(ReviewState).ScheduledDays, uint32(6))
	is.Equal(next.Good.(ReviewState).ScheduledDays, uint32(13))
	is.Equal(next.Easy.(ReviewState).ScheduledDays, uint32(14))
}

func TestRelearning(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	review := ReviewState{ScheduledDays: 5, EaseFactor: 2.3, Lapses: 1}
	current := RelearnState{Learning: LearnState{RemainingSteps: 1, ScheduledSecs: 600}, Review: review}

	next := current.NextStates(ctx)
	is.Equal(next.Good, review)
	is.Equal(next.Easy.(ReviewState).ScheduledDays, uint32(6))
	is.Equal(next.Hard, RelearnState{Learning: LearnState{RemainingSteps: 1, ScheduledSecs: 1200}, Review: review})
	is.Equal(next.Again, RelearnState{Learning: LearnState{RemainingSteps: 1, ScheduledSecs: 600}, Review: review})
	kind, _ := current.RevlogKind()
	is.Equal(kind, model.RevlogRelearning)
	is.Equal(current.IntervalKind(), InSecs(600))
}

func TestLeechThreshold(t *testing.T) {
	is := is.New(t)
	is.True(!LeechThresholdMet(7, 8))
	is.True(LeechThresholdMet(8, 8))
	is.True(!LeechThresholdMet(9, 8))
	is.True(!LeechThresholdMet(11, 8))
	is.True(LeechThresholdMet(12, 8))
	is.True(LeechThresholdMet(16, 8))
	is.True(!LeechThresholdMet(100, 0))
	is.True(LeechThresholdMet(3, 1))
	is.True(LeechThresholdMet(5, 5))
	is.True(LeechThresholdMet(8, 5))

	ctx := DefaultsForTesting()
	ctx.LeechThreshold = 2
	next := ReviewState{ScheduledDays: 3, ElapsedDays: 3, EaseFactor: 2.5, Lapses: 1}.NextStates(ctx)
	is.True(next.Again.IsLeech())
	is.True(!next.Good.IsLeech())
}

func TestFuzzBounds(t *testing.T) {
	is := is.New(t)
	lo, hi := ConstrainedFuzzBounds(1, 1, 100)
	is.Equal([]uint32{lo, hi}, []uint32{1, 1})
	lo, hi = ConstrainedFuzzBounds(10, 1, 100)
	is.Equal([]uint32{lo, hi}, []uint32{8, 12})
	lo, hi = ConstrainedFuzzBounds(100, 1, 100)
	is.Equal([]uint32{lo, hi}, []uint32{93, 100})
	// a minimum above the range pushes the range up
	lo, hi = ConstrainedFuzzBounds(10, 11, 100)
	is.Equal(lo, uint32(11))
	is.True(hi > lo)

	ctx := DefaultsForTesting()
	zero, nearlyOne := float32(0), float32(0.999)
	ctx.FuzzFactor = &zero
	is.Equal(ctx.WithReviewFuzz(10, 1, 100), uint32(8))
	ctx.FuzzFactor = &nearlyOne
	is.Equal(ctx.WithReviewFuzz(10, 1, 100), uint32(12))
}

func TestFuzzFactorDeterministic(t *testing.T) {
	is := is.New(t)
	a := FuzzFactor(1234, 1_700_000_000, 50)
	is.Equal(a, FuzzFactor(1234, 1_700_000_000, 50))
	is.True(a >= 0 && a < 1)

	differs := false
	for today := uint32(51); today < 60; today++ {
		if FuzzFactor(1234, 1_700_000_000, today) != a {
			differs = true
		}
	}
	is.True(differs)
}

func TestNextStatesDeterministic(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	f := FuzzFactor(99, 1_700_000_123, 400)
	ctx.FuzzFactor = &f
	inputs := []CardState{
		NewState{Position: 1},
		LearnState{RemainingSteps: 1, ScheduledSecs: 600},
		ReviewState{ScheduledDays: 30, ElapsedDays: 33, EaseFactor: 2.2, Lapses: 2},
		RelearnState{Learning: LearnState{RemainingSteps: 1, ScheduledSecs: 600}, Review: ReviewState{ScheduledDays: 3, EaseFactor: 2.0}},
		PreviewState{ScheduledSecs: 60},
		ReschedulingFilterState{OriginalState: ReviewState{ScheduledDays: 8, ElapsedDays: 8, EaseFactor: 2.5}},
	}
	for _, in := range inputs {
		a := in.NextStates(ctx)
		b := in.NextStates(ctx)
		for _, r := range []Rating{Again, Hard, Good, Easy} {
			is.True(Equal(a.ForRating(r), b.ForRating(r)))
		}
	}
}

func TestPreview(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	ctx.PreviewStepSecs = 60
	next := PreviewState{}.NextStates(ctx)
	is.Equal(next.Again, PreviewState{ScheduledSecs: 60})
	is.Equal(next.Hard, PreviewState{ScheduledSecs: 90})
	is.Equal(next.Good, PreviewState{ScheduledSecs: 120})
	is.Equal(next.Easy, PreviewState{Finished: true})
	_, ok := next.Again.RevlogKind()
	is.True(!ok)

	ctx.PreviewStepSecs = 0
	is.Equal(PreviewState{}.NextStates(ctx).Again, PreviewState{Finished: true})
}

func TestReschedulingRewraps(t *testing.T) {
	is := is.New(t)
	ctx := DefaultsForTesting()
	ctx.InFilteredDeck = true
	current := ReschedulingFilterState{OriginalState: LearnState{RemainingSteps: 2, ScheduledSecs: 60}}

	next := current.NextStates(ctx)
	is.Equal(next.Current, current)
	is.Equal(next.Good, ReschedulingFilterState{OriginalState: LearnState{RemainingSteps: 1, ScheduledSecs: 600}})
	is.Equal(next.Easy, ReviewState{ScheduledDays: 4, EaseFactor: 2.5})

	ctx.InFilteredDeck = false
	next = current.NextStates(ctx)
	is.Equal(next.Good, LearnState{RemainingSteps: 1, ScheduledSecs: 600})
}

func TestIntervalKind(t *testing.T) {
	is := is.New(t)
	is.Equal(InSecs(600).MaybeAsDays(3600), InSecs(600))
	is.Equal(InSecs(3600).MaybeAsDays(3600), InDays(1))
	is.Equal(InSecs(3600+secsPerDay).MaybeAsDays(3600), InDays(2))
	is.Equal(InDays(3).MaybeAsDays(10), InDays(3))
	is.Equal(InDays(2).AsSeconds(), uint32(2*secsPerDay))
	is.Equal(InSecs(600).AsRevlogInterval(), int32(-600))
	is.Equal(InDays(4).AsRevlogInterval(), int32(4))
}

func TestWireRoundTrip(t *testing.T) {
	is := is.New(t)
	mem := &model.FsrsMemoryState{Stability: 12.5, Difficulty: 5.25}
	cases := []CardState{
		NewState{},
		NewState{Position: 42},
		LearnState{RemainingSteps: 2002, ScheduledSecs: 600},
		LearnState{RemainingSteps: 1, ScheduledSecs: 60, MemoryState: mem},
		LearnState{MemoryState: &model.FsrsMemoryState{}},
		ReviewState{ScheduledDays: 30, ElapsedDays: 2, EaseFactor: 2.35, Lapses: 4, Leeched: true},
		ReviewState{ScheduledDays: 1, EaseFactor: 2.5, MemoryState: mem},
		RelearnState{
			Learning: LearnState{RemainingSteps: 1, ScheduledSecs: 600},
			Review:   ReviewState{ScheduledDays: 5, EaseFactor: 2.3, Lapses: 1},
		},
		PreviewState{ScheduledSecs: 90},
		PreviewState{Finished: true},
		ReschedulingFilterState{OriginalState: NewState{Position: 7}},
		ReschedulingFilterState{OriginalState: RelearnState{
			Learning: LearnState{RemainingSteps: 1, ScheduledSecs: 600, MemoryState: mem},
			Review:   ReviewState{ScheduledDays: 5, EaseFactor: 2.3, MemoryState: mem},
		}},
	}
	for _, c := range cases {
		decoded, err := Unmarshal(Marshal(c))
		is.NoErr(err)
		is.True(Equal(decoded, c))
	}
}

func TestWireSkipsUnknownFields(t *testing.T) {
	is := is.New(t)
	b := Marshal(ReviewState{ScheduledDays: 3, EaseFactor: 2.5})
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, "custom data")
	decoded, err := Unmarshal(b)
	is.NoErr(err)
	is.Equal(decoded, ReviewState{ScheduledDays: 3, EaseFactor: 2.5})
}

func TestWireRejectsGarbage(t *testing.T) {
	is := is.New(t)
	_, err := Unmarshal([]byte{0xff})
	is.True(errors.Is(err, ErrMalformedState))
	_, err = Unmarshal(nil)
	is.True(errors.Is(err, ErrMalformedState))
}

func TestRatingJSON(t *testing.T) {
	is := is.New(t)
	b, err := json.Marshal(Good)
	is.NoErr(err)
	is.Equal(string(b), `"Good"`)
	var r Rating
	is.NoErr(json.Unmarshal([]byte(`"Hard"`), &r))
	is.Equal(r, Hard)
	is.NoErr(json.Unmarshal([]byte(`4`), &r))
	is.Equal(r, Easy)
	is.True(errors.Is(json.Unmarshal([]byte(`"Meh"`), &r), ErrInvalidRating))
	is.Equal(Rating(9).String(), "Rating(9)")
}

func TestIntervalString(t *testing.T) {
	is := is.New(t)
	is.Equal(InSecs(30).String(), "30s")
	is.Equal(InSecs(600).String(), "10m")
	is.Equal(InSecs(7200).String(), "2h")
	is.Equal(InDays(0).String(), "0d")
	is.Equal(InDays(12).String(), "12d")
	is.Equal(InDays(45).String(), "1.5mo")
	is.Equal(InDays(730).String(), "2.0y")
}
