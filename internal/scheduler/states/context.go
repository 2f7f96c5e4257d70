package states

import (
	"github.com/domino14/srs_scheduler/internal/model"
)

const (
	InitialEaseFactor  float32 = 2.5
	MinimumEaseFactor  float32 = 1.3
	easeFactorAgain    float32 = -0.2
	easeFactorHard     float32 = -0.15
	easeFactorEasy     float32 = 0.15
	defaultPreviewSecs uint32  = 600
)

// FsrsNextState is one rating's outcome according to the memory model.
type FsrsNextState struct {
	Memory   model.FsrsMemoryState
	Interval float32
}

type FsrsNextStates struct {
	Again FsrsNextState
	Hard  FsrsNextState
	Good  FsrsNextState
	Easy  FsrsNextState
}

// StateContext is everything a state needs to compute its successors. It
// is built once per answer and never mutated.
type StateContext struct {
	// FuzzFactor is in [0, 1). Nil disables fuzz.
	FuzzFactor *float32

	Steps                  LearningSteps
	GraduatingIntervalGood uint32
	GraduatingIntervalEasy uint32
	InitialEase            float32

	HardMultiplier        float32
	EasyMultiplier        float32
	IntervalMultiplier    float32
	MaximumReviewInterval uint32
	LeechThreshold        uint32

	RelearnSteps         LearningSteps
	LapseMultiplier      float32
	MinimumLapseInterval uint32

	InFilteredDeck  bool
	PreviewStepSecs uint32

	// FsrsNextStates is set when the card's preset has FSRS enabled.
	FsrsNextStates *FsrsNextStates
}

// ContextFromConfig builds a context from a deck preset. Fuzz, filtered
// deck options and FSRS states are left for the caller.
func ContextFromConfig(cfg *model.DeckConfig) *StateContext {
	return &StateContext{
		Steps:                  LearningSteps(cfg.LearnSteps),
		GraduatingIntervalGood: cfg.GraduatingIntervalGood,
		GraduatingIntervalEasy: cfg.GraduatingIntervalEasy,
		InitialEase:            cfg.InitialEase,
		HardMultiplier:         cfg.HardMultiplier,
		EasyMultiplier:         cfg.EasyMultiplier,
		IntervalMultiplier:     cfg.IntervalMultiplier,
		MaximumReviewInterval:  cfg.MaximumReviewInterval,
		LeechThreshold:         cfg.LeechThreshold,
		RelearnSteps:           LearningSteps(cfg.RelearnSteps),
		LapseMultiplier:        cfg.LapseMultiplier,
		MinimumLapseInterval:   cfg.MinimumLapseInterval,
		PreviewStepSecs:        defaultPreviewSecs,
	}
}

// DefaultsForTesting mirrors the stock preset with fuzz disabled.
func DefaultsForTesting() *StateContext {
	cfg := model.DefaultDeckConfig()
	ctx := ContextFromConfig(&cfg)
	ctx.PreviewStepSecs = 60
	return ctx
}

// MinAndMaxReviewIntervals clamps minimum into [1, max].
func (c *StateContext) MinAndMaxReviewIntervals(minimum uint32) (uint32, uint32) {
	maximum := max(c.MaximumReviewInterval, 1)
	return min(max(minimum, 1), maximum), maximum
}

func (c *StateContext) fsrsMemory(r Rating) *model.FsrsMemoryState {
	if c.FsrsNextStates == nil {
		return nil
	}
	var m model.FsrsMemoryState
	switch r {
	case Again:
		m = c.FsrsNextStates.Again.Memory
	case Hard:
		m = c.FsrsNextStates.Hard.Memory
	case Good:
		m = c.FsrsNextStates.Good.Memory
	case Easy:
		m = c.FsrsNextStates.Easy.Memory
	}
	return &m
}

// LeechThresholdMet fires at the threshold and then every half-threshold
// lapses after it. A zero threshold disables leech detection.
func LeechThresholdMet(lapses, threshold uint32) bool {
	if threshold == 0 {
		return false
	}
	half := max((threshold+1)/2, 1)
	return lapses >= threshold && (lapses-threshold)%half == 0
}
