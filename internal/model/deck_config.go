package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/domino14/srs_scheduler/internal/errs"
)

type NewCardOrder uint8

const (
	NewCardOrderDue NewCardOrder = iota
	NewCardOrderRandom
)

type ReviewCardOrder uint8

const (
	ReviewOrderShuffledByDay ReviewCardOrder = iota
	ReviewOrderShuffled
	ReviewOrderIntervalsAscending
	ReviewOrderIntervalsDescending
)

// ReviewMix controls how new cards and interday learning cards are merged
// with reviews.
type ReviewMix uint8

const (
	ReviewMixWithReviews ReviewMix = iota
	ReviewMixAfterReviews
	ReviewMixBeforeReviews
)

type LeechAction uint8

const (
	LeechActionSuspend LeechAction = iota
	LeechActionTagOnly
)

// DeckConfig is a preset shared by any number of decks. Steps are in
// minutes.
type DeckConfig struct {
	ID    DeckConfigID `json:"id"`
	Name  string       `json:"name" validate:"required"`
	Mtime int64        `json:"mtime"`
	Usn   Usn          `json:"usn"`

	LearnSteps   []float32 `json:"learn_steps" validate:"dive,gt=0"`
	RelearnSteps []float32 `json:"relearn_steps" validate:"dive,gt=0"`

	NewPerDay     uint32 `json:"new_per_day"`
	ReviewsPerDay uint32 `json:"reviews_per_day"`

	GraduatingIntervalGood uint32  `json:"graduating_interval_good" validate:"min=1"`
	GraduatingIntervalEasy uint32  `json:"graduating_interval_easy" validate:"min=1"`
	InitialEase            float32 `json:"initial_ease" validate:"gte=1.3,lte=5"`
	EasyMultiplier         float32 `json:"easy_multiplier" validate:"gte=1,lte=5"`
	HardMultiplier         float32 `json:"hard_multiplier" validate:"gte=0.5,lte=1.3"`
	LapseMultiplier        float32 `json:"lapse_multiplier" validate:"gte=0,lte=1"`
	IntervalMultiplier     float32 `json:"interval_multiplier" validate:"gt=0,lte=2"`
	MaximumReviewInterval  uint32  `json:"maximum_review_interval" validate:"min=1"`
	MinimumLapseInterval   uint32  `json:"minimum_lapse_interval" validate:"min=1"`

	LeechThreshold uint32      `json:"leech_threshold"`
	LeechAction    LeechAction `json:"leech_action" validate:"lte=1"`

	BuryNew              bool `json:"bury_new"`
	BuryReviews          bool `json:"bury_reviews"`
	BuryInterdayLearning bool `json:"bury_interday_learning"`

	NewCardOrder        NewCardOrder    `json:"new_card_order" validate:"lte=1"`
	ReviewOrder         ReviewCardOrder `json:"review_order" validate:"lte=3"`
	NewMix              ReviewMix       `json:"new_mix" validate:"lte=2"`
	InterdayLearningMix ReviewMix       `json:"interday_learning_mix" validate:"lte=2"`

	CapAnswerTimeToSecs uint32 `json:"cap_answer_time_to_secs"`

	FsrsEnabled      bool      `json:"fsrs_enabled"`
	DesiredRetention float32   `json:"desired_retention" validate:"gte=0.7,lte=0.99"`
	FsrsWeights      []float64 `json:"fsrs_weights,omitempty" validate:"omitempty,min=17,max=21"`
}

// DefaultDeckConfig returns the stock preset.
func DefaultDeckConfig() DeckConfig {
	return DeckConfig{
		ID:                     DefaultDeckConfigID,
		Name:                   "Default",
		LearnSteps:             []float32{1, 10},
		RelearnSteps:           []float32{10},
		NewPerDay:              20,
		ReviewsPerDay:          200,
		GraduatingIntervalGood: 1,
		GraduatingIntervalEasy: 4,
		InitialEase:            2.5,
		EasyMultiplier:         1.3,
		HardMultiplier:         1.2,
		LapseMultiplier:        0,
		IntervalMultiplier:     1,
		MaximumReviewInterval:  36500,
		MinimumLapseInterval:   1,
		LeechThreshold:         8,
		LeechAction:            LeechActionTagOnly,
		CapAnswerTimeToSecs:    60,
		DesiredRetention:       0.9,
	}
}

func (c DeckConfig) Clone() DeckConfig {
	c.LearnSteps = slices.Clone(c.LearnSteps)
	c.RelearnSteps = slices.Clone(c.RelearnSteps)
	c.FsrsWeights = slices.Clone(c.FsrsWeights)
	return c
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks the config's bounds. Failures are InvalidInput errors
// naming every offending field.
func (c *DeckConfig) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.InvalidInput("deck config: %v", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
	return errs.InvalidInput("deck config: %s", strings.Join(msgs, "; "))
}
