// Package answering applies a chosen scheduling state to a card.
package answering

import (
	"time"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
	"github.com/domino14/srs_scheduler/internal/scheduler/timing"
)

// CardAnswer is what a client sends after the user presses a button.
// NewState must be the state NextStates returned for Rating.
type CardAnswer struct {
	CardID            model.CardID
	Rating            states.Rating
	CurrentState      states.CardState
	NewState          states.CardState
	AnsweredAt        time.Time
	MillisecondsTaken uint32
	CustomData        string
	// FromQueue is set when the card came from the study queue, which then
	// needs to be advanced.
	FromQueue bool
}

// CardStateUpdater holds a card along with everything needed to schedule
// it. Card is mutated in place by ApplyStudyState.
type CardStateUpdater struct {
	Card   model.Card
	Deck   *model.Deck
	Config *model.DeckConfig
	Timing timing.SchedTimingToday

	fuzzFactor *float32
	fsrsStates *states.FsrsNextStates
}

// NewCardStateUpdater copies card. deck is the deck the card currently
// sits in, and cfg is the preset of its home deck.
func NewCardStateUpdater(card model.Card, deck *model.Deck, cfg *model.DeckConfig,
	t timing.SchedTimingToday, fuzz bool) *CardStateUpdater {

	u := &CardStateUpdater{
		Card:   card.Clone(),
		Deck:   deck,
		Config: cfg,
		Timing: t,
	}
	if fuzz {
		f := states.FuzzFactor(int64(card.ID), card.Mtime, t.DaysElapsed)
		u.fuzzFactor = &f
	}
	if cfg.FsrsEnabled {
		u.fsrsStates = fsrsNextStates(cfg, &u.Card, u.elapsedDays(), t.Now)
	}
	return u
}

// StateContext builds the context the card's states are computed with.
func (u *CardStateUpdater) StateContext() *states.StateContext {
	ctx := states.ContextFromConfig(u.Config)
	ctx.FuzzFactor = u.fuzzFactor
	ctx.FsrsNextStates = u.fsrsStates
	if u.Deck.IsFiltered() {
		ctx.InFilteredDeck = true
		ctx.PreviewStepSecs = u.Deck.Filtered.PreviewDelayMins * 60
	}
	return ctx
}

// CurrentCardState derives the card's state from its stored fields.
func (u *CardStateUpdater) CurrentCardState() states.CardState {
	normal := u.normalStudyState()
	if !u.Deck.IsFiltered() {
		return normal
	}
	if u.Deck.Filtered.Reschedule {
		return states.ReschedulingFilterState{OriginalState: normal}
	}
	return states.PreviewState{}
}

// NextStates is a shortcut for the current state's successors.
func (u *CardStateUpdater) NextStates() states.SchedulingStates {
	return u.CurrentCardState().NextStates(u.StateContext())
}

func (u *CardStateUpdater) due() int64 {
	c := &u.Card
	if u.Deck.IsFiltered() {
		if c.OriginalDue != 0 {
			return c.OriginalDue
		}
		return c.Due
	}
	if c.Type == model.CardTypeReview {
		// Overdue cards count as due today.
		return min(c.Due, int64(u.Timing.DaysElapsed))
	}
	return c.Due
}

func (u *CardStateUpdater) elapsedDays() uint32 {
	c := &u.Card
	if c.Type != model.CardTypeReview && c.Type != model.CardTypeRelearn {
		return 0
	}
	if c.Type == model.CardTypeRelearn {
		return c.Interval
	}
	untilDue := u.due() - int64(u.Timing.DaysElapsed)
	return uint32(max(int64(c.Interval)-untilDue, 0))
}

func (u *CardStateUpdater) normalStudyState() states.NormalState {
	c := &u.Card
	switch c.Type {
	case model.CardTypeLearn:
		return states.LearnState{
			RemainingSteps: c.RemainingSteps,
			ScheduledSecs:  states.LearningSteps(u.Config.LearnSteps).CurrentDelaySecs(c.RemainingSteps),
			MemoryState:    c.MemoryState,
		}
	case model.CardTypeReview:
		return states.ReviewState{
			ScheduledDays: c.Interval,
			ElapsedDays:   u.elapsedDays(),
			EaseFactor:    c.Ease(),
			Lapses:        c.Lapses,
			MemoryState:   c.MemoryState,
		}
	case model.CardTypeRelearn:
		return states.RelearnState{
			Learning: states.LearnState{
				RemainingSteps: c.RemainingSteps,
				ScheduledSecs:  states.LearningSteps(u.Config.RelearnSteps).CurrentDelaySecs(c.RemainingSteps),
				MemoryState:    c.MemoryState,
			},
			Review: states.ReviewState{
				ScheduledDays: c.Interval,
				ElapsedDays:   c.Interval,
				EaseFactor:    c.Ease(),
				Lapses:        c.Lapses,
				MemoryState:   c.MemoryState,
			},
		}
	}
	return states.NewState{Position: uint32(max(u.due(), 0))}
}

// ApplyStudyState moves the card from current to next. It returns the
// review log entry to write, or nil when the answer is not logged.
func (u *CardStateUpdater) ApplyStudyState(current, next states.CardState) (*RevlogEntryPartial, error) {
	revlog := u.revlogPartial(current, next)
	if _, ok := next.(states.PreviewState); !ok {
		u.Card.Reps++
	}

	var err error
	switch st := next.(type) {
	case states.NormalState:
		switch current.(type) {
		case states.PreviewState:
			return nil, errs.InvalidInput("preview cards must finish, not leave the preview state")
		case states.ReschedulingFilterState:
			u.Card.RemoveFromFilteredDeckBeforeReschedule()
		}
		err = u.applyNormalState(current, st)
	case states.PreviewState:
		if err = u.ensureFiltered(); err == nil {
			u.applyPreviewState(st)
		}
	case states.ReschedulingFilterState:
		if err = u.ensureFiltered(); err == nil {
			err = u.applyNormalState(current, st.OriginalState)
		}
	default:
		err = errs.InvalidInput("unknown card state %T", next)
	}
	if err != nil {
		return nil, err
	}

	if next.IsLeech() && u.Config.LeechAction == model.LeechActionSuspend {
		u.Card.Queue = model.QueueSuspended
	}
	return revlog, nil
}

func (u *CardStateUpdater) ensureFiltered() error {
	if !u.Card.InFilteredDeck() {
		return errs.InvalidInput("card %d is not in a filtered deck", u.Card.ID)
	}
	return nil
}

func (u *CardStateUpdater) secsUntilRollover() uint32 {
	return u.Timing.SecsUntilRollover()
}
