package answering

import (
	"time"

	"github.com/open-spaced-repetition/go-fsrs/v3"

	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
)

const day = 24 * time.Hour

func fsrsParams(cfg *model.DeckConfig) fsrs.Parameters {
	p := fsrs.DefaultParam()
	p.RequestRetention = float64(cfg.DesiredRetention)
	p.MaximumInterval = float64(cfg.MaximumReviewInterval)
	// Fuzz is applied by the scheduler, and learning steps come from the
	// preset.
	p.EnableFuzz = false
	p.EnableShortTerm = false
	if len(cfg.FsrsWeights) > 0 {
		copy(p.W[:], cfg.FsrsWeights)
	}
	return p
}

// fsrsNextStates asks the memory model where each rating would leave card.
// Cards without a memory state are treated as new.
func fsrsNextStates(cfg *model.DeckConfig, card *model.Card, elapsedDays uint32, now time.Time) *states.FsrsNextStates {
	f := fsrs.NewFSRS(fsrsParams(cfg))
	rec := f.Repeat(toFsrsCard(card, elapsedDays, now), now)
	next := func(r fsrs.Rating) states.FsrsNextState {
		c := rec[r].Card
		return states.FsrsNextState{
			Memory: model.FsrsMemoryState{
				Stability:  float32(c.Stability),
				Difficulty: float32(c.Difficulty),
			},
			Interval: float32(c.ScheduledDays),
		}
	}
	return &states.FsrsNextStates{
		Again: next(fsrs.Again),
		Hard:  next(fsrs.Hard),
		Good:  next(fsrs.Good),
		Easy:  next(fsrs.Easy),
	}
}

func toFsrsCard(card *model.Card, elapsedDays uint32, now time.Time) fsrs.Card {
	fc := fsrs.NewCard()
	if card.MemoryState != nil {
		fc.State = fsrs.Review
		fc.Stability = float64(card.MemoryState.Stability)
		fc.Difficulty = float64(card.MemoryState.Difficulty)
		fc.Reps = uint64(card.Reps)
		fc.Lapses = uint64(card.Lapses)
		fc.ElapsedDays = uint64(elapsedDays)
		fc.ScheduledDays = uint64(card.Interval)
		fc.LastReview = now.Add(-time.Duration(elapsedDays) * day)
	}
	return fc
}

// Retrievability is the predicted chance of recalling the card now. It is
// zero for cards without a memory state.
func (u *CardStateUpdater) Retrievability() float64 {
	if u.Card.MemoryState == nil {
		return 0
	}
	f := fsrs.NewFSRS(fsrsParams(u.Config))
	return f.GetRetrievability(toFsrsCard(&u.Card, u.elapsedDays(), u.Timing.Now), u.Timing.Now)
}
