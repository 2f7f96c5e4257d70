package collection

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/stores"
)

type BuryOrSuspendMode uint8

const (
	Suspend BuryOrSuspendMode = iota
	BuryUser
	BurySched
)

func (m BuryOrSuspendMode) queue() model.CardQueue {
	switch m {
	case BuryUser:
		return model.QueueUserBuried
	case BurySched:
		return model.QueueSchedBuried
	}
	return model.QueueSuspended
}

type UnburyMode uint8

const (
	UnburyAll UnburyMode = iota
	UnburyUserOnly
	UnburySchedOnly
)

func (m UnburyMode) queues() []model.CardQueue {
	switch m {
	case UnburyUserOnly:
		return []model.CardQueue{model.QueueUserBuried}
	case UnburySchedOnly:
		return []model.CardQueue{model.QueueSchedBuried}
	}
	return []model.CardQueue{model.QueueUserBuried, model.QueueSchedBuried}
}

// BuryOrSuspendCards moves the cards out of the study queues. It returns
// how many cards changed.
func (c *Collection) BuryOrSuspendCards(ctx context.Context, ids []model.CardID, mode BuryOrSuspendMode) (OpOutput[int], error) {
	op := OpBury
	if mode == Suspend {
		op = OpSuspend
	}
	target := mode.queue()
	return transact(ctx, c, op, func(ctx context.Context) (int, error) {
		if err := validCardIDs(ids); err != nil {
			return 0, err
		}
		if mode != Suspend {
			t, err := c.TimingToday(ctx)
			if err != nil {
				return 0, err
			}
			if err := c.unburyStale(ctx, t.DaysElapsed); err != nil {
				return 0, err
			}
		}
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, id := range ids {
			if err := c.checkAbort(); err != nil {
				return 0, err
			}
			card, err := c.storage.GetCard(ctx, id)
			if err != nil {
				return 0, err
			}
			if card.Queue == target {
				continue
			}
			original := card.Clone()
			card.Queue = target
			if err := c.updateCard(ctx, card, &original, usn); err != nil {
				return 0, err
			}
			n++
		}
		return n, nil
	})
}

// UnsuspendCards restores suspended cards to their type's queue.
func (c *Collection) UnsuspendCards(ctx context.Context, ids []model.CardID) (OpOutput[int], error) {
	return transact(ctx, c, OpUnbury, func(ctx context.Context) (int, error) {
		if err := validCardIDs(ids); err != nil {
			return 0, err
		}
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return 0, err
		}
		n := 0
		for _, id := range ids {
			card, err := c.storage.GetCard(ctx, id)
			if err != nil {
				return 0, err
			}
			if card.Queue != model.QueueSuspended {
				continue
			}
			if err := c.restoreQueue(ctx, card, usn); err != nil {
				return 0, err
			}
			n++
		}
		return n, nil
	})
}

func (c *Collection) restoreQueue(ctx context.Context, card *model.Card, usn model.Usn) error {
	original := card.Clone()
	card.RestoreQueueFromType()
	return c.updateCard(ctx, card, &original, usn)
}

// UnburyDeck restores buried cards in the deck and its children.
func (c *Collection) UnburyDeck(ctx context.Context, id model.DeckID, mode UnburyMode) (OpOutput[int], error) {
	return transact(ctx, c, OpUnbury, func(ctx context.Context) (int, error) {
		decks, err := c.deckAndChildren(ctx, id)
		if err != nil {
			return 0, err
		}
		return c.unburyCards(ctx, stores.CardFilter{DeckIDs: deckIDs(decks), Queues: mode.queues()})
	})
}

func (c *Collection) unburyCards(ctx context.Context, f stores.CardFilter) (int, error) {
	cards, err := c.storage.SearchCards(ctx, f)
	if err != nil {
		return 0, err
	}
	usn, err := c.storage.Usn(ctx)
	if err != nil {
		return 0, err
	}
	for i := range cards {
		if err := c.checkAbort(); err != nil {
			return 0, err
		}
		if err := c.restoreQueue(ctx, &cards[i], usn); err != nil {
			return 0, err
		}
	}
	return len(cards), nil
}

// unburyIfDayRolledOver restores every buried card once per day. It is not
// undoable, so it only runs a transaction when something is buried.
func (c *Collection) unburyIfDayRolledOver(ctx context.Context, today uint32) error {
	if c.unburyChecked == today+1 {
		return nil
	}
	last, err := getJSON[uint32](ctx, c, ConfigLastUnburied, 0)
	if err != nil {
		return err
	}
	if last >= today {
		c.unburyChecked = today + 1
		return nil
	}
	buried := stores.CardFilter{Queues: UnburyAll.queues()}
	cards, err := c.storage.SearchCards(ctx, stores.CardFilter{Queues: buried.Queues, Limit: 1})
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		c.unburyChecked = today + 1
		return nil
	}
	var n int
	_, err = c.TransactNoUndo(ctx, func(ctx context.Context) error {
		var err error
		if n, err = c.unburyCards(ctx, buried); err != nil {
			return err
		}
		return setJSON(ctx, c, ConfigLastUnburied, today)
	})
	if err != nil {
		return err
	}
	c.unburyChecked = today + 1
	log.Ctx(ctx).Info().Int("cards", n).Uint32("today", today).Msg("unburied-on-rollover")
	return nil
}

// unburyStale releases cards buried on an earlier day before any more are
// buried, so the daily unbury never mistakes today's cards for old ones.
func (c *Collection) unburyStale(ctx context.Context, today uint32) error {
	last, err := getJSON[uint32](ctx, c, ConfigLastUnburied, 0)
	if err != nil || last >= today {
		return err
	}
	if _, err := c.unburyCards(ctx, stores.CardFilter{Queues: UnburyAll.queues()}); err != nil {
		return err
	}
	return setJSON(ctx, c, ConfigLastUnburied, today)
}

// validCardIDs rejects an empty or duplicated id list.
func validCardIDs(ids []model.CardID) error {
	if len(ids) == 0 {
		return errs.InvalidInput("no cards given")
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	if len(slices.Compact(sorted)) != len(ids) {
		return errs.InvalidInput("duplicate card ids")
	}
	return nil
}
