package collection

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/queue"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
	"github.com/domino14/srs_scheduler/internal/stores"
)

type QueueKind uint8

const (
	QueueKindNew QueueKind = iota
	QueueKindLearning
	QueueKindReview
)

func (k QueueKind) String() string {
	switch k {
	case QueueKindNew:
		return "new"
	case QueueKindLearning:
		return "learning"
	}
	return "review"
}

// QueuedCard is a card ready to be shown, with the states its answer
// buttons lead to.
type QueuedCard struct {
	Card   model.Card
	Kind   QueueKind
	States states.SchedulingStates
	// Retrievability is set for cards with an FSRS memory state.
	Retrievability float64
}

type QueuedCards struct {
	Cards  []QueuedCard
	Counts queue.Counts
}

func entryKind(e queue.Entry) QueueKind {
	m, ok := e.(queue.MainEntry)
	if !ok {
		return QueueKindLearning
	}
	switch m.Kind {
	case queue.KindNew:
		return QueueKindNew
	case queue.KindInterdayLearning:
		return QueueKindLearning
	}
	return QueueKindReview
}

// GetQueuedCards returns up to fetchLimit cards in the order they should
// be studied. Queues are built on first use and rebuilt when an entry no
// longer matches its card.
func (c *Collection) GetQueuedCards(ctx context.Context, fetchLimit int, intradayLearningOnly bool) (*QueuedCards, error) {
	for attempt := 0; ; attempt++ {
		q, err := c.getQueues(ctx)
		if err != nil {
			return nil, err
		}
		out := &QueuedCards{Counts: q.Counts()}
		stale := false
		for _, e := range q.Iter(intradayLearningOnly) {
			if len(out.Cards) >= fetchLimit {
				break
			}
			card, err := c.storage.GetCard(ctx, e.CardID())
			if err != nil && !errs.IsNotFound(err) {
				return nil, err
			}
			if err != nil || card.Mtime != e.CardMtime() {
				stale = true
				break
			}
			u, err := c.cardStateUpdater(ctx, card)
			if err != nil {
				return nil, err
			}
			out.Cards = append(out.Cards, QueuedCard{
				Card:           *card,
				Kind:           entryKind(e),
				States:         u.NextStates(),
				Retrievability: u.Retrievability(),
			})
		}
		if !stale || attempt > 0 {
			return out, nil
		}
		log.Ctx(ctx).Debug().Msg("queue-entry-stale")
		c.clearQueues()
	}
}

// Counts returns the remaining new, learning and review counts of the
// current deck.
func (c *Collection) Counts(ctx context.Context) (queue.Counts, error) {
	q, err := c.getQueues(ctx)
	if err != nil {
		return queue.Counts{}, err
	}
	return q.Counts(), nil
}

func (c *Collection) getQueues(ctx context.Context) (*queue.CardQueues, error) {
	t, err := c.TimingToday(ctx)
	if err != nil {
		return nil, err
	}
	if c.queues != nil && c.queues.Today() != t.DaysElapsed {
		// Undo steps survive. Undoing an answer from an older build drops the
		// queues instead of patching them.
		c.clearQueues()
	}
	if err := c.unburyIfDayRolledOver(ctx, t.DaysElapsed); err != nil {
		return nil, err
	}
	deckID, err := c.CurrentDeckID(ctx)
	if err != nil {
		return nil, err
	}
	if c.queues == nil || c.queuesDeck != deckID {
		q, err := c.buildQueues(ctx, deckID)
		if err != nil {
			return nil, err
		}
		c.queues = q
		c.queuesDeck = deckID
	} else {
		c.queues.UpdateLearningCutoff(t.Now)
	}
	return c.queues, nil
}

func (c *Collection) buildQueues(ctx context.Context, deckID model.DeckID) (*queue.CardQueues, error) {
	t, err := c.TimingToday(ctx)
	if err != nil {
		return nil, err
	}
	learnAhead, err := c.learnAheadSecs(ctx)
	if err != nil {
		return nil, err
	}
	decks, err := c.deckAndChildren(ctx, deckID)
	if err != nil {
		return nil, err
	}
	allConfigs, err := c.storage.AllDeckConfigs(ctx)
	if err != nil {
		return nil, err
	}
	configs := make(map[model.DeckConfigID]*model.DeckConfig, len(allConfigs))
	for i := range allConfigs {
		configs[allConfigs[i].ID] = &allConfigs[i]
	}

	top := &decks[0]
	orderCfg := configs[top.ConfigID]
	if top.IsFiltered() || orderCfg == nil {
		if orderCfg, err = c.getDeckConfig(ctx, model.DefaultDeckConfigID); err != nil {
			return nil, err
		}
	}
	b := queue.NewBuilder(queue.OptionsFromConfig(orderCfg, t.DaysElapsed, learnAhead),
		queue.NewLimits(decks, configs, t.DaysElapsed))
	for _, d := range decks {
		if cfg := configs[d.ConfigID]; cfg != nil && !d.IsFiltered() {
			b.SetBuryMode(d.ID, queue.BuryModeFromConfig(cfg))
		}
	}
	ids := deckIDs(decks)
	today := int64(t.DaysElapsed)
	tomorrow := today + 1

	learning, err := c.storage.SearchCards(ctx, stores.CardFilter{
		DeckIDs:   ids,
		Queues:    []model.CardQueue{model.QueueLearn, model.QueuePreview},
		DueBefore: &t.NextDayAt,
	})
	if err != nil {
		return nil, err
	}
	for _, card := range learning {
		b.AddIntradayLearning(dueCard(&card, queue.DueLearning))
	}

	for _, kind := range []queue.DueCardKind{queue.DueLearning, queue.DueReview} {
		cq := model.QueueReview
		if kind == queue.DueLearning {
			cq = model.QueueDayLearn
		}
		cards, err := c.storage.SearchCards(ctx, stores.CardFilter{
			DeckIDs:   ids,
			Queues:    []model.CardQueue{cq},
			DueBefore: &tomorrow,
		})
		if err != nil {
			return nil, err
		}
		for _, card := range cards {
			if err := c.checkAbort(); err != nil {
				return nil, err
			}
			if b.AddDueCard(dueCard(&card, kind)) == queue.StopGathering {
				break
			}
		}
	}

	newCards, err := c.storage.SearchCards(ctx, stores.CardFilter{
		DeckIDs: ids,
		Queues:  []model.CardQueue{model.QueueNew},
	})
	if err != nil {
		return nil, err
	}
	for _, card := range newCards {
		if err := c.checkAbort(); err != nil {
			return nil, err
		}
		if b.AddNewCard(queue.NewCard{
			ID:          card.ID,
			NoteID:      card.NoteID,
			DeckID:      card.DeckID,
			Mtime:       card.Mtime,
			Due:         card.Due,
			TemplateIdx: card.TemplateIdx,
		}) == queue.StopGathering {
			break
		}
	}

	q := b.Build(t.Now)
	counts := q.Counts()
	log.Ctx(ctx).Debug().Int64("deck", int64(deckID)).Int("new", counts.New).
		Int("learning", counts.Learning).Int("review", counts.Review).Msg("queues-built")
	return q, nil
}

func dueCard(card *model.Card, kind queue.DueCardKind) queue.DueCard {
	return queue.DueCard{
		ID:       card.ID,
		NoteID:   card.NoteID,
		DeckID:   card.DeckID,
		Mtime:    card.Mtime,
		Due:      card.Due,
		Interval: card.Interval,
		Kind:     kind,
	}
}
