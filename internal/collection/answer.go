package collection

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/answering"
	"github.com/domino14/srs_scheduler/internal/scheduler/queue"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
	"github.com/domino14/srs_scheduler/internal/stores"
)

func (c *Collection) cardStateUpdater(ctx context.Context, card *model.Card) (*answering.CardStateUpdater, error) {
	deck, err := c.getDeck(ctx, card.DeckID)
	if err != nil {
		return nil, err
	}
	cfg, err := c.homeDeckConfig(ctx, card)
	if err != nil {
		return nil, err
	}
	t, err := c.TimingToday(ctx)
	if err != nil {
		return nil, err
	}
	return answering.NewCardStateUpdater(*card, deck, cfg, t, c.fuzz), nil
}

// GetSchedulingStates returns the card's current state and the state each
// rating would lead to.
func (c *Collection) GetSchedulingStates(ctx context.Context, id model.CardID) (states.SchedulingStates, error) {
	card, err := c.storage.GetCard(ctx, id)
	if err != nil {
		return states.SchedulingStates{}, err
	}
	u, err := c.cardStateUpdater(ctx, card)
	if err != nil {
		return states.SchedulingStates{}, err
	}
	return u.NextStates(), nil
}

// AnswerCard records the user's answer. The states in ans must be the ones
// GetSchedulingStates returned, or the card has changed since it was shown.
func (c *Collection) AnswerCard(ctx context.Context, ans *answering.CardAnswer) (OpChanges, error) {
	out, err := transact(ctx, c, OpAnswerCard, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.answerCardInner(ctx, ans)
	})
	return out.Changes, err
}

func (c *Collection) answerCardInner(ctx context.Context, ans *answering.CardAnswer) error {
	if !ans.Rating.IsValid() {
		return errs.InvalidInput("invalid rating %d", ans.Rating)
	}
	card, err := c.storage.GetCard(ctx, ans.CardID)
	if err != nil {
		return err
	}
	original := card.Clone()
	u, err := c.cardStateUpdater(ctx, card)
	if err != nil {
		return err
	}
	current := u.CurrentCardState()
	if !states.Equal(current, ans.CurrentState) {
		return errs.InvalidInput("card was modified: %+v does not match %+v", current, ans.CurrentState)
	}
	if expected := current.NextStates(u.StateContext()).ForRating(ans.Rating); !states.Equal(expected, ans.NewState) {
		return errs.InvalidInput("new state %+v is not reachable with %s", ans.NewState, ans.Rating)
	}

	usn, err := c.storage.Usn(ctx)
	if err != nil {
		return err
	}
	revlog, err := u.ApplyStudyState(current, ans.NewState)
	if err != nil {
		return err
	}
	taken := ans.MillisecondsTaken
	if capSecs := u.Config.CapAnswerTimeToSecs; capSecs > 0 {
		taken = min(taken, capSecs*1000)
	}
	answeredAt := ans.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = c.now()
	}
	if revlog != nil {
		entry := revlog.IntoRevlogEntry(usn, card.ID, ans.Rating, answeredAt, taken)
		if err := c.addRevlog(ctx, &entry); err != nil {
			return err
		}
	}
	if err := c.updateDeckStats(ctx, card.DeckID, current, taken, u.Timing.DaysElapsed, usn); err != nil {
		return err
	}

	updated := u.Card
	if ans.CustomData != "" {
		updated.CustomData = ans.CustomData
	}
	if err := c.updateCard(ctx, &updated, &original, usn); err != nil {
		return err
	}
	if err := c.burySiblings(ctx, &updated, u.Config, u.Timing.DaysElapsed, usn); err != nil {
		return err
	}
	if ans.NewState.IsLeech() {
		if err := c.tagLeech(ctx, updated.NoteID, usn); err != nil {
			return err
		}
	}
	if ans.FromQueue {
		if err := c.updateQueuesAfterAnswer(&updated); err != nil {
			return err
		}
	}

	log.Ctx(ctx).Debug().Int64("card", int64(card.ID)).Str("rating", ans.Rating.String()).
		Int8("queue", int8(updated.Queue)).Int64("due", updated.Due).Msg("card-answered")
	return nil
}

func studiedKind(s states.CardState) states.CardState {
	if r, ok := s.(states.ReschedulingFilterState); ok {
		return r.OriginalState
	}
	return s
}

// updateDeckStats counts the answer against the deck and its ancestors,
// which is what the daily limits are checked against.
func (c *Collection) updateDeckStats(ctx context.Context, deckID model.DeckID, current states.CardState,
	millis uint32, today uint32, usn model.Usn) error {

	deck, err := c.getDeck(ctx, deckID)
	if err != nil {
		return err
	}
	parents, err := c.ancestors(ctx, deck)
	if err != nil {
		return err
	}
	ids := []model.DeckID{deck.ID}
	for _, p := range parents {
		ids = append(ids, p.ID)
	}
	for _, id := range ids {
		d, err := c.getDeck(ctx, id)
		if err != nil {
			return err
		}
		original := d.Clone()
		t := d.StudiedToday(today)
		switch studiedKind(current).(type) {
		case states.NewState:
			t.NewStudied++
		case states.ReviewState:
			t.ReviewStudied++
		case states.LearnState, states.RelearnState:
			t.LearningStudied++
		}
		t.MillisecondsStudied += int64(millis)
		d.Today = t
		if err := c.updateDeck(ctx, d, &original, usn); err != nil {
			return err
		}
	}
	return nil
}

// burySiblings buries the answered card's siblings that would otherwise be
// shown today.
func (c *Collection) burySiblings(ctx context.Context, card *model.Card, cfg *model.DeckConfig,
	today uint32, usn model.Usn) error {

	mode := queue.BuryModeFromConfig(cfg)
	if !mode.Any() {
		return nil
	}
	var queues []model.CardQueue
	if mode.BuryNew {
		queues = append(queues, model.QueueNew)
	}
	if mode.BuryReviews {
		queues = append(queues, model.QueueReview)
	}
	if mode.BuryInterdayLearning {
		queues = append(queues, model.QueueDayLearn)
	}
	if err := c.unburyStale(ctx, today); err != nil {
		return err
	}
	siblings, err := c.storage.SearchCards(ctx, stores.CardFilter{
		NoteID:        card.NoteID,
		ExcludeCardID: card.ID,
		Queues:        queues,
	})
	if err != nil {
		return err
	}
	siblings = slices.DeleteFunc(siblings, func(s model.Card) bool {
		return s.Queue != model.QueueNew && s.Due > int64(today)
	})
	for i := range siblings {
		s := &siblings[i]
		original := s.Clone()
		s.Queue = model.QueueSchedBuried
		if err := c.updateCard(ctx, s, &original, usn); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) tagLeech(ctx context.Context, noteID model.NoteID, usn model.Usn) error {
	note, err := c.storage.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	original := note.Clone()
	if !note.AddTag(model.LeechTag) {
		return nil
	}
	if err := c.registerTag(ctx, model.LeechTag); err != nil {
		return err
	}
	return c.updateNote(ctx, note, &original, usn)
}

// updateQueuesAfterAnswer advances the built queues, if any, past card.
func (c *Collection) updateQueuesAfterAnswer(card *model.Card) error {
	if c.queues == nil {
		return nil
	}
	var requeue *queue.LearningEntry
	if card.IsIntradayLearning() {
		requeue = &queue.LearningEntry{Due: card.Due, ID: card.ID, Mtime: card.Mtime}
	}
	upd, err := c.queues.AnswerCard(card.ID, requeue, c.now())
	if err != nil {
		return err
	}
	c.undo.record(QueueChange{Update: upd})
	return nil
}

// AnswerAt is a convenience that looks up the card's states and answers it
// with rating as if from the queue.
func (c *Collection) AnswerAt(ctx context.Context, id model.CardID, rating states.Rating,
	answeredAt time.Time, millis uint32) (OpChanges, error) {

	st, err := c.GetSchedulingStates(ctx, id)
	if err != nil {
		return OpChanges{}, err
	}
	return c.AnswerCard(ctx, &answering.CardAnswer{
		CardID:            id,
		Rating:            rating,
		CurrentState:      st.Current,
		NewState:          st.ForRating(rating),
		AnsweredAt:        answeredAt,
		MillisecondsTaken: millis,
		FromQueue:         true,
	})
}
