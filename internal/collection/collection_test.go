package collection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/answering"
	"github.com/domino14/srs_scheduler/internal/scheduler/queue"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
	"github.com/domino14/srs_scheduler/internal/stores"
	"github.com/domino14/srs_scheduler/internal/stores/memstore"
)

type fakeNower struct{ t time.Time }

func (f *fakeNower) Now() time.Time { return f.t }

func (f *fakeNower) advance(d time.Duration) { f.t = f.t.Add(d) }

var start = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestCollection(t *testing.T, opts Options) (*Collection, *fakeNower) {
	t.Helper()
	clock := &fakeNower{t: start}
	opts.Nower = clock
	opts.DisableFuzz = true
	c, err := Open(context.Background(), memstore.New(), opts)
	if err != nil {
		t.Fatal(err)
	}
	return c, clock
}

func addNote(t *testing.T, c *Collection, templates int) []model.Card {
	t.Helper()
	ctx := context.Background()
	out, err := c.AddNote(ctx, model.Note{Fields: []string{"front", "back"}}, model.DefaultDeckID, templates)
	if err != nil {
		t.Fatal(err)
	}
	cards, err := c.Cards(ctx, out.Output.ID)
	if err != nil {
		t.Fatal(err)
	}
	return cards
}

func getCard(t *testing.T, c *Collection, id model.CardID) model.Card {
	t.Helper()
	card, err := c.storage.GetCard(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return *card
}

// saveCard overwrites a card row without recording undo.
func saveCard(t *testing.T, c *Collection, card model.Card) {
	t.Helper()
	_, err := c.TransactNoUndo(context.Background(), func(ctx context.Context) error {
		return c.storage.UpdateCard(ctx, &card)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func updateConfig(t *testing.T, c *Collection, f func(*model.DeckConfig)) {
	t.Helper()
	ctx := context.Background()
	cfg, err := c.getDeckConfig(ctx, model.DefaultDeckConfigID)
	if err != nil {
		t.Fatal(err)
	}
	f(cfg)
	if _, err := c.AddOrUpdateDeckConfig(ctx, *cfg); err != nil {
		t.Fatal(err)
	}
}

func TestOpenCreatesDefaults(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})

	decks, err := c.Decks(ctx)
	is.NoErr(err)
	is.Equal(len(decks), 1)
	is.Equal(decks[0].Name, "Default")

	id, err := c.CurrentDeckID(ctx)
	is.NoErr(err)
	is.Equal(id, model.DefaultDeckID)

	tt, err := c.TimingToday(ctx)
	is.NoErr(err)
	is.Equal(tt.DaysElapsed, uint32(0))
	is.Equal(c.UndoStatus().Undo, "")
}

func TestNewCardGraduatesAfterTwoGoods(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	queued, err := c.GetQueuedCards(ctx, 5, false)
	is.NoErr(err)
	is.Equal(len(queued.Cards), 1)
	is.Equal(queued.Cards[0].Kind, QueueKindNew)
	is.Equal(queued.Counts.New, 1)

	_, err = c.AnswerAt(ctx, card.ID, states.Good, clock.Now(), 3000)
	is.NoErr(err)
	learning := getCard(t, c, card.ID)
	is.Equal(learning.Type, model.CardTypeLearn)
	is.Equal(learning.Queue, model.QueueLearn)
	is.Equal(learning.RemainingSteps, uint32(1))
	is.Equal(learning.Due, clock.Now().Unix()+600)

	clock.advance(10 * time.Minute)
	_, err = c.AnswerAt(ctx, card.ID, states.Good, clock.Now(), 3000)
	is.NoErr(err)
	review := getCard(t, c, card.ID)
	is.Equal(review.Type, model.CardTypeReview)
	is.Equal(review.Queue, model.QueueReview)
	is.Equal(review.Interval, uint32(1))
	is.Equal(review.Due, int64(1))
	is.Equal(review.EaseFactor, uint16(2500))
	is.Equal(review.Reps, uint32(2))

	revlog, err := c.storage.RevlogForCard(ctx, card.ID)
	is.NoErr(err)
	is.Equal(len(revlog), 2)
	is.Equal(revlog[0].ReviewKind, model.RevlogLearning)
	is.Equal(revlog[0].Interval, int32(-600))
	is.Equal(revlog[1].Interval, int32(1))
}

func TestReviewAgainEntersRelearning(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]
	card.Type = model.CardTypeReview
	card.Queue = model.QueueReview
	card.Interval = 10
	card.EaseFactor = 2500
	saveCard(t, c, card)

	st, err := c.GetSchedulingStates(ctx, card.ID)
	is.NoErr(err)
	relearn, ok := st.Again.(states.RelearnState)
	is.True(ok)
	is.Equal(relearn.Review.ScheduledDays, uint32(1))
	is.Equal(relearn.Learning.RemainingSteps, uint32(1))

	_, err = c.AnswerAt(ctx, card.ID, states.Again, clock.Now(), 1000)
	is.NoErr(err)
	got := getCard(t, c, card.ID)
	is.Equal(got.Type, model.CardTypeRelearn)
	is.Equal(got.Lapses, uint32(1))
	is.Equal(got.EaseFactor, uint16(2300))
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	cards := addNote(t, c, 3)
	status := c.UndoStatus()
	boom := errors.New("boom")

	_, err := c.Transact(ctx, "Suspend Everything", func(ctx context.Context) error {
		for _, card := range cards {
			original := card.Clone()
			card.Queue = model.QueueSuspended
			if err := c.updateCard(ctx, &card, &original, stores.LocalUsn); err != nil {
				return err
			}
		}
		return boom
	})
	is.True(errors.Is(err, boom))
	for _, card := range cards {
		is.Equal(getCard(t, c, card.ID), card)
	}
	is.Equal(c.UndoStatus(), status)
	is.Equal(len(c.undo.undo), 1)
}

func TestNestedTransactionRejected(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})

	_, err := c.Transact(ctx, "Outer", func(ctx context.Context) error {
		_, err := c.Transact(ctx, "Inner", func(context.Context) error { return nil })
		return err
	})
	is.True(errors.Is(err, errs.ErrInvalidInput))
}

func TestUndoAnswerRestoresCardQueueAndRevlog(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	first := addNote(t, c, 1)[0]
	addNote(t, c, 1)

	before, err := c.GetQueuedCards(ctx, 5, false)
	is.NoErr(err)
	is.Equal(before.Cards[0].Card.ID, first.ID)
	queuesBefore := c.queues

	_, err = c.AnswerAt(ctx, first.ID, states.Good, clock.Now(), 2000)
	is.NoErr(err)
	is.Equal(c.queues, queuesBefore)
	counts, err := c.Counts(ctx)
	is.NoErr(err)
	is.Equal(counts.New, 1)
	is.Equal(counts.Learning, 1)
	is.Equal(c.UndoStatus().Undo, string(OpAnswerCard))

	res, err := c.Undo(ctx)
	is.NoErr(err)
	is.Equal(res.Operation, string(OpAnswerCard))
	is.True(res.Changes.Changes.Card)
	is.Equal(res.NewStatus.Redo, string(OpAnswerCard))

	is.Equal(getCard(t, c, first.ID), first)
	revlog, err := c.storage.RevlogForCard(ctx, first.ID)
	is.NoErr(err)
	is.Equal(len(revlog), 0)

	after, err := c.GetQueuedCards(ctx, 5, false)
	is.NoErr(err)
	is.Equal(after.Counts, before.Counts)
	is.Equal(len(after.Cards), len(before.Cards))
	is.Equal(after.Cards[0].Card, before.Cards[0].Card)

	deck, err := c.getDeck(ctx, model.DefaultDeckID)
	is.NoErr(err)
	is.Equal(deck.Today.NewStudied, int32(0))
}

func TestAnswerUndoAnswerMatchesFirstAnswer(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	c.fuzz = true
	card := addNote(t, c, 1)[0]
	card.Type = model.CardTypeReview
	card.Queue = model.QueueReview
	card.Interval = 30
	card.EaseFactor = 2500
	saveCard(t, c, card)

	_, err := c.AnswerAt(ctx, card.ID, states.Good, clock.Now(), 1000)
	is.NoErr(err)
	firstResult := getCard(t, c, card.ID)

	_, err = c.Undo(ctx)
	is.NoErr(err)
	_, err = c.AnswerAt(ctx, card.ID, states.Good, clock.Now(), 1000)
	is.NoErr(err)

	is.Equal(getCard(t, c, card.ID), firstResult)
	revlog, err := c.storage.RevlogForCard(ctx, card.ID)
	is.NoErr(err)
	is.Equal(len(revlog), 1)
}

func TestRedoReappliesAnswer(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]
	_, err := c.GetQueuedCards(ctx, 1, false)
	is.NoErr(err)

	_, err = c.AnswerAt(ctx, card.ID, states.Good, clock.Now(), 1000)
	is.NoErr(err)
	answered := getCard(t, c, card.ID)

	_, err = c.Undo(ctx)
	is.NoErr(err)
	res, err := c.Redo(ctx)
	is.NoErr(err)
	is.Equal(res.NewStatus.Undo, string(OpAnswerCard))
	is.Equal(res.NewStatus.Redo, "")

	is.Equal(getCard(t, c, card.ID), answered)
	revlog, err := c.storage.RevlogForCard(ctx, card.ID)
	is.NoErr(err)
	is.Equal(len(revlog), 1)

	counts, err := c.Counts(ctx)
	is.NoErr(err)
	is.Equal(counts.New, 0)
	is.Equal(counts.Learning, 1)

	_, err = c.Redo(ctx)
	is.True(errors.Is(err, errs.ErrUndoEmpty))
}

func TestNewOperationClearsRedo(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	_, err := c.AnswerAt(ctx, card.ID, states.Good, clock.Now(), 1000)
	is.NoErr(err)
	_, err = c.Undo(ctx)
	is.NoErr(err)
	is.Equal(c.UndoStatus().Redo, string(OpAnswerCard))

	_, err = c.AddDeck(ctx, "Other", 0)
	is.NoErr(err)
	is.Equal(c.UndoStatus().Redo, "")
}

func TestAnswerBuriesSiblings(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	updateConfig(t, c, func(cfg *model.DeckConfig) { cfg.BuryNew = true })
	cards := addNote(t, c, 2)

	queued, err := c.GetQueuedCards(ctx, 5, false)
	is.NoErr(err)
	is.Equal(len(queued.Cards), 1)
	is.Equal(queued.Cards[0].Card.ID, cards[0].ID)

	_, err = c.AnswerAt(ctx, cards[0].ID, states.Good, clock.Now(), 1000)
	is.NoErr(err)
	is.Equal(getCard(t, c, cards[1].ID).Queue, model.QueueSchedBuried)

	queued, err = c.GetQueuedCards(ctx, 5, false)
	is.NoErr(err)
	for _, q := range queued.Cards {
		is.True(q.Card.ID != cards[1].ID)
	}

	_, err = c.Undo(ctx)
	is.NoErr(err)
	is.Equal(getCard(t, c, cards[1].ID), cards[1])
}

func TestBuriedCardsReturnNextDay(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	out, err := c.BuryOrSuspendCards(ctx, []model.CardID{card.ID}, BuryUser)
	is.NoErr(err)
	is.Equal(out.Output, 1)
	counts, err := c.Counts(ctx)
	is.NoErr(err)
	is.Equal(counts.New, 0)

	clock.advance(24 * time.Hour)
	counts, err = c.Counts(ctx)
	is.NoErr(err)
	is.Equal(counts.New, 1)
	is.Equal(getCard(t, c, card.ID).Queue, model.QueueNew)
	// unburying at rollover is not undoable and drops older steps
	is.Equal(c.UndoStatus().Undo, "")
}

func TestUndoAnswerAfterRollover(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	_, err := c.GetQueuedCards(ctx, 1, false)
	is.NoErr(err)
	_, err = c.AnswerAt(ctx, card.ID, states.Good, clock.Now(), 1000)
	is.NoErr(err)

	clock.advance(24 * time.Hour)
	counts, err := c.Counts(ctx)
	is.NoErr(err)
	is.Equal(counts.Learning, 1)
	is.Equal(c.UndoStatus().Undo, string(OpAnswerCard))

	_, err = c.Undo(ctx)
	is.NoErr(err)
	is.Equal(getCard(t, c, card.ID), card)
	counts, err = c.Counts(ctx)
	is.NoErr(err)
	is.Equal(counts, queue.Counts{New: 1})
}

func TestCappedSubdeckLeavesSiblingsGathering(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})

	capped := model.DefaultDeckConfig()
	capped.ID = 0
	capped.Name = "Capped"
	capped.NewPerDay = 1
	cfg, err := c.AddOrUpdateDeckConfig(ctx, capped)
	is.NoErr(err)
	parent, err := c.AddDeck(ctx, "P", 0)
	is.NoErr(err)
	a, err := c.AddDeck(ctx, "P::A", cfg.Output.ID)
	is.NoErr(err)
	b, err := c.AddDeck(ctx, "P::B", 0)
	is.NoErr(err)
	for _, deck := range []model.DeckID{a.Output.ID, a.Output.ID, b.Output.ID, b.Output.ID} {
		_, err := c.AddNote(ctx, model.Note{Fields: []string{"front", "back"}}, deck, 1)
		is.NoErr(err)
	}

	_, err = c.SetCurrentDeck(ctx, parent.Output.ID)
	is.NoErr(err)
	counts, err := c.Counts(ctx)
	is.NoErr(err)
	is.Equal(counts.New, 3)
}

func TestUnburyDeck(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	cards := addNote(t, c, 2)

	_, err := c.BuryOrSuspendCards(ctx, []model.CardID{cards[0].ID, cards[1].ID}, BurySched)
	is.NoErr(err)
	out, err := c.UnburyDeck(ctx, model.DefaultDeckID, UnburyUserOnly)
	is.NoErr(err)
	is.Equal(out.Output, 0)
	out, err = c.UnburyDeck(ctx, model.DefaultDeckID, UnburyAll)
	is.NoErr(err)
	is.Equal(out.Output, 2)
	is.Equal(getCard(t, c, cards[0].ID).Queue, model.QueueNew)
}

func TestSuspendAndUnsuspend(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	_, err := c.BuryOrSuspendCards(ctx, []model.CardID{card.ID}, Suspend)
	is.NoErr(err)
	is.Equal(c.UndoStatus().Undo, string(OpSuspend))
	is.Equal(getCard(t, c, card.ID).Queue, model.QueueSuspended)

	_, err = c.BuryOrSuspendCards(ctx, []model.CardID{card.ID, card.ID}, Suspend)
	is.True(errors.Is(err, errs.ErrInvalidInput))

	out, err := c.UnsuspendCards(ctx, []model.CardID{card.ID})
	is.NoErr(err)
	is.Equal(out.Output, 1)
	is.Equal(getCard(t, c, card.ID).Queue, model.QueueNew)
}

func TestAbortRollsBack(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	cards := addNote(t, c, 2)

	c.SetAbort()
	_, err := c.BuryOrSuspendCards(ctx, []model.CardID{cards[0].ID, cards[1].ID}, Suspend)
	is.True(errors.Is(err, errs.ErrInterrupted))
	is.Equal(getCard(t, c, cards[0].ID).Queue, model.QueueNew)

	// the flag is consumed
	_, err = c.BuryOrSuspendCards(ctx, []model.CardID{cards[0].ID}, Suspend)
	is.NoErr(err)
}

func TestNoteTagEditsCoalesce(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	_, err := c.UpdateNoteTags(ctx, card.NoteID, []string{"one"})
	is.NoErr(err)
	_, err = c.UpdateNoteTags(ctx, card.NoteID, []string{"one", "two", "ONE"})
	is.NoErr(err)
	note, err := c.storage.GetNote(ctx, card.NoteID)
	is.NoErr(err)
	is.Equal(note.Tags, []string{"one", "two"})

	_, err = c.Undo(ctx)
	is.NoErr(err)
	note, err = c.storage.GetNote(ctx, card.NoteID)
	is.NoErr(err)
	is.Equal(len(note.Tags), 0)
	is.Equal(c.UndoStatus().Undo, string(OpAddNote))

	has, err := c.storage.HasTag(ctx, "two")
	is.NoErr(err)
	is.True(!has)
}

func TestUndoLimit(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{UndoLimit: 3})

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_, err := c.AddDeck(ctx, name, 0)
		is.NoErr(err)
	}
	for range 3 {
		_, err := c.Undo(ctx)
		is.NoErr(err)
	}
	_, err := c.Undo(ctx)
	is.True(errors.Is(err, errs.ErrUndoEmpty))

	decks, err := c.Decks(ctx)
	is.NoErr(err)
	is.Equal(len(decks), 3) // Default, a, b
}

func TestTransactNoUndoClearsStacks(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	addNote(t, c, 1)
	is.Equal(c.UndoStatus().Undo, string(OpAddNote))

	_, err := c.TransactNoUndo(ctx, func(context.Context) error { return nil })
	is.NoErr(err)
	is.Equal(c.UndoStatus().Undo, "")
}

func TestCustomStepMergesLaterOps(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})

	step := c.AddCustomUndoStep("Import Decks")
	_, err := c.AddDeck(ctx, "French::Verbs", 0)
	is.NoErr(err)
	_, err = c.AddDeck(ctx, "German", 0)
	is.NoErr(err)

	changes, err := c.MergeUndoableOps(step)
	is.NoErr(err)
	is.Equal(changes.Op, Op("Import Decks"))
	is.True(changes.Changes.Deck)
	is.Equal(c.UndoStatus().Undo, "Import Decks")

	_, err = c.Undo(ctx)
	is.NoErr(err)
	decks, err := c.Decks(ctx)
	is.NoErr(err)
	is.Equal(len(decks), 1)

	_, err = c.MergeUndoableOps(9999)
	is.True(errors.Is(err, errs.ErrInvalidInput))
}

func TestAnswerValidatesStates(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]
	st, err := c.GetSchedulingStates(ctx, card.ID)
	is.NoErr(err)

	_, err = c.AnswerCard(ctx, &answering.CardAnswer{
		CardID:       card.ID,
		Rating:       states.Good,
		CurrentState: states.ReviewState{ScheduledDays: 3},
		NewState:     st.Good,
		AnsweredAt:   clock.Now(),
	})
	is.True(errors.Is(err, errs.ErrInvalidInput))

	_, err = c.AnswerCard(ctx, &answering.CardAnswer{
		CardID:       card.ID,
		Rating:       states.Good,
		CurrentState: st.Current,
		NewState:     st.Again,
		AnsweredAt:   clock.Now(),
	})
	is.True(errors.Is(err, errs.ErrInvalidInput))
	is.Equal(getCard(t, c, card.ID), card)
	is.Equal(c.UndoStatus().Undo, string(OpAddNote))
}

func TestAnswerTimeIsCapped(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	_, err := c.AnswerAt(ctx, card.ID, states.Good, clock.Now(), 500_000)
	is.NoErr(err)
	revlog, err := c.storage.RevlogForCard(ctx, card.ID)
	is.NoErr(err)
	is.Equal(revlog[0].TakenMillis, uint32(60_000))

	deck, err := c.getDeck(ctx, model.DefaultDeckID)
	is.NoErr(err)
	is.Equal(deck.Today.NewStudied, int32(1))
	is.Equal(deck.Today.MillisecondsStudied, int64(60_000))
}

func TestLeechGetsTagged(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	updateConfig(t, c, func(cfg *model.DeckConfig) { cfg.LeechThreshold = 1 })
	card := addNote(t, c, 1)[0]
	card.Type = model.CardTypeReview
	card.Queue = model.QueueReview
	card.Interval = 5
	card.EaseFactor = 2500
	saveCard(t, c, card)

	_, err := c.AnswerAt(ctx, card.ID, states.Again, clock.Now(), 1000)
	is.NoErr(err)
	note, err := c.storage.GetNote(ctx, card.NoteID)
	is.NoErr(err)
	is.True(note.HasTag(model.LeechTag))
	is.Equal(getCard(t, c, card.ID).Queue, model.QueueLearn)

	_, err = c.Undo(ctx)
	is.NoErr(err)
	note, err = c.storage.GetNote(ctx, card.NoteID)
	is.NoErr(err)
	is.True(!note.HasTag(model.LeechTag))
}

func TestNewLimitApplies(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	updateConfig(t, c, func(cfg *model.DeckConfig) { cfg.NewPerDay = 2 })
	for range 4 {
		addNote(t, c, 1)
	}
	counts, err := c.Counts(ctx)
	is.NoErr(err)
	is.Equal(counts.New, 2)
}

func TestPreviewDeckReturnsCardHome(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, clock := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	out, err := c.AddFilteredDeck(ctx, "Preview", model.FilteredDeck{Search: "Default", PreviewDelayMins: 10})
	is.NoErr(err)
	moved := getCard(t, c, card.ID)
	is.Equal(moved.DeckID, out.Output.ID)
	is.Equal(moved.OriginalDeckID, model.DefaultDeckID)

	_, err = c.SetCurrentDeck(ctx, out.Output.ID)
	is.NoErr(err)
	queued, err := c.GetQueuedCards(ctx, 1, false)
	is.NoErr(err)
	is.Equal(len(queued.Cards), 1)
	is.Equal(queued.Cards[0].States.Current, states.CardState(states.PreviewState{}))
	is.Equal(queued.Cards[0].States.Again, states.CardState(states.PreviewState{ScheduledSecs: 600}))

	_, err = c.AnswerAt(ctx, card.ID, states.Easy, clock.Now(), 1000)
	is.NoErr(err)
	home := getCard(t, c, card.ID)
	is.Equal(home.DeckID, model.DefaultDeckID)
	is.Equal(home.OriginalDeckID, model.DeckID(0))
	is.Equal(home.Queue, model.QueueNew)
	is.Equal(home.Due, card.Due)
	revlog, err := c.storage.RevlogForCard(ctx, card.ID)
	is.NoErr(err)
	is.Equal(len(revlog), 0)
}

func TestEmptyFilteredDeck(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	card := addNote(t, c, 1)[0]

	out, err := c.AddFilteredDeck(ctx, "Cram", model.FilteredDeck{Search: "Default", Reschedule: true})
	is.NoErr(err)
	_, err = c.EmptyFilteredDeck(ctx, out.Output.ID)
	is.NoErr(err)
	home := getCard(t, c, card.ID)
	is.Equal(home.DeckID, model.DefaultDeckID)
	is.Equal(home.Due, card.Due)

	_, err = c.EmptyFilteredDeck(ctx, model.DefaultDeckID)
	is.True(errors.Is(err, errs.ErrInvalidInput))
}

func TestAddDeckCreatesParents(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})

	out, err := c.AddDeck(ctx, " Lang :: French ", 0)
	is.NoErr(err)
	is.Equal(out.Output.Name, "Lang::French")
	decks, err := c.Decks(ctx)
	is.NoErr(err)
	is.Equal(len(decks), 3)

	_, err = c.AddDeck(ctx, "Lang::::x", 0)
	is.True(errors.Is(err, errs.ErrInvalidInput))

	_, err = c.Undo(ctx)
	is.NoErr(err)
	decks, err = c.Decks(ctx)
	is.NoErr(err)
	is.Equal(len(decks), 1)
}

func TestInvalidDeckConfigRejected(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c, _ := newTestCollection(t, Options{})
	cfg := model.DefaultDeckConfig()
	cfg.ID = 0
	cfg.InitialEase = 0.5

	_, err := c.AddOrUpdateDeckConfig(ctx, cfg)
	is.True(errors.Is(err, errs.ErrInvalidInput))
}
