// Package storetest is a conformance suite for stores.Storage backends.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/stores"
)

// Run exercises a backend. open must return an empty store.
func Run(t *testing.T, open func(t *testing.T) stores.Storage) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s stores.Storage)
	}{
		{"Transactions", testTransactions},
		{"Cards", testCards},
		{"SearchCards", testSearchCards},
		{"Revlog", testRevlog},
		{"NotesAndTags", testNotesAndTags},
		{"Decks", testDecks},
		{"Config", testConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, open(t))
		})
	}
}

func inTx(t *testing.T, s stores.Storage, f func(ctx context.Context)) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Begin(ctx))
	f(ctx)
	require.NoError(t, s.Commit(ctx))
}

func card(noteID model.NoteID, deckID model.DeckID, queue model.CardQueue, due int64) *model.Card {
	return &model.Card{
		NoteID:     noteID,
		DeckID:     deckID,
		Queue:      queue,
		Type:       model.CardTypeReview,
		Due:        due,
		Interval:   10,
		EaseFactor: 2500,
	}
}

func testTransactions(t *testing.T, s stores.Storage) {
	ctx := context.Background()
	assert.False(t, s.InTransaction())

	err := s.AddCard(ctx, card(1, 1, model.QueueReview, 5))
	assert.ErrorIs(t, err, errs.ErrInvalidInput, "writes need a transaction")

	require.NoError(t, s.Begin(ctx))
	assert.True(t, s.InTransaction())
	assert.ErrorIs(t, s.Begin(ctx), errs.ErrInvalidInput)

	c := card(1, 1, model.QueueReview, 5)
	require.NoError(t, s.AddCard(ctx, c))
	got, err := s.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Due, got.Due)

	require.NoError(t, s.Rollback(ctx))
	assert.False(t, s.InTransaction())
	_, err = s.GetCard(ctx, c.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// rollback without a transaction is harmless
	assert.NoError(t, s.Rollback(ctx))
}

func testCards(t *testing.T, s stores.Storage) {
	pos := uint32(7)
	c := card(3, 1, model.QueueLearn, 1_700_000_000)
	c.Type = model.CardTypeRelearn
	c.OriginalPos = &pos
	c.MemoryState = &model.FsrsMemoryState{Stability: 12.5, Difficulty: 4.25}
	c.RemainingSteps = 1002
	c.CustomData = `{"x":1}`

	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.AddCard(ctx, c))
	})
	require.NotZero(t, c.ID)

	ctx := context.Background()
	got, err := s.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, *c, *got)

	inTx(t, s, func(ctx context.Context) {
		got.MemoryState = nil
		got.OriginalPos = nil
		got.Queue = model.QueueSuspended
		require.NoError(t, s.UpdateCard(ctx, got))

		dup := *got
		assert.ErrorIs(t, s.AddCard(ctx, &dup), errs.ErrConflict)

		missing := card(1, 1, model.QueueNew, 0)
		missing.ID = 999
		assert.ErrorIs(t, s.UpdateCard(ctx, missing), errs.ErrNotFound)
	})
	again, err := s.GetCard(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, *got, *again)

	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.RemoveCard(ctx, c.ID))
		// re-adding keeps the id, as undo does
		require.NoError(t, s.AddCard(ctx, again))
	})
	_, err = s.GetCard(ctx, c.ID)
	assert.NoError(t, err)
}

func testSearchCards(t *testing.T, s stores.Storage) {
	ctx := context.Background()
	var ids []model.CardID
	inTx(t, s, func(ctx context.Context) {
		for i, c := range []*model.Card{
			card(1, 1, model.QueueReview, 10),
			card(1, 1, model.QueueNew, 3),
			card(2, 2, model.QueueReview, 5),
			card(3, 1, model.QueueReview, 20),
		} {
			c.TemplateIdx = uint16(i)
			require.NoError(t, s.AddCard(ctx, c))
			ids = append(ids, c.ID)
		}
	})

	cardIDs := func(cards []model.Card) []model.CardID {
		out := make([]model.CardID, len(cards))
		for i, c := range cards {
			out[i] = c.ID
		}
		return out
	}

	all, err := s.SearchCards(ctx, stores.CardFilter{})
	require.NoError(t, err)
	assert.Equal(t, []model.CardID{ids[1], ids[2], ids[0], ids[3]}, cardIDs(all))

	due := int64(15)
	res, err := s.SearchCards(ctx, stores.CardFilter{
		DeckIDs:   []model.DeckID{1},
		Queues:    []model.CardQueue{model.QueueReview},
		DueBefore: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, []model.CardID{ids[0]}, cardIDs(res))

	res, err = s.SearchCards(ctx, stores.CardFilter{NoteID: 1, ExcludeCardID: ids[0]})
	require.NoError(t, err)
	assert.Equal(t, []model.CardID{ids[1]}, cardIDs(res))

	from := int64(5)
	res, err = s.SearchCards(ctx, stores.CardFilter{DueAtOrAfter: &from, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []model.CardID{ids[2], ids[0]}, cardIDs(res))

	res, err = s.SearchCards(ctx, stores.CardFilter{DeckIDs: []model.DeckID{42}})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func testRevlog(t *testing.T, s stores.Storage) {
	ctx := context.Background()
	first := model.RevlogEntry{ID: 1000, CardID: 5, ButtonChosen: 3, Interval: -600,
		LastInterval: 0, TakenMillis: 4000, ReviewKind: model.RevlogLearning}
	second := first
	second.Interval = 1
	second.ReviewKind = model.RevlogReview

	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.AddRevlog(ctx, &first))
		require.NoError(t, s.AddRevlog(ctx, &second))
	})
	assert.Equal(t, model.RevlogID(1000), first.ID)
	assert.Equal(t, model.RevlogID(1001), second.ID, "colliding ids are bumped")

	entries, err := s.RevlogForCard(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []model.RevlogEntry{first, second}, entries)

	got, err := s.GetRevlog(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second, *got)

	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.RemoveRevlog(ctx, first.ID))
	})
	_, err = s.GetRevlog(ctx, first.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testNotesAndTags(t *testing.T, s stores.Storage) {
	ctx := context.Background()
	n := &model.Note{GUID: "abc", Mtime: 1, Tags: []string{"verbs", "Leech"}, Fields: []string{"front", "back"}}
	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.AddNote(ctx, n))
		require.NoError(t, s.AddTag(ctx, "Leech"))
	})
	got, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, *n, *got)

	has, err := s.HasTag(ctx, "leech")
	require.NoError(t, err)
	assert.True(t, has)

	inTx(t, s, func(ctx context.Context) {
		got.Tags = nil
		require.NoError(t, s.UpdateNote(ctx, got))
		require.NoError(t, s.RemoveTag(ctx, "LEECH"))
	})
	got, err = s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
	has, err = s.HasTag(ctx, "leech")
	require.NoError(t, err)
	assert.False(t, has)

	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.RemoveNote(ctx, n.ID))
	})
	_, err = s.GetNote(ctx, n.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testDecks(t *testing.T, s stores.Storage) {
	ctx := context.Background()
	cfg := model.DefaultDeckConfig()
	cfg.ID = 0
	cfg.FsrsWeights = []float64{0.4, 0.6, 2.4, 5.8, 4.93, 0.94, 0.86, 0.01, 1.49, 0.14, 0.94,
		2.18, 0.05, 0.34, 1.26, 0.29, 2.61}
	deck := &model.Deck{Name: "Spanish", ConfigID: 1, Today: model.DeckToday{Day: 3, NewStudied: 2}}
	filtered := &model.Deck{Name: "Cram", Filtered: &model.FilteredDeck{Search: "deck:Spanish", Reschedule: true}}

	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.AddDeckConfig(ctx, &cfg))
		require.NoError(t, s.AddDeck(ctx, deck))
		require.NoError(t, s.AddDeck(ctx, filtered))
		dup := &model.Deck{Name: "spanish"}
		assert.ErrorIs(t, s.AddDeck(ctx, dup), errs.ErrConflict)
	})

	gotCfg, err := s.GetDeckConfig(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg, *gotCfg)

	got, err := s.GetDeck(ctx, filtered.ID)
	require.NoError(t, err)
	assert.Equal(t, *filtered, *got)

	decks, err := s.AllDecks(ctx)
	require.NoError(t, err)
	assert.Len(t, decks, 2)
	configs, err := s.AllDeckConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, configs, 1)

	inTx(t, s, func(ctx context.Context) {
		deck.Name = "Spanish::Verbs"
		require.NoError(t, s.UpdateDeck(ctx, deck))
		cfg.NewPerDay = 5
		require.NoError(t, s.UpdateDeckConfig(ctx, &cfg))
		require.NoError(t, s.RemoveDeck(ctx, filtered.ID))
		require.NoError(t, s.RemoveDeckConfig(ctx, 999))
	})
	got, err = s.GetDeck(ctx, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spanish::Verbs", got.Name)
	gotCfg, err = s.GetDeckConfig(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), gotCfg.NewPerDay)
	_, err = s.GetDeck(ctx, filtered.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func testConfig(t *testing.T, s stores.Storage) {
	ctx := context.Background()
	usn, err := s.Usn(ctx)
	require.NoError(t, err)
	assert.Equal(t, stores.LocalUsn, usn)

	_, err = s.GetConfig(ctx, "curDeck")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.SetConfig(ctx, "curDeck", []byte("1")))
		require.NoError(t, s.SetConfig(ctx, "curDeck", []byte("2")))
		require.NoError(t, s.SetConfig(ctx, stores.UsnConfigKey, []byte("12")))
		assert.ErrorIs(t, s.SetConfig(ctx, "bad", []byte("{")), errs.ErrInvalidInput)
	})
	v, err := s.GetConfig(ctx, "curDeck")
	require.NoError(t, err)
	assert.JSONEq(t, "2", string(v))
	usn, err = s.Usn(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Usn(12), usn)

	inTx(t, s, func(ctx context.Context) {
		require.NoError(t, s.RemoveConfig(ctx, "curDeck"))
	})
	_, err = s.GetConfig(ctx, "curDeck")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
