package queue

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/srs_scheduler/internal/model"
)

var buildTime = time.Unix(1_700_000_000, 0)

func ints(xs ...int) sizedIter[int] { return iterOf(xs) }

func TestIntersperser(t *testing.T) {
	is := is.New(t)
	is.Equal(collect[int](newIntersperser(ints(1, 2, 3), ints(11, 22, 33))), []int{1, 11, 2, 22, 3, 33})
	is.Equal(collect[int](newIntersperser(ints(1, 2, 3), ints(11, 22))), []int{1, 11, 2, 22, 3})
	is.Equal(collect[int](newIntersperser(ints(1, 2, 3), ints(11, 22, 33, 44))), []int{11, 1, 22, 2, 33, 3, 44})
	is.Equal(collect[int](newIntersperser(ints(), ints(11))), []int{11})
}

func TestIntersperserLen(t *testing.T) {
	is := is.New(t)
	it := newIntersperser(ints(1, 2, 3), ints(11, 22))
	is.Equal(it.Len(), 5)
	it.Next()
	it.Next()
	is.Equal(it.Len(), 3)
}

func TestMixModes(t *testing.T) {
	is := is.New(t)
	is.Equal(collect(mix(ints(1, 2), ints(11), model.ReviewMixAfterReviews)), []int{1, 2, 11})
	is.Equal(collect(mix(ints(1, 2), ints(11), model.ReviewMixBeforeReviews)), []int{11, 1, 2})
	is.Equal(collect(mix(ints(1, 2), ints(11), model.ReviewMixWithReviews)), []int{1, 11, 2})
}

func TestSiblingBuriedByEarlierCardsMode(t *testing.T) {
	is := is.New(t)
	b := NewBuilder(Options{}, nil)
	b.SetBuryMode(1, BuryMode{BuryNew: true})

	is.Equal(b.AddNewCard(NewCard{ID: 1, NoteID: 100, DeckID: 1, Due: 1}), Added)
	is.Equal(b.AddNewCard(NewCard{ID: 2, NoteID: 100, DeckID: 1, Due: 1, TemplateIdx: 1}), Skipped)
	q := b.Build(buildTime)
	is.Equal(q.Counts().New, 1)
	is.Equal(q.Iter(false)[0].CardID(), model.CardID(1))
}

func TestOwnBuryModeDoesNotBuryItself(t *testing.T) {
	is := is.New(t)
	b := NewBuilder(Options{}, nil)
	// deck 2 buries, deck 1 does not
	b.SetBuryMode(2, BuryMode{BuryNew: true})

	b.AddNewCard(NewCard{ID: 1, NoteID: 100, DeckID: 1})
	b.AddNewCard(NewCard{ID: 2, NoteID: 100, DeckID: 2})
	// the third sibling sees deck 2's mode
	b.AddNewCard(NewCard{ID: 3, NoteID: 100, DeckID: 1})
	q := b.Build(buildTime)
	is.Equal(q.Counts().New, 2)
}

func TestBuryModesAccumulate(t *testing.T) {
	is := is.New(t)
	b := NewBuilder(Options{}, nil)
	b.SetBuryMode(1, BuryMode{BuryReviews: true})
	b.SetBuryMode(2, BuryMode{BuryNew: true})

	_, seen := b.updateBuryMode(7, 1)
	is.True(!seen)
	mode, seen := b.updateBuryMode(7, 2)
	is.True(seen)
	is.Equal(mode, BuryMode{BuryReviews: true})
	mode, _ = b.updateBuryMode(7, 1)
	is.Equal(mode, BuryMode{BuryReviews: true, BuryNew: true})
}

func TestIntradayLearningBuriesLaterReviews(t *testing.T) {
	is := is.New(t)
	b := NewBuilder(Options{}, nil)
	b.SetBuryMode(1, BuryMode{BuryReviews: true, BuryInterdayLearning: true})

	b.AddIntradayLearning(DueCard{ID: 1, NoteID: 5, DeckID: 1, Due: buildTime.Unix() - 10})
	is.Equal(b.AddDueCard(DueCard{ID: 2, NoteID: 5, DeckID: 1, Kind: DueLearning}), Skipped)
	is.Equal(b.AddDueCard(DueCard{ID: 3, NoteID: 5, DeckID: 1, Kind: DueReview}), Skipped)
	is.Equal(b.AddDueCard(DueCard{ID: 4, NoteID: 6, DeckID: 1, Kind: DueReview}), Added)
	q := b.Build(buildTime)
	is.Equal(q.Counts(), Counts{Learning: 1, Review: 1})
}

func TestLimits(t *testing.T) {
	is := is.New(t)
	cfg := model.DefaultDeckConfig()
	cfg.NewPerDay = 2
	child := model.DefaultDeckConfig()
	child.ID = 2
	child.NewPerDay = 10
	decks := []model.Deck{
		{ID: 1, Name: "Parent", ConfigID: 1, Today: model.DeckToday{Day: 5, NewStudied: 1}},
		{ID: 2, Name: "Parent::Child", ConfigID: 2},
	}
	limits := NewLimits(decks, map[model.DeckConfigID]*model.DeckConfig{1: &cfg, 2: &child}, 5)

	b := NewBuilder(Options{}, limits)
	is.Equal(b.AddNewCard(NewCard{ID: 1, NoteID: 1, DeckID: 2}), Added)
	// the parent's limit caps the child, and the parent is the studied deck
	is.Equal(b.AddNewCard(NewCard{ID: 2, NoteID: 2, DeckID: 2}), StopGathering)

	// counters from an earlier day do not count
	limits = NewLimits(decks, map[model.DeckConfigID]*model.DeckConfig{1: &cfg, 2: &child}, 6)
	is.True(!limits.NewLimitReached(2))
}

func TestCappedSubdeckDoesNotStopSiblings(t *testing.T) {
	is := is.New(t)
	parent := model.DefaultDeckConfig()
	parent.NewPerDay = 20
	parent.ReviewsPerDay = 20
	capped := model.DefaultDeckConfig()
	capped.ID = 2
	capped.NewPerDay = 1
	capped.ReviewsPerDay = 1
	decks := []model.Deck{
		{ID: 1, Name: "P", ConfigID: 1},
		{ID: 2, Name: "P::A", ConfigID: 2},
		{ID: 3, Name: "P::B", ConfigID: 1},
	}
	configs := map[model.DeckConfigID]*model.DeckConfig{1: &parent, 2: &capped}
	b := NewBuilder(Options{}, NewLimits(decks, configs, 0))

	is.Equal(b.AddNewCard(NewCard{ID: 1, NoteID: 1, DeckID: 2}), Added)
	is.Equal(b.AddNewCard(NewCard{ID: 2, NoteID: 2, DeckID: 2}), Skipped)
	is.Equal(b.AddNewCard(NewCard{ID: 3, NoteID: 3, DeckID: 3}), Added)
	is.Equal(b.AddNewCard(NewCard{ID: 4, NoteID: 4, DeckID: 3}), Added)

	is.Equal(b.AddDueCard(DueCard{ID: 5, NoteID: 5, DeckID: 2}), Added)
	is.Equal(b.AddDueCard(DueCard{ID: 6, NoteID: 6, DeckID: 2}), Skipped)
	is.Equal(b.AddDueCard(DueCard{ID: 7, NoteID: 7, DeckID: 3}), Added)

	is.Equal(b.Build(buildTime).Counts(), Counts{New: 3, Review: 2})
}

func TestRootLimitStopsGathering(t *testing.T) {
	is := is.New(t)
	root := model.DefaultDeckConfig()
	root.NewPerDay = 1
	child := model.DefaultDeckConfig()
	child.ID = 2
	child.NewPerDay = 50
	decks := []model.Deck{
		{ID: 1, Name: "P", ConfigID: 1},
		{ID: 2, Name: "P::A", ConfigID: 2},
	}
	limits := NewLimits(decks, map[model.DeckConfigID]*model.DeckConfig{1: &root, 2: &child}, 0)
	b := NewBuilder(Options{}, limits)
	is.True(!limits.RootNewLimitReached())
	is.Equal(b.AddNewCard(NewCard{ID: 1, NoteID: 1, DeckID: 2}), Added)
	is.True(limits.RootNewLimitReached())
	is.Equal(b.AddNewCard(NewCard{ID: 2, NoteID: 2, DeckID: 2}), StopGathering)
	is.True(!limits.RootReviewLimitReached())
}

func TestNewOrder(t *testing.T) {
	is := is.New(t)
	build := func(order model.NewCardOrder) []model.CardID {
		b := NewBuilder(Options{NewOrder: order}, nil)
		for i := 10; i > 0; i-- {
			b.AddNewCard(NewCard{ID: model.CardID(i), NoteID: model.NoteID(i), Due: int64(i), Mtime: 1})
		}
		var ids []model.CardID
		for _, e := range b.Build(buildTime).Iter(false) {
			ids = append(ids, e.CardID())
		}
		return ids
	}
	is.Equal(build(model.NewCardOrderDue)[:3], []model.CardID{1, 2, 3})
	// random order is stable
	is.Equal(build(model.NewCardOrderRandom), build(model.NewCardOrderRandom))
}

func TestReviewOrder(t *testing.T) {
	is := is.New(t)
	b := NewBuilder(Options{ReviewOrder: model.ReviewOrderIntervalsDescending}, nil)
	b.AddDueCard(DueCard{ID: 1, NoteID: 1, Interval: 5})
	b.AddDueCard(DueCard{ID: 2, NoteID: 2, Interval: 50})
	b.AddDueCard(DueCard{ID: 3, NoteID: 3, Interval: 20})
	var ids []model.CardID
	for _, e := range b.Build(buildTime).Iter(false) {
		ids = append(ids, e.CardID())
	}
	is.Equal(ids, []model.CardID{2, 3, 1})
}

func testQueues() *CardQueues {
	b := NewBuilder(Options{LearnAheadSecs: 1200, NewMix: model.ReviewMixAfterReviews}, nil)
	now := buildTime.Unix()
	b.AddIntradayLearning(DueCard{ID: 1, NoteID: 1, Due: now - 60})
	b.AddIntradayLearning(DueCard{ID: 2, NoteID: 2, Due: now + 600})
	b.AddIntradayLearning(DueCard{ID: 3, NoteID: 3, Due: now + 3600})
	b.AddDueCard(DueCard{ID: 4, NoteID: 4})
	b.AddNewCard(NewCard{ID: 5, NoteID: 5})
	return b.Build(buildTime)
}

func iterIDs(q *CardQueues, intradayOnly bool) []model.CardID {
	var ids []model.CardID
	for _, e := range q.Iter(intradayOnly) {
		ids = append(ids, e.CardID())
	}
	return ids
}

func TestIterOrder(t *testing.T) {
	is := is.New(t)
	q := testQueues()
	is.Equal(iterIDs(q, false), []model.CardID{1, 4, 5, 2})
	is.Equal(iterIDs(q, true), []model.CardID{1, 2})
	is.Equal(q.Counts(), Counts{New: 1, Learning: 2, Review: 1})
}

func TestPopAnsweredMustBeAtFront(t *testing.T) {
	is := is.New(t)
	q := testQueues()
	_, err := q.PopAnswered(5)
	is.True(err != nil)

	e, err := q.PopAnswered(4)
	is.NoErr(err)
	is.Equal(e, MainEntry{ID: 4, Kind: KindReview})
	is.Equal(q.Counts().Review, 0)
}

func TestAnswerUndoRedo(t *testing.T) {
	is := is.New(t)
	q := testQueues()
	beforeIDs := iterIDs(q, false)
	beforeCounts := q.Counts()
	now := buildTime.Add(30 * time.Second)

	// the learning card goes back for another step
	requeue := LearningEntry{ID: 1, Due: now.Unix() + 600}
	upd, err := q.AnswerCard(1, &requeue, now)
	is.NoErr(err)
	is.Equal(iterIDs(q, false), []model.CardID{4, 5, 2, 1})

	q.Undo(upd)
	is.Equal(iterIDs(q, false), beforeIDs)
	is.Equal(q.Counts(), beforeCounts)

	is.NoErr(q.Redo(upd, now))
	is.Equal(iterIDs(q, false), []model.CardID{4, 5, 2, 1})

	// a main queue card
	q = testQueues()
	upd, err = q.AnswerCard(1, nil, now)
	is.NoErr(err)
	upd2, err := q.AnswerCard(4, nil, now)
	is.NoErr(err)
	is.Equal(q.Counts().Review, 0)
	q.Undo(upd2)
	q.Undo(upd)
	is.Equal(iterIDs(q, false), beforeIDs)
	is.Equal(q.Counts(), beforeCounts)
}

func TestRequeueCollapsed(t *testing.T) {
	is := is.New(t)
	b := NewBuilder(Options{LearnAheadSecs: 1200}, nil)
	now := buildTime.Unix()
	b.AddIntradayLearning(DueCard{ID: 1, NoteID: 1, Due: now - 5})
	b.AddIntradayLearning(DueCard{ID: 2, NoteID: 2, Due: now + 100})
	q := b.Build(buildTime)

	_, err := q.PopAnswered(1)
	is.NoErr(err)
	// nothing else to study, so the card goes behind card 2
	e := q.RequeueLearning(LearningEntry{ID: 1, Due: now + 60})
	is.Equal(e.Due, now+101)
	is.Equal(iterIDs(q, false), []model.CardID{2, 1})
}

func TestUpdateLearningCutoff(t *testing.T) {
	is := is.New(t)
	q := testQueues()
	is.Equal(q.Counts().Learning, 2)
	snap := q.UpdateLearningCutoff(buildTime.Add(time.Hour))
	is.Equal(q.Counts().Learning, 3)
	is.Equal(snap, CutoffSnapshot{LearningCount: 2, Cutoff: buildTime.Unix()})

	q.restoreCutoff(snap)
	is.Equal(q.Counts().Learning, 2)
}
