package queue

import (
	"cmp"
	"encoding/binary"
	"hash/fnv"
	"slices"
	"time"

	"github.com/domino14/srs_scheduler/internal/model"
)

type DueCardKind uint8

const (
	DueReview DueCardKind = iota
	DueLearning
)

// DueCard is a learning or review card read from storage. Due is a unix
// timestamp for intraday learning cards and a day number otherwise.
type DueCard struct {
	ID       model.CardID
	NoteID   model.NoteID
	DeckID   model.DeckID
	Mtime    int64
	Due      int64
	Interval uint32
	Kind     DueCardKind
}

type NewCard struct {
	ID          model.CardID
	NoteID      model.NoteID
	DeckID      model.DeckID
	Mtime       int64
	Due         int64
	TemplateIdx uint16
}

// Options are the ordering options of the deck being studied.
type Options struct {
	NewOrder            model.NewCardOrder
	ReviewOrder         model.ReviewCardOrder
	NewMix              model.ReviewMix
	InterdayLearningMix model.ReviewMix
	LearnAheadSecs      int64
	Today               uint32
}

func OptionsFromConfig(cfg *model.DeckConfig, today uint32, learnAheadSecs int64) Options {
	return Options{
		NewOrder:            cfg.NewCardOrder,
		ReviewOrder:         cfg.ReviewOrder,
		NewMix:              cfg.NewMix,
		InterdayLearningMix: cfg.InterdayLearningMix,
		LearnAheadSecs:      learnAheadSecs,
		Today:               today,
	}
}

// Builder collects candidate cards and turns them into CardQueues. Cards
// must be added in gathering order: intraday learning, interday learning,
// reviews, then new cards. Siblings of cards added earlier are buried
// according to the bury mode of the decks those cards came from.
type Builder struct {
	opts   Options
	limits *Limits

	learning []LearningEntry
	dayLearn []DueCard
	review   []DueCard
	newCards []NewCard

	buryModes   map[model.DeckID]BuryMode
	seenNoteIDs map[model.NoteID]BuryMode
}

// NewBuilder returns a builder. A nil limits means unlimited.
func NewBuilder(opts Options, limits *Limits) *Builder {
	return &Builder{
		opts:        opts,
		limits:      limits,
		buryModes:   map[model.DeckID]BuryMode{},
		seenNoteIDs: map[model.NoteID]BuryMode{},
	}
}

func (b *Builder) SetBuryMode(deck model.DeckID, mode BuryMode) {
	b.buryModes[deck] = mode
}

// updateBuryMode records that a card of noteID from deck was seen, and
// returns the mode in effect before this card's own deck was merged in.
// A card therefore buries its siblings but never itself.
func (b *Builder) updateBuryMode(noteID model.NoteID, deck model.DeckID) (BuryMode, bool) {
	own := b.buryModes[deck]
	prev, seen := b.seenNoteIDs[noteID]
	b.seenNoteIDs[noteID] = prev.Or(own)
	return prev, seen
}

func (b *Builder) AddIntradayLearning(c DueCard) {
	b.updateBuryMode(c.NoteID, c.DeckID)
	b.learning = append(b.learning, LearningEntry{Due: c.Due, ID: c.ID, Mtime: c.Mtime})
}

// AddOutcome says what became of a card offered to the builder.
type AddOutcome uint8

const (
	Added AddOutcome = iota
	// Skipped cards were buried or over their own deck's limit. Gathering
	// continues, since cards of other decks may still fit.
	Skipped
	// StopGathering means the studied deck's own limit is used up.
	StopGathering
)

// AddDueCard adds an interday learning or review card.
func (b *Builder) AddDueCard(c DueCard) AddOutcome {
	if b.limits.RootReviewLimitReached() {
		return StopGathering
	}
	if b.limits.ReviewLimitReached(c.DeckID) {
		return Skipped
	}
	if mode, seen := b.updateBuryMode(c.NoteID, c.DeckID); seen {
		bury := mode.BuryReviews
		if c.Kind == DueLearning {
			bury = mode.BuryInterdayLearning
		}
		if bury {
			return Skipped
		}
	}
	if c.Kind == DueLearning {
		b.dayLearn = append(b.dayLearn, c)
	} else {
		b.review = append(b.review, c)
	}
	b.limits.decrement(c.DeckID, reviewField)
	return Added
}

func (b *Builder) AddNewCard(c NewCard) AddOutcome {
	if b.limits.RootNewLimitReached() {
		return StopGathering
	}
	if b.limits.NewLimitReached(c.DeckID) {
		return Skipped
	}
	if mode, seen := b.updateBuryMode(c.NoteID, c.DeckID); seen && mode.BuryNew {
		return Skipped
	}
	b.newCards = append(b.newCards, c)
	b.limits.decrement(c.DeckID, newField)
	return Added
}

// Build sorts and merges the gathered cards.
func (b *Builder) Build(now time.Time) *CardQueues {
	b.sortNew()
	b.sortDue(b.review, b.opts.ReviewOrder)
	b.sortDue(b.dayLearn, model.ReviewOrderShuffledByDay)
	slices.SortStableFunc(b.learning, func(x, y LearningEntry) int {
		return cmp.Compare(x.Due, y.Due)
	})

	reviews := iterOf(mainEntries(b.review, KindReview))
	dayLearn := iterOf(mainEntries(b.dayLearn, KindInterdayLearning))
	newCards := make([]MainEntry, len(b.newCards))
	for i, c := range b.newCards {
		newCards[i] = MainEntry{ID: c.ID, Mtime: c.Mtime, Kind: KindNew}
	}

	withLearning := mix(reviews, dayLearn, b.opts.InterdayLearningMix)
	main := collect(mix(withLearning, iterOf(newCards), b.opts.NewMix))

	q := &CardQueues{
		main:           main,
		learning:       b.learning,
		learnAheadSecs: b.opts.LearnAheadSecs,
		cutoff:         now.Unix(),
		buildTime:      now,
		today:          b.opts.Today,
	}
	q.counts = Counts{
		New:      len(b.newCards),
		Review:   len(b.review),
		Learning: len(b.dayLearn) + q.learningDueBefore(q.learnAheadCutoff()),
	}
	return q
}

func mainEntries(cards []DueCard, kind MainEntryKind) []MainEntry {
	out := make([]MainEntry, len(cards))
	for i, c := range cards {
		out[i] = MainEntry{ID: c.ID, Mtime: c.Mtime, Kind: kind}
	}
	return out
}

func (b *Builder) sortNew() {
	switch b.opts.NewOrder {
	case model.NewCardOrderRandom:
		slices.SortStableFunc(b.newCards, func(x, y NewCard) int {
			return cmp.Compare(cardHash(int64(x.ID), x.Mtime), cardHash(int64(y.ID), y.Mtime))
		})
	default:
		slices.SortStableFunc(b.newCards, func(x, y NewCard) int {
			return cmp.Or(cmp.Compare(x.Due, y.Due), cmp.Compare(x.TemplateIdx, y.TemplateIdx))
		})
	}
}

func (b *Builder) sortDue(cards []DueCard, order model.ReviewCardOrder) {
	today := int64(b.opts.Today)
	hash := func(c DueCard) uint64 { return cardHash(int64(c.ID), today) }
	var f func(x, y DueCard) int
	switch order {
	case model.ReviewOrderShuffled:
		f = func(x, y DueCard) int { return cmp.Compare(hash(x), hash(y)) }
	case model.ReviewOrderIntervalsAscending:
		f = func(x, y DueCard) int {
			return cmp.Or(cmp.Compare(x.Interval, y.Interval), cmp.Compare(hash(x), hash(y)))
		}
	case model.ReviewOrderIntervalsDescending:
		f = func(x, y DueCard) int {
			return cmp.Or(cmp.Compare(y.Interval, x.Interval), cmp.Compare(hash(x), hash(y)))
		}
	default:
		f = func(x, y DueCard) int {
			return cmp.Or(cmp.Compare(x.Due, y.Due), cmp.Compare(hash(x), hash(y)))
		}
	}
	slices.SortStableFunc(cards, f)
}

// cardHash is stable across rebuilds, so the order does not change until
// the card or the salt does.
func cardHash(id, salt int64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(id))
	binary.LittleEndian.PutUint64(buf[8:], uint64(salt))
	h := fnv.New64a()
	h.Write(buf[:])
	return h.Sum64()
}
