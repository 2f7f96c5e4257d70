package queue

import (
	"github.com/domino14/srs_scheduler/internal/model"
)

type limit struct {
	new    int
	review int
}

// Limits tracks how many more new and review cards each deck may show
// today. A deck's limit also caps every deck beneath it. Decks without an
// entry, such as filtered decks, are unlimited.
type Limits struct {
	root      model.DeckID
	remaining map[model.DeckID]*limit
	parents   map[model.DeckID][]model.DeckID
}

// NewLimits computes today's remaining limits for decks. decks[0] is the
// deck being studied and the rest are its descendants. configs is keyed by
// deck config id.
func NewLimits(decks []model.Deck, configs map[model.DeckConfigID]*model.DeckConfig, today uint32) *Limits {
	l := &Limits{
		remaining: make(map[model.DeckID]*limit, len(decks)),
		parents:   make(map[model.DeckID][]model.DeckID, len(decks)),
	}
	if len(decks) > 0 {
		l.root = decks[0].ID
	}
	byName := make(map[string]model.DeckID, len(decks))
	for i := range decks {
		byName[decks[i].Name] = decks[i].ID
	}
	for i := range decks {
		d := &decks[i]
		for parent := d.ParentName(); parent != ""; {
			if id, ok := byName[parent]; ok {
				l.parents[d.ID] = append(l.parents[d.ID], id)
			}
			p := model.Deck{Name: parent}
			parent = p.ParentName()
		}
		if d.IsFiltered() {
			continue
		}
		cfg, ok := configs[d.ConfigID]
		if !ok {
			continue
		}
		studied := d.StudiedToday(today)
		l.remaining[d.ID] = &limit{
			new:    max(int(cfg.NewPerDay)-int(studied.NewStudied), 0),
			review: max(int(cfg.ReviewsPerDay)-int(studied.ReviewStudied), 0),
		}
	}
	return l
}

func (l *Limits) chain(id model.DeckID) []model.DeckID {
	return append([]model.DeckID{id}, l.parents[id]...)
}

func (l *Limits) reached(id model.DeckID, kind func(*limit) *int) bool {
	if l == nil {
		return false
	}
	for _, d := range l.chain(id) {
		if r, ok := l.remaining[d]; ok && *kind(r) <= 0 {
			return true
		}
	}
	return false
}

func (l *Limits) decrement(id model.DeckID, kind func(*limit) *int) {
	if l == nil {
		return
	}
	for _, d := range l.chain(id) {
		if r, ok := l.remaining[d]; ok {
			*kind(r)--
		}
	}
}

func newField(r *limit) *int    { return &r.new }
func reviewField(r *limit) *int { return &r.review }

func (l *Limits) NewLimitReached(id model.DeckID) bool    { return l.reached(id, newField) }
func (l *Limits) ReviewLimitReached(id model.DeckID) bool { return l.reached(id, reviewField) }

func (l *Limits) rootReached(kind func(*limit) *int) bool {
	if l == nil {
		return false
	}
	r, ok := l.remaining[l.root]
	return ok && *kind(r) <= 0
}

// RootNewLimitReached reports whether the studied deck can take no more
// new cards, whatever deck they come from.
func (l *Limits) RootNewLimitReached() bool    { return l.rootReached(newField) }
func (l *Limits) RootReviewLimitReached() bool { return l.rootReached(reviewField) }
