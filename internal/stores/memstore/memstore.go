// Package memstore keeps a collection in memory. Transactions snapshot
// the whole store and restore it on rollback.
package memstore

import (
	"cmp"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/stores"
)

type data struct {
	cards       map[model.CardID]model.Card
	notes       map[model.NoteID]model.Note
	revlog      map[model.RevlogID]model.RevlogEntry
	decks       map[model.DeckID]model.Deck
	deckConfigs map[model.DeckConfigID]model.DeckConfig
	tags        map[string]string
	config      map[string][]byte
}

func newData() *data {
	return &data{
		cards:       map[model.CardID]model.Card{},
		notes:       map[model.NoteID]model.Note{},
		revlog:      map[model.RevlogID]model.RevlogEntry{},
		decks:       map[model.DeckID]model.Deck{},
		deckConfigs: map[model.DeckConfigID]model.DeckConfig{},
		tags:        map[string]string{},
		config:      map[string][]byte{},
	}
}

func cloneMap[K comparable, V any](m map[K]V, clone func(V) V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		cards:       cloneMap(d.cards, model.Card.Clone),
		notes:       cloneMap(d.notes, model.Note.Clone),
		revlog:      maps.Clone(d.revlog),
		decks:       cloneMap(d.decks, model.Deck.Clone),
		deckConfigs: cloneMap(d.deckConfigs, model.DeckConfig.Clone),
		tags:        maps.Clone(d.tags),
		config:      cloneMap(d.config, slices.Clone[[]byte]),
	}
}

// Store is not safe for concurrent use.
type Store struct {
	d        *data
	snapshot *data
}

var _ stores.Storage = (*Store)(nil)

func New() *Store {
	return &Store{d: newData()}
}

func (s *Store) Begin(ctx context.Context) error {
	if s.snapshot != nil {
		return errs.InvalidInput("transaction already open")
	}
	s.snapshot = s.d.clone()
	return nil
}

func (s *Store) Commit(ctx context.Context) error {
	if s.snapshot == nil {
		return errs.InvalidInput("no transaction open")
	}
	s.snapshot = nil
	return nil
}

func (s *Store) Rollback(ctx context.Context) error {
	if s.snapshot == nil {
		return nil
	}
	s.d = s.snapshot
	s.snapshot = nil
	return nil
}

func (s *Store) InTransaction() bool {
	return s.snapshot != nil
}

func (s *Store) Close() error { return nil }

func (s *Store) writable() error {
	if s.snapshot == nil {
		return errs.InvalidInput("write outside of a transaction")
	}
	return nil
}

func nextID[K ~int64, V any](m map[K]V) K {
	var id K
	for k := range m {
		id = max(id, k)
	}
	return id + 1
}

func get[K comparable, V any](m map[K]V, what string, id K, clone func(V) V) (*V, error) {
	v, ok := m[id]
	if !ok {
		return nil, errs.NotFound(what, id)
	}
	v = clone(v)
	return &v, nil
}

func identity[V any](v V) V { return v }

func (s *Store) GetCard(ctx context.Context, id model.CardID) (*model.Card, error) {
	return get(s.d.cards, "card", id, model.Card.Clone)
}

func (s *Store) AddCard(ctx context.Context, card *model.Card) error {
	if err := s.writable(); err != nil {
		return err
	}
	if card.ID == 0 {
		card.ID = nextID(s.d.cards)
	} else if _, ok := s.d.cards[card.ID]; ok {
		return errs.Conflict("card %d exists", card.ID)
	}
	s.d.cards[card.ID] = card.Clone()
	return nil
}

func (s *Store) UpdateCard(ctx context.Context, card *model.Card) error {
	if err := s.writable(); err != nil {
		return err
	}
	if _, ok := s.d.cards[card.ID]; !ok {
		return errs.NotFound("card", card.ID)
	}
	s.d.cards[card.ID] = card.Clone()
	return nil
}

func (s *Store) RemoveCard(ctx context.Context, id model.CardID) error {
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.d.cards, id)
	return nil
}

func matches(c *model.Card, f *stores.CardFilter) bool {
	switch {
	case len(f.DeckIDs) > 0 && !slices.Contains(f.DeckIDs, c.DeckID):
		return false
	case len(f.Queues) > 0 && !slices.Contains(f.Queues, c.Queue):
		return false
	case f.NoteID != 0 && c.NoteID != f.NoteID:
		return false
	case f.ExcludeCardID != 0 && c.ID == f.ExcludeCardID:
		return false
	case f.DueBefore != nil && c.Due >= *f.DueBefore:
		return false
	case f.DueAtOrAfter != nil && c.Due < *f.DueAtOrAfter:
		return false
	}
	return true
}

func (s *Store) SearchCards(ctx context.Context, f stores.CardFilter) ([]model.Card, error) {
	var out []model.Card
	for _, c := range s.d.cards {
		if matches(&c, &f) {
			out = append(out, c.Clone())
		}
	}
	slices.SortFunc(out, func(a, b model.Card) int {
		return cmp.Or(cmp.Compare(a.Due, b.Due), cmp.Compare(a.TemplateIdx, b.TemplateIdx),
			cmp.Compare(a.ID, b.ID))
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) AddRevlog(ctx context.Context, entry *model.RevlogEntry) error {
	if err := s.writable(); err != nil {
		return err
	}
	for {
		if _, ok := s.d.revlog[entry.ID]; !ok {
			break
		}
		entry.ID++
	}
	s.d.revlog[entry.ID] = *entry
	return nil
}

func (s *Store) GetRevlog(ctx context.Context, id model.RevlogID) (*model.RevlogEntry, error) {
	return get(s.d.revlog, "revlog entry", id, identity[model.RevlogEntry])
}

func (s *Store) RemoveRevlog(ctx context.Context, id model.RevlogID) error {
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.d.revlog, id)
	return nil
}

func (s *Store) RevlogForCard(ctx context.Context, id model.CardID) ([]model.RevlogEntry, error) {
	var out []model.RevlogEntry
	for _, e := range s.d.revlog {
		if e.CardID == id {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.RevlogEntry) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) GetNote(ctx context.Context, id model.NoteID) (*model.Note, error) {
	return get(s.d.notes, "note", id, model.Note.Clone)
}

func (s *Store) AddNote(ctx context.Context, note *model.Note) error {
	if err := s.writable(); err != nil {
		return err
	}
	if note.ID == 0 {
		note.ID = nextID(s.d.notes)
	} else if _, ok := s.d.notes[note.ID]; ok {
		return errs.Conflict("note %d exists", note.ID)
	}
	s.d.notes[note.ID] = note.Clone()
	return nil
}

func (s *Store) UpdateNote(ctx context.Context, note *model.Note) error {
	if err := s.writable(); err != nil {
		return err
	}
	if _, ok := s.d.notes[note.ID]; !ok {
		return errs.NotFound("note", note.ID)
	}
	s.d.notes[note.ID] = note.Clone()
	return nil
}

func (s *Store) RemoveNote(ctx context.Context, id model.NoteID) error {
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.d.notes, id)
	return nil
}

func (s *Store) HasTag(ctx context.Context, name string) (bool, error) {
	_, ok := s.d.tags[strings.ToLower(name)]
	return ok, nil
}

func (s *Store) AddTag(ctx context.Context, name string) error {
	if err := s.writable(); err != nil {
		return err
	}
	s.d.tags[strings.ToLower(name)] = name
	return nil
}

func (s *Store) RemoveTag(ctx context.Context, name string) error {
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.d.tags, strings.ToLower(name))
	return nil
}

func (s *Store) GetDeck(ctx context.Context, id model.DeckID) (*model.Deck, error) {
	return get(s.d.decks, "deck", id, model.Deck.Clone)
}

func (s *Store) AddDeck(ctx context.Context, deck *model.Deck) error {
	if err := s.writable(); err != nil {
		return err
	}
	for _, d := range s.d.decks {
		if strings.EqualFold(d.Name, deck.Name) && d.ID != deck.ID {
			return errs.Conflict("deck %q exists", deck.Name)
		}
	}
	if deck.ID == 0 {
		deck.ID = nextID(s.d.decks)
	} else if _, ok := s.d.decks[deck.ID]; ok {
		return errs.Conflict("deck %d exists", deck.ID)
	}
	s.d.decks[deck.ID] = deck.Clone()
	return nil
}

func (s *Store) UpdateDeck(ctx context.Context, deck *model.Deck) error {
	if err := s.writable(); err != nil {
		return err
	}
	if _, ok := s.d.decks[deck.ID]; !ok {
		return errs.NotFound("deck", deck.ID)
	}
	s.d.decks[deck.ID] = deck.Clone()
	return nil
}

func (s *Store) RemoveDeck(ctx context.Context, id model.DeckID) error {
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.d.decks, id)
	return nil
}

func (s *Store) AllDecks(ctx context.Context) ([]model.Deck, error) {
	out := make([]model.Deck, 0, len(s.d.decks))
	for _, d := range s.d.decks {
		out = append(out, d.Clone())
	}
	slices.SortFunc(out, func(a, b model.Deck) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) GetDeckConfig(ctx context.Context, id model.DeckConfigID) (*model.DeckConfig, error) {
	return get(s.d.deckConfigs, "deck config", id, model.DeckConfig.Clone)
}

func (s *Store) AddDeckConfig(ctx context.Context, cfg *model.DeckConfig) error {
	if err := s.writable(); err != nil {
		return err
	}
	if cfg.ID == 0 {
		cfg.ID = nextID(s.d.deckConfigs)
	} else if _, ok := s.d.deckConfigs[cfg.ID]; ok {
		return errs.Conflict("deck config %d exists", cfg.ID)
	}
	s.d.deckConfigs[cfg.ID] = cfg.Clone()
	return nil
}

func (s *Store) UpdateDeckConfig(ctx context.Context, cfg *model.DeckConfig) error {
	if err := s.writable(); err != nil {
		return err
	}
	if _, ok := s.d.deckConfigs[cfg.ID]; !ok {
		return errs.NotFound("deck config", cfg.ID)
	}
	s.d.deckConfigs[cfg.ID] = cfg.Clone()
	return nil
}

func (s *Store) RemoveDeckConfig(ctx context.Context, id model.DeckConfigID) error {
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.d.deckConfigs, id)
	return nil
}

func (s *Store) AllDeckConfigs(ctx context.Context) ([]model.DeckConfig, error) {
	out := make([]model.DeckConfig, 0, len(s.d.deckConfigs))
	for _, c := range s.d.deckConfigs {
		out = append(out, c.Clone())
	}
	slices.SortFunc(out, func(a, b model.DeckConfig) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) GetConfig(ctx context.Context, key string) ([]byte, error) {
	v, ok := s.d.config[key]
	if !ok {
		return nil, errs.NotFound("config key", key)
	}
	return slices.Clone(v), nil
}

func (s *Store) SetConfig(ctx context.Context, key string, value []byte) error {
	if err := s.writable(); err != nil {
		return err
	}
	if !json.Valid(value) {
		return errs.InvalidInput("config %s: value is not JSON", key)
	}
	s.d.config[key] = slices.Clone(value)
	return nil
}

func (s *Store) RemoveConfig(ctx context.Context, key string) error {
	if err := s.writable(); err != nil {
		return err
	}
	delete(s.d.config, key)
	return nil
}

func (s *Store) Usn(ctx context.Context) (model.Usn, error) {
	v, ok := s.d.config[stores.UsnConfigKey]
	if !ok {
		return stores.LocalUsn, nil
	}
	var usn model.Usn
	if err := json.Unmarshal(v, &usn); err != nil {
		return 0, errs.DB(err)
	}
	return usn, nil
}
