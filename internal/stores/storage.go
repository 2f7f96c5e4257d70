// Package stores defines the persistence boundary of a collection.
package stores

import (
	"context"

	"github.com/domino14/srs_scheduler/internal/model"
)

// LocalUsn marks rows changed locally since the last sync.
const LocalUsn model.Usn = -1

// UsnConfigKey holds the collection's update sequence number.
const UsnConfigKey = "usn"

// CardFilter selects cards. Zero-valued fields do not filter. Results are
// ordered by due, then template index, then id.
type CardFilter struct {
	DeckIDs       []model.DeckID
	Queues        []model.CardQueue
	NoteID        model.NoteID
	ExcludeCardID model.CardID
	// DueBefore and DueAtOrAfter bound the due column when set.
	DueBefore    *int64
	DueAtOrAfter *int64
	Limit        int
}

// Storage is everything the collection needs from a backend. Writes are
// only allowed inside a transaction, and transactions do not nest.
// Getters return an errs.ErrNotFound error for missing rows.
type Storage interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	InTransaction() bool

	GetCard(ctx context.Context, id model.CardID) (*model.Card, error)
	// AddCard assigns an id when card.ID is zero.
	AddCard(ctx context.Context, card *model.Card) error
	UpdateCard(ctx context.Context, card *model.Card) error
	RemoveCard(ctx context.Context, id model.CardID) error
	SearchCards(ctx context.Context, f CardFilter) ([]model.Card, error)

	// AddRevlog bumps entry.ID until it is unique.
	AddRevlog(ctx context.Context, entry *model.RevlogEntry) error
	GetRevlog(ctx context.Context, id model.RevlogID) (*model.RevlogEntry, error)
	RemoveRevlog(ctx context.Context, id model.RevlogID) error
	RevlogForCard(ctx context.Context, id model.CardID) ([]model.RevlogEntry, error)

	GetNote(ctx context.Context, id model.NoteID) (*model.Note, error)
	AddNote(ctx context.Context, note *model.Note) error
	UpdateNote(ctx context.Context, note *model.Note) error
	RemoveNote(ctx context.Context, id model.NoteID) error

	HasTag(ctx context.Context, name string) (bool, error)
	AddTag(ctx context.Context, name string) error
	RemoveTag(ctx context.Context, name string) error

	GetDeck(ctx context.Context, id model.DeckID) (*model.Deck, error)
	AddDeck(ctx context.Context, deck *model.Deck) error
	UpdateDeck(ctx context.Context, deck *model.Deck) error
	RemoveDeck(ctx context.Context, id model.DeckID) error
	AllDecks(ctx context.Context) ([]model.Deck, error)

	GetDeckConfig(ctx context.Context, id model.DeckConfigID) (*model.DeckConfig, error)
	AddDeckConfig(ctx context.Context, cfg *model.DeckConfig) error
	UpdateDeckConfig(ctx context.Context, cfg *model.DeckConfig) error
	RemoveDeckConfig(ctx context.Context, id model.DeckConfigID) error
	AllDeckConfigs(ctx context.Context) ([]model.DeckConfig, error)

	// Config values are raw JSON.
	GetConfig(ctx context.Context, key string) ([]byte, error)
	SetConfig(ctx context.Context, key string, value []byte) error
	RemoveConfig(ctx context.Context, key string) error

	// Usn is the number to stamp on changed rows.
	Usn(ctx context.Context) (model.Usn, error)

	Close() error
}
