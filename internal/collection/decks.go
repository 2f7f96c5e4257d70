package collection

import (
	"context"
	"strings"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/stores"
)

// filteredDueBase orders cards pulled into a filtered deck ahead of any
// real due day.
const filteredDueBase = -100_000

// normalizeDeckName trims each component of a "::" separated name.
func normalizeDeckName(name string) (string, error) {
	parts := strings.Split(name, "::")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", errs.InvalidInput("deck name %q has an empty component", name)
		}
		parts[i] = p
	}
	return strings.Join(parts, "::"), nil
}

func (c *Collection) deckByName(ctx context.Context, name string) (*model.Deck, error) {
	decks, err := c.storage.AllDecks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range decks {
		if strings.EqualFold(decks[i].Name, name) {
			return &decks[i], nil
		}
	}
	return nil, errs.NotFound("deck", name)
}

// ancestors returns the deck's parents, nearest first.
func (c *Collection) ancestors(ctx context.Context, deck *model.Deck) ([]model.Deck, error) {
	var out []model.Deck
	for name := deck.ParentName(); name != ""; {
		p, err := c.deckByName(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
		name = p.ParentName()
	}
	return out, nil
}

// deckAndChildren returns the deck followed by every deck beneath it.
func (c *Collection) deckAndChildren(ctx context.Context, id model.DeckID) ([]model.Deck, error) {
	deck, err := c.getDeck(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := c.storage.AllDecks(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Deck{*deck}
	for _, d := range all {
		if d.IsDescendantOf(deck.Name) {
			out = append(out, d)
		}
	}
	return out, nil
}

func deckIDs(decks []model.Deck) []model.DeckID {
	ids := make([]model.DeckID, len(decks))
	for i, d := range decks {
		ids[i] = d.ID
	}
	return ids
}

// AddDeck creates a normal deck, along with any missing parents. Adding a
// deck that already exists returns it unchanged.
func (c *Collection) AddDeck(ctx context.Context, name string, configID model.DeckConfigID) (OpOutput[model.Deck], error) {
	return transact(ctx, c, OpAddDeck, func(ctx context.Context) (model.Deck, error) {
		d, err := c.ensureDeck(ctx, name, configID)
		if err != nil {
			return model.Deck{}, err
		}
		return *d, nil
	})
}

func (c *Collection) ensureDeck(ctx context.Context, name string, configID model.DeckConfigID) (*model.Deck, error) {
	name, err := normalizeDeckName(name)
	if err != nil {
		return nil, err
	}
	if existing, err := c.deckByName(ctx, name); err == nil {
		if existing.IsFiltered() {
			return nil, errs.Conflict("%q is a filtered deck", name)
		}
		return existing, nil
	} else if !errs.IsNotFound(err) {
		return nil, err
	}
	if configID == 0 {
		configID = model.DefaultDeckConfigID
	}
	if _, err := c.storage.GetDeckConfig(ctx, configID); err != nil {
		return nil, err
	}
	deck := &model.Deck{Name: name, ConfigID: configID}
	if parent := deck.ParentName(); parent != "" {
		p, err := c.ensureDeck(ctx, parent, configID)
		if err != nil {
			return nil, err
		}
		deck.Name = p.Name + name[len(parent):]
	}
	usn, err := c.storage.Usn(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.addDeck(ctx, deck, usn); err != nil {
		return nil, err
	}
	return deck, nil
}

// AddFilteredDeck creates a filtered deck and pulls in the cards it
// matches. The search names a source deck; its subdecks are included.
// Suspended, buried and already-borrowed cards are left alone, as are
// learning and review cards that are not due today.
func (c *Collection) AddFilteredDeck(ctx context.Context, name string, opts model.FilteredDeck) (OpOutput[model.Deck], error) {
	return transact(ctx, c, OpBuildFilteredDeck, func(ctx context.Context) (model.Deck, error) {
		name, err := normalizeDeckName(name)
		if err != nil {
			return model.Deck{}, err
		}
		if _, err := c.deckByName(ctx, name); err == nil {
			return model.Deck{}, errs.Conflict("deck %q already exists", name)
		} else if !errs.IsNotFound(err) {
			return model.Deck{}, err
		}
		source, err := c.deckByName(ctx, strings.TrimSpace(opts.Search))
		if err != nil {
			return model.Deck{}, err
		}
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return model.Deck{}, err
		}
		f := opts
		deck := &model.Deck{Name: name, Filtered: &f}
		if err := c.addDeck(ctx, deck, usn); err != nil {
			return model.Deck{}, err
		}
		if err := c.fillFilteredDeck(ctx, deck, source, usn); err != nil {
			return model.Deck{}, err
		}
		return *deck, nil
	})
}

func (c *Collection) fillFilteredDeck(ctx context.Context, deck, source *model.Deck, usn model.Usn) error {
	sources, err := c.deckAndChildren(ctx, source.ID)
	if err != nil {
		return err
	}
	t, err := c.TimingToday(ctx)
	if err != nil {
		return err
	}
	cards, err := c.storage.SearchCards(ctx, stores.CardFilter{
		DeckIDs: deckIDs(sources),
		Queues:  []model.CardQueue{model.QueueNew, model.QueueLearn, model.QueueReview, model.QueueDayLearn},
	})
	if err != nil {
		return err
	}
	pos := int64(filteredDueBase)
	for i := range cards {
		if err := c.checkAbort(); err != nil {
			return err
		}
		card := &cards[i]
		if card.InFilteredDeck() {
			continue
		}
		switch card.Queue {
		case model.QueueReview, model.QueueDayLearn:
			if card.Due > int64(t.DaysElapsed) {
				continue
			}
		case model.QueueLearn:
			if card.Due >= t.NextDayAt {
				continue
			}
		}
		original := card.Clone()
		card.OriginalDeckID = card.DeckID
		card.DeckID = deck.ID
		card.OriginalDue = card.Due
		if card.Queue != model.QueueLearn {
			card.Due = pos
			pos++
		}
		if err := c.updateCard(ctx, card, &original, usn); err != nil {
			return err
		}
	}
	return nil
}

// EmptyFilteredDeck returns every card in the filtered deck to its home
// deck without rescheduling it.
func (c *Collection) EmptyFilteredDeck(ctx context.Context, id model.DeckID) (OpChanges, error) {
	return c.Transact(ctx, OpEmptyFilteredDeck, func(ctx context.Context) error {
		deck, err := c.getDeck(ctx, id)
		if err != nil {
			return err
		}
		if !deck.IsFiltered() {
			return errs.InvalidInput("deck %d is not filtered", id)
		}
		cards, err := c.storage.SearchCards(ctx, stores.CardFilter{DeckIDs: []model.DeckID{id}})
		if err != nil {
			return err
		}
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return err
		}
		for i := range cards {
			card := &cards[i]
			original := card.Clone()
			keepQueue := card.Queue < model.QueueNew
			q := card.Queue
			card.RemoveFromFilteredDeckRestoringQueue()
			if keepQueue {
				card.Queue = q
			}
			if err := c.updateCard(ctx, card, &original, usn); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateDeck saves a renamed or reconfigured deck.
func (c *Collection) UpdateDeck(ctx context.Context, deck model.Deck) (OpChanges, error) {
	return c.Transact(ctx, OpUpdateDeck, func(ctx context.Context) error {
		original, err := c.getDeck(ctx, deck.ID)
		if err != nil {
			return err
		}
		if original.IsFiltered() != deck.IsFiltered() {
			return errs.InvalidInput("cannot convert deck %d between normal and filtered", deck.ID)
		}
		name, err := normalizeDeckName(deck.Name)
		if err != nil {
			return err
		}
		deck.Name = name
		if other, err := c.deckByName(ctx, name); err == nil && other.ID != deck.ID {
			return errs.Conflict("deck %q already exists", name)
		}
		if !deck.IsFiltered() {
			if _, err := c.storage.GetDeckConfig(ctx, deck.ConfigID); err != nil {
				return err
			}
		}
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return err
		}
		return c.updateDeck(ctx, &deck, original, usn)
	})
}

// SetCurrentDeck selects the deck that queues are built for.
func (c *Collection) SetCurrentDeck(ctx context.Context, id model.DeckID) (OpChanges, error) {
	return c.Transact(ctx, OpSetCurrentDeck, func(ctx context.Context) error {
		if _, err := c.getDeck(ctx, id); err != nil {
			return err
		}
		return setJSON(ctx, c, ConfigCurrentDeck, id)
	})
}

// AddOrUpdateDeckConfig saves cfg, assigning an id when it has none.
func (c *Collection) AddOrUpdateDeckConfig(ctx context.Context, cfg model.DeckConfig) (OpOutput[model.DeckConfig], error) {
	return transact(ctx, c, OpUpdateDeckConfig, func(ctx context.Context) (model.DeckConfig, error) {
		if err := cfg.Validate(); err != nil {
			return model.DeckConfig{}, err
		}
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return model.DeckConfig{}, err
		}
		if cfg.ID == 0 {
			err = c.addDeckConfig(ctx, &cfg, usn)
			return cfg, err
		}
		original, err := c.storage.GetDeckConfig(ctx, cfg.ID)
		if err != nil {
			return model.DeckConfig{}, err
		}
		err = c.updateDeckConfig(ctx, &cfg, original, usn)
		return cfg, err
	})
}

// Decks lists every deck.
func (c *Collection) Decks(ctx context.Context) ([]model.Deck, error) {
	return c.storage.AllDecks(ctx)
}

func (c *Collection) DeckConfigs(ctx context.Context) ([]model.DeckConfig, error) {
	return c.storage.AllDeckConfigs(ctx)
}
