package collection

import (
	"bytes"
	"context"
	"errors"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
)

// The helpers below are the only way operations write to storage. Each
// records the change needed to reverse it.

func (c *Collection) addCard(ctx context.Context, card *model.Card) error {
	if err := c.storage.AddCard(ctx, card); err != nil {
		return err
	}
	c.undo.record(CardChange{Kind: Added, Card: card.Clone()})
	return nil
}

// updateCard stamps card with the current mtime and usn before saving.
// original is the row as it was read.
func (c *Collection) updateCard(ctx context.Context, card, original *model.Card, usn model.Usn) error {
	card.Mtime = c.now().Unix()
	card.Usn = usn
	if err := c.storage.UpdateCard(ctx, card); err != nil {
		return err
	}
	c.undo.record(CardChange{Kind: Updated, Card: original.Clone()})
	return nil
}

func (c *Collection) addNote(ctx context.Context, note *model.Note) error {
	if err := c.storage.AddNote(ctx, note); err != nil {
		return err
	}
	c.undo.record(NoteChange{Kind: Added, Note: note.Clone()})
	return nil
}

func (c *Collection) updateNote(ctx context.Context, note, original *model.Note, usn model.Usn) error {
	note.Mtime = c.now().Unix()
	note.Usn = usn
	if err := c.storage.UpdateNote(ctx, note); err != nil {
		return err
	}
	c.undo.record(NoteChange{Kind: Updated, Note: original.Clone()})
	return nil
}

// registerTag adds tag to the tag list if it is not there yet.
func (c *Collection) registerTag(ctx context.Context, tag string) error {
	has, err := c.storage.HasTag(ctx, tag)
	if err != nil || has {
		return err
	}
	if err := c.storage.AddTag(ctx, tag); err != nil {
		return err
	}
	c.undo.record(TagChange{Kind: Added, Tag: tag})
	return nil
}

func (c *Collection) addRevlog(ctx context.Context, entry *model.RevlogEntry) error {
	if err := c.storage.AddRevlog(ctx, entry); err != nil {
		return err
	}
	c.undo.record(RevlogChange{Kind: Added, Entry: *entry})
	return nil
}

func (c *Collection) addDeck(ctx context.Context, deck *model.Deck, usn model.Usn) error {
	deck.Mtime = c.now().Unix()
	deck.Usn = usn
	delete(c.deckCache, deck.ID)
	if err := c.storage.AddDeck(ctx, deck); err != nil {
		return err
	}
	c.undo.record(DeckChange{Kind: Added, Deck: deck.Clone()})
	return nil
}

func (c *Collection) updateDeck(ctx context.Context, deck, original *model.Deck, usn model.Usn) error {
	deck.Mtime = c.now().Unix()
	deck.Usn = usn
	delete(c.deckCache, deck.ID)
	if err := c.storage.UpdateDeck(ctx, deck); err != nil {
		return err
	}
	c.undo.record(DeckChange{Kind: Updated, Deck: original.Clone()})
	return nil
}

func (c *Collection) addDeckConfig(ctx context.Context, cfg *model.DeckConfig, usn model.Usn) error {
	cfg.Mtime = c.now().Unix()
	cfg.Usn = usn
	delete(c.configCache, cfg.ID)
	if err := c.storage.AddDeckConfig(ctx, cfg); err != nil {
		return err
	}
	c.undo.record(DeckConfigChange{Kind: Added, Config: cfg.Clone()})
	return nil
}

func (c *Collection) updateDeckConfig(ctx context.Context, cfg, original *model.DeckConfig, usn model.Usn) error {
	cfg.Mtime = c.now().Unix()
	cfg.Usn = usn
	delete(c.configCache, cfg.ID)
	if err := c.storage.UpdateDeckConfig(ctx, cfg); err != nil {
		return err
	}
	c.undo.record(DeckConfigChange{Kind: Updated, Config: original.Clone()})
	return nil
}

func (c *Collection) setConfig(ctx context.Context, key string, value []byte) error {
	prev, err := c.rawConfig(ctx, key)
	if err != nil {
		return err
	}
	if bytes.Equal(prev, value) {
		return nil
	}
	if err := c.storage.SetConfig(ctx, key, value); err != nil {
		return err
	}
	c.undo.record(ConfigChange{Key: key, Value: prev})
	return nil
}

// rawConfig returns nil for a missing key.
func (c *Collection) rawConfig(ctx context.Context, key string) ([]byte, error) {
	v, err := c.storage.GetConfig(ctx, key)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (ch CardChange) undo(ctx context.Context, c *Collection) error {
	switch ch.Kind {
	case Added:
		if err := c.storage.RemoveCard(ctx, ch.Card.ID); err != nil {
			return err
		}
		c.undo.record(CardChange{Kind: Removed, Card: ch.Card})
	case Updated:
		current, err := c.storage.GetCard(ctx, ch.Card.ID)
		if err != nil {
			return err
		}
		card := ch.Card.Clone()
		if err := c.storage.UpdateCard(ctx, &card); err != nil {
			return err
		}
		c.undo.record(CardChange{Kind: Updated, Card: *current})
	case Removed:
		card := ch.Card.Clone()
		if err := c.storage.AddCard(ctx, &card); err != nil {
			return err
		}
		c.undo.record(CardChange{Kind: Added, Card: card})
	}
	return nil
}

func (ch NoteChange) undo(ctx context.Context, c *Collection) error {
	switch ch.Kind {
	case Added:
		if err := c.storage.RemoveNote(ctx, ch.Note.ID); err != nil {
			return err
		}
		c.undo.record(NoteChange{Kind: Removed, Note: ch.Note})
	case Updated:
		current, err := c.storage.GetNote(ctx, ch.Note.ID)
		if err != nil {
			return err
		}
		note := ch.Note.Clone()
		if err := c.storage.UpdateNote(ctx, &note); err != nil {
			return err
		}
		c.undo.record(NoteChange{Kind: Updated, Note: *current})
	case Removed:
		note := ch.Note.Clone()
		if err := c.storage.AddNote(ctx, &note); err != nil {
			return err
		}
		c.undo.record(NoteChange{Kind: Added, Note: note})
	}
	return nil
}

func (ch DeckChange) undo(ctx context.Context, c *Collection) error {
	delete(c.deckCache, ch.Deck.ID)
	switch ch.Kind {
	case Added:
		if err := c.storage.RemoveDeck(ctx, ch.Deck.ID); err != nil {
			return err
		}
		c.undo.record(DeckChange{Kind: Removed, Deck: ch.Deck})
	case Updated:
		current, err := c.storage.GetDeck(ctx, ch.Deck.ID)
		if err != nil {
			return err
		}
		deck := ch.Deck.Clone()
		if err := c.storage.UpdateDeck(ctx, &deck); err != nil {
			return err
		}
		c.undo.record(DeckChange{Kind: Updated, Deck: *current})
	case Removed:
		deck := ch.Deck.Clone()
		if err := c.storage.AddDeck(ctx, &deck); err != nil {
			return err
		}
		c.undo.record(DeckChange{Kind: Added, Deck: deck})
	}
	return nil
}

func (ch DeckConfigChange) undo(ctx context.Context, c *Collection) error {
	delete(c.configCache, ch.Config.ID)
	switch ch.Kind {
	case Added:
		if err := c.storage.RemoveDeckConfig(ctx, ch.Config.ID); err != nil {
			return err
		}
		c.undo.record(DeckConfigChange{Kind: Removed, Config: ch.Config})
	case Updated:
		current, err := c.storage.GetDeckConfig(ctx, ch.Config.ID)
		if err != nil {
			return err
		}
		cfg := ch.Config.Clone()
		if err := c.storage.UpdateDeckConfig(ctx, &cfg); err != nil {
			return err
		}
		c.undo.record(DeckConfigChange{Kind: Updated, Config: *current})
	case Removed:
		cfg := ch.Config.Clone()
		if err := c.storage.AddDeckConfig(ctx, &cfg); err != nil {
			return err
		}
		c.undo.record(DeckConfigChange{Kind: Added, Config: cfg})
	}
	return nil
}

func (ch TagChange) undo(ctx context.Context, c *Collection) error {
	switch ch.Kind {
	case Added:
		if err := c.storage.RemoveTag(ctx, ch.Tag); err != nil {
			return err
		}
		c.undo.record(TagChange{Kind: Removed, Tag: ch.Tag})
	case Removed:
		if err := c.storage.AddTag(ctx, ch.Tag); err != nil {
			return err
		}
		c.undo.record(TagChange{Kind: Added, Tag: ch.Tag})
	}
	return nil
}

func (ch RevlogChange) undo(ctx context.Context, c *Collection) error {
	switch ch.Kind {
	case Added:
		if err := c.storage.RemoveRevlog(ctx, ch.Entry.ID); err != nil {
			return err
		}
		c.undo.record(RevlogChange{Kind: Removed, Entry: ch.Entry})
	case Removed:
		entry := ch.Entry
		if err := c.storage.AddRevlog(ctx, &entry); err != nil {
			return err
		}
		c.undo.record(RevlogChange{Kind: Added, Entry: entry})
	}
	return nil
}

func (ch ConfigChange) undo(ctx context.Context, c *Collection) error {
	current, err := c.rawConfig(ctx, ch.Key)
	if err != nil {
		return err
	}
	if ch.Value == nil {
		err = c.storage.RemoveConfig(ctx, ch.Key)
	} else {
		err = c.storage.SetConfig(ctx, ch.Key, ch.Value)
	}
	if err != nil {
		return err
	}
	c.undo.record(ConfigChange{Key: ch.Key, Value: current})
	return nil
}

// Queue changes only apply to the queues they were made on. Queues built
// later are dropped instead, and rebuilt from the restored card rows.
func (ch QueueChange) undo(ctx context.Context, c *Collection) error {
	q := c.queues
	switch {
	case q == nil:
	case !q.BuildTime().Equal(ch.Update.BuildTime):
		c.clearQueues()
	case ch.Undone:
		if err := q.Redo(ch.Update, c.now()); err != nil {
			c.clearQueues()
		}
	default:
		q.Undo(ch.Update)
	}
	c.undo.record(QueueChange{Update: ch.Update, Undone: !ch.Undone})
	return nil
}
