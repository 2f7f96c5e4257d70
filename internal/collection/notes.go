package collection

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/stores"
)

// AddNote saves note and creates one new card per template in deckID. The
// cards share a due position, so they are introduced together.
func (c *Collection) AddNote(ctx context.Context, note model.Note, deckID model.DeckID, templates int) (OpOutput[model.Note], error) {
	return transact(ctx, c, OpAddNote, func(ctx context.Context) (model.Note, error) {
		if templates < 1 {
			return model.Note{}, errs.InvalidInput("a note needs at least one card")
		}
		deck, err := c.getDeck(ctx, deckID)
		if err != nil {
			return model.Note{}, err
		}
		if deck.IsFiltered() {
			return model.Note{}, errs.InvalidInput("cannot add notes to filtered deck %q", deck.Name)
		}
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return model.Note{}, err
		}
		if note.GUID == "" {
			note.GUID = uuid.NewString()
		}
		note.ID = 0
		note.Tags = cleanTags(note.Tags)
		note.Mtime = c.now().Unix()
		note.Usn = usn
		for _, t := range note.Tags {
			if err := c.registerTag(ctx, t); err != nil {
				return model.Note{}, err
			}
		}
		if err := c.addNote(ctx, &note); err != nil {
			return model.Note{}, err
		}
		pos, err := c.nextPosition(ctx)
		if err != nil {
			return model.Note{}, err
		}
		for i := range templates {
			card := model.Card{
				NoteID:      note.ID,
				DeckID:      deckID,
				TemplateIdx: uint16(i),
				Mtime:       note.Mtime,
				Usn:         usn,
				Type:        model.CardTypeNew,
				Queue:       model.QueueNew,
				Due:         pos,
			}
			if err := c.addCard(ctx, &card); err != nil {
				return model.Note{}, err
			}
		}
		return note, nil
	})
}

func (c *Collection) nextPosition(ctx context.Context) (int64, error) {
	pos, err := getJSON[int64](ctx, c, ConfigNextPosition, 1)
	if err != nil {
		return 0, err
	}
	return pos, setJSON(ctx, c, ConfigNextPosition, pos+1)
}

// cleanTags drops empty and duplicate tags, comparing case-insensitively.
func cleanTags(tags []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// UpdateNoteTags replaces a note's tags. Repeated edits of the same note
// are undone as one step.
func (c *Collection) UpdateNoteTags(ctx context.Context, id model.NoteID, tags []string) (OpChanges, error) {
	return c.Transact(ctx, OpUpdateNote, func(ctx context.Context) error {
		note, err := c.storage.GetNote(ctx, id)
		if err != nil {
			return err
		}
		original := note.Clone()
		note.Tags = cleanTags(tags)
		for _, t := range note.Tags {
			if err := c.registerTag(ctx, t); err != nil {
				return err
			}
		}
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return err
		}
		return c.updateNote(ctx, note, &original, usn)
	})
}

// Cards returns the cards of a note, in template order.
func (c *Collection) Cards(ctx context.Context, noteID model.NoteID) ([]model.Card, error) {
	return c.storage.SearchCards(ctx, stores.CardFilter{NoteID: noteID})
}
