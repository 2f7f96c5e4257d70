package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/stores"
)

const revlogColumns = `id, card_id, usn, button_chosen, ivl, last_ivl, ease_factor,
taken_millis, review_kind`

func scanRevlog(row scanner) (*model.RevlogEntry, error) {
	var e model.RevlogEntry
	var kind int64
	err := row.Scan(&e.ID, &e.CardID, &e.Usn, &e.ButtonChosen, &e.Interval,
		&e.LastInterval, &e.EaseFactor, &e.TakenMillis, &kind)
	e.ReviewKind = model.RevlogReviewKind(kind)
	return &e, err
}

func (s *Store) AddRevlog(ctx context.Context, entry *model.RevlogEntry) error {
	if _, err := s.writer(); err != nil {
		return err
	}
	for {
		ok, err := s.exists(ctx, "revlog", int64(entry.ID))
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		entry.ID++
	}
	return s.exec(ctx, "INSERT INTO revlog ("+revlogColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		int64(entry.ID), int64(entry.CardID), int64(entry.Usn), int64(entry.ButtonChosen),
		int64(entry.Interval), int64(entry.LastInterval), int64(entry.EaseFactor),
		int64(entry.TakenMillis), int64(entry.ReviewKind))
}

func (s *Store) GetRevlog(ctx context.Context, id model.RevlogID) (*model.RevlogEntry, error) {
	e, err := scanRevlog(s.queryRow(ctx, "SELECT "+revlogColumns+" FROM revlog WHERE id = ?", int64(id)))
	if err != nil {
		return nil, notFoundOr(err, "revlog entry", id)
	}
	return e, nil
}

func (s *Store) RemoveRevlog(ctx context.Context, id model.RevlogID) error {
	return s.exec(ctx, "DELETE FROM revlog WHERE id = ?", int64(id))
}

func (s *Store) RevlogForCard(ctx context.Context, id model.CardID) ([]model.RevlogEntry, error) {
	rows, err := s.query(ctx, "SELECT "+revlogColumns+" FROM revlog WHERE card_id = ? ORDER BY id", int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RevlogEntry
	for rows.Next() {
		e, err := scanRevlog(rows)
		if err != nil {
			return nil, errs.DB(err)
		}
		out = append(out, *e)
	}
	return out, errs.DB(rows.Err())
}

func (s *Store) GetNote(ctx context.Context, id model.NoteID) (*model.Note, error) {
	var (
		n            model.Note
		tags, fields string
	)
	err := s.queryRow(ctx, "SELECT id, guid, mtime, usn, tags, fields FROM notes WHERE id = ?", int64(id)).
		Scan(&n.ID, &n.GUID, &n.Mtime, &n.Usn, &tags, &fields)
	if err != nil {
		return nil, notFoundOr(err, "note", id)
	}
	n.Tags = model.SplitTags(tags)
	if err := json.Unmarshal([]byte(fields), &n.Fields); err != nil {
		return nil, errs.DB(err)
	}
	return &n, nil
}

func noteFields(n *model.Note) (string, error) {
	fields := n.Fields
	if fields == nil {
		fields = []string{}
	}
	bts, err := json.Marshal(fields)
	return string(bts), errs.DB(err)
}

func (s *Store) AddNote(ctx context.Context, note *model.Note) error {
	if _, err := s.writer(); err != nil {
		return err
	}
	if note.ID == 0 {
		id, err := s.nextID(ctx, "notes")
		if err != nil {
			return err
		}
		note.ID = model.NoteID(id)
	} else if ok, err := s.exists(ctx, "notes", int64(note.ID)); err != nil {
		return err
	} else if ok {
		return errs.Conflict("note %d exists", note.ID)
	}
	fields, err := noteFields(note)
	if err != nil {
		return err
	}
	return s.exec(ctx, "INSERT INTO notes (id, guid, mtime, usn, tags, fields) VALUES (?, ?, ?, ?, ?, ?)",
		int64(note.ID), note.GUID, note.Mtime, int64(note.Usn), model.JoinTags(note.Tags), fields)
}

func (s *Store) UpdateNote(ctx context.Context, note *model.Note) error {
	fields, err := noteFields(note)
	if err != nil {
		return err
	}
	return s.update(ctx, "note", note.ID,
		"UPDATE notes SET guid = ?, mtime = ?, usn = ?, tags = ?, fields = ? WHERE id = ?",
		note.GUID, note.Mtime, int64(note.Usn), model.JoinTags(note.Tags), fields, int64(note.ID))
}

func (s *Store) RemoveNote(ctx context.Context, id model.NoteID) error {
	return s.exec(ctx, "DELETE FROM notes WHERE id = ?", int64(id))
}

func (s *Store) HasTag(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM tags WHERE lower_name = ?", strings.ToLower(name)).Scan(&n)
	return n > 0, errs.DB(err)
}

func (s *Store) AddTag(ctx context.Context, name string) error {
	return s.exec(ctx, `INSERT INTO tags (lower_name, name) VALUES (?, ?)
ON CONFLICT (lower_name) DO UPDATE SET name = excluded.name`, strings.ToLower(name), name)
}

func (s *Store) RemoveTag(ctx context.Context, name string) error {
	return s.exec(ctx, "DELETE FROM tags WHERE lower_name = ?", strings.ToLower(name))
}

func (s *Store) GetDeck(ctx context.Context, id model.DeckID) (*model.Deck, error) {
	var data string
	err := s.queryRow(ctx, "SELECT data FROM decks WHERE id = ?", int64(id)).Scan(&data)
	if err != nil {
		return nil, notFoundOr(err, "deck", id)
	}
	var d model.Deck
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, errs.DB(err)
	}
	return &d, nil
}

func (s *Store) AddDeck(ctx context.Context, deck *model.Deck) error {
	if _, err := s.writer(); err != nil {
		return err
	}
	var n int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM decks WHERE LOWER(name) = ? AND id <> ?",
		strings.ToLower(deck.Name), int64(deck.ID)).Scan(&n)
	if err != nil {
		return errs.DB(err)
	}
	if n > 0 {
		return errs.Conflict("deck %q exists", deck.Name)
	}
	if deck.ID == 0 {
		id, err := s.nextID(ctx, "decks")
		if err != nil {
			return err
		}
		deck.ID = model.DeckID(id)
	} else if ok, err := s.exists(ctx, "decks", int64(deck.ID)); err != nil {
		return err
	} else if ok {
		return errs.Conflict("deck %d exists", deck.ID)
	}
	data, err := json.Marshal(deck)
	if err != nil {
		return errs.DB(err)
	}
	return s.exec(ctx, "INSERT INTO decks (id, name, mtime, usn, data) VALUES (?, ?, ?, ?, ?)",
		int64(deck.ID), deck.Name, deck.Mtime, int64(deck.Usn), string(data))
}

func (s *Store) UpdateDeck(ctx context.Context, deck *model.Deck) error {
	data, err := json.Marshal(deck)
	if err != nil {
		return errs.DB(err)
	}
	return s.update(ctx, "deck", deck.ID, "UPDATE decks SET name = ?, mtime = ?, usn = ?, data = ? WHERE id = ?",
		deck.Name, deck.Mtime, int64(deck.Usn), string(data), int64(deck.ID))
}

func (s *Store) RemoveDeck(ctx context.Context, id model.DeckID) error {
	return s.exec(ctx, "DELETE FROM decks WHERE id = ?", int64(id))
}

func (s *Store) AllDecks(ctx context.Context) ([]model.Deck, error) {
	return allJSON[model.Deck](ctx, s, "SELECT data FROM decks ORDER BY id")
}

func (s *Store) GetDeckConfig(ctx context.Context, id model.DeckConfigID) (*model.DeckConfig, error) {
	var data string
	err := s.queryRow(ctx, "SELECT data FROM deck_configs WHERE id = ?", int64(id)).Scan(&data)
	if err != nil {
		return nil, notFoundOr(err, "deck config", id)
	}
	var c model.DeckConfig
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, errs.DB(err)
	}
	return &c, nil
}

func (s *Store) AddDeckConfig(ctx context.Context, cfg *model.DeckConfig) error {
	if _, err := s.writer(); err != nil {
		return err
	}
	if cfg.ID == 0 {
		id, err := s.nextID(ctx, "deck_configs")
		if err != nil {
			return err
		}
		cfg.ID = model.DeckConfigID(id)
	} else if ok, err := s.exists(ctx, "deck_configs", int64(cfg.ID)); err != nil {
		return err
	} else if ok {
		return errs.Conflict("deck config %d exists", cfg.ID)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return errs.DB(err)
	}
	return s.exec(ctx, "INSERT INTO deck_configs (id, name, mtime, usn, data) VALUES (?, ?, ?, ?, ?)",
		int64(cfg.ID), cfg.Name, cfg.Mtime, int64(cfg.Usn), string(data))
}

func (s *Store) UpdateDeckConfig(ctx context.Context, cfg *model.DeckConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return errs.DB(err)
	}
	return s.update(ctx, "deck config", cfg.ID,
		"UPDATE deck_configs SET name = ?, mtime = ?, usn = ?, data = ? WHERE id = ?",
		cfg.Name, cfg.Mtime, int64(cfg.Usn), string(data), int64(cfg.ID))
}

func (s *Store) RemoveDeckConfig(ctx context.Context, id model.DeckConfigID) error {
	return s.exec(ctx, "DELETE FROM deck_configs WHERE id = ?", int64(id))
}

func (s *Store) AllDeckConfigs(ctx context.Context) ([]model.DeckConfig, error) {
	return allJSON[model.DeckConfig](ctx, s, "SELECT data FROM deck_configs ORDER BY id")
}

func allJSON[T any](ctx context.Context, s *Store, query string) ([]T, error) {
	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errs.DB(err)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, errs.DB(err)
		}
		out = append(out, v)
	}
	return out, errs.DB(rows.Err())
}

func (s *Store) GetConfig(ctx context.Context, key string) ([]byte, error) {
	var v string
	err := s.queryRow(ctx, "SELECT value FROM config WHERE name = ?", key).Scan(&v)
	if err != nil {
		return nil, notFoundOr(err, "config key", key)
	}
	return []byte(v), nil
}

func (s *Store) SetConfig(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return errs.InvalidInput("config %s: value is not JSON", key)
	}
	return s.exec(ctx, `INSERT INTO config (name, value) VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value`, key, string(value))
}

func (s *Store) RemoveConfig(ctx context.Context, key string) error {
	return s.exec(ctx, "DELETE FROM config WHERE name = ?", key)
}

func (s *Store) Usn(ctx context.Context) (model.Usn, error) {
	v, err := s.GetConfig(ctx, stores.UsnConfigKey)
	if errors.Is(err, errs.ErrNotFound) {
		return stores.LocalUsn, nil
	}
	if err != nil {
		return 0, err
	}
	var usn model.Usn
	if err := json.Unmarshal(v, &usn); err != nil {
		return 0, errs.DB(err)
	}
	return usn, nil
}
