package sqlstore

import (
	"context"
	"database/sql"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/querygen"
	"github.com/domino14/srs_scheduler/internal/stores"
)

const cardColumns = `cards.id, cards.note_id, cards.deck_id, cards.original_deck_id,
cards.template_idx, cards.mtime, cards.usn, cards.ctype, cards.queue, cards.due,
cards.original_due, cards.ivl, cards.ease_factor, cards.reps, cards.lapses,
cards.remaining_steps, cards.original_position, cards.stability, cards.difficulty,
cards.custom_data`

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (*model.Card, error) {
	var (
		c                     model.Card
		ctype, queue          int64
		origPos               sql.NullInt64
		stability, difficulty sql.NullFloat64
	)
	err := row.Scan(&c.ID, &c.NoteID, &c.DeckID, &c.OriginalDeckID, &c.TemplateIdx,
		&c.Mtime, &c.Usn, &ctype, &queue, &c.Due, &c.OriginalDue, &c.Interval,
		&c.EaseFactor, &c.Reps, &c.Lapses, &c.RemainingSteps, &origPos,
		&stability, &difficulty, &c.CustomData)
	if err != nil {
		return nil, err
	}
	c.Type = model.CardType(ctype)
	c.Queue = model.CardQueue(queue)
	if origPos.Valid {
		p := uint32(origPos.Int64)
		c.OriginalPos = &p
	}
	if stability.Valid && difficulty.Valid {
		c.MemoryState = &model.FsrsMemoryState{
			Stability:  float32(stability.Float64),
			Difficulty: float32(difficulty.Float64),
		}
	}
	return &c, nil
}

// cardArgs are the column values after id, in cardColumns order.
func cardArgs(c *model.Card) []any {
	var (
		origPos               sql.NullInt64
		stability, difficulty sql.NullFloat64
	)
	if c.OriginalPos != nil {
		origPos = sql.NullInt64{Int64: int64(*c.OriginalPos), Valid: true}
	}
	if c.MemoryState != nil {
		stability = sql.NullFloat64{Float64: float64(c.MemoryState.Stability), Valid: true}
		difficulty = sql.NullFloat64{Float64: float64(c.MemoryState.Difficulty), Valid: true}
	}
	return []any{int64(c.NoteID), int64(c.DeckID), int64(c.OriginalDeckID), int64(c.TemplateIdx),
		c.Mtime, int64(c.Usn), int64(c.Type), int64(c.Queue), c.Due, c.OriginalDue,
		int64(c.Interval), int64(c.EaseFactor), int64(c.Reps), int64(c.Lapses),
		int64(c.RemainingSteps), origPos, stability, difficulty, c.CustomData}
}

func (s *Store) GetCard(ctx context.Context, id model.CardID) (*model.Card, error) {
	c, err := scanCard(s.queryRow(ctx, "SELECT "+cardColumns+" FROM cards WHERE cards.id = ?", int64(id)))
	if err != nil {
		return nil, notFoundOr(err, "card", id)
	}
	return c, nil
}

func (s *Store) AddCard(ctx context.Context, card *model.Card) error {
	if _, err := s.writer(); err != nil {
		return err
	}
	if card.ID == 0 {
		id, err := s.nextID(ctx, "cards")
		if err != nil {
			return err
		}
		card.ID = model.CardID(id)
	} else if ok, err := s.exists(ctx, "cards", int64(card.ID)); err != nil {
		return err
	} else if ok {
		return errs.Conflict("card %d exists", card.ID)
	}
	args := append([]any{int64(card.ID)}, cardArgs(card)...)
	return s.exec(ctx, `INSERT INTO cards (id, note_id, deck_id, original_deck_id,
template_idx, mtime, usn, ctype, queue, due, original_due, ivl, ease_factor, reps,
lapses, remaining_steps, original_position, stability, difficulty, custom_data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
}

func (s *Store) UpdateCard(ctx context.Context, card *model.Card) error {
	args := append(cardArgs(card), int64(card.ID))
	return s.update(ctx, "card", card.ID, `UPDATE cards SET note_id = ?, deck_id = ?,
original_deck_id = ?, template_idx = ?, mtime = ?, usn = ?, ctype = ?, queue = ?,
due = ?, original_due = ?, ivl = ?, ease_factor = ?, reps = ?, lapses = ?,
remaining_steps = ?, original_position = ?, stability = ?, difficulty = ?,
custom_data = ? WHERE id = ?`, args...)
}

func (s *Store) RemoveCard(ctx context.Context, id model.CardID) error {
	return s.exec(ctx, "DELETE FROM cards WHERE id = ?", int64(id))
}

func (s *Store) SearchCards(ctx context.Context, f stores.CardFilter) ([]model.Card, error) {
	q := querygen.NewQuery("SELECT " + cardColumns + " FROM cards")
	if len(f.DeckIDs) > 0 {
		q.Where(querygen.NewWhereInClause("cards", "deck_id", f.DeckIDs))
	}
	if len(f.Queues) > 0 {
		queues := make([]int64, len(f.Queues))
		for i, queue := range f.Queues {
			queues[i] = int64(queue)
		}
		q.Where(querygen.NewWhereInClause("cards", "queue", queues))
	}
	if f.NoteID != 0 {
		q.Where(querygen.NewWhereEqualsClause("cards", "note_id", int64(f.NoteID)))
	}
	if f.ExcludeCardID != 0 {
		q.Where(querygen.NewWhereNotEqualsClause("cards", "id", int64(f.ExcludeCardID)))
	}
	if f.DueBefore != nil {
		q.Where(querygen.NewWhereLessClause("cards", "due", *f.DueBefore))
	}
	if f.DueAtOrAfter != nil {
		q.Where(querygen.NewWhereAtLeastClause("cards", "due", *f.DueAtOrAfter))
	}
	query, args := q.OrderBy("cards.due, cards.template_idx, cards.id").Limit(f.Limit).Render()

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, errs.DB(err)
		}
		out = append(out, *c)
	}
	return out, errs.DB(rows.Err())
}
