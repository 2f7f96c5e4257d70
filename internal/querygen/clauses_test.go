package querygen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereBetweenClause(t *testing.T) {
	c := NewWhereBetweenClause("cards", "due", 175, 234)
	res, params := c.Render()
	assert.Equal(t, "cards.due BETWEEN ? AND ?", res)
	assert.Equal(t, []interface{}{int64(175), int64(234)}, params)
}

func TestWhereBetweenClauseEqual(t *testing.T) {
	c := NewWhereBetweenClause("cards", "due", 175, 175)
	res, params := c.Render()
	assert.Equal(t, "cards.due = ?", res)
	assert.Equal(t, []interface{}{int64(175)}, params)
}

func TestWhereCompareClauses(t *testing.T) {
	res, params := NewWhereEqualsClause("cards", "note_id", int64(3)).Render()
	assert.Equal(t, "cards.note_id = ?", res)
	assert.Equal(t, []interface{}{int64(3)}, params)

	res, _ = NewWhereNotEqualsClause("cards", "id", 1).Render()
	assert.Equal(t, "cards.id <> ?", res)
	res, _ = NewWhereLessClause("cards", "due", 1).Render()
	assert.Equal(t, "cards.due < ?", res)
	res, _ = NewWhereAtLeastClause("cards", "due", 1).Render()
	assert.Equal(t, "cards.due >= ?", res)
}

func TestWhereInClause(t *testing.T) {
	c := NewWhereInClause("cards", "queue", []int{0, 1, 2, 3})
	res, params := c.Render()
	assert.Equal(t, "cards.queue IN (?,?,?,?)", res)
	assert.Equal(t, []interface{}{0, 1, 2, 3}, params)
}

func TestWhereInClauseSingleItem(t *testing.T) {
	c := NewWhereInClause("cards", "deck_id", []int64{9})
	res, params := c.Render()
	assert.Equal(t, "cards.deck_id = ?", res)
	assert.Equal(t, []interface{}{int64(9)}, params)
}

func TestWhereInClauseEmpty(t *testing.T) {
	res, params := NewWhereInClause[int64]("cards", "deck_id", nil).Render()
	assert.Equal(t, "1 = 0", res)
	assert.Empty(t, params)
}

func TestQueryRender(t *testing.T) {
	q := NewQuery("SELECT id FROM cards").
		Where(NewWhereInClause("cards", "deck_id", []int64{1, 2})).
		Where(NewWhereLessClause("cards", "due", int64(50))).
		OrderBy("cards.due, cards.id").
		Limit(10)
	res, params := q.Render()
	assert.Equal(t, "SELECT id FROM cards WHERE cards.deck_id IN (?,?) AND cards.due < ? ORDER BY cards.due, cards.id LIMIT ?", res)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(50), 10}, params)

	res, params = NewQuery("SELECT id FROM cards").Limit(0).Render()
	assert.Equal(t, "SELECT id FROM cards", res)
	assert.Empty(t, params)
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM notes WHERE tags LIKE '%?%' AND id = ? AND mtime > ?"
	assert.Equal(t, q, Rebind(Question, q))
	assert.Equal(t, "SELECT * FROM notes WHERE tags LIKE '%?%' AND id = $1 AND mtime > $2", Rebind(Dollar, q))
}
