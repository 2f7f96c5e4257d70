package querygen

import (
	"fmt"
	"strings"
)

// Clause is a statement in a SQL query.
type Clause interface {
	// Render returns a string with `?` markers, and an array of items
	// to interpolate into those `?` markers.
	Render() (string, []interface{})
}

func whereClauseRender(table string, column string, condition string) string {
	return fmt.Sprintf("%s.%s %s", table, column, condition)
}

// WhereBetweenClause bounds a column on both sides. Bounds are inclusive.
type WhereBetweenClause struct {
	min, max int64
	table    string
	column   string
}

func NewWhereBetweenClause(table string, column string, min, max int64) *WhereBetweenClause {
	return &WhereBetweenClause{
		min:    min,
		max:    max,
		table:  table,
		column: column,
	}
}

func (w *WhereBetweenClause) Render() (string, []interface{}) {
	if w.min == w.max {
		return whereClauseRender(w.table, w.column, `= ?`), []interface{}{w.min}
	}
	return whereClauseRender(w.table, w.column, `BETWEEN ? AND ?`), []interface{}{w.min, w.max}
}

// WhereCompareClause compares a column with a single value.
type WhereCompareClause struct {
	op     string
	value  interface{}
	table  string
	column string
}

func NewWhereEqualsClause(table string, column string, value interface{}) *WhereCompareClause {
	return &WhereCompareClause{op: "=", value: value, table: table, column: column}
}

func NewWhereNotEqualsClause(table string, column string, value interface{}) *WhereCompareClause {
	return &WhereCompareClause{op: "<>", value: value, table: table, column: column}
}

func NewWhereLessClause(table string, column string, value interface{}) *WhereCompareClause {
	return &WhereCompareClause{op: "<", value: value, table: table, column: column}
}

func NewWhereAtLeastClause(table string, column string, value interface{}) *WhereCompareClause {
	return &WhereCompareClause{op: ">=", value: value, table: table, column: column}
}

func (w *WhereCompareClause) Render() (string, []interface{}) {
	return whereClauseRender(w.table, w.column, w.op+" ?"), []interface{}{w.value}
}

type WhereInClause struct {
	values []interface{}
	table  string
	column string
}

// NewWhereInClause matches any of values. An empty list matches nothing.
func NewWhereInClause[T any](table string, column string, values []T) *WhereInClause {
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return &WhereInClause{
		values: vals,
		table:  table,
		column: column,
	}
}

func (w *WhereInClause) Render() (string, []interface{}) {
	var conditionTemplate string
	numVals := len(w.values)

	switch numVals {
	case 0:
		return "1 = 0", []interface{}{}
	case 1:
		conditionTemplate = `= ?`
	default:
		markers := strings.Repeat("?,", numVals)
		// Remove last comma:
		conditionTemplate = `IN (` + markers[:len(markers)-1] + ")"
	}
	return whereClauseRender(w.table, w.column, conditionTemplate), w.values
}

type LimitClause struct {
	limit int
}

func NewLimitClause(limit int) *LimitClause {
	return &LimitClause{limit: limit}
}

func (l *LimitClause) Render() (string, []interface{}) {
	return "LIMIT ?", []interface{}{l.limit}
}
