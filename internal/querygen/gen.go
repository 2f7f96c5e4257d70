package querygen

import (
	"strconv"
	"strings"
)

// Dialect decides how bind markers are written.
type Dialect int

const (
	// Question marks, as sqlite expects.
	Question Dialect = iota
	// Dollar-numbered markers, as postgres expects.
	Dollar
)

// Query is a SELECT assembled from clauses.
type Query struct {
	selectFrom string
	where      []Clause
	orderBy    string
	limit      Clause
}

// NewQuery starts a query from its SELECT ... FROM part.
func NewQuery(selectFrom string) *Query {
	return &Query{selectFrom: selectFrom}
}

func (q *Query) Where(c Clause) *Query {
	q.where = append(q.where, c)
	return q
}

func (q *Query) OrderBy(order string) *Query {
	q.orderBy = order
	return q
}

// Limit sets a row limit; zero or less means none.
func (q *Query) Limit(n int) *Query {
	if n > 0 {
		q.limit = NewLimitClause(n)
	} else {
		q.limit = nil
	}
	return q
}

// Render returns the SQL with `?` markers and the bind parameters.
func (q *Query) Render() (string, []interface{}) {
	var sb strings.Builder
	bindParams := make([]interface{}, 0)
	sb.WriteString(q.selectFrom)

	whereClauses := make([]string, 0, len(q.where))
	for _, c := range q.where {
		s, params := c.Render()
		whereClauses = append(whereClauses, s)
		bindParams = append(bindParams, params...)
	}
	if len(whereClauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(whereClauses, " AND "))
	}
	if q.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
	}
	if q.limit != nil {
		s, params := q.limit.Render()
		sb.WriteString(" ")
		sb.WriteString(s)
		bindParams = append(bindParams, params...)
	}
	return sb.String(), bindParams
}

// Rebind rewrites `?` markers for the dialect. Markers inside quoted
// strings are left alone.
func Rebind(d Dialect, query string) string {
	if d == Question {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
