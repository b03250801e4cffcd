package filter

import (
	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/view"
)

// Target says what a clause filters on.
type Target int

const (
	TargetIndexLevel Target = iota
	TargetColumn
)

// Clause filters one index level or one original dataset column.
type Clause struct {
	Target   Target
	Position int
	Text     string
}

// Terms parses the clause text.
func (c Clause) Terms() []Term { return Parse(c.Text) }

// Set is the active filter state of a view. Clauses combine with AND.
type Set struct {
	IndexClauses  []Clause
	ColumnClauses []Clause
}

// Empty reports whether no clause carries a term.
func (s Set) Empty() bool {
	for _, c := range s.all() {
		if len(c.Terms()) > 0 {
			return false
		}
	}
	return true
}

func (s Set) all() []Clause {
	out := make([]Clause, 0, len(s.IndexClauses)+len(s.ColumnClauses))
	out = append(out, s.IndexClauses...)
	return append(out, s.ColumnClauses...)
}

// Validate checks every clause position against ds. It returns the first
// *view.IndexOutOfRangeError found.
func (s Set) Validate(ds *dataset.Dataset) error {
	levels := ds.Index().NLevels()
	for _, c := range s.IndexClauses {
		if resolveLevel(c.Position, levels) < 0 {
			return &view.IndexOutOfRangeError{Axis: "index level", Position: c.Position, Len: levels}
		}
	}
	for _, c := range s.ColumnClauses {
		if c.Position < 0 || c.Position >= ds.NumColumns() {
			return &view.IndexOutOfRangeError{Axis: "column", Position: c.Position, Len: ds.NumColumns()}
		}
	}
	return nil
}

// Prune returns a copy of s without out-of-range clauses, plus the dropped
// clauses.
func (s Set) Prune(ds *dataset.Dataset) (Set, []Clause) {
	var kept Set
	var dropped []Clause
	levels := ds.Index().NLevels()
	for _, c := range s.IndexClauses {
		if resolveLevel(c.Position, levels) < 0 {
			dropped = append(dropped, c)
			continue
		}
		kept.IndexClauses = append(kept.IndexClauses, c)
	}
	for _, c := range s.ColumnClauses {
		if c.Position < 0 || c.Position >= ds.NumColumns() {
			dropped = append(dropped, c)
			continue
		}
		kept.ColumnClauses = append(kept.ColumnClauses, c)
	}
	return kept, dropped
}

type compiled struct {
	target   Target
	position int
	terms    []Term
}

// Compile builds a single predicate over original rows. Clauses with no terms
// are skipped; out-of-range clauses never match. Call Validate first to
// report them.
func (s Set) Compile(ds *dataset.Dataset) view.Predicate {
	levels := ds.Index().NLevels()
	var clauses []compiled
	for _, c := range s.IndexClauses {
		terms := c.Terms()
		if len(terms) == 0 {
			continue
		}
		clauses = append(clauses, compiled{TargetIndexLevel, resolveLevel(c.Position, levels), terms})
	}
	for _, c := range s.ColumnClauses {
		terms := c.Terms()
		if len(terms) == 0 {
			continue
		}
		clauses = append(clauses, compiled{TargetColumn, c.Position, terms})
	}

	index := ds.Index()
	return func(row []any, originalRow int) bool {
		for _, c := range clauses {
			var value any
			switch c.target {
			case TargetIndexLevel:
				if c.position < 0 {
					return false
				}
				value = index.Label(originalRow, c.position)
			case TargetColumn:
				if c.position < 0 || c.position >= len(row) {
					return false
				}
				value = row[c.position]
			}
			if !MatchAny(c.terms, value) {
				return false
			}
		}
		return true
	}
}

// Translate converts a view-local column into an original dataset column
// given the view's column positions. It returns -1 when out of range.
func Translate(viewColumn int, columnPositions []int) int {
	if viewColumn < 0 || viewColumn >= len(columnPositions) {
		return -1
	}
	return columnPositions[viewColumn]
}

func resolveLevel(level, nlevels int) int {
	if level < 0 {
		level += nlevels
	}
	if level < 0 || level >= nlevels {
		return -1
	}
	return level
}
