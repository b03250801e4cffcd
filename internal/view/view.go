// Package view maintains a filtered, sorted and column-projected window onto a
// dataset without mutating it.
//
// A View holds two position maps: the row map (view row to original row) and
// the column map (view column to original column, nil for all columns). The
// derived index axis, column axis and value matrix are cached and recomputed
// only when read after a mutation.
package view

import (
	"slices"

	"github.com/JonMunkholm/dataviewer/internal/axis"
	"github.com/JonMunkholm/dataviewer/internal/dataset"
)

// Predicate selects rows. It receives the full original row and its original
// position.
type Predicate func(row []any, originalRow int) bool

// cached is a lazily recomputed value with an explicit freshness flag.
type cached[T any] struct {
	value T
	fresh bool
}

func (c *cached[T]) get(compute func() T) T {
	if !c.fresh {
		c.value = compute()
		c.fresh = true
	}
	return c.value
}

func (c *cached[T]) invalidate() {
	var zero T
	c.value = zero
	c.fresh = false
}

// View is a projection of a Dataset. It is not safe for concurrent use.
type View struct {
	ds *dataset.Dataset

	rowMap []int
	colMap []int

	structure uint64
	revision  uint64

	index   cached[*axis.Axis]
	columns cached[*axis.Axis]
	values  cached[[][]any]
}

// New returns a View showing every row and column of ds in original order.
func New(ds *dataset.Dataset) *View {
	v := &View{ds: ds}
	v.rebase()
	return v
}

// Dataset returns the underlying dataset.
func (v *View) Dataset() *dataset.Dataset { return v.ds }

// rebase resets both maps against the current dataset structure.
func (v *View) rebase() {
	v.rowMap = identity(v.ds.NumRows())
	v.colMap = nil
	v.structure = v.ds.Structure()
	v.revision = v.ds.Revision()
	v.invalidate()
}

// sync reconciles the view with dataset changes made since the last read.
func (v *View) sync() {
	switch {
	case v.structure != v.ds.Structure():
		v.rebase()
	case v.revision != v.ds.Revision():
		v.revision = v.ds.Revision()
		v.values.invalidate()
		// dtypes may have changed with the values
		v.columns.invalidate()
	}
}

func (v *View) invalidate() {
	v.index.invalidate()
	v.columns.invalidate()
	v.values.invalidate()
}

// Filter keeps the original rows satisfying pred, in ascending original order.
// Any previous sort is discarded.
func (v *View) Filter(pred Predicate) {
	v.sync()
	if !v.ds.HasColumns() {
		return
	}
	rows := make([]int, 0, v.ds.NumRows())
	values := v.ds.Values()
	for i := 0; i < v.ds.NumRows(); i++ {
		if pred == nil || pred(values[i], i) {
			rows = append(rows, i)
		}
	}
	v.rowMap = rows
	v.index.invalidate()
	v.values.invalidate()
}

// SortByColumn stably reorders the visible rows by the value of an original
// column. Nulls sort last in both directions. DirNone resets the row map.
func (v *View) SortByColumn(col int, dir Direction) error {
	v.sync()
	if !v.ds.HasColumns() {
		return nil
	}
	if col < 0 || col >= v.ds.NumColumns() {
		return &IndexOutOfRangeError{Axis: "column", Position: col, Len: v.ds.NumColumns()}
	}
	if dir == DirNone {
		v.Reset()
		return nil
	}
	values := v.ds.Values()
	v.sortRows(dir, func(row int) any { return values[row][col] })
	return nil
}

// SortByIndexLevel stably reorders the visible rows by one level of the row
// labels. Negative levels count from the leaf, so -1 is the leaf level.
func (v *View) SortByIndexLevel(level int, dir Direction) error {
	v.sync()
	if !v.ds.HasColumns() {
		return nil
	}
	nlevels := v.ds.Index().NLevels()
	resolved := level
	if resolved < 0 {
		resolved += nlevels
	}
	if resolved < 0 || resolved >= nlevels {
		return &IndexOutOfRangeError{Axis: "index level", Position: level, Len: nlevels}
	}
	if dir == DirNone {
		v.Reset()
		return nil
	}
	index := v.ds.Index()
	v.sortRows(dir, func(row int) any { return index.Label(row, resolved) })
	return nil
}

func (v *View) sortRows(dir Direction, key func(row int) any) {
	slices.SortStableFunc(v.rowMap, func(a, b int) int {
		ka, kb := key(a), key(b)
		na, nb := IsNull(ka), IsNull(kb)
		switch {
		case na && nb:
			return 0
		case na:
			return 1
		case nb:
			return -1
		}
		c := Compare(ka, kb)
		if dir == DirDesc {
			return -c
		}
		return c
	})
	v.index.invalidate()
	v.values.invalidate()
}

// FilterColumns sets the column projection. A nil slice restores every column;
// otherwise cols lists original column positions in display order. Invalid
// input leaves the projection unchanged.
func (v *View) FilterColumns(cols []int) error {
	v.sync()
	if cols == nil {
		v.colMap = nil
		v.columns.invalidate()
		v.values.invalidate()
		return nil
	}
	seen := make(map[int]bool, len(cols))
	for _, c := range cols {
		if c < 0 || c >= v.ds.NumColumns() {
			return &IndexOutOfRangeError{Axis: "column", Position: c, Len: v.ds.NumColumns()}
		}
		if seen[c] {
			return &DuplicatePositionError{Position: c}
		}
		seen[c] = true
	}
	v.colMap = slices.Clone(cols)
	v.columns.invalidate()
	v.values.invalidate()
	return nil
}

// Reset restores the identity row map. The column projection is kept.
func (v *View) Reset() {
	v.sync()
	v.rowMap = identity(v.ds.NumRows())
	v.index.invalidate()
	v.values.invalidate()
}

// Index returns the row axis of the visible rows.
func (v *View) Index() *axis.Axis {
	v.sync()
	return v.index.get(func() *axis.Axis {
		if isIdentity(v.rowMap, v.ds.NumRows()) {
			return v.ds.Index()
		}
		return v.ds.Index().Select(v.rowMap)
	})
}

// Columns returns the column axis of the visible columns.
func (v *View) Columns() *axis.Axis {
	v.sync()
	return v.columns.get(func() *axis.Axis {
		if v.colMap == nil {
			return v.ds.Columns()
		}
		return v.ds.Columns().Select(v.colMap)
	})
}

// Values returns the visible value matrix. It must not be modified.
func (v *View) Values() [][]any {
	v.sync()
	return v.values.get(func() [][]any {
		src := v.ds.Values()
		out := make([][]any, len(v.rowMap))
		for i, r := range v.rowMap {
			if v.colMap == nil {
				out[i] = src[r]
				continue
			}
			row := make([]any, len(v.colMap))
			for j, c := range v.colMap {
				row[j] = src[r][c]
			}
			out[i] = row
		}
		return out
	})
}

// Len returns the number of visible rows.
func (v *View) Len() int {
	v.sync()
	return len(v.rowMap)
}

// NumColumns returns the number of visible columns.
func (v *View) NumColumns() int {
	v.sync()
	if v.colMap == nil {
		return v.ds.NumColumns()
	}
	return len(v.colMap)
}

// RowPositions returns a copy of the row map.
func (v *View) RowPositions() []int {
	v.sync()
	return slices.Clone(v.rowMap)
}

// ColumnPositions returns the original positions of the visible columns.
func (v *View) ColumnPositions() []int {
	v.sync()
	if v.colMap == nil {
		return identity(v.ds.NumColumns())
	}
	return slices.Clone(v.colMap)
}

// IsProjected reports whether a column projection is active.
func (v *View) IsProjected() bool {
	v.sync()
	return v.colMap != nil
}

// OriginalRow maps a view row to its dataset row, or -1 when out of range.
func (v *View) OriginalRow(i int) int {
	v.sync()
	if i < 0 || i >= len(v.rowMap) {
		return -1
	}
	return v.rowMap[i]
}

// OriginalColumn maps a view column to its dataset column, or -1 when out of
// range.
func (v *View) OriginalColumn(j int) int {
	v.sync()
	if j < 0 || j >= v.NumColumns() {
		return -1
	}
	if v.colMap == nil {
		return j
	}
	return v.colMap[j]
}

// IsVisible reports whether an original row passes the current filter.
func (v *View) IsVisible(originalRow int) bool {
	v.sync()
	return slices.Contains(v.rowMap, originalRow)
}

// Cell returns the visible value at (i, j), or nil when out of range.
func (v *View) Cell(i, j int) any {
	r, c := v.OriginalRow(i), v.OriginalColumn(j)
	if r < 0 || c < 0 {
		return nil
	}
	return v.ds.Value(r, c)
}

// Row returns the visible values of view row i, or nil when out of range.
func (v *View) Row(i int) []any {
	if i < 0 || i >= v.Len() {
		return nil
	}
	return v.Values()[i]
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func isIdentity(m []int, n int) bool {
	if len(m) != n {
		return false
	}
	for i, p := range m {
		if p != i {
			return false
		}
	}
	return true
}
