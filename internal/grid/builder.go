package grid

import (
	"sort"

	"github.com/JonMunkholm/dataviewer/internal/axis"
	"github.com/JonMunkholm/dataviewer/internal/filter"
	"github.com/JonMunkholm/dataviewer/internal/format"
	"github.com/JonMunkholm/dataviewer/internal/view"
)

// CellFormatter renders values and labels as text.
type CellFormatter interface {
	ForColumn(attrs axis.Attrs) format.CellFunc
	Label(v any) string
}

// SortMark marks the active sort on the header. Columns are original dataset
// positions; index levels are resolved, non-negative levels.
type SortMark struct {
	OnIndex   bool           `json:"onIndex"`
	Position  int            `json:"position"`
	Direction view.Direction `json:"direction"`
}

// Builder emits grid rows for a view.
type Builder struct {
	v         *view.View
	filterRow bool
	formatter CellFormatter
	filters   filter.Set
	sort      *SortMark
}

// Option configures a Builder.
type Option func(*Builder)

// WithFilterRow toggles the filter input row in the header.
func WithFilterRow(on bool) Option {
	return func(b *Builder) { b.filterRow = on }
}

// WithFormatter sets the cell formatter. The default is format.New().
func WithFormatter(f CellFormatter) Option {
	return func(b *Builder) {
		if f != nil {
			b.formatter = f
		}
	}
}

// WithFilters fills filter row cells with the active clause text.
func WithFilters(s filter.Set) Option {
	return func(b *Builder) { b.filters = s }
}

// WithSort marks the sorted header cell.
func WithSort(m *SortMark) Option {
	return func(b *Builder) { b.sort = m }
}

// NewBuilder returns a Builder reading v. The filter row is on by default.
func NewBuilder(v *view.View, opts ...Option) *Builder {
	b := &Builder{v: v, filterRow: true}
	for _, opt := range opts {
		opt(b)
	}
	if b.formatter == nil {
		b.formatter = format.New()
	}
	return b
}

// View returns the view the builder reads.
func (b *Builder) View() *view.View { return b.v }

// BuildHeader emits the header rows: one group row per non-leaf column level,
// the leaf row, the index-name row when index names exist, and the filter row
// when enabled.
func (b *Builder) BuildHeader() []Row {
	ds := b.v.Dataset()
	cols := b.v.Columns()
	idxLevels := b.v.Index().NLevels()

	var rows []Row
	for level := 0; level < cols.NLevels()-1; level++ {
		row := Row{b.levelNameCell(RoleHeaderGroup, level, idxLevels, ds.ColumnName(level))}
		for _, s := range cols.Spans(level) {
			a := noPosition()
			a.ViewCol = s.Start
			a.IndexEdge = s.Start == 0
			a.GroupEdge = s.Start > 0
			row = append(row, Cell{
				Role:    RoleHeaderGroup,
				RowSpan: 1,
				ColSpan: s.Count,
				Level:   level,
				GroupID: s.GroupID,
				Value:   s.Label(),
				Text:    b.formatter.Label(s.Label()),
				Attrs:   a,
			})
		}
		rows = append(rows, row)
	}

	leafLevel := cols.NLevels() - 1
	leaf := Row{b.levelNameCell(RoleHeaderLeaf, leafLevel, idxLevels, ds.ColumnName(-1))}
	for j := 0; j < cols.Len(); j++ {
		label := cols.Label(j, leafLevel)
		a := b.columnAttrs(cols, j)
		a.Sort = b.sortFor(false, a.OriginalCol)
		leaf = append(leaf, Cell{
			Role:    RoleHeaderLeaf,
			RowSpan: 1,
			ColSpan: 1,
			Level:   leafLevel,
			Value:   label,
			Text:    b.formatter.Label(label),
			Attrs:   a,
		})
	}
	rows = append(rows, leaf)

	if len(ds.IndexNames()) > 0 {
		names := make(Row, 0, idxLevels+cols.Len())
		for level := 0; level < idxLevels; level++ {
			a := noPosition()
			a.Sort = b.sortFor(true, level)
			name := ds.IndexName(level)
			names = append(names, Cell{
				Role:    RoleIndexLabel,
				RowSpan: 1,
				ColSpan: 1,
				Level:   level,
				Value:   name,
				Text:    name,
				Attrs:   a,
			})
		}
		for j := 0; j < cols.Len(); j++ {
			names = append(names, Cell{
				Role:    RoleHeaderLeaf,
				RowSpan: 1,
				ColSpan: 1,
				Level:   leafLevel,
				Attrs:   b.columnAttrs(cols, j),
			})
		}
		rows = append(rows, names)
	}

	if b.filterRow {
		rows = append(rows, b.filterCells(cols, idxLevels))
	}
	return rows
}

func (b *Builder) levelNameCell(role Role, level, span int, name string) Cell {
	a := noPosition()
	a.Leading = true
	return Cell{
		Role:    role,
		RowSpan: 1,
		ColSpan: span,
		Level:   level,
		Value:   name,
		Text:    name,
		Attrs:   a,
	}
}

func (b *Builder) filterCells(cols *axis.Axis, idxLevels int) Row {
	row := make(Row, 0, idxLevels+cols.Len())
	for level := 0; level < idxLevels; level++ {
		text := clauseText(b.filters.IndexClauses, level, idxLevels)
		row = append(row, Cell{
			Role:    RoleHeaderFilter,
			RowSpan: 1,
			ColSpan: 1,
			Level:   level,
			Value:   text,
			Text:    text,
			Attrs:   noPosition(),
		})
	}
	for j := 0; j < cols.Len(); j++ {
		a := b.columnAttrs(cols, j)
		text := clauseText(b.filters.ColumnClauses, a.OriginalCol, -1)
		row = append(row, Cell{
			Role:    RoleHeaderFilter,
			RowSpan: 1,
			ColSpan: 1,
			Level:   cols.NLevels() - 1,
			Value:   text,
			Text:    text,
			Attrs:   a,
		})
	}
	return row
}

// clauseText finds the text of the clause at pos. Negative clause positions
// are resolved against nlevels when nlevels is positive.
func clauseText(clauses []filter.Clause, pos, nlevels int) string {
	for _, c := range clauses {
		p := c.Position
		if p < 0 && nlevels > 0 {
			p += nlevels
		}
		if p == pos {
			return c.Text
		}
	}
	return ""
}

func (b *Builder) sortFor(onIndex bool, pos int) string {
	if b.sort == nil || b.sort.OnIndex != onIndex || b.sort.Position != pos || b.sort.Direction == view.DirNone {
		return ""
	}
	return string(b.sort.Direction)
}

func (b *Builder) columnAttrs(cols *axis.Axis, j int) Attrs {
	attrs := cols.Attrs(j)
	a := noPosition()
	a.ViewCol = j
	a.OriginalCol = b.v.OriginalColumn(j)
	a.DType = attrs.DType
	a.FormatOptions = attrs.FormatOptions
	a.Groups = attrs.Groups
	a.IndexEdge = j == 0
	a.GroupEdge = cols.IsEdge(j)
	return a
}

// BuildBody emits the rows of the window [start, end), clipped to the view.
// Outer index labels are emitted on the row where their span starts, with
// RowSpan covering the whole span; spans that started before start are not
// repeated. The leaf index label is never merged.
func (b *Builder) BuildBody(start, end int) []Row {
	start = max(start, 0)
	end = min(end, b.v.Len())
	if start >= end {
		return nil
	}

	index := b.v.Index()
	cols := b.v.Columns()
	values := b.v.Values()
	leafLevel := index.NLevels() - 1

	rows := make([]Row, end-start)
	for level := 0; level < leafLevel; level++ {
		spans := index.Spans(level)
		first := sort.Search(len(spans), func(i int) bool { return spans[i].Start >= start })
		for _, s := range spans[first:] {
			if s.Start >= end {
				break
			}
			a := noPosition()
			a.ViewRow = s.Start
			a.OriginalRow = b.v.OriginalRow(s.Start)
			rows[s.Start-start] = append(rows[s.Start-start], Cell{
				Role:    RoleIndexLabel,
				RowSpan: s.Count,
				ColSpan: 1,
				Level:   level,
				GroupID: s.GroupID,
				Value:   s.Label(),
				Text:    b.formatter.Label(s.Label()),
				Attrs:   a,
			})
		}
	}

	cellFuncs := make([]format.CellFunc, cols.Len())
	colAttrs := make([]Attrs, cols.Len())
	for j := range cellFuncs {
		cellFuncs[j] = b.formatter.ForColumn(cols.Attrs(j))
		colAttrs[j] = b.columnAttrs(cols, j)
	}

	for i := start; i < end; i++ {
		r := i - start
		original := b.v.OriginalRow(i)
		label := index.Label(i, leafLevel)
		a := noPosition()
		a.ViewRow = i
		a.OriginalRow = original
		rows[r] = append(rows[r], Cell{
			Role:    RoleIndexLabel,
			RowSpan: 1,
			ColSpan: 1,
			Level:   leafLevel,
			Value:   label,
			Text:    b.formatter.Label(label),
			Attrs:   a,
		})
		for j, v := range values[i] {
			ca := colAttrs[j]
			ca.ViewRow = i
			ca.OriginalRow = original
			rows[r] = append(rows[r], Cell{
				Role:    RoleDataCell,
				RowSpan: 1,
				ColSpan: 1,
				Level:   -1,
				Value:   v,
				Text:    cellFuncs[j](v),
				Attrs:   ca,
			})
		}
	}
	return rows
}

// NextWindow returns the window to materialize after currentRowCount rows
// are already shown. ok is false when every row is shown.
func (b *Builder) NextWindow(currentRowCount, bufferSize int) (start, end int, ok bool) {
	start = max(currentRowCount, 0)
	end = min(start+max(bufferSize, 0), b.v.Len())
	return start, end, start < end
}
