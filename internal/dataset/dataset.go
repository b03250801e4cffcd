// Package dataset owns the source of truth rendered by the grid: a row axis
// (the index), a column axis, a row-major value matrix, per-column type tags
// and per-column format overrides.
//
// A Dataset is replaced wholesale on structural change ([Dataset.SetData]) and
// patched in place when only cell values change ([Dataset.PatchValues]). The
// distinction lets dependants skip span and axis recomputation on a
// values-only update.
package dataset

import (
	"fmt"
	"maps"
	"slices"

	"github.com/JonMunkholm/dataviewer/internal/axis"
)

// DType is a per-column type tag driving formatting.
type DType string

const (
	DTypeInt      DType = "int"
	DTypeFloat    DType = "float"
	DTypeDate     DType = "date"
	DTypeDatetime DType = "datetime"
	DTypeOther    DType = ""
)

// IsNumeric reports whether values of the type are numbers.
func (d DType) IsNumeric() bool { return d == DTypeInt || d == DTypeFloat }

// Raw is the load payload. Index and column entries are either scalars
// (single-level axis) or arrays (one label per level).
type Raw struct {
	Index         []any            `json:"index" yaml:"index"`
	IndexNames    []string         `json:"indexNames,omitempty" yaml:"indexNames,omitempty"`
	Columns       []any            `json:"columns" yaml:"columns"`
	ColumnNames   []string         `json:"columnNames,omitempty" yaml:"columnNames,omitempty"`
	Values        [][]any          `json:"values" yaml:"values"`
	DTypes        []string         `json:"dtypes,omitempty" yaml:"dtypes,omitempty"`
	FormatOptions []map[string]any `json:"formatOptions,omitempty" yaml:"formatOptions,omitempty"`
}

// Change describes the effect of a data update.
type Change struct {
	ValuesOnly bool
}

// Dataset is the immutable-by-convention source of truth for views.
type Dataset struct {
	index         *axis.Axis
	columns       *axis.Axis
	values        [][]any
	indexNames    []string
	columnNames   []string
	dtypes        []DType
	formatOptions []map[string]any

	structure uint64
	revision  uint64
}

// New returns an empty Dataset.
func New() *Dataset {
	return &Dataset{
		index:   axis.MustNew(nil),
		columns: axis.MustNew(nil),
	}
}

// FromRaw builds a Dataset from a payload.
func FromRaw(raw Raw) (*Dataset, error) {
	ds := New()
	if err := ds.SetData(raw); err != nil {
		return nil, err
	}
	return ds, nil
}

// SetData validates raw and replaces the whole dataset. On error the dataset
// keeps its last valid state.
func (ds *Dataset) SetData(raw Raw) error {
	raw.IndexNames = slices.Clone(raw.IndexNames)
	raw.ColumnNames = slices.Clone(raw.ColumnNames)
	raw.FormatOptions = cloneOptions(raw.FormatOptions)

	dtypes := toDTypes(raw.DTypes)
	index, err := axis.FromRaw(raw.Index)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	columns, err := axis.FromRaw(raw.Columns,
		axis.WithDTypes(raw.DTypes),
		axis.WithFormatOptions(raw.FormatOptions),
	)
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}
	if err := validateShape(raw, index.Len(), columns.Len()); err != nil {
		return err
	}

	ds.index = index
	ds.columns = columns
	ds.values = copyMatrix(raw.Values)
	ds.indexNames = raw.IndexNames
	ds.columnNames = raw.ColumnNames
	ds.dtypes = dtypes
	ds.formatOptions = raw.FormatOptions
	ds.structure++
	ds.revision++
	return nil
}

// PatchValues replaces cell values, keeping both axes, when raw has the same
// shape as the current data. Dtypes are replaced when raw carries them.
// A different shape falls back to SetData.
func (ds *Dataset) PatchValues(raw Raw) (Change, error) {
	if !ds.sameShape(raw) {
		if err := ds.SetData(raw); err != nil {
			return Change{}, err
		}
		return Change{ValuesOnly: false}, nil
	}

	ds.values = copyMatrix(raw.Values)
	if len(raw.DTypes) > 0 && !sameDTypes(ds.dtypes, raw.DTypes) {
		ds.dtypes = toDTypes(raw.DTypes)
		ds.columns = rebuildAttrs(ds.columns, raw.DTypes, ds.formatOptions)
	}
	ds.revision++
	return Change{ValuesOnly: true}, nil
}

func (ds *Dataset) sameShape(raw Raw) bool {
	if ds.structure == 0 || len(raw.Values) != ds.index.Len() {
		return false
	}
	for _, row := range raw.Values {
		if len(row) != ds.columns.Len() {
			return false
		}
	}
	if len(raw.DTypes) > 0 && len(raw.DTypes) != ds.columns.Len() {
		return false
	}
	return true
}

// HasColumns reports whether at least one column exists.
func (ds *Dataset) HasColumns() bool { return ds.columns.Len() > 0 }

// Index returns the row axis.
func (ds *Dataset) Index() *axis.Axis { return ds.index }

// Columns returns the column axis.
func (ds *Dataset) Columns() *axis.Axis { return ds.columns }

// Values returns the row-major value matrix. It must not be modified.
func (ds *Dataset) Values() [][]any { return ds.values }

// Value returns values[row][col], or nil when out of range.
func (ds *Dataset) Value(row, col int) any {
	if row < 0 || row >= len(ds.values) || col < 0 || col >= len(ds.values[row]) {
		return nil
	}
	return ds.values[row][col]
}

// NumRows returns the index length.
func (ds *Dataset) NumRows() int { return ds.index.Len() }

// NumColumns returns the column axis length.
func (ds *Dataset) NumColumns() int { return ds.columns.Len() }

// IndexNames returns the per-level row label names, possibly nil.
func (ds *Dataset) IndexNames() []string { return ds.indexNames }

// ColumnNames returns the per-level column label names, possibly nil.
func (ds *Dataset) ColumnNames() []string { return ds.columnNames }

// IndexName returns the name of a row level or "".
func (ds *Dataset) IndexName(level int) string { return nameAt(ds.indexNames, level) }

// ColumnName returns the name of a column level or "". Negative levels count
// from the leaf.
func (ds *Dataset) ColumnName(level int) string {
	if level < 0 {
		level += ds.columns.NLevels()
	}
	return nameAt(ds.columnNames, level)
}

// DType returns the type tag of col.
func (ds *Dataset) DType(col int) DType {
	if col < 0 || col >= len(ds.dtypes) {
		return DTypeOther
	}
	return ds.dtypes[col]
}

// DTypes returns all column type tags.
func (ds *Dataset) DTypes() []DType { return ds.dtypes }

// FormatOptions returns the format override of col, or nil.
func (ds *Dataset) FormatOptions(col int) map[string]any {
	if col < 0 || col >= len(ds.formatOptions) {
		return nil
	}
	return ds.formatOptions[col]
}

// Structure is bumped on every structural replacement.
func (ds *Dataset) Structure() uint64 { return ds.structure }

// Revision is bumped on every change, structural or values-only.
func (ds *Dataset) Revision() uint64 { return ds.revision }

func validateShape(raw Raw, rows, cols int) error {
	if len(raw.Values) != rows {
		return &SchemaError{Reason: fmt.Sprintf("values has %d rows, index has %d", len(raw.Values), rows)}
	}
	for i, row := range raw.Values {
		if len(row) != cols {
			return &SchemaError{Row: i, Reason: fmt.Sprintf("row %d has %d values, columns has %d", i, len(row), cols)}
		}
	}
	if len(raw.DTypes) > 0 && len(raw.DTypes) != cols {
		return &SchemaError{Reason: fmt.Sprintf("dtypes has %d entries, columns has %d", len(raw.DTypes), cols)}
	}
	if len(raw.FormatOptions) > 0 && len(raw.FormatOptions) != cols {
		return &SchemaError{Reason: fmt.Sprintf("formatOptions has %d entries, columns has %d", len(raw.FormatOptions), cols)}
	}
	return nil
}

func rebuildAttrs(cols *axis.Axis, dtypes []string, opts []map[string]any) *axis.Axis {
	rebuilt, err := axis.New(cols.Values(), axis.WithDTypes(dtypes), axis.WithFormatOptions(opts))
	if err != nil {
		return cols
	}
	return rebuilt
}

func toDTypes(raw []string) []DType {
	if len(raw) == 0 {
		return nil
	}
	out := make([]DType, len(raw))
	for i, s := range raw {
		out[i] = DType(s)
	}
	return out
}

func sameDTypes(have []DType, want []string) bool {
	if len(have) != len(want) {
		return false
	}
	for i := range have {
		if string(have[i]) != want[i] {
			return false
		}
	}
	return true
}

func cloneOptions(opts []map[string]any) []map[string]any {
	if opts == nil {
		return nil
	}
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		out[i] = maps.Clone(o)
	}
	return out
}

func copyMatrix(values [][]any) [][]any {
	out := make([][]any, len(values))
	for i, row := range values {
		out[i] = append([]any(nil), row...)
	}
	return out
}

func nameAt(names []string, level int) string {
	if level < 0 || level >= len(names) {
		return ""
	}
	return names[level]
}
