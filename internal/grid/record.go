package grid

import (
	"strings"

	"github.com/JonMunkholm/dataviewer/internal/axis"
	"github.com/JonMunkholm/dataviewer/internal/view"
)

// DefaultGroupTitle names the field group of a single-level column axis.
const DefaultGroupTitle = "Fields"

// Record is the single-row detail view.
type Record struct {
	ViewRow     int             `json:"viewRow"`
	OriginalRow int             `json:"originalRow"`
	Position    int             `json:"position"` // 1-based
	Total       int             `json:"total"`
	Index       axis.LabelTuple `json:"index"`
	IndexText   string          `json:"indexText"`
	Groups      []FieldGroup    `json:"groups"`
}

// FieldGroup collects the fields sharing a non-leaf column label path.
type FieldGroup struct {
	Path   []any   `json:"path"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Field is one column of a record.
type Field struct {
	Label       any    `json:"label"`
	LabelText   string `json:"labelText"`
	Value       any    `json:"value"`
	Text        string `json:"text"`
	DType       string `json:"dtype,omitempty"`
	ViewCol     int    `json:"viewCol"`
	OriginalCol int    `json:"originalCol"`
}

// BuildRecord returns the detail view of a view row.
func (b *Builder) BuildRecord(viewRow int) (*Record, error) {
	if viewRow < 0 || viewRow >= b.v.Len() {
		return nil, &view.IndexOutOfRangeError{Axis: "row", Position: viewRow, Len: b.v.Len()}
	}

	index := b.v.Index().Value(viewRow)
	parts := make([]string, len(index))
	for i, l := range index {
		parts[i] = b.formatter.Label(l)
	}

	rec := &Record{
		ViewRow:     viewRow,
		OriginalRow: b.v.OriginalRow(viewRow),
		Position:    viewRow + 1,
		Total:       b.v.Len(),
		Index:       index,
		IndexText:   strings.Join(parts, " | "),
	}

	cols := b.v.Columns()
	values := b.v.Row(viewRow)
	leafLevel := cols.NLevels() - 1
	byKey := make(map[string]int)
	for j := 0; j < cols.Len(); j++ {
		tuple := cols.Value(j)
		path := []any(tuple[:leafLevel:leafLevel])
		key := b.pathKey(path)

		gi, ok := byKey[key]
		if !ok {
			title := DefaultGroupTitle
			if len(path) > 0 {
				title = b.formatter.Label(path[len(path)-1])
			}
			rec.Groups = append(rec.Groups, FieldGroup{Path: path, Title: title})
			gi = len(rec.Groups) - 1
			byKey[key] = gi
		}

		attrs := cols.Attrs(j)
		label := tuple.Leaf()
		rec.Groups[gi].Fields = append(rec.Groups[gi].Fields, Field{
			Label:       label,
			LabelText:   b.formatter.Label(label),
			Value:       values[j],
			Text:        b.formatter.ForColumn(attrs)(values[j]),
			DType:       attrs.DType,
			ViewCol:     j,
			OriginalCol: b.v.OriginalColumn(j),
		})
	}
	return rec, nil
}

func (b *Builder) pathKey(path []any) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = b.formatter.Label(p)
	}
	return strings.Join(parts, " > ")
}
