package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
)

// CSVOptions controls CSV decoding.
type CSVOptions struct {
	Comma          rune   // field delimiter, ',' when zero
	IndexColumns   int    // leading columns that form the row labels
	LevelSeparator string // splits header labels into levels, e.g. "|"
	MaxRows        int    // 0 means unlimited
}

// ErrEmptyCSV is returned when the input has no header row.
var ErrEmptyCSV = errors.New("csv has no header row")

// ReadCSV decodes a CSV stream with a header row. The stream is BOM-stripped
// and UTF-8 sanitized before parsing.
func ReadCSV(r io.Reader, opts CSVOptions) (dataset.Raw, error) {
	cr := csv.NewReader(WrapText(r))
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return dataset.Raw{}, ErrEmptyCSV
	}
	if err != nil {
		return dataset.Raw{}, fmt.Errorf("%w: read header: %w", ErrMalformed, err)
	}
	width := len(header)
	nIndex := min(max(opts.IndexColumns, 0), width)

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataset.Raw{}, fmt.Errorf("%w: read row %d: %w", ErrMalformed, len(records)+1, err)
		}
		if isBlank(rec) {
			continue
		}
		if len(rec) != width {
			return dataset.Raw{}, &dataset.SchemaError{
				Row:    len(records),
				Reason: fmt.Sprintf("csv row %d has %d fields, header has %d", len(records)+1, len(rec), width),
			}
		}
		records = append(records, rec)
		if opts.MaxRows > 0 && len(records) >= opts.MaxRows {
			break
		}
	}

	cols := make([]column, width)
	for j := range cols {
		cells := make([]string, len(records))
		for i, rec := range records {
			cells[i] = rec[j]
		}
		cols[j] = inferColumn(cells)
	}

	raw := dataset.Raw{
		Values: make([][]any, len(records)),
	}
	for i := range records {
		row := make([]any, 0, width-nIndex)
		for j := nIndex; j < width; j++ {
			row = append(row, cols[j].values[i])
		}
		raw.Values[i] = row
		raw.Index = append(raw.Index, indexLabel(cols[:nIndex], i))
	}
	for j := nIndex; j < width; j++ {
		raw.Columns = append(raw.Columns, splitLabel(CleanCell(header[j]), opts.LevelSeparator))
		raw.DTypes = append(raw.DTypes, string(cols[j].dtype))
	}
	for j := 0; j < nIndex; j++ {
		raw.IndexNames = append(raw.IndexNames, CleanCell(header[j]))
	}
	return raw, nil
}

// indexLabel returns the row label of row i: the index cells, or the row
// number when there are no index columns.
func indexLabel(cols []column, i int) any {
	switch len(cols) {
	case 0:
		return i
	case 1:
		return cols[0].values[i]
	}
	tuple := make([]any, len(cols))
	for k, c := range cols {
		tuple[k] = c.values[i]
	}
	return tuple
}

func splitLabel(label, sep string) any {
	if sep == "" {
		return label
	}
	parts := strings.Split(label, sep)
	tuple := make([]any, len(parts))
	for i, p := range parts {
		tuple[i] = strings.TrimSpace(p)
	}
	return tuple
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

type column struct {
	dtype  dataset.DType
	values []any
}

// inferColumn picks the narrowest type every non-empty cell satisfies.
func inferColumn(cells []string) column {
	cleaned := make([]string, len(cells))
	nonEmpty := 0
	for i, c := range cells {
		cleaned[i] = CleanCell(c)
		if cleaned[i] != "" {
			nonEmpty++
		}
	}
	values := make([]any, len(cells))
	if nonEmpty == 0 {
		return column{dtype: dataset.DTypeOther, values: values}
	}

	if convertAll(cleaned, values, func(s string) (any, bool) { return ParseInt(s) }) {
		return column{dtype: dataset.DTypeInt, values: values}
	}
	if convertAll(cleaned, values, func(s string) (any, bool) { return ParseFloat(s) }) {
		return column{dtype: dataset.DTypeFloat, values: values}
	}

	anyTime := false
	isDate := convertAll(cleaned, values, func(s string) (any, bool) {
		t, hasTime, ok := ParseDate(s)
		anyTime = anyTime || hasTime
		return t, ok
	})
	if isDate {
		if anyTime {
			return column{dtype: dataset.DTypeDatetime, values: values}
		}
		return column{dtype: dataset.DTypeDate, values: values}
	}

	for i, s := range cleaned {
		if s == "" {
			values[i] = nil
			continue
		}
		values[i] = s
	}
	return column{dtype: dataset.DTypeOther, values: values}
}

func convertAll(cells []string, out []any, parse func(string) (any, bool)) bool {
	for i, s := range cells {
		if s == "" {
			out[i] = nil
			continue
		}
		v, ok := parse(s)
		if !ok {
			return false
		}
		out[i] = v
	}
	return true
}
