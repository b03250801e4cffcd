package source

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
)

// ErrNestedParquet is returned for parquet schemas with nested or repeated
// fields.
var ErrNestedParquet = errors.New("parquet schema is not flat")

// ParquetOptions controls parquet decoding.
type ParquetOptions struct {
	IndexColumns int
	MaxRows      int
	BatchSize    int
}

const defaultParquetBatch = 256

// ReadParquet decodes a flat parquet file. Leading IndexColumns fields form
// the row labels; the rest become columns.
func ReadParquet(r io.ReaderAt, size int64, opts ParquetOptions) (dataset.Raw, error) {
	pf, err := parquet.OpenFile(r, size,
		parquet.SkipBloomFilters(true),
		parquet.SkipPageIndex(true),
	)
	if err != nil {
		return dataset.Raw{}, fmt.Errorf("%w: open parquet: %w", ErrMalformed, err)
	}

	fields := pf.Schema().Fields()
	for _, f := range fields {
		if !f.Leaf() || f.Repeated() {
			return dataset.Raw{}, fmt.Errorf("%w: field %q", ErrNestedParquet, f.Name())
		}
	}
	nIndex := min(max(opts.IndexColumns, 0), len(fields))

	kinds := make([]dataset.DType, len(fields))
	raw := dataset.Raw{}
	for j, f := range fields {
		kinds[j] = parquetDType(f.Type())
		if j < nIndex {
			raw.IndexNames = append(raw.IndexNames, f.Name())
			continue
		}
		raw.Columns = append(raw.Columns, f.Name())
		raw.DTypes = append(raw.DTypes, string(kinds[j]))
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultParquetBatch
	}
	reader := parquet.NewReader(pf)
	defer reader.Close()

	rows := make([]parquet.Row, batch)
	for {
		n, err := reader.ReadRows(rows)
		for _, row := range rows[:n] {
			cells := make([]any, len(fields))
			for _, v := range row {
				c := v.Column()
				if c < 0 || c >= len(fields) {
					continue
				}
				cells[c] = parquetValue(v, fields[c].Type(), kinds[c])
			}
			raw.Values = append(raw.Values, cells[nIndex:])
			raw.Index = append(raw.Index, parquetIndex(cells[:nIndex], len(raw.Index)))
			if opts.MaxRows > 0 && len(raw.Values) >= opts.MaxRows {
				return raw, nil
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return dataset.Raw{}, fmt.Errorf("%w: read parquet rows: %w", ErrMalformed, err)
		}
		if n == 0 {
			break
		}
	}
	return raw, nil
}

func parquetIndex(cells []any, row int) any {
	switch len(cells) {
	case 0:
		return row
	case 1:
		return cells[0]
	}
	return append([]any(nil), cells...)
}

func parquetDType(t parquet.Type) dataset.DType {
	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.Date != nil:
			return dataset.DTypeDate
		case lt.Timestamp != nil:
			return dataset.DTypeDatetime
		case lt.UTF8 != nil:
			return dataset.DTypeOther
		}
	}
	switch t.Kind() {
	case parquet.Int32, parquet.Int64:
		return dataset.DTypeInt
	case parquet.Float, parquet.Double:
		return dataset.DTypeFloat
	}
	return dataset.DTypeOther
}

func parquetValue(v parquet.Value, t parquet.Type, dtype dataset.DType) any {
	if v.IsNull() {
		return nil
	}
	switch dtype {
	case dataset.DTypeDate:
		return time.Unix(int64(v.Int32())*86400, 0).UTC()
	case dataset.DTypeDatetime:
		ts := t.LogicalType().Timestamp
		switch {
		case ts.Unit.Nanos != nil:
			return time.Unix(0, v.Int64()).UTC()
		case ts.Unit.Micros != nil:
			return time.UnixMicro(v.Int64()).UTC()
		}
		return time.UnixMilli(v.Int64()).UTC()
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
