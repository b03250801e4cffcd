package dataset_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataviewer/internal/axis"
	"github.com/JonMunkholm/dataviewer/internal/dataset"
)

func sampleRaw() dataset.Raw {
	return dataset.Raw{
		Index:       []any{[]any{"east", "a"}, []any{"east", "b"}, []any{"west", "c"}},
		IndexNames:  []string{"region", "store"},
		Columns:     []any{[]any{"2023", "q1"}, []any{"2023", "q2"}, []any{"2024", "q1"}},
		ColumnNames: []string{"year", "quarter"},
		Values: [][]any{
			{1, 2.5, nil},
			{3, nil, 4},
			{5, 6, 7},
		},
		DTypes: []string{"int", "float", "int"},
	}
}

func TestSetData(t *testing.T) {
	ds, err := dataset.FromRaw(sampleRaw())
	require.NoError(t, err)

	assert.Equal(t, 3, ds.NumRows())
	assert.Equal(t, 3, ds.NumColumns())
	assert.True(t, ds.HasColumns())
	assert.Equal(t, 2, ds.Index().NLevels())
	assert.Equal(t, dataset.DTypeFloat, ds.DType(1))
	assert.Equal(t, "float", ds.Columns().Attrs(1).DType)
	assert.Equal(t, "store", ds.IndexName(1))
	assert.Equal(t, "quarter", ds.ColumnName(-1))
	assert.Equal(t, 4, ds.Value(1, 2))
	assert.Nil(t, ds.Value(9, 0))
	assert.Equal(t, uint64(1), ds.Structure())
}

func TestSetData_SchemaError(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dataset.Raw)
	}{
		{"short row", func(r *dataset.Raw) { r.Values[1] = []any{1} }},
		{"missing row", func(r *dataset.Raw) { r.Values = r.Values[:2] }},
		{"dtype count", func(r *dataset.Raw) { r.DTypes = []string{"int"} }},
		{"format count", func(r *dataset.Raw) { r.FormatOptions = []map[string]any{{}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := dataset.FromRaw(sampleRaw())
			require.NoError(t, err)

			bad := sampleRaw()
			tt.mutate(&bad)
			err = ds.SetData(bad)

			var schemaErr *dataset.SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %v", err)
			// last valid state is kept
			assert.Equal(t, 3, ds.NumRows())
			assert.Equal(t, uint64(1), ds.Structure())
		})
	}
}

func TestSetData_RaggedLabels(t *testing.T) {
	raw := sampleRaw()
	raw.Columns[2] = []any{"2024"}

	_, err := dataset.FromRaw(raw)
	var shapeErr *axis.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 2, shapeErr.Position)
}

func TestPatchValues(t *testing.T) {
	ds, err := dataset.FromRaw(sampleRaw())
	require.NoError(t, err)
	columns := ds.Columns()

	patch := sampleRaw()
	patch.Values[0][0] = 100
	change, err := ds.PatchValues(patch)
	require.NoError(t, err)

	assert.True(t, change.ValuesOnly)
	assert.Same(t, columns, ds.Columns())
	assert.Equal(t, 100, ds.Value(0, 0))
	assert.Equal(t, uint64(1), ds.Structure())
	assert.Equal(t, uint64(2), ds.Revision())
}

func TestPatchValues_ShapeChangeFallsBack(t *testing.T) {
	ds, err := dataset.FromRaw(sampleRaw())
	require.NoError(t, err)

	change, err := ds.PatchValues(dataset.Raw{
		Index:   []any{"r0"},
		Columns: []any{"c0"},
		Values:  [][]any{{1}},
	})
	require.NoError(t, err)
	assert.False(t, change.ValuesOnly)
	assert.Equal(t, 1, ds.NumRows())
	assert.Equal(t, uint64(2), ds.Structure())
}

func TestEmptyDataset(t *testing.T) {
	ds := dataset.New()
	assert.False(t, ds.HasColumns())
	assert.Equal(t, 0, ds.NumRows())
	assert.Empty(t, ds.Values())
	assert.Equal(t, dataset.DTypeOther, ds.DType(0))
	assert.Nil(t, ds.FormatOptions(0))
}

func TestSetData_CopiesPayload(t *testing.T) {
	raw := sampleRaw()
	raw.FormatOptions = []map[string]any{{"maximumFractionDigits": 1}, nil, nil}
	ds, err := dataset.FromRaw(raw)
	require.NoError(t, err)

	raw.Index[0].([]any)[1] = "changed"
	raw.Columns[2].([]any)[0] = "1999"
	raw.IndexNames[0] = "changed"
	raw.ColumnNames[1] = "changed"
	raw.FormatOptions[0]["maximumFractionDigits"] = 4
	raw.Values[0][0] = 100

	assert.Equal(t, "a", ds.Index().Label(0, 1))
	assert.Equal(t, "2024", ds.Columns().Label(2, 0))
	assert.Equal(t, "region", ds.IndexName(0))
	assert.Equal(t, "quarter", ds.ColumnName(1))
	assert.Equal(t, 1, ds.FormatOptions(0)["maximumFractionDigits"])
	assert.Equal(t, 1, ds.Value(0, 0))
	require.Len(t, ds.Columns().Spans(0), 2)
}
