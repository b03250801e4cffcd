package filter_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/filter"
	"github.com/JonMunkholm/dataviewer/internal/view"
)

func TestParseTerm(t *testing.T) {
	tests := []struct {
		token string
		want  filter.Term
	}{
		{"null", filter.Term{Kind: filter.KindIsNull}},
		{"NULL", filter.Term{Kind: filter.KindIsNull}},
		{"!null", filter.Term{Kind: filter.KindIsNotNull}},
		{"Empty", filter.Term{Kind: filter.KindIsEmpty}},
		{"=ABC", filter.Term{Kind: filter.KindExact, Pattern: "abc"}},
		{"ab*", filter.Term{Kind: filter.KindStartsWith, Pattern: "ab"}},
		{"*bc", filter.Term{Kind: filter.KindEndsWith, Pattern: "bc"}},
		{"*b*", filter.Term{Kind: filter.KindContains, Pattern: "b"}},
		{"xyz", filter.Term{Kind: filter.KindContains, Pattern: "xyz"}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.ParseTerm(tt.token))
		})
	}
}

func TestParse_TrimsAndDropsEmpty(t *testing.T) {
	terms := filter.Parse(" a , ,b ")
	require.Len(t, terms, 2)
	assert.Equal(t, "a", terms[0].Pattern)
	assert.Equal(t, "b", terms[1].Pattern)
	assert.Empty(t, filter.Parse("  "))
}

func TestMatchAny(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		value any
		want  bool
	}{
		{"null matches nil", "null", nil, true},
		{"null ignores string null", "null", "null", false},
		{"null ignores empty", "null", "", false},
		{"not null matches empty", "!null", "", true},
		{"not null rejects nil", "!null", nil, false},
		{"empty matches empty", "empty", "", true},
		{"empty rejects nil", "empty", nil, false},
		{"exact", "=abc", "ABC", true},
		{"exact rejects superstring", "=abc", "abcd", false},
		{"prefix", "ab*", "abc", true},
		{"prefix rejects infix", "ab*", "xab", false},
		{"suffix", "*bc", "abc", true},
		{"suffix rejects infix", "*bc", "abcx", false},
		{"or", "a,b", "xbx", true},
		{"or misses", "a,b", "xyz", false},
		{"contains number", "23", 1234, true},
		{"contains rejects nil", "x", nil, false},
		{"empty clause matches", "", nil, true},
		{"null matches NaN", "null", math.NaN(), true},
		{"not null rejects NaN", "!null", math.NaN(), false},
		{"contains rejects NaN", "nan", math.NaN(), false},
		{"not null keeps numbers", "!null", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.MatchAny(filter.Parse(tt.text), tt.value))
		})
	}
}

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromRaw(dataset.Raw{
		Index: []any{
			[]any{"east", "a1"},
			[]any{"east", "b1"},
			[]any{"west", "a2"},
			[]any{"west", "b2"},
		},
		Columns: []any{"name", "city", "score"},
		Values: [][]any{
			{"alice", "Oslo", 10},
			{"bob", nil, 20},
			{"carol", "Bergen", nil},
			{"dave", "", 40},
		},
	})
	require.NoError(t, err)
	return ds
}

func TestSetCompile(t *testing.T) {
	ds := sample(t)
	v := view.New(ds)

	set := filter.Set{
		IndexClauses:  []filter.Clause{{Target: filter.TargetIndexLevel, Position: 0, Text: "west"}},
		ColumnClauses: []filter.Clause{{Target: filter.TargetColumn, Position: 1, Text: "b*, empty"}},
	}
	require.NoError(t, set.Validate(ds))
	v.Filter(set.Compile(ds))
	assert.Equal(t, []int{2, 3}, v.RowPositions())

	leaf := filter.Set{IndexClauses: []filter.Clause{{Position: -1, Text: "*1"}}}
	v.Filter(leaf.Compile(ds))
	assert.Equal(t, []int{0, 1}, v.RowPositions())

	nulls := filter.Set{ColumnClauses: []filter.Clause{{Target: filter.TargetColumn, Position: 1, Text: "null"}}}
	v.Filter(nulls.Compile(ds))
	assert.Equal(t, []int{1}, v.RowPositions())
}

func TestSetValidate(t *testing.T) {
	ds := sample(t)
	set := filter.Set{ColumnClauses: []filter.Clause{
		{Target: filter.TargetColumn, Position: 1, Text: "x"},
		{Target: filter.TargetColumn, Position: 9, Text: "x"},
	}}

	err := set.Validate(ds)
	assert.True(t, errors.Is(err, view.ErrIndexOutOfRange))

	kept, dropped := set.Prune(ds)
	assert.Len(t, kept.ColumnClauses, 1)
	require.Len(t, dropped, 1)
	assert.Equal(t, 9, dropped[0].Position)
}

func TestSetEmpty(t *testing.T) {
	assert.True(t, filter.Set{}.Empty())
	assert.True(t, filter.Set{ColumnClauses: []filter.Clause{{Text: " , "}}}.Empty())
	assert.False(t, filter.Set{IndexClauses: []filter.Clause{{Text: "a"}}}.Empty())
}

func TestTranslate(t *testing.T) {
	assert.Equal(t, 2, filter.Translate(0, []int{2, 0}))
	assert.Equal(t, 0, filter.Translate(1, []int{2, 0}))
	assert.Equal(t, -1, filter.Translate(2, []int{2, 0}))
}

func TestTermString(t *testing.T) {
	for _, text := range []string{"null", "!null", "empty", "=abc", "ab*", "*bc", "abc"} {
		assert.Equal(t, text, filter.ParseTerm(text).String())
	}
}

func TestTermMatch_NaNIsNull(t *testing.T) {
	nan := math.NaN()
	assert.True(t, filter.ParseTerm("null").Match(nan))
	assert.False(t, filter.ParseTerm("!null").Match(nan))
	assert.False(t, filter.ParseTerm("=nan").Match(nan))
	assert.False(t, filter.ParseTerm("empty").Match(nan))
}
