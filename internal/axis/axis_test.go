package axis_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataviewer/internal/axis"
)

func tuples(rows ...[]any) []axis.LabelTuple {
	out := make([]axis.LabelTuple, len(rows))
	for i, r := range rows {
		out[i] = axis.LabelTuple(r)
	}
	return out
}

// requirePartition checks that every level partitions [0, Len) into ordered,
// contiguous, maximal runs and that deeper spans nest inside shallower ones.
func requirePartition(t *testing.T, a *axis.Axis) {
	t.Helper()
	for level := 0; level < a.NLevels(); level++ {
		spans := a.Spans(level)
		next, total := 0, 0
		for i, s := range spans {
			require.Equal(t, next, s.Start, "level %d span %d not contiguous", level, i)
			require.Positive(t, s.Count)
			next = s.End()
			total += s.Count
			if i > 0 {
				prev := spans[i-1]
				require.False(t, tupleEqual(prev.Value, s.Value), "level %d spans %d and %d share a value", level, i-1, i)
			}
		}
		require.Equal(t, a.Len(), total, "level %d counts do not sum to length", level)

		if level == 0 {
			continue
		}
		for _, s := range spans {
			for outer := 0; outer < level; outer++ {
				parent, ok := a.SpanAt(outer, s.Start)
				require.True(t, ok)
				require.LessOrEqual(t, s.End(), parent.End(), "span at level %d escapes level %d", level, outer)
			}
		}
	}
}

func tupleEqual(x, y axis.LabelTuple) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !axis.LabelsEqual(x[i], y[i]) {
			return false
		}
	}
	return true
}

func TestNew_TwoLevelColumns(t *testing.T) {
	a, err := axis.New(tuples([]any{"A", "x"}, []any{"A", "y"}, []any{"B", "z"}))
	require.NoError(t, err)

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, 2, a.NLevels())
	assert.True(t, a.IsMultiLevel())

	spans := a.Spans(0)
	require.Len(t, spans, 2)
	assert.Equal(t, axis.LabelTuple{"A"}, spans[0].Value)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 2, spans[0].Count)
	assert.Equal(t, axis.LabelTuple{"B"}, spans[1].Value)
	assert.Equal(t, 2, spans[1].Start)
	assert.Equal(t, 1, spans[1].Count)

	assert.Equal(t, []int{0, 2}, a.Edges())
	assert.False(t, a.IsEdge(0))
	assert.True(t, a.IsEdge(2))
	requirePartition(t, a)
}

func TestNew_NestedBoundaries(t *testing.T) {
	// "x" repeats across the A/B boundary and must not merge.
	a := axis.MustNew(tuples(
		[]any{"A", "x", 1},
		[]any{"A", "x", 2},
		[]any{"B", "x", 2},
		[]any{"B", "y", 2},
		[]any{"B", "y", 2},
	))

	lvl1 := a.Spans(1)
	require.Len(t, lvl1, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{lvl1[0].Start, lvl1[1].Start, lvl1[2].Start})

	lvl2 := a.Spans(2)
	require.Len(t, lvl2, 4)
	assert.Equal(t, 3, lvl2[3].Start)
	assert.Equal(t, 2, lvl2[3].Count)

	requirePartition(t, a)
}

func TestNew_GroupIDs(t *testing.T) {
	a := axis.MustNew(tuples(
		[]any{"A", "x"},
		[]any{"A", "y"},
		[]any{"B", "x"},
		[]any{"B", "y"},
		[]any{"B", "z"},
	))

	groupIDs := func(level int) []int {
		var ids []int
		for _, s := range a.Spans(level) {
			ids = append(ids, s.GroupID)
		}
		return ids
	}
	assert.Equal(t, []int{0, 1}, groupIDs(0))
	assert.Equal(t, []int{0, 1, 0, 1, 2}, groupIDs(1))

	assert.Equal(t, []int{1}, a.Attrs(3).Groups)
	assert.Equal(t, []int{0}, a.Attrs(0).Groups)
}

func TestNew_ShapeError(t *testing.T) {
	_, err := axis.New(tuples([]any{"A", "x"}, []any{"B"}))
	require.Error(t, err)

	var shapeErr *axis.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 1, shapeErr.Position)
	assert.Equal(t, 1, shapeErr.Got)
	assert.Equal(t, 2, shapeErr.Want)
}

func TestNew_Empty(t *testing.T) {
	a, err := axis.New(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 1, a.NLevels())
	assert.Empty(t, a.Spans(0))
	assert.Empty(t, a.Edges())
}

func TestFromRaw_CoercesScalars(t *testing.T) {
	a, err := axis.FromRaw([]any{"a", "a", "b", 3.0})
	require.NoError(t, err)
	assert.Equal(t, 1, a.NLevels())
	assert.Len(t, a.Spans(0), 3)
	assert.Equal(t, "b", a.Label(2, 0))
	requirePartition(t, a)
}

func TestLabelsEqual(t *testing.T) {
	tests := []struct {
		name string
		x, y any
		want bool
	}{
		{"same string", "a", "a", true},
		{"different string", "a", "b", false},
		{"int vs float", 3, 3.0, true},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, "", false},
		{"string vs number", "1", 1, false},
		{"slices", []any{1}, []any{1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, axis.LabelsEqual(tt.x, tt.y))
		})
	}
}

func TestSelect_RecomputesSpans(t *testing.T) {
	a := axis.MustNew(tuples(
		[]any{"A", "x"},
		[]any{"A", "y"},
		[]any{"B", "z"},
		[]any{"C", "w"},
	), axis.WithDTypes([]string{"int", "float", "date", ""}))

	sel := a.Select([]int{3, 0, 1})
	require.Equal(t, 3, sel.Len())
	assert.Equal(t, "", sel.Attrs(0).DType)
	assert.Equal(t, "int", sel.Attrs(1).DType)

	spans := sel.Spans(0)
	require.Len(t, spans, 2)
	assert.Equal(t, "C", spans[0].Label())
	assert.Equal(t, "A", spans[1].Label())
	assert.Equal(t, 2, spans[1].Count)
	requirePartition(t, sel)

	empty := a.Select(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 2, empty.NLevels())
}

func TestSpanAt(t *testing.T) {
	a := axis.MustNew(tuples([]any{"A"}, []any{"A"}, []any{"B"}))
	s, ok := a.SpanAt(0, 1)
	require.True(t, ok)
	assert.Equal(t, 0, s.Start)

	_, ok = a.SpanAt(0, 3)
	assert.False(t, ok)
}

func TestSpanValueAppendLeavesLabels(t *testing.T) {
	a := axis.MustNew(tuples(
		[]any{"a", "x"},
		[]any{"a", "y"},
		[]any{"b", "z"},
	))

	grown := append(a.Spans(0)[0].Value, "mutated")
	assert.Len(t, grown, 2)
	assert.Equal(t, "x", a.Label(0, 1))
	assert.Equal(t, "a", a.Spans(0)[0].Label())
	requirePartition(t, a)
}

func TestFromRaw_CopiesTuples(t *testing.T) {
	first := []any{"a", "x"}
	a, err := axis.FromRaw([]any{first, axis.LabelTuple{"a", "y"}})
	require.NoError(t, err)

	first[1] = "changed"
	assert.Equal(t, "x", a.Label(0, 1))
	require.Len(t, a.Spans(1), 2)
}
