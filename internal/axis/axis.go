// Package axis models one dimension of a dataset (rows or columns) as an
// ordered sequence of label tuples with one or more hierarchy levels.
//
// Level 0 is the outermost (least specific) level and level NLevels()-1 is
// the leaf. For every level the axis precomputes spans: maximal runs of
// consecutive positions sharing the same label prefix. A span at level L never
// crosses a span boundary of any level < L, so sub-group spans are always
// contained in their parent group span. Renderers use spans to merge
// repeated labels into a single cell.
//
// An Axis is immutable once constructed. Build a new one (see [Axis.Select])
// whenever the underlying row or column set changes.
package axis

import (
	"fmt"
	"slices"
	"sort"
)

// LabelTuple is an ordered sequence of labels, one per hierarchy level.
type LabelTuple []any

// At returns the label at level, or nil when the tuple is shorter.
func (t LabelTuple) At(level int) any {
	if level < 0 || level >= len(t) {
		return nil
	}
	return t[level]
}

// Leaf returns the innermost label.
func (t LabelTuple) Leaf() any {
	if len(t) == 0 {
		return nil
	}
	return t[len(t)-1]
}

// Attrs holds per-position metadata consumed by renderers and formatters.
type Attrs struct {
	DType         string         // type tag, "" when unknown
	Groups        []int          // GroupID of the containing span at levels 0..NLevels-2
	FormatOptions map[string]any // per-position override for the formatter, nil if none
}

// Span is a run of consecutive positions sharing the same label prefix.
type Span struct {
	Value   LabelTuple // label prefix [0..level]
	Start   int
	Count   int
	GroupID int // ordinal among siblings under the same parent span
}

// End returns the exclusive end position.
func (s Span) End() int { return s.Start + s.Count }

// Label returns the label at the span's own level.
func (s Span) Label() any { return s.Value.Leaf() }

// Axis is an immutable, possibly multi-level, label sequence.
type Axis struct {
	values  []LabelTuple
	nlevels int
	attrs   []Attrs
	spans   [][]Span
	edges   []int
	isEdge  map[int]bool
}

// Option customizes per-position attributes during construction.
type Option func(*Axis)

// WithDTypes assigns a type tag to each position. Missing entries stay empty.
func WithDTypes(dtypes []string) Option {
	return func(a *Axis) {
		for i := range a.attrs {
			if i < len(dtypes) {
				a.attrs[i].DType = dtypes[i]
			}
		}
	}
}

// WithFormatOptions assigns a formatter override to each position.
func WithFormatOptions(opts []map[string]any) Option {
	return func(a *Axis) {
		for i := range a.attrs {
			if i < len(opts) {
				a.attrs[i].FormatOptions = opts[i]
			}
		}
	}
}

// withAttrs copies complete attrs, used by Select.
func withAttrs(attrs []Attrs) Option {
	return func(a *Axis) {
		for i := range a.attrs {
			if i < len(attrs) {
				a.attrs[i].DType = attrs[i].DType
				a.attrs[i].FormatOptions = attrs[i].FormatOptions
			}
		}
	}
}

// New builds an Axis from label tuples. All tuples must have the same number
// of levels; otherwise a *ShapeError is returned. An empty input yields an
// axis of length 0 with a single level and no spans.
func New(values []LabelTuple, opts ...Option) (*Axis, error) {
	nlevels := 1
	if len(values) > 0 {
		nlevels = len(values[0])
		for i, v := range values {
			if len(v) != nlevels {
				return nil, &ShapeError{Position: i, Got: len(v), Want: nlevels}
			}
		}
		if nlevels == 0 {
			return nil, &ShapeError{Position: 0, Got: 0, Want: 1}
		}
	}

	a := &Axis{
		values:  values,
		nlevels: nlevels,
		attrs:   make([]Attrs, len(values)),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.computeSpans()
	a.computeEdges()
	return a, nil
}

// FromRaw builds an Axis from decoded labels. A []any or LabelTuple element
// is copied as a tuple; any other element is a single-level label.
func FromRaw(raw []any, opts ...Option) (*Axis, error) {
	values := make([]LabelTuple, len(raw))
	for i, v := range raw {
		switch t := v.(type) {
		case LabelTuple:
			values[i] = slices.Clone(t)
		case []any:
			values[i] = LabelTuple(slices.Clone(t))
		case []string:
			tuple := make(LabelTuple, len(t))
			for j, s := range t {
				tuple[j] = s
			}
			values[i] = tuple
		default:
			values[i] = LabelTuple{v}
		}
	}
	return New(values, opts...)
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(values []LabelTuple, opts ...Option) *Axis {
	a, err := New(values, opts...)
	if err != nil {
		panic(fmt.Sprintf("axis: %v", err))
	}
	return a
}

// Len returns the number of positions.
func (a *Axis) Len() int {
	if a == nil {
		return 0
	}
	return len(a.values)
}

// NLevels returns the number of hierarchy levels (at least 1).
func (a *Axis) NLevels() int {
	if a == nil {
		return 1
	}
	return a.nlevels
}

// IsMultiLevel reports whether the axis has more than one level.
func (a *Axis) IsMultiLevel() bool { return a.NLevels() > 1 }

// Values returns the label tuples. The slice must not be modified.
func (a *Axis) Values() []LabelTuple {
	if a == nil {
		return nil
	}
	return a.values
}

// Value returns the tuple at pos, or nil when out of range.
func (a *Axis) Value(pos int) LabelTuple {
	if pos < 0 || pos >= a.Len() {
		return nil
	}
	return a.values[pos]
}

// Label returns the label at pos and level, or nil when out of range.
func (a *Axis) Label(pos, level int) any {
	return a.Value(pos).At(level)
}

// Attrs returns the attributes of pos. Out-of-range positions yield zero Attrs.
func (a *Axis) Attrs(pos int) Attrs {
	if pos < 0 || pos >= a.Len() {
		return Attrs{}
	}
	return a.attrs[pos]
}

// Spans returns the spans of level. Negative levels count from the leaf.
// Out-of-range levels yield nil.
func (a *Axis) Spans(level int) []Span {
	if a == nil {
		return nil
	}
	if level < 0 {
		level += a.nlevels
	}
	if level < 0 || level >= len(a.spans) {
		return nil
	}
	return a.spans[level]
}

// SpanAt returns the span of level covering pos.
func (a *Axis) SpanAt(level, pos int) (Span, bool) {
	spans := a.Spans(level)
	i := sort.Search(len(spans), func(i int) bool { return spans[i].End() > pos })
	if i == len(spans) || spans[i].Start > pos {
		return Span{}, false
	}
	return spans[i], true
}

// Edges returns the positions where a level-0 group begins.
func (a *Axis) Edges() []int {
	if a == nil {
		return nil
	}
	return a.edges
}

// IsEdge reports whether pos begins a top-level group other than the first.
func (a *Axis) IsEdge(pos int) bool {
	if a == nil || pos <= 0 {
		return false
	}
	return a.isEdge[pos]
}

// Select returns a new Axis over the given positions, in the given order.
// Attributes travel with their positions; spans are recomputed, so groups
// shrink or disappear when members are left out. Out-of-range positions
// are skipped.
func (a *Axis) Select(positions []int) *Axis {
	values := make([]LabelTuple, 0, len(positions))
	attrs := make([]Attrs, 0, len(positions))
	for _, p := range positions {
		if p < 0 || p >= a.Len() {
			continue
		}
		values = append(values, a.values[p])
		attrs = append(attrs, a.attrs[p])
	}
	// tuples of one axis are uniform, so New cannot fail here
	sel, err := New(values, withAttrs(attrs))
	if err != nil {
		return &Axis{nlevels: a.NLevels(), spans: make([][]Span, a.NLevels())}
	}
	if len(values) == 0 {
		sel.nlevels = a.NLevels()
		sel.spans = make([][]Span, sel.nlevels)
	}
	return sel
}

func (a *Axis) computeEdges() {
	a.isEdge = make(map[int]bool)
	for _, s := range a.Spans(0) {
		a.edges = append(a.edges, s.Start)
		a.isEdge[s.Start] = true
	}
}
