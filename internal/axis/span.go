package axis

import (
	"reflect"
	"time"
)

// computeSpans fills a.spans for every level and the per-position Groups.
//
// A span at level L starts at position p when the label at L differs from
// position p-1, or when any level < L starts a span at p.
func (a *Axis) computeSpans() {
	n := len(a.values)
	a.spans = make([][]Span, a.nlevels)
	if n == 0 {
		return
	}

	// boundary[p] is true when some already processed (shallower) level
	// starts a span at p.
	boundary := make([]bool, n)
	boundary[0] = true

	for level := 0; level < a.nlevels; level++ {
		var spans []Span
		sibling := 0
		for p := 0; p < n; p++ {
			parentBreak := boundary[p]
			if p > 0 && !parentBreak && LabelsEqual(a.values[p][level], a.values[p-1][level]) {
				spans[len(spans)-1].Count++
				continue
			}
			if parentBreak {
				sibling = 0
			}
			spans = append(spans, Span{
				Value:   a.values[p][: level+1 : level+1],
				Start:   p,
				Count:   1,
				GroupID: sibling,
			})
			sibling++
		}
		for _, s := range spans {
			boundary[s.Start] = true
		}
		a.spans[level] = spans
	}

	if a.nlevels > 1 {
		for p := range a.attrs {
			a.attrs[p].Groups = make([]int, a.nlevels-1)
		}
		for level := 0; level < a.nlevels-1; level++ {
			for _, s := range a.spans[level] {
				for p := s.Start; p < s.End(); p++ {
					a.attrs[p].Groups[level] = s.GroupID
				}
			}
		}
	}
}

// LabelsEqual compares two labels. Numbers of different Go kinds compare by
// value; non-comparable labels fall back to reflect.DeepEqual.
func LabelsEqual(x, y any) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	switch xv := x.(type) {
	case string:
		yv, ok := y.(string)
		return ok && xv == yv
	case bool:
		yv, ok := y.(bool)
		return ok && xv == yv
	case time.Time:
		yv, ok := y.(time.Time)
		return ok && xv.Equal(yv)
	}
	if xf, ok := toFloat(x); ok {
		yf, ok := toFloat(y)
		return ok && xf == yf
	}
	return reflect.DeepEqual(x, y)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
