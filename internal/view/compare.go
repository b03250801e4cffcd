package view

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// IsNull reports whether v counts as a missing value: nil or a float NaN.
func IsNull(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(n)
	case float32:
		return math.IsNaN(float64(n))
	}
	return false
}

const (
	rankNumber = iota
	rankString
	rankTime
	rankBool
	rankOther
)

// Compare orders two non-null values. Numbers compare numerically across Go
// kinds, strings lexicographically, times chronologically and false sorts
// before true. Values of different kinds order by kind, then by string form.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case rankNumber:
		fa, _ := Number(a)
		fb, _ := Number(b)
		return cmp.Compare(fa, fb)
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func rank(v any) int {
	if _, ok := Number(v); ok {
		return rankNumber
	}
	switch v.(type) {
	case string:
		return rankString
	case time.Time:
		return rankTime
	case bool:
		return rankBool
	}
	return rankOther
}

// Number converts any Go numeric kind or json.Number to float64.
func Number(v any) (float64, bool) {
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
