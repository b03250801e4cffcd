// Package filter parses per-column and per-level filter text into terms and
// compiles sets of clauses into view predicates.
//
// Grammar for one clause, terms separated by commas:
//
//	null     matches nil and NaN only
//	!null    matches everything else
//	empty    matches the empty string only
//	=X       exact match on X
//	X*       starts with X
//	*X       ends with X
//	*X*      contains X
//	X        contains X
//
// Keywords are case-insensitive and so is every text comparison. Unknown syntax
// falls back to contains, so filter text is never rejected.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/dataviewer/internal/view"
)

// Kind is the match operation of a Term.
type Kind string

const (
	KindExact      Kind = "exact"
	KindStartsWith Kind = "startsWith"
	KindEndsWith   Kind = "endsWith"
	KindContains   Kind = "contains"
	KindIsNull     Kind = "isNull"
	KindIsNotNull  Kind = "isNotNull"
	KindIsEmpty    Kind = "isEmpty"
)

// Term is one comma-separated alternative of a clause.
type Term struct {
	Kind    Kind
	Pattern string // lower-cased; empty for the null and empty kinds
}

// ParseTerm classifies a single trimmed token.
func ParseTerm(token string) Term {
	lower := strings.ToLower(token)
	switch lower {
	case "null":
		return Term{Kind: KindIsNull}
	case "!null":
		return Term{Kind: KindIsNotNull}
	case "empty":
		return Term{Kind: KindIsEmpty}
	}

	switch {
	case strings.HasPrefix(lower, "="):
		return Term{Kind: KindExact, Pattern: lower[1:]}
	case len(lower) >= 2 && strings.HasPrefix(lower, "*") && strings.HasSuffix(lower, "*"):
		return Term{Kind: KindContains, Pattern: lower[1 : len(lower)-1]}
	case strings.HasPrefix(lower, "*"):
		return Term{Kind: KindEndsWith, Pattern: lower[1:]}
	case strings.HasSuffix(lower, "*"):
		return Term{Kind: KindStartsWith, Pattern: lower[:len(lower)-1]}
	}
	return Term{Kind: KindContains, Pattern: lower}
}

// Parse splits clause text on commas, trims each token and drops empty ones.
func Parse(text string) []Term {
	var terms []Term
	for _, tok := range strings.Split(text, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		terms = append(terms, ParseTerm(tok))
	}
	return terms
}

// Match reports whether value satisfies the term.
func (t Term) Match(value any) bool {
	switch t.Kind {
	case KindIsNull:
		return view.IsNull(value)
	case KindIsNotNull:
		return !view.IsNull(value)
	case KindIsEmpty:
		s, ok := value.(string)
		return ok && s == ""
	}
	if view.IsNull(value) {
		return false
	}
	return t.matchText(strings.ToLower(Stringify(value)))
}

func (t Term) matchText(s string) bool {
	switch t.Kind {
	case KindExact:
		return s == t.Pattern
	case KindStartsWith:
		return strings.HasPrefix(s, t.Pattern)
	case KindEndsWith:
		return strings.HasSuffix(s, t.Pattern)
	default:
		return strings.Contains(s, t.Pattern)
	}
}

// MatchAny reports whether value satisfies at least one term. An empty term
// list matches everything.
func MatchAny(terms []Term, value any) bool {
	if len(terms) == 0 {
		return true
	}
	// stringify once for all text terms
	var lowered string
	var haveText bool
	for _, t := range terms {
		switch t.Kind {
		case KindIsNull, KindIsNotNull, KindIsEmpty:
			if t.Match(value) {
				return true
			}
			continue
		}
		if view.IsNull(value) {
			continue
		}
		if !haveText {
			lowered = strings.ToLower(Stringify(value))
			haveText = true
		}
		if t.matchText(lowered) {
			return true
		}
	}
	return false
}

// Stringify renders a cell value for text matching.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// String renders the term back into filter text.
func (t Term) String() string {
	switch t.Kind {
	case KindIsNull:
		return "null"
	case KindIsNotNull:
		return "!null"
	case KindIsEmpty:
		return "empty"
	case KindExact:
		return "=" + t.Pattern
	case KindStartsWith:
		return t.Pattern + "*"
	case KindEndsWith:
		return "*" + t.Pattern
	}
	return t.Pattern
}
