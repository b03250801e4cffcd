// Package format turns cell values into display text. Formatting is driven by
// the column type tag and optional per-column overrides; the formatter for a
// column is resolved once and then applied to every cell of that column.
package format

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/JonMunkholm/dataviewer/internal/axis"
	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/view"
)

// Defaults.
const (
	DefaultNARep          = "-"
	DefaultLocale         = "en-US"
	DefaultDateLayout     = time.DateOnly
	DefaultDatetimeLayout = time.DateTime
	defaultMaxFraction    = 3
)

// Override keys understood in per-column format options.
const (
	OptMinFractionDigits = "minimumFractionDigits"
	OptMaxFractionDigits = "maximumFractionDigits"
	OptUseGrouping       = "useGrouping"
	OptLayout            = "layout"
)

// CellFunc formats one cell of an already resolved column.
type CellFunc func(v any) string

type formatFunc func(f *Formatter, v any, opts map[string]any) string

var dispatch = map[dataset.DType]formatFunc{
	dataset.DTypeInt:      formatInt,
	dataset.DTypeFloat:    formatFloat,
	dataset.DTypeDate:     formatDate,
	dataset.DTypeDatetime: formatDatetime,
}

// Formatter renders values for one locale and NA representation.
type Formatter struct {
	naRep   string
	tag     language.Tag
	printer *message.Printer
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithNARep sets the text shown for nil and empty values.
func WithNARep(s string) Option {
	return func(f *Formatter) { f.naRep = s }
}

// WithLocale sets the BCP 47 locale used for numbers. Unknown tags fall back
// to the default locale.
func WithLocale(locale string) Option {
	return func(f *Formatter) {
		if tag, err := language.Parse(locale); err == nil {
			f.tag = tag
		}
	}
}

// New returns a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		naRep: DefaultNARep,
		tag:   language.MustParse(DefaultLocale),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.printer = message.NewPrinter(f.tag)
	return f
}

// NARep returns the NA representation.
func (f *Formatter) NARep() string { return f.naRep }

// Locale returns the locale tag.
func (f *Formatter) Locale() string { return f.tag.String() }

// ForColumn resolves the formatter of a column from its attributes.
func (f *Formatter) ForColumn(attrs axis.Attrs) CellFunc {
	fn, ok := dispatch[dataset.DType(attrs.DType)]
	if !ok {
		fn = formatOther
	}
	opts := attrs.FormatOptions
	return func(v any) string {
		if isNA(v) {
			return f.naRep
		}
		return fn(f, v, opts)
	}
}

// Format renders a single value. Prefer ForColumn when formatting many cells
// of the same column.
func (f *Formatter) Format(v any, attrs axis.Attrs) string {
	return f.ForColumn(attrs)(v)
}

// Label renders an axis label. Labels carry no type tag.
func (f *Formatter) Label(v any) string {
	if isNA(v) {
		return f.naRep
	}
	return formatOther(f, v, nil)
}

func isNA(v any) bool {
	if s, ok := v.(string); ok {
		return s == ""
	}
	return view.IsNull(v)
}

func formatInt(f *Formatter, v any, opts map[string]any) string {
	return formatNumber(f, v, opts, 0)
}

func formatFloat(f *Formatter, v any, opts map[string]any) string {
	return formatNumber(f, v, opts, defaultMaxFraction)
}

func formatNumber(f *Formatter, v any, opts map[string]any, maxFraction int) string {
	n, ok := view.Number(v)
	if !ok {
		return formatOther(f, v, opts)
	}

	var numOpts []number.Option
	minFraction := 0
	if d, ok := intOpt(opts, OptMinFractionDigits); ok {
		minFraction = d
	}
	if d, ok := intOpt(opts, OptMaxFractionDigits); ok {
		maxFraction = d
	}
	if maxFraction < minFraction {
		maxFraction = minFraction
	}
	numOpts = append(numOpts, number.MinFractionDigits(minFraction), number.MaxFractionDigits(maxFraction))
	if grouping, ok := opts[OptUseGrouping].(bool); ok && !grouping {
		numOpts = append(numOpts, number.NoSeparator())
	}
	return f.printer.Sprint(number.Decimal(n, numOpts...))
}

func formatDate(f *Formatter, v any, opts map[string]any) string {
	return formatTime(f, v, opts, DefaultDateLayout)
}

func formatDatetime(f *Formatter, v any, opts map[string]any) string {
	return formatTime(f, v, opts, DefaultDatetimeLayout)
}

func formatTime(f *Formatter, v any, opts map[string]any, layout string) string {
	if l, ok := opts[OptLayout].(string); ok && l != "" {
		layout = l
	}
	t, ok := ParseTime(v)
	if !ok {
		return formatOther(f, v, opts)
	}
	return t.Format(layout)
}

func formatOther(_ *Formatter, v any, _ map[string]any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// timeLayouts are tried in order when a date value arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseTime accepts a time.Time, an ISO 8601 string or Unix milliseconds.
func ParseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	if ms, ok := view.Number(v); ok {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}

func intOpt(opts map[string]any, key string) (int, bool) {
	raw, ok := opts[key]
	if !ok {
		return 0, false
	}
	n, ok := view.Number(raw)
	if !ok || n < 0 {
		return 0, false
	}
	return int(n), true
}
