package source

import (
	"testing"
	"time"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{"$1,234", 1234, true},
		{"(15)", -15, true},
		{"1.5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseInt(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseInt(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.5", 1.5, true},
		{"€2,000.25", 2000.25, true},
		{"(3.5)", -3.5, true},
		{"1e3", 1000, true},
		{"1.2.3", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFloat(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseFloat(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		hasTime bool
		ok      bool
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false, true},
		{"3/5/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false, true},
		{"2024-03-05 10:11:12", time.Date(2024, 3, 5, 10, 11, 12, 0, time.UTC), true, true},
		{"Jan 2, 2023", time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), false, true},
		{"not a date", time.Time{}, false, false},
	}
	for _, tt := range tests {
		got, hasTime, ok := ParseDate(tt.in)
		if ok != tt.ok || hasTime != tt.hasTime || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, %v, %v", tt.in, got, hasTime, ok)
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := map[string]string{
		`  x  `:    "x",
		`="00123"`: "00123",
		`=5`:       "5",
		`"quoted"`: "quoted",
	}
	for in, want := range tests {
		if got := CleanCell(in); got != want {
			t.Errorf("CleanCell(%q) = %q, want %q", in, got, want)
		}
	}
}
