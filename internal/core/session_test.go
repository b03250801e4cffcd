package core

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/grid"
	"github.com/JonMunkholm/dataviewer/internal/view"
)

func produceRaw() dataset.Raw {
	return dataset.Raw{
		Index:      []any{"r0", "r1", "r2", "r3", "r4", "r5"},
		IndexNames: []string{"id"},
		Columns: []any{
			[]any{"East", "units"},
			[]any{"East", "price"},
			[]any{"West", "fruit"},
		},
		Values: [][]any{
			{3, 2.5, "apple"},
			{1, nil, "banana"},
			{2, 1.0, "cherry"},
			{nil, 4.0, "apricot"},
			{5, 3.0, "blueberry"},
			{4, 0.5, "avocado"},
		},
		DTypes: []string{"int", "float", ""},
	}
}

func newTestSession(t *testing.T, bufferSize int) *Session {
	t.Helper()
	ds, err := dataset.FromRaw(produceRaw())
	if err != nil {
		t.Fatalf("FromRaw() error = %v", err)
	}
	return NewSession("produce", ds, SessionOptions{BufferSize: bufferSize, FilterRow: true})
}

func mustApply(t *testing.T, s *Session, in Intent) Result {
	t.Helper()
	res, err := s.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply(%s) error = %v", in.Name(), err)
	}
	return res
}

func assertRows(t *testing.T, s *Session, want []int) {
	t.Helper()
	got := s.view.RowPositions()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("row positions = %v, want %v", got, want)
	}
}

func TestSession_FilterFollowsColumnAcrossSelection(t *testing.T) {
	s := newTestSession(t, 30)

	mustApply(t, s, ColumnSelectionChanged{SelectedColumns: []int{2, 0}})

	// view column 0 is dataset column 2 ("fruit")
	mustApply(t, s, FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 0, Value: "a*"}}})
	assertRows(t, s, []int{0, 3, 5})

	clauses := s.Filters().ColumnClauses
	if len(clauses) != 1 || clauses[0].Position != 2 {
		t.Fatalf("column clauses = %+v, want one clause on column 2", clauses)
	}

	// restoring every column keeps the filter on "fruit"
	res := mustApply(t, s, ColumnSelectionChanged{})
	if !res.Header || !res.Body {
		t.Errorf("column selection result = %+v, want header and body redraw", res)
	}
	assertRows(t, s, []int{0, 3, 5})

	header := s.Header()
	filterRow := header[len(header)-1]
	var texts []string
	for _, c := range filterRow {
		if c.Role == grid.RoleHeaderFilter && c.Text != "" {
			texts = append(texts, c.Text)
		}
	}
	if !reflect.DeepEqual(texts, []string{"a*"}) {
		t.Errorf("filter row texts = %v, want [a*]", texts)
	}

	// now "fruit" is view column 2
	mustApply(t, s, FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 2, Value: "b*"}}})
	assertRows(t, s, []int{1, 4})
}

func TestSession_HiddenColumnFilterSurvives(t *testing.T) {
	s := newTestSession(t, 30)

	mustApply(t, s, FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 2, Value: "a*"}}})
	mustApply(t, s, ColumnSelectionChanged{SelectedColumns: []int{0, 1}})

	// the browser only reports filters for visible columns
	mustApply(t, s, FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 0, Value: "!null"}}})
	assertRows(t, s, []int{0, 5})

	mustApply(t, s, ClearFilters{})
	assertRows(t, s, []int{0, 1, 2, 3, 4, 5})
}

func TestSession_SortReappliedAfterFilter(t *testing.T) {
	s := newTestSession(t, 30)

	mustApply(t, s, ColumnSort{ColumnIndex: 0, SortState: view.DirDesc})
	assertRows(t, s, []int{4, 5, 0, 2, 1, 3})

	mustApply(t, s, FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 2, Value: "a*"}}})
	assertRows(t, s, []int{5, 0, 3})

	res := mustApply(t, s, ColumnSort{ColumnIndex: 0, SortState: view.DirNone})
	assertRows(t, s, []int{0, 3, 5})
	if res.Status.Sort != nil {
		t.Errorf("Status.Sort = %+v, want nil", res.Status.Sort)
	}
	if !res.Status.Filtered {
		t.Error("Status.Filtered = false after sort reset, want true")
	}
}

func TestSession_ColumnSortUsesViewPosition(t *testing.T) {
	s := newTestSession(t, 30)
	mustApply(t, s, ColumnSelectionChanged{SelectedColumns: []int{1}})

	res := mustApply(t, s, ColumnSort{ColumnIndex: 0, SortState: view.DirAsc})
	assertRows(t, s, []int{5, 2, 0, 4, 3, 1})

	want := &grid.SortMark{Position: 1, Direction: view.DirAsc}
	if !reflect.DeepEqual(res.Status.Sort, want) {
		t.Errorf("Status.Sort = %+v, want %+v", res.Status.Sort, want)
	}
}

func TestSession_IndexSort(t *testing.T) {
	s := newTestSession(t, 30)

	res := mustApply(t, s, IndexSort{Level: -1, SortState: view.DirDesc})
	assertRows(t, s, []int{5, 4, 3, 2, 1, 0})

	want := &grid.SortMark{OnIndex: true, Position: 0, Direction: view.DirDesc}
	if !reflect.DeepEqual(res.Status.Sort, want) {
		t.Errorf("Status.Sort = %+v, want %+v", res.Status.Sort, want)
	}

	mustApply(t, s, IndexSort{Level: 0, SortState: view.DirNone})
	assertRows(t, s, []int{0, 1, 2, 3, 4, 5})
}

func TestSession_RejectedIntentsChangeNothing(t *testing.T) {
	tests := []struct {
		name   string
		intent Intent
		want   error
	}{
		{"column sort out of range", ColumnSort{ColumnIndex: 7, SortState: view.DirAsc}, view.ErrIndexOutOfRange},
		{"index sort out of range", IndexSort{Level: 3, SortState: view.DirAsc}, view.ErrIndexOutOfRange},
		{"column filter out of range", FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 9, Value: "x"}}}, view.ErrIndexOutOfRange},
		{"index filter out of range", FiltersChanged{IndexFilters: []IndexFilter{{Level: 5, Value: "x"}}}, view.ErrIndexOutOfRange},
		{"duplicate column selection", ColumnSelectionChanged{SelectedColumns: []int{0, 0}}, view.ErrDuplicatePosition},
		{"unknown intent", bogusIntent{}, ErrUnknownIntent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, 30)
			_, err := s.Apply(context.Background(), tt.intent)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.want)
			}
			assertRows(t, s, []int{0, 1, 2, 3, 4, 5})
			if s.view.IsProjected() {
				t.Error("column projection changed")
			}
			if !s.Filters().Empty() {
				t.Error("filters changed")
			}
		})
	}
}

func TestSession_UnknownSortDirection(t *testing.T) {
	s := newTestSession(t, 30)
	if _, err := s.Apply(context.Background(), ColumnSort{ColumnIndex: 0, SortState: "sideways"}); err == nil {
		t.Fatal("Apply() expected error for unknown direction")
	}
	if s.Status().Sort != nil {
		t.Error("sort set despite error")
	}
}

func TestSession_LoadMoreRows(t *testing.T) {
	s := newTestSession(t, 4)

	first := s.FirstWindow()
	if len(first.Rows) != 4 || first.End != 4 || !first.HasMore {
		t.Fatalf("FirstWindow() = rows %d end %d more %v, want 4 4 true", len(first.Rows), first.End, first.HasMore)
	}

	tests := []struct {
		name      string
		in        LoadMoreRows
		wantStart int
		wantEnd   int
		wantMore  bool
	}{
		{"session buffer", LoadMoreRows{CurrentRowCount: 4}, 4, 6, false},
		{"explicit buffer", LoadMoreRows{CurrentRowCount: 1, BufferSize: 2}, 1, 3, true},
		{"exhausted", LoadMoreRows{CurrentRowCount: 6}, 6, 6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := mustApply(t, s, tt.in)
			if res.Start != tt.wantStart || res.End != tt.wantEnd || res.HasMore != tt.wantMore {
				t.Errorf("got start %d end %d more %v, want %d %d %v",
					res.Start, res.End, res.HasMore, tt.wantStart, tt.wantEnd, tt.wantMore)
			}
			if len(res.Rows) != tt.wantEnd-tt.wantStart {
				t.Errorf("got %d rows, want %d", len(res.Rows), tt.wantEnd-tt.wantStart)
			}
			if res.Body {
				t.Error("load more must append, not replace")
			}
		})
	}
}

func TestSession_LoadMoreMatchesSingleWindow(t *testing.T) {
	s := newTestSession(t, 2)
	mustApply(t, s, ColumnSort{ColumnIndex: 1, SortState: view.DirDesc})

	var paged []grid.Row
	count := 0
	for {
		res := mustApply(t, s, LoadMoreRows{CurrentRowCount: count})
		paged = append(paged, res.Rows...)
		count = res.End
		if !res.HasMore {
			break
		}
	}
	whole := s.Body(0, 6)
	if !reflect.DeepEqual(paged, whole) {
		t.Error("paged windows differ from a single window")
	}
}

func TestSession_ToggleFilterRow(t *testing.T) {
	s := newTestSession(t, 30)
	// group row, leaf row, index names, filters
	if got := len(s.Header()); got != 4 {
		t.Fatalf("header rows = %d, want 4", got)
	}

	res := mustApply(t, s, ToggleFilterRow{})
	if !res.Header || res.Body {
		t.Errorf("toggle result = %+v, want header only", res)
	}
	if res.Status.FilterRow {
		t.Error("Status.FilterRow = true after toggle")
	}
	if got := len(s.Header()); got != 3 {
		t.Errorf("header rows = %d, want 3", got)
	}
}

func TestSession_PatchValuesKeepsViewState(t *testing.T) {
	s := newTestSession(t, 30)
	ctx := context.Background()
	mustApply(t, s, ColumnSort{ColumnIndex: 0, SortState: view.DirDesc})
	mustApply(t, s, ColumnSelectionChanged{SelectedColumns: []int{2, 0}})

	patched := produceRaw()
	patched.Values[4] = []any{50, 3.0, "blueberry"}

	res, err := s.PatchValues(ctx, patched)
	if err != nil {
		t.Fatalf("PatchValues() error = %v", err)
	}
	if res.Header {
		t.Error("values-only patch should not redraw the header")
	}
	assertRows(t, s, []int{4, 5, 0, 2, 1, 3})
	if !s.view.IsProjected() {
		t.Error("projection lost on values-only patch")
	}
	if got := s.view.Cell(0, 1); got != 50 {
		t.Errorf("Cell(0, 1) = %v, want 50", got)
	}
}

func TestSession_PatchValuesRefilters(t *testing.T) {
	s := newTestSession(t, 30)
	mustApply(t, s, FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 2, Value: "a*"}}})
	assertRows(t, s, []int{0, 3, 5})

	patched := produceRaw()
	patched.Values[0] = []any{3, 2.5, "zucchini"}

	res, err := s.PatchValues(context.Background(), patched)
	if err != nil {
		t.Fatalf("PatchValues() error = %v", err)
	}
	if res.Header {
		t.Error("values-only patch should not redraw the header")
	}
	assertRows(t, s, []int{3, 5})
	if len(res.Rows) != 2 {
		t.Errorf("redraw rows = %d, want 2", len(res.Rows))
	}
	if !s.Status().Filtered {
		t.Error("filter dropped by values-only patch")
	}
}

func TestSession_PatchValuesResorts(t *testing.T) {
	s := newTestSession(t, 30)
	mustApply(t, s, ColumnSort{ColumnIndex: 0, SortState: view.DirAsc})
	assertRows(t, s, []int{1, 2, 0, 5, 4, 3})

	patched := produceRaw()
	patched.Values[1] = []any{9, nil, "banana"}

	if _, err := s.PatchValues(context.Background(), patched); err != nil {
		t.Fatalf("PatchValues() error = %v", err)
	}
	assertRows(t, s, []int{2, 0, 5, 4, 1, 3})
}

func TestSession_Window(t *testing.T) {
	tests := []struct {
		name       string
		filter     string
		start, end int
		wantStart  int
		wantEnd    int
		wantMore   bool
		wantRows   int
	}{
		{"default is one buffer", "", 0, -1, 0, 2, true, 6},
		{"clipped at the end", "", 4, -1, 4, 6, false, 6},
		{"explicit end", "", 1, 4, 1, 4, true, 6},
		{"end before start", "", 3, 1, 3, 3, true, 6},
		{"negative start", "", -2, 1, 0, 1, true, 6},
		{"filtered view", "a*", 0, 10, 0, 3, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, 2)
			if tt.filter != "" {
				mustApply(t, s, FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 2, Value: tt.filter}}})
			}
			w := s.Window(tt.start, tt.end)
			if w.Start != tt.wantStart || w.End != tt.wantEnd || w.HasMore != tt.wantMore {
				t.Errorf("Window(%d, %d) = [%d, %d) more=%v, want [%d, %d) more=%v",
					tt.start, tt.end, w.Start, w.End, w.HasMore, tt.wantStart, tt.wantEnd, tt.wantMore)
			}
			if len(w.Rows) != w.End-w.Start {
				t.Errorf("rows = %d, want %d", len(w.Rows), w.End-w.Start)
			}
			if w.Status.Rows != tt.wantRows {
				t.Errorf("Status.Rows = %d, want %d", w.Status.Rows, tt.wantRows)
			}
		})
	}
}

func TestSession_SetDataDropsStaleState(t *testing.T) {
	s := newTestSession(t, 30)
	ctx := context.Background()
	mustApply(t, s, FiltersChanged{ColumnFilters: []ColumnFilter{{Col: 2, Value: "a*"}}})
	mustApply(t, s, ColumnSort{ColumnIndex: 0, SortState: view.DirAsc})

	res, err := s.SetData(ctx, dataset.Raw{
		Index:   []any{"x", "y", "z"},
		Columns: []any{"units", "price"},
		Values:  [][]any{{2, 1.0}, {3, 2.0}, {1, 3.0}},
	})
	if err != nil {
		t.Fatalf("SetData() error = %v", err)
	}
	if !res.Header || !res.Body {
		t.Errorf("SetData result = %+v, want full redraw", res)
	}
	if res.Status.Filtered {
		t.Error("filter on a removed column survived SetData")
	}
	// the sort on column 0 still fits
	assertRows(t, s, []int{2, 0, 1})
}

func TestSession_SetDataInvalidKeepsState(t *testing.T) {
	s := newTestSession(t, 30)
	mustApply(t, s, ColumnSort{ColumnIndex: 0, SortState: view.DirAsc})

	_, err := s.SetData(context.Background(), dataset.Raw{
		Index:   []any{"x"},
		Columns: []any{"a", "b"},
		Values:  [][]any{{1}},
	})
	var schemaErr *dataset.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("SetData() error = %v, want *dataset.SchemaError", err)
	}
	if got := s.Status().TotalRows; got != 6 {
		t.Errorf("TotalRows = %d, want 6", got)
	}
	assertRows(t, s, []int{1, 2, 0, 5, 4, 3})
}

func TestSession_Record(t *testing.T) {
	s := newTestSession(t, 30)
	mustApply(t, s, IndexSort{Level: 0, SortState: view.DirDesc})

	rec, err := s.Record(0)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.OriginalRow != 5 {
		t.Errorf("OriginalRow = %d, want 5", rec.OriginalRow)
	}

	if _, err := s.Record(6); !errors.Is(err, view.ErrIndexOutOfRange) {
		t.Errorf("Record(6) error = %v, want ErrIndexOutOfRange", err)
	}
}

type bogusIntent struct{}

func (bogusIntent) Name() string { return "bogus" }
