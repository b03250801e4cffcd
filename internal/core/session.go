package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/filter"
	"github.com/JonMunkholm/dataviewer/internal/grid"
	"github.com/JonMunkholm/dataviewer/internal/logging"
	"github.com/JonMunkholm/dataviewer/internal/view"
)

// DefaultBufferSize is the number of body rows per window.
const DefaultBufferSize = 30

// Session is one open viewer: a private Dataset, the View over it and the
// interaction state needed to rebuild the grid. All methods serialize on the
// session mutex, so intents apply one at a time.
type Session struct {
	ID      uuid.UUID
	Dataset string
	Created time.Time

	mu         sync.Mutex
	ds         *dataset.Dataset
	view       *view.View
	filters    filter.Set
	sort       *grid.SortMark
	filterRow  bool
	bufferSize int
	formatter  grid.CellFormatter

	lastUsed atomic.Int64
}

// SessionOptions configures a new session.
type SessionOptions struct {
	BufferSize int
	FilterRow  bool
	Formatter  grid.CellFormatter
}

// NewSession wraps ds in a session with a fresh view.
func NewSession(name string, ds *dataset.Dataset, opts SessionOptions) *Session {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	now := time.Now()
	s := &Session{
		ID:         uuid.New(),
		Dataset:    name,
		Created:    now,
		ds:         ds,
		view:       view.New(ds),
		filterRow:  opts.FilterRow,
		bufferSize: opts.BufferSize,
		formatter:  opts.Formatter,
	}
	s.lastUsed.Store(now.UnixNano())
	return s
}

// Status summarizes what the view currently shows.
type Status struct {
	Rows         int            `json:"rows"`
	TotalRows    int            `json:"totalRows"`
	Columns      int            `json:"columns"`
	TotalColumns int            `json:"totalColumns"`
	IndexLevels  int            `json:"indexLevels"`
	Filtered     bool           `json:"filtered"`
	Sort         *grid.SortMark `json:"sort,omitempty"`
	FilterRow    bool           `json:"filterRow"`
	BufferSize   int            `json:"bufferSize"`
}

// Result tells the host which regions to redraw after an intent.
//
// When Body is set, Rows replace the whole body starting at row 0. Otherwise
// Rows, if any, are appended after the rows already shown.
type Result struct {
	Header  bool       `json:"header"`
	Body    bool       `json:"body"`
	Rows    []grid.Row `json:"rows,omitempty"`
	Start   int        `json:"start"`
	End     int        `json:"end"`
	HasMore bool       `json:"hasMore"`
	Status  Status     `json:"status"`
}

// LastUsed returns the time of the last access through the service.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// builder must be called with s.mu held.
func (s *Session) builder() *grid.Builder {
	return grid.NewBuilder(s.view,
		grid.WithFilterRow(s.filterRow),
		grid.WithFormatter(s.formatter),
		grid.WithFilters(s.filters),
		grid.WithSort(s.sort),
	)
}

// Header returns the header rows.
func (s *Session) Header() []grid.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder().BuildHeader()
}

// Body returns the body rows of the window [start, end).
func (s *Session) Body(start, end int) []grid.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder().BuildBody(start, end)
}

// BodyWindow is a body window together with the view totals it was cut from.
type BodyWindow struct {
	Start   int
	End     int
	HasMore bool
	Rows    []grid.Row
	Status  Status
}

// Window returns the rows of [start, end) and the session status, both read
// under one lock. A negative end means one buffer past start. end is clipped
// to the view and never falls below start.
func (s *Session) Window(start, end int) BodyWindow {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.status()
	start = max(start, 0)
	if end < 0 {
		end = start + st.BufferSize
	}
	end = max(min(end, st.Rows), start)

	rows := s.builder().BuildBody(start, end)
	if rows == nil {
		rows = []grid.Row{}
	}
	return BodyWindow{
		Start:   start,
		End:     end,
		HasMore: end < st.Rows,
		Rows:    rows,
		Status:  st,
	}
}

// FirstWindow returns the initial body window.
func (s *Session) FirstWindow() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redraw(true)
}

// Record returns the detail view of one view row.
func (s *Session) Record(viewRow int) (*grid.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder().BuildRecord(viewRow)
}

// ColumnTree returns the column chooser tree.
func (s *Session) ColumnTree() []grid.TreeNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder().ColumnTree()
}

// Filters returns the active filters. Column clauses use original positions.
func (s *Session) Filters() filter.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Set{
		IndexClauses:  append([]filter.Clause(nil), s.filters.IndexClauses...),
		ColumnClauses: append([]filter.Clause(nil), s.filters.ColumnClauses...),
	}
}

// Status returns the current view summary.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

func (s *Session) status() Status {
	st := Status{
		Rows:         s.view.Len(),
		TotalRows:    s.ds.NumRows(),
		Columns:      s.view.NumColumns(),
		TotalColumns: s.ds.NumColumns(),
		IndexLevels:  s.view.Index().NLevels(),
		Filtered:     !s.filters.Empty(),
		FilterRow:    s.filterRow,
		BufferSize:   s.bufferSize,
	}
	if s.sort != nil {
		mark := *s.sort
		st.Sort = &mark
	}
	return st
}

// Apply runs one intent against the session. An intent that references a
// column or level outside the view returns an error and changes nothing.
func (s *Session) Apply(ctx context.Context, in Intent) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := logging.WithFields(ctx, "intent", in.Name())
	logger.Debug("applying intent")

	var (
		res Result
		err error
	)
	switch in := in.(type) {
	case FiltersChanged:
		res, err = s.filtersChanged(ctx, in)
	case ColumnSort:
		res, err = s.columnSort(ctx, in)
	case IndexSort:
		res, err = s.indexSort(ctx, in)
	case LoadMoreRows:
		res = s.loadMore(in)
	case ColumnSelectionChanged:
		res, err = s.selectColumns(in)
	case ClearFilters:
		s.filters = filter.Set{}
		s.refresh(ctx)
		res = s.redraw(true)
	case ToggleFilterRow:
		s.filterRow = !s.filterRow
		res = Result{Header: true, Status: s.status()}
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownIntent, in.Name())
	}
	if err != nil {
		logger.Warn("intent rejected", "error", err)
		return Result{}, err
	}
	return res, nil
}

func (s *Session) filtersChanged(ctx context.Context, in FiltersChanged) (Result, error) {
	var next filter.Set
	for _, f := range in.IndexFilters {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		next.IndexClauses = append(next.IndexClauses, filter.Clause{
			Target:   filter.TargetIndexLevel,
			Position: f.Level,
			Text:     f.Value,
		})
	}

	positions := s.view.ColumnPositions()
	visible := make(map[int]bool, len(positions))
	for _, p := range positions {
		visible[p] = true
	}
	for _, f := range in.ColumnFilters {
		orig := filter.Translate(f.Col, positions)
		if orig < 0 {
			return Result{}, &view.IndexOutOfRangeError{Axis: "column", Position: f.Col, Len: len(positions)}
		}
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		next.ColumnClauses = append(next.ColumnClauses, filter.Clause{
			Target:   filter.TargetColumn,
			Position: orig,
			Text:     f.Value,
		})
	}
	// hidden columns cannot be edited, so their clauses stay in force
	for _, c := range s.filters.ColumnClauses {
		if !visible[c.Position] {
			next.ColumnClauses = append(next.ColumnClauses, c)
		}
	}

	if err := next.Validate(s.ds); err != nil {
		return Result{}, err
	}
	s.filters = next
	s.refresh(ctx)
	return s.redraw(false), nil
}

func (s *Session) columnSort(ctx context.Context, in ColumnSort) (Result, error) {
	dir, err := view.ParseDirection(string(in.SortState))
	if err != nil {
		return Result{}, err
	}
	if dir == view.DirNone {
		s.sort = nil
		s.refresh(ctx)
		return s.redraw(true), nil
	}

	orig := filter.Translate(in.ColumnIndex, s.view.ColumnPositions())
	if orig < 0 {
		return Result{}, &view.IndexOutOfRangeError{Axis: "column", Position: in.ColumnIndex, Len: s.view.NumColumns()}
	}
	if err := s.view.SortByColumn(orig, dir); err != nil {
		return Result{}, err
	}
	s.sort = &grid.SortMark{Position: orig, Direction: dir}
	return s.redraw(true), nil
}

func (s *Session) indexSort(ctx context.Context, in IndexSort) (Result, error) {
	dir, err := view.ParseDirection(string(in.SortState))
	if err != nil {
		return Result{}, err
	}
	if dir == view.DirNone {
		s.sort = nil
		s.refresh(ctx)
		return s.redraw(true), nil
	}

	if err := s.view.SortByIndexLevel(in.Level, dir); err != nil {
		return Result{}, err
	}
	level := in.Level
	if level < 0 {
		level += s.ds.Index().NLevels()
	}
	s.sort = &grid.SortMark{OnIndex: true, Position: level, Direction: dir}
	return s.redraw(true), nil
}

func (s *Session) loadMore(in LoadMoreRows) Result {
	buffer := in.BufferSize
	if buffer <= 0 {
		buffer = s.bufferSize
	}
	b := s.builder()
	start, end, ok := b.NextWindow(in.CurrentRowCount, buffer)
	res := Result{Start: start, End: start, Status: s.status()}
	if !ok {
		return res
	}
	res.Rows = b.BuildBody(start, end)
	res.End = end
	res.HasMore = end < s.view.Len()
	return res
}

func (s *Session) selectColumns(in ColumnSelectionChanged) (Result, error) {
	var cols []int
	if len(in.SelectedColumns) > 0 {
		cols = in.SelectedColumns
	}
	if err := s.view.FilterColumns(cols); err != nil {
		return Result{}, err
	}
	return s.redraw(true), nil
}

// SetData replaces the dataset. On error the session keeps its last valid
// data. Filters and the sort that no longer fit the new shape are dropped.
func (s *Session) SetData(ctx context.Context, raw dataset.Raw) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ds.SetData(raw); err != nil {
		return Result{}, err
	}
	s.refresh(ctx)
	return s.redraw(true), nil
}

// PatchValues updates cell values. A same-shape patch keeps the projection,
// the filters and the sort, re-applying the last two to the new values; any
// other shape is handled as SetData.
func (s *Session) PatchValues(ctx context.Context, raw dataset.Raw) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	change, err := s.ds.PatchValues(raw)
	if err != nil {
		return Result{}, err
	}
	if !change.ValuesOnly {
		s.refresh(ctx)
		return s.redraw(true), nil
	}
	// new values can move rows in or out of the filter and change sort keys
	if !s.filters.Empty() || s.sort != nil {
		s.refresh(ctx)
	}
	return s.redraw(false), nil
}

// refresh recomputes the row map from the dataset: filters first, then the
// active sort.
func (s *Session) refresh(ctx context.Context) {
	kept, dropped := s.filters.Prune(s.ds)
	if len(dropped) > 0 {
		logging.FromContext(ctx).Warn("dropping filters outside the dataset", "dropped", len(dropped))
		s.filters = kept
	}

	if kept.Empty() {
		s.view.Reset()
	} else {
		s.view.Filter(kept.Compile(s.ds))
	}

	if s.sort == nil {
		return
	}
	var err error
	if s.sort.OnIndex {
		err = s.view.SortByIndexLevel(s.sort.Position, s.sort.Direction)
	} else {
		err = s.view.SortByColumn(s.sort.Position, s.sort.Direction)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("dropping sort outside the dataset", "error", err)
		s.sort = nil
	}
}

// redraw returns the first body window. header marks the header as stale.
func (s *Session) redraw(header bool) Result {
	b := s.builder()
	end := min(s.bufferSize, s.view.Len())
	return Result{
		Header:  header,
		Body:    true,
		Rows:    b.BuildBody(0, end),
		End:     end,
		HasMore: end < s.view.Len(),
		Status:  s.status(),
	}
}
