package core

import "github.com/JonMunkholm/dataviewer/internal/view"

// Intent is a user action forwarded by the host to a session. Each intent
// names the event the browser raised.
type Intent interface {
	Name() string
}

// IndexFilter is the filter text typed under one index level.
type IndexFilter struct {
	Level int    `json:"level"`
	Value string `json:"value"`
}

// ColumnFilter is the filter text typed under one visible column. Col is a
// view-local position.
type ColumnFilter struct {
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// FiltersChanged replaces the active filters.
type FiltersChanged struct {
	IndexFilters  []IndexFilter  `json:"indexFilters"`
	ColumnFilters []ColumnFilter `json:"columnFilters"`
}

// ColumnSort sorts by a view-local column.
type ColumnSort struct {
	ColumnIndex int            `json:"columnIndex"`
	SortState   view.Direction `json:"sortState"`
}

// IndexSort sorts by one index level.
type IndexSort struct {
	Level     int            `json:"level"`
	SortState view.Direction `json:"sortState"`
}

// LoadMoreRows asks for the next body window.
type LoadMoreRows struct {
	CurrentRowCount int `json:"currentRowCount"`
	BufferSize      int `json:"bufferSize"`
}

// ColumnSelectionChanged sets the visible columns. Positions are original
// dataset columns in display order; an empty list shows every column.
type ColumnSelectionChanged struct {
	SelectedColumns []int `json:"selectedColumns"`
}

// ClearFilters drops every filter.
type ClearFilters struct{}

// ToggleFilterRow shows or hides the header filter row.
type ToggleFilterRow struct{}

func (FiltersChanged) Name() string         { return "filters-changed" }
func (ColumnSort) Name() string             { return "column-sort" }
func (IndexSort) Name() string              { return "index-sort" }
func (LoadMoreRows) Name() string           { return "load-more-rows" }
func (ColumnSelectionChanged) Name() string { return "column-selection-changed" }
func (ClearFilters) Name() string           { return "clear-filters" }
func (ToggleFilterRow) Name() string        { return "toggle-filter-row" }
