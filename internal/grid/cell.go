// Package grid converts a view into a flat, position-addressed grid
// description: header rows, windowed body rows and merged label cells.
//
// The builder is a pure function of the view it reads. Rendering to HTML or
// JSON is left to the caller.
package grid

// Role is what a cell represents.
type Role string

const (
	RoleHeaderGroup  Role = "headerGroup"
	RoleHeaderLeaf   Role = "headerLeaf"
	RoleHeaderFilter Role = "headerFilter"
	RoleIndexLabel   Role = "indexLabel"
	RoleDataCell     Role = "dataCell"
)

// Cell is one emitted grid cell.
type Cell struct {
	Role    Role   `json:"role"`
	RowSpan int    `json:"rowSpan"`
	ColSpan int    `json:"colSpan"`
	Level   int    `json:"level"`
	GroupID int    `json:"groupId"`
	Value   any    `json:"value"`
	Text    string `json:"text"`
	Attrs   Attrs  `json:"attrs"`
}

// Attrs carries position and formatting metadata for the renderer. Positions
// are -1 when they do not apply to the cell.
type Attrs struct {
	ViewRow       int            `json:"viewRow"`
	ViewCol       int            `json:"viewCol"`
	OriginalRow   int            `json:"originalRow"`
	OriginalCol   int            `json:"originalCol"`
	DType         string         `json:"dtype,omitempty"`
	FormatOptions map[string]any `json:"formatOptions,omitempty"`
	Groups        []int          `json:"groups,omitempty"`
	IndexEdge     bool           `json:"indexEdge,omitempty"`
	GroupEdge     bool           `json:"groupEdge,omitempty"`
	Leading       bool           `json:"leading,omitempty"`
	Sort          string         `json:"sort,omitempty"`
}

func noPosition() Attrs {
	return Attrs{ViewRow: -1, ViewCol: -1, OriginalRow: -1, OriginalCol: -1}
}

// Row is one emitted grid row.
type Row []Cell

// Width returns the number of grid columns the row occupies, counting
// column spans.
func (r Row) Width() int {
	w := 0
	for _, c := range r {
		w += max(c.ColSpan, 1)
	}
	return w
}
