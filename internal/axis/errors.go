package axis

import "fmt"

// ShapeError reports a label tuple whose level count differs from the rest
// of the axis.
type ShapeError struct {
	Position int
	Got      int
	Want     int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape error: label at position %d has %d levels, want %d", e.Position, e.Got, e.Want)
}
