package view

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is matched by every *IndexOutOfRangeError.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDuplicatePosition is matched by every *DuplicatePositionError.
	ErrDuplicatePosition = errors.New("duplicate position")
	// ErrUnknownDirection is returned by ParseDirection.
	ErrUnknownDirection = errors.New("unknown sort direction")
)

// IndexOutOfRangeError reports a column or level reference outside its axis.
type IndexOutOfRangeError struct {
	Axis     string
	Position int
	Len      int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [0, %d)", e.Axis, e.Position, e.Len)
}

func (e *IndexOutOfRangeError) Unwrap() error { return ErrIndexOutOfRange }

// DuplicatePositionError reports a column listed twice in a projection.
type DuplicatePositionError struct {
	Position int
}

func (e *DuplicatePositionError) Error() string {
	return fmt.Sprintf("column %d selected more than once", e.Position)
}

func (e *DuplicatePositionError) Unwrap() error { return ErrDuplicatePosition }
