package view

import (
	"fmt"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	DirAsc  Direction = "asc"
	DirDesc Direction = "desc"
	DirNone Direction = "none"
)

// ParseDirection accepts "asc", "desc" and "none" in any case. An empty
// string means ascending.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirAsc, "":
		return DirAsc, nil
	case DirDesc:
		return DirDesc, nil
	case DirNone:
		return DirNone, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownDirection, s)
}
