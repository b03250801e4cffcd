package dataset

import "fmt"

// SchemaError reports a payload whose value matrix or column metadata does not
// match the axis lengths.
type SchemaError struct {
	Row    int // offending row, meaningful only when Reason names a row
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s", e.Reason)
}
