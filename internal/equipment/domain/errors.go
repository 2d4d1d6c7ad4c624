package equipment

import (
	"fmt"
	"strings"
)

// SchemaError reports required upload columns absent from the header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("the following columns are missing from the file: %s", strings.Join(e.Missing, ", "))
}

// ValidationError reports a row whose identifier, timestamp or value could
// not be normalized. Row is the 1-based data row number.
type ValidationError struct {
	Column string
	Row    int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: column %s %s", e.Row, e.Column, e.Reason)
}

// StorageError wraps a persistence failure during ingestion.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
