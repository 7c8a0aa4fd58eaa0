package service

import (
	"errors"
	"fmt"
)

// ErrBarcodeExhausted barcode generation retry bound exceeded. Fatal
// for the whole generation transaction.
var ErrBarcodeExhausted = errors.New("barcode generation exhausted retry bound")

// ValidationError malformed input with field-level detail. Never
// retried automatically.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError the referenced entity does not exist, or belongs to
// another tenant. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func notFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidStateError operation attempted in the wrong lifecycle state.
type InvalidStateError struct {
	Entity    string
	Current   string
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s in state %s does not allow %s", e.Entity, e.Current, e.Attempted)
}

// RowError one failed CSV row. Line is the 1-based physical line
// number in the file (header = line 1).
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("Line %d: %s", e.Line, e.Message)
}

// BatchError CSV import failure. The whole batch was rolled back;
// every failing row is listed so the caller can fix and resubmit.
type BatchError struct {
	Rows []RowError
}

func (e *BatchError) Error() string {
	if len(e.Rows) == 1 {
		return e.Rows[0].Error()
	}
	return fmt.Sprintf("%d rows failed, batch rolled back", len(e.Rows))
}
