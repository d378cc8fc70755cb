package job

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDraft = errors.New("invalid job draft")
	ErrJobNotFound  = errors.New("job record not found")
)

// ValidationError reports a draft missing required fields. It is a per-record failure.
type ValidationError struct {
	SourceID string
	Title    string
	Fields   []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "missing required job fields"
	}
	return "missing required job fields: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDraft
}

// StoreError reports a failed merge of one record. It is a per-record failure.
type StoreError struct {
	SourceID string
	Title    string
	Err      error
}

func NewStoreError(d Draft, err error) *StoreError {
	return &StoreError{SourceID: d.SourceID, Title: d.Title, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store job %q: %v", e.SourceID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
