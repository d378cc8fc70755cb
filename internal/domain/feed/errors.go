package feed

import (
	"errors"
	"fmt"
)

const (
	KindFetch  = "fetch_error"
	KindParse  = "parse_error"
	KindImport = "import_error"
)

// FetchError covers network failures, timeouts and non-2xx responses.
type FetchError struct {
	Locator    string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Locator, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError covers a feed body that is not well-formed XML.
type ParseError struct {
	Locator string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Locator, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func ErrorKind(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return KindFetch
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return KindParse
	}
	return KindImport
}
