package importrun

import (
	"errors"
	"fmt"
)

var (
	ErrRunNotFound       = errors.New("import run not found")
	ErrInvalidTransition = errors.New("invalid import run transition")
	ErrNotRetryable      = errors.New("import run is not failed or partial")
)

func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
