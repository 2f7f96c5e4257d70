// Package errs holds the error kinds shared by the scheduler, the
// collection and its storage backends. Callers test kinds with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrInterrupted  = errors.New("interrupted")
	ErrDB           = errors.New("database error")
	ErrConflict     = errors.New("conflict")
	ErrUndoEmpty    = errors.New("nothing to undo")
)

func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func NotFound(what string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// DB wraps a storage driver error. Errors that already carry a kind are
// returned unchanged.
func DB(err error) error {
	if err == nil || Kind(err) != "" {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDB, err)
}

// Kind returns a machine-readable name for the error's kind, or the empty
// string for errors that carry none.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUndoEmpty):
		return "undo_empty"
	case errors.Is(err, ErrDB):
		return "db_error"
	}
	return ""
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
