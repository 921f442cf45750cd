package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReference is returned when a write points at a missing parent row.
	ErrReference = errors.New("referenced record missing")
)

// mapError converts gorm errors into repository errors, keeping the cause.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &opError{op: op, kind: ErrNotFound, err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &opError{op: op, kind: ErrDuplicate, err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &opError{op: op, kind: ErrReference, err: err}
	default:
		return &opError{op: op, err: err}
	}
}

type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *opError) Unwrap() []error {
	if e.kind == nil {
		return []error{e.err}
	}
	return []error{e.kind, e.err}
}
