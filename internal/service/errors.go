package service

import "errors"

// Error kinds returned by the services. Match them with errors.Is.
var (
	ErrDuplicateUserName     = errors.New("user name already taken")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid user name or password")
	ErrDuplicateCategoryName = errors.New("category name already exists")
	ErrNotFound              = errors.New("not found")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidInput          = errors.New("invalid input")
)

// Error is a domain failure with a human readable message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}
