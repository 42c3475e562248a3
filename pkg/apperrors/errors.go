package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrUnsupportedEngine      = errors.New("unsupported database engine")
	ErrInvalidConfig          = errors.New("invalid connection config")
	ErrUnexpectedResult       = errors.New("unexpected result shape")
	ErrConflict               = errors.New("resource already exists")
	ErrCredentialsKeyMismatch = errors.New("connection config was encrypted with a different key")
)
