package chat

import "errors"

var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized")
)
