package services

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the services. Handlers map them to HTTP statuses
// with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = fmt.Errorf("%w: email already registered", ErrValidation)
	ErrMissingFile        = fmt.Errorf("%w: no file provided", ErrValidation)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("not found")
	ErrPayloadTooLarge    = errors.New("file exceeds the upload size limit")
	ErrStorage            = errors.New("storage failure")
)
