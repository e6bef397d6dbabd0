package model

import "github.com/pkg/errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrIntegrity  = errors.New("integrity error")
)

func NotFound(kind string, id int64) error {
	return errors.Wrapf(ErrNotFound, "%s %d", kind, id)
}

func Invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}
