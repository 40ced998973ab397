package postgres

import "errors"

var (
	ErrNilConfig     = errors.New("postgres: nil config")
	ErrInvalidConfig = errors.New("postgres: invalid config")
)
