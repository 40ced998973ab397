package config

import "errors"

var (
	ErrNilConfig        = errors.New("config: nil config")
	ErrValidationFailed = errors.New("config: validation failed")
	ErrWatcherClosed    = errors.New("config: watcher closed")
)
