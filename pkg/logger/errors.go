package logger

import "errors"

var (
	ErrInvalidOutputPath = errors.New("logger: file output enabled without file.path")
	ErrNoOutputEnabled   = errors.New("logger: neither console nor file output is enabled")
)
