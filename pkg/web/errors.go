package web

import "errors"

var (
	ErrServerNotStarted     = errors.New("web: server not started")
	ErrServerAlreadyStarted = errors.New("web: server already started")
)
