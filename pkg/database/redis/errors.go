package redis

import "errors"

var (
	ErrNilConfig     = errors.New("redis: nil config")
	ErrInvalidConfig = errors.New("redis: invalid config")

	// ErrNil 键或字段不存在
	ErrNil = errors.New("redis: nil")

	ErrLockFailed  = errors.New("redis: lock held by another owner")
	ErrLockNotHeld = errors.New("redis: lock not held")
)
