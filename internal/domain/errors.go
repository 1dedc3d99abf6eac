package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("source unavailable")
	ErrLockHeld     = errors.New("lock already held")
	ErrInvalidQuery = errors.New("invalid query")
)
