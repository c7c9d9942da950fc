package script

import "errors"

var (
	ErrInvalidScript      = errors.New("invalid script")
	ErrInvalidControlCode = errors.New("invalid control code")
	ErrInvalidDuration    = errors.New("invalid duration")
)
