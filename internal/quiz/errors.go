package quiz

import "errors"

var (
	ErrQuizNotActive   = errors.New("no image quiz is active")
	ErrMissingImage    = errors.New("image reference cannot be empty")
	ErrNoTargetObjects = errors.New("quiz needs at least one target object")
)
