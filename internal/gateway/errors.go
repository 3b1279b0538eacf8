package gateway

import "errors"

var (
	ErrEmptyCompletion = errors.New("no choices in completion response")
	ErrEmptyText       = errors.New("text cannot be empty")
)
