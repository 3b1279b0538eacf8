package conversation

import "errors"

var (
	ErrEmptyText = errors.New("text cannot be empty")
)
