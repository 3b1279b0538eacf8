package database

import "errors"

var (
	ErrArchiveClosed = errors.New("archive database is closed")
	ErrNotArchived   = errors.New("session not found in archive")
)
