package db

import "errors"

var (
	// ErrKeyNotFound indicates the requested key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed indicates the database has been closed.
	ErrStoreClosed = errors.New("store is closed")
)
