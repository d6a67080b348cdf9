// Package store implements the relational persistence layer: finalized
// submissions, the question catalog, site settings, and analytics queries.
package store

import (
	"errors"

	"gorm.io/gorm"
)

// Sentinel errors surfaced to HTTP handlers for status mapping.
var (
	// ErrDuplicateEmail means a citizen with the same email already committed.
	ErrDuplicateEmail = errors.New("store: a submission with this email already exists")
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")
)

// Store wraps a GORM connection with town hall query methods.
type Store struct {
	db *gorm.DB
}

// New creates a Store on an open connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for migration and test setup.
func (s *Store) DB() *gorm.DB {
	return s.db
}
