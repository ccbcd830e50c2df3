package storage

import (
	"time"

	"github.com/google/uuid"
)

// BaseRepository carries the shared database handle and timestamp/ID
// conventions of the repositories.
type BaseRepository struct {
	db *DB
}

// NewBaseRepository creates a new base repository over the given connection.
func NewBaseRepository(db *DB) BaseRepository {
	return BaseRepository{db: db}
}

// DB returns the underlying database connection.
func (r *BaseRepository) DB() *DB {
	return r.db
}

// Now returns the current time in UTC for database timestamps.
func (r *BaseRepository) Now() time.Time {
	return time.Now().UTC()
}

// GenerateID creates a new UUID for use as a primary key.
func GenerateID() string {
	return uuid.NewString()
}
