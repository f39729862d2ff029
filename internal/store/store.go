// Package store persists accepted import rows.
//
// Two implementations share the Store interface: Memory for tests, the CLI
// and servers without a database, and Postgres for everything else. Each
// import is one Batch, saved atomically under its own id so it can be
// listed or rolled back as a unit.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/google/uuid"
)

// ErrImportNotFound is returned when rolling back an unknown import.
var ErrImportNotFound = errors.New("import not found")

// Batch is the accepted output of one import.
type Batch struct {
	ImportID uuid.UUID
	Entity   string
	FileName string
	Rows     []*record.Record
}

// ImportSummary describes one stored batch.
type ImportSummary struct {
	ID        string    `json:"id"`
	Entity    string    `json:"entity"`
	FileName  string    `json:"fileName"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store saves and reads imported records.
type Store interface {
	// Save stores every row of b or none of them.
	Save(ctx context.Context, b Batch) error
	// List returns an entity's records in import order, then row order.
	List(ctx context.Context, entity string) ([]*record.Record, error)
	// Imports lists an entity's batches, newest first.
	Imports(ctx context.Context, entity string) ([]ImportSummary, error)
	// Rollback removes one batch and returns how many rows it held.
	Rollback(ctx context.Context, importID uuid.UUID) (int, error)
}
