package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/google/uuid"
)

type memoryBatch struct {
	summary ImportSummary
	rows    []*record.Record
}

// Memory is an in-process Store. Rows are cloned on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	batches []memoryBatch // Oldest first
	now     func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.ImportID == uuid.Nil {
		return fmt.Errorf("save import: missing import id")
	}

	rows := make([]*record.Record, len(b.Rows))
	for i, r := range b.Rows {
		rows[i] = r.Clone()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.batches {
		if existing.summary.ID == b.ImportID.String() {
			return fmt.Errorf("save import: duplicate import id %s", b.ImportID)
		}
	}
	m.batches = append(m.batches, memoryBatch{
		summary: ImportSummary{
			ID:        b.ImportID.String(),
			Entity:    b.Entity,
			FileName:  b.FileName,
			Rows:      len(rows),
			CreatedAt: m.now().UTC(),
		},
		rows: rows,
	})
	return nil
}

// List implements Store.
func (m *Memory) List(ctx context.Context, entity string) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*record.Record{}
	for _, b := range m.batches {
		if b.summary.Entity != entity {
			continue
		}
		for _, r := range b.rows {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Imports implements Store.
func (m *Memory) Imports(ctx context.Context, entity string) ([]ImportSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []ImportSummary{}
	for i := len(m.batches) - 1; i >= 0; i-- {
		if m.batches[i].summary.Entity == entity {
			out = append(out, m.batches[i].summary)
		}
	}
	return out, nil
}

// Rollback implements Store.
func (m *Memory) Rollback(ctx context.Context, importID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, b := range m.batches {
		if b.summary.ID == importID.String() {
			m.batches = append(m.batches[:i], m.batches[i+1:]...)
			return len(b.rows), nil
		}
	}
	return 0, ErrImportNotFound
}
