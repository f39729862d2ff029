package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func rows(names ...string) []*record.Record {
	out := make([]*record.Record, len(names))
	for i, n := range names {
		out[i] = record.New[string]().Set("name", n).Set("n", i)
	}
	return out
}

func names(t *testing.T, recs []*record.Record) []string {
	t.Helper()
	out := []string{}
	for _, r := range recs {
		out = append(out, record.String(r.Value("name")))
	}
	return out
}

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store, entity string) {
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	if err := s.Save(ctx, Batch{ImportID: first, Entity: entity, FileName: "a.csv", Rows: rows("Ann", "Ben")}); err != nil {
		t.Fatalf("Save(first): %v", err)
	}
	if err := s.Save(ctx, Batch{ImportID: second, Entity: entity, FileName: "b.csv", Rows: rows("Cal")}); err != nil {
		t.Fatalf("Save(second): %v", err)
	}

	got, err := s.List(ctx, entity)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"Ann", "Ben", "Cal"}, names(t, got)); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "n"}, got[0].Keys()); diff != "" {
		t.Errorf("key order lost (-want +got):\n%s", diff)
	}

	imports, err := s.Imports(ctx, entity)
	if err != nil {
		t.Fatalf("Imports: %v", err)
	}
	if len(imports) != 2 || imports[0].ID != second.String() || imports[0].Rows != 1 || imports[1].FileName != "a.csv" {
		t.Errorf("Imports = %+v, want newest first", imports)
	}

	n, err := s.Rollback(ctx, first)
	if err != nil || n != 2 {
		t.Fatalf("Rollback = %d, %v, want 2, nil", n, err)
	}
	got, _ = s.List(ctx, entity)
	if diff := cmp.Diff([]string{"Cal"}, names(t, got)); diff != "" {
		t.Errorf("List after rollback mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Rollback(ctx, first); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("second Rollback error = %v, want ErrImportNotFound", err)
	}

	other, err := s.List(ctx, entity+"_other")
	if err != nil || len(other) != 0 {
		t.Errorf("List(other) = %v, %v, want empty", other, err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory(), "contacts")
}

func TestMemory_ClonesRows(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	in := rows("Ann")
	if err := m.Save(ctx, Batch{ImportID: uuid.New(), Entity: "e", Rows: in}); err != nil {
		t.Fatal(err)
	}
	in[0].Set("name", "changed")

	out, _ := m.List(ctx, "e")
	if out[0].Value("name") != "Ann" {
		t.Error("stored row shares memory with caller")
	}
	out[0].Set("name", "changed again")
	again, _ := m.List(ctx, "e")
	if again[0].Value("name") != "Ann" {
		t.Error("listed row shares memory with store")
	}
}

func TestMemory_RejectsBadBatches(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Save(ctx, Batch{Entity: "e"}); err == nil {
		t.Error("Save without import id: error = nil")
	}

	id := uuid.New()
	if err := m.Save(ctx, Batch{ImportID: id, Entity: "e"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Save(ctx, Batch{ImportID: id, Entity: "e"}); err == nil {
		t.Error("Save with duplicate id: error = nil")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := m.Save(cancelled, Batch{ImportID: uuid.New(), Entity: "e"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Save(cancelled) = %v, want context.Canceled", err)
	}
}

// TestPostgres runs against a real database when GRIDKIT_TEST_DATABASE_URL is set.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("GRIDKIT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("GRIDKIT_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	pg := NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	exerciseStore(t, pg, "test_"+uuid.NewString()[:8])
}
