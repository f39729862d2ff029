package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/JonMunkholm/gridkit/internal/importer"
	"github.com/JonMunkholm/gridkit/internal/logging"
	"github.com/JonMunkholm/gridkit/internal/metrics"
	"github.com/JonMunkholm/gridkit/internal/store"
	"github.com/google/uuid"
)

// ImportResult is the outcome of one import through the service.
type ImportResult struct {
	ImportID  string `json:"importId"`
	Entity    string `json:"entity"`
	FileName  string `json:"fileName"`
	Committed bool   `json:"committed"` // Accepted rows were stored
	importer.Result
}

// Import parses r against entity's schema and, when imports commit, stores
// the accepted rows as one batch. File and validation problems are reported
// in the result; the returned error covers unknown entities, a full limiter
// and storage failures.
func (s *Service) Import(ctx context.Context, entity, fileName string, r io.Reader) (*ImportResult, error) {
	return s.runImport(ctx, entity, fileName, r, s.cfg.Commit)
}

// Preview parses like Import but never stores anything.
func (s *Service) Preview(ctx context.Context, entity, fileName string, r io.Reader) (*ImportResult, error) {
	return s.runImport(ctx, entity, fileName, r, false)
}

func (s *Service) runImport(ctx context.Context, entity, fileName string, r io.Reader, commit bool) (*ImportResult, error) {
	sch, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyImports) {
			metrics.ImportsTotal.WithLabelValues(entity, metrics.StatusBusy).Inc()
		}
		return nil, err
	}
	defer s.limiter.Release()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	importID := uuid.New()
	ctx, logger := logging.WithContextFields(ctx,
		"import_id", importID.String(),
		"entity", entity,
		"file", fileName,
	)
	if ip := IPAddressFromContext(ctx); ip != "" {
		logger = logger.With("ip", ip)
	}
	logger.Info("import started", slog.Bool("commit", commit))
	start := time.Now()

	res := s.parser.ParseReader(ctx, r, fileName, sch)
	out := &ImportResult{
		ImportID: importID.String(),
		Entity:   entity,
		FileName: fileName,
		Result:   res,
	}

	if commit && len(res.Rows) > 0 {
		batch := store.Batch{ImportID: importID, Entity: entity, FileName: fileName, Rows: res.Rows}
		if err := s.store.Save(ctx, batch); err != nil {
			metrics.ObserveImport(entity, 0, res.Rejected, true, time.Since(start))
			logger.Error("import save failed", slog.Any("error", err))
			return nil, fmt.Errorf("save import %s: %w", importID, err)
		}
		out.Committed = true
	}

	elapsed := time.Since(start)
	failed := len(res.Rows) == 0 && len(res.Errors) > 0
	metrics.ObserveImport(entity, len(res.Rows), res.Rejected, failed, elapsed)

	attrs := []any{
		slog.Int("total_rows", res.TotalRows),
		slog.Int("accepted", len(res.Rows)),
		slog.Int("rejected", res.Rejected),
		slog.Int("errors", len(res.Errors)),
		slog.Duration("elapsed", elapsed),
	}
	if failed {
		logger.Warn("import rejected", attrs...)
	} else {
		logger.Info("import finished", attrs...)
	}
	return out, nil
}

// Template writes entity's upload template to w and returns the download
// file name.
func (s *Service) Template(entity string, format importer.Format, withExample bool, w io.Writer) (string, error) {
	sch, err := s.registry.Get(entity)
	if err != nil {
		return "", err
	}
	if err := importer.WriteTemplate(w, sch, format, withExample); err != nil {
		return "", err
	}
	return importer.TemplateFileName(entity, format), nil
}

// Imports lists entity's stored imports, newest first.
func (s *Service) Imports(ctx context.Context, entity string) ([]store.ImportSummary, error) {
	if _, err := s.registry.Get(entity); err != nil {
		return nil, err
	}
	return s.store.Imports(ctx, entity)
}

// Rollback deletes one of entity's stored imports and returns how many rows
// it removed.
func (s *Service) Rollback(ctx context.Context, entity, importID string) (int, error) {
	id, err := uuid.Parse(importID)
	if err != nil {
		return 0, fmt.Errorf("invalid import id %q: %w", importID, store.ErrImportNotFound)
	}
	imports, err := s.Imports(ctx, entity)
	if err != nil {
		return 0, err
	}
	if !slices.ContainsFunc(imports, func(i store.ImportSummary) bool { return i.ID == id.String() }) {
		return 0, fmt.Errorf("rollback %s/%s: %w", entity, importID, store.ErrImportNotFound)
	}

	n, err := s.store.Rollback(ctx, id)
	if err != nil {
		return 0, err
	}
	logging.FromContext(ctx).Info("import rolled back",
		slog.String("entity", entity),
		slog.String("import_id", importID),
		slog.Int("rows", n),
	)
	return n, nil
}
