package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead allows for form boundaries and headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

type importFunc func(ctx context.Context, entity, fileName string, r io.Reader) (*core.ImportResult, error)

// handleImport parses an uploaded file and stores the accepted rows.
// The body is multipart with the file in the "file" part.
//
// Responds 200 when any row was accepted and 422 when nothing was.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, s.service.Import)
}

// handlePreview is handleImport without storing.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, s.service.Preview)
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, run importFunc) {
	entity := chi.URLParam(r, "entity")
	if _, err := s.service.Schema(entity); err != nil {
		s.respondError(w, r, err)
		return
	}

	file, header, err := s.formFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	ctx := withRequestMetadata(r.Context(), r)
	res, err := run(ctx, entity, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(res.Rows) == 0 && len(res.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSONStatus(w, r, status, res)
}

func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	maxSize := s.cfg.Import.MaxFileSize
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, fmt.Errorf("%w: file too large (limit %d bytes)", errBadRequest, maxSize)
		}
		return nil, nil, fmt.Errorf("%w: no file provided: %v", errBadRequest, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: no file provided", errBadRequest)
	}
	return file, header, nil
}
