package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/gridkit/internal/importer"
	"github.com/go-chi/chi/v5"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// handleTemplate downloads the entity's bulk-upload template.
//
//	GET /api/entities/{entity}/template?format=xlsx&example=true
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	format, err := importer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var buf bytes.Buffer
	name, err := s.service.Template(chi.URLParam(r, "entity"), format, parseBoolParam(r, "example"), &buf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	contentType := contentTypeCSV
	if format == importer.FormatXLSX {
		contentType = contentTypeXLSX
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
