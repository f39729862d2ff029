package web

import (
	"net/http"

	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/go-chi/chi/v5"
)

// handleQuery serves one page of stored records.
//
//	GET /api/entities/{entity}/records?q=acme&fields=name,email&sort=amount&dir=desc&page=2&pageSize=50
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	params := core.QueryParams{
		Search:   r.URL.Query().Get("q"),
		Fields:   parseListParam(r, "fields"),
		SortKey:  r.URL.Query().Get("sort"),
		Desc:     r.URL.Query().Get("dir") == "desc",
		Page:     parseIntParam(r, "page", 1),
		PageSize: parseIntParam(r, "pageSize", core.DefaultPageSize),
	}

	res, err := s.service.Query(r.Context(), chi.URLParam(r, "entity"), params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, res)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	imports, err := s.service.Imports(r.Context(), chi.URLParam(r, "entity"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, imports)
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	importID := chi.URLParam(r, "importID")

	n, err := s.service.Rollback(r.Context(), entity, importID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, map[string]any{"importId": importID, "rowsDeleted": n})
}
