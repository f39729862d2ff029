package web

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/JonMunkholm/gridkit/internal/options"
	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"entities": len(s.service.Entities()),
		"imports":  s.service.LimiterStatus(),
	})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.Entities())
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	sch, err := s.service.Schema(chi.URLParam(r, "entity"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, sch)
}

// handlePermissions lists the actions the caller's role holds.
func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if _, err := s.service.Schema(entity); err != nil {
		s.respondError(w, r, err)
		return
	}
	role := core.RoleFromContext(r.Context())
	writeJSON(w, r, map[string]any{
		"entity":  entity,
		"role":    role,
		"actions": s.service.Allowed(entity, role),
	})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.service.Columns(chi.URLParam(r, "entity"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, cols)
}

func (s *Server) handleInputFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.service.InputFields(chi.URLParam(r, "entity"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, fields)
}

// formRequest carries the current form values and, for option refreshes,
// the field that just changed.
type formRequest struct {
	Values  *record.Record `json:"values"`
	Changed string         `json:"changed,omitempty"`
}

func decodeForm(w http.ResponseWriter, r *http.Request) (formRequest, error) {
	var req formRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
		}
	}
	if req.Values == nil {
		req.Values = record.New[string]()
	}
	return req, nil
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	req, err := decodeForm(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	vis, err := s.service.Visibility(chi.URLParam(r, "entity"), req.Values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, vis)
}

// handleOptions resolves every choice field of the entity for the posted
// form values. Each request gets its own option state.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	req, err := decodeForm(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	state := options.NewState()
	if err := s.service.Options(r.Context(), chi.URLParam(r, "entity"), req.Changed, req.Values, state); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, state.Snapshot())
}

// handleFieldOptions resolves one field; query parameters are the form values.
func (s *Server) handleFieldOptions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := record.New[string]()
	for _, k := range keys {
		values.Set(k, query.Get(k))
	}

	opts, err := s.service.FieldOptions(r.Context(), chi.URLParam(r, "entity"), chi.URLParam(r, "field"), values)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, opts)
}
