package web

// errors.go turns errors into JSON responses.
//
// Every error is mapped with core.MapError, logged with its technical text
// and request id, and returned to the client as {error, message, action,
// code}. The status code follows the error's kind.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/JonMunkholm/gridkit/internal/logging"
	"github.com/JonMunkholm/gridkit/internal/permission"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/JonMunkholm/gridkit/internal/store"
	"github.com/goccy/go-json"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user message with a matching status.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	if status >= 500 {
		logger.Error("request error", "path", r.URL.Path, "status", status, "error", err.Error(), "code", msg.Code)
	} else {
		logger.Warn("request error", "path", r.URL.Path, "status", status, "error", err.Error(), "code", msg.Code)
	}

	writeErrorJSON(w, status, msg)
}

// respondMessage maps a plain message, for failures with no error value.
func respondMessage(w http.ResponseWriter, r *http.Request, status int, text string) {
	msg := core.MapMessage(text)
	logging.FromContext(r.Context()).Warn("request rejected", "path", r.URL.Path, "status", status, "reason", text, "code", msg.Code)
	writeErrorJSON(w, status, msg)
}

func writeErrorJSON(w http.ResponseWriter, status int, msg core.UserMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func statusFor(err error) int {
	var schemaErr *schema.SchemaError
	switch {
	case errors.Is(err, core.ErrUnknownEntity), errors.Is(err, store.ErrImportNotFound):
		return http.StatusNotFound
	case errors.Is(err, permission.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.As(err, &schemaErr):
		return http.StatusBadRequest
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// errBadRequest marks malformed client input.
var errBadRequest = errors.New("bad request")

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	writeJSONStatus(w, r, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
