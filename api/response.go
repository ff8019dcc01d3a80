package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/saasbilling/pkg/apperr"
	"github.com/dmitrymomot/saasbilling/pkg/logger"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail carries a stable code clients can switch on. Only argument
// errors echo their cause in Message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any, meta map[string]any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, Envelope{Data: data, Meta: meta})
}

// writeError maps err through the error taxonomy. Internal errors are logged
// with their cause, everything else at debug.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	detail := &ErrorDetail{Code: apperr.KeyOf(err), Message: http.StatusText(status)}
	if kind == apperr.InvalidArgument {
		detail.Message = err.Error()
	}

	if kind == apperr.Internal {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method), slog.String("path", r.URL.Path), logger.Error(err))
		detail = &ErrorDetail{Code: "internal", Message: http.StatusText(status)}
	} else {
		log.DebugContext(r.Context(), "request rejected",
			slog.String("kind", string(kind)), logger.Error(err))
	}
	writeJSON(w, status, Envelope{Error: detail})
}
