package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/saasbilling/pkg/identity"
)

// Request is what a handler sees: the authenticated caller plus the decoded
// body. Path and query values are read from HTTP.
type Request[B any] struct {
	HTTP   *http.Request
	Caller identity.Caller
	Body   B
}

func (r Request[B]) Context() context.Context { return r.HTTP.Context() }

// Result is rendered inside the envelope.
type Result struct {
	Status int
	Data   any
	Meta   map[string]any
}

func ok(data any) Result      { return Result{Status: http.StatusOK, Data: data} }
func created(data any) Result { return Result{Status: http.StatusCreated, Data: data} }
func noContent() Result       { return Result{Status: http.StatusNoContent} }

// HandlerFunc is a typed endpoint. B is the JSON body type; use struct{} for
// endpoints without one.
type HandlerFunc[B any] func(req Request[B]) (Result, error)

// handle adapts h to net/http: it decodes the body when B carries fields,
// runs h and renders its result or error.
func handle[B any](s *Server, h HandlerFunc[B]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := Request[B]{HTTP: r, Caller: identity.FromContext(r.Context())}
		if hasBody[B]() {
			if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req.Body); err != nil {
				writeError(w, r, s.log, err)
				return
			}
		}
		res, err := h(req)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		if res.Status == 0 {
			res.Status = http.StatusOK
		}
		writeData(w, res.Status, res.Data, res.Meta)
	}
}

func hasBody[B any]() bool {
	var zero B
	_, empty := any(zero).(struct{})
	return !empty
}

// decodeJSON reads exactly one JSON value and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return ErrBodyTooLarge
		case errors.Is(err, io.EOF):
			return ErrInvalidBody.With(errors.New("empty body"))
		default:
			return ErrInvalidBody.With(err)
		}
	}
	if dec.More() {
		return ErrInvalidBody.With(errors.New("unexpected data after JSON value"))
	}
	return nil
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	s.log.DebugContext(r.Context(), "unauthenticated request", slog.String("path", r.URL.Path))
	writeError(w, r, s.log, err)
}
