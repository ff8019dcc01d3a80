package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrymomot/saasbilling/pkg/logger"
	"github.com/dmitrymomot/saasbilling/svc/reconcile"
)

const signatureHeader = "Stripe-Signature"

// stripeWebhook answers outside the envelope: the processor only looks at the
// status code, and rejected deliveries get a generic body.
func (s *Server) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxWebhookBytes))
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	_, err = s.svc.Webhooks.Handle(r.Context(), payload, r.Header.Get(signatureHeader))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, reconcile.ErrInvalidSignature), errors.Is(err, reconcile.ErrMalformedEvent):
		http.Error(w, "invalid webhook", http.StatusBadRequest)
	default:
		s.log.ErrorContext(r.Context(), "webhook processing failed", logger.Error(err))
		http.Error(w, "processing failed", http.StatusInternalServerError)
	}
}
