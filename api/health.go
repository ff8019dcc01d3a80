package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrymomot/saasbilling/pkg/logger"
)

const healthTimeout = 3 * time.Second

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.check(ctx); err != nil {
			s.log.ErrorContext(ctx, "health check failed", logger.Component(c.name), logger.Error(err))
			checks[c.name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.name] = "up"
	}
	writeJSON(w, status, Envelope{Data: checks})
}
