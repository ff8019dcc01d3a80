package reconcile

import (
	"log/slog"
	"time"
)

type Option func(*Reconciler)

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithDeduper skips events the deduper has already seen.
func WithDeduper(d Deduper) Option {
	return func(r *Reconciler) {
		if d != nil {
			r.dedupe = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}
