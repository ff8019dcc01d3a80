package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/logger"
	"github.com/dmitrymomot/saasbilling/pkg/requestid"
	"github.com/dmitrymomot/saasbilling/svc/invite"
	"github.com/dmitrymomot/saasbilling/svc/member"
	"github.com/dmitrymomot/saasbilling/svc/payment"
	"github.com/dmitrymomot/saasbilling/svc/reconcile"
	"github.com/dmitrymomot/saasbilling/svc/subscription"
)

// Webhooks applies signed processor deliveries.
type Webhooks interface {
	Handle(ctx context.Context, payload []byte, signature string) (reconcile.Outcome, error)
}

// Services are the operations exposed over HTTP.
type Services struct {
	Subscriptions subscription.Service
	Payments      payment.Service
	Invites       invite.Service
	Members       member.Service
	Webhooks      Webhooks
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithHealthCheck adds a named dependency to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		if check != nil {
			s.checks = append(s.checks, namedCheck{name: name, check: check})
		}
	}
}

// WithMetrics serves the gatherer's metrics on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

type namedCheck struct {
	name  string
	check HealthCheck
}

// Server is the HTTP transport.
type Server struct {
	cfg      Config
	svc      Services
	verifier *identity.Verifier
	log      *slog.Logger
	checks   []namedCheck
	gatherer prometheus.Gatherer
	router   chi.Router
}

// NewServer panics when a service or the verifier is missing.
func NewServer(cfg Config, svc Services, verifier *identity.Verifier, opts ...Option) *Server {
	switch {
	case svc.Subscriptions == nil, svc.Payments == nil, svc.Invites == nil, svc.Members == nil, svc.Webhooks == nil:
		panic("api: every service is required")
	case verifier == nil:
		panic("api: identity verifier is required")
	}
	s := &Server{cfg: cfg.withDefaults(), svc: svc, verifier: verifier, log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Post("/webhooks/stripe", s.stripeWebhook)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Use(identity.Middleware(s.verifier, s.unauthorized))

		r.Put("/me", handle(s, s.saveProfile))

		r.Get("/invites", handle(s, s.listMyInvites))
		r.Post("/invites/{inviteID}/accept", handle(s, s.acceptInvite))
		r.Post("/invites/{inviteID}/reject", handle(s, s.rejectInvite))

		r.Post("/subscriptions", handle(s, s.createSubscription))
		r.Route("/subscriptions/{id}", func(r chi.Router) {
			r.Get("/", handle(s, s.getSubscription))
			r.Patch("/settings", handle(s, s.updateSettings))
			r.Post("/plan", handle(s, s.changePlan))
			r.Post("/cancel", handle(s, s.cancelSubscription))
			r.Post("/owner", handle(s, s.transferOwnership))

			r.Get("/users", handle(s, s.listUsers))
			r.Delete("/users/{uid}", handle(s, s.removeUser))
			r.Put("/users/{uid}/permissions", handle(s, s.updatePermissions))

			r.Post("/invites", handle(s, s.createInvite))
			r.Post("/invites/{inviteID}/revoke", handle(s, s.revokeInvite))

			r.Post("/setup-intent", handle(s, s.createSetupIntent))
			r.Get("/payment-methods", handle(s, s.listPaymentMethods))
			r.Put("/payment-methods/default", handle(s, s.setDefaultPaymentMethod))
			r.Delete("/payment-methods/{pmID}", handle(s, s.deletePaymentMethod))
			r.Get("/billing-details", handle(s, s.getBillingDetails))
			r.Put("/billing-details", handle(s, s.updateBillingDetails))
			r.Get("/invoices", handle(s, s.listInvoices))
		})
	})
	return r
}
