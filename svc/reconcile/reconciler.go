package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/saasbilling/pkg/logger"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/processor"
	"github.com/dmitrymomot/saasbilling/pkg/store"
)

// Outcome says what happened to an accepted event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeIgnored   Outcome = "ignored"   // type outside the allow-list
	OutcomeSkipped   Outcome = "skipped"   // invoice without a subscription
	OutcomeDuplicate Outcome = "duplicate" // already handled
	OutcomeFailed    Outcome = "failed"
)

// handledEvents lists every subscription and invoice event that carries a
// state change. paused, resumed, voided and marked_uncollectible move the
// status outside the created/updated/deleted cycle, so they are projected too.
var handledEvents = map[string]bool{
	"customer.subscription.created":        true,
	"customer.subscription.updated":        true,
	"customer.subscription.deleted":        true,
	"customer.subscription.paused":         true,
	"customer.subscription.resumed":        true,
	"customer.subscription.trial_will_end": true,
	"invoice.created":                      true,
	"invoice.updated":                      true,
	"invoice.paid":                         true,
	"invoice.payment_failed":               true,
	"invoice.finalized":                    true,
	"invoice.voided":                       true,
	"invoice.marked_uncollectible":         true,
}

func handled(eventType string) bool { return handledEvents[eventType] }

// Verifier authenticates and decodes a raw webhook delivery.
type Verifier interface {
	ParseEvent(payload []byte, signature string) (*processor.Event, error)
}

// Deduper remembers events that were applied successfully.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Store interface {
	store.Subscriptions
	store.Invoices
}

// Reconciler projects processor events into the store. Every write is a
// full-field overwrite keyed by processor ids, so applying an event any number
// of times, or concurrently with itself, converges to the same state.
type Reconciler struct {
	store    Store
	verifier Verifier
	dedupe   Deduper
	metrics  *Metrics
	log      *slog.Logger
	now      func() time.Time
}

func New(st Store, verifier Verifier, opts ...Option) *Reconciler {
	if st == nil {
		panic("reconcile: store is required")
	}
	if verifier == nil {
		panic("reconcile: verifier is required")
	}
	r := &Reconciler{store: st, verifier: verifier, log: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle verifies payload against signature and applies the event. It
// returns ErrInvalidSignature or ErrMalformedEvent for deliveries that must
// not be retried, and ErrStoreFailed or ErrUnknownSubscription when a retry
// may succeed.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	if strings.TrimSpace(signature) == "" {
		return OutcomeFailed, ErrInvalidSignature
	}
	ev, err := r.verifier.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, processor.ErrInvalidSignature) {
			r.log.WarnContext(ctx, "webhook signature rejected", logger.Error(err))
			return OutcomeFailed, errors.Join(ErrInvalidSignature, err)
		}
		return OutcomeFailed, errors.Join(ErrMalformedEvent, err)
	}
	return r.Apply(ctx, ev)
}

// Apply projects an already verified event.
func (r *Reconciler) Apply(ctx context.Context, ev *processor.Event) (Outcome, error) {
	start := r.now()
	outcome, err := r.apply(ctx, ev)
	r.metrics.observe(ev.Type, outcome, r.now().Sub(start).Seconds())

	attrs := []any{logger.EventID(ev.ID), logger.EventType(ev.Type), slog.String("outcome", string(outcome))}
	switch {
	case err != nil:
		r.log.ErrorContext(ctx, "webhook event failed", append(attrs, logger.Error(err))...)
	case outcome == OutcomeApplied:
		r.log.InfoContext(ctx, "webhook event applied", attrs...)
	default:
		r.log.DebugContext(ctx, "webhook event not applied", attrs...)
	}
	return outcome, err
}

func (r *Reconciler) apply(ctx context.Context, ev *processor.Event) (Outcome, error) {
	if !handled(ev.Type) {
		return OutcomeIgnored, nil
	}
	if r.dedupe != nil && ev.ID != "" {
		seen, err := r.dedupe.Seen(ctx, ev.ID)
		if err != nil {
			r.log.WarnContext(ctx, "dedupe lookup failed", logger.EventID(ev.ID), logger.Error(err))
		} else if seen {
			return OutcomeDuplicate, nil
		}
	}

	var (
		outcome Outcome
		err     error
	)
	switch {
	case strings.HasPrefix(ev.Type, "customer.subscription."):
		outcome, err = r.applySubscription(ctx, ev)
	default:
		outcome, err = r.applyInvoice(ctx, ev)
	}
	if err != nil {
		return OutcomeFailed, err
	}

	if r.dedupe != nil && ev.ID != "" {
		if err := r.dedupe.Mark(ctx, ev.ID); err != nil {
			r.log.WarnContext(ctx, "dedupe mark failed", logger.EventID(ev.ID), logger.Error(err))
		}
	}
	return outcome, nil
}

// applySubscription rebuilds stripe_items from the event's line items, so an
// item removed at the processor disappears locally as well.
func (r *Reconciler) applySubscription(ctx context.Context, ev *processor.Event) (Outcome, error) {
	var p subscriptionPayload
	if err := json.Unmarshal(ev.Object, &p); err != nil {
		return OutcomeFailed, errors.Join(ErrMalformedEvent, err)
	}
	if p.ID == "" {
		return OutcomeFailed, fmt.Errorf("%w: subscription without id", ErrMalformedEvent)
	}

	state := model.ProcessorState{
		CustomerID:         string(p.Customer),
		Status:             p.Status,
		Items:              make(map[string]string, len(p.Items.Data)),
		CurrentPeriodStart: p.CurrentPeriodStart,
		CurrentPeriodEnd:   p.CurrentPeriodEnd,
		SubscriptionStart:  p.StartDate,
		SubscriptionEnd:    p.EndedAt,
		EventTime:          ev.Created,
	}
	for i, item := range p.Items.Data {
		if item.Price.ID != "" {
			state.Items[item.Price.ID] = item.ID
		}
		if i == 0 && item.CurrentPeriodStart != nil {
			state.CurrentPeriodStart = item.CurrentPeriodStart
			state.CurrentPeriodEnd = item.CurrentPeriodEnd
		}
	}

	if err := r.store.ApplyProcessorState(ctx, p.ID, state); err != nil {
		return OutcomeFailed, storeFailure(p.ID, err)
	}
	return OutcomeApplied, nil
}

func (r *Reconciler) applyInvoice(ctx context.Context, ev *processor.Event) (Outcome, error) {
	var p invoicePayload
	if err := json.Unmarshal(ev.Object, &p); err != nil {
		return OutcomeFailed, errors.Join(ErrMalformedEvent, err)
	}
	if p.ID == "" {
		return OutcomeFailed, fmt.Errorf("%w: invoice without id", ErrMalformedEvent)
	}
	subID := p.subscriptionID()
	if subID == "" {
		return OutcomeSkipped, nil
	}
	if _, err := r.store.GetSubscription(ctx, subID); err != nil {
		return OutcomeFailed, storeFailure(subID, err)
	}

	status := deref(p.Status)
	paid := status == "paid"
	if p.Paid != nil {
		paid = *p.Paid
	}
	inv := &model.Invoice{
		ID:               p.ID,
		SubscriptionID:   subID,
		AmountDue:        deref(p.AmountDue),
		AmountPaid:       deref(p.AmountPaid),
		AmountRemaining:  deref(p.AmountRemaining),
		Total:            deref(p.Total),
		Currency:         p.Currency,
		Customer:         p.Customer.ptr(),
		CustomerEmail:    p.CustomerEmail,
		CustomerName:     p.CustomerName,
		Description:      p.Description,
		HostedInvoiceURL: p.HostedInvoiceURL,
		InvoicePDF:       p.InvoicePDF,
		Number:           p.Number,
		Paid:             paid,
		PaymentIntent:    p.PaymentIntent.ptr(),
		Status:           p.Status,
		PeriodStart:      deref(p.PeriodStart),
		PeriodEnd:        deref(p.PeriodEnd),
		Created:          deref(p.Created),
		DueDate:          p.DueDate,
		Updated:          ev.Created,
	}
	if err := r.store.UpsertInvoice(ctx, inv); err != nil {
		return OutcomeFailed, storeFailure(subID, err)
	}
	if status == "paid" {
		if err := r.store.SetLatestInvoice(ctx, subID, inv.ID); err != nil {
			return OutcomeFailed, storeFailure(subID, err)
		}
	}
	return OutcomeApplied, nil
}

// storeFailure keeps the two retryable causes apart: the subscription may
// simply not be stored yet when its first events outrun Create.
func storeFailure(subscriptionID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrUnknownSubscription, subscriptionID, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreFailed, subscriptionID, err)
}
