package stripe

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/saasbilling/pkg/processor"
)

// Client implements processor.Processor with stripe-go. It uses its own API
// client instead of the package-level stripe.Key so tests can point it at a
// local backend.
type Client struct {
	api           *client.API
	backends      *stripe.Backends
	webhookSecret string
}

var _ processor.Processor = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithBackends routes API calls through custom backends.
func WithBackends(b *stripe.Backends) Option {
	return func(c *Client) { c.backends = b }
}

// New panics if the secret key is empty.
func New(cfg Config, opts ...Option) *Client {
	if cfg.SecretKey == "" {
		panic("stripe: secret key is required")
	}
	c := &Client{webhookSecret: cfg.WebhookSecret}
	for _, opt := range opts {
		opt(c)
	}
	c.api = client.New(cfg.SecretKey, c.backends)
	return c
}

func (c *Client) CreateCustomer(ctx context.Context, p processor.CustomerParams) (*processor.Customer, error) {
	params := customerParams(p)
	params.Context = ctx
	cust, err := c.api.Customers.New(params)
	if err != nil {
		return nil, wrapErr("create customer", err)
	}
	return toCustomer(cust), nil
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*processor.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.AddExpand("invoice_settings.default_payment_method")
	cust, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, wrapErr("get customer", err)
	}
	if cust.Deleted {
		return nil, fmt.Errorf("customer %s deleted: %w", customerID, processor.ErrNotFound)
	}
	return toCustomer(cust), nil
}

func (c *Client) UpdateCustomer(ctx context.Context, customerID string, p processor.CustomerParams) (*processor.Customer, error) {
	params := customerParams(p)
	params.Context = ctx
	cust, err := c.api.Customers.Update(customerID, params)
	if err != nil {
		return nil, wrapErr("update customer", err)
	}
	return toCustomer(cust), nil
}

// CreateSubscription creates the subscription in default_incomplete mode so
// the first invoice's confirmation secret can be handed to the client when the
// card needs extra authentication.
func (c *Client) CreateSubscription(ctx context.Context, customerID string, priceIDs []string) (*processor.Subscription, error) {
	items := make([]*stripe.SubscriptionItemsParams, 0, len(priceIDs))
	for _, id := range priceIDs {
		items = append(items, &stripe.SubscriptionItemsParams{Price: stripe.String(id)})
	}
	params := &stripe.SubscriptionParams{
		Customer:        stripe.String(customerID),
		Items:           items,
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.confirmation_secret")

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, wrapErr("create subscription", err)
	}
	out := toSubscription(sub)
	if sub.Status == stripe.SubscriptionStatusIncomplete &&
		sub.LatestInvoice != nil && sub.LatestInvoice.ConfirmationSecret != nil {
		out.PaymentSecret = sub.LatestInvoice.ConfirmationSecret.ClientSecret
	}
	return out, nil
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*processor.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, wrapErr("get subscription", err)
	}
	return toSubscription(sub), nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := c.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return wrapErr("cancel subscription", err)
	}
	return nil
}

func (c *Client) AddItem(ctx context.Context, subscriptionID, priceID string) (*processor.LineItem, error) {
	params := &stripe.SubscriptionItemParams{
		Subscription: stripe.String(subscriptionID),
		Price:        stripe.String(priceID),
	}
	params.Context = ctx
	item, err := c.api.SubscriptionItems.New(params)
	if err != nil {
		return nil, wrapErr("add subscription item", err)
	}
	li := toLineItem(item)
	return &li, nil
}

func (c *Client) DeleteItem(ctx context.Context, itemID string, clearUsage bool) error {
	params := &stripe.SubscriptionItemParams{}
	if clearUsage {
		params.ClearUsage = stripe.Bool(true)
	}
	params.Context = ctx
	if _, err := c.api.SubscriptionItems.Del(itemID, params); err != nil {
		return wrapErr("delete subscription item", err)
	}
	return nil
}

func (c *Client) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	if _, err := c.api.PaymentMethods.Attach(paymentMethodID, params); err != nil {
		return wrapErr("attach payment method", err)
	}
	return nil
}

func (c *Client) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	if _, err := c.api.PaymentMethods.Detach(paymentMethodID, params); err != nil {
		return wrapErr("detach payment method", err)
	}
	return nil
}

func (c *Client) ListCardPaymentMethods(ctx context.Context, customerID string) ([]processor.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	var out []processor.PaymentMethod
	iter := c.api.PaymentMethods.List(params)
	for iter.Next() {
		pm := iter.PaymentMethod()
		m := processor.PaymentMethod{ID: pm.ID}
		if pm.Card != nil {
			m.Brand = string(pm.Card.Brand)
			m.Last4 = pm.Card.Last4
			m.ExpMonth = pm.Card.ExpMonth
			m.ExpYear = pm.Card.ExpYear
		}
		out = append(out, m)
	}
	if err := iter.Err(); err != nil {
		return nil, wrapErr("list payment methods", err)
	}
	return out, nil
}

func (c *Client) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	si, err := c.api.SetupIntents.New(params)
	if err != nil {
		return "", wrapErr("create setup intent", err)
	}
	return si.ClientSecret, nil
}

// ParseEvent ignores API version mismatches: the reconciler decodes the
// object itself and accepts both old and new payload shapes.
func (c *Client) ParseEvent(payload []byte, signature string) (*processor.Event, error) {
	if signature == "" {
		return nil, fmt.Errorf("missing signature header: %w", processor.ErrInvalidSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidHeader) || errors.Is(err, webhook.ErrNoValidSignature) ||
			errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrTooOld) {
			return nil, errors.Join(processor.ErrInvalidSignature, err)
		}
		return nil, errors.Join(processor.ErrMalformedEvent, err)
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return nil, fmt.Errorf("event %s has no data object: %w", ev.ID, processor.ErrMalformedEvent)
	}
	return &processor.Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: ev.Created,
		Object:  ev.Data.Raw,
	}, nil
}

func wrapErr(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && (se.Code == stripe.ErrorCodeResourceMissing || se.HTTPStatusCode == 404) {
		return fmt.Errorf("stripe %s: %w", op, errors.Join(processor.ErrNotFound, err))
	}
	return fmt.Errorf("stripe %s: %w", op, err)
}
