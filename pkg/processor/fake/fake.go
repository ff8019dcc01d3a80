package fake

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dmitrymomot/saasbilling/pkg/processor"
)

// Call is one recorded invocation.
type Call struct {
	Method string
	Args   []any
}

type paymentMethod struct {
	pm         processor.PaymentMethod
	customerID string
}

// Processor is an in-memory processor.Processor. It records every call and
// can be told to fail specific methods.
type Processor struct {
	mu             sync.Mutex
	seq            int
	now            func() time.Time
	secret         string
	metered        map[string]bool
	confirm        bool
	customers      map[string]*processor.Customer
	subs           map[string]*processor.Subscription
	paymentMethods map[string]*paymentMethod
	failures       map[string]error
	calls          []Call
}

var _ processor.Processor = (*Processor)(nil)

type Option func(*Processor)

// WithMeteredPrices marks prices as metered.
func WithMeteredPrices(priceIDs ...string) Option {
	return func(p *Processor) {
		for _, id := range priceIDs {
			p.metered[id] = true
		}
	}
}

// WithWebhookSecret sets the secret ParseEvent verifies signatures against.
func WithWebhookSecret(secret string) Option {
	return func(p *Processor) { p.secret = secret }
}

// WithPaymentConfirmation makes new subscriptions start incomplete with a
// payment secret, as when a card requires authentication.
func WithPaymentConfirmation() Option {
	return func(p *Processor) { p.confirm = true }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func New(opts ...Option) *Processor {
	p := &Processor{
		now:            time.Now,
		metered:        map[string]bool{},
		customers:      map[string]*processor.Customer{},
		subs:           map[string]*processor.Subscription{},
		paymentMethods: map[string]*paymentMethod{},
		failures:       map[string]error{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FailOn makes every later call to method return err. A nil err clears it.
func (p *Processor) FailOn(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, method)
		return
	}
	p.failures[method] = err
}

// Calls returns the recorded calls in order.
func (p *Processor) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// CallsTo returns the recorded calls to method.
func (p *Processor) CallsTo(method string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// mutatingMethods are the methods that change processor state.
var mutatingMethods = []string{
	"CreateCustomer", "UpdateCustomer", "CreateSubscription", "CancelSubscription",
	"AddItem", "DeleteItem", "AttachPaymentMethod", "DetachPaymentMethod", "CreateSetupIntent",
}

// Mutations counts calls that change processor state.
func (p *Processor) Mutations() int {
	n := 0
	for _, c := range p.Calls() {
		if slices.Contains(mutatingMethods, c.Method) {
			n++
		}
	}
	return n
}

// SeedPaymentMethod attaches a card to a customer without recording a call.
func (p *Processor) SeedPaymentMethod(customerID string, pm processor.PaymentMethod) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paymentMethods[pm.ID] = &paymentMethod{pm: pm, customerID: customerID}
}

// Subscription returns a copy of the stored subscription.
func (p *Processor) Subscription(id string) (*processor.Subscription, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.subs[id]
	if !ok {
		return nil, false
	}
	return cloneSub(s), true
}

// Customer returns a copy of the stored customer.
func (p *Processor) Customer(id string) (*processor.Customer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.customers[id]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// begin records the call and returns the injected failure, if any. The caller
// must hold p.mu.
func (p *Processor) begin(method string, args ...any) error {
	p.calls = append(p.calls, Call{Method: method, Args: args})
	return p.failures[method]
}

func (p *Processor) id(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s_%d", prefix, p.seq)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, processor.ErrNotFound)
}

func (p *Processor) CreateCustomer(_ context.Context, params processor.CustomerParams) (*processor.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateCustomer", params); err != nil {
		return nil, err
	}
	c := &processor.Customer{ID: p.id("cus"), Email: params.Email, BillingDetails: params.BillingDetails}
	p.customers[c.ID] = c
	if params.PaymentMethodID != "" {
		p.attach(c.ID, params.PaymentMethodID)
	}
	c.DefaultPaymentMethod = params.DefaultPaymentMethod
	cp := *c
	return &cp, nil
}

func (p *Processor) GetCustomer(_ context.Context, customerID string) (*processor.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("GetCustomer", customerID); err != nil {
		return nil, err
	}
	c, ok := p.customers[customerID]
	if !ok {
		return nil, notFound("customer", customerID)
	}
	cp := *c
	return &cp, nil
}

func (p *Processor) UpdateCustomer(_ context.Context, customerID string, params processor.CustomerParams) (*processor.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("UpdateCustomer", customerID, params); err != nil {
		return nil, err
	}
	c, ok := p.customers[customerID]
	if !ok {
		return nil, notFound("customer", customerID)
	}
	if params.Email != "" {
		c.Email = params.Email
	}
	if params.ReplaceBillingDetails || params.BillingDetails.Name != "" {
		c.BillingDetails.Name = params.BillingDetails.Name
	}
	if params.ReplaceBillingDetails || params.BillingDetails.Phone != "" {
		c.BillingDetails.Phone = params.BillingDetails.Phone
	}
	if params.BillingDetails.Address != nil {
		a := *params.BillingDetails.Address
		c.BillingDetails.Address = &a
	}
	if params.DefaultPaymentMethod != "" {
		c.DefaultPaymentMethod = params.DefaultPaymentMethod
	}
	cp := *c
	return &cp, nil
}

func (p *Processor) CreateSubscription(_ context.Context, customerID string, priceIDs []string) (*processor.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateSubscription", customerID, slices.Clone(priceIDs)); err != nil {
		return nil, err
	}
	if _, ok := p.customers[customerID]; !ok {
		return nil, notFound("customer", customerID)
	}
	now := p.now().Unix()
	s := &processor.Subscription{
		ID:         p.id("sub"),
		CustomerID: customerID,
		Status:     "active",
		StartDate:  now,
	}
	for _, price := range priceIDs {
		s.Items = append(s.Items, p.newItem(price, now))
	}
	p.subs[s.ID] = s
	out := cloneSub(s)
	if p.confirm {
		s.Status = "incomplete"
		out.Status = "incomplete"
		out.PaymentSecret = "pi_secret_" + s.ID
	}
	return out, nil
}

func (p *Processor) newItem(priceID string, now int64) processor.LineItem {
	return processor.LineItem{
		ID:                 p.id("si"),
		PriceID:            priceID,
		Metered:            p.metered[priceID],
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now + 30*24*3600,
	}
}

func (p *Processor) GetSubscription(_ context.Context, subscriptionID string) (*processor.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("GetSubscription", subscriptionID); err != nil {
		return nil, err
	}
	s, ok := p.subs[subscriptionID]
	if !ok {
		return nil, notFound("subscription", subscriptionID)
	}
	return cloneSub(s), nil
}

func (p *Processor) CancelSubscription(_ context.Context, subscriptionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CancelSubscription", subscriptionID); err != nil {
		return err
	}
	s, ok := p.subs[subscriptionID]
	if !ok {
		return notFound("subscription", subscriptionID)
	}
	ended := p.now().Unix()
	s.Status = "canceled"
	s.EndedAt = &ended
	return nil
}

func (p *Processor) AddItem(_ context.Context, subscriptionID, priceID string) (*processor.LineItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("AddItem", subscriptionID, priceID); err != nil {
		return nil, err
	}
	s, ok := p.subs[subscriptionID]
	if !ok {
		return nil, notFound("subscription", subscriptionID)
	}
	for _, it := range s.Items {
		if it.PriceID == priceID {
			return nil, fmt.Errorf("price %s already on subscription %s", priceID, subscriptionID)
		}
	}
	it := p.newItem(priceID, p.now().Unix())
	s.Items = append(s.Items, it)
	return &it, nil
}

func (p *Processor) DeleteItem(_ context.Context, itemID string, clearUsage bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DeleteItem", itemID, clearUsage); err != nil {
		return err
	}
	for _, s := range p.subs {
		for i, it := range s.Items {
			if it.ID != itemID {
				continue
			}
			if it.Metered && !clearUsage {
				return errors.New("metered item requires clear_usage")
			}
			if !it.Metered && clearUsage {
				return errors.New("clear_usage is only valid for metered items")
			}
			s.Items = slices.Delete(s.Items, i, i+1)
			return nil
		}
	}
	return notFound("subscription item", itemID)
}

func (p *Processor) attach(customerID, paymentMethodID string) {
	if rec, ok := p.paymentMethods[paymentMethodID]; ok {
		rec.customerID = customerID
		return
	}
	p.paymentMethods[paymentMethodID] = &paymentMethod{
		pm:         processor.PaymentMethod{ID: paymentMethodID, Brand: "visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030},
		customerID: customerID,
	}
}

func (p *Processor) AttachPaymentMethod(_ context.Context, customerID, paymentMethodID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("AttachPaymentMethod", customerID, paymentMethodID); err != nil {
		return err
	}
	if _, ok := p.customers[customerID]; !ok {
		return notFound("customer", customerID)
	}
	p.attach(customerID, paymentMethodID)
	return nil
}

func (p *Processor) DetachPaymentMethod(_ context.Context, paymentMethodID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("DetachPaymentMethod", paymentMethodID); err != nil {
		return err
	}
	rec, ok := p.paymentMethods[paymentMethodID]
	if !ok || rec.customerID == "" {
		return notFound("payment method", paymentMethodID)
	}
	rec.customerID = ""
	return nil
}

func (p *Processor) ListCardPaymentMethods(_ context.Context, customerID string) ([]processor.PaymentMethod, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("ListCardPaymentMethods", customerID); err != nil {
		return nil, err
	}
	var out []processor.PaymentMethod
	for _, rec := range p.paymentMethods {
		if rec.customerID == customerID {
			out = append(out, rec.pm)
		}
	}
	slices.SortFunc(out, func(a, b processor.PaymentMethod) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (p *Processor) CreateSetupIntent(_ context.Context, customerID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin("CreateSetupIntent", customerID); err != nil {
		return "", err
	}
	if _, ok := p.customers[customerID]; !ok {
		return "", notFound("customer", customerID)
	}
	return "seti_secret_" + p.id("seti"), nil
}

// ParseEvent verifies signatures with stripe-go's webhook package, so tests
// sign payloads with webhook.GenerateTestSignedPayload.
func (p *Processor) ParseEvent(payload []byte, signature string) (*processor.Event, error) {
	if signature == "" {
		return nil, processor.ErrInvalidSignature
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrNoValidSignature) || errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrTooOld) {
			return nil, errors.Join(processor.ErrInvalidSignature, err)
		}
		return nil, errors.Join(processor.ErrMalformedEvent, err)
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return nil, processor.ErrMalformedEvent
	}
	return &processor.Event{ID: ev.ID, Type: string(ev.Type), Created: ev.Created, Object: ev.Data.Raw}, nil
}

func cloneSub(s *processor.Subscription) *processor.Subscription {
	cp := *s
	cp.Items = slices.Clone(s.Items)
	if s.EndedAt != nil {
		e := *s.EndedAt
		cp.EndedAt = &e
	}
	return &cp
}
