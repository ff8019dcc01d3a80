package processor

import (
	"context"
	"encoding/json"
)

// Processor is the contract the billing services need from the payment
// processor. Implementations return ErrNotFound (possibly wrapped) when the
// referenced object does not exist.
type Processor interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, params CustomerParams) (*Customer, error)

	CreateSubscription(ctx context.Context, customerID string, priceIDs []string) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	AddItem(ctx context.Context, subscriptionID, priceID string) (*LineItem, error)
	// DeleteItem removes a line item. clearUsage must be set for metered prices.
	DeleteItem(ctx context.Context, itemID string, clearUsage bool) error

	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	ListCardPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
	// CreateSetupIntent returns the client secret of a card setup intent.
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)

	// ParseEvent verifies the signature header against the endpoint secret and
	// decodes the event envelope.
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// Address is a postal address as held by the processor.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// BillingDetails are the customer fields a subscription owner may edit.
type BillingDetails struct {
	Name    string   `json:"name,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// CustomerParams creates or updates a customer. Empty fields are left unchanged
// on update, unless ReplaceBillingDetails is set: then name and phone are
// written as given, empty values clearing them.
type CustomerParams struct {
	Email                 string
	BillingDetails        BillingDetails
	ReplaceBillingDetails bool
	PaymentMethodID       string
	DefaultPaymentMethod  string
}

type Customer struct {
	ID                   string
	Email                string
	BillingDetails       BillingDetails
	DefaultPaymentMethod string
}

type Subscription struct {
	ID         string
	CustomerID string
	Status     string
	Items      []LineItem
	StartDate  int64
	EndedAt    *int64
	// PaymentSecret is set only when the first invoice's payment needs
	// confirmation by the customer.
	PaymentSecret string
}

// ItemMap maps price id to line item id.
func (s *Subscription) ItemMap() map[string]string {
	m := make(map[string]string, len(s.Items))
	for _, it := range s.Items {
		if it.PriceID != "" {
			m[it.PriceID] = it.ID
		}
	}
	return m
}

// Period returns the billing period of the first line item, which is where
// the processor reports period bounds.
func (s *Subscription) Period() (start, end *int64) {
	if len(s.Items) == 0 {
		return nil, nil
	}
	st, en := s.Items[0].CurrentPeriodStart, s.Items[0].CurrentPeriodEnd
	return &st, &en
}

type LineItem struct {
	ID                 string
	PriceID            string
	Metered            bool
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
}

type PaymentMethod struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Last4     string `json:"last4"`
	ExpMonth  int64  `json:"exp_month"`
	ExpYear   int64  `json:"exp_year"`
	IsDefault bool   `json:"is_default"`
}

// Event is a verified processor event. Object holds the raw data.object JSON.
type Event struct {
	ID      string
	Type    string
	Created int64
	Object  json.RawMessage
}
