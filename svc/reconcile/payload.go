package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// objectID decodes a reference the processor sends either as a bare id or,
// when expanded, as an object carrying an id. null decodes to "".
type objectID string

func (o *objectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*o = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = objectID(s)
		return nil
	case len(data) > 0 && data[0] == '{':
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*o = objectID(obj.ID)
		return nil
	}
	return fmt.Errorf("unexpected reference %s", data)
}

func (o objectID) ptr() *string {
	if o == "" {
		return nil
	}
	s := string(o)
	return &s
}

type subscriptionPayload struct {
	ID        string   `json:"id"`
	Customer  objectID `json:"customer"`
	Status    string   `json:"status"`
	StartDate *int64   `json:"start_date"`
	EndedAt   *int64   `json:"ended_at"`
	// Older API versions report the period on the subscription itself.
	CurrentPeriodStart *int64 `json:"current_period_start"`
	CurrentPeriodEnd   *int64 `json:"current_period_end"`
	Items              struct {
		Data []struct {
			ID    string `json:"id"`
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
			CurrentPeriodStart *int64 `json:"current_period_start"`
			CurrentPeriodEnd   *int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

type invoicePayload struct {
	ID           string   `json:"id"`
	Subscription objectID `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription objectID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`

	AmountDue        *int64   `json:"amount_due"`
	AmountPaid       *int64   `json:"amount_paid"`
	AmountRemaining  *int64   `json:"amount_remaining"`
	Total            *int64   `json:"total"`
	Currency         *string  `json:"currency"`
	Customer         objectID `json:"customer"`
	CustomerEmail    *string  `json:"customer_email"`
	CustomerName     *string  `json:"customer_name"`
	Description      *string  `json:"description"`
	HostedInvoiceURL *string  `json:"hosted_invoice_url"`
	InvoicePDF       *string  `json:"invoice_pdf"`
	Number           *string  `json:"number"`
	Paid             *bool    `json:"paid"`
	PaymentIntent    objectID `json:"payment_intent"`
	Status           *string  `json:"status"`
	PeriodStart      *int64   `json:"period_start"`
	PeriodEnd        *int64   `json:"period_end"`
	Created          *int64   `json:"created"`
	DueDate          *int64   `json:"due_date"`
}

// subscriptionID reads the top-level field first and falls back to the
// nested location newer API versions use.
func (p *invoicePayload) subscriptionID() string {
	if p.Subscription != "" {
		return string(p.Subscription)
	}
	if p.Parent != nil && p.Parent.SubscriptionDetails != nil {
		return string(p.Parent.SubscriptionDetails.Subscription)
	}
	return ""
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
