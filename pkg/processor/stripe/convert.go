package stripe

import (
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/dmitrymomot/saasbilling/pkg/processor"
)

func customerParams(p processor.CustomerParams) *stripe.CustomerParams {
	params := &stripe.CustomerParams{}
	if p.Email != "" {
		params.Email = stripe.String(p.Email)
	}
	if p.ReplaceBillingDetails {
		billingParams(params, p.BillingDetails)
	} else {
		if p.BillingDetails.Name != "" {
			params.Name = stripe.String(p.BillingDetails.Name)
		}
		if p.BillingDetails.Phone != "" {
			params.Phone = stripe.String(p.BillingDetails.Phone)
		}
		params.Address = addressParams(p.BillingDetails.Address)
	}
	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}
	if p.DefaultPaymentMethod != "" {
		params.InvoiceSettings = &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(p.DefaultPaymentMethod),
		}
	}
	return params
}

// billingParams sends name and phone even when empty so Stripe clears them.
func billingParams(params *stripe.CustomerParams, d processor.BillingDetails) {
	params.Name = stripe.String(d.Name)
	params.Phone = stripe.String(d.Phone)
	params.Address = addressParams(d.Address)
}

func addressParams(a *processor.Address) *stripe.AddressParams {
	if a == nil {
		return nil
	}
	return &stripe.AddressParams{
		Line1:      stripe.String(a.Line1),
		Line2:      stripe.String(a.Line2),
		City:       stripe.String(a.City),
		State:      stripe.String(a.State),
		PostalCode: stripe.String(a.PostalCode),
		Country:    stripe.String(a.Country),
	}
}

func toCustomer(c *stripe.Customer) *processor.Customer {
	out := &processor.Customer{
		ID:    c.ID,
		Email: c.Email,
		BillingDetails: processor.BillingDetails{
			Name:  c.Name,
			Phone: c.Phone,
		},
	}
	if a := c.Address; a != nil {
		out.BillingDetails.Address = &processor.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}
	if c.InvoiceSettings != nil && c.InvoiceSettings.DefaultPaymentMethod != nil {
		out.DefaultPaymentMethod = c.InvoiceSettings.DefaultPaymentMethod.ID
	}
	return out
}

func toSubscription(s *stripe.Subscription) *processor.Subscription {
	out := &processor.Subscription{
		ID:        s.ID,
		Status:    string(s.Status),
		StartDate: s.StartDate,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.EndedAt > 0 {
		ended := s.EndedAt
		out.EndedAt = &ended
	}
	if s.Items != nil {
		for _, it := range s.Items.Data {
			out.Items = append(out.Items, toLineItem(it))
		}
	}
	return out
}

func toLineItem(it *stripe.SubscriptionItem) processor.LineItem {
	li := processor.LineItem{
		ID:                 it.ID,
		CurrentPeriodStart: it.CurrentPeriodStart,
		CurrentPeriodEnd:   it.CurrentPeriodEnd,
	}
	if it.Price != nil {
		li.PriceID = it.Price.ID
		li.Metered = it.Price.Recurring != nil &&
			it.Price.Recurring.UsageType == stripe.PriceRecurringUsageTypeMetered
	}
	return li
}
