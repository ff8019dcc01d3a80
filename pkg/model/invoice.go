package model

// Invoice is the local projection of a processor invoice, stored under its
// subscription and keyed by the processor invoice id. Monetary fields default
// to zero and optional strings to null so the stored shape never varies.
type Invoice struct {
	ID               string  `bson:"_id" json:"id"`
	SubscriptionID   string  `bson:"subscription_id" json:"subscription_id"`
	AmountDue        int64   `bson:"amount_due" json:"amount_due"`
	AmountPaid       int64   `bson:"amount_paid" json:"amount_paid"`
	AmountRemaining  int64   `bson:"amount_remaining" json:"amount_remaining"`
	Total            int64   `bson:"total" json:"total"`
	Currency         *string `bson:"currency" json:"currency"`
	Customer         *string `bson:"customer" json:"customer"`
	CustomerEmail    *string `bson:"customer_email" json:"customer_email"`
	CustomerName     *string `bson:"customer_name" json:"customer_name"`
	Description      *string `bson:"description" json:"description"`
	HostedInvoiceURL *string `bson:"hosted_invoice_url" json:"hosted_invoice_url"`
	InvoicePDF       *string `bson:"invoice_pdf" json:"invoice_pdf"`
	Number           *string `bson:"number" json:"number"`
	Paid             bool    `bson:"paid" json:"paid"`
	PaymentIntent    *string `bson:"payment_intent" json:"payment_intent"`
	Status           *string `bson:"status" json:"status"`
	PeriodStart      int64   `bson:"period_start" json:"period_start"`
	PeriodEnd        int64   `bson:"period_end" json:"period_end"`
	Created          int64   `bson:"created" json:"created"`
	DueDate          *int64  `bson:"due_date" json:"due_date"`
	Updated          int64   `bson:"updated" json:"updated"`
}
