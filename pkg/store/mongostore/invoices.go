package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/saasbilling/pkg/model"
)

// Invoices live in their own collection keyed by processor invoice id, with
// subscription_id scoping every query to the owning subscription.

func (s *Store) UpsertInvoice(ctx context.Context, inv *model.Invoice) error {
	set, err := setFields(inv)
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}
	_, err = s.invoices.UpdateOne(ctx,
		bson.M{"_id": inv.ID},
		bson.M{"$set": set},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert invoice %s: %w", inv.ID, err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, subscriptionID, invoiceID string) (*model.Invoice, error) {
	return findOne[model.Invoice](ctx, s.invoices, bson.M{"_id": invoiceID, "subscription_id": subscriptionID}, "invoice "+invoiceID)
}

func (s *Store) ListInvoices(ctx context.Context, subscriptionID string, limit int) ([]*model.Invoice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	out, err := findMany[model.Invoice](ctx, s.invoices, bson.M{"subscription_id": subscriptionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return out, nil
}
