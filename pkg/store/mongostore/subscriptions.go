package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/store"
)

func (s *Store) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	return findOne[model.Subscription](ctx, s.subs, bson.M{"_id": id}, "subscription "+id)
}

func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	if _, err := s.subs.InsertOne(ctx, sub); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("subscription %s: %w", sub.ID, store.ErrDuplicate)
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

// UpdateMembership uses $addToSet and $pull on the individual group arrays so
// that writers touching different users never clobber each other.
func (s *Store) UpdateMembership(ctx context.Context, id string, change model.MembershipChange) error {
	update := bson.M{}
	if len(change.Add) > 0 {
		add := bson.M{}
		for _, g := range change.Add {
			add["permissions."+g] = change.UserID
		}
		update["$addToSet"] = add
	}
	if len(change.Remove) > 0 {
		pull := bson.M{}
		for _, g := range change.Remove {
			pull["permissions."+g] = change.UserID
		}
		update["$pull"] = pull
	}
	if len(update) == 0 {
		_, err := s.GetSubscription(ctx, id)
		return err
	}
	return updateByID(ctx, s.subs, id, update, "subscription "+id)
}

func (s *Store) SetPlan(ctx context.Context, id, planID string, items map[string]string) error {
	if items == nil {
		items = map[string]string{}
	}
	return updateByID(ctx, s.subs, id, bson.M{"$set": bson.M{
		"plan_id":      planID,
		"stripe_items": items,
	}}, "subscription "+id)
}

func (s *Store) MarkCanceled(ctx context.Context, id string, at time.Time) error {
	return updateByID(ctx, s.subs, id, bson.M{"$set": bson.M{
		"status":           model.StatusCanceled,
		"canceled_at":      at,
		"subscription_end": at.Unix(),
	}}, "subscription "+id)
}

func (s *Store) SetOwner(ctx context.Context, id, ownerID string) error {
	return updateByID(ctx, s.subs, id, bson.M{"$set": bson.M{"owner_id": ownerID}}, "subscription "+id)
}

func (s *Store) UpdateSettings(ctx context.Context, id string, settings map[string]string) error {
	set := bson.M{}
	for k, v := range settings {
		set["settings."+k] = v
	}
	if len(set) == 0 {
		_, err := s.GetSubscription(ctx, id)
		return err
	}
	return updateByID(ctx, s.subs, id, bson.M{"$set": set}, "subscription "+id)
}

func (s *Store) ApplyProcessorState(ctx context.Context, id string, st model.ProcessorState) error {
	items := st.Items
	if items == nil {
		items = map[string]string{}
	}
	return updateByID(ctx, s.subs, id, bson.M{"$set": bson.M{
		"stripe_customer_id":                st.CustomerID,
		"status":                            st.Status,
		"stripe_items":                      items,
		"subscription_current_period_start": st.CurrentPeriodStart,
		"subscription_current_period_end":   st.CurrentPeriodEnd,
		"subscription_start":                st.SubscriptionStart,
		"subscription_end":                  st.SubscriptionEnd,
		"synced_at":                         st.EventTime,
	}}, "subscription "+id)
}

func (s *Store) SetLatestInvoice(ctx context.Context, id, invoiceID string) error {
	return updateByID(ctx, s.subs, id, bson.M{"$set": bson.M{"latest_invoice": invoiceID}}, "subscription "+id)
}
