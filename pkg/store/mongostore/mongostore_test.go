package mongostore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/mongo"
	"github.com/dmitrymomot/saasbilling/pkg/store"
	"github.com/dmitrymomot/saasbilling/pkg/store/mongostore"
)

// Integration tests run against a real replica set when MONGODB_TEST_URL is
// set, e.g. mongodb://localhost:27017/?replicaSet=rs0.
func newStore(t *testing.T) *mongostore.Store {
	t.Helper()
	url := os.Getenv("MONGODB_TEST_URL")
	if url == "" {
		t.Skip("MONGODB_TEST_URL not set")
	}
	ctx := context.Background()
	db, err := mongo.Connect(ctx, mongo.Config{
		ConnectionURL:  url,
		Database:       "billing_test_" + uuid.NewString()[:8],
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    10,
		RetryAttempts:  1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = db.Client().Disconnect(context.Background())
	})

	s := mongostore.New(db)
	require.NoError(t, s.EnsureIndexes(ctx))
	return s
}

func TestStore_MembershipAndPlan(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSubscription(ctx, &model.Subscription{
		ID:          "sub_1",
		OwnerID:     "owner",
		Status:      model.StatusActive,
		Permissions: map[string][]string{"access": {"owner"}, "admin": {"owner"}},
		StripeItems: map[string]string{"price_old": "si_old"},
	}))
	require.ErrorIs(t, s.CreateSubscription(ctx, &model.Subscription{ID: "sub_1"}), store.ErrDuplicate)

	require.NoError(t, s.UpdateMembership(ctx, "sub_1", model.MembershipChange{UserID: "bob", Add: []string{"access", "billing"}}))
	require.NoError(t, s.UpdateMembership(ctx, "sub_1", model.MembershipChange{UserID: "bob", Add: []string{"access"}}))
	require.NoError(t, s.UpdateMembership(ctx, "sub_1", model.MembershipChange{UserID: "bob", Remove: []string{"billing"}}))
	require.NoError(t, s.SetPlan(ctx, "sub_1", "pro", map[string]string{"price_new": "si_new"}))

	sub, err := s.GetSubscription(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "bob"}, sub.Permissions["access"])
	assert.Empty(t, sub.Permissions["billing"])
	assert.Equal(t, map[string]string{"price_new": "si_new"}, sub.StripeItems)

	require.ErrorIs(t, s.SetOwner(ctx, "missing", "x"), store.ErrNotFound)
}

func TestStore_PendingInviteUniqueness(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	inv := &model.Invite{Email: "bob@example.com", SubscriptionID: "sub_1", Status: model.InvitePending, CreateTime: time.Now()}
	require.NoError(t, s.CreateInvite(ctx, inv))
	require.ErrorIs(t, s.CreateInvite(ctx, &model.Invite{Email: "bob@example.com", SubscriptionID: "sub_1", Status: model.InvitePending}), store.ErrDuplicate)

	require.NoError(t, s.TransitionInvite(ctx, inv.ID, model.InvitePending, model.InviteRejected, "bob", time.Now()))
	require.ErrorIs(t, s.TransitionInvite(ctx, inv.ID, model.InvitePending, model.InviteAccepted, "bob", time.Now()), store.ErrConflict)

	require.NoError(t, s.CreateInvite(ctx, &model.Invite{Email: "bob@example.com", SubscriptionID: "sub_1", Status: model.InvitePending}))
}

func TestStore_TransactionRollback(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSubscription(ctx, &model.Subscription{
		ID:          "sub_tx",
		OwnerID:     "owner",
		Permissions: map[string][]string{"access": {"owner"}},
	}))

	err := s.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.UpdateMembership(ctx, "sub_tx", model.MembershipChange{UserID: "bob", Add: []string{"access"}}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	sub, err := s.GetSubscription(ctx, "sub_tx")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, sub.Permissions["access"])
}

func TestStore_InvoiceUpsert(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	inv := &model.Invoice{ID: "in_1", SubscriptionID: "sub_1", AmountDue: 1000, Created: 10}
	require.NoError(t, s.UpsertInvoice(ctx, inv))
	require.NoError(t, s.UpsertInvoice(ctx, inv))

	list, err := s.ListInvoices(ctx, "sub_1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1000), list[0].AmountDue)
}
