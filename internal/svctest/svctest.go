// Package svctest builds the catalog, store and processor fixtures shared by
// the service tests.
package svctest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/catalog"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/processor"
	"github.com/dmitrymomot/saasbilling/pkg/processor/fake"
	"github.com/dmitrymomot/saasbilling/pkg/store/memstore"
)

const (
	GroupAccess  = "access"
	GroupAdmin   = "admin"
	GroupBilling = "billing"

	PlanBasic    = "basic"
	PlanPro      = "pro"
	PriceBasic   = "price_basic"
	PricePro     = "price_pro"
	PriceMetered = "price_metered"
)

// Now is the fixed clock used by fixtures.
var Now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func Clock() time.Time { return Now }

// Catalog returns a catalog with a default group, an admin group, a plain
// group and two plans, the second of which carries a metered price.
func Catalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.FromDefinition(catalog.Definition{
		Permissions: map[string]catalog.Permission{
			GroupAccess:  {Label: "Access", Default: true},
			GroupAdmin:   {Label: "Admin", Admin: true},
			GroupBilling: {Label: "Billing"},
		},
		Plans: []catalog.Plan{
			{ID: PlanBasic, Name: "Basic", PriceIDs: []string{PriceBasic}},
			{ID: PlanPro, Name: "Pro", PriceIDs: []string{PricePro, PriceMetered}},
		},
	})
	require.NoError(t, err)
	return cat
}

// Env bundles the collaborators a service test needs.
type Env struct {
	Store     *memstore.Store
	Processor *fake.Processor
	Policy    *access.Policy
}

func NewEnv(t testing.TB, opts ...fake.Option) *Env {
	t.Helper()
	opts = append([]fake.Option{fake.WithMeteredPrices(PriceMetered), fake.WithClock(Clock)}, opts...)
	return &Env{
		Store:     memstore.New(),
		Processor: fake.New(opts...),
		Policy:    access.NewPolicy(Catalog(t)),
	}
}

// Caller returns a verified caller whose email is derived from uid.
func Caller(uid string) identity.Caller {
	return identity.Caller{UID: uid, Email: uid + "@example.com", EmailVerified: true, Name: uid}
}

// SeedSubscription creates a customer and a basic-plan subscription at the
// processor and stores the matching document. members maps extra uids to the
// groups they hold besides the default group.
func (e *Env) SeedSubscription(t testing.TB, ownerID string, members map[string][]string) *model.Subscription {
	t.Helper()
	ctx := context.Background()

	cus, err := e.Processor.CreateCustomer(ctx, processor.CustomerParams{
		Email:          ownerID + "@example.com",
		BillingDetails: processor.BillingDetails{Name: ownerID},
	})
	require.NoError(t, err)
	psub, err := e.Processor.CreateSubscription(ctx, cus.ID, []string{PriceBasic})
	require.NoError(t, err)

	sub := &model.Subscription{
		ID:                   psub.ID,
		OwnerID:              ownerID,
		PlanID:               PlanBasic,
		Status:               model.StatusActive,
		Permissions:          e.Policy.InitialPermissions(ownerID),
		StripeCustomerID:     cus.ID,
		StripeSubscriptionID: psub.ID,
		StripeItems:          psub.ItemMap(),
		CreationTime:         Now,
	}
	for uid, groups := range members {
		_, err := e.Policy.Grant(sub, uid, groups)
		require.NoError(t, err)
	}
	require.NoError(t, e.Store.CreateSubscription(ctx, sub))
	return sub
}

// SeedUser stores a profile for uid with the email Caller(uid) uses.
func (e *Env) SeedUser(t testing.TB, uid string, createdAt time.Time) *model.User {
	t.Helper()
	u := &model.User{ID: uid, Email: uid + "@example.com", DisplayName: uid, CreatedAt: createdAt}
	require.NoError(t, e.Store.SaveUser(context.Background(), u))
	return u
}
