package subscription_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/saasbilling/internal/svctest"
	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/apperr"
	"github.com/dmitrymomot/saasbilling/pkg/catalog"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/processor"
	"github.com/dmitrymomot/saasbilling/pkg/processor/fake"
	"github.com/dmitrymomot/saasbilling/svc/subscription"
)

func newService(t *testing.T, opts ...fake.Option) (subscription.Service, *svctest.Env) {
	t.Helper()
	env := svctest.NewEnv(t, opts...)
	svc := subscription.NewService(env.Store, env.Processor, env.Policy, subscription.WithClock(svctest.Clock))
	return svc, env
}

func TestNewService_PanicsOnNilDeps(t *testing.T) {
	t.Parallel()

	env := svctest.NewEnv(t)
	assert.Panics(t, func() { subscription.NewService(nil, env.Processor, env.Policy) })
	assert.Panics(t, func() { subscription.NewService(env.Store, nil, env.Policy) })
	assert.Panics(t, func() { subscription.NewService(env.Store, env.Processor, nil) })
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates customer, subscription and owner document", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)

		res, err := svc.Create(ctx, svctest.Caller("owner"), subscription.CreateInput{PlanID: svctest.PlanPro})
		require.NoError(t, err)
		assert.NotEmpty(t, res.SubscriptionID)
		assert.NotEmpty(t, res.CustomerID)
		assert.Empty(t, res.ClientSecret)

		sub, err := env.Store.GetSubscription(ctx, res.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, "owner", sub.OwnerID)
		assert.Equal(t, svctest.PlanPro, sub.PlanID)
		assert.Equal(t, res.SubscriptionID, sub.StripeSubscriptionID)
		assert.Equal(t, res.CustomerID, sub.StripeCustomerID)
		assert.Len(t, sub.StripeItems, 2)
		assert.Contains(t, sub.StripeItems, svctest.PricePro)
		assert.Contains(t, sub.StripeItems, svctest.PriceMetered)
		assert.Equal(t, []string{"owner"}, sub.Permissions[svctest.GroupAccess])
		assert.Equal(t, []string{"owner"}, sub.Permissions[svctest.GroupAdmin])
		assert.NotContains(t, sub.Permissions[svctest.GroupBilling], "owner")
		assert.Equal(t, svctest.Now, sub.CreationTime)

		cus, ok := env.Processor.Customer(res.CustomerID)
		require.True(t, ok)
		assert.Equal(t, "owner@example.com", cus.Email)
		assert.Equal(t, "owner", cus.BillingDetails.Name)
	})

	t.Run("billing info attaches the payment method", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)

		res, err := svc.Create(ctx, svctest.Caller("owner"), subscription.CreateInput{
			PlanID: svctest.PlanBasic,
			BillingInfo: &subscription.BillingInfo{
				PaymentMethodID: "pm_1",
				Details:         processor.BillingDetails{Name: "Acme Ltd", Phone: "+100"},
			},
		})
		require.NoError(t, err)

		cus, ok := env.Processor.Customer(res.CustomerID)
		require.True(t, ok)
		assert.Equal(t, "Acme Ltd", cus.BillingDetails.Name)
		assert.Equal(t, "pm_1", cus.DefaultPaymentMethod)
	})

	t.Run("returns client secret when payment needs confirmation", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, fake.WithPaymentConfirmation())

		res, err := svc.Create(ctx, svctest.Caller("owner"), subscription.CreateInput{PlanID: svctest.PlanBasic})
		require.NoError(t, err)
		assert.NotEmpty(t, res.ClientSecret)
	})

	t.Run("preconditions", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name   string
			caller identity.Caller
			in     subscription.CreateInput
			kind   apperr.Kind
		}{
			{"anonymous", identity.Caller{}, subscription.CreateInput{PlanID: svctest.PlanBasic}, apperr.Unauthenticated},
			{"no email", identity.Caller{UID: "u1"}, subscription.CreateInput{PlanID: svctest.PlanBasic}, apperr.FailedPrecondition},
			{"unknown plan", svctest.Caller("u1"), subscription.CreateInput{PlanID: "gold"}, apperr.InvalidArgument},
			{"billing without payment method", svctest.Caller("u1"), subscription.CreateInput{
				PlanID: svctest.PlanBasic, BillingInfo: &subscription.BillingInfo{},
			}, apperr.InvalidArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				svc, env := newService(t)

				_, err := svc.Create(ctx, tt.caller, tt.in)
				require.Error(t, err)
				assert.Equal(t, tt.kind, apperr.KindOf(err))
				assert.Zero(t, env.Processor.Mutations())
			})
		}
	})

	t.Run("processor failure is internal", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		env.Processor.FailOn("CreateSubscription", errors.New("card declined"))

		_, err := svc.Create(ctx, svctest.Caller("owner"), subscription.CreateInput{PlanID: svctest.PlanBasic})
		require.Error(t, err)
		assert.Equal(t, apperr.Internal, apperr.KindOf(err))
	})
}

func TestGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, env := newService(t)
	sub := env.SeedSubscription(t, "owner", map[string][]string{"member": nil})

	got, err := svc.Get(ctx, svctest.Caller("member"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	_, err = svc.Get(ctx, svctest.Caller("stranger"), sub.ID)
	assert.ErrorIs(t, err, access.ErrNoAccess)

	_, err = svc.Get(ctx, svctest.Caller("owner"), "sub_missing")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestChangePlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("items match the new plan exactly", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)

		got, err := svc.ChangePlan(ctx, svctest.Caller("owner"), sub.ID, subscription.ChangePlanInput{PlanID: svctest.PlanPro})
		require.NoError(t, err)
		assert.Equal(t, svctest.PlanPro, got.PlanID)

		stored, err := env.Store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, svctest.PlanPro, stored.PlanID)
		require.Len(t, stored.StripeItems, 2)
		assert.NotContains(t, stored.StripeItems, svctest.PriceBasic)

		psub, ok := env.Processor.Subscription(sub.ID)
		require.True(t, ok)
		assert.Equal(t, stored.StripeItems, psub.ItemMap())
	})

	t.Run("metered items are deleted with usage cleared", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)
		owner := svctest.Caller("owner")

		_, err := svc.ChangePlan(ctx, owner, sub.ID, subscription.ChangePlanInput{PlanID: svctest.PlanPro})
		require.NoError(t, err)
		_, err = svc.ChangePlan(ctx, owner, sub.ID, subscription.ChangePlanInput{PlanID: svctest.PlanBasic})
		require.NoError(t, err)

		var cleared, plain int
		for _, c := range env.Processor.CallsTo("DeleteItem") {
			if c.Args[1].(bool) {
				cleared++
			} else {
				plain++
			}
		}
		assert.Equal(t, 1, cleared)
		assert.Equal(t, 2, plain)

		stored, err := env.Store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{svctest.PriceBasic}, keys(stored.StripeItems))
	})

	t.Run("retry after partial failure converges", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)
		owner := svctest.Caller("owner")

		env.Processor.FailOn("DeleteItem", errors.New("network"))
		_, err := svc.ChangePlan(ctx, owner, sub.ID, subscription.ChangePlanInput{PlanID: svctest.PlanPro})
		require.Error(t, err)

		env.Processor.FailOn("DeleteItem", nil)
		_, err = svc.ChangePlan(ctx, owner, sub.ID, subscription.ChangePlanInput{PlanID: svctest.PlanPro})
		require.NoError(t, err)

		psub, ok := env.Processor.Subscription(sub.ID)
		require.True(t, ok)
		assert.Len(t, psub.Items, 2)
		assert.Len(t, env.Processor.CallsTo("AddItem"), 2)
	})

	t.Run("billing info sets default payment method", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)

		_, err := svc.ChangePlan(ctx, svctest.Caller("owner"), sub.ID, subscription.ChangePlanInput{
			PlanID:      svctest.PlanPro,
			BillingInfo: &subscription.BillingInfo{PaymentMethodID: "pm_new"},
		})
		require.NoError(t, err)

		cus, ok := env.Processor.Customer(sub.StripeCustomerID)
		require.True(t, ok)
		assert.Equal(t, "pm_new", cus.DefaultPaymentMethod)
	})

	t.Run("non-owner is denied", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", map[string][]string{"alice": {svctest.GroupAdmin}})

		_, err := svc.ChangePlan(ctx, svctest.Caller("alice"), sub.ID, subscription.ChangePlanInput{PlanID: svctest.PlanPro})
		assert.ErrorIs(t, err, access.ErrNotOwner)
		assert.Equal(t, apperr.PermissionDenied, apperr.KindOf(err))
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)

		_, err := svc.ChangePlan(ctx, svctest.Caller("owner"), sub.ID, subscription.ChangePlanInput{PlanID: "gold"})
		assert.ErrorIs(t, err, catalog.ErrUnknownPlan)
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("confirmation mismatch leaves status unchanged", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)

		err := svc.Cancel(ctx, svctest.Caller("owner"), sub.ID, "nope")
		assert.ErrorIs(t, err, subscription.ErrConfirmationMismatch)
		assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))

		stored, err := env.Store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusActive, stored.Status)
		assert.Empty(t, env.Processor.CallsTo("CancelSubscription"))
	})

	t.Run("cancels at processor and locally", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)

		require.NoError(t, svc.Cancel(ctx, svctest.Caller("owner"), sub.ID, sub.ID))

		stored, err := env.Store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCanceled, stored.Status)
		require.NotNil(t, stored.CanceledAt)
		assert.Equal(t, svctest.Now, *stored.CanceledAt)

		psub, _ := env.Processor.Subscription(sub.ID)
		assert.Equal(t, model.StatusCanceled, psub.Status)

		// second cancel is a no-op
		require.NoError(t, svc.Cancel(ctx, svctest.Caller("owner"), sub.ID, sub.ID))
		assert.Len(t, env.Processor.CallsTo("CancelSubscription"), 1)
	})

	t.Run("admin cannot cancel", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", map[string][]string{"alice": {svctest.GroupAdmin}})

		err := svc.Cancel(ctx, svctest.Caller("alice"), sub.ID, sub.ID)
		assert.Equal(t, apperr.PermissionDenied, apperr.KindOf(err))
	})
}

func TestTransferOwnership(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown user makes no processor mutation", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)
		before := env.Processor.Mutations()

		err := svc.TransferOwnership(ctx, svctest.Caller("owner"), sub.ID, "ghost")
		assert.ErrorIs(t, err, subscription.ErrNewOwnerNotFound)
		assert.Equal(t, apperr.FailedPrecondition, apperr.KindOf(err))
		assert.Equal(t, before, env.Processor.Mutations())

		stored, err := env.Store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, "owner", stored.OwnerID)
	})

	t.Run("user without email", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)
		require.NoError(t, env.Store.SaveUser(ctx, &model.User{ID: "noemail"}))

		err := svc.TransferOwnership(ctx, svctest.Caller("owner"), sub.ID, "noemail")
		assert.ErrorIs(t, err, subscription.ErrNewOwnerNoEmail)
	})

	t.Run("moves owner and customer email", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", map[string][]string{"alice": {svctest.GroupBilling}})
		env.SeedUser(t, "alice", svctest.Now)

		require.NoError(t, svc.TransferOwnership(ctx, svctest.Caller("owner"), sub.ID, "alice"))

		stored, err := env.Store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", stored.OwnerID)
		assert.ElementsMatch(t, []string{svctest.GroupAccess, svctest.GroupBilling}, stored.GroupsOf("alice"))

		cus, _ := env.Processor.Customer(sub.StripeCustomerID)
		assert.Equal(t, "alice@example.com", cus.Email)

		// the former owner is now just a member
		err = svc.TransferOwnership(ctx, svctest.Caller("owner"), sub.ID, "owner")
		assert.ErrorIs(t, err, access.ErrNotOwner)
	})

	t.Run("empty new owner", func(t *testing.T) {
		t.Parallel()
		svc, env := newService(t)
		sub := env.SeedSubscription(t, "owner", nil)

		err := svc.TransferOwnership(ctx, svctest.Caller("owner"), sub.ID, "")
		assert.ErrorIs(t, err, subscription.ErrNewOwnerRequired)
	})
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, env := newService(t)
	sub := env.SeedSubscription(t, "owner", map[string][]string{"alice": {svctest.GroupAdmin}})

	require.NoError(t, svc.UpdateSettings(ctx, svctest.Caller("owner"), sub.ID, map[string]string{"name": "Apollo"}))
	require.NoError(t, svc.UpdateSettings(ctx, svctest.Caller("owner"), sub.ID, map[string]string{"theme": "dark"}))

	stored, err := env.Store.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "Apollo", "theme": "dark"}, stored.Settings)

	err = svc.UpdateSettings(ctx, svctest.Caller("owner"), sub.ID, map[string]string{"a.b": "x"})
	assert.ErrorIs(t, err, subscription.ErrInvalidSetting)

	err = svc.UpdateSettings(ctx, svctest.Caller("alice"), sub.ID, map[string]string{"name": "x"})
	assert.Equal(t, apperr.PermissionDenied, apperr.KindOf(err))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
