package invite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/saasbilling/internal/svctest"
	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/apperr"
	"github.com/dmitrymomot/saasbilling/pkg/catalog"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/store/memstore"
	"github.com/dmitrymomot/saasbilling/svc/invite"
)

// failingTransitions runs every write through the memstore but fails the
// invite status change, so anything Accept wrote before it must roll back.
type failingTransitions struct {
	*memstore.Store
	err error
}

func (s failingTransitions) TransitionInvite(context.Context, string, model.InviteStatus, model.InviteStatus, string, time.Time) error {
	return s.err
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyInvite(ctx context.Context, inv *model.Invite) error {
	return m.Called(ctx, inv).Error(0)
}

type fixture struct {
	svc invite.Service
	env *svctest.Env
	sub *model.Subscription
}

func setup(t *testing.T, opts ...invite.ServiceOption) fixture {
	t.Helper()
	env := svctest.NewEnv(t)
	sub := env.SeedSubscription(t, "owner", map[string][]string{
		"alice": {svctest.GroupAdmin},
		"carol": nil,
	})
	opts = append([]invite.ServiceOption{invite.WithClock(svctest.Clock)}, opts...)
	return fixture{svc: invite.NewService(env.Store, env.Policy, opts...), env: env, sub: sub}
}

func (f fixture) invite(t *testing.T, email string, groups ...string) *model.Invite {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), svctest.Caller("owner"), f.sub.ID, invite.CreateInput{
		Email: email, Permissions: groups,
	})
	require.NoError(t, err)
	return inv
}

func TestAcceptRollsBackGrantWhenTransitionFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	inv := f.invite(t, "bob@example.com", svctest.GroupAdmin)

	broken := invite.NewService(failingTransitions{Store: f.env.Store, err: errors.New("write failed")}, f.env.Policy)
	err := broken.Accept(ctx, svctest.Caller("bob"), inv.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))

	sub, err := f.env.Store.GetSubscription(ctx, f.sub.ID)
	require.NoError(t, err)
	for group, members := range sub.Permissions {
		assert.NotContains(t, members, "bob", group)
	}

	stored, err := f.env.Store.GetInvite(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvitePending, stored.Status)

	t.Run("healthy store accepts afterwards", func(t *testing.T) {
		require.NoError(t, f.svc.Accept(ctx, svctest.Caller("bob"), inv.ID))
		sub, err := f.env.Store.GetSubscription(ctx, f.sub.ID)
		require.NoError(t, err)
		assert.Contains(t, sub.Permissions[svctest.GroupAdmin], "bob")
	})
}

func TestAcceptScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)

	inv := f.invite(t, "bob@example.com", svctest.GroupAdmin)
	assert.Equal(t, model.InvitePending, inv.Status)
	assert.NotEmpty(t, inv.ID)

	require.NoError(t, f.svc.Accept(ctx, svctest.Caller("bob"), inv.ID))

	stored, err := f.env.Store.GetInvite(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InviteAccepted, stored.Status)
	assert.Equal(t, "bob", stored.AcceptedBy)
	require.NotNil(t, stored.AcceptTime)

	sub, err := f.env.Store.GetSubscription(ctx, f.sub.ID)
	require.NoError(t, err)
	assert.Contains(t, sub.Permissions[svctest.GroupAccess], "bob")
	assert.Contains(t, sub.Permissions[svctest.GroupAdmin], "bob")
	assert.Contains(t, sub.Permissions[svctest.GroupAccess], "owner")
	assert.Contains(t, sub.Permissions[svctest.GroupAdmin], "owner")

	t.Run("second accept fails without double grant", func(t *testing.T) {
		err := f.svc.Accept(ctx, svctest.Caller("bob"), inv.ID)
		assert.ErrorIs(t, err, invite.ErrInviteNotPending)
		assert.Equal(t, apperr.FailedPrecondition, apperr.KindOf(err))

		again, err := f.env.Store.GetSubscription(ctx, f.sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.Permissions, again.Permissions)
	})
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("snapshots names", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		require.NoError(t, f.env.Store.UpdateSettings(ctx, f.sub.ID, map[string]string{"name": "Apollo"}))
		require.NoError(t, f.env.Store.SaveUser(ctx, &model.User{ID: "owner", Email: "owner@example.com", DisplayName: "Olive Owner"}))

		inv := f.invite(t, "  Bob@Example.com ", svctest.GroupBilling, svctest.GroupBilling)
		assert.Equal(t, "bob@example.com", inv.Email)
		assert.Equal(t, "Apollo", inv.SubscriptionName)
		assert.Equal(t, "Olive Owner", inv.HostName)
		assert.Equal(t, "owner", inv.HostUID)
		assert.Equal(t, []string{svctest.GroupBilling}, inv.Permissions)
		assert.Equal(t, svctest.Now, inv.CreateTime)
	})

	t.Run("fallback names", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		inv, err := f.svc.Create(ctx, identity.Caller{UID: "owner"}, f.sub.ID, invite.CreateInput{Email: "bob@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "Untitled Project", inv.SubscriptionName)
		assert.Equal(t, "Unknown User", inv.HostName)
	})

	t.Run("duplicate pending then re-invite after reject and revoke", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		first := f.invite(t, "bob@example.com")

		_, err := f.svc.Create(ctx, svctest.Caller("alice"), f.sub.ID, invite.CreateInput{Email: "BOB@example.com"})
		assert.ErrorIs(t, err, invite.ErrDuplicateInvite)
		assert.Equal(t, apperr.AlreadyExists, apperr.KindOf(err))

		require.NoError(t, f.svc.Reject(ctx, svctest.Caller("bob"), first.ID))
		second := f.invite(t, "bob@example.com")

		require.NoError(t, f.svc.Revoke(ctx, svctest.Caller("alice"), f.sub.ID, second.ID))
		f.invite(t, "bob@example.com")
	})

	t.Run("existing member", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		f.env.SeedUser(t, "carol", svctest.Now)

		_, err := f.svc.Create(ctx, svctest.Caller("owner"), f.sub.ID, invite.CreateInput{Email: "carol@example.com"})
		assert.ErrorIs(t, err, invite.ErrAlreadyMember)
	})

	t.Run("validation and authorization", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		tests := []struct {
			name   string
			caller identity.Caller
			in     invite.CreateInput
			want   error
		}{
			{"non admin", svctest.Caller("carol"), invite.CreateInput{Email: "x@example.com"}, access.ErrNotAdmin},
			{"unknown group", svctest.Caller("owner"), invite.CreateInput{Email: "x@example.com", Permissions: []string{"root"}}, catalog.ErrUnknownPermission},
			{"empty email", svctest.Caller("owner"), invite.CreateInput{Email: " "}, invite.ErrEmailRequired},
			{"anonymous", identity.Caller{}, invite.CreateInput{Email: "x@example.com"}, identity.ErrUnauthenticated},
		}
		for _, tt := range tests {
			_, err := f.svc.Create(ctx, tt.caller, f.sub.ID, tt.in)
			assert.ErrorIs(t, err, tt.want, tt.name)
		}
		pending, err := f.env.Store.ListPendingInvites(ctx, f.sub.ID)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("notification failure does not fail create", func(t *testing.T) {
		t.Parallel()
		n := &mockNotifier{}
		n.On("NotifyInvite", mock.Anything, mock.MatchedBy(func(inv *model.Invite) bool {
			return inv.Email == "bob@example.com"
		})).Return(errors.New("smtp down")).Once()
		f := setup(t, invite.WithNotifier(n))

		inv := f.invite(t, "bob@example.com")
		assert.Equal(t, model.InvitePending, inv.Status)
		n.AssertExpectations(t)
	})
}

func TestAccept_Guards(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name   string
		caller identity.Caller
		want   error
	}{
		{"other user", svctest.Caller("mallory"), invite.ErrEmailMismatch},
		{"unverified email", identity.Caller{UID: "bob", Email: "bob@example.com"}, invite.ErrEmailNotVerified},
		{"anonymous", identity.Caller{}, identity.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := setup(t)
			inv := f.invite(t, "bob@example.com", svctest.GroupAdmin)

			assert.ErrorIs(t, f.svc.Accept(ctx, tt.caller, inv.ID), tt.want)
			assert.ErrorIs(t, f.svc.Reject(ctx, tt.caller, inv.ID), tt.want)

			stored, err := f.env.Store.GetInvite(ctx, inv.ID)
			require.NoError(t, err)
			assert.Equal(t, model.InvitePending, stored.Status)
		})
	}

	t.Run("missing invite", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		err := f.svc.Accept(ctx, svctest.Caller("bob"), "nope")
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})

	t.Run("case-insensitive email match", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		inv := f.invite(t, "bob@example.com")
		caller := svctest.Caller("bob")
		caller.Email = "BOB@Example.COM"
		require.NoError(t, f.svc.Accept(ctx, caller, inv.ID))
	})
}

func TestAccept_ConcurrentOnlyOneWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	inv := f.invite(t, "bob@example.com", svctest.GroupBilling)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.svc.Accept(ctx, svctest.Caller("bob"), inv.ID)
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, invite.ErrInviteNotPending)
	}
	assert.Equal(t, 1, ok)

	sub, err := f.env.Store.GetSubscription(ctx, f.sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count(sub.Permissions[svctest.GroupBilling], "bob"))
	assert.Equal(t, 1, count(sub.Permissions[svctest.GroupAccess], "bob"))
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("non admin", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		inv := f.invite(t, "bob@example.com")
		assert.ErrorIs(t, f.svc.Revoke(ctx, svctest.Caller("carol"), f.sub.ID, inv.ID), access.ErrNotAdmin)
	})

	t.Run("invite of another subscription", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		inv := f.invite(t, "bob@example.com")
		other := f.env.SeedSubscription(t, "carol", nil)

		err := f.svc.Revoke(ctx, svctest.Caller("carol"), other.ID, inv.ID)
		assert.ErrorIs(t, err, invite.ErrInviteNotFound)
	})

	t.Run("already accepted", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		inv := f.invite(t, "bob@example.com")
		require.NoError(t, f.svc.Accept(ctx, svctest.Caller("bob"), inv.ID))

		err := f.svc.Revoke(ctx, svctest.Caller("owner"), f.sub.ID, inv.ID)
		assert.ErrorIs(t, err, invite.ErrInviteNotPending)
	})

	t.Run("stamps audit fields", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		inv := f.invite(t, "bob@example.com")
		require.NoError(t, f.svc.Revoke(ctx, svctest.Caller("alice"), f.sub.ID, inv.ID))

		stored, err := f.env.Store.GetInvite(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, model.InviteRevoked, stored.Status)
		assert.Equal(t, "alice", stored.RevokedBy)
		require.NotNil(t, stored.RevokeTime)
		assert.Equal(t, svctest.Now, *stored.RevokeTime)
	})
}

func TestListForCaller(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	first := f.invite(t, "bob@example.com")
	f.invite(t, "dave@example.com")

	got, err := f.svc.ListForCaller(ctx, svctest.Caller("bob"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)

	require.NoError(t, f.svc.Reject(ctx, svctest.Caller("bob"), first.ID))
	got, err = f.svc.ListForCaller(ctx, svctest.Caller("bob"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.ListForCaller(ctx, identity.Caller{UID: "bob"})
	assert.ErrorIs(t, err, invite.ErrEmailNotVerified)
}

func count(xs []string, x string) int {
	n := 0
	for _, v := range xs {
		if v == x {
			n++
		}
	}
	return n
}
