package member_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/saasbilling/internal/svctest"
	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/apperr"
	"github.com/dmitrymomot/saasbilling/pkg/catalog"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/svc/member"
)

type fixture struct {
	svc member.Service
	env *svctest.Env
	sub *model.Subscription
}

func setup(t *testing.T) fixture {
	t.Helper()
	env := svctest.NewEnv(t)
	sub := env.SeedSubscription(t, "owner", map[string][]string{
		"alice": {svctest.GroupAdmin},
		"bob":   {svctest.GroupBilling},
	})
	return fixture{
		svc: member.NewService(env.Store, env.Policy, member.WithClock(svctest.Clock)),
		env: env,
		sub: sub,
	}
}

func (f fixture) stored(t *testing.T) *model.Subscription {
	t.Helper()
	sub, err := f.env.Store.GetSubscription(context.Background(), f.sub.ID)
	require.NoError(t, err)
	return sub
}

func assertDefaultSuperset(t *testing.T, sub *model.Subscription) {
	t.Helper()
	for g, uids := range sub.Permissions {
		for _, uid := range uids {
			assert.Contains(t, sub.Permissions[svctest.GroupAccess], uid, "%s in %s", uid, g)
		}
	}
}

func TestRemoveUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("admin removes member from every group", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		require.NoError(t, f.svc.RemoveUser(ctx, svctest.Caller("alice"), f.sub.ID, "bob"))
		sub := f.stored(t)
		assert.Empty(t, sub.GroupsOf("bob"))
		assert.Contains(t, sub.Permissions[svctest.GroupAdmin], "alice")
		assertDefaultSuperset(t, sub)
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		err := f.svc.RemoveUser(ctx, svctest.Caller("alice"), f.sub.ID, "owner")
		assert.ErrorIs(t, err, access.ErrOwnerNotRemovable)
		assert.Equal(t, apperr.FailedPrecondition, apperr.KindOf(err))
		assert.Contains(t, f.stored(t).Permissions[svctest.GroupAccess], "owner")
	})

	t.Run("non admin", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		err := f.svc.RemoveUser(ctx, svctest.Caller("bob"), f.sub.ID, "alice")
		assert.ErrorIs(t, err, access.ErrNotAdmin)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		assert.ErrorIs(t, f.svc.RemoveUser(ctx, svctest.Caller("owner"), f.sub.ID, "ghost"), member.ErrNotMember)
		assert.ErrorIs(t, f.svc.RemoveUser(ctx, svctest.Caller("owner"), f.sub.ID, ""), member.ErrUserRequired)
	})

	t.Run("pending invite survives removal", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		inv := &model.Invite{
			Email: "bob@example.com", SubscriptionID: f.sub.ID, Status: model.InvitePending, CreateTime: svctest.Now,
		}
		require.NoError(t, f.env.Store.CreateInvite(ctx, inv))

		require.NoError(t, f.svc.RemoveUser(ctx, svctest.Caller("owner"), f.sub.ID, "bob"))
		stored, err := f.env.Store.GetInvite(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, model.InvitePending, stored.Status)
	})
}

func TestUpdatePermissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sets exact groups plus default", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		groups, err := f.svc.UpdatePermissions(ctx, svctest.Caller("owner"), f.sub.ID, "bob", []string{svctest.GroupAdmin})
		require.NoError(t, err)
		assert.Equal(t, []string{svctest.GroupAccess, svctest.GroupAdmin}, groups)

		sub := f.stored(t)
		assert.Equal(t, []string{svctest.GroupAccess, svctest.GroupAdmin}, sub.GroupsOf("bob"))
		assertDefaultSuperset(t, sub)
	})

	t.Run("empty list keeps default only", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		groups, err := f.svc.UpdatePermissions(ctx, svctest.Caller("alice"), f.sub.ID, "bob", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{svctest.GroupAccess}, groups)
	})

	t.Run("unknown group leaves membership untouched", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		_, err := f.svc.UpdatePermissions(ctx, svctest.Caller("owner"), f.sub.ID, "bob", []string{"root"})
		assert.ErrorIs(t, err, catalog.ErrUnknownPermission)
		assert.Equal(t, []string{svctest.GroupAccess, svctest.GroupBilling}, f.stored(t).GroupsOf("bob"))
	})

	t.Run("non member", func(t *testing.T) {
		t.Parallel()
		f := setup(t)

		_, err := f.svc.UpdatePermissions(ctx, svctest.Caller("owner"), f.sub.ID, "ghost", nil)
		assert.ErrorIs(t, err, member.ErrNotMember)
	})
}

func TestListUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.env.SeedUser(t, "owner", base)
	f.env.SeedUser(t, "alice", base.Add(1*time.Hour))
	f.env.SeedUser(t, "bob", base.Add(2*time.Hour))
	for i := range 3 {
		require.NoError(t, f.env.Store.CreateInvite(ctx, &model.Invite{
			Email:          fmt.Sprintf("guest%d@example.com", i),
			SubscriptionID: f.sub.ID,
			Permissions:    []string{svctest.GroupBilling},
			Status:         model.InvitePending,
			CreateTime:     base.Add(time.Duration(3+i) * time.Hour),
		}))
	}

	t.Run("default page is newest first", func(t *testing.T) {
		page, err := f.svc.ListUsers(ctx, svctest.Caller("alice"), f.sub.ID, member.PageQuery{})
		require.NoError(t, err)
		assert.Equal(t, 6, page.Total)
		assert.Equal(t, member.DefaultPage, page.Page)
		assert.Equal(t, member.DefaultPageSize, page.PageSize)
		require.Len(t, page.Users, 6)

		assert.Equal(t, "guest2@example.com", page.Users[0].Email)
		assert.Equal(t, model.UserPending, page.Users[0].Status)
		assert.Equal(t, page.Users[0].ID, page.Users[0].InviteID)
		assert.Equal(t, []string{svctest.GroupBilling}, page.Users[0].PendingPermissions)
		assert.Empty(t, page.Users[0].Permissions)

		last := page.Users[5]
		assert.Equal(t, "owner", last.ID)
		assert.Equal(t, model.UserActive, last.Status)
		assert.Equal(t, []string{svctest.GroupAccess, svctest.GroupAdmin}, last.Permissions)
		assert.Equal(t, "owner@example.com", last.Email)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := f.svc.ListUsers(ctx, svctest.Caller("owner"), f.sub.ID, member.PageQuery{Page: 2, PageSize: 4})
		require.NoError(t, err)
		assert.Equal(t, 6, page.Total)
		require.Len(t, page.Users, 2)
		assert.Equal(t, "alice", page.Users[0].ID)
		assert.Equal(t, "owner", page.Users[1].ID)

		page, err = f.svc.ListUsers(ctx, svctest.Caller("owner"), f.sub.ID, member.PageQuery{Page: 9, PageSize: 4})
		require.NoError(t, err)
		assert.Empty(t, page.Users)
		assert.Equal(t, 6, page.Total)
	})

	t.Run("invalid page", func(t *testing.T) {
		_, err := f.svc.ListUsers(ctx, svctest.Caller("owner"), f.sub.ID, member.PageQuery{PageSize: member.MaxPageSize + 1})
		assert.ErrorIs(t, err, member.ErrInvalidPage)
	})

	t.Run("admin only", func(t *testing.T) {
		_, err := f.svc.ListUsers(ctx, svctest.Caller("bob"), f.sub.ID, member.PageQuery{})
		assert.ErrorIs(t, err, access.ErrNotAdmin)
	})
}

func TestSaveProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	caller := svctest.Caller("dave")
	caller.Email = " Dave@Example.com"

	u, err := f.svc.SaveProfile(ctx, caller, member.ProfileInput{DisplayName: "  Dave  ", AvatarURL: "https://cdn.example.com/d.png"})
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", u.Email)
	assert.Equal(t, "Dave", u.DisplayName)
	assert.Equal(t, svctest.Now, u.CreatedAt)

	u, err = f.svc.SaveProfile(ctx, caller, member.ProfileInput{DisplayName: "David"})
	require.NoError(t, err)
	assert.Equal(t, "David", u.DisplayName)
	assert.Equal(t, svctest.Now, u.CreatedAt)

	_, err = f.svc.SaveProfile(ctx, caller, member.ProfileInput{AvatarURL: "javascript:alert(1)"})
	assert.ErrorIs(t, err, member.ErrInvalidProfile)

	_, err = f.svc.SaveProfile(ctx, identity.Caller{UID: "x"}, member.ProfileInput{})
	assert.ErrorIs(t, err, member.ErrEmailRequired)
}
