package member

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/logger"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/store"
	"github.com/dmitrymomot/saasbilling/svc/internal/svcutil"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100

	maxDisplayName = 200
)

// Service manages who belongs to a subscription and in which groups.
type Service interface {
	// RemoveUser takes uid out of every group. Admin only; the owner cannot
	// be removed. Pending invites for the user are left alone.
	RemoveUser(ctx context.Context, caller identity.Caller, subscriptionID, uid string) error
	// UpdatePermissions makes uid's groups exactly groups plus the default
	// group. Admin only.
	UpdatePermissions(ctx context.Context, caller identity.Caller, subscriptionID, uid string, groups []string) ([]string, error)
	// ListUsers pages through active members and pending invites together,
	// newest first. Admin only.
	ListUsers(ctx context.Context, caller identity.Caller, subscriptionID string, q PageQuery) (*UserPage, error)
	// SaveProfile upserts the caller's own profile.
	SaveProfile(ctx context.Context, caller identity.Caller, in ProfileInput) (*model.User, error)
}

// PageQuery selects a page. Zero values fall back to DefaultPage and
// DefaultPageSize.
type PageQuery struct {
	Page     int
	PageSize int
}

type UserPage struct {
	Users    []model.SubscriptionUser `json:"users"`
	Total    int                      `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
}

type ProfileInput struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type Store interface {
	store.Subscriptions
	store.Invites
	store.Users
}

type service struct {
	store  Store
	policy *access.Policy
	log    *slog.Logger
	now    func() time.Time
}

func NewService(st Store, policy *access.Policy, opts ...ServiceOption) Service {
	if st == nil {
		panic("member: store is required")
	}
	if policy == nil {
		panic("member: access policy is required")
	}
	s := &service{store: st, policy: policy, log: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) loadAsAdmin(ctx context.Context, caller identity.Caller, subscriptionID string) (*model.Subscription, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	sub, err := svcutil.LoadSubscription(ctx, s.store, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireAdmin(sub, caller.UID); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *service) RemoveUser(ctx context.Context, caller identity.Caller, subscriptionID, uid string) error {
	sub, err := s.loadAsAdmin(ctx, caller, subscriptionID)
	if err != nil {
		return err
	}
	if uid == "" {
		return ErrUserRequired
	}
	if !s.policy.IsMember(sub, uid) && !s.policy.IsOwner(sub, uid) {
		return ErrNotMember
	}
	change, err := s.policy.RevokeAll(sub, uid)
	if err != nil {
		return err
	}
	if err := s.store.UpdateMembership(ctx, sub.ID, change); err != nil {
		return svcutil.StoreError(err)
	}

	s.log.InfoContext(ctx, "user removed",
		logger.SubscriptionID(sub.ID), logger.UserID(caller.UID), slog.String("removed_uid", uid))
	return nil
}

func (s *service) UpdatePermissions(ctx context.Context, caller identity.Caller, subscriptionID, uid string, groups []string) ([]string, error) {
	sub, err := s.loadAsAdmin(ctx, caller, subscriptionID)
	if err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, ErrUserRequired
	}
	if !s.policy.IsMember(sub, uid) && !s.policy.IsOwner(sub, uid) {
		return nil, ErrNotMember
	}
	change, err := s.policy.SetExact(sub, uid, groups)
	if err != nil {
		return nil, err
	}
	if !change.Empty() {
		if err := s.store.UpdateMembership(ctx, sub.ID, change); err != nil {
			return nil, svcutil.StoreError(err)
		}
		s.log.InfoContext(ctx, "permissions updated",
			logger.SubscriptionID(sub.ID), logger.UserID(caller.UID),
			slog.String("target_uid", uid), slog.Any("groups", sub.GroupsOf(uid)))
	}
	return sub.GroupsOf(uid), nil
}

func (s *service) ListUsers(ctx context.Context, caller identity.Caller, subscriptionID string, q PageQuery) (*UserPage, error) {
	if q.Page < 0 || q.PageSize < 0 || q.PageSize > MaxPageSize {
		return nil, ErrInvalidPage
	}
	page := cmp.Or(q.Page, DefaultPage)
	size := cmp.Or(q.PageSize, DefaultPageSize)

	sub, err := s.loadAsAdmin(ctx, caller, subscriptionID)
	if err != nil {
		return nil, err
	}

	uids := sub.Members()
	if sub.OwnerID != "" && !slices.Contains(uids, sub.OwnerID) {
		uids = append(uids, sub.OwnerID)
	}
	rows := make([]model.SubscriptionUser, 0, len(uids))
	for _, uid := range uids {
		row := model.SubscriptionUser{
			ID:          uid,
			Permissions: sub.GroupsOf(uid),
			Status:      model.UserActive,
		}
		u, err := s.store.GetUser(ctx, uid)
		switch {
		case err == nil:
			row.Email = u.Email
			row.DisplayName = u.DisplayName
			row.AvatarURL = u.AvatarURL
			row.CreatedAt = u.CreatedAt
		case !errors.Is(err, store.ErrNotFound):
			return nil, svcutil.StoreError(err)
		}
		rows = append(rows, row)
	}

	invites, err := s.store.ListPendingInvites(ctx, sub.ID)
	if err != nil {
		return nil, svcutil.StoreError(err)
	}
	for _, inv := range invites {
		rows = append(rows, model.SubscriptionUser{
			ID:                 inv.ID,
			Email:              inv.Email,
			CreatedAt:          inv.CreateTime,
			Permissions:        []string{},
			Status:             model.UserPending,
			InviteID:           inv.ID,
			PendingPermissions: slices.Clone(inv.Permissions),
		})
	}

	slices.SortStableFunc(rows, func(a, b model.SubscriptionUser) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.ID, b.ID))
	})

	total := len(rows)
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return &UserPage{Users: rows[start:end], Total: total, Page: page, PageSize: size}, nil
}

func (s *service) SaveProfile(ctx context.Context, caller identity.Caller, in ProfileInput) (*model.User, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	email := identity.NormalizeEmail(caller.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	name := strings.TrimSpace(in.DisplayName)
	if utf8.RuneCountInString(name) > maxDisplayName {
		return nil, ErrInvalidProfile
	}
	avatar := strings.TrimSpace(in.AvatarURL)
	if avatar != "" && !strings.HasPrefix(avatar, "https://") && !strings.HasPrefix(avatar, "http://") {
		return nil, ErrInvalidProfile
	}

	u := &model.User{ID: caller.UID, Email: email, DisplayName: name, AvatarURL: avatar}
	if _, err := s.store.GetUser(ctx, caller.UID); errors.Is(err, store.ErrNotFound) {
		u.CreatedAt = s.now().UTC()
	} else if err != nil {
		return nil, svcutil.StoreError(err)
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return nil, svcutil.StoreError(err)
	}
	saved, err := s.store.GetUser(ctx, caller.UID)
	if err != nil {
		return nil, svcutil.StoreError(err)
	}
	return saved, nil
}
