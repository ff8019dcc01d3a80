package invite

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/apperr"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/logger"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/store"
	"github.com/dmitrymomot/saasbilling/svc/internal/svcutil"
)

const (
	fallbackSubscriptionName = "Untitled Project"
	fallbackHostName         = "Unknown User"
)

// Service runs the invitation state machine: pending moves to accepted,
// rejected or revoked, and every one of those is terminal.
type Service interface {
	// Create invites email into the given permission groups. Admin only.
	Create(ctx context.Context, caller identity.Caller, subscriptionID string, in CreateInput) (*model.Invite, error)
	// Accept grants the invite's groups and closes it in one transaction.
	Accept(ctx context.Context, caller identity.Caller, inviteID string) error
	Reject(ctx context.Context, caller identity.Caller, inviteID string) error
	// Revoke withdraws a pending invite. Admin only.
	Revoke(ctx context.Context, caller identity.Caller, subscriptionID, inviteID string) error
	// ListForCaller returns the pending invites addressed to the caller's
	// verified email, newest first.
	ListForCaller(ctx context.Context, caller identity.Caller) ([]*model.Invite, error)
}

type CreateInput struct {
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
}

// Notifier tells the invitee about a new invite.
type Notifier interface {
	NotifyInvite(ctx context.Context, inv *model.Invite) error
}

type Store interface {
	store.Subscriptions
	store.Invites
	store.Users
	store.Transactor
}

type service struct {
	store    Store
	policy   *access.Policy
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewService(st Store, policy *access.Policy, opts ...ServiceOption) Service {
	if st == nil {
		panic("invite: store is required")
	}
	if policy == nil {
		panic("invite: access policy is required")
	}
	s := &service{
		store:  st,
		policy: policy,
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, caller identity.Caller, subscriptionID string, in CreateInput) (*model.Invite, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	email := identity.NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	sub, err := svcutil.LoadSubscription(ctx, s.store, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireAdmin(sub, caller.UID); err != nil {
		return nil, err
	}
	if err := s.policy.ValidateGroups(in.Permissions); err != nil {
		return nil, err
	}

	invitee, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if s.policy.IsMember(sub, invitee.ID) || s.policy.IsOwner(sub, invitee.ID) {
			return nil, ErrAlreadyMember
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, svcutil.StoreError(err)
	}

	if _, err := s.store.FindPendingInvite(ctx, sub.ID, email); err == nil {
		return nil, ErrDuplicateInvite
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, svcutil.StoreError(err)
	}

	inv := &model.Invite{
		Email:            email,
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Setting("name", fallbackSubscriptionName),
		HostUID:          caller.UID,
		HostName:         s.hostName(ctx, caller),
		Permissions:      dedupe(in.Permissions),
		Status:           model.InvitePending,
		CreateTime:       s.now().UTC(),
	}
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		// Lost a race with a concurrent create for the same address.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateInvite.With(err)
		}
		return nil, svcutil.StoreError(err)
	}

	s.log.InfoContext(ctx, "invite created",
		logger.InviteID(inv.ID), logger.SubscriptionID(sub.ID), logger.UserID(caller.UID))

	if s.notifier != nil {
		if err := s.notifier.NotifyInvite(ctx, inv); err != nil {
			s.log.WarnContext(ctx, "invite notification failed", logger.InviteID(inv.ID), logger.Error(err))
		}
	}
	return inv, nil
}

// hostName prefers the stored profile over the token's name claim.
func (s *service) hostName(ctx context.Context, caller identity.Caller) string {
	if u, err := s.store.GetUser(ctx, caller.UID); err == nil && u.DisplayName != "" {
		return u.DisplayName
	}
	if caller.Name != "" {
		return caller.Name
	}
	return fallbackHostName
}

func (s *service) loadInvite(ctx context.Context, id string) (*model.Invite, error) {
	if id == "" {
		return nil, ErrInviteNotFound
	}
	inv, err := s.store.GetInvite(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInviteNotFound.With(err)
		}
		return nil, svcutil.StoreError(err)
	}
	return inv, nil
}

// Accept re-reads the invite inside the transaction so two concurrent
// accepts cannot both grant; the loser sees ErrInviteNotPending.
func (s *service) Accept(ctx context.Context, caller identity.Caller, inviteID string) error {
	if err := caller.Require(); err != nil {
		return err
	}
	if caller.VerifiedEmail() == "" {
		return ErrEmailNotVerified
	}
	inv, err := s.loadInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	if _, err := next(ctx, inv, eventAccept, caller); err != nil {
		return err
	}

	at := s.now().UTC()
	err = s.store.InTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.loadInvite(ctx, inviteID)
		if err != nil {
			return err
		}
		to, err := next(ctx, inv, eventAccept, caller)
		if err != nil {
			return err
		}
		sub, err := svcutil.LoadSubscription(ctx, s.store, inv.SubscriptionID)
		if err != nil {
			return err
		}
		change, err := s.policy.Grant(sub, caller.UID, inv.Permissions)
		if err != nil {
			return err
		}
		if !change.Empty() {
			if err := s.store.UpdateMembership(ctx, sub.ID, change); err != nil {
				return err
			}
		}
		return s.store.TransitionInvite(ctx, inv.ID, model.InvitePending, to, caller.UID, at)
	})
	if err != nil {
		return s.transitionError(ctx, "accept invite", inviteID, err)
	}

	s.log.InfoContext(ctx, "invite accepted",
		logger.InviteID(inv.ID), logger.SubscriptionID(inv.SubscriptionID), logger.UserID(caller.UID))
	return nil
}

func (s *service) Reject(ctx context.Context, caller identity.Caller, inviteID string) error {
	if err := caller.Require(); err != nil {
		return err
	}
	if caller.VerifiedEmail() == "" {
		return ErrEmailNotVerified
	}
	inv, err := s.loadInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	to, err := next(ctx, inv, eventReject, caller)
	if err != nil {
		return err
	}
	if err := s.store.TransitionInvite(ctx, inv.ID, model.InvitePending, to, caller.UID, s.now().UTC()); err != nil {
		return s.transitionError(ctx, "reject invite", inv.ID, err)
	}

	s.log.InfoContext(ctx, "invite rejected", logger.InviteID(inv.ID), logger.UserID(caller.UID))
	return nil
}

func (s *service) Revoke(ctx context.Context, caller identity.Caller, subscriptionID, inviteID string) error {
	if err := caller.Require(); err != nil {
		return err
	}
	inv, err := s.loadInvite(ctx, inviteID)
	if err != nil {
		return err
	}
	sub, err := svcutil.LoadSubscription(ctx, s.store, subscriptionID)
	if err != nil {
		return err
	}
	if err := s.policy.RequireAdmin(sub, caller.UID); err != nil {
		return err
	}
	// An invite of another subscription is reported as missing, not forbidden.
	if inv.SubscriptionID != sub.ID {
		return ErrInviteNotFound
	}
	to, err := next(ctx, inv, eventRevoke, caller)
	if err != nil {
		return err
	}
	if err := s.store.TransitionInvite(ctx, inv.ID, model.InvitePending, to, caller.UID, s.now().UTC()); err != nil {
		return s.transitionError(ctx, "revoke invite", inv.ID, err)
	}

	s.log.InfoContext(ctx, "invite revoked",
		logger.InviteID(inv.ID), logger.SubscriptionID(sub.ID), logger.UserID(caller.UID))
	return nil
}

func (s *service) ListForCaller(ctx context.Context, caller identity.Caller) ([]*model.Invite, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	email := caller.VerifiedEmail()
	if email == "" {
		return nil, ErrEmailNotVerified
	}
	invites, err := s.store.ListPendingInvitesForEmail(ctx, email)
	if err != nil {
		return nil, svcutil.StoreError(err)
	}
	return invites, nil
}

// transitionError turns a lost compare-and-set into ErrInviteNotPending and
// passes classified errors through.
func (s *service) transitionError(ctx context.Context, op, inviteID string, err error) error {
	if errors.Is(err, store.ErrConflict) {
		return ErrInviteNotPending.With(err)
	}
	err = svcutil.StoreError(err)
	if apperr.IsKind(err, apperr.Internal) {
		s.log.ErrorContext(ctx, op+" failed", logger.InviteID(inviteID), logger.Error(err))
	}
	return err
}

func dedupe(groups []string) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if !slices.Contains(out, g) {
			out = append(out, g)
		}
	}
	return out
}
