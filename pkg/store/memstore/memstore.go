package memstore

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/store"
)

// Store is an in-memory store.Store. Transactions hold the write lock for
// their whole duration and roll back to a snapshot on error.
type Store struct {
	mu       sync.RWMutex
	subs     map[string]*model.Subscription
	invites  map[string]*model.Invite
	invoices map[string]map[string]*model.Invoice
	users    map[string]*model.User
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		subs:     map[string]*model.Subscription{},
		invites:  map[string]*model.Invite{},
		invoices: map[string]map[string]*model.Invoice{},
		users:    map[string]*model.User{},
	}
}

type txKey struct{ s *Store }

func (s *Store) inTx(ctx context.Context) bool {
	return ctx.Value(txKey{s}) != nil
}

func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{s}, true)); err != nil {
		s.subs, s.invites, s.invoices, s.users = snap.subs, snap.invites, snap.invoices, snap.users
		return err
	}
	return nil
}

func (s *Store) snapshot() *Store {
	cp := New()
	for k, v := range s.subs {
		cp.subs[k] = v.Clone()
	}
	for k, v := range s.invites {
		cp.invites[k] = v.Clone()
	}
	for sub, invs := range s.invoices {
		m := make(map[string]*model.Invoice, len(invs))
		for k, v := range invs {
			inv := *v
			m[k] = &inv
		}
		cp.invoices[sub] = m
	}
	for k, v := range s.users {
		u := *v
		cp.users[k] = &u
	}
	return cp
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	defer s.rlock(ctx)()
	sub, ok := s.subs[id]
	if !ok {
		return nil, fmt.Errorf("subscription %q: %w", id, store.ErrNotFound)
	}
	return sub.Clone(), nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	defer s.lock(ctx)()
	if _, ok := s.subs[sub.ID]; ok {
		return fmt.Errorf("subscription %q: %w", sub.ID, store.ErrDuplicate)
	}
	s.subs[sub.ID] = sub.Clone()
	return nil
}

func (s *Store) mutate(ctx context.Context, id string, fn func(*model.Subscription)) error {
	defer s.lock(ctx)()
	sub, ok := s.subs[id]
	if !ok {
		return fmt.Errorf("subscription %q: %w", id, store.ErrNotFound)
	}
	fn(sub)
	return nil
}

func (s *Store) UpdateMembership(ctx context.Context, id string, change model.MembershipChange) error {
	return s.mutate(ctx, id, func(sub *model.Subscription) { sub.ApplyMembership(change) })
}

func (s *Store) SetPlan(ctx context.Context, id, planID string, items map[string]string) error {
	return s.mutate(ctx, id, func(sub *model.Subscription) {
		sub.PlanID = planID
		sub.StripeItems = maps.Clone(items)
	})
}

func (s *Store) MarkCanceled(ctx context.Context, id string, at time.Time) error {
	return s.mutate(ctx, id, func(sub *model.Subscription) {
		end := at.Unix()
		sub.Status = model.StatusCanceled
		sub.CanceledAt = &at
		sub.SubscriptionEnd = &end
	})
}

func (s *Store) SetOwner(ctx context.Context, id, ownerID string) error {
	return s.mutate(ctx, id, func(sub *model.Subscription) { sub.OwnerID = ownerID })
}

func (s *Store) UpdateSettings(ctx context.Context, id string, settings map[string]string) error {
	return s.mutate(ctx, id, func(sub *model.Subscription) {
		if sub.Settings == nil {
			sub.Settings = map[string]string{}
		}
		maps.Copy(sub.Settings, settings)
	})
}

func (s *Store) ApplyProcessorState(ctx context.Context, id string, st model.ProcessorState) error {
	return s.mutate(ctx, id, func(sub *model.Subscription) {
		sub.StripeCustomerID = st.CustomerID
		sub.Status = st.Status
		sub.StripeItems = maps.Clone(st.Items)
		sub.CurrentPeriodStart = ptrCopy(st.CurrentPeriodStart)
		sub.CurrentPeriodEnd = ptrCopy(st.CurrentPeriodEnd)
		sub.SubscriptionStart = ptrCopy(st.SubscriptionStart)
		sub.SubscriptionEnd = ptrCopy(st.SubscriptionEnd)
		at := st.EventTime
		sub.SyncedAt = &at
	})
}

func (s *Store) SetLatestInvoice(ctx context.Context, id, invoiceID string) error {
	return s.mutate(ctx, id, func(sub *model.Subscription) { sub.LatestInvoice = invoiceID })
}

func (s *Store) CreateInvite(ctx context.Context, inv *model.Invite) error {
	defer s.lock(ctx)()
	if inv.Status == model.InvitePending {
		for _, existing := range s.invites {
			if existing.Status == model.InvitePending &&
				existing.SubscriptionID == inv.SubscriptionID &&
				strings.EqualFold(existing.Email, inv.Email) {
				return fmt.Errorf("pending invite for %q: %w", inv.Email, store.ErrDuplicate)
			}
		}
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	s.invites[inv.ID] = inv.Clone()
	return nil
}

func (s *Store) GetInvite(ctx context.Context, id string) (*model.Invite, error) {
	defer s.rlock(ctx)()
	inv, ok := s.invites[id]
	if !ok {
		return nil, fmt.Errorf("invite %q: %w", id, store.ErrNotFound)
	}
	return inv.Clone(), nil
}

func (s *Store) FindPendingInvite(ctx context.Context, subscriptionID, email string) (*model.Invite, error) {
	defer s.rlock(ctx)()
	for _, inv := range s.invites {
		if inv.Status == model.InvitePending && inv.SubscriptionID == subscriptionID && strings.EqualFold(inv.Email, email) {
			return inv.Clone(), nil
		}
	}
	return nil, fmt.Errorf("pending invite for %q: %w", email, store.ErrNotFound)
}

func (s *Store) ListPendingInvites(ctx context.Context, subscriptionID string) ([]*model.Invite, error) {
	return s.listInvites(ctx, func(inv *model.Invite) bool {
		return inv.SubscriptionID == subscriptionID
	})
}

func (s *Store) ListPendingInvitesForEmail(ctx context.Context, email string) ([]*model.Invite, error) {
	return s.listInvites(ctx, func(inv *model.Invite) bool {
		return strings.EqualFold(inv.Email, email)
	})
}

func (s *Store) listInvites(ctx context.Context, match func(*model.Invite) bool) ([]*model.Invite, error) {
	defer s.rlock(ctx)()
	var out []*model.Invite
	for _, inv := range s.invites {
		if inv.Status == model.InvitePending && match(inv) {
			out = append(out, inv.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *model.Invite) int {
		return b.CreateTime.Compare(a.CreateTime)
	})
	return out, nil
}

func (s *Store) TransitionInvite(ctx context.Context, id string, from, to model.InviteStatus, actor string, at time.Time) error {
	defer s.lock(ctx)()
	inv, ok := s.invites[id]
	if !ok {
		return fmt.Errorf("invite %q: %w", id, store.ErrNotFound)
	}
	if inv.Status != from {
		return fmt.Errorf("invite %q is %s: %w", id, inv.Status, store.ErrConflict)
	}
	inv.Stamp(to, actor, at)
	return nil
}

func (s *Store) UpsertInvoice(ctx context.Context, inv *model.Invoice) error {
	defer s.lock(ctx)()
	m, ok := s.invoices[inv.SubscriptionID]
	if !ok {
		m = map[string]*model.Invoice{}
		s.invoices[inv.SubscriptionID] = m
	}
	cp := *inv
	m[inv.ID] = &cp
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, subscriptionID, invoiceID string) (*model.Invoice, error) {
	defer s.rlock(ctx)()
	inv, ok := s.invoices[subscriptionID][invoiceID]
	if !ok {
		return nil, fmt.Errorf("invoice %q: %w", invoiceID, store.ErrNotFound)
	}
	cp := *inv
	return &cp, nil
}

func (s *Store) ListInvoices(ctx context.Context, subscriptionID string, limit int) ([]*model.Invoice, error) {
	defer s.rlock(ctx)()
	out := make([]*model.Invoice, 0, len(s.invoices[subscriptionID]))
	for _, inv := range s.invoices[subscriptionID] {
		cp := *inv
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *model.Invoice) int {
		return cmp.Or(cmp.Compare(b.Created, a.Created), strings.Compare(a.ID, b.ID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	defer s.rlock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", id, store.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	defer s.rlock(ctx)()
	for _, u := range s.users {
		if u.Email != "" && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user with email %q: %w", email, store.ErrNotFound)
}

func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	defer s.lock(ctx)()
	cp := *u
	if existing, ok := s.users[u.ID]; ok && cp.CreatedAt.IsZero() {
		cp.CreatedAt = existing.CreatedAt
	}
	s.users[u.ID] = &cp
	return nil
}

func ptrCopy(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
