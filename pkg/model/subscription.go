package model

import (
	"maps"
	"slices"
	"time"
)

// Subscription statuses mirrored from the processor. Only StatusCanceled is
// ever written locally; everything else arrives through the reconciler.
const (
	StatusActive            = "active"
	StatusTrialing          = "trialing"
	StatusPastDue           = "past_due"
	StatusCanceled          = "canceled"
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusUnpaid            = "unpaid"
	StatusPaused            = "paused"
)

// Subscription is the tenant record. Its ID equals the processor subscription id.
// Period fields hold unix seconds exactly as the processor reports them.
type Subscription struct {
	ID                   string              `bson:"_id" json:"id"`
	OwnerID              string              `bson:"owner_id" json:"owner_id"`
	PlanID               string              `bson:"plan_id" json:"plan_id"`
	Status               string              `bson:"status" json:"status"`
	Permissions          map[string][]string `bson:"permissions" json:"permissions"`
	StripeCustomerID     string              `bson:"stripe_customer_id" json:"stripe_customer_id"`
	StripeSubscriptionID string              `bson:"stripe_subscription_id" json:"stripe_subscription_id"`
	StripeItems          map[string]string   `bson:"stripe_items" json:"stripe_items"`
	Settings             map[string]string   `bson:"settings,omitempty" json:"settings,omitempty"`
	CurrentPeriodStart   *int64              `bson:"subscription_current_period_start" json:"subscription_current_period_start"`
	CurrentPeriodEnd     *int64              `bson:"subscription_current_period_end" json:"subscription_current_period_end"`
	SubscriptionStart    *int64              `bson:"subscription_start" json:"subscription_start"`
	SubscriptionEnd      *int64              `bson:"subscription_end" json:"subscription_end"`
	LatestInvoice        string              `bson:"latest_invoice,omitempty" json:"latest_invoice,omitempty"`
	CreationTime         time.Time           `bson:"creation_time" json:"creation_time"`
	CanceledAt           *time.Time          `bson:"canceled_at,omitempty" json:"canceled_at,omitempty"`
	// SyncedAt is the processor event time of the last reconciled change.
	SyncedAt *int64 `bson:"synced_at,omitempty" json:"synced_at,omitempty"`
}

// Members returns the distinct user ids present in any permission group,
// sorted for stable output.
func (s *Subscription) Members() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, uids := range s.Permissions {
		for _, uid := range uids {
			if _, ok := seen[uid]; ok {
				continue
			}
			seen[uid] = struct{}{}
			out = append(out, uid)
		}
	}
	slices.Sort(out)
	return out
}

// GroupsOf returns the sorted names of the groups uid belongs to.
func (s *Subscription) GroupsOf(uid string) []string {
	var out []string
	for g, uids := range s.Permissions {
		if slices.Contains(uids, uid) {
			out = append(out, g)
		}
	}
	slices.Sort(out)
	return out
}

// Setting returns the named setting or fallback when it is unset or blank.
func (s *Subscription) Setting(name, fallback string) string {
	if v := s.Settings[name]; v != "" {
		return v
	}
	return fallback
}

// Clone returns a deep copy.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Permissions != nil {
		cp.Permissions = make(map[string][]string, len(s.Permissions))
		for g, uids := range s.Permissions {
			cp.Permissions[g] = slices.Clone(uids)
		}
	}
	cp.StripeItems = maps.Clone(s.StripeItems)
	cp.Settings = maps.Clone(s.Settings)
	cp.CurrentPeriodStart = clonePtr(s.CurrentPeriodStart)
	cp.CurrentPeriodEnd = clonePtr(s.CurrentPeriodEnd)
	cp.SubscriptionStart = clonePtr(s.SubscriptionStart)
	cp.SubscriptionEnd = clonePtr(s.SubscriptionEnd)
	cp.CanceledAt = clonePtr(s.CanceledAt)
	cp.SyncedAt = clonePtr(s.SyncedAt)
	return &cp
}

// ProcessorState is the subset of a subscription owned by the processor and
// projected verbatim by the reconciler.
type ProcessorState struct {
	CustomerID         string
	Status             string
	Items              map[string]string
	CurrentPeriodStart *int64
	CurrentPeriodEnd   *int64
	SubscriptionStart  *int64
	SubscriptionEnd    *int64
	EventTime          int64
}

// MembershipChange is the delta an access-control mutation produced for one
// user: the groups to add them to and the groups to remove them from.
type MembershipChange struct {
	UserID string
	Add    []string
	Remove []string
}

// Empty reports whether the change would not alter anything.
func (c MembershipChange) Empty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ApplyMembership adds and removes c.UserID in the named groups. Adding is
// idempotent and removing from a group the user is absent from is a no-op.
func (s *Subscription) ApplyMembership(c MembershipChange) {
	if s.Permissions == nil {
		s.Permissions = map[string][]string{}
	}
	for _, g := range c.Add {
		if !slices.Contains(s.Permissions[g], c.UserID) {
			s.Permissions[g] = append(s.Permissions[g], c.UserID)
		}
	}
	for _, g := range c.Remove {
		uids := s.Permissions[g]
		if i := slices.Index(uids, c.UserID); i >= 0 {
			s.Permissions[g] = slices.Delete(slices.Clone(uids), i, i+1)
		}
	}
}
