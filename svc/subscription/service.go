package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/logger"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/processor"
	"github.com/dmitrymomot/saasbilling/pkg/store"
	"github.com/dmitrymomot/saasbilling/svc/internal/svcutil"
)

// Service manages the subscription lifecycle.
//
// Every mutating operation follows the same two steps: the processor call is
// made first and its result is then projected into the local document. If the
// second step fails the processor is ahead of the store; the webhook
// reconciler overwrites processor-owned fields on the next event, and each
// operation is written so that simply retrying it converges.
type Service interface {
	// Create opens a processor customer and subscription for the caller and
	// stores the subscription with the caller as owner.
	Create(ctx context.Context, caller identity.Caller, in CreateInput) (*CreateResult, error)
	// Get returns the subscription to any member with default access.
	Get(ctx context.Context, caller identity.Caller, subscriptionID string) (*model.Subscription, error)
	ChangePlan(ctx context.Context, caller identity.Caller, subscriptionID string, in ChangePlanInput) (*model.Subscription, error)
	// Cancel requires confirmation to repeat the subscription id.
	Cancel(ctx context.Context, caller identity.Caller, subscriptionID, confirmation string) error
	TransferOwnership(ctx context.Context, caller identity.Caller, subscriptionID, newOwnerID string) error
	UpdateSettings(ctx context.Context, caller identity.Caller, subscriptionID string, settings map[string]string) error
}

// BillingInfo is a payment method collected by the client together with the
// billing details to store on the customer.
type BillingInfo struct {
	PaymentMethodID string                   `json:"payment_method_id"`
	Details         processor.BillingDetails `json:"billing_details"`
}

type CreateInput struct {
	PlanID      string       `json:"plan_id"`
	BillingInfo *BillingInfo `json:"billing_info,omitempty"`
}

// CreateResult carries the client secret only when the first payment needs
// confirmation by the customer.
type CreateResult struct {
	SubscriptionID string `json:"subscription_id"`
	CustomerID     string `json:"customer_id"`
	ClientSecret   string `json:"client_secret,omitempty"`
}

type ChangePlanInput struct {
	PlanID      string       `json:"plan_id"`
	BillingInfo *BillingInfo `json:"billing_info,omitempty"`
}

// Store is the part of the document store the service needs.
type Store interface {
	store.Subscriptions
	store.Users
}

type service struct {
	store  Store
	proc   processor.Processor
	policy *access.Policy
	log    *slog.Logger
	now    func() time.Time
}

// NewService panics if any dependency is nil.
func NewService(st Store, proc processor.Processor, policy *access.Policy, opts ...ServiceOption) Service {
	if st == nil {
		panic("subscription: store is required")
	}
	if proc == nil {
		panic("subscription: processor is required")
	}
	if policy == nil {
		panic("subscription: access policy is required")
	}
	s := &service{
		store:  st,
		proc:   proc,
		policy: policy,
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, caller identity.Caller, in CreateInput) (*CreateResult, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	email := identity.NormalizeEmail(caller.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	plan, err := s.policy.Catalog().Plan(in.PlanID)
	if err != nil {
		return nil, err
	}

	params := processor.CustomerParams{Email: email}
	if bi := in.BillingInfo; bi != nil {
		if bi.PaymentMethodID == "" {
			return nil, ErrPaymentMethodRequired
		}
		params.BillingDetails = bi.Details
		params.PaymentMethodID = bi.PaymentMethodID
		params.DefaultPaymentMethod = bi.PaymentMethodID
	} else {
		params.BillingDetails.Name = cmpOr(caller.Name, email)
	}

	customer, err := s.proc.CreateCustomer(ctx, params)
	if err != nil {
		s.log.ErrorContext(ctx, "create customer failed", logger.UserID(caller.UID), logger.Error(err))
		return nil, svcutil.ProcessorError(err)
	}
	psub, err := s.proc.CreateSubscription(ctx, customer.ID, plan.PriceIDs)
	if err != nil {
		s.log.ErrorContext(ctx, "create processor subscription failed", logger.UserID(caller.UID), logger.Error(err))
		return nil, svcutil.ProcessorError(err)
	}

	start, end := psub.Period()
	started := psub.StartDate
	sub := &model.Subscription{
		ID:                   psub.ID,
		OwnerID:              caller.UID,
		PlanID:               plan.ID,
		Status:               psub.Status,
		Permissions:          s.policy.InitialPermissions(caller.UID),
		StripeCustomerID:     customer.ID,
		StripeSubscriptionID: psub.ID,
		StripeItems:          psub.ItemMap(),
		CurrentPeriodStart:   start,
		CurrentPeriodEnd:     end,
		SubscriptionStart:    &started,
		SubscriptionEnd:      psub.EndedAt,
		CreationTime:         s.now().UTC(),
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		// Without a local document the reconciler has nothing to converge, so
		// the processor subscription is canceled rather than left orphaned.
		s.log.ErrorContext(ctx, "persist subscription failed, canceling at processor",
			logger.SubscriptionID(psub.ID), logger.UserID(caller.UID), logger.Error(err))
		if cerr := s.proc.CancelSubscription(context.WithoutCancel(ctx), psub.ID); cerr != nil {
			s.log.ErrorContext(ctx, "compensating cancel failed", logger.SubscriptionID(psub.ID), logger.Error(cerr))
		}
		return nil, svcutil.StoreError(err)
	}

	s.log.InfoContext(ctx, "subscription created",
		logger.SubscriptionID(sub.ID), logger.UserID(caller.UID), slog.String("plan_id", plan.ID))

	return &CreateResult{
		SubscriptionID: sub.ID,
		CustomerID:     customer.ID,
		ClientSecret:   psub.PaymentSecret,
	}, nil
}

func (s *service) Get(ctx context.Context, caller identity.Caller, subscriptionID string) (*model.Subscription, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	sub, err := svcutil.LoadSubscription(ctx, s.store, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireDefaultAccess(sub, caller.UID); err != nil {
		return nil, err
	}
	return sub, nil
}

// loadOwned loads a subscription and checks the caller owns it.
func (s *service) loadOwned(ctx context.Context, caller identity.Caller, subscriptionID string) (*model.Subscription, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	sub, err := svcutil.LoadSubscription(ctx, s.store, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.RequireOwner(sub, caller.UID); err != nil {
		return nil, err
	}
	return sub, nil
}

// ChangePlan adds the new plan's prices before removing the old ones so the
// subscription never has zero items. The processor's current items are read
// first, which makes a retry after a partial failure skip the prices already
// added and tolerate items already deleted.
func (s *service) ChangePlan(ctx context.Context, caller identity.Caller, subscriptionID string, in ChangePlanInput) (*model.Subscription, error) {
	sub, err := s.loadOwned(ctx, caller, subscriptionID)
	if err != nil {
		return nil, err
	}
	plan, err := s.policy.Catalog().Plan(in.PlanID)
	if err != nil {
		return nil, err
	}

	if bi := in.BillingInfo; bi != nil {
		if bi.PaymentMethodID == "" {
			return nil, ErrPaymentMethodRequired
		}
		if sub.StripeCustomerID == "" {
			return nil, ErrNoCustomer
		}
		if err := s.proc.AttachPaymentMethod(ctx, sub.StripeCustomerID, bi.PaymentMethodID); err != nil {
			return nil, s.processorFailure(ctx, "attach payment method", sub.ID, err)
		}
		if _, err := s.proc.UpdateCustomer(ctx, sub.StripeCustomerID, processor.CustomerParams{
			DefaultPaymentMethod: bi.PaymentMethodID,
		}); err != nil {
			return nil, s.processorFailure(ctx, "set default payment method", sub.ID, err)
		}
	}

	current, err := s.proc.GetSubscription(ctx, sub.ID)
	if err != nil {
		return nil, s.processorFailure(ctx, "get processor subscription", sub.ID, err)
	}
	existing := current.ItemMap()

	items := make(map[string]string, len(plan.PriceIDs))
	for _, price := range plan.PriceIDs {
		if itemID, ok := existing[price]; ok {
			items[price] = itemID
			continue
		}
		item, err := s.proc.AddItem(ctx, sub.ID, price)
		if err != nil {
			return nil, s.processorFailure(ctx, "add subscription item", sub.ID, err)
		}
		items[price] = item.ID
	}

	for _, item := range current.Items {
		if slices.Contains(plan.PriceIDs, item.PriceID) {
			continue
		}
		err := s.proc.DeleteItem(ctx, item.ID, item.Metered)
		if err != nil && !errors.Is(err, processor.ErrNotFound) {
			return nil, s.processorFailure(ctx, "delete subscription item", sub.ID, err)
		}
	}

	if err := s.store.SetPlan(ctx, sub.ID, plan.ID, items); err != nil {
		s.log.ErrorContext(ctx, "persist plan change failed", logger.SubscriptionID(sub.ID), logger.Error(err))
		return nil, svcutil.StoreError(err)
	}

	sub.PlanID = plan.ID
	sub.StripeItems = items
	s.log.InfoContext(ctx, "plan changed",
		logger.SubscriptionID(sub.ID), logger.UserID(caller.UID), slog.String("plan_id", plan.ID))
	return sub, nil
}

// Cancel is a no-op for a subscription already canceled locally.
func (s *service) Cancel(ctx context.Context, caller identity.Caller, subscriptionID, confirmation string) error {
	sub, err := s.loadOwned(ctx, caller, subscriptionID)
	if err != nil {
		return err
	}
	if confirmation != sub.ID {
		return ErrConfirmationMismatch
	}
	if sub.Status == model.StatusCanceled {
		return nil
	}

	if err := s.proc.CancelSubscription(ctx, sub.ID); err != nil {
		return s.processorFailure(ctx, "cancel subscription", sub.ID, err)
	}
	if err := s.store.MarkCanceled(ctx, sub.ID, s.now().UTC()); err != nil {
		s.log.ErrorContext(ctx, "persist cancellation failed", logger.SubscriptionID(sub.ID), logger.Error(err))
		return svcutil.StoreError(err)
	}

	s.log.InfoContext(ctx, "subscription canceled", logger.SubscriptionID(sub.ID), logger.UserID(caller.UID))
	return nil
}

// TransferOwnership leaves group membership untouched; the new owner keeps
// their groups and gains the owner override.
func (s *service) TransferOwnership(ctx context.Context, caller identity.Caller, subscriptionID, newOwnerID string) error {
	sub, err := s.loadOwned(ctx, caller, subscriptionID)
	if err != nil {
		return err
	}
	if newOwnerID == "" {
		return ErrNewOwnerRequired
	}
	if newOwnerID == sub.OwnerID {
		return nil
	}
	if sub.StripeCustomerID == "" {
		return ErrNoCustomer
	}

	user, err := s.store.GetUser(ctx, newOwnerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNewOwnerNotFound.With(err)
		}
		return svcutil.StoreError(err)
	}
	email := identity.NormalizeEmail(user.Email)
	if email == "" {
		return ErrNewOwnerNoEmail
	}

	if _, err := s.proc.UpdateCustomer(ctx, sub.StripeCustomerID, processor.CustomerParams{Email: email}); err != nil {
		return s.processorFailure(ctx, "update customer email", sub.ID, err)
	}
	if err := s.store.SetOwner(ctx, sub.ID, newOwnerID); err != nil {
		s.log.ErrorContext(ctx, "persist owner failed", logger.SubscriptionID(sub.ID), logger.Error(err))
		return svcutil.StoreError(err)
	}

	s.log.InfoContext(ctx, "ownership transferred",
		logger.SubscriptionID(sub.ID), logger.UserID(caller.UID), slog.String("new_owner_id", newOwnerID))
	return nil
}

// UpdateSettings merges settings into the subscription's settings map.
func (s *service) UpdateSettings(ctx context.Context, caller identity.Caller, subscriptionID string, settings map[string]string) error {
	sub, err := s.loadOwned(ctx, caller, subscriptionID)
	if err != nil {
		return err
	}
	for k := range settings {
		if k == "" || strings.Contains(k, ".") || strings.HasPrefix(k, "$") {
			return ErrInvalidSetting.With(fmt.Errorf("invalid setting name %q", k))
		}
	}
	if err := s.store.UpdateSettings(ctx, sub.ID, settings); err != nil {
		return svcutil.StoreError(err)
	}
	return nil
}

func (s *service) processorFailure(ctx context.Context, op, subscriptionID string, err error) error {
	s.log.ErrorContext(ctx, op+" failed", logger.SubscriptionID(subscriptionID), logger.Error(err))
	return svcutil.ProcessorError(err)
}

func cmpOr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
