package payment

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/saasbilling/pkg/access"
	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/logger"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/processor"
	"github.com/dmitrymomot/saasbilling/pkg/store"
	"github.com/dmitrymomot/saasbilling/svc/internal/svcutil"
)

const defaultInvoiceLimit = 24

// Service exposes the owner-only billing operations of a subscription.
// Nothing here is stored locally except what the reconciler projects; every
// read and write goes to the processor customer.
type Service interface {
	// CreateSetupIntent returns the client secret of a card setup intent.
	CreateSetupIntent(ctx context.Context, caller identity.Caller, subscriptionID string) (string, error)
	ListPaymentMethods(ctx context.Context, caller identity.Caller, subscriptionID string) ([]processor.PaymentMethod, error)
	SetDefault(ctx context.Context, caller identity.Caller, subscriptionID, paymentMethodID string) error
	// DeletePaymentMethod refuses to detach the current default.
	DeletePaymentMethod(ctx context.Context, caller identity.Caller, subscriptionID, paymentMethodID string) error
	GetBillingDetails(ctx context.Context, caller identity.Caller, subscriptionID string) (*processor.BillingDetails, error)
	UpdateBillingDetails(ctx context.Context, caller identity.Caller, subscriptionID string, details processor.BillingDetails) (*processor.BillingDetails, error)
	// ListInvoices returns the projected invoices, newest first.
	ListInvoices(ctx context.Context, caller identity.Caller, subscriptionID string) ([]*model.Invoice, error)
}

type Store interface {
	store.Subscriptions
	store.Invoices
}

type service struct {
	store        Store
	proc         processor.Processor
	policy       *access.Policy
	log          *slog.Logger
	invoiceLimit int
}

func NewService(st Store, proc processor.Processor, policy *access.Policy, opts ...ServiceOption) Service {
	if st == nil {
		panic("payment: store is required")
	}
	if proc == nil {
		panic("payment: processor is required")
	}
	if policy == nil {
		panic("payment: access policy is required")
	}
	s := &service{
		store:        st,
		proc:         proc,
		policy:       policy,
		log:          logger.Discard(),
		invoiceLimit: defaultInvoiceLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// customerOf checks ownership and resolves the processor customer from the
// processor subscription rather than the local copy.
func (s *service) customerOf(ctx context.Context, caller identity.Caller, subscriptionID string) (string, error) {
	if err := caller.Require(); err != nil {
		return "", err
	}
	sub, err := svcutil.LoadSubscription(ctx, s.store, subscriptionID)
	if err != nil {
		return "", err
	}
	if err := s.policy.RequireOwner(sub, caller.UID); err != nil {
		return "", err
	}
	psub, err := s.proc.GetSubscription(ctx, sub.ID)
	if err != nil {
		return "", s.fail(ctx, "get processor subscription", sub.ID, err)
	}
	if psub.CustomerID == "" {
		return "", ErrNoCustomer
	}
	return psub.CustomerID, nil
}

func (s *service) CreateSetupIntent(ctx context.Context, caller identity.Caller, subscriptionID string) (string, error) {
	customerID, err := s.customerOf(ctx, caller, subscriptionID)
	if err != nil {
		return "", err
	}
	secret, err := s.proc.CreateSetupIntent(ctx, customerID)
	if err != nil {
		return "", s.fail(ctx, "create setup intent", subscriptionID, err)
	}
	return secret, nil
}

func (s *service) ListPaymentMethods(ctx context.Context, caller identity.Caller, subscriptionID string) ([]processor.PaymentMethod, error) {
	customerID, err := s.customerOf(ctx, caller, subscriptionID)
	if err != nil {
		return nil, err
	}
	cus, err := s.proc.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, s.fail(ctx, "get customer", subscriptionID, err)
	}
	methods, err := s.proc.ListCardPaymentMethods(ctx, customerID)
	if err != nil {
		return nil, s.fail(ctx, "list payment methods", subscriptionID, err)
	}
	for i := range methods {
		methods[i].IsDefault = methods[i].ID == cus.DefaultPaymentMethod
	}
	return methods, nil
}

func (s *service) SetDefault(ctx context.Context, caller identity.Caller, subscriptionID, paymentMethodID string) error {
	if paymentMethodID == "" {
		return ErrPaymentMethodRequired
	}
	customerID, err := s.customerOf(ctx, caller, subscriptionID)
	if err != nil {
		return err
	}
	if err := s.requireAttached(ctx, subscriptionID, customerID, paymentMethodID); err != nil {
		return err
	}
	if _, err := s.proc.UpdateCustomer(ctx, customerID, processor.CustomerParams{
		DefaultPaymentMethod: paymentMethodID,
	}); err != nil {
		return s.fail(ctx, "set default payment method", subscriptionID, err)
	}
	s.log.InfoContext(ctx, "default payment method changed",
		logger.SubscriptionID(subscriptionID), logger.UserID(caller.UID))
	return nil
}

func (s *service) DeletePaymentMethod(ctx context.Context, caller identity.Caller, subscriptionID, paymentMethodID string) error {
	if paymentMethodID == "" {
		return ErrPaymentMethodRequired
	}
	customerID, err := s.customerOf(ctx, caller, subscriptionID)
	if err != nil {
		return err
	}
	if err := s.requireAttached(ctx, subscriptionID, customerID, paymentMethodID); err != nil {
		return err
	}
	cus, err := s.proc.GetCustomer(ctx, customerID)
	if err != nil {
		return s.fail(ctx, "get customer", subscriptionID, err)
	}
	if cus.DefaultPaymentMethod == paymentMethodID {
		return ErrDefaultPaymentMethod
	}
	if err := s.proc.DetachPaymentMethod(ctx, paymentMethodID); err != nil {
		if errors.Is(err, processor.ErrNotFound) {
			return ErrPaymentMethodNotFound.With(err)
		}
		return s.fail(ctx, "detach payment method", subscriptionID, err)
	}
	s.log.InfoContext(ctx, "payment method detached",
		logger.SubscriptionID(subscriptionID), logger.UserID(caller.UID))
	return nil
}

// requireAttached reports ErrPaymentMethodNotFound unless the payment method
// belongs to customerID. Processor ids are global to the platform account.
func (s *service) requireAttached(ctx context.Context, subscriptionID, customerID, paymentMethodID string) error {
	methods, err := s.proc.ListCardPaymentMethods(ctx, customerID)
	if err != nil {
		return s.fail(ctx, "list payment methods", subscriptionID, err)
	}
	if !slices.ContainsFunc(methods, func(m processor.PaymentMethod) bool { return m.ID == paymentMethodID }) {
		return ErrPaymentMethodNotFound
	}
	return nil
}

func (s *service) GetBillingDetails(ctx context.Context, caller identity.Caller, subscriptionID string) (*processor.BillingDetails, error) {
	customerID, err := s.customerOf(ctx, caller, subscriptionID)
	if err != nil {
		return nil, err
	}
	cus, err := s.proc.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, s.fail(ctx, "get customer", subscriptionID, err)
	}
	return &cus.BillingDetails, nil
}

func (s *service) UpdateBillingDetails(ctx context.Context, caller identity.Caller, subscriptionID string, details processor.BillingDetails) (*processor.BillingDetails, error) {
	customerID, err := s.customerOf(ctx, caller, subscriptionID)
	if err != nil {
		return nil, err
	}
	cus, err := s.proc.UpdateCustomer(ctx, customerID, processor.CustomerParams{
		BillingDetails:        details,
		ReplaceBillingDetails: true,
	})
	if err != nil {
		return nil, s.fail(ctx, "update billing details", subscriptionID, err)
	}
	return &cus.BillingDetails, nil
}

func (s *service) ListInvoices(ctx context.Context, caller identity.Caller, subscriptionID string) ([]*model.Invoice, error) {
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
	invoices, err := s.store.ListInvoices(ctx, sub.ID, s.invoiceLimit)
	if err != nil {
		return nil, svcutil.StoreError(err)
	}
	return invoices, nil
}

func (s *service) fail(ctx context.Context, op, subscriptionID string, err error) error {
	s.log.ErrorContext(ctx, op+" failed", logger.SubscriptionID(subscriptionID), logger.Error(err))
	return svcutil.ProcessorError(err)
}
