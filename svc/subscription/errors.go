package subscription

import "github.com/dmitrymomot/saasbilling/pkg/apperr"

var (
	ErrEmailRequired         = apperr.New(apperr.FailedPrecondition, "subscription.email_required")
	ErrPaymentMethodRequired = apperr.New(apperr.InvalidArgument, "subscription.payment_method_required")
	ErrConfirmationMismatch  = apperr.New(apperr.InvalidArgument, "subscription.confirmation_mismatch")
	ErrNoCustomer            = apperr.New(apperr.FailedPrecondition, "subscription.no_customer")
	ErrNewOwnerRequired      = apperr.New(apperr.InvalidArgument, "subscription.new_owner_required")
	ErrNewOwnerNotFound      = apperr.New(apperr.FailedPrecondition, "subscription.new_owner_not_found")
	ErrNewOwnerNoEmail       = apperr.New(apperr.FailedPrecondition, "subscription.new_owner_no_email")
	ErrInvalidSetting        = apperr.New(apperr.InvalidArgument, "subscription.invalid_setting")
)
