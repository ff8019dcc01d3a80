package payment

import "github.com/dmitrymomot/saasbilling/pkg/apperr"

var (
	ErrPaymentMethodRequired = apperr.New(apperr.InvalidArgument, "payment.payment_method_required")
	ErrDefaultPaymentMethod  = apperr.New(apperr.FailedPrecondition, "payment.default_not_removable")
	ErrPaymentMethodNotFound = apperr.New(apperr.NotFound, "payment.payment_method_not_found")
	ErrNoCustomer            = apperr.New(apperr.FailedPrecondition, "payment.no_customer")
)
