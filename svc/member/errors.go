package member

import "github.com/dmitrymomot/saasbilling/pkg/apperr"

var (
	ErrUserRequired   = apperr.New(apperr.InvalidArgument, "member.user_required")
	ErrNotMember      = apperr.New(apperr.NotFound, "member.not_member")
	ErrEmailRequired  = apperr.New(apperr.FailedPrecondition, "member.email_required")
	ErrInvalidPage    = apperr.New(apperr.InvalidArgument, "member.invalid_page")
	ErrInvalidProfile = apperr.New(apperr.InvalidArgument, "member.invalid_profile")
)
