package invite

import "github.com/dmitrymomot/saasbilling/pkg/apperr"

var (
	ErrEmailRequired    = apperr.New(apperr.InvalidArgument, "invite.email_required")
	ErrInviteNotFound   = apperr.New(apperr.NotFound, "invite.not_found")
	ErrInviteNotPending = apperr.New(apperr.FailedPrecondition, "invite.not_pending")
	ErrDuplicateInvite  = apperr.New(apperr.AlreadyExists, "invite.duplicate_pending")
	ErrAlreadyMember    = apperr.New(apperr.AlreadyExists, "invite.already_member")
	ErrEmailNotVerified = apperr.New(apperr.PermissionDenied, "invite.email_not_verified")
	ErrEmailMismatch    = apperr.New(apperr.PermissionDenied, "invite.email_mismatch")
)
