// Package apperr defines the error taxonomy shared by every caller-facing
// operation: Unauthenticated, PermissionDenied, NotFound, InvalidArgument,
// AlreadyExists, FailedPrecondition and Internal.
//
// Services declare their sentinels with New and return them directly, or wrap
// collaborator failures with Wrap:
//
//	var ErrInviteNotPending = apperr.New(apperr.FailedPrecondition, "invite.not_pending")
//
//	if inv.Status != model.InviteStatusPending {
//		return ErrInviteNotPending
//	}
//
// The transport layer classifies any returned error with KindOf and maps it to
// a status code with HTTPStatus. Errors that carry no classification are
// treated as Internal so that collaborator details never leak as a more
// specific kind.
package apperr
