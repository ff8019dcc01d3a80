package access

import "github.com/dmitrymomot/saasbilling/pkg/apperr"

var (
	ErrNotOwner          = apperr.New(apperr.PermissionDenied, "access.owner_required")
	ErrNotAdmin          = apperr.New(apperr.PermissionDenied, "access.admin_required")
	ErrNoAccess          = apperr.New(apperr.PermissionDenied, "access.member_required")
	ErrOwnerNotRemovable = apperr.New(apperr.FailedPrecondition, "access.owner_not_removable")
)
