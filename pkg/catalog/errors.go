package catalog

import (
	"errors"

	"github.com/dmitrymomot/saasbilling/pkg/apperr"
)

// Construction errors. These surface at startup, never to callers.
var (
	ErrNoDefaultGroup        = errors.New("catalog: exactly one default permission group is required")
	ErrMultipleDefaultGroups = errors.New("catalog: more than one default permission group")
	ErrInvalidGroupName      = errors.New("catalog: invalid permission group name")
	ErrInvalidPlan           = errors.New("catalog: invalid plan")
	ErrDuplicatePlan         = errors.New("catalog: duplicate plan id")
	ErrSourceRead            = errors.New("catalog: failed to read source")
)

// Lookup errors returned while serving requests.
var (
	ErrUnknownPlan       = apperr.New(apperr.InvalidArgument, "catalog.unknown_plan")
	ErrUnknownPermission = apperr.New(apperr.InvalidArgument, "catalog.unknown_permission")
)
