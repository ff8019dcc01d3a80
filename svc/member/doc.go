// Package member implements the admin-facing membership operations of a
// subscription and the caller's own profile.
//
// Membership changes are computed by the access policy and written as
// per-user deltas, so two admins editing different users at the same time
// never lose each other's change.
package member
