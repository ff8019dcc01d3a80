// Package subscription implements the subscription lifecycle: creation, plan
// changes, cancellation, ownership transfer and owner-managed settings.
//
// Only the owner may change plan, cancel, transfer or edit settings. The only
// status this package ever writes is canceled; every other status arrives
// through the webhook reconciler.
package subscription
