// Package invite implements subscription invitations.
//
// An invite is created pending by an admin and then accepted or rejected by
// the addressee, or revoked by an admin. Only the caller whose verified email
// matches the invite may accept or reject it. Accepting grants the invite's
// permission groups plus the default group and marks the invite accepted in a
// single store transaction, so a repeated accept fails with a
// failed-precondition error and never grants twice.
//
// At most one pending invite exists per email and subscription. Once it is
// rejected or revoked the address can be invited again.
package invite
