package invite

import (
	"context"

	"github.com/dmitrymomot/saasbilling/pkg/identity"
	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/statemachine"
)

type event string

const (
	eventAccept event = "accept"
	eventReject event = "reject"
	eventRevoke event = "revoke"
)

// actor is what the guards see when an event fires.
type actor struct {
	invite *model.Invite
	caller identity.Caller
}

// addressee admits only the caller whose verified email is the invite's.
func addressee(_ context.Context, a actor) bool {
	email := a.caller.VerifiedEmail()
	return email != "" && email == identity.NormalizeEmail(a.invite.Email)
}

type transition = statemachine.Transition[model.InviteStatus, event, actor]

// Revocation is authorized by the access policy before the table is asked.
var lifecycle = statemachine.MustNew(
	transition{From: model.InvitePending, Event: eventAccept, To: model.InviteAccepted, Guards: []statemachine.Guard[actor]{addressee}},
	transition{From: model.InvitePending, Event: eventReject, To: model.InviteRejected, Guards: []statemachine.Guard[actor]{addressee}},
	transition{From: model.InvitePending, Event: eventRevoke, To: model.InviteRevoked},
)

// next maps table failures onto the invite error taxonomy.
func next(ctx context.Context, inv *model.Invite, ev event, caller identity.Caller) (model.InviteStatus, error) {
	to, err := lifecycle.Next(ctx, inv.Status, ev, actor{invite: inv, caller: caller})
	switch {
	case err == nil:
		return to, nil
	case statemachine.IsRejected(err):
		if caller.VerifiedEmail() == "" {
			return "", ErrEmailNotVerified.With(err)
		}
		return "", ErrEmailMismatch.With(err)
	default:
		return "", ErrInviteNotPending.With(err)
	}
}
