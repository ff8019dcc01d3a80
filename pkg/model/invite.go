package model

import (
	"slices"
	"time"
)

// InviteStatus is the state of an invitation. Every status except
// InvitePending is terminal.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
	InviteRevoked  InviteStatus = "revoked"
)

// Terminal reports whether no further transition is possible.
func (s InviteStatus) Terminal() bool { return s != InvitePending }

// Invite grants permission groups on a subscription to whoever proves
// ownership of Email. SubscriptionName and HostName are snapshots taken when
// the invite was created.
type Invite struct {
	ID               string       `bson:"_id" json:"id"`
	Email            string       `bson:"email" json:"email"`
	SubscriptionID   string       `bson:"subscription_id" json:"subscription_id"`
	SubscriptionName string       `bson:"subscription_name" json:"subscription_name"`
	HostUID          string       `bson:"host_uid" json:"host_uid"`
	HostName         string       `bson:"host_name" json:"host_name"`
	Permissions      []string     `bson:"permissions" json:"permissions"`
	Status           InviteStatus `bson:"status" json:"status"`
	CreateTime       time.Time    `bson:"create_time" json:"create_time"`
	AcceptTime       *time.Time   `bson:"accept_time,omitempty" json:"accept_time,omitempty"`
	AcceptedBy       string       `bson:"accepted_by,omitempty" json:"accepted_by,omitempty"`
	RejectTime       *time.Time   `bson:"reject_time,omitempty" json:"reject_time,omitempty"`
	RejectedBy       string       `bson:"rejected_by,omitempty" json:"rejected_by,omitempty"`
	RevokeTime       *time.Time   `bson:"revoke_time,omitempty" json:"revoke_time,omitempty"`
	RevokedBy        string       `bson:"revoked_by,omitempty" json:"revoked_by,omitempty"`
}

// Stamp writes the audit fields belonging to the transition into status.
func (i *Invite) Stamp(status InviteStatus, actor string, at time.Time) {
	i.Status = status
	switch status {
	case InviteAccepted:
		i.AcceptTime, i.AcceptedBy = &at, actor
	case InviteRejected:
		i.RejectTime, i.RejectedBy = &at, actor
	case InviteRevoked:
		i.RevokeTime, i.RevokedBy = &at, actor
	}
}

// Clone returns a deep copy.
func (i *Invite) Clone() *Invite {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Permissions = slices.Clone(i.Permissions)
	cp.AcceptTime = clonePtr(i.AcceptTime)
	cp.RejectTime = clonePtr(i.RejectTime)
	cp.RevokeTime = clonePtr(i.RevokeTime)
	return &cp
}
