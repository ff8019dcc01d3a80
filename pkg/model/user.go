package model

import "time"

// User is the profile record for an account, keyed by the identity provider uid.
type User struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	DisplayName string    `bson:"display_name,omitempty" json:"display_name,omitempty"`
	AvatarURL   string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// UserStatus tells active members apart from pending invitees in listings.
type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserPending UserStatus = "pending"
)

// SubscriptionUser is one row of the subscription user listing: either an
// active member or a pending invite.
type SubscriptionUser struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"display_name,omitempty"`
	AvatarURL          string     `json:"avatar_url,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	Permissions        []string   `json:"permissions"`
	Status             UserStatus `json:"status"`
	InviteID           string     `json:"invite_id,omitempty"`
	PendingPermissions []string   `json:"pending_permissions,omitempty"`
}
