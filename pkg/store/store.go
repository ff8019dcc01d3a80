package store

import (
	"context"
	"time"

	"github.com/dmitrymomot/saasbilling/pkg/model"
)

// Subscriptions persists subscription documents keyed by processor subscription id.
type Subscriptions interface {
	GetSubscription(ctx context.Context, id string) (*model.Subscription, error)
	// CreateSubscription fails with ErrDuplicate if the id is taken.
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	// UpdateMembership applies a membership delta with set semantics: concurrent
	// changes for different users never overwrite each other.
	UpdateMembership(ctx context.Context, id string, change model.MembershipChange) error
	// SetPlan replaces plan_id and the whole stripe_items map.
	SetPlan(ctx context.Context, id, planID string, items map[string]string) error
	MarkCanceled(ctx context.Context, id string, at time.Time) error
	SetOwner(ctx context.Context, id, ownerID string) error
	// UpdateSettings merges settings into the stored map.
	UpdateSettings(ctx context.Context, id string, settings map[string]string) error
	// ApplyProcessorState overwrites the processor-owned fields. It fails with
	// ErrNotFound when the subscription does not exist yet.
	ApplyProcessorState(ctx context.Context, id string, state model.ProcessorState) error
	SetLatestInvoice(ctx context.Context, id, invoiceID string) error
}

// Invites persists invitations.
type Invites interface {
	// CreateInvite assigns inv.ID. It fails with ErrDuplicate when a pending
	// invite already exists for the same email and subscription.
	CreateInvite(ctx context.Context, inv *model.Invite) error
	GetInvite(ctx context.Context, id string) (*model.Invite, error)
	FindPendingInvite(ctx context.Context, subscriptionID, email string) (*model.Invite, error)
	ListPendingInvites(ctx context.Context, subscriptionID string) ([]*model.Invite, error)
	ListPendingInvitesForEmail(ctx context.Context, email string) ([]*model.Invite, error)
	// TransitionInvite moves an invite from one status to another, stamping the
	// audit fields. It fails with ErrConflict when the stored status is not from.
	TransitionInvite(ctx context.Context, id string, from, to model.InviteStatus, actor string, at time.Time) error
}

// Invoices persists invoice projections under their subscription.
type Invoices interface {
	// UpsertInvoice writes every field of inv, leaving any other stored field untouched.
	UpsertInvoice(ctx context.Context, inv *model.Invoice) error
	GetInvoice(ctx context.Context, subscriptionID, invoiceID string) (*model.Invoice, error)
	// ListInvoices returns newest first by created time.
	ListInvoices(ctx context.Context, subscriptionID string, limit int) ([]*model.Invoice, error)
}

// Users persists user profiles.
type Users interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error
}

// Transactor runs fn so that every store write made through ctx inside it is
// applied all-or-nothing.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store is the full document store.
type Store interface {
	Subscriptions
	Invites
	Invoices
	Users
	Transactor
	Ping(ctx context.Context) error
}
