package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/saasbilling/pkg/model"
	"github.com/dmitrymomot/saasbilling/pkg/store"
)

func (s *Store) CreateInvite(ctx context.Context, inv *model.Invite) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if _, err := s.invites.InsertOne(ctx, inv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("pending invite for %s: %w", inv.Email, store.ErrDuplicate)
		}
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (s *Store) GetInvite(ctx context.Context, id string) (*model.Invite, error) {
	return findOne[model.Invite](ctx, s.invites, bson.M{"_id": id}, "invite "+id)
}

func (s *Store) FindPendingInvite(ctx context.Context, subscriptionID, email string) (*model.Invite, error) {
	return findOne[model.Invite](ctx, s.invites, bson.M{
		"subscription_id": subscriptionID,
		"email":           email,
		"status":          model.InvitePending,
	}, "pending invite for "+email)
}

func (s *Store) ListPendingInvites(ctx context.Context, subscriptionID string) ([]*model.Invite, error) {
	return s.listPending(ctx, bson.M{"subscription_id": subscriptionID})
}

func (s *Store) ListPendingInvitesForEmail(ctx context.Context, email string) ([]*model.Invite, error) {
	return s.listPending(ctx, bson.M{"email": email})
}

func (s *Store) listPending(ctx context.Context, filter bson.M) ([]*model.Invite, error) {
	filter["status"] = model.InvitePending
	out, err := findMany[model.Invite](ctx, s.invites, filter,
		options.Find().SetSort(bson.D{{Key: "create_time", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return out, nil
}

// TransitionInvite is a compare-and-swap on the status field.
func (s *Store) TransitionInvite(ctx context.Context, id string, from, to model.InviteStatus, actor string, at time.Time) error {
	set := bson.M{"status": to}
	switch to {
	case model.InviteAccepted:
		set["accept_time"], set["accepted_by"] = at, actor
	case model.InviteRejected:
		set["reject_time"], set["rejected_by"] = at, actor
	case model.InviteRevoked:
		set["revoke_time"], set["revoked_by"] = at, actor
	}

	res, err := s.invites.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update invite: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if _, err := s.GetInvite(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("invite %s is no longer %s: %w", id, from, store.ErrConflict)
}
