package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/saasbilling/pkg/model"
)

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.users, bson.M{"_id": id}, "user "+id)
}

// GetUserByEmail expects email already normalized to lower case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.users, bson.M{"email": email}, "user with email "+email)
}

// SaveUser upserts the profile. created_at is written only on insert.
func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{
			"$set": bson.M{
				"email":        u.Email,
				"display_name": u.DisplayName,
				"avatar_url":   u.AvatarURL,
			},
			"$setOnInsert": bson.M{"created_at": created},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	return nil
}
