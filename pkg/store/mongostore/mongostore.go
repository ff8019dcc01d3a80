package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/saasbilling/pkg/store"
)

const (
	subscriptionsCollection = "subscriptions"
	invitesCollection       = "invites"
	invoicesCollection      = "invoices"
	usersCollection         = "users"
)

// Store implements store.Store on MongoDB. Multi-document transactions need a
// replica set deployment.
type Store struct {
	client   *mongo.Client
	subs     *mongo.Collection
	invites  *mongo.Collection
	invoices *mongo.Collection
	users    *mongo.Collection
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database) *Store {
	return &Store{
		client:   db.Client(),
		subs:     db.Collection(subscriptionsCollection),
		invites:  db.Collection(invitesCollection),
		invoices: db.Collection(invoicesCollection),
		users:    db.Collection(usersCollection),
	}
}

// EnsureIndexes creates the indexes the store relies on. The partial unique
// index on invites is what enforces a single pending invite per email and
// subscription under concurrent creates.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.invites.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().
				SetName("uniq_pending_invite").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": "pending"}),
		},
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create invite indexes: %w", err)
	}
	if _, err := s.invoices.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "created", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create invoice indexes: %w", err)
	}
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// InTransaction runs fn inside a session transaction. The driver retries fn
// on transient transaction errors, so fn must be safe to re-run.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, what string) (*T, error) {
	var v T
	if err := coll.FindOne(ctx, filter).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", what, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find %s: %w", what, err)
	}
	return &v, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptionsBuilder) ([]*T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []*T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// updateByID fails with store.ErrNotFound when no document has the id.
func updateByID(ctx context.Context, coll *mongo.Collection, id string, update any, what string) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update %s: %w", what, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

// setFields marshals v into a document suitable for $set, dropping _id.
func setFields(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "_id")
	return m, nil
}
