package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/crosspost-social/crosspost/domain"
)

// AuthorizationRepository implements domain.AuthorizationRepository on
// MongoDB. The unique compound indexes are what serialize concurrent
// creates for the same (provider, uid): the second insert fails with a
// duplicate key error and surfaces as domain.ErrDuplicateLink.
type AuthorizationRepository struct {
	collection *mongo.Collection
}

// NewAuthorizationRepository creates an AuthorizationRepository and ensures
// its indexes.
func NewAuthorizationRepository(ctx context.Context, db *mongo.Database) (*AuthorizationRepository, error) {
	repo := &AuthorizationRepository{collection: db.Collection(AuthorizationsCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s indexes: %w", AuthorizationsCollection, err)
	}
	return repo, nil
}

func (r *AuthorizationRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// A provider identity links to exactly one account at a time.
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// An account holds at most one link per provider.
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "provider", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexModels)
	return err
}

func (r *AuthorizationRepository) Create(ctx context.Context, auth *domain.Authorization) error {
	_, err := r.collection.InsertOne(ctx, auth)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateLink
		}
		log.Error().Err(err).Str("provider", auth.Provider).Str("uid", auth.UID).
			Msg("Error creating authorization")
		return err
	}
	return nil
}

func (r *AuthorizationRepository) GetByProviderUID(ctx context.Context, provider, uid string) (*domain.Authorization, error) {
	return r.findOne(ctx, bson.M{"provider": provider, "uid": uid})
}

func (r *AuthorizationRepository) GetByAccountAndProvider(ctx context.Context, accountID, provider string) (*domain.Authorization, error) {
	return r.findOne(ctx, bson.M{"account_id": accountID, "provider": provider})
}

func (r *AuthorizationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Authorization, error) {
	var auth domain.Authorization
	err := r.collection.FindOne(ctx, filter).Decode(&auth)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Interface("filter", filter).Msg("Error looking up authorization")
		return nil, err
	}
	return &auth, nil
}

func (r *AuthorizationRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Authorization, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"account_id": accountID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Msg("Error listing authorizations")
		return nil, err
	}
	defer cursor.Close(ctx)

	var auths []*domain.Authorization
	if err := cursor.All(ctx, &auths); err != nil {
		return nil, err
	}
	return auths, nil
}

func (r *AuthorizationRepository) Update(ctx context.Context, auth *domain.Authorization) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": auth.ID}, auth)
	if err != nil {
		log.Error().Err(err).Str("id", auth.ID).Msg("Error updating authorization")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete unlinks a provider from an account. A missing link is a no-op
// success, so removal is idempotent.
func (r *AuthorizationRepository) Delete(ctx context.Context, accountID, provider string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"account_id": accountID, "provider": provider})
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Str("provider", provider).
			Msg("Error deleting authorization")
		return err
	}
	return nil
}

var _ domain.AuthorizationRepository = (*AuthorizationRepository)(nil)
