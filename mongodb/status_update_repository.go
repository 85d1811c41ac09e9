package mongodb

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/crosspost-social/crosspost/domain"
)

// StatusUpdateRepository implements domain.StatusUpdateRepository on MongoDB.
type StatusUpdateRepository struct {
	collection *mongo.Collection
}

// NewStatusUpdateRepository creates a StatusUpdateRepository.
func NewStatusUpdateRepository(ctx context.Context, db *mongo.Database) (*StatusUpdateRepository, error) {
	repo := &StatusUpdateRepository{collection: db.Collection(StatusUpdatesCollection)}
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := repo.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *StatusUpdateRepository) Create(ctx context.Context, update *domain.StatusUpdate) error {
	_, err := r.collection.InsertOne(ctx, update)
	if err != nil {
		log.Error().Err(err).Str("account_id", update.AccountID).Msg("Error creating status update")
		return err
	}
	return nil
}

func (r *StatusUpdateRepository) Update(ctx context.Context, update *domain.StatusUpdate) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": update.ID}, update)
	if err != nil {
		log.Error().Err(err).Str("id", update.ID).Msg("Error updating status update")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *StatusUpdateRepository) GetByID(ctx context.Context, id string) (*domain.StatusUpdate, error) {
	var update domain.StatusUpdate
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&update)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &update, nil
}

func (r *StatusUpdateRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.StatusUpdate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Msg("Error listing status updates")
		return nil, err
	}
	defer cursor.Close(ctx)

	var updates []*domain.StatusUpdate
	if err := cursor.All(ctx, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

var _ domain.StatusUpdateRepository = (*StatusUpdateRepository)(nil)
