package mongo

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoInjuryTypeRepository struct {
	collection *mongo.Collection
}

// NewMongoInjuryTypeRepository creates a new injury type repository backed by MongoDB.
func NewMongoInjuryTypeRepository(db *mongo.Database) repository.InjuryTypeRepository {
	return &mongoInjuryTypeRepository{
		collection: db.Collection(injuryCollectionName),
	}
}

func (r *mongoInjuryTypeRepository) Create(ctx context.Context, injury *domain.InjuryType) (primitive.ObjectID, error) {
	if injury.Name == "" {
		return primitive.NilObjectID, errors.New("injury type name is required")
	}
	injury.ID = primitive.NewObjectID()
	injury.CreatedAt = time.Now().UTC()
	if injury.Treatment == nil {
		injury.Treatment = []primitive.ObjectID{}
	}

	if _, err := r.collection.InsertOne(ctx, injury); err != nil {
		return primitive.NilObjectID, mapError(err)
	}
	return injury.ID, nil
}

func (r *mongoInjuryTypeRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.InjuryType, error) {
	var injury domain.InjuryType
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&injury); err != nil {
		return nil, mapError(err)
	}
	return &injury, nil
}

func (r *mongoInjuryTypeRepository) List(ctx context.Context) ([]domain.InjuryType, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	injuries := []domain.InjuryType{}
	if err = cursor.All(ctx, &injuries); err != nil {
		return nil, err
	}
	return injuries, nil
}

func injuryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}
