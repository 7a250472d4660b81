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

// mongoCategoryRepository implements repository.CategoryRepository
type mongoCategoryRepository struct {
	collection *mongo.Collection
}

// NewMongoCategoryRepository creates a new category repository backed by MongoDB.
func NewMongoCategoryRepository(db *mongo.Database) repository.CategoryRepository {
	return &mongoCategoryRepository{
		collection: db.Collection(categoryCollectionName),
	}
}

// Create inserts a new category into the database.
func (r *mongoCategoryRepository) Create(ctx context.Context, category *domain.ExerciseCategory) (primitive.ObjectID, error) {
	if category.Name == "" {
		return primitive.NilObjectID, errors.New("category name is required")
	}

	category.ID = primitive.NewObjectID()
	if category.Slug == "" {
		category.Slug = domain.Slugify(category.Name)
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, category); err != nil {
		return primitive.NilObjectID, mapError(err)
	}
	return category.ID, nil
}

// GetByID retrieves a category by its ID.
func (r *mongoCategoryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseCategory, error) {
	var category domain.ExerciseCategory
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&category); err != nil {
		return nil, mapError(err)
	}
	return &category, nil
}

// GetByName retrieves a category by its unique name.
func (r *mongoCategoryRepository) GetByName(ctx context.Context, name string) (*domain.ExerciseCategory, error) {
	var category domain.ExerciseCategory
	if err := r.collection.FindOne(ctx, bson.M{"name": name}).Decode(&category); err != nil {
		return nil, mapError(err)
	}
	return &category, nil
}

// List returns all categories sorted by name.
func (r *mongoCategoryRepository) List(ctx context.Context) ([]domain.ExerciseCategory, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	categories := []domain.ExerciseCategory{}
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func categoryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

// mongoVariantRepository implements repository.VariantRepository
type mongoVariantRepository struct {
	collection *mongo.Collection
}

// NewMongoVariantRepository creates a new variant repository backed by MongoDB.
func NewMongoVariantRepository(db *mongo.Database) repository.VariantRepository {
	return &mongoVariantRepository{
		collection: db.Collection(variantCollectionName),
	}
}

// Create inserts a new variant. A second variant for the same
// (category, difficulty) fails with repository.ErrDuplicate.
func (r *mongoVariantRepository) Create(ctx context.Context, variant *domain.ExerciseVariant) (primitive.ObjectID, error) {
	if variant.Name == "" || variant.CategoryID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("variant name and category ID are required")
	}
	if !variant.Difficulty.Valid() {
		return primitive.NilObjectID, errors.New("variant difficulty is invalid")
	}

	variant.ID = primitive.NewObjectID()
	if variant.Slug == "" {
		variant.Slug = domain.Slugify(variant.Name)
	}
	now := time.Now().UTC()
	variant.CreatedAt = now
	variant.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, variant); err != nil {
		return primitive.NilObjectID, mapError(err)
	}
	return variant.ID, nil
}

// GetByID retrieves a variant by its ID.
func (r *mongoVariantRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseVariant, error) {
	var variant domain.ExerciseVariant
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&variant); err != nil {
		return nil, mapError(err)
	}
	return &variant, nil
}

// GetByIDs retrieves multiple variants by their IDs.
func (r *mongoVariantRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.ExerciseVariant, error) {
	if len(ids) == 0 {
		return []domain.ExerciseVariant{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// FindByCategoryAndDifficulty retrieves the variant of a category at a level.
func (r *mongoVariantRepository) FindByCategoryAndDifficulty(ctx context.Context, categoryID primitive.ObjectID, difficulty domain.Difficulty) (*domain.ExerciseVariant, error) {
	var variant domain.ExerciseVariant
	filter := bson.M{"categoryId": categoryID, "difficulty": difficulty}
	if err := r.collection.FindOne(ctx, filter).Decode(&variant); err != nil {
		return nil, mapError(err)
	}
	return &variant, nil
}

// List returns variants, optionally restricted to a category.
func (r *mongoVariantRepository) List(ctx context.Context, categoryID *primitive.ObjectID) ([]domain.ExerciseVariant, error) {
	filter := bson.M{}
	if categoryID != nil {
		filter["categoryId"] = *categoryID
	}
	return r.find(ctx, filter)
}

// SetVideoKey records the object key of an uploaded demonstration video.
func (r *mongoVariantRepository) SetVideoKey(ctx context.Context, id primitive.ObjectID, key string) error {
	update := bson.M{"$set": bson.M{"videoKey": key, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoVariantRepository) find(ctx context.Context, filter bson.M) ([]domain.ExerciseVariant, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "categoryId", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	variants := []domain.ExerciseVariant{}
	if err = cursor.All(ctx, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

func variantIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "categoryId", Value: 1}, {Key: "difficulty", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index(),
		},
	}
}
