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

// mongoAssignmentRepository implements repository.AssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new Assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Create inserts a new assignment into the database.
func (r *mongoAssignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error) {
	if assignment.UserID == primitive.NilObjectID || assignment.VariantID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment requires userId and variantId")
	}

	assignment.ID = primitive.NewObjectID()
	assignment.UpdatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, assignment); err != nil {
		return primitive.NilObjectID, mapError(err)
	}
	return assignment.ID, nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment); err != nil {
		return nil, mapError(err)
	}
	return &assignment, nil
}

// GetByUserAndVariant retrieves the single (user, variant) row.
func (r *mongoAssignmentRepository) GetByUserAndVariant(ctx context.Context, userID, variantID primitive.ObjectID) (*domain.Assignment, error) {
	var assignment domain.Assignment
	filter := bson.M{"userId": userID, "variantId": variantID}
	if err := r.collection.FindOne(ctx, filter).Decode(&assignment); err != nil {
		return nil, mapError(err)
	}
	return &assignment, nil
}

// ListByUser retrieves a user's assignments ordered by activation date.
func (r *mongoAssignmentRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, active *bool) ([]domain.Assignment, error) {
	filter := bson.M{"userId": userID}
	if active != nil {
		filter["isActive"] = *active
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "dateActivated", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	assignments := []domain.Assignment{}
	if err = cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// Update persists the state fields of an assignment.
func (r *mongoAssignmentRepository) Update(ctx context.Context, assignment *domain.Assignment) error {
	if assignment.ID == primitive.NilObjectID {
		return errors.New("assignment ID is required for update")
	}

	assignment.UpdatedAt = time.Now().UTC()
	updateFields := bson.M{
		"sets":          assignment.Sets,
		"reps":          assignment.Reps,
		"hold":          assignment.Hold,
		"painLevel":     assignment.PainLevel,
		"completed":     assignment.Completed,
		"isActive":      assignment.IsActive,
		"dateActivated": assignment.DateActivated,
		"updatedAt":     assignment.UpdatedAt,
	}
	update := bson.M{"$set": updateFields}
	if assignment.DateDeactivated != nil {
		updateFields["dateDeactivated"] = *assignment.DateDeactivated
	} else {
		update["$unset"] = bson.M{"dateDeactivated": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": assignment.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpsertForVariant reactivates the existing (user, variant) row, or inserts a
// new one. Sets, reps, hold and dateActivated are only written on insert so a
// reactivated row keeps its own prescription and history.
func (r *mongoAssignmentRepository) UpsertForVariant(ctx context.Context, userID primitive.ObjectID, variant *domain.ExerciseVariant, template *domain.Assignment, today time.Time) (*domain.Assignment, error) {
	sets, reps, hold := variant.Sets, variant.Reps, variant.Hold
	if template != nil {
		sets, reps, hold = template.Sets, template.Reps, template.Hold
	}

	filter := bson.M{"userId": userID, "variantId": variant.ID}
	update := bson.M{
		"$set": bson.M{
			"painLevel":     0,
			"completed":     false,
			"isActive":  true,
			"updatedAt": time.Now().UTC(),
		},
		"$unset": bson.M{"dateDeactivated": ""},
		"$setOnInsert": bson.M{
			"_id":           primitive.NewObjectID(),
			"sets":          sets,
			"reps":          reps,
			"hold":          hold,
			"dateActivated": today,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var assignment domain.Assignment
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&assignment)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert inserted the row first; the retry matches it.
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&assignment)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &assignment, nil
}

// ResetDailyFlags clears pain and completion on the user's active rows.
func (r *mongoAssignmentRepository) ResetDailyFlags(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{"userId": userID, "isActive": true}
	update := bson.M{"$set": bson.M{
		"painLevel": 0,
		"completed": false,
		"updatedAt": time.Now().UTC(),
	}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func assignmentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "variantId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
	}
}
