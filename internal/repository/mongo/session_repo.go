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

// mongoSessionRepository implements repository.SessionRepository over two
// collections: sessions and their entries.
type mongoSessionRepository struct {
	sessions *mongo.Collection
	entries  *mongo.Collection
}

// NewMongoSessionRepository creates a new session repository backed by MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		sessions: db.Collection(sessionCollectionName),
		entries:  db.Collection(entryCollectionName),
	}
}

// GetOrCreate upserts the (user, day) session. Concurrent callers converge on
// one document through the unique (userId, date) index.
func (r *mongoSessionRepository) GetOrCreate(ctx context.Context, userID primitive.ObjectID, day time.Time) (*domain.Session, error) {
	now := time.Now().UTC()
	filter := bson.M{"userId": userID, "date": day}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":       primitive.NewObjectID(),
		"painLevel": 0.0,
		"createdAt": now,
		"updatedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var session domain.Session
	err := r.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if mongo.IsDuplicateKeyError(err) {
		err = r.sessions.FindOne(ctx, filter).Decode(&session)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &session, nil
}

// GetByUserAndDate retrieves the session of a civil day.
func (r *mongoSessionRepository) GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, day time.Time) (*domain.Session, error) {
	var session domain.Session
	if err := r.sessions.FindOne(ctx, bson.M{"userId": userID, "date": day}).Decode(&session); err != nil {
		return nil, mapError(err)
	}
	return &session, nil
}

func (r *mongoSessionRepository) SetPainLevel(ctx context.Context, sessionID primitive.ObjectID, pain float64) error {
	return r.setSessionFields(ctx, sessionID, bson.M{"painLevel": pain})
}

func (r *mongoSessionRepository) SetNotes(ctx context.Context, sessionID primitive.ObjectID, notes string) error {
	return r.setSessionFields(ctx, sessionID, bson.M{"notes": notes})
}

func (r *mongoSessionRepository) setSessionFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()
	result, err := r.sessions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListInRange returns sessions dated within [from, to], newest first.
func (r *mongoSessionRepository) ListInRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Session, error) {
	filter := bson.M{"userId": userID, "date": bson.M{"$gte": from, "$lte": to}}
	return r.findSessions(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

// ListRecent returns the latest sessions, newest first.
func (r *mongoSessionRepository) ListRecent(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.findSessions(ctx, bson.M{"userId": userID}, opts)
}

func (r *mongoSessionRepository) findSessions(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Session, error) {
	cursor, err := r.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := []domain.Session{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpsertEntry writes the (session, assignment) entry. An existing entry keeps
// its ID and insertion sequence; only the reported values change.
func (r *mongoSessionRepository) UpsertEntry(ctx context.Context, entry *domain.SessionEntry) (*domain.SessionEntry, error) {
	if entry.SessionID == primitive.NilObjectID || entry.AssignmentID == primitive.NilObjectID {
		return nil, errors.New("entry requires sessionId and assignmentId")
	}

	now := time.Now().UTC()
	filter := bson.M{"sessionId": entry.SessionID, "assignmentId": entry.AssignmentID}
	update := bson.M{
		"$set": bson.M{
			"completedSets": entry.CompletedSets,
			"completedReps": entry.CompletedReps,
			"painLevel":     entry.PainLevel,
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"userId":    entry.UserID,
			"date":      entry.Date,
			"seq":       now.UnixNano(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved domain.SessionEntry
	err := r.entries.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	if mongo.IsDuplicateKeyError(err) {
		err = r.entries.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &saved, nil
}

func (r *mongoSessionRepository) ListEntries(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SessionEntry, error) {
	return r.findEntries(ctx, bson.M{"sessionId": sessionID}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
}

func (r *mongoSessionRepository) ListEntriesForSessions(ctx context.Context, sessionIDs []primitive.ObjectID) ([]domain.SessionEntry, error) {
	if len(sessionIDs) == 0 {
		return []domain.SessionEntry{}, nil
	}
	filter := bson.M{"sessionId": bson.M{"$in": sessionIDs}}
	return r.findEntries(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
}

// RecentEntriesForAssignment returns the newest entries of one assignment.
func (r *mongoSessionRepository) RecentEntriesForAssignment(ctx context.Context, assignmentID primitive.ObjectID, limit int) ([]domain.SessionEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return r.findEntries(ctx, bson.M{"assignmentId": assignmentID}, opts)
}

func (r *mongoSessionRepository) findEntries(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.SessionEntry, error) {
	cursor, err := r.entries.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []domain.SessionEntry{}
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func sessionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

func entryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "assignmentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "assignmentId", Value: 1}, {Key: "seq", Value: -1}},
			Options: options.Index(),
		},
	}
}
