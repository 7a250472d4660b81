package repository

import (
	"alcyxob/rehab-app/internal/domain" // Import our defined domain models
	"context"                           // Standard for request-scoped deadlines, cancellation signals, etc.
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error
	SetLastReset(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ListIDs returns every user ID; used by batch tools.
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// CategoryRepository stores exercise categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.ExerciseCategory) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseCategory, error)
	GetByName(ctx context.Context, name string) (*domain.ExerciseCategory, error)
	List(ctx context.Context) ([]domain.ExerciseCategory, error)
}

// VariantRepository stores the difficulty variants of each category.
type VariantRepository interface {
	Create(ctx context.Context, variant *domain.ExerciseVariant) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ExerciseVariant, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.ExerciseVariant, error)
	// FindByCategoryAndDifficulty returns the first match or ErrNotFound.
	FindByCategoryAndDifficulty(ctx context.Context, categoryID primitive.ObjectID, difficulty domain.Difficulty) (*domain.ExerciseVariant, error)
	// List returns all variants, or those of one category when categoryID is not nil.
	List(ctx context.Context, categoryID *primitive.ObjectID) ([]domain.ExerciseVariant, error)
	SetVideoKey(ctx context.Context, id primitive.ObjectID, key string) error
}

// InjuryTypeRepository stores injury types and their treatment plans.
type InjuryTypeRepository interface {
	Create(ctx context.Context, injury *domain.InjuryType) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.InjuryType, error)
	List(ctx context.Context) ([]domain.InjuryType, error)
}

// AssignmentRepository defines the interface for interacting with assignment data.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Assignment, error)
	GetByUserAndVariant(ctx context.Context, userID, variantID primitive.ObjectID) (*domain.Assignment, error)
	// ListByUser returns the user's assignments; active filters on isActive when not nil.
	ListByUser(ctx context.Context, userID primitive.ObjectID, active *bool) ([]domain.Assignment, error)
	// Update persists the mutable state fields of an assignment.
	Update(ctx context.Context, assignment *domain.Assignment) error
	// UpsertForVariant reactivates the (user, variant) row with cleared
	// pain/completion, or inserts a fresh one copying sets/reps/hold from template.
	UpsertForVariant(ctx context.Context, userID primitive.ObjectID, variant *domain.ExerciseVariant, template *domain.Assignment, today time.Time) (*domain.Assignment, error)
	// ResetDailyFlags zeroes pain and clears completion on the user's active assignments.
	ResetDailyFlags(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// SessionRepository stores daily sessions and their entries.
type SessionRepository interface {
	// GetOrCreate atomically returns the (user, day) session, inserting it when missing.
	GetOrCreate(ctx context.Context, userID primitive.ObjectID, day time.Time) (*domain.Session, error)
	GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, day time.Time) (*domain.Session, error)
	SetPainLevel(ctx context.Context, sessionID primitive.ObjectID, pain float64) error
	SetNotes(ctx context.Context, sessionID primitive.ObjectID, notes string) error
	// ListInRange returns sessions with from <= date <= to, newest first.
	ListInRange(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Session, error)
	// ListRecent returns up to limit sessions, newest first.
	ListRecent(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.Session, error)

	// UpsertEntry updates the (session, assignment) entry or inserts a new one.
	UpsertEntry(ctx context.Context, entry *domain.SessionEntry) (*domain.SessionEntry, error)
	ListEntries(ctx context.Context, sessionID primitive.ObjectID) ([]domain.SessionEntry, error)
	ListEntriesForSessions(ctx context.Context, sessionIDs []primitive.ObjectID) ([]domain.SessionEntry, error)
	// RecentEntriesForAssignment returns up to limit entries, newest insertion first.
	RecentEntriesForAssignment(ctx context.Context, assignmentID primitive.ObjectID, limit int) ([]domain.SessionEntry, error)
}
