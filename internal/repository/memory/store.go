// Package memory implements the repository interfaces over process-local maps.
// It backs the "memory" database driver and the service tests.
package memory

import (
	"alcyxob/rehab-app/internal/domain"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userVariantKey struct {
	user, variant primitive.ObjectID
}

type userDayKey struct {
	user primitive.ObjectID
	day  int64
}

type sessionAssignmentKey struct {
	session, assignment primitive.ObjectID
}

type categoryDifficultyKey struct {
	category   primitive.ObjectID
	difficulty domain.Difficulty
}

// Store holds every collection behind one lock. The secondary maps mirror the
// unique indexes of the Mongo schema.
type Store struct {
	mu sync.RWMutex

	users        map[primitive.ObjectID]domain.User
	usersByEmail map[string]primitive.ObjectID

	categories       map[primitive.ObjectID]domain.ExerciseCategory
	categoriesByName map[string]primitive.ObjectID

	variants       map[primitive.ObjectID]domain.ExerciseVariant
	variantsByRung map[categoryDifficultyKey]primitive.ObjectID

	injuries map[primitive.ObjectID]domain.InjuryType

	assignments       map[primitive.ObjectID]domain.Assignment
	assignmentsByPair map[userVariantKey]primitive.ObjectID

	sessions      map[primitive.ObjectID]domain.Session
	sessionsByDay map[userDayKey]primitive.ObjectID

	entries      map[primitive.ObjectID]domain.SessionEntry
	entriesByKey map[sessionAssignmentKey]primitive.ObjectID

	seq int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:             map[primitive.ObjectID]domain.User{},
		usersByEmail:      map[string]primitive.ObjectID{},
		categories:        map[primitive.ObjectID]domain.ExerciseCategory{},
		categoriesByName:  map[string]primitive.ObjectID{},
		variants:          map[primitive.ObjectID]domain.ExerciseVariant{},
		variantsByRung:    map[categoryDifficultyKey]primitive.ObjectID{},
		injuries:          map[primitive.ObjectID]domain.InjuryType{},
		assignments:       map[primitive.ObjectID]domain.Assignment{},
		assignmentsByPair: map[userVariantKey]primitive.ObjectID{},
		sessions:          map[primitive.ObjectID]domain.Session{},
		sessionsByDay:     map[userDayKey]primitive.ObjectID{},
		entries:           map[primitive.ObjectID]domain.SessionEntry{},
		entriesByKey:      map[sessionAssignmentKey]primitive.ObjectID{},
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func dayKey(user primitive.ObjectID, day time.Time) userDayKey {
	return userDayKey{user: user, day: day.UTC().Unix()}
}

func now() time.Time {
	return time.Now().UTC()
}
