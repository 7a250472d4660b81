// internal/domain/exercise.go
package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Difficulty is the level of an exercise variant within its category.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

// Direction is the way a patient moves along the difficulty ladder.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
	DirectionRemove   Direction = "remove"
)

// difficultyLadder is ordered from easiest to hardest.
var difficultyLadder = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// ParseDifficulty accepts any casing of the three level names.
func ParseDifficulty(s string) (Difficulty, bool) {
	for _, d := range difficultyLadder {
		if strings.EqualFold(string(d), strings.TrimSpace(s)) {
			return d, true
		}
	}
	return "", false
}

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	return d.rank() >= 0
}

func (d Difficulty) rank() int {
	for i, l := range difficultyLadder {
		if l == d {
			return i
		}
	}
	return -1
}

// Step returns the neighbouring level in the given direction.
// It is defined for every (difficulty, direction) pair: the ceiling, the floor,
// DirectionRemove and unknown levels all return false.
func (d Difficulty) Step(dir Direction) (Difficulty, bool) {
	r := d.rank()
	if r < 0 {
		return "", false
	}
	switch dir {
	case DirectionIncrease:
		if r+1 < len(difficultyLadder) {
			return difficultyLadder[r+1], true
		}
	case DirectionDecrease:
		if r > 0 {
			return difficultyLadder[r-1], true
		}
	}
	return "", false
}

// ParseDirection validates a client supplied transition direction.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionIncrease:
		return DirectionIncrease, true
	case DirectionDecrease:
		return DirectionDecrease, true
	case DirectionRemove:
		return DirectionRemove, true
	}
	return "", false
}

// ExerciseCategory groups the difficulty variants of one exercise (e.g. "Squats").
type ExerciseCategory struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"` // Unique
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ExerciseVariant is one difficulty level of a category. At most one variant
// exists per (category, difficulty).
type ExerciseVariant struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CategoryID primitive.ObjectID `bson:"categoryId" json:"categoryId"`
	Name       string             `bson:"name" json:"name"` // e.g. "Beginner Squat"
	Slug       string             `bson:"slug" json:"slug"`
	Difficulty Difficulty         `bson:"difficulty" json:"difficulty"`
	Sets       int                `bson:"sets" json:"sets"`
	Reps       int                `bson:"reps" json:"reps"`
	Hold       int                `bson:"hold" json:"hold"` // Seconds
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
	VideoLink  string             `bson:"videoLink,omitempty" json:"videoLink,omitempty"` // External demo, e.g. YouTube
	VideoKey   string             `bson:"videoKey,omitempty" json:"-"`                    // Object key of an uploaded demo
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// InjuryType carries the treatment plan used to seed a new patient's assignments.
type InjuryType struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Treatment   []primitive.ObjectID `bson:"treatment" json:"treatment"` // Variant IDs
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
}

// Slugify lowercases s and joins its words with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
