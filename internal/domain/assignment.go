package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinPainLevel = 0
	MaxPainLevel = 10
)

// Assignment links a patient to one exercise variant ("UserExercise").
// Identity is (UserID, VariantID); a deactivated row is reused instead of
// creating a duplicate.
type Assignment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	VariantID       primitive.ObjectID `bson:"variantId" json:"variantId"`
	Sets            int                `bson:"sets" json:"sets"`
	Reps            int                `bson:"reps" json:"reps"`
	Hold            int                `bson:"hold" json:"hold"`
	PainLevel       int                `bson:"painLevel" json:"painLevel"`
	Completed       bool               `bson:"completed" json:"completed"`
	IsActive        bool               `bson:"isActive" json:"isActive"`
	DateActivated   time.Time          `bson:"dateActivated" json:"dateActivated"`                         // Civil day
	DateDeactivated *time.Time         `bson:"dateDeactivated,omitempty" json:"dateDeactivated,omitempty"` // Civil day, nil while active
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ActiveOn reports whether the assignment counted as prescribed on the civil day.
func (a *Assignment) ActiveOn(day time.Time) bool {
	if a.DateActivated.After(day) {
		return false
	}
	return a.DateDeactivated == nil || a.DateDeactivated.After(day)
}
