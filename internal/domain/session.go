package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is a patient's daily report. There is one per (UserID, Date).
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Date      time.Time          `bson:"date" json:"date"` // Civil day
	PainLevel float64            `bson:"painLevel" json:"painLevel"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// SessionEntry is the outcome of one assignment within a session ("ReportExercise").
type SessionEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID     primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	AssignmentID  primitive.ObjectID `bson:"assignmentId" json:"assignmentId"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Date          time.Time          `bson:"date" json:"date"` // Copy of the session's day
	CompletedSets int                `bson:"completedSets" json:"completedSets"`
	CompletedReps int                `bson:"completedReps" json:"completedReps"`
	PainLevel     int                `bson:"painLevel" json:"painLevel"`
	Seq           int64              `bson:"seq" json:"-"` // Insertion order, kept on update
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MeanPain averages entry pain readings, 0 for no entries.
func MeanPain(entries []SessionEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	total := 0
	for _, e := range entries {
		total += e.PainLevel
	}
	return float64(total) / float64(len(entries))
}
