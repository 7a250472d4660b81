package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleClinician Role = "clinician"
	RolePatient   Role = "patient"
)

// User represents a user in the system (either a Clinician or a Patient).
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Email        string              `bson:"email" json:"email"`    // Should be unique
	PasswordHash string              `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role                `bson:"role" json:"role"`
	DateOfBirth  *time.Time          `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	InjuryTypeID *primitive.ObjectID `bson:"injuryTypeId,omitempty" json:"injuryTypeId,omitempty"`
	// LastReset is the last time the daily completion/pain flags were cleared.
	LastReset *time.Time `bson:"lastReset,omitempty" json:"lastReset,omitempty"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsClinician() bool {
	return u.Role == RoleClinician
}

func (u *User) IsPatient() bool {
	return u.Role == RolePatient
}
