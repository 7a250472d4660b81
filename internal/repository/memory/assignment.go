package memory

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type assignmentRepository struct{ s *Store }

// Assignments returns the assignment repository view of the store.
func (s *Store) Assignments() repository.AssignmentRepository { return assignmentRepository{s} }

func cloneAssignment(a domain.Assignment) domain.Assignment {
	if a.DateDeactivated != nil {
		d := *a.DateDeactivated
		a.DateDeactivated = &d
	}
	return a
}

func (r assignmentRepository) Create(_ context.Context, assignment *domain.Assignment) (primitive.ObjectID, error) {
	if assignment.UserID == primitive.NilObjectID || assignment.VariantID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment requires userId and variantId")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := userVariantKey{assignment.UserID, assignment.VariantID}
	if _, ok := r.s.assignmentsByPair[key]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	assignment.ID = primitive.NewObjectID()
	assignment.UpdatedAt = now()
	r.s.assignments[assignment.ID] = cloneAssignment(*assignment)
	r.s.assignmentsByPair[key] = assignment.ID
	return assignment.ID, nil
}

func (r assignmentRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = cloneAssignment(a)
	return &a, nil
}

func (r assignmentRepository) GetByUserAndVariant(_ context.Context, userID, variantID primitive.ObjectID) (*domain.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.assignmentsByPair[userVariantKey{userID, variantID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a := cloneAssignment(r.s.assignments[id])
	return &a, nil
}

func (r assignmentRepository) ListByUser(_ context.Context, userID primitive.ObjectID, active *bool) ([]domain.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Assignment{}
	for _, a := range r.s.assignments {
		if a.UserID != userID {
			continue
		}
		if active != nil && a.IsActive != *active {
			continue
		}
		out = append(out, cloneAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateActivated.Equal(out[j].DateActivated) {
			return out[i].DateActivated.Before(out[j].DateActivated)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (r assignmentRepository) Update(_ context.Context, assignment *domain.Assignment) error {
	if assignment.ID == primitive.NilObjectID {
		return errors.New("assignment ID is required for update")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.assignments[assignment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	// Identity fields are immutable.
	assignment.UserID = existing.UserID
	assignment.VariantID = existing.VariantID
	assignment.UpdatedAt = now()
	r.s.assignments[assignment.ID] = cloneAssignment(*assignment)
	return nil
}

func (r assignmentRepository) UpsertForVariant(_ context.Context, userID primitive.ObjectID, variant *domain.ExerciseVariant, template *domain.Assignment, today time.Time) (*domain.Assignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := userVariantKey{userID, variant.ID}
	var a domain.Assignment
	if id, ok := r.s.assignmentsByPair[key]; ok {
		a = r.s.assignments[id]
	} else {
		a = domain.Assignment{
			ID:            primitive.NewObjectID(),
			UserID:        userID,
			VariantID:     variant.ID,
			Sets:          variant.Sets,
			Reps:          variant.Reps,
			Hold:          variant.Hold,
			DateActivated: today,
		}
		if template != nil {
			a.Sets, a.Reps, a.Hold = template.Sets, template.Reps, template.Hold
		}
		r.s.assignmentsByPair[key] = a.ID
	}
	a.PainLevel = 0
	a.Completed = false
	a.IsActive = true
	a.DateDeactivated = nil
	a.UpdatedAt = now()
	r.s.assignments[a.ID] = a

	out := cloneAssignment(a)
	return &out, nil
}

func (r assignmentRepository) ResetDailyFlags(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, a := range r.s.assignments {
		if a.UserID != userID || !a.IsActive {
			continue
		}
		if a.PainLevel == 0 && !a.Completed {
			continue
		}
		a.PainLevel = 0
		a.Completed = false
		a.UpdatedAt = now()
		r.s.assignments[id] = a
		n++
	}
	return n, nil
}
