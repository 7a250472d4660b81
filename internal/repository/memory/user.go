package memory

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepository struct{ s *Store }

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return userRepository{s} }

func (r userRepository) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, ok := r.s.usersByEmail[email]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	user.Email = email
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt

	r.s.users[user.ID] = *user
	r.s.usersByEmail[email] = user.ID
	return user.ID, nil
}

func (r userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r userRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepository) UpdatePasswordHash(_ context.Context, id primitive.ObjectID, hash string) error {
	return r.update(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (r userRepository) SetLastReset(_ context.Context, id primitive.ObjectID, at time.Time) error {
	at = at.UTC()
	return r.update(id, func(u *domain.User) { u.LastReset = &at })
}

func (r userRepository) update(id primitive.ObjectID, fn func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = now()
	r.s.users[id] = u
	return nil
}

func (r userRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	delete(r.s.usersByEmail, u.Email)
	return nil
}

func (r userRepository) ListIDs(_ context.Context) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]primitive.ObjectID, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	return ids, nil
}
