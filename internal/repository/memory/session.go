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

type sessionRepository struct{ s *Store }

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() repository.SessionRepository { return sessionRepository{s} }

func (r sessionRepository) GetOrCreate(_ context.Context, userID primitive.ObjectID, day time.Time) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := dayKey(userID, day)
	if id, ok := r.s.sessionsByDay[key]; ok {
		sess := r.s.sessions[id]
		return &sess, nil
	}
	sess := domain.Session{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Date:      day.UTC(),
		CreatedAt: now(),
	}
	sess.UpdatedAt = sess.CreatedAt
	r.s.sessions[sess.ID] = sess
	r.s.sessionsByDay[key] = sess.ID
	return &sess, nil
}

func (r sessionRepository) GetByUserAndDate(_ context.Context, userID primitive.ObjectID, day time.Time) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.sessionsByDay[dayKey(userID, day)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	sess := r.s.sessions[id]
	return &sess, nil
}

func (r sessionRepository) SetPainLevel(_ context.Context, sessionID primitive.ObjectID, pain float64) error {
	return r.update(sessionID, func(s *domain.Session) { s.PainLevel = pain })
}

func (r sessionRepository) SetNotes(_ context.Context, sessionID primitive.ObjectID, notes string) error {
	return r.update(sessionID, func(s *domain.Session) { s.Notes = notes })
}

func (r sessionRepository) update(id primitive.ObjectID, fn func(*domain.Session)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&sess)
	sess.UpdatedAt = now()
	r.s.sessions[id] = sess
	return nil
}

func (r sessionRepository) ListInRange(_ context.Context, userID primitive.ObjectID, from, to time.Time) ([]domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Session{}
	for _, sess := range r.s.sessions {
		if sess.UserID != userID || sess.Date.Before(from) || sess.Date.After(to) {
			continue
		}
		out = append(out, sess)
	}
	sortSessionsDesc(out)
	return out, nil
}

func (r sessionRepository) ListRecent(_ context.Context, userID primitive.ObjectID, limit int) ([]domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Session{}
	for _, sess := range r.s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sortSessionsDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortSessionsDesc(ss []domain.Session) {
	sort.Slice(ss, func(i, j int) bool { return ss[i].Date.After(ss[j].Date) })
}

func (r sessionRepository) UpsertEntry(_ context.Context, entry *domain.SessionEntry) (*domain.SessionEntry, error) {
	if entry.SessionID == primitive.NilObjectID || entry.AssignmentID == primitive.NilObjectID {
		return nil, errors.New("entry requires sessionId and assignmentId")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := sessionAssignmentKey{entry.SessionID, entry.AssignmentID}
	ts := now()
	var saved domain.SessionEntry
	if id, ok := r.s.entriesByKey[key]; ok {
		saved = r.s.entries[id]
	} else {
		saved = domain.SessionEntry{
			ID:           primitive.NewObjectID(),
			SessionID:    entry.SessionID,
			AssignmentID: entry.AssignmentID,
			UserID:       entry.UserID,
			Date:         entry.Date,
			Seq:          r.s.nextSeq(),
			CreatedAt:    ts,
		}
		r.s.entriesByKey[key] = saved.ID
	}
	saved.CompletedSets = entry.CompletedSets
	saved.CompletedReps = entry.CompletedReps
	saved.PainLevel = entry.PainLevel
	saved.UpdatedAt = ts
	r.s.entries[saved.ID] = saved

	out := saved
	return &out, nil
}

func (r sessionRepository) ListEntries(_ context.Context, sessionID primitive.ObjectID) ([]domain.SessionEntry, error) {
	return r.filterEntries(func(e domain.SessionEntry) bool { return e.SessionID == sessionID }, false), nil
}

func (r sessionRepository) ListEntriesForSessions(_ context.Context, sessionIDs []primitive.ObjectID) ([]domain.SessionEntry, error) {
	want := make(map[primitive.ObjectID]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		want[id] = struct{}{}
	}
	return r.filterEntries(func(e domain.SessionEntry) bool {
		_, ok := want[e.SessionID]
		return ok
	}, false), nil
}

func (r sessionRepository) RecentEntriesForAssignment(_ context.Context, assignmentID primitive.ObjectID, limit int) ([]domain.SessionEntry, error) {
	out := r.filterEntries(func(e domain.SessionEntry) bool { return e.AssignmentID == assignmentID }, true)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r sessionRepository) filterEntries(keep func(domain.SessionEntry) bool, newestFirst bool) []domain.SessionEntry {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.SessionEntry{}
	for _, e := range r.s.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].Seq > out[j].Seq
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}
