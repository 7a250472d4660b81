package service

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/lock"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxNotesLength = 2000

type SessionService interface {
	// RecordCompletion upserts the day's entry for the assignment and
	// refreshes the session's mean pain. The caller holds the user lock.
	RecordCompletion(ctx context.Context, userID primitive.ObjectID, assignment *domain.Assignment, sets, reps, pain int, day time.Time) (*domain.Session, error)
	// UpdateNotes locks and sets the notes of the user's session for day.
	UpdateNotes(ctx context.Context, userID primitive.ObjectID, day time.Time, notes string) (*domain.Session, error)
	// Today returns the current civil day.
	Today() time.Time
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	locker      lock.Locker
	clock       clock.Clock
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(sessionRepo repository.SessionRepository, locker lock.Locker, clk clock.Clock) SessionService {
	return &sessionService{sessionRepo: sessionRepo, locker: locker, clock: clk}
}

func (s *sessionService) Today() time.Time {
	return clock.Today(s.clock)
}

func (s *sessionService) RecordCompletion(ctx context.Context, userID primitive.ObjectID, assignment *domain.Assignment, sets, reps, pain int, day time.Time) (*domain.Session, error) {
	if err := validatePain(pain); err != nil {
		return nil, err
	}
	if sets < 0 || reps < 0 {
		return nil, validationError("completed sets and reps cannot be negative")
	}

	session, err := s.sessionRepo.GetOrCreate(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessionRepo.UpsertEntry(ctx, &domain.SessionEntry{
		SessionID:     session.ID,
		AssignmentID:  assignment.ID,
		UserID:        userID,
		Date:          session.Date,
		CompletedSets: sets,
		CompletedReps: reps,
		PainLevel:     pain,
	}); err != nil {
		return nil, err
	}

	entries, err := s.sessionRepo.ListEntries(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	session.PainLevel = domain.MeanPain(entries)
	if err := s.sessionRepo.SetPainLevel(ctx, session.ID, session.PainLevel); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionService) UpdateNotes(ctx context.Context, userID primitive.ObjectID, day time.Time, notes string) (*domain.Session, error) {
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, validationError("notes cannot exceed %d characters", maxNotesLength)
	}
	var session *domain.Session
	err := lock.WithUser(ctx, s.locker, userID, func(ctx context.Context) error {
		var err error
		if session, err = s.sessionRepo.GetOrCreate(ctx, userID, day); err != nil {
			return err
		}
		if err := s.sessionRepo.SetNotes(ctx, session.ID, notes); err != nil {
			return err
		}
		session.Notes = notes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}
