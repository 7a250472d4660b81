package service

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/lock"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/observability"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
)

const msgNoChanges = "No changes made"

// CompletionFlags are the transitions a completion made available.
type CompletionFlags struct {
	ShouldIncrease bool
	ShouldDecrease bool
	ShouldRemove   bool
}

// CompletionResult is returned by RecordCompletion. Transitioned is set when
// auto-apply moved the patient; Assignment is then the new assignment.
type CompletionResult struct {
	Flags        CompletionFlags
	Assignment   *domain.Assignment
	Transitioned bool
}

// TransitionResult carries a user-facing message and, when something changed,
// the resulting assignment.
type TransitionResult struct {
	Message    string
	Assignment *domain.Assignment
}

type CompletionService interface {
	RecordCompletion(ctx context.Context, userID, assignmentID primitive.ObjectID, sets, reps, pain int, completed bool) (*CompletionResult, error)
	ConfirmTransition(ctx context.Context, userID, assignmentID primitive.ObjectID, direction domain.Direction, confirm bool) (*TransitionResult, error)
	CanIncrease(ctx context.Context, userID, assignmentID primitive.ObjectID) (bool, error)
}

type completionService struct {
	assignments AssignmentService
	sessions    SessionService
	engine      ProgressionEngine
	locker      lock.Locker
	autoApply   bool
	metrics     *metrics.Manager
	log         *logger.Logger
}

// NewCompletionService creates a new instance of completionService.
func NewCompletionService(
	assignments AssignmentService,
	sessions SessionService,
	engine ProgressionEngine,
	locker lock.Locker,
	autoApply bool,
	m *metrics.Manager,
	log *logger.Logger,
) CompletionService {
	return &completionService{
		assignments: assignments,
		sessions:    sessions,
		engine:      engine,
		locker:      locker,
		autoApply:   autoApply,
		metrics:     m,
		log:         log.With("component", "completion"),
	}
}

func (s *completionService) RecordCompletion(ctx context.Context, userID, assignmentID primitive.ObjectID, sets, reps, pain int, completed bool) (*CompletionResult, error) {
	if err := validatePain(pain); err != nil {
		return nil, err
	}
	if sets < 0 || reps < 0 {
		return nil, validationError("completed sets and reps cannot be negative")
	}

	ctx, span := observability.Tracer().Start(ctx, "completion.RecordCompletion")
	defer span.End()
	span.SetAttributes(attribute.Int("pain", pain), attribute.Bool("completed", completed))

	result := &CompletionResult{}
	err := lock.WithUser(ctx, s.locker, userID, func(ctx context.Context) error {
		assignment, err := s.assignments.GetOwned(ctx, userID, assignmentID)
		if err != nil {
			return err
		}
		result.Assignment = assignment
		if !completed {
			return nil
		}
		if !assignment.IsActive {
			return validationError("assignment is not active")
		}

		assignment.PainLevel = pain
		assignment.Completed = true
		if err := s.assignments.Save(ctx, assignment); err != nil {
			return err
		}
		if _, err := s.sessions.RecordCompletion(ctx, userID, assignment, sets, reps, pain, s.sessions.Today()); err != nil {
			return err
		}
		s.metrics.CounterCompletions.Inc()

		decision, err := s.engine.Decide(ctx, assignment, pain)
		if err != nil {
			return err
		}
		result.Flags = flagsFor(decision)

		if s.autoApply && (decision.Kind == DecisionIncrease || decision.Kind == DecisionDecrease) {
			next, err := s.engine.Apply(ctx, assignment, decision)
			if err != nil {
				return err
			}
			if next != nil {
				result.Assignment = next
				result.Transitioned = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func flagsFor(d Decision) CompletionFlags {
	switch d.Kind {
	case DecisionIncrease:
		return CompletionFlags{ShouldIncrease: true}
	case DecisionDecrease:
		return CompletionFlags{ShouldDecrease: true}
	case DecisionConsiderRemoval:
		return CompletionFlags{ShouldRemove: true}
	}
	return CompletionFlags{}
}

func (s *completionService) ConfirmTransition(ctx context.Context, userID, assignmentID primitive.ObjectID, direction domain.Direction, confirm bool) (*TransitionResult, error) {
	if _, ok := domain.ParseDirection(string(direction)); !ok {
		return nil, validationError("direction must be increase, decrease or remove")
	}
	if !confirm {
		return &TransitionResult{Message: msgNoChanges}, nil
	}

	var result *TransitionResult
	err := lock.WithUser(ctx, s.locker, userID, func(ctx context.Context) error {
		assignment, err := s.assignments.GetOwned(ctx, userID, assignmentID)
		if err != nil {
			return err
		}
		if !assignment.IsActive {
			result = &TransitionResult{Message: "This exercise is not active"}
			return nil
		}

		switch direction {
		case domain.DirectionRemove:
			if err := s.assignments.Deactivate(ctx, assignment); err != nil {
				return err
			}
			s.metrics.CounterTransitions.WithLabelValues(string(domain.DirectionRemove)).Inc()
			result = &TransitionResult{Message: "Exercise removed from your active list", Assignment: assignment}
			return nil

		case domain.DirectionIncrease:
			ok, err := s.canIncrease(ctx, assignment)
			if err != nil {
				return err
			}
			if !ok {
				result = &TransitionResult{Message: "Not eligible to increase difficulty yet"}
				return nil
			}
		}

		target, err := s.engine.NextVariant(ctx, assignment, direction)
		if err != nil {
			return err
		}
		if target == nil {
			result = &TransitionResult{Message: fmt.Sprintf("No exercise available to %s difficulty", direction)}
			return nil
		}

		kind, back := DecisionIncrease, domain.DirectionDecrease
		if direction == domain.DirectionDecrease {
			kind, back = DecisionDecrease, domain.DirectionIncrease
		}
		from, _ := target.Difficulty.Step(back)
		next, err := s.engine.Apply(ctx, assignment, Decision{Kind: kind, From: from, Target: target})
		if err != nil {
			return err
		}
		result = &TransitionResult{
			Message:    fmt.Sprintf("Moved to %s (%s)", target.Name, target.Difficulty),
			Assignment: next,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *completionService) CanIncrease(ctx context.Context, userID, assignmentID primitive.ObjectID) (bool, error) {
	assignment, err := s.assignments.GetOwned(ctx, userID, assignmentID)
	if err != nil {
		return false, err
	}
	if !assignment.IsActive {
		return false, nil
	}
	return s.canIncrease(ctx, assignment)
}

// canIncrease: consistent low pain and a harder variant to move to.
func (s *completionService) canIncrease(ctx context.Context, assignment *domain.Assignment) (bool, error) {
	low, err := s.engine.HasConsistentLowPain(ctx, assignment)
	if err != nil || !low {
		return false, err
	}
	target, err := s.engine.NextVariant(ctx, assignment, domain.DirectionIncrease)
	if err != nil {
		return false, err
	}
	return target != nil, nil
}
