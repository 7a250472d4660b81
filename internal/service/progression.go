package service

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/lock"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/observability"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
)

// DecisionKind is the outcome of evaluating one completion.
type DecisionKind string

const (
	DecisionNone            DecisionKind = "none"
	DecisionIncrease        DecisionKind = "increase"
	DecisionDecrease        DecisionKind = "decrease"
	DecisionConsiderRemoval DecisionKind = "consider_removal"
)

// Decision is a candidate transition. Target is set for increase and decrease.
type Decision struct {
	Kind   DecisionKind
	From   domain.Difficulty
	Target *domain.ExerciseVariant
}

// Rules are the tunables of the engine.
type Rules struct {
	HighPainThreshold int // pain >= threshold is high
	LowPainWindow     int // readings needed for promotion
}

// DefaultRules returns the thresholds used when config leaves them unset.
func DefaultRules() Rules {
	return Rules{HighPainThreshold: 4, LowPainWindow: 3}
}

type ProgressionEngine interface {
	// HasConsistentLowPain reports whether the newest LowPainWindow entries of
	// the assignment are all below the threshold. Fewer entries never qualify.
	HasConsistentLowPain(ctx context.Context, assignment *domain.Assignment) (bool, error)
	// NextVariant returns the neighbouring variant in direction, or nil at the
	// ends of the ladder and on catalog gaps.
	NextVariant(ctx context.Context, assignment *domain.Assignment, dir domain.Direction) (*domain.ExerciseVariant, error)
	// Decide evaluates a completion with the given pain without mutating anything.
	Decide(ctx context.Context, assignment *domain.Assignment, pain int) (Decision, error)
	// Apply performs an increase or decrease decision and returns the new
	// assignment. Other decisions return nil. The caller holds the user lock.
	Apply(ctx context.Context, assignment *domain.Assignment, d Decision) (*domain.Assignment, error)
	// Progress locks the user, then decides and applies for the active
	// assignment named exerciseName.
	Progress(ctx context.Context, userID primitive.ObjectID, exerciseName string, pain int) (*domain.Assignment, Decision, error)
}

type progressionEngine struct {
	rules       Rules
	assignments AssignmentService
	catalog     CatalogService
	variantRepo repository.VariantRepository
	sessionRepo repository.SessionRepository
	locker      lock.Locker
	metrics     *metrics.Manager
	log         *logger.Logger
}

// NewProgressionEngine creates a new instance of progressionEngine.
func NewProgressionEngine(
	rules Rules,
	assignments AssignmentService,
	catalog CatalogService,
	variantRepo repository.VariantRepository,
	sessionRepo repository.SessionRepository,
	locker lock.Locker,
	m *metrics.Manager,
	log *logger.Logger,
) ProgressionEngine {
	if rules.HighPainThreshold <= 0 {
		rules.HighPainThreshold = DefaultRules().HighPainThreshold
	}
	if rules.LowPainWindow <= 0 {
		rules.LowPainWindow = DefaultRules().LowPainWindow
	}
	return &progressionEngine{
		rules:       rules,
		assignments: assignments,
		catalog:     catalog,
		variantRepo: variantRepo,
		sessionRepo: sessionRepo,
		locker:      locker,
		metrics:     m,
		log:         log.With("component", "progression"),
	}
}

func (e *progressionEngine) HasConsistentLowPain(ctx context.Context, assignment *domain.Assignment) (bool, error) {
	entries, err := e.sessionRepo.RecentEntriesForAssignment(ctx, assignment.ID, e.rules.LowPainWindow)
	if err != nil {
		return false, err
	}
	if len(entries) < e.rules.LowPainWindow {
		return false, nil
	}
	for _, entry := range entries {
		if entry.PainLevel >= e.rules.HighPainThreshold {
			return false, nil
		}
	}
	return true, nil
}

func (e *progressionEngine) NextVariant(ctx context.Context, assignment *domain.Assignment, dir domain.Direction) (*domain.ExerciseVariant, error) {
	current, err := e.variantRepo.GetByID(ctx, assignment.VariantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e.log.Warn("assignment variant missing", "assignment_id", assignment.ID.Hex(), "variant_id", assignment.VariantID.Hex())
			return nil, nil
		}
		return nil, err
	}
	next, ok := current.Difficulty.Step(dir)
	if !ok {
		return nil, nil
	}
	target, err := e.catalog.FindVariant(ctx, current.CategoryID, next)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e.log.Info("no variant at target difficulty", "category_id", current.CategoryID.Hex(), "difficulty", next)
			return nil, nil
		}
		return nil, err
	}
	return target, nil
}

func (e *progressionEngine) Decide(ctx context.Context, assignment *domain.Assignment, pain int) (Decision, error) {
	ctx, span := observability.Tracer().Start(ctx, "progression.Decide")
	defer span.End()
	span.SetAttributes(attribute.Int("pain", pain))

	none := Decision{Kind: DecisionNone}
	current, err := e.variantRepo.GetByID(ctx, assignment.VariantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			e.log.Warn("assignment variant missing", "assignment_id", assignment.ID.Hex())
			return none, nil
		}
		return none, err
	}
	none.From = current.Difficulty

	if pain >= e.rules.HighPainThreshold {
		if current.Difficulty == domain.DifficultyBeginner {
			return Decision{Kind: DecisionConsiderRemoval, From: current.Difficulty}, nil
		}
		target, err := e.NextVariant(ctx, assignment, domain.DirectionDecrease)
		if err != nil || target == nil {
			return none, err
		}
		return Decision{Kind: DecisionDecrease, From: current.Difficulty, Target: target}, nil
	}

	if _, ok := current.Difficulty.Step(domain.DirectionIncrease); !ok {
		return none, nil
	}
	low, err := e.HasConsistentLowPain(ctx, assignment)
	if err != nil || !low {
		return none, err
	}
	target, err := e.NextVariant(ctx, assignment, domain.DirectionIncrease)
	if err != nil || target == nil {
		return none, err
	}
	span.SetAttributes(attribute.String("decision", string(DecisionIncrease)))
	return Decision{Kind: DecisionIncrease, From: current.Difficulty, Target: target}, nil
}

func (e *progressionEngine) Apply(ctx context.Context, assignment *domain.Assignment, d Decision) (*domain.Assignment, error) {
	if d.Target == nil || (d.Kind != DecisionIncrease && d.Kind != DecisionDecrease) {
		return nil, nil
	}
	next, err := e.assignments.UpsertAtDifficulty(ctx, assignment.UserID, d.Target, assignment)
	if err != nil {
		return nil, err
	}
	if err := e.assignments.Deactivate(ctx, assignment); err != nil {
		return nil, err
	}
	e.metrics.CounterTransitions.WithLabelValues(string(d.Kind)).Inc()
	e.log.Info("difficulty changed",
		"user_id", assignment.UserID.Hex(),
		"from", d.From,
		"to", d.Target.Difficulty,
		"variant", d.Target.Name,
	)
	return next, nil
}

func (e *progressionEngine) Progress(ctx context.Context, userID primitive.ObjectID, exerciseName string, pain int) (*domain.Assignment, Decision, error) {
	if err := validatePain(pain); err != nil {
		return nil, Decision{Kind: DecisionNone}, err
	}
	var (
		result   *domain.Assignment
		decision = Decision{Kind: DecisionNone}
	)
	err := lock.WithUser(ctx, e.locker, userID, func(ctx context.Context) error {
		source, err := e.assignments.GetActive(ctx, userID, exerciseName)
		if err != nil {
			return err
		}
		if source == nil {
			e.log.Info("no active assignment", "user_id", userID.Hex(), "exercise", exerciseName)
			return nil
		}
		if decision, err = e.Decide(ctx, source, pain); err != nil {
			return err
		}
		result, err = e.Apply(ctx, source, decision)
		return err
	})
	if err != nil {
		return nil, Decision{Kind: DecisionNone}, err
	}
	return result, decision, nil
}
