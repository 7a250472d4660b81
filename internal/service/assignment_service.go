package service

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/lock"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentDetails joins an assignment with its variant and category.
type AssignmentDetails struct {
	Assignment domain.Assignment
	Variant    domain.ExerciseVariant
	Category   domain.ExerciseCategory
}

// AssignmentService owns the per-user assignment state. Methods documented as
// locking take the user's lock themselves; the others expect the caller to
// hold it.
type AssignmentService interface {
	// GetActive returns the active assignment whose variant is named
	// exerciseName, or nil when there is none.
	GetActive(ctx context.Context, userID primitive.ObjectID, exerciseName string) (*domain.Assignment, error)
	// GetOwned loads an assignment and checks it belongs to userID.
	GetOwned(ctx context.Context, userID, assignmentID primitive.ObjectID) (*domain.Assignment, error)
	// UpsertAtDifficulty activates the (user, variant) assignment, reusing a
	// dormant row or creating one from template.
	UpsertAtDifficulty(ctx context.Context, userID primitive.ObjectID, variant *domain.ExerciseVariant, template *domain.Assignment) (*domain.Assignment, error)
	// Save persists pain, completion and prescription changes.
	Save(ctx context.Context, assignment *domain.Assignment) error
	// Deactivate is idempotent: an inactive assignment keeps its deactivation day.
	Deactivate(ctx context.Context, assignment *domain.Assignment) error

	// Reactivate locks. It fails with *CategoryConflictError when another
	// assignment of the same category is active.
	Reactivate(ctx context.Context, userID, assignmentID primitive.ObjectID) (*AssignmentDetails, error)
	// ResetDaily locks. It reports whether a reset happened.
	ResetDaily(ctx context.Context, userID primitive.ObjectID) (bool, error)
	// ListActive and ListInactive lock for the reset they run first.
	ListActive(ctx context.Context, userID primitive.ObjectID) ([]AssignmentDetails, error)
	ListInactive(ctx context.Context, userID primitive.ObjectID) ([]AssignmentDetails, error)
	// Provision locks and seeds assignments from an injury type's treatment plan.
	Provision(ctx context.Context, userID, injuryTypeID primitive.ObjectID) ([]domain.Assignment, error)
	// Details resolves the variant and category of an assignment.
	Details(ctx context.Context, assignment *domain.Assignment) (*AssignmentDetails, error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	variantRepo    repository.VariantRepository
	categoryRepo   repository.CategoryRepository
	injuryRepo     repository.InjuryTypeRepository
	userRepo       repository.UserRepository
	locker         lock.Locker
	clock          clock.Clock
	metrics        *metrics.Manager
	log            *logger.Logger
}

// NewAssignmentService creates a new instance of assignmentService.
func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	variantRepo repository.VariantRepository,
	categoryRepo repository.CategoryRepository,
	injuryRepo repository.InjuryTypeRepository,
	userRepo repository.UserRepository,
	locker lock.Locker,
	clk clock.Clock,
	m *metrics.Manager,
	log *logger.Logger,
) AssignmentService {
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		variantRepo:    variantRepo,
		categoryRepo:   categoryRepo,
		injuryRepo:     injuryRepo,
		userRepo:       userRepo,
		locker:         locker,
		clock:          clk,
		metrics:        m,
		log:            log.With("component", "assignments"),
	}
}

func (s *assignmentService) GetActive(ctx context.Context, userID primitive.ObjectID, exerciseName string) (*domain.Assignment, error) {
	active := true
	assignments, err := s.assignmentRepo.ListByUser(ctx, userID, &active)
	if err != nil {
		return nil, err
	}
	variants, err := s.variantsOf(ctx, assignments)
	if err != nil {
		return nil, err
	}
	for i := range assignments {
		if v, ok := variants[assignments[i].VariantID]; ok && v.Name == exerciseName {
			return &assignments[i], nil
		}
	}
	return nil, nil
}

func (s *assignmentService) GetOwned(ctx context.Context, userID, assignmentID primitive.ObjectID) (*domain.Assignment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	if assignment.UserID != userID {
		return nil, ErrAssignmentAccessDenied
	}
	return assignment, nil
}

func (s *assignmentService) UpsertAtDifficulty(ctx context.Context, userID primitive.ObjectID, variant *domain.ExerciseVariant, template *domain.Assignment) (*domain.Assignment, error) {
	return s.assignmentRepo.UpsertForVariant(ctx, userID, variant, template, clock.Today(s.clock))
}

func (s *assignmentService) Save(ctx context.Context, assignment *domain.Assignment) error {
	return s.assignmentRepo.Update(ctx, assignment)
}

func (s *assignmentService) Deactivate(ctx context.Context, assignment *domain.Assignment) error {
	if !assignment.IsActive {
		return nil
	}
	today := clock.Today(s.clock)
	assignment.IsActive = false
	assignment.DateDeactivated = &today
	return s.assignmentRepo.Update(ctx, assignment)
}

func (s *assignmentService) Reactivate(ctx context.Context, userID, assignmentID primitive.ObjectID) (*AssignmentDetails, error) {
	var details *AssignmentDetails
	err := lock.WithUser(ctx, s.locker, userID, func(ctx context.Context) error {
		assignment, err := s.GetOwned(ctx, userID, assignmentID)
		if err != nil {
			return err
		}
		target, err := s.Details(ctx, assignment)
		if err != nil {
			return err
		}
		if assignment.IsActive {
			details = target
			return nil
		}

		conflict, err := s.activeInCategory(ctx, userID, target.Variant.CategoryID, assignment.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			s.metrics.CounterCategoryConflicts.Inc()
			return &CategoryConflictError{Category: target.Category.Name, Difficulty: conflict.Difficulty}
		}

		assignment.IsActive = true
		assignment.DateDeactivated = nil
		if err := s.assignmentRepo.Update(ctx, assignment); err != nil {
			return err
		}
		target.Assignment = *assignment
		details = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// activeInCategory returns the variant of an active assignment in categoryID
// other than except, or nil.
func (s *assignmentService) activeInCategory(ctx context.Context, userID, categoryID, except primitive.ObjectID) (*domain.ExerciseVariant, error) {
	active := true
	assignments, err := s.assignmentRepo.ListByUser(ctx, userID, &active)
	if err != nil {
		return nil, err
	}
	variants, err := s.variantsOf(ctx, assignments)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if a.ID == except {
			continue
		}
		if v, ok := variants[a.VariantID]; ok && v.CategoryID == categoryID {
			return &v, nil
		}
	}
	return nil, nil
}

func (s *assignmentService) ResetDaily(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	var reset bool
	err := lock.WithUser(ctx, s.locker, userID, func(ctx context.Context) error {
		var err error
		reset, err = s.resetDaily(ctx, userID)
		return err
	})
	return reset, err
}

func (s *assignmentService) resetDaily(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}

	now := s.clock.Now()
	today := clock.Day(now, s.clock.Location())
	if user.LastReset != nil && !clock.Day(*user.LastReset, s.clock.Location()).Before(today) {
		return false, nil
	}

	cleared, err := s.assignmentRepo.ResetDailyFlags(ctx, userID)
	if err != nil {
		return false, err
	}
	if err := s.userRepo.SetLastReset(ctx, userID, now); err != nil {
		return false, err
	}
	s.metrics.CounterResets.Inc()
	s.log.Debug("daily reset", "user_id", userID.Hex(), "cleared", cleared)
	return true, nil
}

func (s *assignmentService) ListActive(ctx context.Context, userID primitive.ObjectID) ([]AssignmentDetails, error) {
	return s.list(ctx, userID, true)
}

func (s *assignmentService) ListInactive(ctx context.Context, userID primitive.ObjectID) ([]AssignmentDetails, error) {
	return s.list(ctx, userID, false)
}

func (s *assignmentService) list(ctx context.Context, userID primitive.ObjectID, active bool) ([]AssignmentDetails, error) {
	if _, err := s.ResetDaily(ctx, userID); err != nil {
		return nil, err
	}
	assignments, err := s.assignmentRepo.ListByUser(ctx, userID, &active)
	if err != nil {
		return nil, err
	}
	return s.detailsOf(ctx, assignments)
}

func (s *assignmentService) Provision(ctx context.Context, userID, injuryTypeID primitive.ObjectID) ([]domain.Assignment, error) {
	injury, err := s.injuryRepo.GetByID(ctx, injuryTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInjuryTypeNotFound
		}
		return nil, err
	}

	var created []domain.Assignment
	err = lock.WithUser(ctx, s.locker, userID, func(ctx context.Context) error {
		variants, err := s.variantRepo.GetByIDs(ctx, injury.Treatment)
		if err != nil {
			return err
		}
		byID := make(map[primitive.ObjectID]domain.ExerciseVariant, len(variants))
		for _, v := range variants {
			byID[v.ID] = v
		}

		// Treatment order decides which variant wins a category.
		taken := map[primitive.ObjectID]bool{}
		for _, id := range injury.Treatment {
			v, ok := byID[id]
			if !ok {
				s.log.Warn("treatment references missing variant", "injury_type", injury.Name, "variant_id", id.Hex())
				continue
			}
			if taken[v.CategoryID] {
				continue
			}
			conflict, err := s.activeInCategory(ctx, userID, v.CategoryID, primitive.NilObjectID)
			if err != nil {
				return err
			}
			taken[v.CategoryID] = true
			if conflict != nil {
				continue
			}
			a, err := s.UpsertAtDifficulty(ctx, userID, &v, nil)
			if err != nil {
				return err
			}
			created = append(created, *a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *assignmentService) Details(ctx context.Context, assignment *domain.Assignment) (*AssignmentDetails, error) {
	variant, err := s.variantRepo.GetByID(ctx, assignment.VariantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	category, err := s.categoryRepo.GetByID(ctx, variant.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &AssignmentDetails{Assignment: *assignment, Variant: *variant, Category: *category}, nil
}

// detailsOf joins assignments with their catalog rows, skipping assignments
// whose variant has disappeared from the catalog.
func (s *assignmentService) detailsOf(ctx context.Context, assignments []domain.Assignment) ([]AssignmentDetails, error) {
	variants, err := s.variantsOf(ctx, assignments)
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[primitive.ObjectID]domain.ExerciseCategory, len(categories))
	for _, c := range categories {
		byCategory[c.ID] = c
	}

	out := make([]AssignmentDetails, 0, len(assignments))
	for _, a := range assignments {
		v, ok := variants[a.VariantID]
		if !ok {
			s.log.Warn("assignment references missing variant", "assignment_id", a.ID.Hex(), "variant_id", a.VariantID.Hex())
			continue
		}
		out = append(out, AssignmentDetails{Assignment: a, Variant: v, Category: byCategory[v.CategoryID]})
	}
	return out, nil
}

func (s *assignmentService) variantsOf(ctx context.Context, assignments []domain.Assignment) (map[primitive.ObjectID]domain.ExerciseVariant, error) {
	ids := make([]primitive.ObjectID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.VariantID)
	}
	variants, err := s.variantRepo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.ExerciseVariant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}
	return byID, nil
}
