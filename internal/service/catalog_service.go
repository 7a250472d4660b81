package service

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/repository"
	"alcyxob/rehab-app/internal/storage"
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VariantInput carries the fields of a new exercise variant.
type VariantInput struct {
	CategoryID primitive.ObjectID
	Name       string
	Difficulty domain.Difficulty
	Sets       int
	Reps       int
	Hold       int
	Notes      string
	VideoLink  string
}

// VariantDetails is a variant with its category and, when a demo video was
// uploaded, a short-lived download URL.
type VariantDetails struct {
	Variant  domain.ExerciseVariant
	Category domain.ExerciseCategory
	VideoURL string
}

type CatalogService interface {
	CreateCategory(ctx context.Context, name, description string) (*domain.ExerciseCategory, error)
	ListCategories(ctx context.Context) ([]domain.ExerciseCategory, error)
	CreateVariant(ctx context.Context, in VariantInput) (*domain.ExerciseVariant, error)
	GetVariant(ctx context.Context, id primitive.ObjectID) (*VariantDetails, error)
	ListVariants(ctx context.Context, categoryID *primitive.ObjectID) ([]domain.ExerciseVariant, error)
	// FindVariant returns repository.ErrNotFound when the category has no
	// variant at the given difficulty.
	FindVariant(ctx context.Context, categoryID primitive.ObjectID, difficulty domain.Difficulty) (*domain.ExerciseVariant, error)
	CreateInjuryType(ctx context.Context, name, description string, treatment []primitive.ObjectID) (*domain.InjuryType, error)
	ListInjuryTypes(ctx context.Context) ([]domain.InjuryType, error)
	RequestVideoUploadURL(ctx context.Context, variantID primitive.ObjectID, contentType string) (uploadURL, objectKey string, err error)
	ConfirmVideoUpload(ctx context.Context, variantID primitive.ObjectID, objectKey string) (*domain.ExerciseVariant, error)
}

type catalogService struct {
	categoryRepo  repository.CategoryRepository
	variantRepo   repository.VariantRepository
	injuryRepo    repository.InjuryTypeRepository
	fileStorage   storage.FileStorage // nil when S3 is not configured
	presignExpiry time.Duration
	log           *logger.Logger
}

// NewCatalogService creates a new instance of catalogService.
func NewCatalogService(
	categoryRepo repository.CategoryRepository,
	variantRepo repository.VariantRepository,
	injuryRepo repository.InjuryTypeRepository,
	fileStorage storage.FileStorage,
	presignExpiry time.Duration,
	log *logger.Logger,
) CatalogService {
	return &catalogService{
		categoryRepo:  categoryRepo,
		variantRepo:   variantRepo,
		injuryRepo:    injuryRepo,
		fileStorage:   fileStorage,
		presignExpiry: presignExpiry,
		log:           log,
	}
}

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*domain.ExerciseCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("category name is required")
	}
	category := &domain.ExerciseCategory{Name: name, Description: description}
	if _, err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]domain.ExerciseCategory, error) {
	return s.categoryRepo.List(ctx)
}

// CreateVariant adds one difficulty level to an existing category.
func (s *catalogService) CreateVariant(ctx context.Context, in VariantInput) (*domain.ExerciseVariant, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationError("variant name is required")
	}
	if !in.Difficulty.Valid() {
		return nil, validationError("difficulty must be Beginner, Intermediate or Advanced")
	}
	if in.Sets < 0 || in.Reps < 0 || in.Hold < 0 {
		return nil, validationError("sets, reps and hold cannot be negative")
	}
	if _, err := s.categoryRepo.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	variant := &domain.ExerciseVariant{
		CategoryID: in.CategoryID,
		Name:       strings.TrimSpace(in.Name),
		Difficulty: in.Difficulty,
		Sets:       in.Sets,
		Reps:       in.Reps,
		Hold:       in.Hold,
		Notes:      in.Notes,
		VideoLink:  in.VideoLink,
	}
	if _, err := s.variantRepo.Create(ctx, variant); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrVariantExists
		}
		return nil, err
	}
	return variant, nil
}

func (s *catalogService) GetVariant(ctx context.Context, id primitive.ObjectID) (*VariantDetails, error) {
	variant, err := s.variantRepo.GetByID(ctx, id)
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

	details := &VariantDetails{Variant: *variant, Category: *category}
	if variant.VideoKey != "" && s.fileStorage != nil {
		url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, variant.VideoKey, s.presignExpiry)
		if err != nil {
			// The variant is still usable without its video.
			s.log.Warn("failed to presign video download", "variant_id", id.Hex(), "error", err)
		} else {
			details.VideoURL = url
		}
	}
	return details, nil
}

func (s *catalogService) ListVariants(ctx context.Context, categoryID *primitive.ObjectID) ([]domain.ExerciseVariant, error) {
	return s.variantRepo.List(ctx, categoryID)
}

func (s *catalogService) FindVariant(ctx context.Context, categoryID primitive.ObjectID, difficulty domain.Difficulty) (*domain.ExerciseVariant, error) {
	return s.variantRepo.FindByCategoryAndDifficulty(ctx, categoryID, difficulty)
}

func (s *catalogService) CreateInjuryType(ctx context.Context, name, description string, treatment []primitive.ObjectID) (*domain.InjuryType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("injury type name is required")
	}
	if len(treatment) > 0 {
		found, err := s.variantRepo.GetByIDs(ctx, treatment)
		if err != nil {
			return nil, err
		}
		if len(found) != len(uniqueIDs(treatment)) {
			return nil, validationError("treatment references unknown exercise variants")
		}
	}

	injury := &domain.InjuryType{Name: name, Description: description, Treatment: treatment}
	if _, err := s.injuryRepo.Create(ctx, injury); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validationError("injury type %q already exists", name)
		}
		return nil, err
	}
	return injury, nil
}

func (s *catalogService) ListInjuryTypes(ctx context.Context) ([]domain.InjuryType, error) {
	return s.injuryRepo.List(ctx)
}

// RequestVideoUploadURL issues a presigned PUT for a new demo video. The
// variant only points at the object once ConfirmVideoUpload succeeds.
func (s *catalogService) RequestVideoUploadURL(ctx context.Context, variantID primitive.ObjectID, contentType string) (string, string, error) {
	if s.fileStorage == nil {
		return "", "", ErrStorageUnavailable
	}
	if _, err := s.variantRepo.GetByID(ctx, variantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrVariantNotFound
		}
		return "", "", err
	}
	key, err := storage.VideoObjectKey(variantID, contentType)
	if err != nil {
		return "", "", validationError("%v", err)
	}
	url, err := s.fileStorage.GeneratePresignedUploadURL(ctx, key, contentType, s.presignExpiry)
	if err != nil {
		return "", "", err
	}
	return url, key, nil
}

func (s *catalogService) ConfirmVideoUpload(ctx context.Context, variantID primitive.ObjectID, objectKey string) (*domain.ExerciseVariant, error) {
	if s.fileStorage == nil {
		return nil, ErrStorageUnavailable
	}
	if !storage.IsVideoKeyFor(variantID, objectKey) {
		return nil, validationError("object key does not belong to this exercise")
	}
	variant, err := s.variantRepo.GetByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	if err := s.fileStorage.ObjectExists(ctx, objectKey); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, validationError("no video was uploaded under this key")
		}
		return nil, err
	}

	previous := variant.VideoKey
	if err := s.variantRepo.SetVideoKey(ctx, variantID, objectKey); err != nil {
		return nil, err
	}
	variant.VideoKey = objectKey
	if previous != "" && previous != objectKey {
		if err := s.fileStorage.DeleteObject(ctx, previous); err != nil {
			s.log.Warn("failed to delete replaced video", "key", previous, "error", err)
		}
	}
	return variant, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
