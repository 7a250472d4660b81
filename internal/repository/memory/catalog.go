package memory

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type categoryRepository struct{ s *Store }

// Categories returns the category repository view of the store.
func (s *Store) Categories() repository.CategoryRepository { return categoryRepository{s} }

func (r categoryRepository) Create(_ context.Context, category *domain.ExerciseCategory) (primitive.ObjectID, error) {
	if category.Name == "" {
		return primitive.NilObjectID, errors.New("category name is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categoriesByName[category.Name]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	category.ID = primitive.NewObjectID()
	if category.Slug == "" {
		category.Slug = domain.Slugify(category.Name)
	}
	category.CreatedAt = now()
	category.UpdatedAt = category.CreatedAt
	r.s.categories[category.ID] = *category
	r.s.categoriesByName[category.Name] = category.ID
	return category.ID, nil
}

func (r categoryRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ExerciseCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r categoryRepository) GetByName(_ context.Context, name string) (*domain.ExerciseCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.categoriesByName[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := r.s.categories[id]
	return &c, nil
}

func (r categoryRepository) List(_ context.Context) ([]domain.ExerciseCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.ExerciseCategory, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type variantRepository struct{ s *Store }

// Variants returns the variant repository view of the store.
func (s *Store) Variants() repository.VariantRepository { return variantRepository{s} }

func (r variantRepository) Create(_ context.Context, variant *domain.ExerciseVariant) (primitive.ObjectID, error) {
	if variant.Name == "" || variant.CategoryID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("variant name and category ID are required")
	}
	if !variant.Difficulty.Valid() {
		return primitive.NilObjectID, errors.New("variant difficulty is invalid")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := categoryDifficultyKey{variant.CategoryID, variant.Difficulty}
	if _, ok := r.s.variantsByRung[key]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	variant.ID = primitive.NewObjectID()
	if variant.Slug == "" {
		variant.Slug = domain.Slugify(variant.Name)
	}
	variant.CreatedAt = now()
	variant.UpdatedAt = variant.CreatedAt
	r.s.variants[variant.ID] = *variant
	r.s.variantsByRung[key] = variant.ID
	return variant.ID, nil
}

func (r variantRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ExerciseVariant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.variants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (r variantRepository) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.ExerciseVariant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.ExerciseVariant{}
	for _, id := range ids {
		if v, ok := r.s.variants[id]; ok {
			out = append(out, v)
		}
	}
	sortVariants(out)
	return out, nil
}

func (r variantRepository) FindByCategoryAndDifficulty(_ context.Context, categoryID primitive.ObjectID, difficulty domain.Difficulty) (*domain.ExerciseVariant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.variantsByRung[categoryDifficultyKey{categoryID, difficulty}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := r.s.variants[id]
	return &v, nil
}

func (r variantRepository) List(_ context.Context, categoryID *primitive.ObjectID) ([]domain.ExerciseVariant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.ExerciseVariant{}
	for _, v := range r.s.variants {
		if categoryID == nil || v.CategoryID == *categoryID {
			out = append(out, v)
		}
	}
	sortVariants(out)
	return out, nil
}

func (r variantRepository) SetVideoKey(_ context.Context, id primitive.ObjectID, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.variants[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.VideoKey = key
	v.UpdatedAt = now()
	r.s.variants[id] = v
	return nil
}

func sortVariants(vs []domain.ExerciseVariant) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].CategoryID != vs[j].CategoryID {
			return vs[i].CategoryID.Hex() < vs[j].CategoryID.Hex()
		}
		return vs[i].Name < vs[j].Name
	})
}

type injuryTypeRepository struct{ s *Store }

// InjuryTypes returns the injury type repository view of the store.
func (s *Store) InjuryTypes() repository.InjuryTypeRepository { return injuryTypeRepository{s} }

func (r injuryTypeRepository) Create(_ context.Context, injury *domain.InjuryType) (primitive.ObjectID, error) {
	if injury.Name == "" {
		return primitive.NilObjectID, errors.New("injury type name is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.injuries {
		if existing.Name == injury.Name {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	injury.ID = primitive.NewObjectID()
	injury.CreatedAt = now()
	if injury.Treatment == nil {
		injury.Treatment = []primitive.ObjectID{}
	}
	stored := *injury
	stored.Treatment = append([]primitive.ObjectID(nil), injury.Treatment...)
	r.s.injuries[injury.ID] = stored
	return injury.ID, nil
}

func (r injuryTypeRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.InjuryType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.s.injuries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	i.Treatment = append([]primitive.ObjectID(nil), i.Treatment...)
	return &i, nil
}

func (r injuryTypeRepository) List(_ context.Context) ([]domain.InjuryType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.InjuryType, 0, len(r.s.injuries))
	for _, i := range r.s.injuries {
		i.Treatment = append([]primitive.ObjectID(nil), i.Treatment...)
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
