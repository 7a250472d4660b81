package service

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/lock"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/repository/memory"
	"alcyxob/rehab-app/internal/storage"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Monday, October 19, 2026.
var day0 = time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	clock   *clock.Fake
	metrics *metrics.Manager
	files   *fakeStorage

	catalog     CatalogService
	assignments AssignmentService
	sessions    SessionService
	engine      ProgressionEngine
	completion  CompletionService
	stats       StatsService
	auth        AuthService
}

type fixtureOpts struct {
	autoApply bool
}

func newFixture(t *testing.T, opts ...fixtureOpts) *fixture {
	t.Helper()
	var o fixtureOpts
	if len(opts) > 0 {
		o = opts[0]
	}

	f := &fixture{
		store:   memory.New(),
		clock:   clock.NewFake(day0),
		metrics: metrics.NewTestManager(),
		files:   newFakeStorage(),
	}
	log := logger.NewNop()
	locker := lock.NewLocal()

	f.catalog = NewCatalogService(f.store.Categories(), f.store.Variants(), f.store.InjuryTypes(), f.files, time.Minute, log)
	f.assignments = NewAssignmentService(
		f.store.Assignments(), f.store.Variants(), f.store.Categories(), f.store.InjuryTypes(), f.store.Users(),
		locker, f.clock, f.metrics, log,
	)
	f.sessions = NewSessionService(f.store.Sessions(), locker, f.clock)
	f.engine = NewProgressionEngine(DefaultRules(), f.assignments, f.catalog, f.store.Variants(), f.store.Sessions(), locker, f.metrics, log)
	f.completion = NewCompletionService(f.assignments, f.sessions, f.engine, locker, o.autoApply, f.metrics, log)
	f.stats = NewStatsService(f.store.Assignments(), f.store.Sessions(), f.store.Variants(), f.clock)
	f.auth = NewAuthService(f.store.Users(), f.store.InjuryTypes(), f.assignments, f.clock, "test-secret", time.Hour, log)
	return f
}

// ladder creates a category with one variant per given difficulty.
func (f *fixture) ladder(t *testing.T, category string, levels ...domain.Difficulty) map[domain.Difficulty]*domain.ExerciseVariant {
	t.Helper()
	ctx := context.Background()
	c, err := f.catalog.CreateCategory(ctx, category, "")
	require.NoError(t, err)

	out := make(map[domain.Difficulty]*domain.ExerciseVariant, len(levels))
	for _, d := range levels {
		v, err := f.catalog.CreateVariant(ctx, VariantInput{
			CategoryID: c.ID,
			Name:       string(d) + " " + category,
			Difficulty: d,
			Sets:       3,
			Reps:       10,
		})
		require.NoError(t, err)
		out[d] = v
	}
	return out
}

func fullLadder() []domain.Difficulty {
	return []domain.Difficulty{domain.DifficultyBeginner, domain.DifficultyIntermediate, domain.DifficultyAdvanced}
}

func (f *fixture) patient(t *testing.T) primitive.ObjectID {
	t.Helper()
	id, err := f.store.Users().Create(context.Background(), &domain.User{
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		PasswordHash: "hash",
		Role:         domain.RolePatient,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) assign(t *testing.T, userID primitive.ObjectID, v *domain.ExerciseVariant) *domain.Assignment {
	t.Helper()
	a, err := f.assignments.UpsertAtDifficulty(context.Background(), userID, v, nil)
	require.NoError(t, err)
	return a
}

func (f *fixture) complete(t *testing.T, userID primitive.ObjectID, a *domain.Assignment, pain int) *CompletionResult {
	t.Helper()
	res, err := f.completion.RecordCompletion(context.Background(), userID, a.ID, 3, 10, pain, true)
	require.NoError(t, err)
	return res
}

func (f *fixture) nextDay() {
	f.clock.Advance(24 * time.Hour)
}

func (f *fixture) reload(t *testing.T, id primitive.ObjectID) *domain.Assignment {
	t.Helper()
	a, err := f.store.Assignments().GetByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

// fakeStorage keeps object keys in memory.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]bool
	deleted []string
}

var _ storage.FileStorage = (*fakeStorage)(nil)

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]bool{}}
}

func (s *fakeStorage) put(key string) {
	s.mu.Lock()
	s.objects[key] = true
	s.mu.Unlock()
}

func (s *fakeStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	return "https://upload.example/" + objectKey, nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://download.example/" + objectKey, nil
}

func (s *fakeStorage) ObjectExists(_ context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.objects[objectKey] {
		return storage.ErrObjectNotFound
	}
	return nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectKey)
	s.deleted = append(s.deleted, objectKey)
	return nil
}
