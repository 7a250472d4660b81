package service

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func registerInput(role domain.Role) RegisterInput {
	return RegisterInput{
		Name:     gofakeit.Name(),
		Email:    gofakeit.Email(),
		Password: gofakeit.Password(true, true, true, false, false, 12),
		Role:     role,
	}
}

func TestRegister_ProvisionsPatient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", fullLadder()...)
	injury, err := f.catalog.CreateInjuryType(ctx, "ACL", "", []primitive.ObjectID{squats[domain.DifficultyBeginner].ID})
	require.NoError(t, err)

	in := registerInput(domain.RolePatient)
	in.InjuryTypeID = &injury.ID
	user, err := f.auth.Register(ctx, in)
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, domain.RolePatient, user.Role)

	active, err := f.assignments.ListActive(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Beginner Squats", active[0].Variant.Name)
}

// brokenProvisioning fails every Provision call.
type brokenProvisioning struct{ AssignmentService }

func (brokenProvisioning) Provision(context.Context, primitive.ObjectID, primitive.ObjectID) ([]domain.Assignment, error) {
	return nil, errors.New("assignment store unavailable")
}

func TestRegister_FailedProvisioningAllowsRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", domain.DifficultyBeginner)
	injury, err := f.catalog.CreateInjuryType(ctx, "ACL", "", []primitive.ObjectID{squats[domain.DifficultyBeginner].ID})
	require.NoError(t, err)

	broken := NewAuthService(f.store.Users(), f.store.InjuryTypes(), brokenProvisioning{f.assignments}, f.clock, "test-secret", time.Hour, logger.NewNop())
	in := registerInput(domain.RolePatient)
	in.InjuryTypeID = &injury.ID
	_, err = broken.Register(ctx, in)
	require.Error(t, err)

	_, err = f.store.Users().GetByEmail(ctx, in.Email)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	user, err := f.auth.Register(ctx, in)
	require.NoError(t, err)
	active, err := f.assignments.ListActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRegister_ClinicianIsNotProvisioned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	squats := f.ladder(t, "Squats", domain.DifficultyBeginner)
	injury, err := f.catalog.CreateInjuryType(ctx, "ACL", "", []primitive.ObjectID{squats[domain.DifficultyBeginner].ID})
	require.NoError(t, err)

	in := registerInput(domain.RoleClinician)
	in.InjuryTypeID = &injury.ID
	user, err := f.auth.Register(ctx, in)
	require.NoError(t, err)
	assert.Nil(t, user.InjuryTypeID)

	all, err := f.store.Assignments().ListByUser(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := registerInput(domain.RolePatient)
	_, err := f.auth.Register(ctx, in)
	require.NoError(t, err)

	dup := registerInput(domain.RolePatient)
	dup.Email = in.Email
	_, err = f.auth.Register(ctx, dup)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	bad := registerInput(domain.RolePatient)
	bad.Email = "not-an-email"
	_, err = f.auth.Register(ctx, bad)
	assert.ErrorIs(t, err, ErrValidation)

	short := registerInput(domain.RolePatient)
	short.Password = "abc"
	_, err = f.auth.Register(ctx, short)
	assert.ErrorIs(t, err, ErrValidation)

	role := registerInput("admin")
	_, err = f.auth.Register(ctx, role)
	assert.ErrorIs(t, err, ErrValidation)

	missing := registerInput(domain.RolePatient)
	unknown := primitive.NewObjectID()
	missing.InjuryTypeID = &unknown
	_, err = f.auth.Register(ctx, missing)
	assert.ErrorIs(t, err, ErrInjuryTypeNotFound)
}

func TestLogin_IssuesTokenAndResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := registerInput(domain.RolePatient)
	registered, err := f.auth.Register(ctx, in)
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, in.Email, "wrong-password")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, _, err = f.auth.Login(ctx, "nobody@example.com", in.Password)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	token, user, err := f.auth.Login(ctx, in.Email, in.Password)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordHash)

	claims := &jwtClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, err = parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(f.auth.GetJWTSecret()), nil
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, domain.RolePatient, claims.Role)
	assert.Equal(t, tokenIssuer, claims.Issuer)

	stored, err := f.store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastReset)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := registerInput(domain.RolePatient)
	user, err := f.auth.Register(ctx, in)
	require.NoError(t, err)

	err = f.auth.ChangePassword(ctx, user.ID, "wrong-password", "new-password-1")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	err = f.auth.ChangePassword(ctx, user.ID, in.Password, "short")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.auth.ChangePassword(ctx, user.ID, in.Password, "new-password-1"))
	_, _, err = f.auth.Login(ctx, in.Email, in.Password)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, _, err = f.auth.Login(ctx, in.Email, "new-password-1")
	assert.NoError(t, err)
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, err := f.auth.Register(ctx, registerInput(domain.RolePatient))
	require.NoError(t, err)

	me, err := f.auth.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, me.Email)
	assert.Empty(t, me.PasswordHash)

	_, err = f.auth.Me(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
