package service

import (
	"alcyxob/rehab-app/internal/clock"
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

const (
	minPasswordLength = 8
	tokenIssuer       = "rehab-app"
)

// RegisterInput carries a signup request. InjuryTypeID only applies to patients.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Role         domain.Role
	DateOfBirth  *time.Time
	InjuryTypeID *primitive.ObjectID
}

type AuthService interface {
	// Register creates the user and, for a patient with an injury type, seeds
	// the initial assignments from its treatment plan.
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// Login runs the daily reset for the user before issuing a token.
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error
	// Me returns the profile after running the daily reset.
	Me(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	GetJWTSecret() string
}

type authService struct {
	userRepo      repository.UserRepository
	injuryRepo    repository.InjuryTypeRepository
	assignments   AssignmentService
	clock         clock.Clock
	jwtSecret     string
	jwtExpiration time.Duration
	log           *logger.Logger
}

// NewAuthService creates a new instance of authService.
func NewAuthService(
	userRepo repository.UserRepository,
	injuryRepo repository.InjuryTypeRepository,
	assignments AssignmentService,
	clk clock.Clock,
	jwtSecret string,
	jwtExpiration time.Duration,
	log *logger.Logger,
) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty")
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		userRepo:      userRepo,
		injuryRepo:    injuryRepo,
		assignments:   assignments,
		clock:         clk,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		log:           log.With("component", "auth"),
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Role == "" {
		return nil, validationError("name, email, password and role are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, validationError("invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	}
	if in.Role != domain.RolePatient && in.Role != domain.RoleClinician {
		return nil, validationError("role must be patient or clinician")
	}
	if in.Role != domain.RolePatient {
		in.InjuryTypeID = nil
	}
	if in.InjuryTypeID != nil {
		if _, err := s.injuryRepo.GetByID(ctx, *in.InjuryTypeID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInjuryTypeNotFound
			}
			return nil, err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
		Role:         in.Role,
		DateOfBirth:  in.DateOfBirth,
		InjuryTypeID: in.InjuryTypeID,
	}
	// The unique index on email settles concurrent signups.
	if _, err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	if user.InjuryTypeID != nil {
		created, err := s.assignments.Provision(ctx, user.ID, *user.InjuryTypeID)
		if err != nil {
			// Drop the account so the patient can sign up again.
			if delErr := s.userRepo.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
				s.log.Error("failed to remove unprovisioned user", "user_id", user.ID.Hex(), "error", delErr)
			}
			return nil, err
		}
		s.log.Info("patient provisioned", "user_id", user.ID.Hex(), "assignments", len(created))
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, validationError("email and password cannot be empty")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	if _, err := s.assignments.ResetDaily(ctx, user.ID); err != nil {
		return "", nil, err
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}
	user.PasswordHash = ""
	return token, user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return validationError("password must be at least %d characters", minPasswordLength)
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrAuthenticationFailed
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrHashingFailed
	}
	return s.userRepo.UpdatePasswordHash(ctx, userID, string(hash))
}

func (s *authService) Me(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	if _, err := s.assignments.ResetDaily(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (s *authService) generateJWT(user *domain.User) (string, error) {
	now := s.clock.Now()
	claims := &jwtClaims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// GetJWTSecret returns the JWT secret for middleware authentication
func (s *authService) GetJWTSecret() string {
	return s.jwtSecret
}
