package api

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/service"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
	log         *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// --- Request/Response Structs ---

type RegisterRequest struct {
	Name         string      `json:"name" binding:"required"`
	Email        string      `json:"email" binding:"required,email"`
	Password     string      `json:"password" binding:"required,min=8"`
	Role         domain.Role `json:"role" binding:"required,oneof=patient clinician"`
	DateOfBirth  string      `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
	InjuryTypeID string      `json:"injuryTypeId" binding:"omitempty"`
}

// UserResponse excludes sensitive info like password hash
type UserResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         domain.Role `json:"role"`
	DateOfBirth  string      `json:"dateOfBirth,omitempty"`
	InjuryTypeID *string     `json:"injuryTypeId,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new user (Patient or Clinician)
// @Description Creates a new user account. A patient registering with an injury type gets the initial exercises of its treatment plan.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration details"
// @Success 201 {object} UserResponse "User created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 404 {object} gin.H "Injury type not found"
// @Failure 409 {object} gin.H "Conflict (email already exists)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	in := service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid dateOfBirth, expected YYYY-MM-DD.")
			return
		}
		in.DateOfBirth = &dob
	}
	if req.InjuryTypeID != "" {
		id, err := primitive.ObjectIDFromHex(req.InjuryTypeID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid injuryTypeId format.")
			return
		}
		in.InjuryTypeID = &id
	}

	user, err := h.authService.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err, "An unexpected error occurred during registration")
		return
	}
	c.JSON(http.StatusCreated, MapUserToResponse(user))
}

// Login godoc
// @Summary Log in a user
// @Description Authenticates a user, runs the daily reset and returns a JWT token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials)"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err, "An unexpected error occurred during login")
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  MapUserToResponse(user),
	})
}

// Me godoc
// @Summary Get my profile
// @Description Returns the authenticated user. Runs the daily reset.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "User not found"
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err, "Failed to load profile.")
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

// ChangePassword godoc
// @Summary Change my password
// @Tags Auth
// @Accept json
// @Security BearerAuth
// @Param passwords body ChangePasswordRequest true "Old and new password"
// @Success 204 "Password changed"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Old password does not match"
// @Router /me/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, h.log, err, "Failed to change password.")
		return
	}
	c.Status(http.StatusNoContent)
}

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	resp := UserResponse{
		ID:        user.ID.Hex(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
	if user.DateOfBirth != nil {
		resp.DateOfBirth = user.DateOfBirth.Format(dateLayout)
	}
	if user.InjuryTypeID != nil && *user.InjuryTypeID != primitive.NilObjectID {
		injuryIDHex := user.InjuryTypeID.Hex()
		resp.InjuryTypeID = &injuryIDHex
	}
	return resp
}
