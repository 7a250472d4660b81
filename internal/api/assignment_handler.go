package api

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/service"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AssignmentHandler serves a patient's own exercises.
type AssignmentHandler struct {
	assignments service.AssignmentService
	completion  service.CompletionService
	log         *logger.Logger
}

func NewAssignmentHandler(assignments service.AssignmentService, completion service.CompletionService, log *logger.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, completion: completion, log: log}
}

// --- DTOs ---

// AssignmentResponse is one assignment with its exercise and category.
type AssignmentResponse struct {
	ID              string            `json:"id"`
	ExerciseID      string            `json:"exerciseId"`
	ExerciseName    string            `json:"exerciseName,omitempty"`
	Category        string            `json:"category,omitempty"`
	Difficulty      domain.Difficulty `json:"difficulty,omitempty"`
	Sets            int               `json:"sets"`
	Reps            int               `json:"reps"`
	Hold            int               `json:"hold"`
	PainLevel       int               `json:"painLevel"`
	Completed       bool              `json:"completed"`
	IsActive        bool              `json:"isActive"`
	DateActivated   string            `json:"dateActivated"`
	DateDeactivated *string           `json:"dateDeactivated,omitempty"`
	VideoLink       string            `json:"videoLink,omitempty"`
}

type CompletionRequest struct {
	Completed bool `json:"completed"`
	PainLevel *int `json:"pain_level" binding:"required,min=0,max=10"`
	Sets      int  `json:"sets" binding:"min=0"`
	Reps      int  `json:"reps" binding:"min=0"`
}

type CompletionResponse struct {
	Assignment     AssignmentResponse `json:"assignment"`
	ShouldIncrease bool               `json:"should_increase"`
	ShouldDecrease bool               `json:"should_decrease"`
	ShouldRemove   bool               `json:"should_remove"`
	Transitioned   bool               `json:"transitioned"`
}

type TransitionRequest struct {
	Direction string `json:"direction" binding:"required,oneof=increase decrease remove"`
	Confirm   bool   `json:"confirm"`
}

type TransitionResponse struct {
	Message    string              `json:"message"`
	Assignment *AssignmentResponse `json:"assignment,omitempty"`
}

// MapAssignmentToResponse converts an assignment; variant and category may be nil.
func MapAssignmentToResponse(a *domain.Assignment, v *domain.ExerciseVariant, cat *domain.ExerciseCategory) AssignmentResponse {
	resp := AssignmentResponse{
		ID:            a.ID.Hex(),
		ExerciseID:    a.VariantID.Hex(),
		Sets:          a.Sets,
		Reps:          a.Reps,
		Hold:          a.Hold,
		PainLevel:     a.PainLevel,
		Completed:     a.Completed,
		IsActive:      a.IsActive,
		DateActivated: a.DateActivated.Format(dateLayout),
	}
	if a.DateDeactivated != nil {
		d := a.DateDeactivated.Format(dateLayout)
		resp.DateDeactivated = &d
	}
	if v != nil {
		resp.ExerciseName = v.Name
		resp.Difficulty = v.Difficulty
		resp.VideoLink = v.VideoLink
	}
	if cat != nil {
		resp.Category = cat.Name
	}
	return resp
}

func mapDetails(details []service.AssignmentDetails) []AssignmentResponse {
	out := make([]AssignmentResponse, len(details))
	for i := range details {
		d := &details[i]
		out[i] = MapAssignmentToResponse(&d.Assignment, &d.Variant, &d.Category)
	}
	return out
}

// mapWithDetails resolves the exercise of a single assignment, falling back
// to the bare assignment when the catalog lookup fails.
func (h *AssignmentHandler) mapWithDetails(c *gin.Context, a *domain.Assignment) AssignmentResponse {
	details, err := h.assignments.Details(c.Request.Context(), a)
	if err != nil {
		h.log.Warn("assignment details unavailable", "assignment_id", a.ID.Hex(), "error", err)
		return MapAssignmentToResponse(a, nil, nil)
	}
	return MapAssignmentToResponse(a, &details.Variant, &details.Category)
}

// --- Handler Methods ---

// ListActive godoc
// @Summary Get my active exercises
// @Description Runs the daily reset first, so completion flags reflect today.
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AssignmentResponse
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /assignments [get]
func (h *AssignmentHandler) ListActive(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	details, err := h.assignments.ListActive(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve exercises.")
		return
	}
	c.JSON(http.StatusOK, mapDetails(details))
}

// ListInactive godoc
// @Summary Get my inactive exercises
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AssignmentResponse
// @Router /assignments/inactive [get]
func (h *AssignmentHandler) ListInactive(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	details, err := h.assignments.ListInactive(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve exercises.")
		return
	}
	c.JSON(http.StatusOK, mapDetails(details))
}

// RecordCompletion godoc
// @Summary Record a completion of one of my exercises
// @Description Logs today's entry and returns the difficulty changes now available. Nothing is recorded when completed is false.
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ObjectID Hex"
// @Param completion body CompletionRequest true "Outcome"
// @Success 200 {object} CompletionResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Not your assignment"
// @Failure 404 {object} gin.H "Assignment not found"
// @Router /assignments/{id}/completion [put]
func (h *AssignmentHandler) RecordCompletion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	res, err := h.completion.RecordCompletion(c.Request.Context(), userID, assignmentID, req.Sets, req.Reps, *req.PainLevel, req.Completed)
	if err != nil {
		respondError(c, h.log, err, "Failed to record completion.")
		return
	}
	c.JSON(http.StatusOK, CompletionResponse{
		Assignment:     h.mapWithDetails(c, res.Assignment),
		ShouldIncrease: res.Flags.ShouldIncrease,
		ShouldDecrease: res.Flags.ShouldDecrease,
		ShouldRemove:   res.Flags.ShouldRemove,
		Transitioned:   res.Transitioned,
	})
}

// CanIncrease godoc
// @Summary Check whether I may move to a harder variant
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ObjectID Hex"
// @Success 200 {object} gin.H "{\"can_increase\": true}"
// @Router /assignments/{id}/can-increase [get]
func (h *AssignmentHandler) CanIncrease(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	can, err := h.completion.CanIncrease(c.Request.Context(), userID, assignmentID)
	if err != nil {
		respondError(c, h.log, err, "Failed to check eligibility.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_increase": can})
}

// ConfirmTransition godoc
// @Summary Confirm or decline a difficulty change
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ObjectID Hex"
// @Param transition body TransitionRequest true "Direction and confirmation"
// @Success 200 {object} TransitionResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /assignments/{id}/transitions [post]
func (h *AssignmentHandler) ConfirmTransition(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	res, err := h.completion.ConfirmTransition(c.Request.Context(), userID, assignmentID, domain.Direction(req.Direction), req.Confirm)
	if err != nil {
		respondError(c, h.log, err, "Failed to apply transition.")
		return
	}
	resp := TransitionResponse{Message: res.Message}
	if res.Assignment != nil {
		a := h.mapWithDetails(c, res.Assignment)
		resp.Assignment = &a
	}
	c.JSON(http.StatusOK, resp)
}

// Reactivate godoc
// @Summary Reactivate one of my inactive exercises
// @Description Refused while another exercise of the same category is active.
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ObjectID Hex"
// @Success 200 {object} AssignmentResponse
// @Failure 400 {object} gin.H "Category conflict"
// @Router /assignments/{id}/reactivate [put]
func (h *AssignmentHandler) Reactivate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	assignmentID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	details, err := h.assignments.Reactivate(c.Request.Context(), userID, assignmentID)
	if err != nil {
		respondError(c, h.log, err, "Failed to reactivate exercise.")
		return
	}
	c.JSON(http.StatusOK, MapAssignmentToResponse(&details.Assignment, &details.Variant, &details.Category))
}

// dateLayout is the wire format of civil days.
const dateLayout = time.DateOnly
