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

// ExerciseHandler serves the shared catalog: categories, variants and injury types.
type ExerciseHandler struct {
	catalog service.CatalogService
	log     *logger.Logger
}

func NewExerciseHandler(catalog service.CatalogService, log *logger.Logger) *ExerciseHandler {
	return &ExerciseHandler{catalog: catalog, log: log}
}

// --- DTOs for API (Data Transfer Objects) ---

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CategoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateExerciseRequest defines the expected JSON for creating a variant.
type CreateExerciseRequest struct {
	CategoryID string `json:"categoryId" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Difficulty string `json:"difficulty" binding:"required"` // Beginner, Intermediate, Advanced
	Sets       int    `json:"sets" binding:"min=0"`
	Reps       int    `json:"reps" binding:"min=0"`
	Hold       int    `json:"hold" binding:"min=0"`
	Notes      string `json:"notes"`
	VideoLink  string `json:"videoLink" binding:"omitempty,url"`
}

// ExerciseResponse is the DTO for returning variant details.
type ExerciseResponse struct {
	ID         string            `json:"id"`
	CategoryID string            `json:"categoryId"`
	Category   string            `json:"category,omitempty"`
	Name       string            `json:"name"`
	Difficulty domain.Difficulty `json:"difficulty"`
	Sets       int               `json:"sets"`
	Reps       int               `json:"reps"`
	Hold       int               `json:"hold"`
	Notes      string            `json:"notes,omitempty"`
	VideoLink  string            `json:"videoLink,omitempty"`
	VideoURL   string            `json:"videoUrl,omitempty"` // Presigned, short-lived
	HasVideo   bool              `json:"hasVideo"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

type CreateInjuryTypeRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Treatment   []string `json:"treatment"` // Variant IDs
}

type InjuryTypeResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Treatment   []string `json:"treatment"`
}

type VideoUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type VideoUploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

type ConfirmVideoRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

func MapCategoryToResponse(c *domain.ExerciseCategory) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID.Hex(),
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

// MapExerciseToResponse converts a domain.ExerciseVariant to ExerciseResponse DTO.
func MapExerciseToResponse(v *domain.ExerciseVariant) ExerciseResponse {
	if v == nil {
		return ExerciseResponse{}
	}
	return ExerciseResponse{
		ID:         v.ID.Hex(),
		CategoryID: v.CategoryID.Hex(),
		Name:       v.Name,
		Difficulty: v.Difficulty,
		Sets:       v.Sets,
		Reps:       v.Reps,
		Hold:       v.Hold,
		Notes:      v.Notes,
		VideoLink:  v.VideoLink,
		HasVideo:   v.VideoKey != "",
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

// MapExercisesToResponse converts a slice of variants to a slice of ExerciseResponse DTO.
func MapExercisesToResponse(variants []domain.ExerciseVariant) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(variants))
	for i := range variants {
		responses[i] = MapExerciseToResponse(&variants[i])
	}
	return responses
}

func MapInjuryTypeToResponse(it *domain.InjuryType) InjuryTypeResponse {
	resp := InjuryTypeResponse{
		ID:          it.ID.Hex(),
		Name:        it.Name,
		Description: it.Description,
		Treatment:   make([]string, len(it.Treatment)),
	}
	for i, id := range it.Treatment {
		resp.Treatment[i] = id.Hex()
	}
	return resp
}

// --- Handler Methods ---

// ListCategories godoc
// @Summary List exercise categories
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {array} CategoryResponse
// @Router /categories [get]
func (h *ExerciseHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve categories.")
		return
	}
	out := make([]CategoryResponse, len(categories))
	for i := range categories {
		out[i] = MapCategoryToResponse(&categories[i])
	}
	c.JSON(http.StatusOK, out)
}

// CreateCategory godoc
// @Summary Create an exercise category
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param category body CreateCategoryRequest true "Category"
// @Success 201 {object} CategoryResponse
// @Failure 403 {object} gin.H "Forbidden (not a clinician)"
// @Failure 409 {object} gin.H "Category already exists"
// @Router /categories [post]
func (h *ExerciseHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, h.log, err, "Failed to create category.")
		return
	}
	c.JSON(http.StatusCreated, MapCategoryToResponse(category))
}

// CreateExercise godoc
// @Summary Create an exercise variant
// @Description Adds one difficulty level to a category. A category holds at most one variant per difficulty.
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exercise body CreateExerciseRequest true "Exercise details"
// @Success 201 {object} ExerciseResponse "Exercise created successfully"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 403 {object} gin.H "Forbidden (not a clinician)"
// @Failure 404 {object} gin.H "Category not found"
// @Failure 409 {object} gin.H "Difficulty already taken"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req CreateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	categoryID, err := primitive.ObjectIDFromHex(req.CategoryID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid categoryId format.")
		return
	}
	difficulty, ok := domain.ParseDifficulty(req.Difficulty)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "difficulty must be Beginner, Intermediate or Advanced")
		return
	}

	variant, err := h.catalog.CreateVariant(c.Request.Context(), service.VariantInput{
		CategoryID: categoryID,
		Name:       req.Name,
		Difficulty: difficulty,
		Sets:       req.Sets,
		Reps:       req.Reps,
		Hold:       req.Hold,
		Notes:      req.Notes,
		VideoLink:  req.VideoLink,
	})
	if err != nil {
		respondError(c, h.log, err, "Failed to create exercise.")
		return
	}
	c.JSON(http.StatusCreated, MapExerciseToResponse(variant))
}

// ListExercises godoc
// @Summary List exercise variants
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param categoryId query string false "Only variants of this category"
// @Success 200 {array} ExerciseResponse
// @Failure 400 {object} gin.H "Invalid categoryId"
// @Router /exercises [get]
func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	var categoryID *primitive.ObjectID
	if raw := c.Query("categoryId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid categoryId format.")
			return
		}
		categoryID = &id
	}
	variants, err := h.catalog.ListVariants(c.Request.Context(), categoryID)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve exercises.")
		return
	}
	c.JSON(http.StatusOK, MapExercisesToResponse(variants))
}

// GetExercise godoc
// @Summary Get an exercise variant
// @Description Includes a short-lived video URL when a demo video was uploaded.
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param id path string true "Variant ObjectID Hex"
// @Success 200 {object} ExerciseResponse
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{id} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	details, err := h.catalog.GetVariant(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve exercise.")
		return
	}
	resp := MapExerciseToResponse(&details.Variant)
	resp.Category = details.Category.Name
	resp.VideoURL = details.VideoURL
	c.JSON(http.StatusOK, resp)
}

// RequestVideoUploadURL godoc
// @Summary Get a presigned URL to upload a demo video
// @Description The client PUTs the file to uploadUrl, then confirms with objectKey.
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Variant ObjectID Hex"
// @Param request body VideoUploadURLRequest true "Video content type"
// @Success 200 {object} VideoUploadURLResponse
// @Failure 400 {object} gin.H "Unsupported content type"
// @Failure 503 {object} gin.H "Storage not configured"
// @Router /exercises/{id}/video-upload-url [post]
func (h *ExerciseHandler) RequestVideoUploadURL(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req VideoUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	url, key, err := h.catalog.RequestVideoUploadURL(c.Request.Context(), id, req.ContentType)
	if err != nil {
		respondError(c, h.log, err, "Failed to prepare video upload.")
		return
	}
	c.JSON(http.StatusOK, VideoUploadURLResponse{UploadURL: url, ObjectKey: key})
}

// ConfirmVideoUpload godoc
// @Summary Attach an uploaded demo video to the exercise
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Variant ObjectID Hex"
// @Param request body ConfirmVideoRequest true "Object key returned with the upload URL"
// @Success 200 {object} ExerciseResponse
// @Failure 400 {object} gin.H "Unknown or foreign object key"
// @Router /exercises/{id}/video [post]
func (h *ExerciseHandler) ConfirmVideoUpload(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	var req ConfirmVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	variant, err := h.catalog.ConfirmVideoUpload(c.Request.Context(), id, req.ObjectKey)
	if err != nil {
		respondError(c, h.log, err, "Failed to attach video.")
		return
	}
	c.JSON(http.StatusOK, MapExerciseToResponse(variant))
}

// ListInjuryTypes godoc
// @Summary List injury types
// @Description Public; used by the signup screen.
// @Tags Catalog
// @Produce json
// @Success 200 {array} InjuryTypeResponse
// @Router /injury-types [get]
func (h *ExerciseHandler) ListInjuryTypes(c *gin.Context) {
	injuries, err := h.catalog.ListInjuryTypes(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve injury types.")
		return
	}
	out := make([]InjuryTypeResponse, len(injuries))
	for i := range injuries {
		out[i] = MapInjuryTypeToResponse(&injuries[i])
	}
	c.JSON(http.StatusOK, out)
}

// CreateInjuryType godoc
// @Summary Create an injury type with its treatment plan
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param injury body CreateInjuryTypeRequest true "Injury type"
// @Success 201 {object} InjuryTypeResponse
// @Failure 400 {object} gin.H "Unknown exercise in treatment"
// @Router /injury-types [post]
func (h *ExerciseHandler) CreateInjuryType(c *gin.Context) {
	var req CreateInjuryTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	treatment := make([]primitive.ObjectID, 0, len(req.Treatment))
	for _, raw := range req.Treatment {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid exercise ID %q in treatment.", raw))
			return
		}
		treatment = append(treatment, id)
	}
	injury, err := h.catalog.CreateInjuryType(c.Request.Context(), req.Name, req.Description, treatment)
	if err != nil {
		respondError(c, h.log, err, "Failed to create injury type.")
		return
	}
	c.JSON(http.StatusCreated, MapInjuryTypeToResponse(injury))
}
