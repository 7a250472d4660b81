package api

import (
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/service"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the patient's statistics and daily notes.
type ReportHandler struct {
	stats    service.StatsService
	sessions service.SessionService
	log      *logger.Logger
}

func NewReportHandler(stats service.StatsService, sessions service.SessionService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{stats: stats, sessions: sessions, log: log}
}

// --- DTOs ---

type Dataset struct {
	Data []float64 `json:"data"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type HistoryItemResponse struct {
	Date        string  `json:"date"`
	DisplayDate string  `json:"display_date"`
	Completed   *int    `json:"completed,omitempty"`
	Total       *int    `json:"total,omitempty"`
	Ratio       string  `json:"ratio,omitempty"`
	EntryCount  int     `json:"entry_count"`
	PainLevel   float64 `json:"pain_level"`
}

type AdherenceResponse struct {
	ChartData        ChartData             `json:"chart_data"`
	AverageAdherence float64               `json:"average_adherence"`
	History          []HistoryItemResponse `json:"history"`
}

type PainResponse struct {
	ChartData   ChartData             `json:"chart_data"`
	AveragePain float64               `json:"average_pain"`
	History     []HistoryItemResponse `json:"history"`
}

type ExerciseDetailResponse struct {
	Name          string `json:"name"`
	CompletedSets int    `json:"completed_sets"`
	CompletedReps int    `json:"completed_reps"`
	PainLevel     int    `json:"pain_level"`
}

type ExerciseHistoryItemResponse struct {
	Date          string                   `json:"date"`
	FormattedDate string                   `json:"formatted_date"`
	Exercises     []ExerciseDetailResponse `json:"exercises"`
	PainLevel     float64                  `json:"pain_level"`
	Notes         string                   `json:"notes"`
}

type ExerciseHistoryResponse struct {
	History []ExerciseHistoryItemResponse `json:"history"`
}

type NotesRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

type NotesResponse struct {
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

func chartData(r *service.StatsReport) ChartData {
	return ChartData{Labels: r.Labels, Datasets: []Dataset{{Data: r.Values}}}
}

func mapHistory(items []service.HistoryItem, withRatio bool) []HistoryItemResponse {
	out := make([]HistoryItemResponse, len(items))
	for i, it := range items {
		resp := HistoryItemResponse{
			Date:        it.Date.Format(dateLayout),
			DisplayDate: it.DisplayDate,
			EntryCount:  it.EntryCount,
			PainLevel:   it.PainLevel,
		}
		if withRatio {
			completed, total := it.Completed, it.Total
			resp.Completed, resp.Total, resp.Ratio = &completed, &total, it.Ratio
		}
		out[i] = resp
	}
	return out
}

// endDate parses the optional end_date query parameter.
func endDate(c *gin.Context) (*time.Time, bool) {
	raw := c.Query("end_date")
	if raw == "" {
		return nil, true
	}
	end, err := time.Parse(dateLayout, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD.")
		return nil, false
	}
	return &end, true
}

// --- Handler Methods ---

// Adherence godoc
// @Summary My adherence over the 7 days ending at end_date
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param end_date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} AdherenceResponse
// @Router /reports/adherence [get]
func (h *ReportHandler) Adherence(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	end, ok := endDate(c)
	if !ok {
		return
	}
	report, err := h.stats.GetAdherenceStats(c.Request.Context(), userID, end)
	if err != nil {
		respondError(c, h.log, err, "Failed to compute adherence.")
		return
	}
	c.JSON(http.StatusOK, AdherenceResponse{
		ChartData:        chartData(report),
		AverageAdherence: report.Average,
		History:          mapHistory(report.History, true),
	})
}

// Pain godoc
// @Summary My pain levels over the 7 days ending at end_date
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param end_date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} PainResponse
// @Router /reports/pain [get]
func (h *ReportHandler) Pain(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	end, ok := endDate(c)
	if !ok {
		return
	}
	report, err := h.stats.GetPainStats(c.Request.Context(), userID, end)
	if err != nil {
		respondError(c, h.log, err, "Failed to compute pain statistics.")
		return
	}
	c.JSON(http.StatusOK, PainResponse{
		ChartData:   chartData(report),
		AveragePain: report.Average,
		History:     mapHistory(report.History, false),
	})
}

// History godoc
// @Summary My most recent sessions with per-exercise details
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of sessions, default 10"
// @Success 200 {object} ExerciseHistoryResponse
// @Router /reports/history [get]
func (h *ReportHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid limit %q.", raw))
			return
		}
		limit = n
	}
	items, err := h.stats.GetExerciseHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.log, err, "Failed to retrieve history.")
		return
	}

	out := make([]ExerciseHistoryItemResponse, len(items))
	for i, it := range items {
		exercises := make([]ExerciseDetailResponse, len(it.Exercises))
		for j, e := range it.Exercises {
			exercises[j] = ExerciseDetailResponse(e)
		}
		out[i] = ExerciseHistoryItemResponse{
			Date:          it.Date,
			FormattedDate: it.FormattedDate,
			Exercises:     exercises,
			PainLevel:     it.PainLevel,
			Notes:         it.Notes,
		}
	}
	c.JSON(http.StatusOK, ExerciseHistoryResponse{History: out})
}

// UpdateTodayNotes godoc
// @Summary Set the notes of today's report
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param notes body NotesRequest true "Notes"
// @Success 200 {object} NotesResponse
// @Router /reports/today/notes [put]
func (h *ReportHandler) UpdateTodayNotes(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	session, err := h.sessions.UpdateNotes(c.Request.Context(), userID, h.sessions.Today(), req.Notes)
	if err != nil {
		respondError(c, h.log, err, "Failed to save notes.")
		return
	}
	c.JSON(http.StatusOK, NotesResponse{Date: session.Date.Format(dateLayout), Notes: session.Notes})
}
