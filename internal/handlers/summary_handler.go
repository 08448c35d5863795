package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/services"
)

// SummaryHandler handles the persisted month-end snapshots.
type SummaryHandler struct {
	summaryService services.SummaryServicer
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(summaryService services.SummaryServicer) *SummaryHandler {
	return &SummaryHandler{summaryService: summaryService}
}

// RecordSummariesRequest selects what the snapshot job records.
// With UserID set, Year and Month name the single period to (re)compute for
// that user. Otherwise the previous calendar month relative to AsOf (default
// now) is recorded for every active user.
type RecordSummariesRequest struct {
	AsOf   *time.Time `json:"as_of"`
	UserID string     `json:"user_id" binding:"omitempty,uuid"`
	Year   int        `json:"year" binding:"omitempty,min=1"`
	Month  int        `json:"month" binding:"omitempty,month"`
}

// RecordSummaries runs the monthly snapshot job.
// @Summary     Record monthly summaries
// @Description Upsert month-end income/expense snapshots (pipeline endpoint). Safe to re-run.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    PipelineKey
// @Param       request   body     RecordSummariesRequest false "Snapshot parameters"
// @Success     200       {object} map[string]int         "Summaries recorded count"
// @Failure     400       {object} ErrorResponse          "Invalid input"
// @Failure     401       {object} ErrorResponse          "Invalid API key"
// @Failure     503       {object} ErrorResponse          "Pipeline not configured"
// @Router      /pipeline/summaries/monthly [post]
func (h *SummaryHandler) RecordSummaries(c *gin.Context) {
	var req RecordSummariesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	if req.UserID != "" {
		summary, err := h.summaryService.RecordMonthlySummary(req.UserID, req.Year, req.Month)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"summaries_recorded": 1, "summary": summary})
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = req.AsOf.UTC()
	}

	count, err := h.summaryService.RecordPreviousMonthForAllUsers(c.Request.Context(), asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summaries_recorded": count})
}

// GetSummaries lists the authenticated user's stored month-end snapshots.
// @Summary     Get monthly summaries
// @Description Stored month-end snapshots, newest period first
// @Tags        summaries
// @Produce     json
// @Security    BearerAuth
// @Param       year query int false "Restrict to one year"
// @Success     200 {array}  models.MonthlyBudgetSummary "Summaries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /summaries [get]
func (h *SummaryHandler) GetSummaries(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, err := parseOptionalIntQuery(c, "year")
	if err != nil {
		respondWithError(c, err)
		return
	}

	summaries, err := h.summaryService.GetSummaries(userID, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}
