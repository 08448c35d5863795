package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/services"
)

// maxWindowDays caps the trailing window of trends and savings-rate queries.
const maxWindowDays = 3660

// ReportHandler serves the read-side ledger rollups.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GetMonthlySummary handles the income/expense rollup of one month.
// @Summary     Monthly summary
// @Description Income, expenses, balance and transaction count of one calendar month
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       year  path int true "Year"
// @Param       month path int true "Month (1-12)"
// @Success     200 {object} services.MonthlySummary "Monthly summary"
// @Failure     400 {object} ErrorResponse "Invalid period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/monthly-summary/{year}/{month} [get]
func (h *ReportHandler) GetMonthlySummary(c *gin.Context) {
	userID, year, month, ok := h.periodParams(c)
	if !ok {
		return
	}

	summary, err := h.reportService.MonthlySummary(userID, year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetCategoryBreakdown handles the per-category expense split of one month.
// @Summary     Category breakdown
// @Description Expense totals per category with their share of the month's expenses
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       year  path int true "Year"
// @Param       month path int true "Month (1-12)"
// @Success     200 {array}  services.CategoryBreakdownItem "Breakdown"
// @Failure     400 {object} ErrorResponse "Invalid period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/category-breakdown/{year}/{month} [get]
func (h *ReportHandler) GetCategoryBreakdown(c *gin.Context) {
	userID, year, month, ok := h.periodParams(c)
	if !ok {
		return
	}

	items, err := h.reportService.CategoryBreakdown(userID, year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "month": month, "categories": items})
}

// GetYearlyComparison handles the twelve-month income/expense comparison.
// @Summary     Yearly comparison
// @Description Income and expenses for each of the twelve months of a year
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       year path int true "Year"
// @Success     200 {array}  services.MonthComparison "Months"
// @Failure     400 {object} ErrorResponse "Invalid year"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/yearly-comparison/{year} [get]
func (h *ReportHandler) GetYearlyComparison(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	year, err := parsePathInt(c, "year")
	if err != nil {
		respondWithError(c, err)
		return
	}

	months, err := h.reportService.YearlyComparison(userID, year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "months": months})
}

// GetTrends handles the trailing-window monthly trend.
// @Summary     Trends
// @Description Monthly income, expenses and savings over a trailing window ending today
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       days query int false "Window length in days (default 180)"
// @Success     200 {array}  services.TrendPoint "Trend"
// @Failure     400 {object} ErrorResponse "Invalid window"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/trends [get]
func (h *ReportHandler) GetTrends(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	days, err := windowDays(c, services.TrendsWindowDays)
	if err != nil {
		respondWithError(c, err)
		return
	}

	points, err := h.reportService.Trends(userID, time.Now().UTC(), days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "trends": points})
}

// GetSavingsRate handles the trailing-window savings-rate series.
// @Summary     Savings rate
// @Description Monthly savings rate, (income - expenses) / income x 100, over a trailing window ending today
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       days query int false "Window length in days (default 365)"
// @Success     200 {array}  services.SavingsRatePoint "Savings rate"
// @Failure     400 {object} ErrorResponse "Invalid window"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/savings-rate [get]
func (h *ReportHandler) GetSavingsRate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	days, err := windowDays(c, services.SavingsRateWindowDays)
	if err != nil {
		respondWithError(c, err)
		return
	}

	points, err := h.reportService.SavingsRate(userID, time.Now().UTC(), days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "savings_rate": points})
}

func (h *ReportHandler) periodParams(c *gin.Context) (userID string, year, month int, ok bool) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return "", 0, 0, false
	}
	if year, err = parsePathInt(c, "year"); err != nil {
		respondWithError(c, err)
		return "", 0, 0, false
	}
	if month, err = parsePathInt(c, "month"); err != nil {
		respondWithError(c, err)
		return "", 0, 0, false
	}
	return userID, year, month, true
}

func windowDays(c *gin.Context, def int) (int, error) {
	days, err := parseOptionalIntQuery(c, "days")
	if err != nil {
		return 0, err
	}
	if days == nil {
		return def, nil
	}
	if *days < 1 || *days > maxWindowDays {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must be between 1 and 3660")
	}
	return *days, nil
}
