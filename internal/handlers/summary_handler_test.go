package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/services"
)

// --- mock summary service ---

type mockSummaryService struct {
	recordMonthlySummaryFn func(userID string, year, month int) (*models.MonthlyBudgetSummary, error)
	recordPreviousMonthFn  func(ctx context.Context, now time.Time) (int, error)
	getSummariesFn         func(userID string, year *int) ([]models.MonthlyBudgetSummary, error)
}

var _ services.SummaryServicer = (*mockSummaryService)(nil)

func (m *mockSummaryService) RecordMonthlySummary(userID string, year, month int) (*models.MonthlyBudgetSummary, error) {
	if m.recordMonthlySummaryFn != nil {
		return m.recordMonthlySummaryFn(userID, year, month)
	}
	return &models.MonthlyBudgetSummary{UserID: userID, Year: year, Month: month}, nil
}

func (m *mockSummaryService) RecordPreviousMonthForAllUsers(ctx context.Context, now time.Time) (int, error) {
	if m.recordPreviousMonthFn != nil {
		return m.recordPreviousMonthFn(ctx, now)
	}
	return 0, nil
}

func (m *mockSummaryService) GetSummaries(userID string, year *int) ([]models.MonthlyBudgetSummary, error) {
	if m.getSummariesFn != nil {
		return m.getSummariesFn(userID, year)
	}
	return []models.MonthlyBudgetSummary{}, nil
}

// --- router setup ---

func setupSummaryRouter(handler *SummaryHandler) *gin.Engine {
	r := gin.New()
	// Pipeline route (no user auth)
	r.POST("/pipeline/summaries/monthly", handler.RecordSummaries)
	// User route (with auth)
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/summaries", handler.GetSummaries)
	return r
}

// --- tests ---

func TestSummaryHandler_RecordSummaries(t *testing.T) {
	t.Run("records previous month for all users", func(t *testing.T) {
		var gotNow time.Time
		svc := &mockSummaryService{
			recordPreviousMonthFn: func(_ context.Context, now time.Time) (int, error) {
				gotNow = now
				return 3, nil
			},
		}
		r := setupSummaryRouter(NewSummaryHandler(svc))

		rec := doRequest(r, "POST", "/pipeline/summaries/monthly", `{"as_of":"2024-02-01T01:00:00Z"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["summaries_recorded"].(float64) != 3 {
			t.Errorf("expected 3 recorded, got %s", rec.Body.String())
		}
		if !gotNow.Equal(time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)) {
			t.Errorf("expected as_of to be passed through, got %v", gotNow)
		}
	})

	t.Run("empty body uses now", func(t *testing.T) {
		called := false
		svc := &mockSummaryService{
			recordPreviousMonthFn: func(_ context.Context, now time.Time) (int, error) {
				called = true
				if time.Since(now) > time.Minute {
					t.Errorf("expected now, got %v", now)
				}
				return 0, nil
			},
		}
		r := setupSummaryRouter(NewSummaryHandler(svc))

		rec := doRequest(r, "POST", "/pipeline/summaries/monthly", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !called {
			t.Error("expected the job to run")
		}
	})

	t.Run("single user backfill", func(t *testing.T) {
		var gotUser string
		var gotYear, gotMonth int
		svc := &mockSummaryService{
			recordMonthlySummaryFn: func(userID string, year, month int) (*models.MonthlyBudgetSummary, error) {
				gotUser, gotYear, gotMonth = userID, year, month
				return &models.MonthlyBudgetSummary{UserID: userID, Year: year, Month: month, Balance: 500}, nil
			},
		}
		r := setupSummaryRouter(NewSummaryHandler(svc))

		rec := doRequest(r, "POST", "/pipeline/summaries/monthly",
			`{"user_id":"`+testUserID+`","year":2023,"month":12}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotUser != testUserID || gotYear != 2023 || gotMonth != 12 {
			t.Errorf("unexpected arguments %s %d-%d", gotUser, gotYear, gotMonth)
		}
	})

	t.Run("single user without period is rejected", func(t *testing.T) {
		svc := &mockSummaryService{
			recordMonthlySummaryFn: func(_ string, _, _ int) (*models.MonthlyBudgetSummary, error) {
				return nil, apperrors.ErrInvalidPeriod
			},
		}
		r := setupSummaryRouter(NewSummaryHandler(svc))

		rec := doRequest(r, "POST", "/pipeline/summaries/monthly", `{"user_id":"`+testUserID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 500 on job failure", func(t *testing.T) {
		svc := &mockSummaryService{
			recordPreviousMonthFn: func(_ context.Context, _ time.Time) (int, error) {
				return 0, errors.New("db down")
			},
		}
		r := setupSummaryRouter(NewSummaryHandler(svc))

		rec := doRequest(r, "POST", "/pipeline/summaries/monthly", `{}`)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestSummaryHandler_GetSummaries(t *testing.T) {
	t.Run("passes year filter", func(t *testing.T) {
		var gotYear *int
		svc := &mockSummaryService{
			getSummariesFn: func(_ string, year *int) ([]models.MonthlyBudgetSummary, error) {
				gotYear = year
				return []models.MonthlyBudgetSummary{{Year: 2024, Month: 2}, {Year: 2024, Month: 1}}, nil
			},
		}
		r := setupSummaryRouter(NewSummaryHandler(svc))

		rec := doRequest(r, "GET", "/summaries?year=2024", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotYear == nil || *gotYear != 2024 {
			t.Errorf("expected year 2024, got %v", gotYear)
		}
		if s := parseJSON(t, rec)["summaries"].([]interface{}); len(s) != 2 {
			t.Errorf("expected 2 summaries, got %d", len(s))
		}
	})

	t.Run("returns 400 on bad year", func(t *testing.T) {
		r := setupSummaryRouter(NewSummaryHandler(&mockSummaryService{}))

		rec := doRequest(r, "GET", "/summaries?year=last", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
