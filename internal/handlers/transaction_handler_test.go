package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/pagination"
	"budgetapp/internal/services"
)

const testTransactionID = "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a70"

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn   func(userID, categoryID string, transactionType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error)
	getUserTransactionsFn func(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn  func(userID, transactionID string) (*models.Transaction, error)
	updateTransactionFn   func(userID, transactionID string, update services.TransactionUpdate) (*models.Transaction, error)
	deleteTransactionFn   func(userID, transactionID string) error
}

func (m *mockTransactionService) CreateTransaction(userID, categoryID string, transactionType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, categoryID, transactionType, amount, description, date)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(userID, transactionID string, update services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(userID, transactionID, update)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.GetUserTransactions)
	auth.GET("/transactions/stats", handler.GetTransactionStats)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.PUT("/transactions/:id", handler.UpdateTransaction)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	return r
}

func newTransactionHandler(txSvc *mockTransactionService, reportSvc *mockReportService) *TransactionHandler {
	if reportSvc == nil {
		reportSvc = &mockReportService{}
	}
	return NewTransactionHandler(txSvc, reportSvc, &mockAuditService{})
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var gotDate time.Time
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID, categoryID string, txType models.TransactionType, amount int64, _ string, date time.Time) (*models.Transaction, error) {
				gotDate = date
				return &models.Transaction{
					Base:       models.Base{ID: testTransactionID},
					UserID:     userID,
					CategoryID: categoryID,
					Type:       txType,
					Amount:     amount,
					Date:       date,
				}, nil
			},
		}
		r := setupTransactionRouter(newTransactionHandler(txSvc, nil))

		rec := doRequest(r, "POST", "/transactions",
			`{"category_id":"`+testCategoryID+`","type":"income","amount":5000,"description":"Salary","date":"2024-05-10"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["amount"].(float64) != 5000 {
			t.Errorf("expected amount 5000, got %v", tx["amount"])
		}
		if !gotDate.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected 2024-05-10, got %v", gotDate)
		}
	})

	t.Run("omitted date is passed as zero", func(t *testing.T) {
		called := false
		txSvc := &mockTransactionService{
			createTransactionFn: func(_, _ string, _ models.TransactionType, _ int64, _ string, date time.Time) (*models.Transaction, error) {
				called = true
				if !date.IsZero() {
					t.Errorf("expected zero date, got %v", date)
				}
				return &models.Transaction{}, nil
			},
		}
		r := setupTransactionRouter(newTransactionHandler(txSvc, nil))

		rec := doRequest(r, "POST", "/transactions",
			`{"category_id":"`+testCategoryID+`","type":"expense","amount":100}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !called {
			t.Error("service was not called")
		}
	})

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing category_id", `{"type":"income","amount":5000}`, "INVALID_INPUT"},
		{"zero amount", `{"category_id":"` + testCategoryID + `","type":"income","amount":0}`, "INVALID_INPUT"},
		{"negative amount", `{"category_id":"` + testCategoryID + `","type":"income","amount":-5}`, "INVALID_INPUT"},
		{"unknown type", `{"category_id":"` + testCategoryID + `","type":"transfer","amount":5}`, "INVALID_INPUT"},
		{"bad date", `{"category_id":"` + testCategoryID + `","type":"income","amount":5,"date":"10/05/2024"}`, "INVALID_DATE"},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupTransactionRouter(newTransactionHandler(&mockTransactionService{}, nil))

			rec := doRequest(r, "POST", "/transactions", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), tt.code)
		})
	}

	t.Run("returns 404 on foreign category", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(_, _ string, _ models.TransactionType, _ int64, _ string, _ time.Time) (*models.Transaction, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		r := setupTransactionRouter(newTransactionHandler(txSvc, nil))

		rec := doRequest(r, "POST", "/transactions",
			`{"category_id":"`+testCategoryID+`","type":"income","amount":5000}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetUserTransactions(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		var got services.TransactionFilter
		txSvc := &mockTransactionService{
			getUserTransactionsFn: func(_ string, _ pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(newTransactionHandler(txSvc, nil))

		rec := doRequest(r, "GET",
			"/transactions?year=2024&month=5&type=expense&category_id="+testCategoryID+"&min_amount=100&max_amount=900", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Year == nil || *got.Year != 2024 {
			t.Errorf("expected year 2024, got %v", got.Year)
		}
		if got.Month == nil || *got.Month != 5 {
			t.Errorf("expected month 5, got %v", got.Month)
		}
		if got.Type == nil || *got.Type != models.TransactionTypeExpense {
			t.Errorf("expected expense type, got %v", got.Type)
		}
		if got.CategoryID == nil || *got.CategoryID != testCategoryID {
			t.Errorf("expected category filter, got %v", got.CategoryID)
		}
		if got.MinAmount == nil || *got.MinAmount != 100 || got.MaxAmount == nil || *got.MaxAmount != 900 {
			t.Errorf("expected amount range 100..900, got %v..%v", got.MinAmount, got.MaxAmount)
		}
	})

	for _, q := range []string{"type=transfer", "year=abc", "from_date=yesterday", "category_id=7", "min_amount=x"} {
		t.Run("returns 400 on "+q, func(t *testing.T) {
			r := setupTransactionRouter(newTransactionHandler(&mockTransactionService{}, nil))

			rec := doRequest(r, "GET", "/transactions?"+q, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestTransactionHandler_GetTransactionStats(t *testing.T) {
	t.Run("returns totals", func(t *testing.T) {
		reportSvc := &mockReportService{
			transactionStatsFn: func(_ string, filter services.TransactionFilter) (*services.LedgerStats, error) {
				if filter.Year == nil || *filter.Year != 2024 {
					t.Errorf("expected year filter 2024, got %v", filter.Year)
				}
				return &services.LedgerStats{IncomeTotal: 10000, ExpenseTotal: 4000, Balance: 6000, TransactionCount: 3}, nil
			},
		}
		r := setupTransactionRouter(newTransactionHandler(&mockTransactionService{}, reportSvc))

		rec := doRequest(r, "GET", "/transactions/stats?year=2024", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		stats := parseJSON(t, rec)["stats"].(map[string]interface{})
		if stats["balance"].(float64) != 6000 {
			t.Errorf("expected balance 6000, got %v", stats["balance"])
		}
	})

	t.Run("propagates period errors", func(t *testing.T) {
		reportSvc := &mockReportService{
			transactionStatsFn: func(_ string, _ services.TransactionFilter) (*services.LedgerStats, error) {
				return nil, apperrors.ErrInvalidPeriod
			},
		}
		r := setupTransactionRouter(newTransactionHandler(&mockTransactionService{}, reportSvc))

		rec := doRequest(r, "GET", "/transactions/stats?month=13&year=2024", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_PERIOD")
	})
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	t.Run("returns 404 when missing", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(_, _ string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(newTransactionHandler(txSvc, nil))

		rec := doRequest(r, "GET", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		r := setupTransactionRouter(newTransactionHandler(&mockTransactionService{}, nil))

		rec := doRequest(r, "GET", "/transactions/not-a-uuid", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	var got services.TransactionUpdate
	txSvc := &mockTransactionService{
		updateTransactionFn: func(_, id string, update services.TransactionUpdate) (*models.Transaction, error) {
			got = update
			return &models.Transaction{Base: models.Base{ID: id}, Amount: *update.Amount}, nil
		},
	}
	r := setupTransactionRouter(newTransactionHandler(txSvc, nil))

	rec := doRequest(r, "PUT", "/transactions/"+testTransactionID, `{"amount":2500,"date":"2024-06-01"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Amount == nil || *got.Amount != 2500 {
		t.Errorf("expected amount 2500, got %v", got.Amount)
	}
	if got.Date == nil || got.Date.Month() != time.June {
		t.Errorf("expected June date, got %v", got.Date)
	}
	if got.Type != nil || got.CategoryID != nil || got.Description != nil {
		t.Error("expected omitted fields to stay nil")
	}
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	deleted := ""
	txSvc := &mockTransactionService{
		deleteTransactionFn: func(_, id string) error {
			deleted = id
			return nil
		},
	}
	r := setupTransactionRouter(newTransactionHandler(txSvc, nil))

	rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if deleted != testTransactionID {
		t.Errorf("expected %s deleted, got %s", testTransactionID, deleted)
	}
}
