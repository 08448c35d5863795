package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/pagination"
	"budgetapp/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	reportService      services.ReportServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	transactionService services.TransactionServicer,
	reportService services.ReportServicer,
	auditService services.AuditServicer,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		reportService:      reportService,
		auditService:       auditService,
	}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	CategoryID  string                 `json:"category_id" binding:"required,uuid"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount      int64                  `json:"amount" binding:"required,gt=0"`
	Description string                 `json:"description" binding:"max=500"`
	Date        *string                `json:"date"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
type UpdateTransactionRequest struct {
	CategoryID  *string                 `json:"category_id" binding:"omitempty,uuid"`
	Type        *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Amount      *int64                  `json:"amount" binding:"omitempty,gt=0"`
	Description *string                 `json:"description" binding:"omitempty,max=500"`
	Date        *string                 `json:"date"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record an income or expense in one of the user's categories. Amounts are in cents.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var transactionDate time.Time
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidDate, parseErr.Error()))
			return
		}
		transactionDate = parsed
	}

	transaction, err := h.transactionService.CreateTransaction(
		userID,
		req.CategoryID,
		req.Type,
		req.Amount,
		req.Description,
		transactionDate,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": req.Amount, "category_id": req.CategoryID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetUserTransactions handles listing the authenticated user's transactions
// @Summary     Get user transactions
// @Description Get a paginated, filtered list of transactions, newest first
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Param       year        query int    false "Calendar year"
// @Param       month       query int    false "Calendar month 1-12 (requires year)"
// @Param       from_date   query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date     query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Param       type        query string false "income or expense"
// @Param       category_id query string false "Category ID"
// @Param       min_amount  query int    false "Minimum amount in cents"
// @Param       max_amount  query int    false "Maximum amount in cents"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := bindTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetUserTransactions(userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactionStats handles totals over the filtered transactions
// @Summary     Get transaction stats
// @Description Income, expense and balance totals over the transactions matched by the filters
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       year        query int    false "Calendar year"
// @Param       month       query int    false "Calendar month 1-12 (requires year)"
// @Param       type        query string false "income or expense"
// @Param       category_id query string false "Category ID"
// @Success     200 {object} services.LedgerStats "Totals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/stats [get]
func (h *TransactionHandler) GetTransactionStats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := bindTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.reportService.TransactionStats(userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// TransactionQuery is bound from the query string of the list and stats
// endpoints. Dates accept RFC3339 or YYYY-MM-DD.
type TransactionQuery struct {
	FromDate   string `form:"from_date"`
	ToDate     string `form:"to_date"`
	Year       *int   `form:"year"`
	Month      *int   `form:"month"`
	Type       string `form:"type" binding:"omitempty,transaction_type"`
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	MinAmount  *int64 `form:"min_amount"`
	MaxAmount  *int64 `form:"max_amount"`
}

// Filter converts the bound query into a service filter. Period range checks
// are left to the services.
func (q TransactionQuery) Filter() (services.TransactionFilter, error) {
	filter := services.TransactionFilter{
		Year:      q.Year,
		Month:     q.Month,
		MinAmount: q.MinAmount,
		MaxAmount: q.MaxAmount,
	}

	for _, bound := range []struct {
		name string
		raw  string
		dst  **time.Time
	}{
		{"from_date", q.FromDate, &filter.FromDate},
		{"to_date", q.ToDate, &filter.ToDate},
	} {
		if bound.raw == "" {
			continue
		}
		t, err := parseFlexibleTime(bound.raw)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid "+bound.name+", use RFC3339 or YYYY-MM-DD")
		}
		*bound.dst = &t
	}

	if q.Type != "" {
		txType := models.TransactionType(q.Type)
		filter.Type = &txType
	}
	if q.CategoryID != "" {
		categoryID := q.CategoryID
		filter.CategoryID = &categoryID
	}
	return filter, nil
}

func bindTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var q TransactionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return services.TransactionFilter{}, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return q.Filter()
}

// GetTransactionByID handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating an existing transaction
// @Summary     Update transaction
// @Description Update an existing transaction. Omitted fields are left unchanged.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	txID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.TransactionUpdate{
		CategoryID:  req.CategoryID,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
	}

	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidDate, parseErr.Error()))
			return
		}
		update.Date = &parsed
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, txID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", txID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles the deletion of a transaction
// @Summary     Delete transaction
// @Description Delete a transaction by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
