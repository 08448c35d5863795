package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/pagination"
	"budgetapp/internal/services"
)

// GoalHandler handles savings goal requests.
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService, auditService: auditService}
}

// CreateGoalRequest represents the request payload for creating a goal.
type CreateGoalRequest struct {
	Name         string  `json:"name" binding:"required,min=1,max=100"`
	Description  string  `json:"description" binding:"max=500"`
	TargetAmount int64   `json:"target_amount" binding:"gte=0"`
	Deadline     *string `json:"deadline"`
}

// UpdateGoalRequest represents the request payload for updating a goal.
// The current amount is not editable; it changes only through contributions.
type UpdateGoalRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description   *string `json:"description" binding:"omitempty,max=500"`
	TargetAmount  *int64  `json:"target_amount" binding:"omitempty,gte=0"`
	Deadline      *string `json:"deadline"`
	ClearDeadline bool    `json:"clear_deadline"`
}

// AddContributionRequest represents the request payload for a goal contribution.
type AddContributionRequest struct {
	Amount      int64  `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description" binding:"max=500"`
}

// ContributionResponse is the goal state after a contribution, with the new contribution.
type ContributionResponse struct {
	Goal           services.GoalProgress `json:"goal"`
	ContributionID string                `json:"contribution_id"`
}

func parseDeadline(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(services.ContributionDateLayout, *s)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidDate, "deadline must use YYYY-MM-DD")
	}
	return &t, nil
}

// CreateGoal handles the creation of a savings goal.
// @Summary     Create a goal
// @Description Create a savings goal with a target amount and optional deadline
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} models.Goal "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.CreateGoal(userID, req.Name, req.Description, req.TargetAmount, deadline)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_GOAL", "goal", goal.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "target_amount": req.TargetAmount})

	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

// GetGoals handles listing the user's goals.
// @Summary     Get goals
// @Description Get a paginated list of the user's goals, newest first
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Goal] "Paginated goals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [get]
func (h *GoalHandler) GetGoals(c *gin.Context) {
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

	result, err := h.goalService.GetUserGoals(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetGoal handles retrieving one goal.
// @Summary     Get goal by ID
// @Description Get a specific goal by ID
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} models.Goal "Goal details"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.GetGoalByID(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// UpdateGoal handles editing a goal.
// @Summary     Update goal
// @Description Update a goal's name, description, target or deadline
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Goal ID"
// @Param       request body UpdateGoalRequest true "Fields to update"
// @Success     200 {object} models.Goal "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.UpdateGoal(userID, goalID, services.GoalUpdate{
		Name:          req.Name,
		Description:   req.Description,
		TargetAmount:  req.TargetAmount,
		Deadline:      deadline,
		ClearDeadline: req.ClearDeadline,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

// DeleteGoal handles deleting a goal and its contributions.
// @Summary     Delete goal
// @Description Delete a goal together with its contribution log
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_GOAL", "goal", goalID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

// GetGoalsProgress handles the progress listing of all goals.
// @Summary     Get goals progress
// @Description Remaining amount, progress percentage, completion and days left for every goal
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  services.GoalProgress "Goal progress"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/progress [get]
func (h *GoalHandler) GetGoalsProgress(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.goalService.GetGoalsProgress(userID, time.Now().UTC())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goals": progress})
}

// AddContribution handles adding money to a goal.
// @Summary     Add contribution
// @Description Append a contribution to a goal. The date defaults to today and must use YYYY-MM-DD.
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Goal ID"
// @Param       request body AddContributionRequest true "Contribution"
// @Success     201 {object} ContributionResponse "Updated goal and new contribution id"
// @Failure     400 {object} ErrorResponse "Invalid amount or date"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/contributions [post]
func (h *GoalHandler) AddContribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	progress, contribution, err := h.goalService.AddContribution(userID, goalID, req.Amount, req.Date, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ADD_GOAL_CONTRIBUTION", "goal", goalID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount, "contribution_id": contribution.ID})

	c.JSON(http.StatusCreated, ContributionResponse{Goal: *progress, ContributionID: contribution.ID})
}

// GetContributions handles listing a goal's contributions.
// @Summary     Get contributions
// @Description List a goal's contributions, newest first
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {array}  models.GoalContribution "Contributions"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/contributions [get]
func (h *GoalHandler) GetContributions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	contributions, err := h.goalService.GetContributions(userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}
