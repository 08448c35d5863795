// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"budgetapp/internal/handlers"
	"budgetapp/internal/middleware"
)

// Handlers groups the handlers mounted by New.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Category    *handlers.CategoryHandler
	Transaction *handlers.TransactionHandler
	Budget      *handlers.BudgetHandler
	Goal        *handlers.GoalHandler
	Report      *handlers.ReportHandler
	Summary     *handlers.SummaryHandler
	Bulk        *handlers.BulkHandler
}

// Options tunes the router.
type Options struct {
	// PipelineAPIKey protects /api/v1/pipeline. Empty disables those routes (503).
	PipelineAPIKey string
	// Swagger mounts /swagger/*any.
	Swagger bool
	// RequestLogging enables per-request access logs.
	RequestLogging bool
}

// New returns a gin engine with every route mounted under /api/v1.
func New(h Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if opts.RequestLogging {
		router.Use(middleware.RequestLogging("/api/health"))
	}
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Pipeline routes (API key, no user)
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	pipeline.POST("/summaries/monthly", h.Summary.RecordSummaries)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", h.Auth.GetProfile)

	categories := protected.Group("/categories")
	categories.POST("", h.Category.CreateCategory)
	categories.GET("", h.Category.GetUserCategories)
	categories.GET("/income", h.Category.GetIncomeCategories)
	categories.GET("/expense", h.Category.GetExpenseCategories)
	categories.GET("/:id", h.Category.GetCategoryByID)
	categories.PUT("/:id", h.Category.UpdateCategory)
	categories.DELETE("/:id", h.Category.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.GetUserTransactions)
	transactions.GET("/stats", h.Transaction.GetTransactionStats)
	transactions.GET("/:id", h.Transaction.GetTransactionByID)
	transactions.PUT("/:id", h.Transaction.UpdateTransaction)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.POST("", h.Budget.CreateBudget)
	budgets.GET("", h.Budget.GetBudgets)
	budgets.GET("/status", h.Budget.GetBudgetStatus)
	budgets.GET("/overview", h.Budget.GetBudgetOverview)
	budgets.GET("/:id", h.Budget.GetBudget)
	budgets.PUT("/:id", h.Budget.UpdateBudget)
	budgets.DELETE("/:id", h.Budget.DeleteBudget)

	goals := protected.Group("/goals")
	goals.POST("", h.Goal.CreateGoal)
	goals.GET("", h.Goal.GetGoals)
	goals.GET("/progress", h.Goal.GetGoalsProgress)
	goals.GET("/:id", h.Goal.GetGoal)
	goals.PUT("/:id", h.Goal.UpdateGoal)
	goals.DELETE("/:id", h.Goal.DeleteGoal)
	goals.POST("/:id/contributions", h.Goal.AddContribution)
	goals.GET("/:id/contributions", h.Goal.GetContributions)

	reports := protected.Group("/reports")
	reports.GET("/monthly-summary/:year/:month", h.Report.GetMonthlySummary)
	reports.GET("/category-breakdown/:year/:month", h.Report.GetCategoryBreakdown)
	reports.GET("/yearly-comparison/:year", h.Report.GetYearlyComparison)
	reports.GET("/trends", h.Report.GetTrends)
	reports.GET("/savings-rate", h.Report.GetSavingsRate)

	protected.GET("/summaries", h.Summary.GetSummaries)

	protected.POST("/import/csv", h.Bulk.ImportCSV)
	protected.GET("/export/csv", h.Bulk.ExportCSV)
	protected.GET("/tasks/:task_id", h.Bulk.GetTaskStatus)
	protected.GET("/tasks/:task_id/download", h.Bulk.DownloadExport)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, "+middleware.PipelineKeyHeader+", "+middleware.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location, "+middleware.RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
