package services

import (
	"testing"

	"budgetapp/internal/models"
	"budgetapp/internal/pagination"
	"budgetapp/internal/testutil"
)

func TestCreateBudget(t *testing.T) {
	t.Run("defaults_name_to_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategoryNamed(t, db, user.ID, "Groceries")

		budget, err := svc.CreateBudget(user.ID, cat.ID, "", 50000, 3, 2026)
		testutil.AssertNoError(t, err)

		if budget.ID == "" {
			t.Fatal("expected budget ID to be set")
		}
		if budget.Name != "Groceries" {
			t.Errorf("expected name Groceries, got %s", budget.Name)
		}
		if budget.Amount != 50000 || budget.Month != 3 || budget.Year != 2026 {
			t.Errorf("unexpected budget: %+v", budget)
		}
	})

	t.Run("zero_amount_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.CreateBudget(user.ID, cat.ID, "Nothing", 0, 3, 2026)
		testutil.AssertNoError(t, err)
	})

	t.Run("duplicate_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.CreateBudget(user.ID, cat.ID, "", 100, 3, 2026)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateBudget(user.ID, cat.ID, "Again", 200, 3, 2026)
		testutil.AssertAppError(t, err, "DUPLICATE_BUDGET")

		_, err = svc.CreateBudget(user.ID, cat.ID, "", 200, 4, 2026)
		testutil.AssertNoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		foreign := testutil.CreateTestCategory(t, db, other.ID)

		tests := []struct {
			name       string
			categoryID string
			amount     int64
			month      int
			code       string
		}{
			{"month_zero", cat.ID, 100, 0, "INVALID_PERIOD"},
			{"month_thirteen", cat.ID, 100, 13, "INVALID_PERIOD"},
			{"negative_amount", cat.ID, -1, 5, "INVALID_AMOUNT"},
			{"foreign_category", foreign.ID, 100, 5, "CATEGORY_NOT_FOUND"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.CreateBudget(user.ID, tt.categoryID, "", tt.amount, tt.month, 2026)
				testutil.AssertAppError(t, err, tt.code)
			})
		}
	})
}

func TestGetUserBudgets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)

	testutil.CreateTestBudget(t, db, user.ID, cat.ID, 100, 1, 2026)
	latest := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 100, 2, 2026)
	testutil.CreateTestBudget(t, db, user.ID, cat.ID, 100, 12, 2025)

	page, err := svc.GetUserBudgets(user.ID, pagination.PageRequest{}, nil, nil)
	testutil.AssertNoError(t, err)
	if page.TotalItems != 3 {
		t.Fatalf("expected 3 budgets, got %d", page.TotalItems)
	}
	if page.Data[0].ID != latest.ID {
		t.Errorf("expected newest period first, got %d/%d", page.Data[0].Month, page.Data[0].Year)
	}

	year := 2025
	page, err = svc.GetUserBudgets(user.ID, pagination.PageRequest{}, nil, &year)
	testutil.AssertNoError(t, err)
	if page.TotalItems != 1 {
		t.Errorf("expected 1 budget in 2025, got %d", page.TotalItems)
	}
}

func TestUpdateBudget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)
	budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 100, 1, 2026)

	amount := int64(250)
	updated, err := svc.UpdateBudget(user.ID, budget.ID, "Renamed", &amount)
	testutil.AssertNoError(t, err)
	if updated.Name != "Renamed" || updated.Amount != 250 {
		t.Errorf("unexpected update result: %+v", updated)
	}

	negative := int64(-1)
	_, err = svc.UpdateBudget(user.ID, budget.ID, "", &negative)
	testutil.AssertAppError(t, err, "INVALID_AMOUNT")

	_, err = svc.UpdateBudget(other.ID, budget.ID, "Mine", nil)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestDeleteBudget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)
	budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, 100, 1, 2026)

	testutil.AssertNoError(t, svc.DeleteBudget(user.ID, budget.ID))

	_, err := svc.GetBudgetByID(user.ID, budget.ID)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")

	// the period is free again
	_, err = svc.CreateBudget(user.ID, cat.ID, "", 100, 1, 2026)
	testutil.AssertNoError(t, err)
}

func TestGetBudgetStatus(t *testing.T) {
	t.Run("spent_against_planned", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategoryNamed(t, db, user.ID, "Food")

		testutil.CreateTestBudget(t, db, user.ID, food.ID, 20000, 7, 2026)
		testutil.CreateTestTransactionOn(t, db, user.ID, food.ID, models.TransactionTypeExpense, 3000, testutil.Date(2026, 7, 4))
		// income and other months do not count
		testutil.CreateTestTransactionOn(t, db, user.ID, food.ID, models.TransactionTypeIncome, 9999, testutil.Date(2026, 7, 5))
		testutil.CreateTestTransactionOn(t, db, user.ID, food.ID, models.TransactionTypeExpense, 9999, testutil.Date(2026, 8, 1))

		statuses, err := svc.GetBudgetStatus(user.ID, 2026, 7)
		testutil.AssertNoError(t, err)

		if len(statuses) != 1 {
			t.Fatalf("expected 1 status, got %d", len(statuses))
		}
		s := statuses[0]
		if s.Spent != 3000 || s.Remaining != 17000 || s.Progress != 15 || s.Overspent {
			t.Errorf("unexpected status: %+v", s)
		}
		if s.CategoryName != "Food" {
			t.Errorf("expected category Food, got %s", s.CategoryName)
		}
	})

	t.Run("overspent_and_zero_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		fun := testutil.CreateTestCategoryNamed(t, db, user.ID, "Fun")
		rent := testutil.CreateTestCategoryNamed(t, db, user.ID, "Rent")

		testutil.CreateTestBudget(t, db, user.ID, fun.ID, 1000, 7, 2026)
		testutil.CreateTestBudget(t, db, user.ID, rent.ID, 0, 7, 2026)
		testutil.CreateTestTransactionOn(t, db, user.ID, fun.ID, models.TransactionTypeExpense, 1500, testutil.Date(2026, 7, 4))
		testutil.CreateTestTransactionOn(t, db, user.ID, rent.ID, models.TransactionTypeExpense, 500, testutil.Date(2026, 7, 4))

		statuses, err := svc.GetBudgetStatus(user.ID, 2026, 7)
		testutil.AssertNoError(t, err)

		byCategory := make(map[string]BudgetStatus)
		for _, s := range statuses {
			byCategory[s.CategoryID] = s
		}
		if s := byCategory[fun.ID]; !s.Overspent || s.Remaining != -500 || s.Progress != 150 {
			t.Errorf("unexpected overspent status: %+v", s)
		}
		if s := byCategory[rent.ID]; s.Progress != 0 || !s.Overspent {
			t.Errorf("expected zero budget to report progress 0, got %+v", s)
		}
	})
}

func TestGetBudgetOverview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategory(t, db, user.ID)
	unbudgeted := testutil.CreateTestCategory(t, db, user.ID)

	testutil.CreateTestBudget(t, db, user.ID, food.ID, 10000, 9, 2026)
	testutil.CreateTestTransactionOn(t, db, user.ID, food.ID, models.TransactionTypeExpense, 2500, testutil.Date(2026, 9, 1))
	testutil.CreateTestTransactionOn(t, db, user.ID, unbudgeted.ID, models.TransactionTypeExpense, 2500, testutil.Date(2026, 9, 30))

	overview, err := svc.GetBudgetOverview(user.ID, 2026, 9)
	testutil.AssertNoError(t, err)

	if overview.TotalBudget != 10000 || overview.TotalExpenses != 5000 {
		t.Errorf("unexpected totals: %+v", overview)
	}
	if overview.Remaining != 5000 || overview.Progress != 50 || overview.Overspent {
		t.Errorf("unexpected derived fields: %+v", overview)
	}

	empty, err := svc.GetBudgetOverview(user.ID, 2026, 10)
	testutil.AssertNoError(t, err)
	if empty.Progress != 0 || empty.TotalBudget != 0 {
		t.Errorf("expected empty month to report zeros, got %+v", empty)
	}
}
