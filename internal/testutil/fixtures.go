package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"budgetapp/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a category with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, userID, fmt.Sprintf("Test Category %d", nextID()))
}

// CreateTestCategoryNamed creates a category with the given name.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, userID, name string) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   name,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction dated today.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, categoryID string, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()
	now := time.Now().UTC()
	return CreateTestTransactionOn(t, db, userID, categoryID, txType, amount, Date(now.Year(), now.Month(), now.Day()))
}

// CreateTestTransactionOn creates a transaction of the given type and amount (in cents) on date.
func CreateTestTransactionOn(t *testing.T, db *gorm.DB, userID, categoryID string, txType models.TransactionType, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		Type:       txType,
		Amount:     amount,
		Date:       date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates a budget of amount cents for the category in the given month.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID string, amount int64, month, year int) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Test Budget %d", nextID()),
		Amount:     amount,
		Month:      month,
		Year:       year,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates a goal with the given target (in cents) and no contributions.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, target int64, deadline *time.Time) *models.Goal {
	t.Helper()

	goal := &models.Goal{
		UserID:       userID,
		Name:         fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount: target,
		Deadline:     deadline,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}
