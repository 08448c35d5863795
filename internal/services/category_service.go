package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
	"budgetapp/internal/pagination"
)

// DefaultExpenseCategories are provisioned for every new user.
var DefaultExpenseCategories = []string{
	"Groceries", "Restaurants & Cafes", "Transport", "Housing", "Utilities",
	"Internet & Communications", "Entertainment", "Clothing & Footwear", "Health & Medicine", "Education",
	"Travel", "Gifts", "Household Items", "Electronics", "Sports",
	"Beauty & Self-care", "Hobbies", "Pets", "Taxi", "Books",
}

// DefaultIncomeCategories are provisioned for every new user.
var DefaultIncomeCategories = []string{
	"Salary", "Freelance", "Business", "Investments", "Gifts",
	"Interest", "Rental Income", "Dividends", "Bonuses", "Other Income",
}

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(userID, name, description, icon, color string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	if err := s.ensureNameFree(userID, name, ""); err != nil {
		return nil, err
	}

	category := &models.Category{
		UserID:      userID,
		Name:        name,
		Description: description,
		Icon:        icon,
		Color:       color,
	}

	if err := s.db.Create(category).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

func (s *categoryService) ensureNameFree(userID, name, exceptID string) error {
	q := s.db.Model(&models.Category{}).Where("user_id = ? AND name = ?", userID, name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategory
	}
	return nil
}

// GetOrCreateCategory returns the user's category with the given name,
// creating it if absent. The bool reports whether it was created.
func (s *categoryService) GetOrCreateCategory(userID, name string) (*models.Category, bool, error) {
	return getOrCreateCategory(s.db, userID, name)
}

// getOrCreateCategory relies on the (user_id, name) unique index, so two
// concurrent callers end up with the same row.
func getOrCreateCategory(db *gorm.DB, userID, name string) (*models.Category, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	var existing models.Category
	err := db.Where("user_id = ? AND name = ?", userID, name).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	category := &models.Category{UserID: userID, Name: name}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(category)
	if res.Error != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 1 {
		return category, true, nil
	}

	// lost the race to another writer
	if err := db.Where("user_id = ? AND name = ?", userID, name).First(&existing).Error; err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &existing, false, nil
}

// ProvisionDefaultCategories creates the default expense and income
// categories for a new user. Names that already exist are skipped, so the
// step can be re-run safely.
func (s *categoryService) ProvisionDefaultCategories(userID string) (int, error) {
	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]bool)
		for _, name := range append(append([]string{}, DefaultExpenseCategories...), DefaultIncomeCategories...) {
			if seen[name] {
				continue
			}
			seen[name] = true

			_, isNew, err := getOrCreateCategory(tx, userID, name)
			if err != nil {
				return err
			}
			if isNew {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// GetUserCategories retrieves a paginated list of categories for a user, ordered by name.
func (s *categoryService) GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	query := s.db.Model(&models.Category{}).Where("user_id = ?", userID)
	result, err := pagination.Find[models.Category](query, page, pagination.OrderBy("name"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetCategoriesByTransactionType returns the user's categories that hold at
// least one transaction of the given type.
func (s *categoryService) GetCategoriesByTransactionType(userID string, transactionType models.TransactionType) ([]models.Category, error) {
	used := s.db.Model(&models.Transaction{}).
		Select("category_id").
		Where("user_id = ? AND type = ?", userID, transactionType)

	var categories []models.Category
	if err := s.db.Where("user_id = ? AND id IN (?)", userID, used).
		Order("name").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates an existing category
func (s *categoryService) UpdateCategory(userID, categoryID, name, description, icon, color string) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name = strings.TrimSpace(name); name != "" && name != category.Name {
		if err := s.ensureNameFree(userID, name, categoryID); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, apperrors.ErrDuplicateCategory
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetCategoryByID(userID, categoryID)
}

// DeleteCategory deletes a category together with its transactions and budgets.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("category_id = ? AND user_id = ?", category.ID, userID).
			Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Where("category_id = ? AND user_id = ?", category.ID, userID).
			Delete(&models.Budget{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Delete(category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// isUniqueViolation reports whether err came from a unique index. Without
// TranslateError gorm passes driver errors through, and both postgres and
// sqlite name the unique constraint in the message.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique")
}
