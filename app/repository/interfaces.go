package repository

import (
	"github.com/ecellhq/launchpad/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	AddPoints(id uint, points int) error
	TopByPoints(limit int) ([]models.User, error)
}

// CategoryRepository defines the interface for category and task operations
type CategoryRepository interface {
	Create(category *models.Category) error
	GetByID(id uint) (*models.Category, error)
	Update(category *models.Category) error
	Delete(id uint) error
	ListActive() ([]models.Category, error)
	ListAll() ([]models.Category, error)
	CreateTask(task *models.Task) error
	GetTaskByID(id uint) (*models.Task, error)
	UpdateTask(task *models.Task) error
	DeleteTask(id uint) error
	ListTasks(categoryID uint, includeHidden bool) ([]models.Task, error)
}

// SubmissionRepository defines the interface for submission operations
type SubmissionRepository interface {
	Create(submission *models.Submission) error
	GetByID(id uint) (*models.Submission, error)
	Update(submission *models.Submission) error
	ListByUser(userID uint) ([]models.Submission, error)
	ListByStatus(status string, offset, limit int) ([]models.Submission, error)
	ExistsForUserAndTask(userID, taskID uint) (bool, error)
}

// PromoCodeRepository defines the interface for promo code admin operations.
// The checkout path has its own repository in internal/pkg/payments; this one
// serves the CRUD surface only.
type PromoCodeRepository interface {
	Create(pc *models.PromoCode) error
	GetByID(id uint) (*models.PromoCode, error)
	GetByCode(code string) (*models.PromoCode, error)
	Update(pc *models.PromoCode) error
	Delete(id uint) error
	List(offset, limit int) ([]models.PromoCode, error)
}

// PaymentRepository defines the read surface for the payments admin endpoints
type PaymentRepository interface {
	GetByTransactionID(transactionID string) (*models.Payment, error)
	List(offset, limit int) ([]models.Payment, error)
	ListByStatus(status string, offset, limit int) ([]models.Payment, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User       UserRepository
	Category   CategoryRepository
	Submission SubmissionRepository
	PromoCode  PromoCodeRepository
	Payment    PaymentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Category:   NewCategoryRepository(db),
		Submission: NewSubmissionRepository(db),
		PromoCode:  NewPromoCodeRepository(db),
		Payment:    NewPaymentRepository(db),
	}
}
