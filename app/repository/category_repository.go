package repository

import (
	"github.com/ecellhq/launchpad/app/models"
	"gorm.io/gorm"
)

// categoryRepository implements the CategoryRepository interface
type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository instance
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(category *models.Category) error {
	return r.db.Create(category).Error
}

func (r *categoryRepository) GetByID(id uint) (*models.Category, error) {
	var category models.Category
	err := r.db.First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) Update(category *models.Category) error {
	return r.db.Save(category).Error
}

func (r *categoryRepository) Delete(id uint) error {
	return r.db.Delete(&models.Category{}, id).Error
}

// ListActive returns the categories shown to participants
func (r *categoryRepository) ListActive() ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Where("status = ?", models.CATEGORY_STATUS_ACTIVE).
		Order("id ASC").
		Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) ListAll() ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Order("id ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) CreateTask(task *models.Task) error {
	return r.db.Create(task).Error
}

func (r *categoryRepository) GetTaskByID(id uint) (*models.Task, error) {
	var task models.Task
	err := r.db.First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *categoryRepository) UpdateTask(task *models.Task) error {
	return r.db.Save(task).Error
}

func (r *categoryRepository) DeleteTask(id uint) error {
	return r.db.Delete(&models.Task{}, id).Error
}

func (r *categoryRepository) ListTasks(categoryID uint, includeHidden bool) ([]models.Task, error) {
	var tasks []models.Task
	q := r.db.Where("category_id = ?", categoryID)
	if !includeHidden {
		q = q.Where("status = ?", models.TASK_STATUS_ACTIVE)
	}
	err := q.Order("sort_order ASC, id ASC").Find(&tasks).Error
	return tasks, err
}
