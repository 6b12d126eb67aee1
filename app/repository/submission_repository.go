package repository

import (
	"github.com/ecellhq/launchpad/app/models"
	"gorm.io/gorm"
)

// submissionRepository implements the SubmissionRepository interface
type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new submission repository instance
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(submission *models.Submission) error {
	return r.db.Create(submission).Error
}

func (r *submissionRepository) GetByID(id uint) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.First(&submission, id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepository) Update(submission *models.Submission) error {
	return r.db.Save(submission).Error
}

func (r *submissionRepository) ListByUser(userID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&submissions).Error
	return submissions, err
}

func (r *submissionRepository) ListByStatus(status string, offset, limit int) ([]models.Submission, error) {
	var submissions []models.Submission
	q := r.db.Order("created_at ASC").Offset(offset).Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&submissions).Error
	return submissions, err
}

// ExistsForUserAndTask reports whether the user already submitted for the task
func (r *submissionRepository) ExistsForUserAndTask(userID, taskID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Submission{}).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Count(&count).Error
	return count > 0, err
}
