package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	SUBMISSION_STATUS_PENDING  = "pending"
	SUBMISSION_STATUS_APPROVED = "approved"
	SUBMISSION_STATUS_REJECTED = "rejected"
)

// Submission is a user's work for a task, reviewed by an admin.
// PointsAwarded is stamped once at approval so later task edits do not
// retroactively change the leaderboard.
type Submission struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index:idx_submissions_user_task,priority:1" json:"user_id" validate:"required"`
	TaskID        uint           `gorm:"not null;index:idx_submissions_user_task,priority:2" json:"task_id" validate:"required"`
	CategoryID    uint           `gorm:"not null;index" json:"category_id" validate:"required"`
	Content       string         `gorm:"type:text" json:"content" validate:"required,min=1"`
	Link          string         `gorm:"type:varchar(500);default:null" json:"link" validate:"omitempty,url,max=500"`
	Status        string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status" validate:"oneof=pending approved rejected"`
	PointsAwarded int            `gorm:"not null;default:0" json:"points_awarded"`
	Feedback      string         `gorm:"type:text" json:"feedback"`
	ReviewedAt    *time.Time     `gorm:"type:timestamp;default:null" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Submission) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// IsReviewed reports whether an admin already decided on this submission
func (s *Submission) IsReviewed() bool {
	return s.Status != SUBMISSION_STATUS_PENDING
}
