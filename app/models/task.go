package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	TASK_STATUS_ACTIVE = "active"
	TASK_STATUS_HIDDEN = "hidden"
)

// Task belongs to a category and awards points when an admin approves a submission.
type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CategoryID  uint           `gorm:"not null;index" json:"category_id" validate:"required"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description string         `gorm:"type:text" json:"description"`
	Points      int            `gorm:"not null;default:0" json:"points" validate:"gte=0"`
	Status      string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status" validate:"oneof=active hidden"`
	SortOrder   int            `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Task) Validate() error {
	v := validator.New()

	return v.Struct(t)
}
