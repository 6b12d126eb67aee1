package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	CATEGORY_STATUS_ACTIVE = "active"
	CATEGORY_STATUS_DRAFT  = "draft"
	CATEGORY_STATUS_CLOSED = "closed"
)

// Category is a purchasable bundle of tasks. Price 0 means free.
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Description string         `gorm:"type:text" json:"description"`
	Photo       string         `gorm:"type:varchar(255);default:null" json:"photo" validate:"max=255"`
	Status      string         `gorm:"type:varchar(20);not null;default:'draft';index" json:"status" validate:"oneof=active draft closed"`
	Price       float64        `gorm:"type:decimal(10,2);not null;default:0" json:"price" validate:"gte=0"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (cat *Category) Validate() error {
	v := validator.New()

	return v.Struct(cat)
}

// IsFree reports whether the category requires no payment
func (cat *Category) IsFree() bool {
	return cat.Price <= 0
}
