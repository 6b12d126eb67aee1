package models

import "time"

// CategoryAccess is the grant record proving a user may view a category's
// paid content. The composite unique index makes concurrent grants (webhook
// and redirect poll racing for the same order) collapse into a single row.
type CategoryAccess struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index:ux_category_access_user_category,unique,priority:1" json:"user_id"`
	UserEmail       string    `gorm:"type:varchar(200)" json:"user_email"`
	CategoryID      uint      `gorm:"not null;index:ux_category_access_user_category,unique,priority:2" json:"category_id"`
	PaymentID       string    `gorm:"type:varchar(64);not null;default:''" json:"payment_id"`
	AccessGranted   bool      `gorm:"not null;default:true" json:"access_granted"`
	AccessGrantedAt time.Time `gorm:"autoCreateTime" json:"access_granted_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}
