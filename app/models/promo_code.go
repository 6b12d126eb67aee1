package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// PromoCode is a discount voucher with a validity window, an optional usage
// cap and an optional minimum charge amount. Codes are stored upper-cased;
// lookups normalize with NormalizePromoCode so matching is case-insensitive.
type PromoCode struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Code          string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"code" validate:"required,min=2,max=50"`
	Description   string     `gorm:"type:varchar(255)" json:"description" validate:"max=255"`
	DiscountType  string     `gorm:"type:varchar(20);not null" json:"discount_type" validate:"oneof=percentage fixed"`
	DiscountValue float64    `gorm:"type:decimal(10,2);not null" json:"discount_value" validate:"gte=0"`
	MinAmount     *float64   `gorm:"type:decimal(10,2);default:null" json:"min_amount,omitempty"`
	MaxDiscount   *float64   `gorm:"type:decimal(10,2);default:null" json:"max_discount,omitempty"`
	ValidFrom     time.Time  `gorm:"type:timestamp;not null" json:"valid_from" validate:"required"`
	ValidUntil    time.Time  `gorm:"type:timestamp;not null" json:"valid_until" validate:"required"`
	UsageLimit    *int       `gorm:"default:null" json:"usage_limit,omitempty"`
	UsedCount     int        `gorm:"not null;default:0" json:"used_count"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (pc *PromoCode) Validate() error {
	v := validator.New()

	if err := v.Struct(pc); err != nil {
		return err
	}
	if pc.DiscountType == DiscountTypePercentage && pc.DiscountValue > 100 {
		return &ValidationError{Field: "discount_value", Message: "percentage discount cannot exceed 100"}
	}
	if pc.ValidUntil.Before(pc.ValidFrom) {
		return &ValidationError{Field: "valid_until", Message: "valid_until must not be before valid_from"}
	}
	return nil
}

// IsExhausted reports whether the usage cap has been reached
func (pc *PromoCode) IsExhausted() bool {
	return pc.UsageLimit != nil && pc.UsedCount >= *pc.UsageLimit
}

// NormalizePromoCode upper-cases and trims a user supplied code
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidationError carries a field-level validation failure for model checks
// that go-playground struct tags cannot express.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
