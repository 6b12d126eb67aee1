package payments

import (
	"time"

	"github.com/ecellhq/launchpad/app/models"
)

// EvaluatePromo decides whether a stored promo code applies to a charge of
// the given amount at time now and returns the bounded discount. It is a
// pure function: consuming the usage cap is a separate, atomic repository
// operation performed once at checkout initiation.
func EvaluatePromo(pc *models.PromoCode, amount float64, now time.Time) (float64, error) {
	if pc == nil || !pc.IsActive {
		return 0, ErrPromoInvalid
	}
	if now.Before(pc.ValidFrom) {
		return 0, ErrPromoNotYetActive
	}
	if now.After(pc.ValidUntil) {
		return 0, ErrPromoExpired
	}
	if pc.MinAmount != nil && amount < *pc.MinAmount {
		return 0, ErrPromoMinAmount
	}
	if pc.IsExhausted() {
		return 0, ErrPromoExhausted
	}

	var discount float64
	switch pc.DiscountType {
	case models.DiscountTypePercentage:
		discount = amount * pc.DiscountValue / 100
		if pc.MaxDiscount != nil && discount > *pc.MaxDiscount {
			discount = *pc.MaxDiscount
		}
	case models.DiscountTypeFixed:
		discount = pc.DiscountValue
	default:
		return 0, ErrPromoInvalid
	}

	// Discount can never exceed the chargeable amount or go negative.
	if discount > amount {
		discount = amount
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}
