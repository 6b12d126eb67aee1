package payments

import "errors"

// Sentinel errors of the checkout and reconciliation flows. Controllers map
// these to HTTP statuses; everything else is an internal error.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrAlreadyHasAccess = errors.New("user already has access to this category")
	ErrPassNotFound     = errors.New("unknown event pass type")

	ErrPromoInvalid      = errors.New("invalid promo code")
	ErrPromoNotYetActive = errors.New("promo code is not yet active")
	ErrPromoExpired      = errors.New("promo code has expired")
	ErrPromoMinAmount    = errors.New("amount is below the promo code minimum")
	ErrPromoExhausted    = errors.New("promo code usage limit reached")
)

// IsPromoError reports whether err is one of the promo rejection reasons.
func IsPromoError(err error) bool {
	return errors.Is(err, ErrPromoInvalid) ||
		errors.Is(err, ErrPromoNotYetActive) ||
		errors.Is(err, ErrPromoExpired) ||
		errors.Is(err, ErrPromoMinAmount) ||
		errors.Is(err, ErrPromoExhausted)
}
