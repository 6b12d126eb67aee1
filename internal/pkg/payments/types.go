package payments

import (
	"context"

	"github.com/ecellhq/launchpad/internal/pkg/phonepe"
)

// Gateway is the slice of the PhonePe client the payments service depends
// on. Injected so tests can substitute a fake (no module-level singleton).
type Gateway interface {
	CreateOrder(ctx context.Context, merchantOrderID string, amountPaise int64, redirectURL string, metaInfo map[string]string) (*phonepe.OrderResponse, error)
	OrderStatus(ctx context.Context, merchantOrderID string, details bool) (*phonepe.StatusResponse, error)
}

// CheckoutInput is a category checkout request.
type CheckoutInput struct {
	UserID     uint
	UserEmail  string
	CategoryID uint
	PromoCode  string
}

// EventCheckoutInput is an E-Summit pass checkout request.
type EventCheckoutInput struct {
	BuyerName  string
	BuyerEmail string
	BuyerPhone string
	SenderName string
	PassType   string
	PromoCode  string
}

// CheckoutResult is what initiation hands back to the controller. Either
// HasAccess is true (free or fully discounted fast path) or PaymentURL
// carries the gateway's hosted checkout page.
type CheckoutResult struct {
	HasAccess     bool
	Message       string
	PaymentURL    string
	TransactionID string
	PaymentID     uint
	OrderID       string
	Amount        float64
	Discount      float64
}

// EventPass is one fixed E-Summit ticket type. The catalog lives in code;
// there is no admin surface for passes.
type EventPass struct {
	Type  string  `json:"type"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

var eventPasses = []EventPass{
	{Type: "summit", Name: "E-Summit Pass", Price: 199},
	{Type: "summit-pro", Name: "E-Summit Pro Pass", Price: 499},
	{Type: "summit-squad", Name: "E-Summit Squad Pass (4 members)", Price: 699},
}

// EventPasses returns the fixed pass catalog.
func EventPasses() []EventPass {
	out := make([]EventPass, len(eventPasses))
	copy(out, eventPasses)
	return out
}

// FindEventPass resolves a pass type to its catalog entry.
func FindEventPass(passType string) (EventPass, bool) {
	for _, p := range eventPasses {
		if p.Type == passType {
			return p, true
		}
	}
	return EventPass{}, false
}
