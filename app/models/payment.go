package models

import "time"

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

const PaymentMethodPhonePe = "phonepe"

const (
	PaymentKindCategory = "category"
	PaymentKindEvent    = "event"
)

// Payment is one checkout attempt against the gateway. TransactionID is the
// merchant order id: generated once at creation, immutable, globally unique,
// and the join key to the gateway's order. PhonepePayload is an accumulating
// audit trail of raw gateway responses; it is only ever appended to.
type Payment struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Kind                 string    `gorm:"type:varchar(20);not null;default:'category';index" json:"kind"`
	UserID               uint      `gorm:"index" json:"user_id"`
	UserEmail            string    `gorm:"type:varchar(200);index" json:"user_email"`
	CategoryID           uint      `gorm:"index" json:"category_id"`
	Amount               float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	PromoCode            string    `gorm:"type:varchar(50);default:null" json:"promo_code,omitempty"`
	Discount             float64   `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	TransactionID        string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"transaction_id"`
	Status               string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod        string    `gorm:"type:varchar(20);not null;default:'phonepe'" json:"payment_method"`
	PhonepeTransactionID string    `gorm:"type:varchar(100);default:null" json:"phonepe_transaction_id"`
	PhonepeOrderID       string    `gorm:"type:varchar(100);default:null;index" json:"phonepe_order_id"`
	PhonepeState         string    `gorm:"type:varchar(40);default:null" json:"phonepe_state"`
	PhonepeMetaInfo      string    `gorm:"type:text" json:"phonepe_meta_info"`
	PhonepePayload       string    `gorm:"type:longtext" json:"-"`

	// E-Summit pass checkouts carry buyer details instead of a category.
	BuyerName   string `gorm:"type:varchar(150);default:null" json:"buyer_name,omitempty"`
	BuyerEmail  string `gorm:"type:varchar(200);default:null" json:"buyer_email,omitempty"`
	BuyerPhone  string `gorm:"type:varchar(20);default:null" json:"buyer_phone,omitempty"`
	SenderName  string `gorm:"type:varchar(150);default:null" json:"sender_name,omitempty"`
	PassType    string `gorm:"type:varchar(50);default:null" json:"pass_type,omitempty"`
	PassName    string `gorm:"type:varchar(150);default:null" json:"pass_name,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the payment reached a final state
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}
