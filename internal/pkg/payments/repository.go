package payments

import (
	"errors"

	"github.com/ecellhq/launchpad/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the payments service.
type Repository interface {
	GetCategory(id uint) (*models.Category, error)
	HasCategoryAccess(userID, categoryID uint) (bool, error)
	// GrantCategoryAccess inserts the grant row if none exists for the
	// (user, category) pair and reports whether this call created it.
	GrantCategoryAccess(access *models.CategoryAccess) (bool, error)
	GetPromoCode(code string) (*models.PromoCode, error)
	// ConsumePromoUsage atomically increments used_count while the code is
	// active and under its usage limit; false means the cap was hit.
	ConsumePromoUsage(code string) (bool, error)
	CreatePayment(p *models.Payment) error
	GetPaymentByID(id uint) (*models.Payment, error)
	GetPaymentByTransactionID(transactionID string) (*models.Payment, error)
	SavePayment(p *models.Payment) error
	// AppendPaymentPayload appends a raw gateway response to the audit trail.
	// Runs unconditionally, even for payments already in a terminal state.
	AppendPaymentPayload(transactionID, payload string) error
	// TransitionPaymentStatus applies the guarded merge rule: the status is
	// overwritten only if the new status is success or the current status is
	// still pending. Reports whether the row changed.
	TransitionPaymentStatus(transactionID, newStatus string, stamp PaymentStamp) (bool, error)
}

// PaymentStamp carries the gateway-echoed fields stored next to a status
// transition.
type PaymentStamp struct {
	State                string
	PhonepeOrderID       string
	PhonepeTransactionID string
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCategory(id uint) (*models.Category, error) {
	var cat models.Category
	if err := r.db.First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *gormRepository) HasCategoryAccess(userID, categoryID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.CategoryAccess{}).
		Where("user_id = ? AND category_id = ? AND access_granted = ?", userID, categoryID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) GrantCategoryAccess(access *models.CategoryAccess) (bool, error) {
	access.AccessGranted = true
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "category_id"},
		},
		DoNothing: true,
	}).Create(access)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) GetPromoCode(code string) (*models.PromoCode, error) {
	var pc models.PromoCode
	err := r.db.Where("code = ?", models.NormalizePromoCode(code)).First(&pc).Error
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (r *gormRepository) ConsumePromoUsage(code string) (bool, error) {
	tx := r.db.Model(&models.PromoCode{}).
		Where("code = ? AND is_active = ?", models.NormalizePromoCode(code), true).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreatePayment(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *gormRepository) GetPaymentByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPaymentByTransactionID(transactionID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("transaction_id = ?", transactionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SavePayment(p *models.Payment) error {
	return r.db.Save(p).Error
}

func (r *gormRepository) AppendPaymentPayload(transactionID, payload string) error {
	if payload == "" {
		return nil
	}
	return r.db.Model(&models.Payment{}).
		Where("transaction_id = ?", transactionID).
		UpdateColumn("phonepe_payload", gorm.Expr("CONCAT(COALESCE(phonepe_payload, ''), ?)", payload+"\n")).Error
}

func (r *gormRepository) TransitionPaymentStatus(transactionID, newStatus string, stamp PaymentStamp) (bool, error) {
	updates := map[string]interface{}{
		"status": newStatus,
	}
	if stamp.State != "" {
		updates["phonepe_state"] = stamp.State
	}
	if stamp.PhonepeOrderID != "" {
		updates["phonepe_order_id"] = stamp.PhonepeOrderID
	}
	if stamp.PhonepeTransactionID != "" {
		updates["phonepe_transaction_id"] = stamp.PhonepeTransactionID
	}

	tx := r.db.Model(&models.Payment{}).
		Where("transaction_id = ?", transactionID).
		Where("status = ? OR ? = ?", models.PaymentStatusPending, newStatus, models.PaymentStatusSuccess).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// IsNotFound reports whether err is a missing-record error from the store.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
