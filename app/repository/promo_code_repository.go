package repository

import (
	"github.com/ecellhq/launchpad/app/models"
	"gorm.io/gorm"
)

// promoCodeRepository implements the PromoCodeRepository interface
type promoCodeRepository struct {
	db *gorm.DB
}

// NewPromoCodeRepository creates a new promo code repository instance
func NewPromoCodeRepository(db *gorm.DB) PromoCodeRepository {
	return &promoCodeRepository{db: db}
}

func (r *promoCodeRepository) Create(pc *models.PromoCode) error {
	pc.Code = models.NormalizePromoCode(pc.Code)
	return r.db.Create(pc).Error
}

func (r *promoCodeRepository) GetByID(id uint) (*models.PromoCode, error) {
	var pc models.PromoCode
	err := r.db.First(&pc, id).Error
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (r *promoCodeRepository) GetByCode(code string) (*models.PromoCode, error) {
	var pc models.PromoCode
	err := r.db.Where("code = ?", models.NormalizePromoCode(code)).First(&pc).Error
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

func (r *promoCodeRepository) Update(pc *models.PromoCode) error {
	pc.Code = models.NormalizePromoCode(pc.Code)
	return r.db.Save(pc).Error
}

func (r *promoCodeRepository) Delete(id uint) error {
	return r.db.Delete(&models.PromoCode{}, id).Error
}

func (r *promoCodeRepository) List(offset, limit int) ([]models.PromoCode, error) {
	var codes []models.PromoCode
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&codes).Error
	return codes, err
}
