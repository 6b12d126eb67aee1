package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ecellhq/launchpad/app/models"
	"github.com/ecellhq/launchpad/app/repository"
	"github.com/ecellhq/launchpad/internal/pkg/payments"
)

type applyPromoRequest struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

// HandleApplyPromo previews a promo code against an amount. Read-only: the
// usage counter moves only when a checkout is actually initiated.
func HandleApplyPromo(c *fiber.Ctx) error {
	var req applyPromoRequest
	if err := c.BodyParser(&req); err != nil || req.Code == "" || req.Amount < 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	discount, err := PaymentService().PreviewPromo(req.Code, req.Amount)
	if err != nil {
		if payments.IsPromoError(err) {
			return jsonError(c, fiber.StatusBadRequest, "promo_rejected", err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to evaluate promo code")
	}

	return c.JSON(fiber.Map{
		"code":     models.NormalizePromoCode(req.Code),
		"discount": discount,
		"payable":  req.Amount - discount,
	})
}

// HandleAdminListPromoCodes lists promo codes (admin)
func HandleAdminListPromoCodes(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	codes, err := repository.GetGlobalFactory().GetPromoCodeRepository().List(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load promo codes")
	}
	return c.JSON(fiber.Map{"promo_codes": codes})
}

// HandleAdminCreatePromoCode creates a promo code (admin)
func HandleAdminCreatePromoCode(c *fiber.Ctx) error {
	var pc models.PromoCode
	if err := c.BodyParser(&pc); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if err := pc.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	repo := repository.GetGlobalFactory().GetPromoCodeRepository()
	if existing, err := repo.GetByCode(pc.Code); err == nil && existing != nil {
		return jsonError(c, fiber.StatusConflict, "code_taken", "A promo code with this code already exists")
	}
	if err := repo.Create(&pc); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create promo code")
	}
	return c.Status(fiber.StatusCreated).JSON(pc)
}

// HandleAdminUpdatePromoCode updates a promo code (admin). UsedCount is not
// editable; it only moves through checkout initiation.
func HandleAdminUpdatePromoCode(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid promo code id")
	}

	repo := repository.GetGlobalFactory().GetPromoCodeRepository()
	pc, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Promo code not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load promo code")
	}

	usedCount := pc.UsedCount
	if err := c.BodyParser(pc); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	pc.ID = id
	pc.UsedCount = usedCount
	if err := pc.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := repo.Update(pc); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update promo code")
	}
	return c.JSON(pc)
}

// HandleAdminDeletePromoCode removes a promo code (admin)
func HandleAdminDeletePromoCode(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid promo code id")
	}
	if err := repository.GetGlobalFactory().GetPromoCodeRepository().Delete(id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete promo code")
	}
	return c.JSON(fiber.Map{"message": "promo code deleted"})
}
