package controllers

import (
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/ecellhq/launchpad/internal/pkg/database"
	"github.com/ecellhq/launchpad/internal/pkg/payments"
	"github.com/ecellhq/launchpad/internal/pkg/phonepe"
)

var (
	paymentSvc     *payments.Service
	paymentSvcOnce sync.Once
)

// PaymentService returns the shared payments service, built lazily from the
// global DB handle and the env-configured gateway client.
func PaymentService() *payments.Service {
	paymentSvcOnce.Do(func() {
		if paymentSvc == nil {
			paymentSvc = payments.NewServiceFromDB(database.GetDB(), phonepe.NewClientFromEnv())
		}
	})
	return paymentSvc
}

// SetPaymentService swaps the shared service; used by tests to inject fakes.
func SetPaymentService(s *payments.Service) {
	paymentSvcOnce.Do(func() {})
	paymentSvc = s
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// parsePagination reads ?page= and ?limit= with sane bounds
func parsePagination(c *fiber.Ctx) (offset, limit int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit", "25"))
	if limit < 1 || limit > 100 {
		limit = 25
	}
	return (page - 1) * limit, limit
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
