package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ecellhq/launchpad/app/models"
	"github.com/ecellhq/launchpad/app/repository"
	"github.com/ecellhq/launchpad/internal/pkg/payments"
	"github.com/ecellhq/launchpad/internal/pkg/phonepe"
	"github.com/ecellhq/launchpad/internal/pkg/usercontext"
)

type initiatePaymentRequest struct {
	CategoryID uint   `json:"category_id"`
	PromoCode  string `json:"promo_code"`
}

// HandleInitiatePayment starts a category checkout. Responds with either an
// immediate access grant (free / fully discounted) or the gateway's hosted
// payment page URL.
func HandleInitiatePayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req initiatePaymentRequest
	if err := c.BodyParser(&req); err != nil || req.CategoryID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	result, err := PaymentService().InitiateCheckout(c.Context(), payments.CheckoutInput{
		UserID:     userCtx.UserID,
		UserEmail:  userCtx.Email,
		CategoryID: req.CategoryID,
		PromoCode:  req.PromoCode,
	})
	if err != nil {
		return mapInitiationError(c, err)
	}

	if result.HasAccess {
		return c.JSON(fiber.Map{
			"has_access": true,
			"message":    result.Message,
			"amount":     result.Amount,
			"discount":   result.Discount,
		})
	}
	return c.JSON(fiber.Map{
		"has_access":     false,
		"payment_url":    result.PaymentURL,
		"transaction_id": result.TransactionID,
		"order_id":       result.OrderID,
		"amount":         result.Amount,
		"discount":       result.Discount,
	})
}

// HandlePaymentCallback is the server-to-server webhook. The body is used
// only to locate the payment; the state is re-derived from the gateway.
func HandlePaymentCallback(c *fiber.Ctx) error {
	transactionID, err := PaymentService().ResolveCallback(c.Body())
	if err != nil {
		if errors.Is(err, payments.ErrPaymentNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "No payment matches this callback")
		}
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Unreadable callback body")
	}

	payment, err := PaymentService().Reconcile(c.Context(), transactionID)
	if err != nil {
		return mapReconcileError(c, err)
	}

	return c.JSON(fiber.Map{
		"transaction_id": payment.TransactionID,
		"status":         payment.Status,
	})
}

// HandlePaymentRedirect is the browser return URL. It reconciles and then
// always redirects to the frontend with a status flag, never an error page.
func HandlePaymentRedirect(c *fiber.Ctx) error {
	transactionID := strings.TrimSpace(c.Query("transactionId"))
	returnTo := paymentReturnURL(c.Query("redirect", "/payments/result"))

	if transactionID == "" {
		return c.Redirect(fmt.Sprintf("%s?status=failed", returnTo), fiber.StatusSeeOther)
	}

	payment, err := PaymentService().Reconcile(c.Context(), transactionID)
	if err != nil {
		return c.Redirect(fmt.Sprintf("%s?status=pending&transactionId=%s", returnTo, transactionID), fiber.StatusSeeOther)
	}

	status := payment.Status
	if status != models.PaymentStatusSuccess && status != models.PaymentStatusFailed {
		status = models.PaymentStatusPending
	}
	return c.Redirect(fmt.Sprintf("%s?status=%s&transactionId=%s", returnTo, status, transactionID), fiber.StatusSeeOther)
}

// HandleGetPaymentStatus lets a client poll its own payment
func HandleGetPaymentStatus(c *fiber.Ctx) error {
	transactionID := strings.TrimSpace(c.Params("transactionId"))
	if transactionID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing transaction id")
	}

	payment, err := PaymentService().Reconcile(c.Context(), transactionID)
	if err != nil {
		return mapReconcileError(c, err)
	}

	userCtx := usercontext.GetUserContext(c)
	if payment.UserID != 0 && payment.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Not your payment")
	}

	return c.JSON(fiber.Map{
		"transaction_id": payment.TransactionID,
		"status":         payment.Status,
		"amount":         payment.Amount,
		"discount":       payment.Discount,
		"category_id":    payment.CategoryID,
	})
}

// HandleAdminListPayments lists payments (admin)
func HandleAdminListPayments(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)
	status := c.Query("status")

	repo := repository.GetGlobalFactory().GetPaymentRepository()
	var (
		list []models.Payment
		err  error
	)
	if status != "" {
		list, err = repo.ListByStatus(status, offset, limit)
	} else {
		list, err = repo.List(offset, limit)
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load payments")
	}
	return c.JSON(fiber.Map{"payments": list})
}

// HandleAdminGetPayment returns one payment by transaction id (admin)
func HandleAdminGetPayment(c *fiber.Ctx) error {
	payment, err := repository.GetGlobalFactory().GetPaymentRepository().
		GetByTransactionID(c.Params("transactionId"))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Payment not found")
	}
	return c.JSON(payment)
}

func mapInitiationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payments.ErrCategoryNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Category not found")
	case errors.Is(err, payments.ErrPassNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Unknown pass type")
	case errors.Is(err, payments.ErrAlreadyHasAccess):
		return jsonError(c, fiber.StatusConflict, "already_purchased", "You already have access to this category")
	case payments.IsPromoError(err):
		return jsonError(c, fiber.StatusBadRequest, "promo_rejected", err.Error())
	case errors.Is(err, phonepe.ErrAmountTooLow):
		return jsonError(c, fiber.StatusBadRequest, "amount_too_low", "Payable amount is below the gateway minimum")
	case errors.Is(err, phonepe.ErrNotConfigured):
		return jsonError(c, fiber.StatusInternalServerError, "gateway_not_configured", "Payment gateway is not configured")
	default:
		var gwErr *phonepe.GatewayError
		if errors.As(err, &gwErr) {
			return jsonError(c, fiber.StatusInternalServerError, "gateway_error", "Payment gateway rejected the request")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to initiate payment")
	}
}

func mapReconcileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payments.ErrPaymentNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Payment not found")
	case errors.Is(err, phonepe.ErrNotConfigured):
		return jsonError(c, fiber.StatusInternalServerError, "gateway_not_configured", "Payment gateway is not configured")
	default:
		var gwErr *phonepe.GatewayError
		if errors.As(err, &gwErr) {
			return jsonError(c, fiber.StatusBadGateway, "gateway_error", "Payment gateway is unreachable")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to reconcile payment")
	}
}

// paymentReturnURL only allows same-site relative paths
func paymentReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/payments/result"
	}
	return raw
}
