package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ecellhq/launchpad/app/models"
	"github.com/ecellhq/launchpad/internal/pkg/payments"
)

type esummitCheckoutRequest struct {
	BuyerName  string `json:"buyer_name"`
	BuyerEmail string `json:"buyer_email"`
	BuyerPhone string `json:"buyer_phone"`
	SenderName string `json:"sender_name"`
	PassType   string `json:"pass_type"`
	PromoCode  string `json:"promo_code"`
}

// HandleListEventPasses serves the fixed pass catalog
func HandleListEventPasses(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"passes": payments.EventPasses()})
}

// HandleEventCheckout starts an E-Summit pass purchase. No account needed;
// the buyer details travel on the payment row and the settled payment is
// the ticket.
func HandleEventCheckout(c *fiber.Ctx) error {
	var req esummitCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if strings.TrimSpace(req.BuyerName) == "" || strings.TrimSpace(req.BuyerEmail) == "" || req.PassType == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "buyer_name, buyer_email and pass_type are required")
	}

	result, err := PaymentService().InitiateEventCheckout(c.Context(), payments.EventCheckoutInput{
		BuyerName:  strings.TrimSpace(req.BuyerName),
		BuyerEmail: strings.TrimSpace(req.BuyerEmail),
		BuyerPhone: strings.TrimSpace(req.BuyerPhone),
		SenderName: strings.TrimSpace(req.SenderName),
		PassType:   req.PassType,
		PromoCode:  req.PromoCode,
	})
	if err != nil {
		return mapInitiationError(c, err)
	}

	if result.HasAccess {
		return c.JSON(fiber.Map{
			"ticket_issued":  true,
			"message":        result.Message,
			"transaction_id": result.TransactionID,
			"amount":         result.Amount,
			"discount":       result.Discount,
		})
	}
	return c.JSON(fiber.Map{
		"ticket_issued":  false,
		"payment_url":    result.PaymentURL,
		"transaction_id": result.TransactionID,
		"order_id":       result.OrderID,
		"amount":         result.Amount,
		"discount":       result.Discount,
	})
}

// HandleEventCallback is the browser return URL for pass purchases
func HandleEventCallback(c *fiber.Ctx) error {
	transactionID := strings.TrimSpace(c.Query("transactionId"))
	returnTo := paymentReturnURL(c.Query("redirect", "/esummit/result"))

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
