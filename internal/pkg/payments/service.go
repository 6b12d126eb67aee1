package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ecellhq/launchpad/app/models"
	"github.com/ecellhq/launchpad/internal/pkg/env"
	"github.com/ecellhq/launchpad/internal/pkg/phonepe"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service drives checkout initiation and payment-state reconciliation.
// The gateway is injected so tests can substitute a fake.
type Service struct {
	repo      Repository
	gateway   Gateway
	publicURL string
}

// NewService creates a payments service from injected collaborators.
func NewService(repo Repository, gateway Gateway, publicURL string) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// NewServiceFromDB wires the service against a GORM handle and the public
// domain configured in the environment.
func NewServiceFromDB(db *gorm.DB, gateway Gateway) *Service {
	return NewService(NewRepository(db), gateway, env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000"))
}

// NewTransactionID generates a fresh merchant order id.
func NewTransactionID() string {
	return "LP-" + strings.ToUpper(uuid.New().String())
}

// PreviewPromo evaluates a code against an amount without consuming usage.
// Backing for the UI "Apply" button; the authoritative usage increment
// happens once, at checkout initiation.
func (s *Service) PreviewPromo(code string, amount float64) (discount float64, err error) {
	pc, err := s.repo.GetPromoCode(code)
	if err != nil {
		if IsNotFound(err) {
			return 0, ErrPromoInvalid
		}
		return 0, err
	}
	return EvaluatePromo(pc, amount, time.Now())
}

// InitiateCheckout implements the category checkout flow: access and free
// fast paths, promo application, pending payment creation and gateway
// hand-off.
func (s *Service) InitiateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	cat, err := s.repo.GetCategory(in.CategoryID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	hasAccess, err := s.repo.HasCategoryAccess(in.UserID, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if hasAccess {
		return nil, ErrAlreadyHasAccess
	}

	if cat.IsFree() {
		if _, err := s.grantAccess(in.UserID, in.UserEmail, in.CategoryID, ""); err != nil {
			return nil, err
		}
		return &CheckoutResult{HasAccess: true, Message: "category is free, access granted"}, nil
	}

	amount := cat.Price
	discount := 0.0
	promo := models.NormalizePromoCode(in.PromoCode)
	if promo != "" {
		pc, err := s.repo.GetPromoCode(promo)
		if err != nil {
			if IsNotFound(err) {
				return nil, ErrPromoInvalid
			}
			return nil, err
		}
		discount, err = EvaluatePromo(pc, amount, time.Now())
		if err != nil {
			return nil, err
		}
		amount -= discount
	}

	if amount <= 0 {
		// Fully discounted: consume the code and grant without a payment.
		if ok, err := s.repo.ConsumePromoUsage(promo); err != nil {
			return nil, err
		} else if !ok {
			return nil, ErrPromoExhausted
		}
		if _, err := s.grantAccess(in.UserID, in.UserEmail, in.CategoryID, ""); err != nil {
			return nil, err
		}
		return &CheckoutResult{HasAccess: true, Discount: discount, Message: "promo code covers the full price, access granted"}, nil
	}

	payment := &models.Payment{
		Kind:          models.PaymentKindCategory,
		UserID:        in.UserID,
		UserEmail:     in.UserEmail,
		CategoryID:    in.CategoryID,
		Amount:        amount,
		PromoCode:     promo,
		Discount:      discount,
		TransactionID: NewTransactionID(),
		Status:        models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodPhonePe,
	}
	if err := s.repo.CreatePayment(payment); err != nil {
		return nil, err
	}

	if promo != "" {
		if ok, err := s.repo.ConsumePromoUsage(promo); err != nil {
			return nil, err
		} else if !ok {
			s.failInitiation(payment.TransactionID, "PROMO_EXHAUSTED")
			return nil, ErrPromoExhausted
		}
	}

	metaInfo := map[string]string{
		"udf1": strconv.FormatUint(uint64(payment.ID), 10),
		"udf2": strconv.FormatUint(uint64(in.CategoryID), 10),
		"udf3": strconv.FormatUint(uint64(in.UserID), 10),
	}
	return s.callGateway(ctx, payment, metaInfo)
}

// InitiateEventCheckout implements the E-Summit pass checkout. A settled
// success payment is the ticket; there is no access grant.
func (s *Service) InitiateEventCheckout(ctx context.Context, in EventCheckoutInput) (*CheckoutResult, error) {
	pass, ok := FindEventPass(in.PassType)
	if !ok {
		return nil, ErrPassNotFound
	}

	amount := pass.Price
	discount := 0.0
	promo := models.NormalizePromoCode(in.PromoCode)
	if promo != "" {
		pc, err := s.repo.GetPromoCode(promo)
		if err != nil {
			if IsNotFound(err) {
				return nil, ErrPromoInvalid
			}
			return nil, err
		}
		discount, err = EvaluatePromo(pc, amount, time.Now())
		if err != nil {
			return nil, err
		}
		amount -= discount
	}

	payment := &models.Payment{
		Kind:          models.PaymentKindEvent,
		UserEmail:     in.BuyerEmail,
		Amount:        amount,
		PromoCode:     promo,
		Discount:      discount,
		TransactionID: NewTransactionID(),
		Status:        models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodPhonePe,
		BuyerName:     in.BuyerName,
		BuyerEmail:    in.BuyerEmail,
		BuyerPhone:    in.BuyerPhone,
		SenderName:    in.SenderName,
		PassType:      pass.Type,
		PassName:      pass.Name,
	}

	if amount <= 0 {
		if ok, err := s.repo.ConsumePromoUsage(promo); err != nil {
			return nil, err
		} else if !ok {
			return nil, ErrPromoExhausted
		}
		payment.Status = models.PaymentStatusSuccess
		if err := s.repo.CreatePayment(payment); err != nil {
			return nil, err
		}
		return &CheckoutResult{HasAccess: true, Discount: discount, TransactionID: payment.TransactionID, PaymentID: payment.ID, Message: "promo code covers the full price, pass issued"}, nil
	}

	if err := s.repo.CreatePayment(payment); err != nil {
		return nil, err
	}

	if promo != "" {
		if ok, err := s.repo.ConsumePromoUsage(promo); err != nil {
			return nil, err
		} else if !ok {
			s.failInitiation(payment.TransactionID, "PROMO_EXHAUSTED")
			return nil, ErrPromoExhausted
		}
	}

	metaInfo := map[string]string{
		"udf1": strconv.FormatUint(uint64(payment.ID), 10),
		"udf4": pass.Type,
	}
	return s.callGateway(ctx, payment, metaInfo)
}

func (s *Service) callGateway(ctx context.Context, payment *models.Payment, metaInfo map[string]string) (*CheckoutResult, error) {
	amountPaise := int64(math.Round(payment.Amount * 100))
	redirectURL := fmt.Sprintf("%s/api/v1/payments/callback?transactionId=%s", s.publicURL, payment.TransactionID)
	if payment.Kind == models.PaymentKindEvent {
		redirectURL = fmt.Sprintf("%s/api/v1/esummit/callback?transactionId=%s", s.publicURL, payment.TransactionID)
	}

	order, err := s.gateway.CreateOrder(ctx, payment.TransactionID, amountPaise, redirectURL, metaInfo)
	if err != nil {
		s.failInitiation(payment.TransactionID, "INITIATION_FAILED")
		return nil, err
	}

	meta, _ := json.Marshal(metaInfo)
	payment.PhonepeOrderID = order.OrderID
	payment.PhonepeState = order.State
	payment.PhonepeMetaInfo = string(meta)
	if err := s.repo.SavePayment(payment); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		PaymentURL:    order.RedirectURL,
		TransactionID: payment.TransactionID,
		PaymentID:     payment.ID,
		OrderID:       order.OrderID,
		Amount:        payment.Amount,
		Discount:      payment.Discount,
	}, nil
}

func (s *Service) failInitiation(transactionID, state string) {
	if _, err := s.repo.TransitionPaymentStatus(transactionID, models.PaymentStatusFailed, PaymentStamp{State: state}); err != nil {
		log.Printf("payments: could not mark %s failed after initiation error: %v", transactionID, err)
	}
}

func (s *Service) grantAccess(userID uint, userEmail string, categoryID uint, paymentID string) (bool, error) {
	return s.repo.GrantCategoryAccess(&models.CategoryAccess{
		UserID:     userID,
		UserEmail:  userEmail,
		CategoryID: categoryID,
		PaymentID:  paymentID,
	})
}

// HasAccess answers the collaborator query "does (user, category) hold a
// grant"; consumed by checkout initiation and by content gating.
func (s *Service) HasAccess(userID, categoryID uint) (bool, error) {
	return s.repo.HasCategoryAccess(userID, categoryID)
}

// Reconcile asks the gateway for the authoritative order state and updates
// the local payment to match. Safe to call repeatedly and concurrently for
// the same order: both the webhook and the redirect poll converge here.
func (s *Service) Reconcile(ctx context.Context, transactionID string) (*models.Payment, error) {
	_, err := s.repo.GetPaymentByTransactionID(transactionID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	status, err := s.gateway.OrderStatus(ctx, transactionID, true)
	if err != nil {
		return nil, err
	}

	// The raw response is audit trail; it appends even on replays.
	if err := s.repo.AppendPaymentPayload(transactionID, string(status.Raw)); err != nil {
		log.Printf("payments: could not append audit payload for %s: %v", transactionID, err)
	}

	newStatus, state, gatewayTxID := ClassifyStatus(status)
	stamp := PaymentStamp{
		State:                state,
		PhonepeOrderID:       status.OrderID,
		PhonepeTransactionID: gatewayTxID,
	}
	if _, err := s.repo.TransitionPaymentStatus(transactionID, newStatus, stamp); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetPaymentByTransactionID(transactionID)
	if err != nil {
		return nil, err
	}

	// Grant access on success. GrantCategoryAccess is idempotent, so a
	// replayed callback or a racing poll cannot produce a second grant.
	if updated.Status == models.PaymentStatusSuccess && updated.Kind == models.PaymentKindCategory && updated.CategoryID != 0 {
		if _, err := s.grantAccess(updated.UserID, updated.UserEmail, updated.CategoryID, updated.TransactionID); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// ClassifyStatus maps the gateway's state vocabulary onto the local payment
// status. It prefers the most recent COMPLETED payment attempt, then the
// latest attempt, then the order-level state. States outside the known
// vocabulary classify as pending and are logged loudly for manual
// reconciliation; they must never silently count as success or failure.
func ClassifyStatus(st *phonepe.StatusResponse) (status, state, gatewayTxID string) {
	state = strings.ToUpper(strings.TrimSpace(st.State))
	var chosen *detailRef
	for i := range st.PaymentDetails {
		d := &st.PaymentDetails[i]
		ds := strings.ToUpper(strings.TrimSpace(d.State))
		if ds == "COMPLETED" {
			if chosen == nil || !chosen.completed || d.Timestamp > chosen.ts {
				chosen = &detailRef{state: ds, txID: d.TransactionID, ts: d.Timestamp, completed: true}
			}
			continue
		}
		if chosen == nil || (!chosen.completed && d.Timestamp > chosen.ts) {
			chosen = &detailRef{state: ds, txID: d.TransactionID, ts: d.Timestamp}
		}
	}
	if chosen != nil {
		state = chosen.state
		gatewayTxID = chosen.txID
	}

	switch state {
	case "COMPLETED", "SUCCESS":
		return models.PaymentStatusSuccess, state, gatewayTxID
	case "PENDING", "PENDING_VBV", "PENDING_INPUT":
		return models.PaymentStatusPending, state, gatewayTxID
	case "FAILED", "ERROR", "DECLINED", "TIMED_OUT", "CANCELLED", "EXPIRED":
		return models.PaymentStatusFailed, state, gatewayTxID
	case "":
		return models.PaymentStatusPending, state, gatewayTxID
	default:
		log.Printf("payments: UNRECOGNIZED gateway state %q for order %s, classifying as pending, manual reconciliation required", state, st.OrderID)
		return models.PaymentStatusPending, state, gatewayTxID
	}
}

type detailRef struct {
	state     string
	txID      string
	ts        int64
	completed bool
}

// callbackBody is the server-to-server webhook shape. The payload is still
// only a hint: Reconcile re-derives the state from the status API.
type callbackBody struct {
	Event   string `json:"event"`
	Payload struct {
		OrderID         string            `json:"orderId"`
		MerchantOrderID string            `json:"merchantOrderId"`
		State           string            `json:"state"`
		MetaInfo        map[string]string `json:"metaInfo"`
	} `json:"payload"`
}

// ResolveCallback parses a webhook body and resolves the local payment row:
// first via the udf1 correlation id planted at checkout time, then via the
// echoed merchant order id. It never fabricates a payment.
func (s *Service) ResolveCallback(body []byte) (string, error) {
	var cb callbackBody
	if err := json.Unmarshal(body, &cb); err != nil {
		return "", err
	}

	if udf1 := cb.Payload.MetaInfo["udf1"]; udf1 != "" {
		if id, err := strconv.ParseUint(udf1, 10, 64); err == nil {
			if p, err := s.repo.GetPaymentByID(uint(id)); err == nil {
				return p.TransactionID, nil
			}
		}
	}

	if mid := strings.TrimSpace(cb.Payload.MerchantOrderID); mid != "" {
		if p, err := s.repo.GetPaymentByTransactionID(mid); err == nil {
			return p.TransactionID, nil
		}
	}

	return "", ErrPaymentNotFound
}
