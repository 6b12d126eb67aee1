package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecellhq/launchpad/app/models"
	"github.com/ecellhq/launchpad/internal/pkg/payments"
	"github.com/ecellhq/launchpad/internal/pkg/phonepe"
)

type stubRepo struct {
	mu         sync.Mutex
	categories map[uint]*models.Category
	promos     map[string]*models.PromoCode
	payments   map[string]*models.Payment
	accesses   map[[2]uint]bool
	nextID     uint
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		categories: make(map[uint]*models.Category),
		promos:     make(map[string]*models.PromoCode),
		payments:   make(map[string]*models.Payment),
		accesses:   make(map[[2]uint]bool),
	}
}

func (r *stubRepo) GetCategory(id uint) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cat, ok := r.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *cat
	return &out, nil
}

func (r *stubRepo) HasCategoryAccess(userID, categoryID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accesses[[2]uint{userID, categoryID}], nil
}

func (r *stubRepo) GrantCategoryAccess(access *models.CategoryAccess) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]uint{access.UserID, access.CategoryID}
	if r.accesses[key] {
		return false, nil
	}
	r.accesses[key] = true
	return true, nil
}

func (r *stubRepo) GetPromoCode(code string) (*models.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc, ok := r.promos[models.NormalizePromoCode(code)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *pc
	return &out, nil
}

func (r *stubRepo) ConsumePromoUsage(code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc, ok := r.promos[models.NormalizePromoCode(code)]
	if !ok || !pc.IsActive {
		return false, nil
	}
	if pc.UsageLimit != nil && pc.UsedCount >= *pc.UsageLimit {
		return false, nil
	}
	pc.UsedCount++
	return true, nil
}

func (r *stubRepo) CreatePayment(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.payments[p.TransactionID] = &cp
	return nil
}

func (r *stubRepo) GetPaymentByID(id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			out := *p
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) GetPaymentByTransactionID(transactionID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[transactionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *p
	return &out, nil
}

func (r *stubRepo) SavePayment(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.TransactionID] = &cp
	return nil
}

func (r *stubRepo) AppendPaymentPayload(transactionID, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[transactionID]; ok {
		p.PhonepePayload += payload + "\n"
	}
	return nil
}

func (r *stubRepo) TransitionPaymentStatus(transactionID, newStatus string, stamp payments.PaymentStamp) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[transactionID]
	if !ok {
		return false, nil
	}
	if p.Status != models.PaymentStatusPending && newStatus != models.PaymentStatusSuccess {
		return false, nil
	}
	p.Status = newStatus
	p.PhonepeState = stamp.State
	if stamp.PhonepeOrderID != "" {
		p.PhonepeOrderID = stamp.PhonepeOrderID
	}
	if stamp.PhonepeTransactionID != "" {
		p.PhonepeTransactionID = stamp.PhonepeTransactionID
	}
	return true, nil
}

type stubGateway struct {
	state string
}

func (g *stubGateway) CreateOrder(ctx context.Context, merchantOrderID string, amountPaise int64, redirectURL string, metaInfo map[string]string) (*phonepe.OrderResponse, error) {
	if amountPaise < phonepe.MinAmountPaise {
		return nil, phonepe.ErrAmountTooLow
	}
	return &phonepe.OrderResponse{
		OrderID:     "OMO-" + merchantOrderID,
		State:       "PENDING",
		RedirectURL: "https://pay.example/" + merchantOrderID,
	}, nil
}

func (g *stubGateway) OrderStatus(ctx context.Context, merchantOrderID string, details bool) (*phonepe.StatusResponse, error) {
	state := g.state
	if state == "" {
		state = "PENDING"
	}
	return &phonepe.StatusResponse{
		OrderID: "OMO-" + merchantOrderID,
		State:   state,
		Raw:     json.RawMessage(`{"state":"` + state + `"}`),
	}, nil
}

func newTestApp(repo *stubRepo, gw *stubGateway) *fiber.App {
	SetPaymentService(payments.NewService(repo, gw, "http://localhost:4000"))
	app := fiber.New()
	app.Post("/promo/apply", HandleApplyPromo)
	app.Get("/esummit/passes", HandleListEventPasses)
	app.Post("/esummit/checkout", HandleEventCheckout)
	app.Get("/payments/callback", HandlePaymentRedirect)
	return app
}

func TestHandleApplyPromoPreview(t *testing.T) {
	repo := newStubRepo()
	now := time.Now()
	from := now.Add(-time.Hour)
	until := now.Add(time.Hour)
	maxDiscount := 150.0
	repo.promos["SAVE20"] = &models.PromoCode{
		Code:          "SAVE20",
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: 20,
		MaxDiscount:   &maxDiscount,
		ValidFrom:     from,
		ValidUntil:    until,
		IsActive:      true,
	}
	app := newTestApp(repo, &stubGateway{})

	body, _ := json.Marshal(fiber.Map{"code": "save20", "amount": 1000})
	req := httptest.NewRequest(http.MethodPost, "/promo/apply", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "SAVE20", out["code"])
	assert.Equal(t, 150.0, out["discount"])
	assert.Equal(t, 850.0, out["payable"])

	// preview must not consume usage
	assert.Equal(t, 0, repo.promos["SAVE20"].UsedCount)
}

func TestHandleApplyPromoRejected(t *testing.T) {
	app := newTestApp(newStubRepo(), &stubGateway{})

	body, _ := json.Marshal(fiber.Map{"code": "NOPE", "amount": 500})
	req := httptest.NewRequest(http.MethodPost, "/promo/apply", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "promo_rejected", out["error"])
}

func TestHandleListEventPasses(t *testing.T) {
	app := newTestApp(newStubRepo(), &stubGateway{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/esummit/passes", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Passes []payments.EventPass `json:"passes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Passes, 3)
	assert.Equal(t, "summit", out.Passes[0].Type)
}

func TestHandleEventCheckoutReturnsPaymentURL(t *testing.T) {
	repo := newStubRepo()
	app := newTestApp(repo, &stubGateway{})

	body, _ := json.Marshal(fiber.Map{
		"buyer_name":  "Asha",
		"buyer_email": "asha@example.org",
		"pass_type":   "summit",
	})
	req := httptest.NewRequest(http.MethodPost, "/esummit/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, false, out["ticket_issued"])
	assert.NotEmpty(t, out["payment_url"])
	assert.NotEmpty(t, out["transaction_id"])
}

func TestHandleEventCheckoutUnknownPass(t *testing.T) {
	app := newTestApp(newStubRepo(), &stubGateway{})

	body, _ := json.Marshal(fiber.Map{
		"buyer_name":  "Asha",
		"buyer_email": "asha@example.org",
		"pass_type":   "vip-helicopter",
	})
	req := httptest.NewRequest(http.MethodPost, "/esummit/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlePaymentRedirectAlwaysRedirects(t *testing.T) {
	repo := newStubRepo()
	gw := &stubGateway{state: "COMPLETED"}
	app := newTestApp(repo, gw)

	repo.payments["LP-TEST"] = &models.Payment{
		ID:            1,
		Kind:          models.PaymentKindEvent,
		TransactionID: "LP-TEST",
		Status:        models.PaymentStatusPending,
		Amount:        199,
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/payments/callback?transactionId=LP-TEST", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "status=success")

	// unknown transaction still redirects, flagged pending
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/payments/callback?transactionId=LP-NOPE", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "status=pending")
}

func TestPaymentReturnURLRejectsOffsite(t *testing.T) {
	assert.Equal(t, "/payments/result", paymentReturnURL(""))
	assert.Equal(t, "/payments/result", paymentReturnURL("https://evil.example"))
	assert.Equal(t, "/payments/result", paymentReturnURL("//evil.example"))
	assert.Equal(t, "/thanks", paymentReturnURL("/thanks"))
}
