package payments

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ecellhq/launchpad/app/models"
	"github.com/ecellhq/launchpad/internal/pkg/phonepe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory Repository with the same conditional-update
// semantics as the GORM implementation.
type fakeRepo struct {
	mu         sync.Mutex
	categories map[uint]*models.Category
	promos     map[string]*models.PromoCode
	payments   map[string]*models.Payment
	byID       map[uint]*models.Payment
	accesses   map[string]*models.CategoryAccess
	nextID     uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		categories: make(map[uint]*models.Category),
		promos:     make(map[string]*models.PromoCode),
		payments:   make(map[string]*models.Payment),
		byID:       make(map[uint]*models.Payment),
		accesses:   make(map[string]*models.CategoryAccess),
	}
}

func accessKey(userID, categoryID uint) string {
	return fmt.Sprintf("%d:%d", userID, categoryID)
}

func (r *fakeRepo) GetCategory(id uint) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cat, ok := r.categories[id]; ok {
		cp := *cat
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) HasCategoryAccess(userID, categoryID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accesses[accessKey(userID, categoryID)]
	return ok && a.AccessGranted, nil
}

func (r *fakeRepo) GrantCategoryAccess(access *models.CategoryAccess) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := accessKey(access.UserID, access.CategoryID)
	if _, ok := r.accesses[key]; ok {
		return false, nil
	}
	access.AccessGranted = true
	r.accesses[key] = access
	return true, nil
}

func (r *fakeRepo) GetPromoCode(code string) (*models.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pc, ok := r.promos[models.NormalizePromoCode(code)]; ok {
		cp := *pc
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) ConsumePromoUsage(code string) (bool, error) {
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

func (r *fakeRepo) CreatePayment(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.payments[p.TransactionID] = &cp
	r.byID[p.ID] = &cp
	return nil
}

func (r *fakeRepo) GetPaymentByID(id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetPaymentByTransactionID(transactionID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[transactionID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) SavePayment(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.TransactionID] = &cp
	r.byID[p.ID] = &cp
	return nil
}

func (r *fakeRepo) AppendPaymentPayload(transactionID, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[transactionID]; ok {
		p.PhonepePayload += payload + "\n"
	}
	return nil
}

func (r *fakeRepo) TransitionPaymentStatus(transactionID, newStatus string, stamp PaymentStamp) (bool, error) {
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
	if stamp.State != "" {
		p.PhonepeState = stamp.State
	}
	if stamp.PhonepeOrderID != "" {
		p.PhonepeOrderID = stamp.PhonepeOrderID
	}
	if stamp.PhonepeTransactionID != "" {
		p.PhonepeTransactionID = stamp.PhonepeTransactionID
	}
	return true, nil
}

func (r *fakeRepo) accessCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accesses)
}

// fakeGateway records calls and plays back scripted responses.
type fakeGateway struct {
	mu          sync.Mutex
	createCalls int
	statusCalls int
	createErr   error
	status      *phonepe.StatusResponse
	statusErr   error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, merchantOrderID string, amountPaise int64, redirectURL string, metaInfo map[string]string) (*phonepe.OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	if amountPaise < phonepe.MinAmountPaise {
		return nil, phonepe.ErrAmountTooLow
	}
	return &phonepe.OrderResponse{
		OrderID:     "OMO" + merchantOrderID,
		State:       "PENDING",
		RedirectURL: "https://mercury.phonepe.com/transact/" + merchantOrderID,
	}, nil
}

func (g *fakeGateway) OrderStatus(ctx context.Context, merchantOrderID string, details bool) (*phonepe.StatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return g.status, nil
}

func newTestService(repo *fakeRepo, gw *fakeGateway) *Service {
	return NewService(repo, gw, "https://launchpad.example.org")
}

func seedCategory(repo *fakeRepo, id uint, price float64) {
	repo.categories[id] = &models.Category{ID: id, Name: "Ideation Sprint", Status: models.CATEGORY_STATUS_ACTIVE, Price: price}
}

func seedSave20(repo *fakeRepo) {
	now := time.Now()
	repo.promos["SAVE20"] = &models.PromoCode{
		Code:          "SAVE20",
		DiscountType:  models.DiscountTypePercentage,
		DiscountValue: 20,
		MinAmount:     ptrF(500),
		MaxDiscount:   ptrF(150),
		ValidFrom:     now.Add(-time.Hour),
		ValidUntil:    now.Add(time.Hour),
		UsageLimit:    ptrI(2),
		IsActive:      true,
	}
}

func TestInitiateFreeCategoryFastPath(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	seedCategory(repo, 1, 0)
	svc := newTestService(repo, gw)

	res, err := svc.InitiateCheckout(context.Background(), CheckoutInput{UserID: 7, UserEmail: "a@b.c", CategoryID: 1})
	require.NoError(t, err)
	assert.True(t, res.HasAccess)
	assert.Empty(t, repo.payments, "free fast path must not create a payment row")
	assert.Equal(t, 0, gw.createCalls)
	assert.Equal(t, 1, repo.accessCount())
}

func TestInitiateFullyDiscountedFastPath(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	seedCategory(repo, 1, 100)
	now := time.Now()
	repo.promos["FREEPASS"] = &models.PromoCode{
		Code: "FREEPASS", DiscountType: models.DiscountTypeFixed, DiscountValue: 100,
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour), IsActive: true,
	}
	svc := newTestService(repo, gw)

	res, err := svc.InitiateCheckout(context.Background(), CheckoutInput{UserID: 7, UserEmail: "a@b.c", CategoryID: 1, PromoCode: "freepass"})
	require.NoError(t, err)
	assert.True(t, res.HasAccess)
	assert.Equal(t, 0, gw.createCalls, "fully discounted checkout must not touch the gateway")
	assert.Equal(t, 1, repo.accessCount())
	assert.Equal(t, 1, repo.promos["FREEPASS"].UsedCount)
}

func TestInitiateCategoryNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeGateway{})

	_, err := svc.InitiateCheckout(context.Background(), CheckoutInput{UserID: 7, CategoryID: 99})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestInitiateAlreadyHasAccess(t *testing.T) {
	repo := newFakeRepo()
	seedCategory(repo, 1, 500)
	repo.accesses[accessKey(7, 1)] = &models.CategoryAccess{UserID: 7, CategoryID: 1, AccessGranted: true}
	svc := newTestService(repo, &fakeGateway{})

	_, err := svc.InitiateCheckout(context.Background(), CheckoutInput{UserID: 7, CategoryID: 1})
	assert.ErrorIs(t, err, ErrAlreadyHasAccess)
}

func TestInitiateAmountFloor(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	seedCategory(repo, 1, 0.50)
	svc := newTestService(repo, gw)

	_, err := svc.InitiateCheckout(context.Background(), CheckoutInput{UserID: 7, CategoryID: 1})
	assert.ErrorIs(t, err, phonepe.ErrAmountTooLow)

	// No payment row may dangle in a non-failed state.
	for _, p := range repo.payments {
		assert.Equal(t, models.PaymentStatusFailed, p.Status)
	}
}

func TestInitiatePaidCheckoutWithSave20(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	seedCategory(repo, 1, 1000)
	seedSave20(repo)
	svc := newTestService(repo, gw)

	res, err := svc.InitiateCheckout(context.Background(), CheckoutInput{UserID: 7, UserEmail: "a@b.c", CategoryID: 1, PromoCode: "save20"})
	require.NoError(t, err)
	assert.Equal(t, 150.0, res.Discount, "20 percent of 1000 capped at 150")
	assert.Equal(t, 850.0, res.Amount)
	assert.NotEmpty(t, res.PaymentURL)
	assert.Equal(t, 1, repo.promos["SAVE20"].UsedCount)

	p, err := repo.GetPaymentByTransactionID(res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.Equal(t, "OMO"+res.TransactionID, p.PhonepeOrderID)

	// Second redemption is allowed, third hits the usage limit.
	_, err = svc.InitiateCheckout(context.Background(), CheckoutInput{UserID: 8, UserEmail: "b@b.c", CategoryID: 1, PromoCode: "SAVE20"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.promos["SAVE20"].UsedCount)

	_, err = svc.InitiateCheckout(context.Background(), CheckoutInput{UserID: 9, UserEmail: "c@b.c", CategoryID: 1, PromoCode: "SAVE20"})
	assert.ErrorIs(t, err, ErrPromoExhausted)
	assert.Equal(t, 2, repo.promos["SAVE20"].UsedCount)
}

func pendingPayment(repo *fakeRepo, userID, categoryID uint) *models.Payment {
	p := &models.Payment{
		Kind:          models.PaymentKindCategory,
		UserID:        userID,
		UserEmail:     "a@b.c",
		CategoryID:    categoryID,
		Amount:        850,
		TransactionID: NewTransactionID(),
		Status:        models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodPhonePe,
	}
	_ = repo.CreatePayment(p)
	return p
}

func completedStatus(orderID string) *phonepe.StatusResponse {
	return &phonepe.StatusResponse{
		OrderID: orderID,
		State:   "COMPLETED",
		PaymentDetails: []phonepe.PaymentDetail{
			{State: "FAILED", TransactionID: "T1", Timestamp: 100},
			{State: "COMPLETED", TransactionID: "T2", Timestamp: 200},
		},
		Raw: []byte(`{"state":"COMPLETED"}`),
	}
}

func TestReconcileCompletedGrantsAccessOnce(t *testing.T) {
	repo := newFakeRepo()
	seedCategory(repo, 1, 1000)
	p := pendingPayment(repo, 7, 1)
	gw := &fakeGateway{status: completedStatus("OMO1")}
	svc := newTestService(repo, gw)

	updated, err := svc.Reconcile(context.Background(), p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, updated.Status)
	assert.Equal(t, "T2", updated.PhonepeTransactionID)
	assert.Equal(t, 1, repo.accessCount())

	// Replaying the same reconciliation is a no-op on status and grants.
	updated, err = svc.Reconcile(context.Background(), p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, updated.Status)
	assert.Equal(t, 1, repo.accessCount())
}

func TestReconcileStalePendingDoesNotDowngrade(t *testing.T) {
	repo := newFakeRepo()
	seedCategory(repo, 1, 1000)
	p := pendingPayment(repo, 7, 1)
	gw := &fakeGateway{status: completedStatus("OMO1")}
	svc := newTestService(repo, gw)

	_, err := svc.Reconcile(context.Background(), p.TransactionID)
	require.NoError(t, err)

	// A stale PENDING re-observation must not downgrade the terminal state.
	gw.status = &phonepe.StatusResponse{OrderID: "OMO1", State: "PENDING", Raw: []byte(`{"state":"PENDING"}`)}
	updated, err := svc.Reconcile(context.Background(), p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, updated.Status)
}

func TestReconcileFailed(t *testing.T) {
	repo := newFakeRepo()
	seedCategory(repo, 1, 1000)
	p := pendingPayment(repo, 7, 1)
	gw := &fakeGateway{status: &phonepe.StatusResponse{OrderID: "OMO1", State: "FAILED", Raw: []byte(`{"state":"FAILED"}`)}}
	svc := newTestService(repo, gw)

	updated, err := svc.Reconcile(context.Background(), p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, updated.Status)
	assert.Equal(t, 0, repo.accessCount())
}

func TestReconcileUnknownStateStaysPending(t *testing.T) {
	repo := newFakeRepo()
	seedCategory(repo, 1, 1000)
	p := pendingPayment(repo, 7, 1)
	gw := &fakeGateway{status: &phonepe.StatusResponse{OrderID: "OMO1", State: "AUTHORIZATION_HOLD", Raw: []byte(`{}`)}}
	svc := newTestService(repo, gw)

	updated, err := svc.Reconcile(context.Background(), p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, updated.Status, "unknown gateway states must not classify as success or failed")
	assert.Equal(t, 0, repo.accessCount())
}

func TestReconcileGatewayErrorSurfaced(t *testing.T) {
	repo := newFakeRepo()
	p := pendingPayment(repo, 7, 1)
	gw := &fakeGateway{statusErr: &phonepe.GatewayError{Op: "order status", StatusCode: 503}}
	svc := newTestService(repo, gw)

	_, err := svc.Reconcile(context.Background(), p.TransactionID)
	var gwErr *phonepe.GatewayError
	assert.ErrorAs(t, err, &gwErr)

	// A status-check failure says nothing about the charge; status stays pending.
	stored, _ := repo.GetPaymentByTransactionID(p.TransactionID)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
}

func TestReconcileUnknownTransaction(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeGateway{})

	_, err := svc.Reconcile(context.Background(), "LP-DOES-NOT-EXIST")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestConcurrentReconcileGrantsAccessOnce(t *testing.T) {
	repo := newFakeRepo()
	seedCategory(repo, 1, 1000)
	p := pendingPayment(repo, 7, 1)
	gw := &fakeGateway{status: completedStatus("OMO1")}
	svc := newTestService(repo, gw)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Reconcile(context.Background(), p.TransactionID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, repo.accessCount(), "callback and poll racing must produce exactly one grant")
	stored, _ := repo.GetPaymentByTransactionID(p.TransactionID)
	assert.Equal(t, models.PaymentStatusSuccess, stored.Status)
}

func TestResolveCallback(t *testing.T) {
	repo := newFakeRepo()
	p := pendingPayment(repo, 7, 1)
	svc := newTestService(repo, &fakeGateway{})

	body := fmt.Sprintf(`{"event":"checkout.order.completed","payload":{"orderId":"OMO1","merchantOrderId":"%s","state":"COMPLETED","metaInfo":{"udf1":"%d"}}}`, p.TransactionID, p.ID)
	txID, err := svc.ResolveCallback([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, p.TransactionID, txID)

	// Fallback to the merchant order id when udf1 is missing.
	body = fmt.Sprintf(`{"payload":{"merchantOrderId":"%s"}}`, p.TransactionID)
	txID, err = svc.ResolveCallback([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, p.TransactionID, txID)

	// Unresolvable callbacks must not fabricate a payment.
	_, err = svc.ResolveCallback([]byte(`{"payload":{"merchantOrderId":"LP-UNKNOWN"}}`))
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = svc.ResolveCallback([]byte(`{not json`))
	assert.Error(t, err)
}

func TestClassifyStatusTable(t *testing.T) {
	tests := []struct {
		name   string
		st     *phonepe.StatusResponse
		want   string
		wantTx string
	}{
		{
			name: "order level completed",
			st:   &phonepe.StatusResponse{State: "COMPLETED"},
			want: models.PaymentStatusSuccess,
		},
		{
			name: "order level pending",
			st:   &phonepe.StatusResponse{State: "PENDING"},
			want: models.PaymentStatusPending,
		},
		{
			name: "latest completed detail wins over later failure marker order state",
			st: &phonepe.StatusResponse{State: "FAILED", PaymentDetails: []phonepe.PaymentDetail{
				{State: "FAILED", TransactionID: "T1", Timestamp: 300},
				{State: "COMPLETED", TransactionID: "T2", Timestamp: 200},
			}},
			want:   models.PaymentStatusSuccess,
			wantTx: "T2",
		},
		{
			name: "latest detail used when none completed",
			st: &phonepe.StatusResponse{State: "PENDING", PaymentDetails: []phonepe.PaymentDetail{
				{State: "FAILED", TransactionID: "T1", Timestamp: 100},
				{State: "PENDING_VBV", TransactionID: "T2", Timestamp: 200},
			}},
			want:   models.PaymentStatusPending,
			wantTx: "T2",
		},
		{
			name: "declined classifies failed",
			st:   &phonepe.StatusResponse{State: "DECLINED"},
			want: models.PaymentStatusFailed,
		},
		{
			name: "unknown vocabulary stays pending",
			st:   &phonepe.StatusResponse{State: "SOMETHING_NEW"},
			want: models.PaymentStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, gotTx := ClassifyStatus(tt.st)
			assert.Equal(t, tt.want, got)
			if tt.wantTx != "" {
				assert.Equal(t, tt.wantTx, gotTx)
			}
		})
	}
}

func TestInitiateEventCheckout(t *testing.T) {
	repo := newFakeRepo()
	gw := &fakeGateway{}
	svc := newTestService(repo, gw)

	res, err := svc.InitiateEventCheckout(context.Background(), EventCheckoutInput{
		BuyerName: "Asha", BuyerEmail: "asha@example.org", BuyerPhone: "9999999999", PassType: "summit",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.PaymentURL)

	p, err := repo.GetPaymentByTransactionID(res.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentKindEvent, p.Kind)
	assert.Equal(t, "E-Summit Pass", p.PassName)
	assert.Equal(t, 199.0, p.Amount)

	_, err = svc.InitiateEventCheckout(context.Background(), EventCheckoutInput{PassType: "nope"})
	assert.ErrorIs(t, err, ErrPassNotFound)
}
