package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/app/repository"
)

// fakePaymentRepo is an in-memory PaymentRepository with the same guarded
// completion semantics as the MySQL implementation.
type fakePaymentRepo struct {
	mu      sync.Mutex
	records map[string]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{records: make(map[string]*models.Payment)}
}

func (r *fakePaymentRepo) Create(p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[p.OrderID]; exists {
		return fmt.Errorf("duplicate order id %s", p.OrderID)
	}
	p.CreatedAt = time.Now()
	cp := *p
	r.records[p.OrderID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByOrderID(orderID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakePaymentRepo) UpdateFields(orderID string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "status":
			rec.Status = value.(string)
		case "provider_transaction_id":
			rec.ProviderTransactionID = value.(string)
		case "provider_reference":
			rec.ProviderReference = value.(string)
		case "failed_reason":
			rec.FailedReason = value.(string)
		case "payment_method":
			rec.PaymentMethod = value.(models.PaymentMethodInfo)
		case "webhook":
			rec.Webhook = value.(models.WebhookInfo)
		case "refund":
			rec.Refund = value.(models.RefundInfo)
		}
	}
	return nil
}

func (r *fakePaymentRepo) MarkCompleted(orderID string, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[orderID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	switch rec.Status {
	case models.PaymentStatusCompleted, models.PaymentStatusFailed, models.PaymentStatusRefunded:
		return false, nil
	}
	rec.Status = models.PaymentStatusCompleted
	rec.CompletedAt = &completedAt
	return true, nil
}

func (r *fakePaymentRepo) ListByCompany(companyID uint, offset, limit int, filter repository.PaymentFilter) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, rec := range r.records {
		if rec.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Provider != "" && rec.Provider != filter.Provider {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (r *fakePaymentRepo) CountByCompany(companyID uint, filter repository.PaymentFilter) (int64, error) {
	list, _ := r.ListByCompany(companyID, 0, 0, filter)
	return int64(len(list)), nil
}

func (r *fakePaymentRepo) DeleteExpiredPending(now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for id, rec := range r.records {
		if rec.Status == models.PaymentStatusPending && rec.ExpiresAt.Before(now) {
			delete(r.records, id)
			purged++
		}
	}
	return purged, nil
}

func (r *fakePaymentRepo) CountByStatus(status string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakePaymentRepo) SumCompletedSince(since time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, rec := range r.records {
		if rec.Status == models.PaymentStatusCompleted && rec.CompletedAt != nil && rec.CompletedAt.After(since) {
			sum += rec.Amount
		}
	}
	return sum, nil
}

// fakeCompanyRepo tracks entitlement writes so tests can assert how often
// benefits were applied.
type fakeCompanyRepo struct {
	mu                sync.Mutex
	companies         map[uint]*models.Company
	entitlementWrites []map[string]interface{}
}

func newFakeCompanyRepo(ids ...uint) *fakeCompanyRepo {
	r := &fakeCompanyRepo{companies: make(map[uint]*models.Company)}
	for _, id := range ids {
		r.companies[id] = &models.Company{ID: id, Name: fmt.Sprintf("Company %d", id)}
	}
	return r
}

func (r *fakeCompanyRepo) Create(c *models.Company) error { r.companies[c.ID] = c; return nil }

func (r *fakeCompanyRepo) GetByID(id uint) (*models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCompanyRepo) GetBySlug(string) (*models.Company, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCompanyRepo) GetByOwnerID(uint) ([]models.Company, error) { return nil, nil }
func (r *fakeCompanyRepo) Update(*models.Company) error                { return nil }

func (r *fakeCompanyRepo) UpdateEntitlements(id uint, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.companies[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "featured":
			c.Featured = value.(bool)
		case "featured_until":
			until := value.(time.Time)
			c.FeaturedUntil = &until
		case "premium":
			c.Premium = value.(bool)
		case "premium_until":
			until := value.(time.Time)
			c.PremiumUntil = &until
		case "verified":
			c.Verified = value.(bool)
		}
	}
	r.entitlementWrites = append(r.entitlementWrites, fields)
	return nil
}

func (r *fakeCompanyRepo) Delete(uint) error { return nil }
func (r *fakeCompanyRepo) List(int, int, uint, string) ([]models.Company, error) {
	return nil, nil
}
func (r *fakeCompanyRepo) Search(string, int, int) ([]models.Company, error) { return nil, nil }
func (r *fakeCompanyRepo) Count() (int64, error)                             { return 0, nil }
func (r *fakeCompanyRepo) IncrementViewCount(uint, int64) error              { return nil }

func (r *fakeCompanyRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entitlementWrites)
}

// fakeProvider scripts adapter responses per operation.
type fakeProvider struct {
	name         string
	createResult *CreatePaymentResult
	createErr    error
	verifyResult *VerifyPaymentResult
	verifyErr    error
	webhookEvent *WebhookEvent
	webhookErr   error
	refundResult *RefundResult
	refundErr    error

	lastCreate CreatePaymentRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CreatePayment(_ context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	p.lastCreate = req
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.createResult != nil {
		return p.createResult, nil
	}
	return &CreatePaymentResult{
		TransactionID: "tx_" + req.OrderID,
		CheckoutURL:   "https://checkout.test/" + req.OrderID,
		Status:        StatusPending,
	}, nil
}

func (p *fakeProvider) VerifyPayment(context.Context, VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	return p.verifyResult, p.verifyErr
}

func (p *fakeProvider) ProcessWebhook(context.Context, []byte, string) (*WebhookEvent, error) {
	return p.webhookEvent, p.webhookErr
}

func (p *fakeProvider) RefundPayment(context.Context, RefundRequest) (*RefundResult, error) {
	return p.refundResult, p.refundErr
}

func newTestService(companyIDs ...uint) (*Service, *fakePaymentRepo, *fakeCompanyRepo, *fakeProvider) {
	payRepo := newFakePaymentRepo()
	companyRepo := newFakeCompanyRepo(companyIDs...)
	provider := &fakeProvider{name: "stripe"}
	svc := NewService(payRepo, companyRepo, "stripe")
	svc.RegisterProvider("stripe", provider)
	return svc, payRepo, companyRepo, provider
}

func featuredInput(companyID uint) CreatePaymentInput {
	return CreatePaymentInput{
		CompanyID: companyID,
		Amount:    49.99,
		Currency:  "USD",
		Metadata: models.PaymentMetadata{
			Service: models.ServiceFeaturedListing,
			Customer: models.CustomerInfo{
				Name: "Jordan Mason",
			},
		},
	}
}

func TestGenerateOrderID_Format(t *testing.T) {
	id := GenerateOrderID()
	assert.True(t, strings.HasPrefix(id, "CM-"), "order id %q should carry the CM prefix", id)
	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Len(t, parts[2], 12)
}

func TestGenerateOrderID_UniqueUnderConcurrency(t *testing.T) {
	const goroutines = 50
	const perGoroutine = 200

	var mu sync.Mutex
	seen := make(map[string]struct{}, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perGoroutine)
			for j := 0; j < perGoroutine; j++ {
				local = append(local, GenerateOrderID())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine, "generated order ids must not collide")
}

func TestCreatePayment_Succeeds(t *testing.T) {
	svc, payRepo, _, provider := newTestService(1)

	out, err := svc.CreatePayment(context.Background(), featuredInput(1))
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, out.Status)
	assert.Equal(t, "stripe", out.Provider)
	assert.NotEmpty(t, out.CheckoutURL)
	assert.Equal(t, out.OrderID, provider.lastCreate.OrderID, "adapter must receive the persisted order id")

	stored, err := payRepo.GetByOrderID(out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, "tx_"+out.OrderID, stored.ProviderTransactionID)
	assert.WithinDuration(t, time.Now().Add(models.PendingPaymentTTL), stored.ExpiresAt, 5*time.Second)
}

func TestCreatePayment_CompanyMissing(t *testing.T) {
	svc, _, _, _ := newTestService(1)

	_, err := svc.CreatePayment(context.Background(), featuredInput(99))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePayment_UnknownProvider(t *testing.T) {
	svc, _, _, _ := newTestService(1)

	in := featuredInput(1)
	in.Provider = "paypal"
	_, err := svc.CreatePayment(context.Background(), in)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestCreatePayment_RejectsInvalidInput(t *testing.T) {
	svc, _, _, _ := newTestService(1)

	in := featuredInput(1)
	in.Amount = 0
	_, err := svc.CreatePayment(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = featuredInput(1)
	in.Metadata.Service = "gold_plating"
	_, err = svc.CreatePayment(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreatePayment_ProviderFailureLeavesPendingRecord(t *testing.T) {
	svc, payRepo, _, provider := newTestService(1)
	provider.createErr = &ProviderError{Provider: "stripe", Op: "create", StatusCode: 502, Message: "gateway down"}

	_, err := svc.CreatePayment(context.Background(), featuredInput(1))
	require.Error(t, err)
	assert.True(t, IsProviderError(err))

	// The pending record survives for the expiry sweep to clean up.
	pending, err := payRepo.CountByStatus(models.PaymentStatusPending)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)
}

func TestVerifyPayment_CompletesAndAppliesBenefitsOnce(t *testing.T) {
	svc, _, companyRepo, provider := newTestService(7)

	out, err := svc.CreatePayment(context.Background(), featuredInput(7))
	require.NoError(t, err)

	provider.verifyResult = &VerifyPaymentResult{
		Status:        StatusCompleted,
		PaymentMethod: models.PaymentMethodInfo{Type: "card"},
	}

	first, err := svc.VerifyPayment(context.Background(), out.OrderID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, first.Status)
	require.NotNil(t, first.CompletedAt)
	assert.Equal(t, 1, companyRepo.writes())

	second, err := svc.VerifyPayment(context.Background(), out.OrderID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, second.Status)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, first.CompletedAt.Equal(*second.CompletedAt), "completion time must not move on re-verify")
	assert.Equal(t, 1, companyRepo.writes(), "benefits must apply exactly once")

	company, err := companyRepo.GetByID(7)
	require.NoError(t, err)
	assert.True(t, company.Featured)
	require.NotNil(t, company.FeaturedUntil)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, models.DefaultFeaturedDays), *company.FeaturedUntil, time.Minute)
}

func TestVerifyPayment_UnknownOrder(t *testing.T) {
	svc, _, _, _ := newTestService(1)

	_, err := svc.VerifyPayment(context.Background(), "CM-0-missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyPayment_FailureDoesNotOverwriteCompleted(t *testing.T) {
	svc, payRepo, _, provider := newTestService(3)

	out, err := svc.CreatePayment(context.Background(), featuredInput(3))
	require.NoError(t, err)

	provider.verifyResult = &VerifyPaymentResult{Status: StatusCompleted}
	_, err = svc.VerifyPayment(context.Background(), out.OrderID, "")
	require.NoError(t, err)

	// A stale failure report after completion must not regress the record.
	provider.verifyResult = &VerifyPaymentResult{Status: StatusFailed}
	res, err := svc.VerifyPayment(context.Background(), out.OrderID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, res.Status)

	stored, err := payRepo.GetByOrderID(out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
}

func TestHandleWebhook_DuplicateCompletedDeliveries(t *testing.T) {
	svc, payRepo, companyRepo, provider := newTestService(5)

	out, err := svc.CreatePayment(context.Background(), featuredInput(5))
	require.NoError(t, err)

	provider.webhookEvent = &WebhookEvent{
		OrderID:       out.OrderID,
		Status:        StatusCompleted,
		TransactionID: "tx_settled",
	}

	raw := []byte(`{"event":"completed"}`)
	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", raw, "sig"))
	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", raw, "sig"))
	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", raw, "sig"))

	assert.Equal(t, 1, companyRepo.writes(), "replayed deliveries must not extend the benefit again")

	stored, err := payRepo.GetByOrderID(out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	assert.True(t, stored.Webhook.Received)
	assert.Equal(t, "tx_settled", stored.ProviderTransactionID)
}

func TestHandleWebhook_UnknownOrderIgnored(t *testing.T) {
	svc, _, _, provider := newTestService(1)
	provider.webhookEvent = &WebhookEvent{OrderID: "CM-0-purged", Status: StatusCompleted}

	err := svc.HandleWebhook(context.Background(), "stripe", []byte(`{}`), "sig")
	assert.NoError(t, err, "test events and purged orders must be acknowledged, not retried")
}

func TestHandleWebhook_IrrelevantEventIsNoOp(t *testing.T) {
	svc, payRepo, _, provider := newTestService(1)
	provider.webhookEvent = nil

	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", []byte(`{}`), "sig"))
	n, err := payRepo.CountByStatus(models.PaymentStatusCompleted)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleWebhook_FailedAfterCompletedIsIgnored(t *testing.T) {
	svc, payRepo, companyRepo, provider := newTestService(2)

	out, err := svc.CreatePayment(context.Background(), featuredInput(2))
	require.NoError(t, err)

	provider.webhookEvent = &WebhookEvent{OrderID: out.OrderID, Status: StatusCompleted}
	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", []byte(`{}`), "sig"))

	// Out-of-order failure delivery for an already settled payment.
	provider.webhookEvent = &WebhookEvent{OrderID: out.OrderID, Status: StatusFailed, FailureReason: "stale"}
	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", []byte(`{}`), "sig"))

	stored, err := payRepo.GetByOrderID(out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	assert.Equal(t, 1, companyRepo.writes())
}

func TestHandleWebhook_SignatureRejectionPropagates(t *testing.T) {
	svc, _, _, provider := newTestService(1)
	provider.webhookErr = fmt.Errorf("%w: signature mismatch", ErrInvalidInput)

	err := svc.HandleWebhook(context.Background(), "stripe", []byte(`{}`), "bad")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRefundPayment_RequiresCompleted(t *testing.T) {
	svc, payRepo, _, _ := newTestService(4)

	out, err := svc.CreatePayment(context.Background(), featuredInput(4))
	require.NoError(t, err)

	_, err = svc.RefundPayment(context.Background(), out.OrderID, 10, "duplicate order")
	assert.ErrorIs(t, err, ErrNotEligible)

	require.NoError(t, payRepo.UpdateFields(out.OrderID, map[string]interface{}{
		"status": models.PaymentStatusFailed,
	}))
	_, err = svc.RefundPayment(context.Background(), out.OrderID, 10, "duplicate order")
	assert.ErrorIs(t, err, ErrNotEligible)

	stored, err := payRepo.GetByOrderID(out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
	assert.Zero(t, stored.Refund.Amount, "ineligible refund must not touch the record")
}

func TestRefundPayment_Succeeds(t *testing.T) {
	svc, payRepo, _, provider := newTestService(6)

	out, err := svc.CreatePayment(context.Background(), featuredInput(6))
	require.NoError(t, err)

	provider.verifyResult = &VerifyPaymentResult{Status: StatusCompleted}
	_, err = svc.VerifyPayment(context.Background(), out.OrderID, "")
	require.NoError(t, err)

	provider.refundResult = &RefundResult{RefundID: "re_123", Amount: 49.99}
	res, err := svc.RefundPayment(context.Background(), out.OrderID, 49.99, "customer request")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, res.Status)
	assert.Equal(t, "re_123", res.RefundID)

	stored, err := payRepo.GetByOrderID(out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, stored.Status)
	assert.Equal(t, "re_123", stored.Refund.ProviderRefundID)
	assert.Equal(t, "customer request", stored.Refund.Reason)
}

func TestRefundPayment_UnsupportedProviderLeavesRecordCompleted(t *testing.T) {
	svc, payRepo, _, provider := newTestService(8)

	out, err := svc.CreatePayment(context.Background(), featuredInput(8))
	require.NoError(t, err)

	provider.verifyResult = &VerifyPaymentResult{Status: StatusCompleted}
	_, err = svc.VerifyPayment(context.Background(), out.OrderID, "")
	require.NoError(t, err)

	provider.refundErr = fmt.Errorf("%w: refunds", ErrNotSupported)
	_, err = svc.RefundPayment(context.Background(), out.OrderID, 10, "attempt")
	assert.ErrorIs(t, err, ErrNotSupported)

	stored, err := payRepo.GetByOrderID(out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status, "failed refund must not mutate the record")
}

func TestRefundPayment_AmountOutOfRange(t *testing.T) {
	svc, _, _, provider := newTestService(9)

	out, err := svc.CreatePayment(context.Background(), featuredInput(9))
	require.NoError(t, err)

	provider.verifyResult = &VerifyPaymentResult{Status: StatusCompleted}
	_, err = svc.VerifyPayment(context.Background(), out.OrderID, "")
	require.NoError(t, err)

	_, err = svc.RefundPayment(context.Background(), out.OrderID, 1000, "too much")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetPaymentHistory_ProjectionStripsSensitiveData(t *testing.T) {
	svc, payRepo, _, provider := newTestService(11)

	out, err := svc.CreatePayment(context.Background(), featuredInput(11))
	require.NoError(t, err)

	provider.webhookEvent = &WebhookEvent{OrderID: out.OrderID, Status: StatusCompleted}
	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", []byte(`{"secret":"raw gateway payload"}`), "sig"))
	require.NoError(t, payRepo.UpdateFields(out.OrderID, map[string]interface{}{
		"payment_method": models.PaymentMethodInfo{
			Type:    "card",
			Details: map[string]string{"last4": "4242"},
		},
	}))

	summaries, total, err := svc.GetPaymentHistory(context.Background(), 11, 1, 20, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, out.OrderID, summary.OrderID)
	assert.Equal(t, models.PaymentStatusCompleted, summary.Status)
	assert.Equal(t, models.ServiceFeaturedListing, summary.Service)
	assert.Equal(t, "card", summary.PaymentMethod)
}

func TestGetPaymentHistory_StatusFilter(t *testing.T) {
	svc, _, _, provider := newTestService(12)

	first, err := svc.CreatePayment(context.Background(), featuredInput(12))
	require.NoError(t, err)
	_, err = svc.CreatePayment(context.Background(), featuredInput(12))
	require.NoError(t, err)

	provider.webhookEvent = &WebhookEvent{OrderID: first.OrderID, Status: StatusCompleted}
	require.NoError(t, svc.HandleWebhook(context.Background(), "stripe", []byte(`{}`), "sig"))

	completed, total, err := svc.GetPaymentHistory(context.Background(), 12, 1, 20, models.PaymentStatusCompleted, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, completed, 1)
	assert.Equal(t, first.OrderID, completed[0].OrderID)
}

func TestExpiredPendingPaymentsPurged(t *testing.T) {
	svc, payRepo, _, _ := newTestService(13)

	out, err := svc.CreatePayment(context.Background(), featuredInput(13))
	require.NoError(t, err)

	purged, err := payRepo.DeleteExpiredPending(time.Now().Add(models.PendingPaymentTTL + time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, err = svc.VerifyPayment(context.Background(), out.OrderID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProviderRegistry_LastRegistrationWins(t *testing.T) {
	svc, _, _, _ := newTestService(1)

	replacement := &fakeProvider{name: "stripe", createErr: errors.New("replacement adapter")}
	svc.RegisterProvider("stripe", replacement)

	_, err := svc.CreatePayment(context.Background(), featuredInput(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replacement adapter")
}
