package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/app/repository"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/mail"
)

// Service orchestrates payments across registered providers. It owns the
// provider registry and is the only writer of payment records; adapters
// return data and never touch storage.
type Service struct {
	providers       map[string]Provider
	defaultProvider string
	payments        repository.PaymentRepository
	companies       repository.CompanyRepository
	benefits        *BenefitApplicator
}

// NewService creates a payment service from injected repositories. The
// registry starts empty; bootstrap registers whichever providers have
// credentials configured and must not register after serving starts.
func NewService(payments repository.PaymentRepository, companies repository.CompanyRepository, defaultProvider string) *Service {
	return &Service{
		providers:       make(map[string]Provider),
		defaultProvider: strings.ToLower(strings.TrimSpace(defaultProvider)),
		payments:        payments,
		companies:       companies,
		benefits:        NewBenefitApplicator(companies),
	}
}

// RegisterProvider associates a key with a provider adapter. The last
// registration for a key wins.
func (s *Service) RegisterProvider(name string, p Provider) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return
	}
	s.providers[key] = p
}

// Providers returns the registered provider keys, for diagnostics.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

func (s *Service) provider(name string) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = s.defaultProvider
	}
	p, ok := s.providers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, key)
	}
	return p, nil
}

// CreatePaymentInput is the orchestration boundary for new payments.
type CreatePaymentInput struct {
	CompanyID   uint    `validate:"required"`
	UserID      *uint   `validate:"-"`
	Amount      float64 `validate:"required,gt=0"`
	Currency    string  `validate:"omitempty,len=3"`
	Provider    string  `validate:"-"`
	Description string  `validate:"max=500"`
	Metadata    models.PaymentMetadata
	ReturnURL   string `validate:"omitempty,url"`
	CancelURL   string `validate:"omitempty,url"`
}

// CreatePaymentOutput combines the stored record's caller-safe fields with
// the adapter's checkout session.
type CreatePaymentOutput struct {
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Provider      string    `json:"provider"`
	CheckoutURL   string    `json:"checkout_url"`
	TransactionID string    `json:"transaction_id,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// GenerateOrderID builds a caller-visible correlation key. The timestamp
// keeps keys sortable; the UUID fragment makes collisions implausible and
// the unique index on order_id makes them impossible to persist.
func GenerateOrderID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("CM-%d-%s", time.Now().UnixMilli(), suffix)
}

// CreatePayment persists a pending record and opens a hosted checkout
// session with the resolved provider. A provider failure after persistence
// leaves the pending record for the expiry sweep and propagates the error.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentOutput, error) {
	v := validator.New()
	if err := v.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := v.Struct(in.Metadata); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := s.companies.GetByID(in.CompanyID); err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("%w: company %d", ErrNotFound, in.CompanyID)
		}
		return nil, fmt.Errorf("load company %d: %w", in.CompanyID, err)
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	providerName := strings.ToLower(strings.TrimSpace(in.Provider))
	if providerName == "" {
		providerName = s.defaultProvider
	}

	now := time.Now()
	record := &models.Payment{
		OrderID:     GenerateOrderID(),
		CompanyID:   in.CompanyID,
		UserID:      in.UserID,
		Amount:      in.Amount,
		Currency:    currency,
		Status:      models.PaymentStatusPending,
		Provider:    providerName,
		Description: in.Description,
		Metadata:    in.Metadata,
		ExpiresAt:   now.Add(models.PendingPaymentTTL),
	}
	if err := s.payments.Create(record); err != nil {
		return nil, fmt.Errorf("persist payment record: %w", err)
	}

	adapter, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	result, err := adapter.CreatePayment(ctx, CreatePaymentRequest{
		OrderID:     record.OrderID,
		Amount:      record.Amount,
		Currency:    record.Currency,
		Description: record.Description,
		Metadata:    record.Metadata,
		ReturnURL:   in.ReturnURL,
		CancelURL:   in.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment %s: %w", record.OrderID, err)
	}

	status := result.Status
	if status == "" {
		status = models.PaymentStatusPending
	}
	if err := s.payments.UpdateFields(record.OrderID, map[string]interface{}{
		"provider_transaction_id": result.TransactionID,
		"provider_reference":      result.Reference,
		"status":                  status,
	}); err != nil {
		return nil, fmt.Errorf("update payment %s after provider create: %w", record.OrderID, err)
	}

	return &CreatePaymentOutput{
		OrderID:       record.OrderID,
		Status:        status,
		Amount:        record.Amount,
		Currency:      record.Currency,
		Provider:      providerName,
		CheckoutURL:   result.CheckoutURL,
		TransactionID: result.TransactionID,
		ExpiresAt:     record.ExpiresAt,
	}, nil
}

// VerifyPaymentOutput is the caller-facing result of pull reconciliation.
type VerifyPaymentOutput struct {
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Provider    string     `json:"provider"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// VerifyPayment reconciles a record against the gateway, which is the
// source of truth; locally cached status is never trusted. Used when a
// webhook may be delayed or absent, e.g. on a client redirect return.
// Re-verifying a terminal record is an idempotent no-op.
func (s *Service) VerifyPayment(ctx context.Context, orderID, providerOverride string) (*VerifyPaymentOutput, error) {
	record, err := s.payments.GetByOrderID(orderID)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("%w: payment %s", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("load payment %s: %w", orderID, err)
	}

	providerName := record.Provider
	if strings.TrimSpace(providerOverride) != "" {
		providerName = providerOverride
	}
	adapter, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	result, err := adapter.VerifyPayment(ctx, VerifyPaymentRequest{
		TransactionID: record.ProviderTransactionID,
		Reference:     record.ProviderReference,
	})
	if err != nil {
		return nil, fmt.Errorf("verify payment %s: %w", orderID, err)
	}

	switch result.Status {
	case StatusCompleted:
		if err := s.settleCompleted(ctx, record, map[string]interface{}{
			"payment_method": result.PaymentMethod,
		}); err != nil {
			return nil, err
		}
	case StatusFailed:
		if !record.IsTerminal() {
			if err := s.payments.UpdateFields(record.OrderID, map[string]interface{}{
				"status":        models.PaymentStatusFailed,
				"failed_reason": "provider reported failure on verification",
			}); err != nil {
				return nil, fmt.Errorf("mark payment %s failed: %w", orderID, err)
			}
		}
	}

	// Reload so the caller sees the reconciled record, including the
	// original completedAt on repeat verification.
	record, err = s.payments.GetByOrderID(orderID)
	if err != nil {
		return nil, fmt.Errorf("reload payment %s: %w", orderID, err)
	}

	return &VerifyPaymentOutput{
		OrderID:     record.OrderID,
		Status:      record.Status,
		Amount:      record.Amount,
		Currency:    record.Currency,
		Provider:    record.Provider,
		CompletedAt: record.CompletedAt,
	}, nil
}

// HandleWebhook ingests a provider notification. Deliveries are unordered
// and at-least-once; the guarded completion transition makes duplicate
// "completed" deliveries harmless. Unknown order IDs are ignored because
// gateways send test events and events for records the expiry sweep may
// already have purged.
func (s *Service) HandleWebhook(ctx context.Context, providerName string, rawBody []byte, signature string) error {
	adapter, err := s.provider(providerName)
	if err != nil {
		return err
	}

	event, err := adapter.ProcessWebhook(ctx, rawBody, signature)
	if err != nil {
		return fmt.Errorf("process %s webhook: %w", providerName, err)
	}
	if event == nil {
		// Event type irrelevant to payment completion.
		return nil
	}

	record, err := s.payments.GetByOrderID(event.OrderID)
	if err != nil {
		if isRecordNotFound(err) {
			log.Printf("webhook for unknown order %s from %s ignored", event.OrderID, providerName)
			return nil
		}
		return fmt.Errorf("load payment %s: %w", event.OrderID, err)
	}

	now := time.Now()
	webhookFields := map[string]interface{}{
		"webhook": models.WebhookInfo{
			Received:   true,
			Data:       string(rawBody),
			ReceivedAt: &now,
		},
	}
	if event.TransactionID != "" {
		webhookFields["provider_transaction_id"] = event.TransactionID
	}
	if event.Reference != "" {
		webhookFields["provider_reference"] = event.Reference
	}

	switch event.Status {
	case StatusCompleted:
		return s.settleCompleted(ctx, record, webhookFields)
	case StatusFailed:
		if !record.IsTerminal() {
			webhookFields["status"] = models.PaymentStatusFailed
			webhookFields["failed_reason"] = event.FailureReason
		}
		if err := s.payments.UpdateFields(record.OrderID, webhookFields); err != nil {
			return fmt.Errorf("record failed webhook for %s: %w", record.OrderID, err)
		}
		return nil
	default:
		if err := s.payments.UpdateFields(record.OrderID, webhookFields); err != nil {
			return fmt.Errorf("record webhook for %s: %w", record.OrderID, err)
		}
		return nil
	}
}

// settleCompleted performs the guarded pending → completed transition and
// its side effects. Benefits are applied only when this call performed the
// transition, which is what makes duplicate webhook and verify deliveries
// idempotent. A benefit or notification failure after genuine completion is
// logged and never reverts the record: the completed payment is the source
// of truth event.
func (s *Service) settleCompleted(ctx context.Context, record *models.Payment, extraFields map[string]interface{}) error {
	transitioned, err := s.payments.MarkCompleted(record.OrderID, time.Now())
	if err != nil {
		return fmt.Errorf("mark payment %s completed: %w", record.OrderID, err)
	}

	if len(extraFields) > 0 {
		if err := s.payments.UpdateFields(record.OrderID, extraFields); err != nil {
			return fmt.Errorf("update payment %s on completion: %w", record.OrderID, err)
		}
	}

	if !transitioned {
		return nil
	}

	if err := s.benefits.Apply(ctx, record.CompanyID, record.Metadata); err != nil {
		log.Printf("benefit application failed for order %s (company %d): %v", record.OrderID, record.CompanyID, err)
	}

	s.sendReceipt(record)
	return nil
}

// sendReceipt emails a payment confirmation, best-effort.
func (s *Service) sendReceipt(record *models.Payment) {
	to := strings.TrimSpace(record.Metadata.Customer.Email)
	if to == "" {
		return
	}
	subject := "Payment received - Construction Market"
	body := fmt.Sprintf(
		"<p>We received your payment of %.2f %s for order <strong>%s</strong>.</p><p>Service: %s</p>",
		record.Amount, record.Currency, record.OrderID, record.Metadata.Service,
	)
	if err := mail.SendMail(to, subject, body); err != nil {
		log.Printf("receipt mail for order %s failed: %v", record.OrderID, err)
	}
}

// PaymentSummary is the history projection. Webhook raw payloads and
// payment-method details are stripped: bulky and sensitive.
type PaymentSummary struct {
	OrderID       string     `json:"order_id"`
	CompanyID     uint       `json:"company_id"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	Provider      string     `json:"provider"`
	Service       string     `json:"service"`
	Description   string     `json:"description,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailedReason  string     `json:"failed_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// GetPaymentHistory returns a newest-first page of a company's payments.
func (s *Service) GetPaymentHistory(ctx context.Context, companyID uint, page, limit int, status, provider string) ([]PaymentSummary, int64, error) {
	_ = ctx
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	filter := repository.PaymentFilter{
		Status:   strings.TrimSpace(status),
		Provider: strings.ToLower(strings.TrimSpace(provider)),
	}

	records, err := s.payments.ListByCompany(companyID, (page-1)*limit, limit, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments for company %d: %w", companyID, err)
	}
	total, err := s.payments.CountByCompany(companyID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments for company %d: %w", companyID, err)
	}

	summaries := make([]PaymentSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, PaymentSummary{
			OrderID:       rec.OrderID,
			CompanyID:     rec.CompanyID,
			Amount:        rec.Amount,
			Currency:      rec.Currency,
			Status:        rec.Status,
			Provider:      rec.Provider,
			Service:       rec.Metadata.Service,
			Description:   rec.Description,
			PaymentMethod: rec.PaymentMethod.Type,
			CompletedAt:   rec.CompletedAt,
			FailedReason:  rec.FailedReason,
			CreatedAt:     rec.CreatedAt,
		})
	}
	return summaries, total, nil
}

// RefundOutput is the caller-facing refund acknowledgment.
type RefundOutput struct {
	OrderID  string  `json:"order_id"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	RefundID string  `json:"refund_id,omitempty"`
}

// RefundPayment refunds a completed payment. Adapter failures, including
// providers without refund support, propagate without mutating the record.
func (s *Service) RefundPayment(ctx context.Context, orderID string, amount float64, reason string) (*RefundOutput, error) {
	record, err := s.payments.GetByOrderID(orderID)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, fmt.Errorf("%w: payment %s", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("load payment %s: %w", orderID, err)
	}

	if record.Status != models.PaymentStatusCompleted {
		return nil, fmt.Errorf("%w: refund requires a completed payment, status is %s", ErrNotEligible, record.Status)
	}
	if amount < 0 || amount > record.Amount {
		return nil, fmt.Errorf("%w: refund amount %.2f out of range", ErrInvalidInput, amount)
	}

	adapter, err := s.provider(record.Provider)
	if err != nil {
		return nil, err
	}

	result, err := adapter.RefundPayment(ctx, RefundRequest{
		TransactionID: record.ProviderTransactionID,
		Reference:     record.ProviderReference,
		Amount:        amount,
		Reason:        reason,
	})
	if err != nil {
		return nil, fmt.Errorf("refund payment %s: %w", orderID, err)
	}

	refunded := result.Amount
	if refunded == 0 {
		refunded = amount
	}
	if refunded == 0 {
		refunded = record.Amount
	}

	now := time.Now()
	if err := s.payments.UpdateFields(record.OrderID, map[string]interface{}{
		"status": models.PaymentStatusRefunded,
		"refund": models.RefundInfo{
			Amount:           refunded,
			Reason:           reason,
			RefundedAt:       &now,
			ProviderRefundID: result.RefundID,
		},
	}); err != nil {
		return nil, fmt.Errorf("record refund for %s: %w", orderID, err)
	}

	return &RefundOutput{
		OrderID:  record.OrderID,
		Status:   models.PaymentStatusRefunded,
		Amount:   refunded,
		RefundID: result.RefundID,
	}, nil
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
