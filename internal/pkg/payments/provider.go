package payments

import (
	"context"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
)

// Canonical statuses every adapter maps its gateway vocabulary into.
const (
	StatusPending   = models.PaymentStatusPending
	StatusCompleted = models.PaymentStatusCompleted
	StatusFailed    = models.PaymentStatusFailed
)

// CreatePaymentRequest carries everything an adapter needs to open a hosted
// checkout session. OrderID must round-trip through the gateway so verify
// responses and webhooks can recover it.
type CreatePaymentRequest struct {
	OrderID     string
	Amount      float64
	Currency    string
	Description string
	Metadata    models.PaymentMetadata
	ReturnURL   string
	CancelURL   string
}

// CreatePaymentResult is the adapter's view of a freshly created session.
type CreatePaymentResult struct {
	TransactionID string
	Reference     string
	CheckoutURL   string
	Status        string
}

// VerifyPaymentRequest identifies a payment at the gateway.
type VerifyPaymentRequest struct {
	TransactionID string
	Reference     string
}

// VerifyPaymentResult is the gateway's current view of a payment, mapped
// into canonical status vocabulary.
type VerifyPaymentResult struct {
	Status        string
	TransactionID string
	Reference     string
	Amount        float64
	Currency      string
	PaymentMethod models.PaymentMethodInfo
}

// WebhookEvent is the normalized outcome of a webhook delivery. A nil event
// from ProcessWebhook means the event type is irrelevant to payment
// completion and the caller must treat it as a no-op.
type WebhookEvent struct {
	OrderID       string
	Status        string
	TransactionID string
	Reference     string
	FailureReason string
}

// RefundRequest asks the gateway to return funds. A zero Amount means a
// full refund.
type RefundRequest struct {
	TransactionID string
	Reference     string
	Amount        float64
	Reason        string
}

// RefundResult is the gateway's acknowledgment of a refund.
type RefundResult struct {
	RefundID string
	Amount   float64
	Status   string
}

// Provider is the capability contract every gateway integration implements.
// Adapters own their credentials and the mapping between gateway status
// vocabulary and the canonical set; they never touch payment records.
type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error)
	VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResult, error)
	// ProcessWebhook verifies payload authenticity where the gateway signs
	// deliveries and returns nil for event types that do not affect payment
	// state. The rawBody must be the unparsed request body; re-serialized
	// payloads break signature checks.
	ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookEvent, error)
	RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error)
}
