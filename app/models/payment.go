package models

import (
	"time"
)

// Canonical payment statuses. Transitions are monotonic: a record never
// returns to pending once it has left it.
const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Provider keys used across payment-related models.
const (
	PaymentProviderStripe      = "stripe"
	PaymentProviderFlutterwave = "flutterwave"
	PaymentProviderSwychr      = "swychr"
)

// Purchasable services and their default benefit durations in days.
const (
	ServiceFeaturedListing     = "featured_listing"
	ServicePremiumSubscription = "premium_subscription"
	ServiceVerification        = "verification"

	DefaultFeaturedDays = 30
	DefaultPremiumDays  = 365
)

// PendingPaymentTTL is how long a pending payment stays verifiable before
// the expiry sweep may delete it.
const PendingPaymentTTL = 30 * time.Minute

// CustomerInfo is the contact data passed to the payment provider for
// hosted checkout prefill.
type CustomerInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// PaymentMetadata describes what a payment buys. Service drives benefit
// application after completion.
type PaymentMetadata struct {
	Service      string       `json:"service" validate:"required,oneof=featured_listing premium_subscription verification"`
	DurationDays int          `json:"duration_days,omitempty" validate:"omitempty,min=1,max=3650"`
	Features     []string     `json:"features,omitempty"`
	Customer     CustomerInfo `json:"customer,omitempty"`
}

// PaymentMethodInfo is the provider-reported payment instrument, stored for
// display only. Details are opaque provider data.
type PaymentMethodInfo struct {
	Type    string            `json:"type,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WebhookInfo records the last webhook delivery seen for a payment.
type WebhookInfo struct {
	Received   bool       `json:"received"`
	Data       string     `json:"data,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// RefundInfo is populated only when a completed payment is refunded.
type RefundInfo struct {
	Amount           float64    `json:"amount,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
	ProviderRefundID string     `json:"provider_refund_id,omitempty"`
}

// Payment is one payment attempt against a provider. OrderID is the
// caller-visible correlation key and round-trips through the gateway so
// verify responses and webhooks can be matched back to the record.
type Payment struct {
	ID                    uint              `gorm:"primaryKey" json:"id"`
	OrderID               string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_order_id" json:"order_id"`
	CompanyID             uint              `gorm:"not null;index:idx_payments_company_status,priority:1" json:"company_id"`
	UserID                *uint             `gorm:"index" json:"user_id,omitempty"`
	Amount                float64           `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency              string            `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	Status                string            `gorm:"type:varchar(20);not null;default:'pending';index:idx_payments_company_status,priority:2;index:idx_payments_provider_status,priority:2" json:"status"`
	Provider              string            `gorm:"type:varchar(20);not null;index:idx_payments_provider_status,priority:1" json:"provider"`
	ProviderTransactionID string            `gorm:"type:varchar(191);default:null" json:"provider_transaction_id,omitempty"`
	ProviderReference     string            `gorm:"type:varchar(191);default:null" json:"provider_reference,omitempty"`
	Description           string            `gorm:"type:varchar(500)" json:"description,omitempty"`
	Metadata              PaymentMetadata   `gorm:"serializer:json;type:json" json:"metadata"`
	PaymentMethod         PaymentMethodInfo `gorm:"serializer:json;type:json" json:"payment_method,omitempty"`
	Webhook               WebhookInfo       `gorm:"serializer:json;type:json" json:"webhook,omitempty"`
	Refund                RefundInfo        `gorm:"serializer:json;type:json" json:"refund,omitempty"`
	ExpiresAt             time.Time         `gorm:"type:timestamp;not null;index" json:"expires_at"`
	CompletedAt           *time.Time        `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	FailedReason          string            `gorm:"type:varchar(500)" json:"failed_reason,omitempty"`
	CreatedAt             time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the payment can no longer change status except
// for a completed → refunded transition.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsKnownProvider reports whether the given key names a built-in provider.
func IsKnownProvider(name string) bool {
	switch name {
	case PaymentProviderStripe, PaymentProviderFlutterwave, PaymentProviderSwychr:
		return true
	}
	return false
}
