package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/env"
)

const defaultSwychrAPIBaseURL = "https://api.accountpe.com/api/payin"

// SwychrProvider integrates the SwyChr payment-link gateway, a bearer-token
// API whose tokens are obtained by credential exchange. The order ID is the
// gateway transaction_id, so status responses and webhooks carry it back.
type SwychrProvider struct {
	APIBaseURL string

	auth       *swychrAuth
	httpClient *http.Client
}

// NewSwychrProviderFromEnv builds the adapter from environment credentials.
func NewSwychrProviderFromEnv() *SwychrProvider {
	base := strings.TrimRight(env.GetEnv("SWYCHR_API_BASE_URL", defaultSwychrAPIBaseURL), "/")
	client := &http.Client{
		Timeout: 15 * time.Second,
	}
	return &SwychrProvider{
		APIBaseURL: base,
		auth: newSwychrAuth(
			strings.TrimSpace(env.GetEnv("SWYCHR_EMAIL", "")),
			strings.TrimSpace(env.GetEnv("SWYCHR_PASSWORD", "")),
			base+"/admin/auth",
			client,
		),
		httpClient: client,
	}
}

func (p *SwychrProvider) Name() string {
	return models.PaymentProviderSwychr
}

// CreatePayment creates a hosted payment link.
func (p *SwychrProvider) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"transaction_id":      req.OrderID,
		"amount":              req.Amount,
		"currency":            req.Currency,
		"description":         req.Description,
		"name":                req.Metadata.Customer.Name,
		"email":               req.Metadata.Customer.Email,
		"mobile":              req.Metadata.Customer.Phone,
		"pass_digital_charge": true,
	})
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "create_payment_links", Err: err}
	}

	status, body, err := p.auth.doAuthenticated(ctx, http.MethodPost, p.APIBaseURL+"/create_payment_links", payload)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "create_payment_links", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &ProviderError{Provider: p.Name(), Op: "create_payment_links", StatusCode: status, Message: string(body)}
	}

	var out struct {
		Data struct {
			PaymentURL string `json:"payment_url"`
			LinkID     string `json:"link_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "create_payment_links", Err: fmt.Errorf("decode response: %w", err)}
	}

	return &CreatePaymentResult{
		TransactionID: out.Data.LinkID,
		Reference:     req.OrderID,
		CheckoutURL:   out.Data.PaymentURL,
		Status:        StatusPending,
	}, nil
}

// VerifyPayment queries the payment link status by transaction id.
func (p *SwychrProvider) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		return nil, &ProviderError{Provider: p.Name(), Op: "payment_link_status", Message: "missing transaction id"}
	}

	payload, err := json.Marshal(map[string]string{"transaction_id": ref})
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "payment_link_status", Err: err}
	}

	status, body, err := p.auth.doAuthenticated(ctx, http.MethodPost, p.APIBaseURL+"/payment_link_status", payload)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "payment_link_status", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &ProviderError{Provider: p.Name(), Op: "payment_link_status", StatusCode: status, Message: string(body)}
	}

	var out struct {
		Data struct {
			TransactionID string  `json:"transaction_id"`
			Status        string  `json:"status"`
			Amount        float64 `json:"amount"`
			Currency      string  `json:"currency"`
			PaymentMethod string  `json:"payment_method"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "payment_link_status", Err: fmt.Errorf("decode response: %w", err)}
	}

	return &VerifyPaymentResult{
		Status:        mapSwychrStatus(out.Data.Status),
		Reference:     out.Data.TransactionID,
		Amount:        out.Data.Amount,
		Currency:      strings.ToUpper(out.Data.Currency),
		PaymentMethod: models.PaymentMethodInfo{Type: out.Data.PaymentMethod},
	}, nil
}

type swychrWebhookPayload struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
}

// ProcessWebhook ingests SwyChr notifications. The gateway provides no
// signing mechanism, so deliveries are lower trust: they are logged as
// unsigned and the orchestrator's verify path remains the source of truth.
func (p *SwychrProvider) ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookEvent, error) {
	_ = ctx
	_ = signature
	log.Printf("swychr webhook accepted without signature verification (gateway does not sign)")

	var payload swychrWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed swychr webhook payload: %v", ErrInvalidInput, err)
	}
	if payload.TransactionID == "" {
		return nil, nil
	}

	event := &WebhookEvent{
		OrderID:   payload.TransactionID,
		Status:    mapSwychrStatus(payload.Status),
		Reference: payload.TransactionID,
	}
	if event.Status == StatusFailed {
		event.FailureReason = payload.Reason
		if event.FailureReason == "" {
			event.FailureReason = "payment failed"
		}
	}
	return event, nil
}

// RefundPayment is not offered by the SwyChr API.
func (p *SwychrProvider) RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	_ = ctx
	_ = req
	return nil, fmt.Errorf("%w: swychr does not support refunds", ErrNotSupported)
}

func mapSwychrStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "success", "successful":
		return StatusCompleted
	case "failed", "cancelled", "expired":
		return StatusFailed
	default:
		return StatusPending
	}
}
