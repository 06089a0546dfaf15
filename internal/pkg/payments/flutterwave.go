package payments

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/env"
)

const defaultFlutterwaveAPIBaseURL = "https://api.flutterwave.com/v3"

// FlutterwaveProvider integrates Flutterwave's standard checkout. The order
// ID is the tx_ref, so it comes back verbatim in verify responses and
// webhook payloads.
type FlutterwaveProvider struct {
	SecretKey  string
	SecretHash string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewFlutterwaveProviderFromEnv builds the adapter from environment credentials.
func NewFlutterwaveProviderFromEnv() *FlutterwaveProvider {
	return &FlutterwaveProvider{
		SecretKey:  strings.TrimSpace(env.GetEnv("FLUTTERWAVE_SECRET_KEY", "")),
		SecretHash: strings.TrimSpace(env.GetEnv("FLUTTERWAVE_SECRET_HASH", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("FLUTTERWAVE_API_BASE_URL", defaultFlutterwaveAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (p *FlutterwaveProvider) Name() string {
	return models.PaymentProviderFlutterwave
}

type flutterwaveEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type flutterwaveTransaction struct {
	ID          int64   `json:"id"`
	TxRef       string  `json:"tx_ref"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	PaymentType string  `json:"payment_type"`
	Narration   string  `json:"narration"`
}

// CreatePayment opens a hosted payment page via /payments.
func (p *FlutterwaveProvider) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	payload := map[string]interface{}{
		"tx_ref":       req.OrderID,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"redirect_url": req.ReturnURL,
		"customer": map[string]string{
			"email":       req.Metadata.Customer.Email,
			"name":        req.Metadata.Customer.Name,
			"phonenumber": req.Metadata.Customer.Phone,
		},
		"customizations": map[string]string{
			"title":       "Construction Market",
			"description": req.Description,
		},
		"meta": map[string]string{
			"order_id": req.OrderID,
		},
	}

	envelope, err := p.call(ctx, http.MethodPost, "/payments", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "/payments", Err: fmt.Errorf("decode link: %w", err)}
	}

	// Flutterwave assigns its numeric transaction id only once the charge
	// happens; until then the tx_ref is the handle.
	return &CreatePaymentResult{
		Reference:   req.OrderID,
		CheckoutURL: data.Link,
		Status:      StatusPending,
	}, nil
}

// VerifyPayment resolves the transaction by tx_ref at the gateway.
func (p *FlutterwaveProvider) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		return nil, &ProviderError{Provider: p.Name(), Op: "verify", Message: "missing tx_ref"}
	}

	envelope, err := p.call(ctx, http.MethodGet, "/transactions/verify_by_reference?tx_ref="+url.QueryEscape(ref), nil)
	if err != nil {
		return nil, err
	}

	var tx flutterwaveTransaction
	if err := json.Unmarshal(envelope.Data, &tx); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "verify", Err: fmt.Errorf("decode transaction: %w", err)}
	}

	return &VerifyPaymentResult{
		Status:        mapFlutterwaveStatus(tx.Status),
		TransactionID: strconv.FormatInt(tx.ID, 10),
		Reference:     tx.TxRef,
		Amount:        tx.Amount,
		Currency:      strings.ToUpper(tx.Currency),
		PaymentMethod: models.PaymentMethodInfo{Type: tx.PaymentType},
	}, nil
}

type flutterwaveWebhookPayload struct {
	Event string                 `json:"event"`
	Data  flutterwaveTransaction `json:"data"`
}

// ProcessWebhook authenticates the delivery via the verif-hash header,
// which Flutterwave sets to the account's configured secret hash.
func (p *FlutterwaveProvider) ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookEvent, error) {
	_ = ctx
	secret := strings.TrimSpace(p.SecretHash)
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(strings.TrimSpace(signature))) != 1 {
		return nil, fmt.Errorf("%w: flutterwave verif-hash mismatch", ErrInvalidInput)
	}

	var payload flutterwaveWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed flutterwave webhook payload: %v", ErrInvalidInput, err)
	}

	if payload.Event != "charge.completed" {
		return nil, nil
	}

	status := mapFlutterwaveStatus(payload.Data.Status)
	event := &WebhookEvent{
		OrderID:       payload.Data.TxRef,
		Status:        status,
		TransactionID: strconv.FormatInt(payload.Data.ID, 10),
		Reference:     payload.Data.TxRef,
	}
	if status == StatusFailed {
		event.FailureReason = "charge failed"
		if payload.Data.Narration != "" {
			event.FailureReason = payload.Data.Narration
		}
	}
	return event, nil
}

// RefundPayment refunds via /transactions/{id}/refund using the numeric
// transaction id assigned at charge time.
func (p *FlutterwaveProvider) RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		return nil, &ProviderError{Provider: p.Name(), Op: "refund", Message: "missing transaction id"}
	}

	payload := map[string]interface{}{}
	if req.Amount > 0 {
		payload["amount"] = req.Amount
	}

	envelope, err := p.call(ctx, http.MethodPost, "/transactions/"+url.PathEscape(txID)+"/refund", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		ID             int64   `json:"id"`
		AmountRefunded float64 `json:"amount_refunded"`
		Status         string  `json:"status"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "refund", Err: fmt.Errorf("decode refund: %w", err)}
	}

	return &RefundResult{
		RefundID: strconv.FormatInt(data.ID, 10),
		Amount:   data.AmountRefunded,
		Status:   data.Status,
	}, nil
}

// call performs a JSON Flutterwave API request and rejects non-success
// envelope statuses.
func (p *FlutterwaveProvider) call(ctx context.Context, method, path string, payload interface{}) (*flutterwaveEnvelope, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &ProviderError{Provider: p.Name(), Op: path, Err: err}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.APIBaseURL+path, body)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Provider: p.Name(), Op: path, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var envelope flutterwaveEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: path, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if envelope.Status != "success" {
		return nil, &ProviderError{Provider: p.Name(), Op: path, StatusCode: resp.StatusCode, Message: envelope.Message}
	}
	return &envelope, nil
}

func mapFlutterwaveStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "successful":
		return StatusCompleted
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}
