package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com"

// stripeSignatureTolerance bounds how old a signed webhook timestamp may be
// before the delivery is rejected as a possible replay.
const stripeSignatureTolerance = 5 * time.Minute

// StripeProvider integrates Stripe hosted checkout. The order ID rides in
// the session's client_reference_id and metadata so verify responses and
// webhooks can recover it.
type StripeProvider struct {
	SecretKey     string
	WebhookSecret string
	APIBaseURL    string

	HTTPClient *http.Client
}

// NewStripeProviderFromEnv builds the adapter from environment credentials.
func NewStripeProviderFromEnv() *StripeProvider {
	return &StripeProvider{
		SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		APIBaseURL:    strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (p *StripeProvider) Name() string {
	return models.PaymentProviderStripe
}

type stripeCheckoutSession struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	PaymentIntent     string `json:"payment_intent"`
	PaymentStatus     string `json:"payment_status"`
	Status            string `json:"status"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	ClientReferenceID string `json:"client_reference_id"`
	Metadata          struct {
		OrderID string `json:"order_id"`
	} `json:"metadata"`
	PaymentMethodTypes []string `json:"payment_method_types"`
}

// CreatePayment opens a Stripe Checkout session.
func (p *StripeProvider) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.OrderID)
	form.Set("metadata[order_id]", req.OrderID)
	form.Set("success_url", req.ReturnURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(toMinorUnits(req.Amount), 10))
	name := req.Description
	if name == "" {
		name = req.Metadata.Service
	}
	form.Set("line_items[0][price_data][product_data][name]", name)
	if email := strings.TrimSpace(req.Metadata.Customer.Email); email != "" {
		form.Set("customer_email", email)
	}

	var session stripeCheckoutSession
	if err := p.call(ctx, http.MethodPost, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}

	return &CreatePaymentResult{
		TransactionID: session.ID,
		Reference:     session.PaymentIntent,
		CheckoutURL:   session.URL,
		Status:        mapStripeStatus(session.PaymentStatus, session.Status),
	}, nil
}

// VerifyPayment asks Stripe for the session's current state.
func (p *StripeProvider) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	sessionID := strings.TrimSpace(req.TransactionID)
	if sessionID == "" {
		return nil, &ProviderError{Provider: p.Name(), Op: "verify", Message: "missing checkout session id"}
	}

	var session stripeCheckoutSession
	if err := p.call(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return nil, err
	}

	method := models.PaymentMethodInfo{}
	if len(session.PaymentMethodTypes) > 0 {
		method.Type = session.PaymentMethodTypes[0]
	}

	return &VerifyPaymentResult{
		Status:        mapStripeStatus(session.PaymentStatus, session.Status),
		TransactionID: session.ID,
		Reference:     session.PaymentIntent,
		Amount:        fromMinorUnits(session.AmountTotal),
		Currency:      strings.ToUpper(session.Currency),
		PaymentMethod: method,
	}, nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object stripeCheckoutSession `json:"object"`
	} `json:"data"`
}

// ProcessWebhook verifies the Stripe-Signature header and normalizes
// checkout session events. Event types that do not settle a payment
// return a nil event.
func (p *StripeProvider) ProcessWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookEvent, error) {
	_ = ctx
	if !p.verifySignature(rawBody, signature, time.Now()) {
		return nil, fmt.Errorf("%w: stripe webhook signature mismatch", ErrInvalidInput)
	}

	var event stripeEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed stripe webhook payload: %v", ErrInvalidInput, err)
	}

	session := event.Data.Object
	orderID := session.Metadata.OrderID
	if orderID == "" {
		orderID = session.ClientReferenceID
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if session.PaymentStatus != "paid" {
			// Session is complete but the payment is still processing.
			return nil, nil
		}
		return &WebhookEvent{
			OrderID:       orderID,
			Status:        StatusCompleted,
			TransactionID: session.ID,
			Reference:     session.PaymentIntent,
		}, nil
	case "checkout.session.expired":
		return &WebhookEvent{
			OrderID:       orderID,
			Status:        StatusFailed,
			TransactionID: session.ID,
			FailureReason: "checkout session expired",
		}, nil
	case "checkout.session.async_payment_failed":
		return &WebhookEvent{
			OrderID:       orderID,
			Status:        StatusFailed,
			TransactionID: session.ID,
			FailureReason: "asynchronous payment failed",
		}, nil
	default:
		return nil, nil
	}
}

type stripeRefund struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// RefundPayment refunds through /v1/refunds against the payment intent.
func (p *StripeProvider) RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	intent := strings.TrimSpace(req.Reference)
	if intent == "" {
		intent = strings.TrimSpace(req.TransactionID)
	}
	if intent == "" {
		return nil, &ProviderError{Provider: p.Name(), Op: "refund", Message: "missing payment intent reference"}
	}

	form := url.Values{}
	form.Set("payment_intent", intent)
	if req.Amount > 0 {
		form.Set("amount", strconv.FormatInt(toMinorUnits(req.Amount), 10))
	}
	if req.Reason != "" {
		form.Set("metadata[reason]", req.Reason)
	}

	var refund stripeRefund
	if err := p.call(ctx, http.MethodPost, "/v1/refunds", form, &refund); err != nil {
		return nil, err
	}

	return &RefundResult{
		RefundID: refund.ID,
		Amount:   fromMinorUnits(refund.Amount),
		Status:   refund.Status,
	}, nil
}

// verifySignature checks the t=...,v1=... scheme: HMAC-SHA256 over
// "<timestamp>.<payload>" with the webhook secret, constant-time compared,
// and the timestamp bounded by the replay tolerance.
func (p *StripeProvider) verifySignature(payload []byte, header string, now time.Time) bool {
	secret := strings.TrimSpace(p.WebhookSecret)
	if secret == "" || strings.TrimSpace(header) == "" {
		return false
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > stripeSignatureTolerance || age < -stripeSignatureTolerance {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			return true
		}
	}
	return false
}

// call performs a form-encoded Stripe API request.
func (p *StripeProvider) call(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, p.APIBaseURL+path, body)
	if err != nil {
		return &ProviderError{Provider: p.Name(), Op: path, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: p.Name(), Op: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProviderError{Provider: p.Name(), Op: path, StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProviderError{Provider: p.Name(), Op: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func mapStripeStatus(paymentStatus, sessionStatus string) string {
	switch {
	case paymentStatus == "paid":
		return StatusCompleted
	case sessionStatus == "expired":
		return StatusFailed
	default:
		return StatusPending
	}
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}
