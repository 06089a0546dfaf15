package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestStripeProvider(baseURL string) *StripeProvider {
	return &StripeProvider{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		APIBaseURL:    baseURL,
		HTTPClient:    &http.Client{Timeout: 5 * time.Second},
	}
}

func signStripePayload(secret string, payload []byte, ts time.Time) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeCreatePayment(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("metadata[order_id]") != "CM-1-abc" {
			t.Fatalf("order id missing from metadata, got %q", r.PostForm.Get("metadata[order_id]"))
		}
		if r.PostForm.Get("client_reference_id") != "CM-1-abc" {
			t.Fatalf("order id missing from client_reference_id")
		}
		if r.PostForm.Get("line_items[0][price_data][unit_amount]") != "4999" {
			t.Fatalf("amount not converted to minor units, got %q", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","url":"https://checkout.stripe.com/c/cs_test_1","payment_status":"unpaid","status":"open"}`)
	}))
	defer server.Close()

	p := newTestStripeProvider(server.URL)
	result, err := p.CreatePayment(context.Background(), CreatePaymentRequest{
		OrderID:  "CM-1-abc",
		Amount:   49.99,
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Fatalf("missing bearer auth, got %q", gotAuth)
	}
	if result.TransactionID != "cs_test_1" {
		t.Fatalf("transaction id = %q, want cs_test_1", result.TransactionID)
	}
	if result.Status != StatusPending {
		t.Fatalf("status = %q, want pending", result.Status)
	}
	if result.CheckoutURL == "" {
		t.Fatalf("expected checkout url")
	}
}

func TestStripeCreatePayment_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"card declined"}}`)
	}))
	defer server.Close()

	p := newTestStripeProvider(server.URL)
	_, err := p.CreatePayment(context.Background(), CreatePaymentRequest{OrderID: "CM-1-x", Amount: 1, Currency: "USD"})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status code = %d, want 402", pe.StatusCode)
	}
}

func TestStripeVerifyPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions/cs_test_2" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_2","payment_intent":"pi_9","payment_status":"paid","status":"complete","amount_total":4999,"currency":"usd","payment_method_types":["card"]}`)
	}))
	defer server.Close()

	p := newTestStripeProvider(server.URL)
	result, err := p.VerifyPayment(context.Background(), VerifyPaymentRequest{TransactionID: "cs_test_2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	if result.Amount != 49.99 {
		t.Fatalf("amount = %v, want 49.99", result.Amount)
	}
	if result.Currency != "USD" {
		t.Fatalf("currency = %q, want USD", result.Currency)
	}
	if result.PaymentMethod.Type != "card" {
		t.Fatalf("payment method = %q, want card", result.PaymentMethod.Type)
	}
}

func TestStripeVerifyPayment_MissingSessionID(t *testing.T) {
	p := newTestStripeProvider("http://unused")
	if _, err := p.VerifyPayment(context.Background(), VerifyPaymentRequest{}); err == nil {
		t.Fatalf("expected error for missing session id")
	}
}

func TestStripeVerifySignature(t *testing.T) {
	p := newTestStripeProvider("http://unused")
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	valid := signStripePayload(p.WebhookSecret, payload, now)
	if !p.verifySignature(payload, valid, now) {
		t.Fatalf("expected valid signature to pass")
	}
	if p.verifySignature(payload, signStripePayload("wrong-secret", payload, now), now) {
		t.Fatalf("expected signature from wrong secret to fail")
	}
	if p.verifySignature([]byte(`{"id":"evt_tampered"}`), valid, now) {
		t.Fatalf("expected tampered payload to fail")
	}
	stale := signStripePayload(p.WebhookSecret, payload, now.Add(-stripeSignatureTolerance-time.Minute))
	if p.verifySignature(payload, stale, now) {
		t.Fatalf("expected stale timestamp to fail the replay check")
	}
	if p.verifySignature(payload, "not-a-header", now) {
		t.Fatalf("expected malformed header to fail")
	}
}

func TestStripeProcessWebhook_CompletedSession(t *testing.T) {
	p := newTestStripeProvider("http://unused")
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_intent":"pi_1","payment_status":"paid","metadata":{"order_id":"CM-5-xyz"}}}}`)
	sig := signStripePayload(p.WebhookSecret, payload, time.Now())

	event, err := p.ProcessWebhook(context.Background(), payload, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil {
		t.Fatalf("expected an event")
	}
	if event.OrderID != "CM-5-xyz" {
		t.Fatalf("order id = %q, want CM-5-xyz", event.OrderID)
	}
	if event.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", event.Status)
	}
}

func TestStripeProcessWebhook_UnpaidSessionIgnored(t *testing.T) {
	p := newTestStripeProvider("http://unused")
	payload := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"id":"cs_2","payment_status":"unpaid","metadata":{"order_id":"CM-6-a"}}}}`)
	sig := signStripePayload(p.WebhookSecret, payload, time.Now())

	event, err := p.ProcessWebhook(context.Background(), payload, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event != nil {
		t.Fatalf("expected nil event for an unpaid session, got %+v", event)
	}
}

func TestStripeProcessWebhook_ExpiredSession(t *testing.T) {
	p := newTestStripeProvider("http://unused")
	payload := []byte(`{"id":"evt_3","type":"checkout.session.expired","data":{"object":{"id":"cs_3","client_reference_id":"CM-7-b"}}}`)
	sig := signStripePayload(p.WebhookSecret, payload, time.Now())

	event, err := p.ProcessWebhook(context.Background(), payload, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil || event.Status != StatusFailed {
		t.Fatalf("expected failed event, got %+v", event)
	}
	if event.OrderID != "CM-7-b" {
		t.Fatalf("expected order id from client_reference_id fallback, got %q", event.OrderID)
	}
}

func TestStripeProcessWebhook_BadSignature(t *testing.T) {
	p := newTestStripeProvider("http://unused")
	payload := []byte(`{"id":"evt_4","type":"checkout.session.completed"}`)

	if _, err := p.ProcessWebhook(context.Background(), payload, "t=1,v1=deadbeef"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMapStripeStatus(t *testing.T) {
	tests := []struct {
		paymentStatus string
		sessionStatus string
		want          string
	}{
		{paymentStatus: "paid", sessionStatus: "complete", want: StatusCompleted},
		{paymentStatus: "unpaid", sessionStatus: "expired", want: StatusFailed},
		{paymentStatus: "unpaid", sessionStatus: "open", want: StatusPending},
		{paymentStatus: "no_payment_required", sessionStatus: "complete", want: StatusPending},
	}

	for _, tt := range tests {
		if got := mapStripeStatus(tt.paymentStatus, tt.sessionStatus); got != tt.want {
			t.Fatalf("mapStripeStatus(%q, %q) = %q, want %q", tt.paymentStatus, tt.sessionStatus, got, tt.want)
		}
	}
}

func TestMinorUnitConversion(t *testing.T) {
	if got := toMinorUnits(49.99); got != 4999 {
		t.Fatalf("toMinorUnits(49.99) = %d, want 4999", got)
	}
	if got := toMinorUnits(0.1 + 0.2); got != 30 {
		t.Fatalf("toMinorUnits(0.3) = %d, want 30", got)
	}
	if got := fromMinorUnits(4999); got != 49.99 {
		t.Fatalf("fromMinorUnits(4999) = %v, want 49.99", got)
	}
}
