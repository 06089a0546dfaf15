package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/payments"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/usercontext"
)

// providerTimeout bounds outbound gateway round trips triggered by a request.
const providerTimeout = 30 * time.Second

var paymentService *payments.Service

// SetPaymentService wires the orchestrator built at bootstrap into the
// payment handlers.
func SetPaymentService(s *payments.Service) {
	paymentService = s
}

type createPaymentRequest struct {
	CompanyID   uint              `json:"company_id"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Provider    string            `json:"provider"`
	Description string            `json:"description"`
	Service     string            `json:"service"`
	Duration    int               `json:"duration_days"`
	Features    []string          `json:"features"`
	Customer    map[string]string `json:"customer"`
	ReturnURL   string            `json:"return_url"`
	CancelURL   string            `json:"cancel_url"`
}

// HandleCreatePayment opens a checkout session for a company benefit purchase.
func HandleCreatePayment(c *fiber.Ctx) error {
	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid JSON body",
		})
	}

	in := payments.CreatePaymentInput{
		CompanyID:   req.CompanyID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Provider:    req.Provider,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		CancelURL:   req.CancelURL,
	}
	in.Metadata.Service = req.Service
	in.Metadata.DurationDays = req.Duration
	in.Metadata.Features = req.Features
	in.Metadata.Customer.Name = req.Customer["name"]
	in.Metadata.Customer.Email = req.Customer["email"]
	in.Metadata.Customer.Phone = req.Customer["phone"]

	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn {
		uid := userCtx.UserID
		in.UserID = &uid
	}

	ctx, cancel := context.WithTimeout(c.Context(), providerTimeout)
	defer cancel()

	out, err := paymentService.CreatePayment(ctx, in)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// HandleVerifyPayment reconciles a payment against its gateway, typically
// on the client's redirect back from hosted checkout.
func HandleVerifyPayment(c *fiber.Ctx) error {
	orderID := c.Params("orderID")

	ctx, cancel := context.WithTimeout(c.Context(), providerTimeout)
	defer cancel()

	out, err := paymentService.VerifyPayment(ctx, orderID, c.Query("provider"))
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	return c.JSON(out)
}

// HandlePaymentWebhook ingests gateway notifications. The raw body is
// handed to the adapter untouched; re-serializing it would break signature
// verification. Success is acknowledged only on genuine processing success
// so gateways retry failed deliveries.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	provider := c.Params("provider")
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		signature = c.Get("verif-hash")
	}
	if signature == "" {
		signature = c.Get("X-Webhook-Signature")
	}

	ctx, cancel := context.WithTimeout(c.Context(), providerTimeout)
	defer cancel()

	if err := paymentService.HandleWebhook(ctx, provider, c.Body(), signature); err != nil {
		if errors.Is(err, payments.ErrInvalidInput) || errors.Is(err, payments.ErrUnknownProvider) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": "webhook rejected",
			})
		}
		log.Printf("webhook processing failed for %s: %v", provider, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "webhook processing failed",
		})
	}
	return c.JSON(fiber.Map{"received": true})
}

// HandlePaymentHistory lists a company's payments, newest first.
func HandlePaymentHistory(c *fiber.Ctx) error {
	companyID, err := c.ParamsInt("id")
	if err != nil || companyID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "invalid company id",
		})
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	items, total, err := paymentService.GetPaymentHistory(
		c.Context(), uint(companyID), page, limit, c.Query("status"), c.Query("provider"),
	)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"payments": items,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

type refundRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

// HandleRefundPayment refunds a completed payment. Admin only.
func HandleRefundPayment(c *fiber.Ctx) error {
	orderID := c.Params("orderID")

	var req refundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": "invalid JSON body",
			})
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), providerTimeout)
	defer cancel()

	out, err := paymentService.RefundPayment(ctx, orderID, req.Amount, req.Reason)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	return c.JSON(out)
}

// paymentErrorResponse maps the payment error taxonomy onto HTTP statuses.
func paymentErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payments.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, payments.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": err.Error(),
		})
	case errors.Is(err, payments.ErrUnknownProvider):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "unknown_provider",
			"message": err.Error(),
		})
	case errors.Is(err, payments.ErrNotEligible):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "not_eligible",
			"message": err.Error(),
		})
	case errors.Is(err, payments.ErrNotSupported):
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error":   "not_supported",
			"message": err.Error(),
		})
	case payments.IsProviderError(err):
		log.Printf("provider error: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "provider_error",
			"message": "payment provider request failed",
		})
	default:
		log.Printf("payment error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "unexpected error",
		})
	}
}
