package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"github.com/NkwentiSevian/ConstructionMarket/app/repository"
)

// BenefitApplicator maps a completed payment's service metadata onto the
// company's entitlement flags. It only ever writes these flags; nothing in
// the payment subsystem reads them for decisions.
type BenefitApplicator struct {
	companies repository.CompanyRepository
}

// NewBenefitApplicator creates an applicator over the company store.
func NewBenefitApplicator(companies repository.CompanyRepository) *BenefitApplicator {
	return &BenefitApplicator{companies: companies}
}

// Apply grants the benefit purchased by a completed payment. The caller
// invokes it only on a genuine transition into completed, which is the
// idempotence guard: duplicate webhook deliveries never reach this point,
// so an expiry can never be extended twice by the same order.
func (b *BenefitApplicator) Apply(ctx context.Context, companyID uint, meta models.PaymentMetadata) error {
	_ = ctx
	now := time.Now()

	var fields map[string]interface{}
	switch meta.Service {
	case models.ServiceFeaturedListing:
		until := now.AddDate(0, 0, durationOrDefault(meta.DurationDays, models.DefaultFeaturedDays))
		fields = map[string]interface{}{
			"featured":       true,
			"featured_until": until,
		}
	case models.ServicePremiumSubscription:
		until := now.AddDate(0, 0, durationOrDefault(meta.DurationDays, models.DefaultPremiumDays))
		// Premium implies verification.
		fields = map[string]interface{}{
			"premium":       true,
			"premium_until": until,
			"verified":      true,
		}
	case models.ServiceVerification:
		// Permanent until manually revoked.
		fields = map[string]interface{}{
			"verified": true,
		}
	default:
		return fmt.Errorf("%w: unknown service %q", ErrInvalidInput, meta.Service)
	}

	if err := b.companies.UpdateEntitlements(companyID, fields); err != nil {
		return fmt.Errorf("apply %s to company %d: %w", meta.Service, companyID, err)
	}
	return nil
}

func durationOrDefault(days, def int) int {
	if days > 0 {
		return days
	}
	return def
}
