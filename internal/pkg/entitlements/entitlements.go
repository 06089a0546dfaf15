package entitlements

import (
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
)

// Badge is the effective directory badge of a company once expiries are
// taken into account. The payment subsystem only writes the raw flags;
// listing and profile views read them through here.
type Badge struct {
	Featured bool `json:"featured"`
	Premium  bool `json:"premium"`
	Verified bool `json:"verified"`
}

// EffectiveBadge computes the active badge for a company at the given time.
// A set flag with a past expiry counts as inactive; verification has no
// expiry and stays until manually revoked.
func EffectiveBadge(c *models.Company, now time.Time) Badge {
	return Badge{
		Featured: c.Featured && activeUntil(c.FeaturedUntil, now),
		Premium:  c.Premium && activeUntil(c.PremiumUntil, now),
		Verified: c.Verified,
	}
}

// ListingRank orders directory results: featured above premium above the
// rest. Equal ranks fall back to recency in the query.
func ListingRank(c *models.Company, now time.Time) int {
	b := EffectiveBadge(c, now)
	switch {
	case b.Featured:
		return 2
	case b.Premium:
		return 1
	default:
		return 0
	}
}

func activeUntil(until *time.Time, now time.Time) bool {
	// A missing expiry on a set flag means the benefit never got a window;
	// treat it as active to avoid punishing older records.
	if until == nil {
		return true
	}
	return now.Before(*until)
}
