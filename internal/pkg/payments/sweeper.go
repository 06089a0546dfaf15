package payments

import (
	"context"
	"log"
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/repository"
)

// DefaultSweepInterval is how often the expiry sweep runs. MySQL has no
// passive TTL index, so stale pending records are purged by this loop.
const DefaultSweepInterval = 5 * time.Minute

// StartExpirySweeper deletes pending payments past their expiry until the
// context is cancelled. Purged orders are gone for good: a later verify or
// webhook for them resolves to not-found and is ignored upstream.
func StartExpirySweeper(ctx context.Context, payments repository.PaymentRepository, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := payments.DeleteExpiredPending(time.Now())
				if err != nil {
					log.Printf("payment expiry sweep failed: %v", err)
					continue
				}
				if purged > 0 {
					log.Printf("payment expiry sweep purged %d stale pending records", purged)
				}
			}
		}
	}()
}
