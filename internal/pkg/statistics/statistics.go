package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/repository"
	"github.com/NkwentiSevian/ConstructionMarket/internal/pkg/cache"
)

const (
	CacheKeyCompaniesTotal    = "statistics:companies:total"
	CacheKeyUsersTotal        = "statistics:users:total"
	CacheKeyPaymentsCompleted = "statistics:payments:completed"
	CacheKeyRevenueToday      = "statistics:payments:revenue_today"
	CacheExpiration           = 30 * time.Minute
)

// DashboardData holds the admin dashboard totals.
type DashboardData struct {
	TotalCompanies    int     `json:"total_companies"`
	TotalUsers        int     `json:"total_users"`
	CompletedPayments int     `json:"completed_payments"`
	RevenueToday      float64 `json:"revenue_today"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// UpdateCacheIfNeeded refreshes the cached totals when they are stale.
func UpdateCacheIfNeeded() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	if time.Since(lastCacheUpdate) <= cacheUpdateInterval {
		return
	}
	lastCacheUpdate = time.Now()

	repos := repository.GetGlobalRepositories()

	if total, err := repos.Company.Count(); err == nil {
		_ = cache.Set(CacheKeyCompaniesTotal, strconv.FormatInt(total, 10), CacheExpiration)
	} else {
		log.Printf("statistics: company count failed: %v", err)
	}

	if total, err := repos.User.Count(); err == nil {
		_ = cache.Set(CacheKeyUsersTotal, strconv.FormatInt(total, 10), CacheExpiration)
	} else {
		log.Printf("statistics: user count failed: %v", err)
	}

	if total, err := repos.Payment.CountByStatus("completed"); err == nil {
		_ = cache.Set(CacheKeyPaymentsCompleted, strconv.FormatInt(total, 10), CacheExpiration)
	} else {
		log.Printf("statistics: payment count failed: %v", err)
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	if revenue, err := repos.Payment.SumCompletedSince(midnight); err == nil {
		_ = cache.Set(CacheKeyRevenueToday, strconv.FormatFloat(revenue, 'f', 2, 64), CacheExpiration)
	} else {
		log.Printf("statistics: revenue sum failed: %v", err)
	}
}

// GetDashboardData returns the cached dashboard totals, refreshing the
// cache first when stale.
func GetDashboardData() DashboardData {
	UpdateCacheIfNeeded()

	data := DashboardData{}
	if v, err := cache.GetInt(CacheKeyCompaniesTotal); err == nil {
		data.TotalCompanies = v
	}
	if v, err := cache.GetInt(CacheKeyUsersTotal); err == nil {
		data.TotalUsers = v
	}
	if v, err := cache.GetInt(CacheKeyPaymentsCompleted); err == nil {
		data.CompletedPayments = v
	}
	if v, err := cache.Get(CacheKeyRevenueToday); err == nil {
		if f, perr := strconv.ParseFloat(v, 64); perr == nil {
			data.RevenueToday = f
		}
	}
	return data
}
