package repository

import (
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// CompanyRepository defines the interface for company-related database operations
type CompanyRepository interface {
	Create(company *models.Company) error
	GetByID(id uint) (*models.Company, error)
	GetBySlug(slug string) (*models.Company, error)
	GetByOwnerID(ownerID uint) ([]models.Company, error)
	Update(company *models.Company) error
	// UpdateEntitlements writes only the entitlement columns
	// (featured/premium/verified and their expiries).
	UpdateEntitlements(id uint, fields map[string]interface{}) error
	Delete(id uint) error
	List(offset, limit int, categoryID uint, city string) ([]models.Company, error)
	Search(query string, offset, limit int) ([]models.Company, error)
	Count() (int64, error)
	IncrementViewCount(id uint, delta int64) error
}

// CategoryRepository defines the interface for category-related database operations
type CategoryRepository interface {
	Create(category *models.Category) error
	GetByID(id uint) (*models.Category, error)
	GetBySlug(slug string) (*models.Category, error)
	Update(category *models.Category) error
	Delete(id uint) error
	List(activeOnly bool) ([]models.Category, error)
}

// PaymentFilter narrows payment listings; zero values mean "no filter".
type PaymentFilter struct {
	Status   string
	Provider string
}

// PaymentRepository defines the interface for payment-record persistence.
// Updates are keyed by order ID; the unique index on order_id is the hard
// uniqueness guarantee behind generated order IDs.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByOrderID(orderID string) (*models.Payment, error)
	// UpdateFields applies a last-write-wins partial update.
	UpdateFields(orderID string, fields map[string]interface{}) error
	// MarkCompleted flips a record to completed exactly once. It reports
	// whether this call performed the transition, so callers can gate
	// side effects (benefit application) on a genuine state change.
	MarkCompleted(orderID string, completedAt time.Time) (bool, error)
	ListByCompany(companyID uint, offset, limit int, filter PaymentFilter) ([]models.Payment, error)
	CountByCompany(companyID uint, filter PaymentFilter) (int64, error)
	// DeleteExpiredPending removes pending records whose expiry passed and
	// returns how many were purged.
	DeleteExpiredPending(now time.Time) (int64, error)
	CountByStatus(status string) (int64, error)
	SumCompletedSince(since time.Time) (float64, error)
}

// Repositories contains all repository instances
type Repositories struct {
	User     UserRepository
	Company  CompanyRepository
	Category CategoryRepository
	Payment  PaymentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Company:  NewCompanyRepository(db),
		Category: NewCategoryRepository(db),
		Payment:  NewPaymentRepository(db),
	}
}
