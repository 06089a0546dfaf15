package repository

import (
	"time"

	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create persists a new payment record. The unique index on order_id makes
// an ID collision a hard error instead of a silent overwrite.
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByOrderID retrieves a payment by its order ID
func (r *paymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("order_id = ?", orderID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateFields applies a partial update keyed by order ID. Concurrent
// verify/webhook races resolve last-write-wins here; status transitions
// that need stronger guarantees go through MarkCompleted.
func (r *paymentRepository) UpdateFields(orderID string, fields map[string]interface{}) error {
	return r.db.Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(fields).Error
}

// MarkCompleted transitions a record to completed unless it already reached
// a terminal state. The WHERE clause is the compare-and-swap: rows affected
// tells the caller whether this call performed the transition, so benefits
// are applied exactly once even when verify and webhook race.
func (r *paymentRepository) MarkCompleted(orderID string, completedAt time.Time) (bool, error) {
	tx := r.db.Model(&models.Payment{}).
		Where("order_id = ? AND status NOT IN ?", orderID, []string{
			models.PaymentStatusCompleted,
			models.PaymentStatusFailed,
			models.PaymentStatusRefunded,
		}).
		Updates(map[string]interface{}{
			"status":       models.PaymentStatusCompleted,
			"completed_at": completedAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ListByCompany returns a newest-first page of a company's payments.
func (r *paymentRepository) ListByCompany(companyID uint, offset, limit int, filter PaymentFilter) ([]models.Payment, error) {
	var payments []models.Payment
	q := r.db.Where("company_id = ?", companyID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		q = q.Where("provider = ?", filter.Provider)
	}
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, err
}

// CountByCompany counts a company's payments under the same filters as ListByCompany.
func (r *paymentRepository) CountByCompany(companyID uint, filter PaymentFilter) (int64, error) {
	var count int64
	q := r.db.Model(&models.Payment{}).Where("company_id = ?", companyID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		q = q.Where("provider = ?", filter.Provider)
	}
	err := q.Count(&count).Error
	return count, err
}

// DeleteExpiredPending purges stale pending records past their expiry. This
// is the TTL sweep: deletion, not a status transition, and the loss is
// permanent (no further verification possible for purged orders).
func (r *paymentRepository) DeleteExpiredPending(now time.Time) (int64, error) {
	tx := r.db.Where("status = ? AND expires_at < ?", models.PaymentStatusPending, now).
		Delete(&models.Payment{})
	return tx.RowsAffected, tx.Error
}

// CountByStatus counts payments in a given status across all companies.
func (r *paymentRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// SumCompletedSince totals completed payment amounts since the given time.
func (r *paymentRepository) SumCompletedSince(since time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND completed_at >= ?", models.PaymentStatusCompleted, since).
		Scan(&total).Error
	return total, err
}
