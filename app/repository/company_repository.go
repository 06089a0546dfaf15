package repository

import (
	"github.com/NkwentiSevian/ConstructionMarket/app/models"
	"gorm.io/gorm"
)

// companyRepository implements the CompanyRepository interface
type companyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new company repository instance
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Create(company *models.Company) error {
	return r.db.Create(company).Error
}

func (r *companyRepository) GetByID(id uint) (*models.Company, error) {
	var company models.Company
	err := r.db.First(&company, id).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) GetBySlug(slug string) (*models.Company, error) {
	var company models.Company
	err := r.db.Where("slug = ?", slug).First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) GetByOwnerID(ownerID uint) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.Where("owner_id = ?", ownerID).Find(&companies).Error
	return companies, err
}

func (r *companyRepository) Update(company *models.Company) error {
	return r.db.Save(company).Error
}

// UpdateEntitlements writes only entitlement columns. The benefit applicator
// is the sole caller; the map shape keeps untouched flags untouched.
func (r *companyRepository) UpdateEntitlements(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Company{}).Where("id = ?", id).Updates(fields).Error
}

func (r *companyRepository) Delete(id uint) error {
	return r.db.Delete(&models.Company{}, id).Error
}

// List returns active companies ordered for the directory: featured first,
// then newest. categoryID/city of zero value mean no filter.
func (r *companyRepository) List(offset, limit int, categoryID uint, city string) ([]models.Company, error) {
	var companies []models.Company
	q := r.db.Where("status = ?", models.CompanyStatusActive)
	if categoryID != 0 {
		q = q.Where("category_id = ?", categoryID)
	}
	if city != "" {
		q = q.Where("city = ?", city)
	}
	err := q.Order("featured DESC, premium DESC, created_at DESC").
		Offset(offset).Limit(limit).Find(&companies).Error
	return companies, err
}

func (r *companyRepository) Search(query string, offset, limit int) ([]models.Company, error) {
	var companies []models.Company
	like := "%" + query + "%"
	err := r.db.Where("status = ?", models.CompanyStatusActive).
		Where("name LIKE ? OR description LIKE ? OR city LIKE ?", like, like, like).
		Order("featured DESC, premium DESC, created_at DESC").
		Offset(offset).Limit(limit).Find(&companies).Error
	return companies, err
}

func (r *companyRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Company{}).Count(&count).Error
	return count, err
}

// IncrementViewCount applies a batched view-counter delta from the cache drain.
func (r *companyRepository) IncrementViewCount(id uint, delta int64) error {
	return r.db.Model(&models.Company{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", delta)).Error
}
