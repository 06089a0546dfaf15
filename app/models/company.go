package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	CompanyStatusActive    = "active"
	CompanyStatusPending   = "pending"
	CompanyStatusSuspended = "suspended"
)

// Company is a directory listing owned by a registered user. The
// featured/premium/verified fields are entitlement write targets mutated
// only by the payment benefit applicator; directory queries read them for
// ordering and badges.
type Company struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`
	CategoryID  *uint  `gorm:"index" json:"category_id,omitempty"`
	Name        string `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Slug        string `gorm:"type:varchar(220);uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description" validate:"max=5000"`
	City        string `gorm:"type:varchar(100);index" json:"city" validate:"max=100"`
	Region      string `gorm:"type:varchar(100)" json:"region" validate:"max=100"`
	Phone       string `gorm:"type:varchar(30)" json:"phone" validate:"max=30"`
	Email       string `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Website     string `gorm:"type:varchar(255)" json:"website" validate:"omitempty,url,max=255"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	Featured      bool       `gorm:"default:false;index:idx_companies_featured,priority:1" json:"featured"`
	FeaturedUntil *time.Time `gorm:"type:timestamp;default:null;index:idx_companies_featured,priority:2" json:"featured_until,omitempty"`
	Premium       bool       `gorm:"default:false" json:"premium"`
	PremiumUntil  *time.Time `gorm:"type:timestamp;default:null" json:"premium_until,omitempty"`
	Verified      bool       `gorm:"default:false" json:"verified"`

	ViewCount uint64         `gorm:"default:0" json:"view_count"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Company) Validate() error {
	v := validator.New()

	return v.Struct(c)
}
