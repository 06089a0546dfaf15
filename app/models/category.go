package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Category is an admin-managed trade category companies list under
// (plumbing, roofing, electrical and so on).
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(120);not null" json:"name" validate:"required,min=2,max=120"`
	Slug        string    `gorm:"type:varchar(140);uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description" validate:"max=2000"`
	Active      bool      `gorm:"default:true;index" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Category) Validate() error {
	v := validator.New()

	return v.Struct(c)
}
