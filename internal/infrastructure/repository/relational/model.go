package relational

import (
	"context"
	"time"

	"github.com/mrops-br/product-catalog-api/internal/domain"
	"gorm.io/gorm"
)

// productModel is the products table row. Timestamps come from the domain entity, so
// GORM's automatic time tracking is turned off.
type productModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	Price       float64   `gorm:"not null"`
	Stock       int       `gorm:"not null;index"`
	SKU         string    `gorm:"column:sku;size:32;not null;uniqueIndex"`
	CategoryID  string    `gorm:"size:64;not null;index"`
	IsActive    bool      `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (productModel) TableName() string {
	return "products"
}

func toModel(s domain.ProductSnapshot) productModel {
	return productModel{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price,
		Stock:       s.Stock,
		SKU:         s.SKU,
		CategoryID:  s.CategoryID,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt.UTC(),
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
}

func (m productModel) toDomain() *domain.Product {
	return domain.RestoreProduct(domain.ProductSnapshot{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Stock:       m.Stock,
		SKU:         m.SKU,
		CategoryID:  m.CategoryID,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	})
}

func toDomainList(models []productModel) []*domain.Product {
	out := make([]*domain.Product, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out
}

// Migrate creates or updates the products table and its indexes
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&productModel{})
}
