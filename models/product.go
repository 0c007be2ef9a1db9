package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID                 string          `gorm:"primaryKey;size:64" json:"id"`
	Name               string          `gorm:"size:100;not null" json:"name"`
	Sku                string          `gorm:"index;size:100" json:"sku"`
	Barcode            string          `gorm:"index;size:100" json:"barcode"`
	CostPrice          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	SellingPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	Stock              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock"`
	LowStockThreshold  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"low_stock_threshold"`
	Active             *bool           `gorm:"not null;default:true" json:"active"`
	Version            int             `gorm:"not null;default:0" json:"version"`
	LastModifiedBy     string          `gorm:"size:64" json:"last_modified_by"`
	LastModifiedByName string          `gorm:"size:100" json:"last_modified_by_name"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) LowOnStock() bool {
	return p.LowStockThreshold.IsPositive() && p.Stock.LessThanOrEqual(p.LowStockThreshold)
}

type NewProduct struct {
	Name              string          `json:"name" validate:"required,max=100"`
	Sku               string          `json:"sku" validate:"max=100"`
	Barcode           string          `json:"barcode" validate:"max=100"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	Stock             decimal.Decimal `json:"stock"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
}

// UpdateProductInput carries the version the editor started from; the
// conflict detector compares it against the stored version at submit time.
type UpdateProductInput struct {
	ID                string          `json:"id" validate:"required"`
	Name              string          `json:"name" validate:"required,max=100"`
	Sku               string          `json:"sku" validate:"max=100"`
	Barcode           string          `json:"barcode" validate:"max=100"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	Stock             decimal.Decimal `json:"stock"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	Version           int             `json:"version" validate:"min=0"`
}

func GetProduct(db *gorm.DB, id string) (*Product, error) {
	return getByID[Product](db, id)
}

func GetAllProducts(db *gorm.DB) ([]Product, error) {
	return getAll[Product](db)
}
