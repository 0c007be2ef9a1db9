package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleItem struct {
	ProductId string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type Sale struct {
	ID                 string          `gorm:"primaryKey;size:64" json:"id"`
	Items              []SaleItem      `gorm:"serializer:json" json:"items"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	TotalCost          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	PaymentMethod      PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	CashierId          string          `gorm:"index;size:64" json:"cashier_id"`
	CashierName        string          `gorm:"size:100" json:"cashier_name"`
	ShiftId            string          `gorm:"index;size:64" json:"shift_id"`
	Timestamp          time.Time       `gorm:"index" json:"timestamp"`
	Version            int             `gorm:"not null;default:0" json:"version"`
	LastModifiedBy     string          `gorm:"size:64" json:"last_modified_by"`
	LastModifiedByName string          `gorm:"size:100" json:"last_modified_by_name"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSaleItem struct {
	ProductId string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
}

type NewSale struct {
	Items         []NewSaleItem `json:"items" validate:"required,min=1,dive"`
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required"`
}

func GetAllSales(db *gorm.DB) ([]Sale, error) {
	return getAll[Sale](db)
}

// CashSalesTotal sums CASH sales for one cashier since a point in time.
// Feeds the expected-cash figure for drawer reconciliation at shift close.
func CashSalesTotal(db *gorm.DB, cashierId string, since time.Time) (decimal.Decimal, error) {
	var sales []Sale
	err := db.
		Where("cashier_id = ? AND payment_method = ? AND timestamp >= ?", cashierId, PaymentMethodCash, since).
		Find(&sales).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, s := range sales {
		total = total.Add(s.TotalAmount)
	}
	return total, nil
}
