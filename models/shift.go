package models

import (
	"errors"
	"time"

	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Shift struct {
	ID                 string          `gorm:"primaryKey;size:64" json:"id"`
	CashierId          string          `gorm:"index;size:64" json:"cashier_id"`
	CashierName        string          `gorm:"size:100" json:"cashier_name"`
	OpeningCash        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_cash"`
	ClosingCash        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"closing_cash"`
	ExpectedCash       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"expected_cash"`
	Status             ShiftStatus     `gorm:"size:20;not null;default:OPEN" json:"status"`
	OpenedAt           time.Time       `json:"opened_at"`
	ClosedAt           *time.Time      `json:"closed_at"`
	Version            int             `gorm:"not null;default:0" json:"version"`
	LastModifiedBy     string          `gorm:"size:64" json:"last_modified_by"`
	LastModifiedByName string          `gorm:"size:100" json:"last_modified_by_name"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetAllShifts(db *gorm.DB) ([]Shift, error) {
	return getAll[Shift](db)
}

// OpenShiftFor returns the cashier's OPEN shift if one exists. At most one
// OPEN shift per cashier is a query convention, not a schema constraint, so
// the newest wins if the convention was ever violated.
func OpenShiftFor(db *gorm.DB, cashierId string) (*Shift, error) {
	var shift Shift
	err := db.
		Where("cashier_id = ? AND status = ?", cashierId, ShiftStatusOpen).
		Order("opened_at DESC").
		Take(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &shift, nil
}
