package models

import (
	"fmt"
	"time"

	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedUser struct {
	name string
	role UserRole
	pin  string
}

type seedProduct struct {
	name         string
	sku          string
	costPrice    int64
	sellingPrice int64
	stock        int64
	threshold    int64
}

var defaultUsers = []seedUser{
	{name: "Admin", role: UserRoleAdmin, pin: "1234"},
	{name: "Cashier", role: UserRoleCashier, pin: "5678"},
}

var defaultProducts = []seedProduct{
	{name: "Drinking Water 1L", sku: "WTR-001", costPrice: 250, sellingPrice: 400, stock: 48, threshold: 12},
	{name: "Instant Noodles", sku: "NDL-001", costPrice: 350, sellingPrice: 500, stock: 60, threshold: 20},
	{name: "Cooking Oil 1L", sku: "OIL-001", costPrice: 4200, sellingPrice: 5500, stock: 24, threshold: 6},
	{name: "Rice 1kg", sku: "RCE-001", costPrice: 1800, sellingPrice: 2400, stock: 40, threshold: 10},
	{name: "Soap Bar", sku: "SOP-001", costPrice: 600, sellingPrice: 900, stock: 36, threshold: 12},
}

// SeedDefaults populates a brand new installation (zero local users) with a
// built-in user and product list so the till is usable before it has ever
// talked to the remote store.
func SeedDefaults(db *gorm.DB) error {
	now := time.Now()

	for _, su := range defaultUsers {
		hash, err := utils.HashPin(su.pin)
		if err != nil {
			return fmt.Errorf("hash default pin: %w", err)
		}
		user := User{
			ID:      utils.NewRecordId(),
			Name:    su.name,
			Role:    su.role,
			PinHash: hash,
			Active:  utils.NewTrue(),
		}
		if err := Put(db, &user); err != nil {
			return fmt.Errorf("seed user %s: %w", su.name, err)
		}
	}

	for _, sp := range defaultProducts {
		product := Product{
			ID:                utils.NewRecordId(),
			Name:              sp.name,
			Sku:               sp.sku,
			Barcode:           sp.sku,
			CostPrice:         decimal.NewFromInt(sp.costPrice),
			SellingPrice:      decimal.NewFromInt(sp.sellingPrice),
			Stock:             decimal.NewFromInt(sp.stock),
			LowStockThreshold: decimal.NewFromInt(sp.threshold),
			Active:            utils.NewTrue(),
		}
		if err := Put(db, &product); err != nil {
			return fmt.Errorf("seed product %s: %w", sp.name, err)
		}
	}

	settings := BusinessSettings{
		ID:        SettingsRecordId,
		StoreName: "PitiX Store",
		Currency:  "MMK",
		UpdatedAt: now,
	}
	return Put(db, &settings)
}
