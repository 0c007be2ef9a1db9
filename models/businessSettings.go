package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// SettingsRecordId is the fixed primary key of the settings singleton row.
const SettingsRecordId = "business-settings"

type BusinessSettings struct {
	ID                 string    `gorm:"primaryKey;size:64" json:"id"`
	StoreName          string    `gorm:"size:100" json:"store_name"`
	Address            string    `gorm:"size:255" json:"address"`
	Phone              string    `gorm:"size:32" json:"phone"`
	Currency           string    `gorm:"size:8" json:"currency"`
	ReceiptFooter      string    `gorm:"type:text" json:"receipt_footer"`
	WhatsAppNumber     string    `gorm:"size:32" json:"whatsapp_number"`
	Version            int       `gorm:"not null;default:0" json:"version"`
	LastModifiedBy     string    `gorm:"size:64" json:"last_modified_by"`
	LastModifiedByName string    `gorm:"size:100" json:"last_modified_by_name"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type UpdateBusinessSettingsInput struct {
	StoreName      string `json:"store_name" validate:"required,max=100"`
	Address        string `json:"address" validate:"max=255"`
	Phone          string `json:"phone" validate:"max=32"`
	Currency       string `json:"currency" validate:"max=8"`
	ReceiptFooter  string `json:"receipt_footer"`
	WhatsAppNumber string `json:"whatsapp_number" validate:"max=32"`
}

func GetBusinessSettings(db *gorm.DB) (*BusinessSettings, error) {
	var settings BusinessSettings
	err := db.Where("id = ?", SettingsRecordId).Take(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &BusinessSettings{ID: SettingsRecordId, StoreName: "PitiX Store", Currency: "MMK"}, nil
		}
		return nil, err
	}
	return &settings, nil
}
