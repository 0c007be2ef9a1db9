package models

import (
	"time"

	"gorm.io/gorm"
)

// AuditLog entries are best-effort: a failed audit write never rolls back
// the business mutation it describes.
type AuditLog struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserId    string    `gorm:"index;size:64" json:"user_id"`
	UserName  string    `gorm:"size:100" json:"user_name"`
	Action    string    `gorm:"size:64;not null" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Version   int       `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetAllAuditLogs(db *gorm.DB) ([]AuditLog, error) {
	return getAll[AuditLog](db)
}
