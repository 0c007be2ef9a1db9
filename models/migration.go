package models

import "gorm.io/gorm"

// MigrateTables creates or updates the seven business tables plus the sync
// queue and dead-letter tables.
func MigrateTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Product{},
		&Sale{},
		&Shift{},
		&AuditLog{},
		&BusinessSettings{},
		&SyncQueueItem{},
		&DeadLetterItem{},
	)
}
