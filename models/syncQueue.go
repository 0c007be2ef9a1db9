package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SyncQueueItem is one pending mutation awaiting remote propagation. The
// queue is FIFO by the auto-increment key; no priority, no batching.
//
// Attempts is persisted on the row so a process restart does not hand a
// permanently-failing item a fresh retry budget.
type SyncQueueItem struct {
	Key       uint       `gorm:"primaryKey;autoIncrement" json:"key"`
	Type      SyncOpType `gorm:"size:32;not null" json:"type"`
	EntityId  string     `gorm:"index;size:64" json:"entity_id"`
	Payload   []byte     `gorm:"type:json" json:"payload"`
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`
	LastError string     `gorm:"type:text" json:"last_error"`
	Timestamp time.Time  `gorm:"autoCreateTime" json:"timestamp"`
}

func (SyncQueueItem) TableName() string { return "sync_queue" }

// DeadLetterItem quarantines a queue item that exhausted its retry budget.
// Operators can inspect these and requeue after fixing the underlying cause;
// nothing is silently dropped.
type DeadLetterItem struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	QueueKey   uint       `gorm:"index" json:"queue_key"`
	Type       SyncOpType `gorm:"size:32;not null" json:"type"`
	EntityId   string     `gorm:"size:64" json:"entity_id"`
	Payload    []byte     `gorm:"type:json" json:"payload"`
	Attempts   int        `gorm:"not null;default:0" json:"attempts"`
	LastError  string     `gorm:"type:text" json:"last_error"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	FailedAt   time.Time  `gorm:"autoCreateTime" json:"failed_at"`
}

func (DeadLetterItem) TableName() string { return "dead_letters" }

// EnqueueSync appends a mutation to the queue. Pass the transaction handle
// when the enqueue must commit atomically with the business write
// (processSale); otherwise any db handle works.
func EnqueueSync(tx *gorm.DB, op SyncOpType, entityId string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sync payload: %w", err)
	}
	item := SyncQueueItem{
		Type:     op,
		EntityId: entityId,
		Payload:  raw,
	}
	return tx.Create(&item).Error
}

// PendingSyncItems returns all queued items oldest first. Insertion order is
// the only ordering guarantee the drain makes.
func PendingSyncItems(db *gorm.DB) ([]SyncQueueItem, error) {
	var items []SyncQueueItem
	if err := db.Order("`key` ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func RemoveSyncItem(db *gorm.DB, key uint) error {
	return db.Delete(&SyncQueueItem{}, "`key` = ?", key).Error
}

// RecordSyncFailure bumps the persisted attempt counter and returns the new
// count so the driver can decide whether the item just hit the ceiling.
func RecordSyncFailure(db *gorm.DB, key uint, cause error) (int, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := db.Model(&SyncQueueItem{}).
		Where("`key` = ?", key).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
	if err != nil {
		return 0, err
	}
	var item SyncQueueItem
	if err := db.Where("`key` = ?", key).Take(&item).Error; err != nil {
		return 0, err
	}
	return item.Attempts, nil
}

func CountSyncQueue(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&SyncQueueItem{}).Count(&n).Error
	return n, err
}

func CountDeadLetters(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&DeadLetterItem{}).Count(&n).Error
	return n, err
}

// MoveToDeadLetter removes the item from the queue and records it in the
// dead-letter table in one transaction.
func MoveToDeadLetter(db *gorm.DB, item SyncQueueItem, cause error) error {
	msg := item.LastError
	if cause != nil {
		msg = cause.Error()
	}
	return db.Transaction(func(tx *gorm.DB) error {
		dead := DeadLetterItem{
			QueueKey:   item.Key,
			Type:       item.Type,
			EntityId:   item.EntityId,
			Payload:    item.Payload,
			Attempts:   item.Attempts,
			LastError:  msg,
			EnqueuedAt: item.Timestamp,
		}
		if err := tx.Create(&dead).Error; err != nil {
			return err
		}
		return tx.Delete(&SyncQueueItem{}, "`key` = ?", item.Key).Error
	})
}

func ListDeadLetters(db *gorm.DB) ([]DeadLetterItem, error) {
	var items []DeadLetterItem
	if err := db.Order("failed_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// RequeueDeadLetter puts a quarantined item back on the queue with a fresh
// retry budget. Manual replay path for operators.
func RequeueDeadLetter(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var dead DeadLetterItem
		if err := tx.Where("id = ?", id).Take(&dead).Error; err != nil {
			return err
		}
		item := SyncQueueItem{
			Type:     dead.Type,
			EntityId: dead.EntityId,
			Payload:  dead.Payload,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return tx.Delete(&DeadLetterItem{}, "id = ?", id).Error
	})
}
