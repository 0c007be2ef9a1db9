package models

import (
	"errors"

	"github.com/mmdatafocus/pitix_pos/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The local store contract is deliberately small: point read, full scan,
// upsert by primary key, delete by primary key. Multi-table atomicity goes
// through gorm's Transaction on the caller side.

func getByID[T any](db *gorm.DB, id string) (*T, error) {
	var rec T
	if err := db.Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func getAll[T any](db *gorm.DB) ([]T, error) {
	var recs []T
	if err := db.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Put upserts a record by primary key. Reconciliation and the action layer
// both funnel through this so "write every remote record into the local
// store" and ordinary edits share one code path.
func Put[T any](db *gorm.DB, rec *T) error {
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

func DeleteByID[T any](db *gorm.DB, id string) error {
	var zero T
	return db.Where("id = ?", id).Delete(&zero).Error
}
