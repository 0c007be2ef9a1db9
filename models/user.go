package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID                 string    `gorm:"primaryKey;size:64" json:"id"`
	Name               string    `gorm:"size:100;not null" json:"name"`
	Role               UserRole  `gorm:"size:20;not null;default:cashier" json:"role"`
	PinHash            string    `gorm:"size:100;not null" json:"pin_hash"`
	Active             *bool     `gorm:"not null;default:true" json:"active"`
	Version            int       `gorm:"not null;default:0" json:"version"`
	LastModifiedBy     string    `gorm:"size:64" json:"last_modified_by"`
	LastModifiedByName string    `gorm:"size:100" json:"last_modified_by_name"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name string   `json:"name" validate:"required,max=100"`
	Role UserRole `json:"role" validate:"required,oneof=admin cashier"`
	Pin  string   `json:"pin" validate:"required,min=4,max=12,numeric"`
}

type UpdateUserInput struct {
	ID      string   `json:"id" validate:"required"`
	Name    string   `json:"name" validate:"required,max=100"`
	Role    UserRole `json:"role" validate:"required,oneof=admin cashier"`
	Pin     string   `json:"pin" validate:"omitempty,min=4,max=12,numeric"`
	Active  *bool    `json:"active"`
	Version int      `json:"version" validate:"min=0"`
}

func GetUser(db *gorm.DB, id string) (*User, error) {
	return getByID[User](db, id)
}

func GetAllUsers(db *gorm.DB) ([]User, error) {
	return getAll[User](db)
}
