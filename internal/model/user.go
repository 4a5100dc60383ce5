package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// User is an account allowed to use the API.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	Name         string    `json:"name" gorm:"type:text"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:text"`
	PasswordHash string    `json:"-" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the User model, respecting the Namer.
func (User) TableName(namer schema.Namer) string {
	return namer.TableName("users")
}
