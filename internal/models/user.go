package models

import "time"

// User is an account that owns clothing and outfits.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(150);not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(150);not null"`
	Password  string    `json:"-" gorm:"type:varchar(256);not null"` // bcrypt hash, never serialized
	CreatedAt time.Time `json:"-"`
}
