package models

import "time"

// Clothing categories the frontend expects. Category is stored as free text.
const (
	CategoryTop      = "top"
	CategoryBottom   = "bottom"
	CategoryOnePiece = "one-piece"
)

// Clothing is one uploaded garment image plus its tags.
type Clothing struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Filename   string    `json:"filename" gorm:"type:varchar(256);not null"`
	Category   string    `json:"category" gorm:"type:varchar(50);not null"`
	UserID     uint      `json:"-" gorm:"not null;index"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
	Color      *string   `json:"color" gorm:"type:varchar(50)"`
	Season     *string   `json:"season" gorm:"type:varchar(50)"`
	Occasion   *string   `json:"occasion" gorm:"type:varchar(50)"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
}
