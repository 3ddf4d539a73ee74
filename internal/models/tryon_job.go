package models

import "time"

// Try-on job states.
const (
	TryOnStatusQueued    = "queued"
	TryOnStatusRunning   = "running"
	TryOnStatusSucceeded = "succeeded"
	TryOnStatusFailed    = "failed"
)

// TryOnJob records one run of the external try-on program.
type TryOnJob struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID         uint       `json:"-" gorm:"not null;index"`
	UserImage      string     `json:"user_image" gorm:"type:varchar(256);not null"`
	ClothingImage  string     `json:"clothing_image" gorm:"type:varchar(256);not null"`
	ResultFilename string     `json:"-" gorm:"type:varchar(256);not null"`
	Status         string     `json:"status" gorm:"type:varchar(20);not null"`
	ResultURL      string     `json:"result_url,omitempty" gorm:"type:varchar(300)"`
	Error          string     `json:"error,omitempty" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
}
