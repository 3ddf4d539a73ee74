package repositories

import (
	"time"

	"closet/internal/models"
)

// TryOnJobRepository defines the interface for try-on job records.
type TryOnJobRepository interface {
	Create(job *models.TryOnJob) error
	GetForUser(id string, userID uint) (*models.TryOnJob, error)
	UpdateStatus(id, status, resultURL, errMsg string, finishedAt *time.Time) error
}
