package repositories

import (
	"errors"
	"fmt"
	"time"

	"closet/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTryOnJobRepository is a GORM implementation of TryOnJobRepository.
type GORMTryOnJobRepository struct {
	db *gorm.DB
}

// NewGORMTryOnJobRepository creates a new instance of GORMTryOnJobRepository.
func NewGORMTryOnJobRepository(db *gorm.DB) *GORMTryOnJobRepository {
	return &GORMTryOnJobRepository{db: db}
}

// Create inserts a job, assigning an id when none is set.
func (r *GORMTryOnJobRepository) Create(job *models.TryOnJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create try-on job: %w", translate(err))
	}
	return nil
}

// GetForUser loads a job only if userID owns it.
func (r *GORMTryOnJobRepository) GetForUser(id string, userID uint) (*models.TryOnJob, error) {
	var job models.TryOnJob
	if err := r.db.First(&job, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("try-on job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get try-on job %s: %w", id, err)
	}
	return &job, nil
}

// UpdateStatus records a state transition.
func (r *GORMTryOnJobRepository) UpdateStatus(id, status, resultURL, errMsg string, finishedAt *time.Time) error {
	res := r.db.Model(&models.TryOnJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      status,
		"result_url":  resultURL,
		"error":       errMsg,
		"finished_at": finishedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update try-on job %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("try-on job %s for status update: %w", id, ErrNotFound)
	}
	return nil
}
