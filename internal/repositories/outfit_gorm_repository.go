package repositories

import (
	"fmt"

	"closet/internal/models"

	"gorm.io/gorm"
)

// GORMOutfitRepository is a GORM implementation of OutfitRepository.
type GORMOutfitRepository struct {
	db *gorm.DB
}

// NewGORMOutfitRepository creates a new instance of GORMOutfitRepository.
func NewGORMOutfitRepository(db *gorm.DB) *GORMOutfitRepository {
	return &GORMOutfitRepository{db: db}
}

// Create inserts an outfit row.
func (r *GORMOutfitRepository) Create(outfit *models.Outfit) error {
	if err := r.db.Create(outfit).Error; err != nil {
		return fmt.Errorf("failed to create outfit: %w", translate(err))
	}
	return nil
}

// ListByUser returns all outfits owned by userID with raw component ids.
func (r *GORMOutfitRepository) ListByUser(userID uint) ([]models.Outfit, error) {
	outfits := []models.Outfit{}
	if err := r.db.Where("user_id = ?", userID).Order("id").Find(&outfits).Error; err != nil {
		return nil, fmt.Errorf("failed to list outfits for user %d: %w", userID, err)
	}
	return outfits, nil
}
