package repositories

import (
	"fmt"

	"closet/internal/models"

	"gorm.io/gorm"
)

// GORMClothingRepository is a GORM implementation of ClothingRepository.
type GORMClothingRepository struct {
	db *gorm.DB
}

// NewGORMClothingRepository creates a new instance of GORMClothingRepository.
func NewGORMClothingRepository(db *gorm.DB) *GORMClothingRepository {
	return &GORMClothingRepository{db: db}
}

// Create inserts a clothing row.
func (r *GORMClothingRepository) Create(clothing *models.Clothing) error {
	if err := r.db.Create(clothing).Error; err != nil {
		return fmt.Errorf("failed to create clothing: %w", translate(err))
	}
	return nil
}

// ListByUser returns all clothing owned by userID.
func (r *GORMClothingRepository) ListByUser(userID uint) ([]models.Clothing, error) {
	clothes := []models.Clothing{}
	if err := r.db.Where("user_id = ?", userID).Order("id").Find(&clothes).Error; err != nil {
		return nil, fmt.Errorf("failed to list clothing for user %d: %w", userID, err)
	}
	return clothes, nil
}

// CountExisting counts distinct stored rows among ids.
func (r *GORMClothingRepository) CountExisting(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := r.db.Model(&models.Clothing{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count clothing: %w", err)
	}
	return count, nil
}
