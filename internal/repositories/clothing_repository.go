package repositories

import "closet/internal/models"

// ClothingRepository defines the interface for clothing data access.
// Every read is scoped to one owner.
type ClothingRepository interface {
	Create(clothing *models.Clothing) error
	ListByUser(userID uint) ([]models.Clothing, error)
	// CountExisting returns how many of ids refer to stored clothing rows,
	// regardless of owner.
	CountExisting(ids []uint) (int64, error)
}
