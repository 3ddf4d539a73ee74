package repositories

import "closet/internal/models"

// OutfitRepository defines the interface for outfit data access.
type OutfitRepository interface {
	Create(outfit *models.Outfit) error
	ListByUser(userID uint) ([]models.Outfit, error)
}
