package services

import (
	"errors"
	"log"

	"closet/internal/apperrors"
	"closet/internal/models"
	"closet/internal/repositories"
)

// SaveOutfitInput holds the optional outfit fields.
type SaveOutfitInput struct {
	TopID       *uint
	BottomID    *uint
	OnePieceID  *uint
	Name        *string
	Description *string
}

// OutfitService composes outfits from existing clothing.
type OutfitService struct {
	outfitRepo   repositories.OutfitRepository
	clothingRepo repositories.ClothingRepository
	events       EventPublisher
}

// NewOutfitService creates a new OutfitService.
func NewOutfitService(outfitRepo repositories.OutfitRepository, clothingRepo repositories.ClothingRepository, events EventPublisher) *OutfitService {
	return &OutfitService{
		outfitRepo:   outfitRepo,
		clothingRepo: clothingRepo,
		events:       events,
	}
}

// SaveOutfit stores an outfit for the user. Every given component id must
// name an existing clothing row; whose row it is is not checked.
func (s *OutfitService) SaveOutfit(userID uint, in SaveOutfitInput) (*models.Outfit, error) {
	outfit := &models.Outfit{
		UserID:      userID,
		TopID:       in.TopID,
		BottomID:    in.BottomID,
		OnePieceID:  in.OnePieceID,
		Name:        nonEmpty(in.Name),
		Description: nonEmpty(in.Description),
	}

	if ids := uniqueIDs(outfit.ComponentIDs()); len(ids) > 0 {
		count, err := s.clothingRepo.CountExisting(ids)
		if err != nil {
			return nil, apperrors.Internal("failed to check clothing", err)
		}
		if count != int64(len(ids)) {
			return nil, apperrors.Validation("outfit references clothing that does not exist")
		}
	}

	if err := s.outfitRepo.Create(outfit); err != nil {
		if errors.Is(err, repositories.ErrInvalidReference) {
			return nil, apperrors.Validation("outfit references clothing that does not exist")
		}
		return nil, apperrors.Internal("failed to save outfit", err)
	}

	log.Printf("User %d saved outfit %d", userID, outfit.ID)
	publish(s.events, EventOutfitSaved, map[string]interface{}{"outfit_id": outfit.ID, "user_id": userID})
	return outfit, nil
}

// ListOutfits returns the user's outfits with raw component ids.
func (s *OutfitService) ListOutfits(userID uint) ([]models.Outfit, error) {
	outfits, err := s.outfitRepo.ListByUser(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list outfits", err)
	}
	return outfits, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
