package handlers

import (
	"log"

	"closet/internal/middleware"
	"closet/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OutfitHandler handles HTTP requests for outfits.
type OutfitHandler struct {
	service  *services.OutfitService
	validate *validator.Validate
}

// NewOutfitHandler creates a new OutfitHandler.
func NewOutfitHandler(service *services.OutfitService) *OutfitHandler {
	return &OutfitHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the outfit routes.
func (h *OutfitHandler) RegisterRoutes(router fiber.Router, requireSession fiber.Handler) {
	outfitRoutes := router.Group("/outfits", requireSession)
	outfitRoutes.Post("/", h.HandleSaveOutfit)
	outfitRoutes.Get("/", h.HandleListOutfits)
}

// SaveOutfitRequest represents the request body for saving an outfit.
type SaveOutfitRequest struct {
	TopID       *uint   `json:"top_id" form:"top_id"`
	BottomID    *uint   `json:"bottom_id" form:"bottom_id"`
	OnePieceID  *uint   `json:"one_piece_id" form:"one_piece_id"`
	Name        *string `json:"name" form:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" form:"description" validate:"omitempty,max=300"`
}

// HandleSaveOutfit saves an outfit for the session user.
func (h *OutfitHandler) HandleSaveOutfit(c *fiber.Ctx) error {
	var req SaveOutfitRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	outfit, err := h.service.SaveOutfit(middleware.UserID(c), services.SaveOutfitInput{
		TopID:       req.TopID,
		BottomID:    req.BottomID,
		OnePieceID:  req.OnePieceID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		log.Printf("Error saving outfit for user %d: %v", middleware.UserID(c), err)
		return respondError(c, "Could not save outfit", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Outfit saved successfully",
		"outfit":  outfit,
	})
}

// HandleListOutfits returns the session user's outfits.
func (h *OutfitHandler) HandleListOutfits(c *fiber.Ctx) error {
	outfits, err := h.service.ListOutfits(middleware.UserID(c))
	if err != nil {
		return respondError(c, "Could not retrieve outfits", err)
	}
	return c.JSON(outfits)
}
