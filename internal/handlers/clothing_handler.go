package handlers

import (
	"log"
	"strings"

	"closet/internal/middleware"
	"closet/internal/pathutil"
	"closet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ClothingHandler handles HTTP requests for clothing items.
type ClothingHandler struct {
	service *services.ClothingService
}

// NewClothingHandler creates a new ClothingHandler.
func NewClothingHandler(service *services.ClothingService) *ClothingHandler {
	return &ClothingHandler{
		service: service,
	}
}

// RegisterRoutes registers the clothing routes. Stored images are public.
func (h *ClothingHandler) RegisterRoutes(router fiber.Router, requireSession fiber.Handler) {
	router.Post("/upload_clothing", requireSession, h.HandleUploadClothing)
	router.Get("/clothes", requireSession, h.HandleListClothing)
	router.Get("/uploads/:filename", h.HandleGetImage)
}

// HandleUploadClothing stores a multipart "file" with its category and tags.
func (h *ClothingHandler) HandleUploadClothing(c *fiber.Ctx) error {
	clothing, err := h.service.UploadClothing(c.UserContext(), middleware.UserID(c), services.UploadClothingInput{
		File:     formFile(c, "file"),
		Category: c.FormValue("category"),
		Color:    optionalForm(c, "color"),
		Season:   optionalForm(c, "season"),
		Occasion: optionalForm(c, "occasion"),
	})
	if err != nil {
		log.Printf("Error uploading clothing for user %d: %v", middleware.UserID(c), err)
		return respondError(c, "Could not upload clothing", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Clothing uploaded successfully",
		"clothing": clothing,
	})
}

// HandleListClothing returns the session user's clothing.
func (h *ClothingHandler) HandleListClothing(c *fiber.Ctx) error {
	clothes, err := h.service.ListClothing(middleware.UserID(c))
	if err != nil {
		return respondError(c, "Could not retrieve clothing", err)
	}
	return c.JSON(clothes)
}

// HandleGetImage streams a stored clothing image.
func (h *ClothingHandler) HandleGetImage(c *fiber.Ctx) error {
	filename := c.Params("filename")
	rc, err := h.service.OpenImage(c.UserContext(), filename)
	if err != nil {
		return respondError(c, "Could not retrieve image", err)
	}

	// fasthttp closes rc once the body has been written.
	c.Type(pathutil.Extension(filename))
	return c.SendStream(rc)
}

// optionalForm returns nil for an absent or blank form field.
func optionalForm(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}
