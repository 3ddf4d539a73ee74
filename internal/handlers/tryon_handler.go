package handlers

import (
	"log"
	"mime/multipart"

	"closet/internal/middleware"
	"closet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TryOnHandler handles HTTP requests for virtual try-on.
type TryOnHandler struct {
	service *services.TryOnService
}

// NewTryOnHandler creates a new TryOnHandler.
func NewTryOnHandler(service *services.TryOnService) *TryOnHandler {
	return &TryOnHandler{
		service: service,
	}
}

// RegisterRoutes registers the try-on routes. Results are public.
func (h *TryOnHandler) RegisterRoutes(router fiber.Router, requireSession fiber.Handler) {
	router.Post("/virtual_try_on", requireSession, h.HandleVirtualTryOn)
	router.Post("/virtual_try_on/jobs", requireSession, h.HandleEnqueueTryOn)
	router.Get("/virtual_try_on/jobs/:id", requireSession, h.HandleGetJob)
	router.Get("/results/:filename", h.HandleGetResult)
}

// HandleVirtualTryOn runs the try-on program and waits for its result.
func (h *TryOnHandler) HandleVirtualTryOn(c *fiber.Ctx) error {
	userImage, clothingImage := formFile(c, "user_image"), formFile(c, "clothing_image")
	job, err := h.service.VirtualTryOn(c.UserContext(), middleware.UserID(c), userImage, clothingImage)
	if err != nil {
		log.Printf("Virtual try-on failed for user %d: %v", middleware.UserID(c), err)
		return respondError(c, "Virtual try-on failed", err)
	}
	return c.JSON(fiber.Map{
		"result_url": job.ResultURL,
		"job_id":     job.ID,
	})
}

// HandleEnqueueTryOn queues a try-on and returns its job without waiting.
func (h *TryOnHandler) HandleEnqueueTryOn(c *fiber.Ctx) error {
	userImage, clothingImage := formFile(c, "user_image"), formFile(c, "clothing_image")
	job, err := h.service.EnqueueTryOn(c.UserContext(), middleware.UserID(c), userImage, clothingImage)
	if err != nil {
		log.Printf("Could not queue try-on for user %d: %v", middleware.UserID(c), err)
		return respondError(c, "Could not queue virtual try-on", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(job)
}

// HandleGetJob reports a job of the session user.
func (h *TryOnHandler) HandleGetJob(c *fiber.Ctx) error {
	job, err := h.service.GetJob(middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve try-on job", err)
	}
	return c.JSON(job)
}

// HandleGetResult streams a result image.
func (h *TryOnHandler) HandleGetResult(c *fiber.Ctx) error {
	path, err := h.service.ResultPath(c.Params("filename"))
	if err != nil {
		return respondError(c, "Could not retrieve result", err)
	}
	return c.SendFile(path)
}

func formFile(c *fiber.Ctx, key string) *multipart.FileHeader {
	fh, err := c.FormFile(key)
	if err != nil {
		return nil
	}
	return fh
}
