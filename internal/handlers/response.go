package handlers

import (
	"errors"
	"fmt"
	"log"

	"closet/internal/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError renders err with the status its kind maps to. Internal
// failures are logged and their cause is not shown to the client.
func respondError(c *fiber.Ctx, message string, err error) error {
	status := apperrors.HTTPStatus(err)
	body := fiber.Map{"message": message}

	var appErr *apperrors.Error
	switch {
	case status == fiber.StatusInternalServerError && apperrors.Is(err, apperrors.KindExternalProcess):
		log.Printf("%s: %v", message, err)
		errors.As(err, &appErr)
		body["error"] = appErr.Message
		if appErr.Details != "" {
			body["details"] = appErr.Details
		}
	case status == fiber.StatusInternalServerError:
		log.Printf("%s: %v", message, err)
		body["error"] = "internal server error"
	case errors.As(err, &appErr):
		body["error"] = appErr.Message
	default:
		body["error"] = err.Error()
	}
	return c.Status(status).JSON(body)
}

// parseAndValidate fills req from the body and runs its validate tags.
// It writes the 400 response itself and returns false on failure.
func parseAndValidate(c *fiber.Ctx, validate *validator.Validate, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"error":   err.Error(),
			})
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return true, nil
}
