package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"closet/internal/apperrors"
	"closet/internal/models"
	"closet/internal/pathutil"
	"closet/internal/repositories"
	"closet/internal/storage"

	"github.com/google/uuid"
)

// sniffLen is how much of a file http.DetectContentType looks at.
const sniffLen = 512

// imageTypes maps an extension to the content type its bytes must sniff as.
var imageTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
}

// UploadClothingInput carries the multipart fields of an upload.
type UploadClothingInput struct {
	File     *multipart.FileHeader
	Category string
	Color    *string
	Season   *string
	Occasion *string
}

// ClothingService stores garment images and their rows.
type ClothingService struct {
	clothingRepo repositories.ClothingRepository
	store        storage.Store
	allowed      []string
	events       EventPublisher
}

// NewClothingService creates a new ClothingService accepting files whose
// extension is in allowed.
func NewClothingService(clothingRepo repositories.ClothingRepository, store storage.Store, allowed []string, events EventPublisher) *ClothingService {
	return &ClothingService{
		clothingRepo: clothingRepo,
		store:        store,
		allowed:      allowed,
		events:       events,
	}
}

// UploadClothing saves the file under a fresh name and then inserts the
// row. If the insert fails the saved file is removed again.
func (s *ClothingService) UploadClothing(ctx context.Context, userID uint, in UploadClothingInput) (*models.Clothing, error) {
	if in.File == nil {
		return nil, apperrors.Validation("No file part")
	}
	if in.File.Filename == "" {
		return nil, apperrors.Validation("No selected file")
	}
	if !pathutil.HasAllowedExtension(in.File.Filename, s.allowed) {
		return nil, apperrors.Validation(fmt.Sprintf("Invalid file type, allowed: %s", strings.Join(s.allowed, ", ")))
	}
	safeName := pathutil.SanitizeFilename(in.File.Filename)
	if !pathutil.HasAllowedExtension(safeName, s.allowed) {
		return nil, apperrors.Validation("Invalid file name")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, apperrors.Validation("category is required")
	}

	src, err := in.File.Open()
	if err != nil {
		return nil, apperrors.Internal("failed to read upload", err)
	}
	defer src.Close()

	if err := checkImageContent(src, pathutil.Extension(safeName)); err != nil {
		return nil, err
	}

	filename := uuid.New().String() + "_" + safeName
	if err := s.store.Save(ctx, filename, src); err != nil {
		return nil, apperrors.Internal("failed to save file", err)
	}

	clothing := &models.Clothing{
		Filename: filename,
		Category: category,
		UserID:   userID,
		Color:    nonEmpty(in.Color),
		Season:   nonEmpty(in.Season),
		Occasion: nonEmpty(in.Occasion),
	}
	if err := s.clothingRepo.Create(clothing); err != nil {
		if delErr := s.store.Delete(ctx, filename); delErr != nil {
			log.Printf("Failed to remove %s after failed insert: %v", filename, delErr)
		}
		return nil, apperrors.Internal("failed to save clothing", err)
	}

	publish(s.events, EventClothingUploaded, map[string]interface{}{
		"clothing_id": clothing.ID,
		"user_id":     userID,
		"category":    clothing.Category,
	})
	return clothing, nil
}

// ListClothing returns every item the user uploaded.
func (s *ClothingService) ListClothing(userID uint) ([]models.Clothing, error) {
	clothes, err := s.clothingRepo.ListByUser(userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list clothing", err)
	}
	return clothes, nil
}

// OpenImage opens a stored clothing image by filename.
func (s *ClothingService) OpenImage(ctx context.Context, filename string) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NotFound("image not found")
		}
		return nil, apperrors.Internal("failed to open image", err)
	}
	return rc, nil
}

// checkImageContent sniffs the head of f and rewinds it. Extensions without
// a known type only need to sniff as some image.
func checkImageContent(f multipart.File, ext string) error {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return apperrors.Internal("failed to read upload", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return apperrors.Internal("failed to read upload", err)
	}

	detected := http.DetectContentType(head[:n])
	want, known := imageTypes[ext]
	if (known && detected != want) || (!known && !strings.HasPrefix(detected, "image/")) {
		return apperrors.Validation("file content does not match its extension")
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
