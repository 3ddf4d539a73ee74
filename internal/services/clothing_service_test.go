package services_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"closet/internal/apperrors"
	"closet/internal/models"
	"closet/internal/services"
	"closet/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newClothingService(t *testing.T, repo *MockClothingRepository) (*services.ClothingService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	return services.NewClothingService(repo, store, []string{"png"}, nil), dir
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestClothingService_UploadClothing(t *testing.T) {
	mockRepo := new(MockClothingRepository)
	svc, dir := newClothingService(t, mockRepo)

	mockRepo.On("Create", mock.MatchedBy(func(c *models.Clothing) bool {
		return c.UserID == 4 && c.Category == "top" && *c.Color == "red" && c.Season == nil
	})).Return(nil).Once()

	clothing, err := svc.UploadClothing(context.Background(), 4, services.UploadClothingInput{
		File:     fileHeader(t, "../My Shirt.PNG", onePixelPNG),
		Category: "top",
		Color:    strPtr("red"),
		Season:   strPtr(" "),
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)

	assert.True(t, strings.HasSuffix(clothing.Filename, "_My_Shirt.PNG"), clothing.Filename)
	assert.NotContains(t, clothing.Filename, "..")
	assert.Equal(t, []string{clothing.Filename}, storedFiles(t, dir))

	saved, err := os.ReadFile(filepath.Join(dir, clothing.Filename))
	require.NoError(t, err)
	assert.Equal(t, onePixelPNG, saved)
}

func TestClothingService_UploadClothingNamesDoNotCollide(t *testing.T) {
	mockRepo := new(MockClothingRepository)
	svc, dir := newClothingService(t, mockRepo)
	mockRepo.On("Create", mock.Anything).Return(nil).Twice()

	for i := 0; i < 2; i++ {
		_, err := svc.UploadClothing(context.Background(), 1, services.UploadClothingInput{
			File:     fileHeader(t, "shirt.png", onePixelPNG),
			Category: "top",
		})
		require.NoError(t, err)
	}
	assert.Len(t, storedFiles(t, dir), 2)
}

func TestClothingService_UploadClothingRejectsInput(t *testing.T) {
	cases := map[string]services.UploadClothingInput{
		"no file":        {Category: "top"},
		"empty filename": {File: fileHeader(t, "x.png", onePixelPNG), Category: "top"},
		"extension":      {File: fileHeader(t, "shirt.jpg", onePixelPNG), Category: "top"},
		"dot only name":  {File: fileHeader(t, "...png", onePixelPNG), Category: "top"},
		"content":        {File: fileHeader(t, "shirt.png", []byte("GIF89a not a png")), Category: "top"},
		"category":       {File: fileHeader(t, "shirt.png", onePixelPNG), Category: "  "},
	}
	cases["empty filename"].File.Filename = ""

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			mockRepo := new(MockClothingRepository)
			svc, dir := newClothingService(t, mockRepo)

			_, err := svc.UploadClothing(context.Background(), 1, in)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything)
			assert.Empty(t, storedFiles(t, dir), "no file may be written")
		})
	}
}

func TestClothingService_UploadClothingRemovesFileWhenInsertFails(t *testing.T) {
	mockRepo := new(MockClothingRepository)
	svc, dir := newClothingService(t, mockRepo)
	mockRepo.On("Create", mock.Anything).Return(errors.New("constraint failed")).Once()

	_, err := svc.UploadClothing(context.Background(), 1, services.UploadClothingInput{
		File:     fileHeader(t, "shirt.png", onePixelPNG),
		Category: "top",
	})
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
	assert.Empty(t, storedFiles(t, dir))
	mockRepo.AssertExpectations(t)
}

func TestClothingService_ListAndOpen(t *testing.T) {
	mockRepo := new(MockClothingRepository)
	svc, dir := newClothingService(t, mockRepo)
	ctx := context.Background()

	mockRepo.On("ListByUser", uint(2)).Return([]models.Clothing{{ID: 1, Category: "top"}}, nil).Once()
	mockRepo.On("ListByUser", uint(3)).Return(nil, errors.New("db down")).Once()

	clothes, err := svc.ListClothing(2)
	require.NoError(t, err)
	assert.Len(t, clothes, 1)
	_, err = svc.ListClothing(3)
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), onePixelPNG, 0o644))
	rc, err := svc.OpenImage(ctx, "a.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, onePixelPNG, data)

	_, err = svc.OpenImage(ctx, "missing.png")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}
