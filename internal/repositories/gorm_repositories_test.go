package repositories_test

import (
	"testing"
	"time"

	"closet/internal/database"
	"closet/internal/models"
	"closet/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func createUser(t *testing.T, repo repositories.UserRepository, name string) *models.User {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@x.com", Password: "hash"}
	require.NoError(t, repo.Create(user))
	return user
}

func strPtr(s string) *string { return &s }

func TestGORMUserRepository(t *testing.T) {
	repo := repositories.NewGORMUserRepository(openTestDB(t))
	alice := createUser(t, repo, "alice")
	assert.NotZero(t, alice.ID)

	byName, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byEmail, err := repo.GetByEmail("alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", byEmail.Username)

	byID, err := repo.GetByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", byID.Email)

	_, err = repo.GetByUsername("nobody")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	dup := &models.User{Username: "alice", Email: "other@x.com", Password: "hash"}
	assert.ErrorIs(t, repo.Create(dup), repositories.ErrDuplicate)
}

func TestGORMClothingRepositoryScopesByUser(t *testing.T) {
	db := openTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	repo := repositories.NewGORMClothingRepository(db)
	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(&models.Clothing{Filename: "a.png", Category: "top", UserID: alice.ID, Color: strPtr("red")}))
	}
	bobsShirt := &models.Clothing{Filename: "b.png", Category: "bottom", UserID: bob.ID}
	require.NoError(t, repo.Create(bobsShirt))

	clothes, err := repo.ListByUser(alice.ID)
	require.NoError(t, err)
	assert.Len(t, clothes, 3)
	for _, c := range clothes {
		assert.Equal(t, alice.ID, c.UserID)
		assert.Equal(t, "red", *c.Color)
		assert.False(t, c.UploadedAt.IsZero())
	}

	none, err := repo.ListByUser(9999)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	count, err := repo.CountExisting([]uint{clothes[0].ID, bobsShirt.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGORMOutfitRepositoryRoundTripsIDs(t *testing.T) {
	db := openTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	clothes := repositories.NewGORMClothingRepository(db)
	repo := repositories.NewGORMOutfitRepository(db)
	alice := createUser(t, users, "alice")

	top := &models.Clothing{Filename: "t.png", Category: "top", UserID: alice.ID}
	require.NoError(t, clothes.Create(top))

	outfit := &models.Outfit{UserID: alice.ID, TopID: &top.ID, Name: strPtr("casual")}
	require.NoError(t, repo.Create(outfit))

	outfits, err := repo.ListByUser(alice.ID)
	require.NoError(t, err)
	require.Len(t, outfits, 1)
	assert.Equal(t, top.ID, *outfits[0].TopID)
	assert.Nil(t, outfits[0].BottomID)
	assert.Nil(t, outfits[0].OnePieceID)
	assert.Equal(t, "casual", *outfits[0].Name)

	missing := uint(9999)
	dangling := &models.Outfit{UserID: alice.ID, BottomID: &missing}
	assert.ErrorIs(t, repo.Create(dangling), repositories.ErrInvalidReference)
}

func TestGORMTryOnJobRepository(t *testing.T) {
	db := openTestDB(t)
	users := repositories.NewGORMUserRepository(db)
	repo := repositories.NewGORMTryOnJobRepository(db)
	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	job := &models.TryOnJob{UserID: alice.ID, UserImage: "u.png", ClothingImage: "c.png", ResultFilename: "u_c.png", Status: models.TryOnStatusQueued}
	require.NoError(t, repo.Create(job))
	assert.NotEmpty(t, job.ID)

	_, err := repo.GetForUser(job.ID, bob.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	now := time.Now()
	require.NoError(t, repo.UpdateStatus(job.ID, models.TryOnStatusSucceeded, "/results/u_c.png", "", &now))

	loaded, err := repo.GetForUser(job.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TryOnStatusSucceeded, loaded.Status)
	assert.Equal(t, "/results/u_c.png", loaded.ResultURL)
	assert.NotNil(t, loaded.FinishedAt)

	err = repo.UpdateStatus("missing", models.TryOnStatusFailed, "", "x", nil)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
