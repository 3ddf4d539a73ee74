package tryon_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"closet/internal/tryon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutStageAndManifest(t *testing.T) {
	layout := tryon.Layout{Root: t.TempDir()}
	require.NoError(t, layout.Ensure())

	pair, err := layout.Stage(strings.NewReader("person"), "png", strings.NewReader("shirt"), "png")
	require.NoError(t, err)
	assert.NotEqual(t, pair.UserImage, pair.ClothingImage)
	assert.True(t, strings.HasSuffix(pair.UserImage, ".png"))

	data, err := os.ReadFile(filepath.Join(layout.ImageDir(), pair.UserImage))
	require.NoError(t, err)
	assert.Equal(t, "person", string(data))
	data, err = os.ReadFile(filepath.Join(layout.ClothDir(), pair.ClothingImage))
	require.NoError(t, err)
	assert.Equal(t, "shirt", string(data))

	require.NoError(t, layout.WriteManifest(pair))
	manifest, err := os.ReadFile(layout.ManifestPath())
	require.NoError(t, err)
	assert.Equal(t, pair.UserImage+" "+pair.ClothingImage+"\n", string(manifest))
}

func TestPairResultNameIsDeterministic(t *testing.T) {
	pair := tryon.Pair{UserImage: "aaa.png", ClothingImage: "bbb.jpg"}
	assert.Equal(t, "aaa_bbb.png", pair.ResultName())
	assert.Equal(t, pair.ResultName(), tryon.Pair{UserImage: "aaa.png", ClothingImage: "bbb.jpg"}.ResultName())
}

func TestLayoutResultExists(t *testing.T) {
	layout := tryon.Layout{Root: t.TempDir()}
	require.NoError(t, layout.Ensure())

	assert.False(t, layout.ResultExists("x.png"))
	require.NoError(t, os.WriteFile(filepath.Join(layout.OutputDir(), "x.png"), []byte("r"), 0o644))
	assert.True(t, layout.ResultExists("x.png"))
	assert.False(t, layout.ResultExists("../input/pairs.txt"))
}

func TestNewNameIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := tryon.NewName("png")
		assert.False(t, seen[n])
		seen[n] = true
	}
	assert.True(t, strings.HasSuffix(tryon.NewName(""), ".png"))
}
