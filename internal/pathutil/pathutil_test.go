package pathutil_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"closet/internal/pathutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"shirt.png":             "shirt.png",
		"My Shirt.PNG":          "My_Shirt.PNG",
		"../../etc/passwd":      "etc_passwd",
		`..\..\windows\win.ini`: "windows_win.ini",
		"  spaced   out  .png":  "spaced_out_.png",
		"café.png":              "cafe.png",
		"ünïcødé.png":           "unicde.png",
		"...":                   "",
		"_hidden_.png_":         "hidden_.png",
		"a;rm -rf $HOME&.png":   "arm_-rf_HOME.png",
	}
	for in, want := range cases {
		assert.Equal(t, want, pathutil.SanitizeFilename(in), "input %q", in)
	}
}

func TestHasAllowedExtension(t *testing.T) {
	allowed := []string{"png"}
	assert.True(t, pathutil.HasAllowedExtension("a.png", allowed))
	assert.True(t, pathutil.HasAllowedExtension("a.PNG", allowed))
	assert.True(t, pathutil.HasAllowedExtension("a.tar.png", allowed))
	assert.False(t, pathutil.HasAllowedExtension("a.jpg", allowed))
	assert.False(t, pathutil.HasAllowedExtension("png", allowed))
	assert.False(t, pathutil.HasAllowedExtension("a.png.exe", allowed))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "abc", pathutil.Stem("abc.png"))
	assert.Equal(t, "a.b", pathutil.Stem("a.b.c"))
	assert.Equal(t, "noext", pathutil.Stem("noext"))
}

func TestSecureJoin(t *testing.T) {
	base := t.TempDir()

	got, err := pathutil.SecureJoin(base, "a/b.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "a", "b.png"), got)

	_, err = pathutil.SecureJoin(base, "../escape.png")
	assert.Error(t, err)

	_, err = pathutil.SecureJoin(base, "a/../../escape.png")
	assert.Error(t, err)

	if runtime.GOOS != "windows" {
		_, err = pathutil.SecureJoin(base, "/etc/passwd")
		assert.Error(t, err)

		outside := t.TempDir()
		require.NoError(t, os.Symlink(outside, filepath.Join(base, "link")))
		_, err = pathutil.SecureJoin(base, "link/file.png")
		assert.Error(t, err)
	}
}
