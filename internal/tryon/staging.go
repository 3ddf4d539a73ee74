package tryon

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"closet/internal/pathutil"

	"github.com/google/uuid"
)

// Layout is the directory tree the external program reads and writes:
//
//	<root>/input/image/<person image>
//	<root>/input/cloth/<clothing image>
//	<root>/input/pairs.txt   "<person image> <clothing image>\n"
//	<root>/output/<result>
type Layout struct {
	Root string
}

func (l Layout) ImageDir() string     { return filepath.Join(l.Root, "input", "image") }
func (l Layout) ClothDir() string     { return filepath.Join(l.Root, "input", "cloth") }
func (l Layout) ManifestPath() string { return filepath.Join(l.Root, "input", "pairs.txt") }
func (l Layout) OutputDir() string    { return filepath.Join(l.Root, "output") }

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.ImageDir(), l.ClothDir(), l.OutputDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create try-on directory %s: %w", dir, err)
		}
	}
	return nil
}

// Pair names one staged person image and one staged clothing image.
type Pair struct {
	UserImage     string
	ClothingImage string
}

// ResultName is the file the external program writes for the pair.
func (p Pair) ResultName() string {
	return pathutil.Stem(p.UserImage) + "_" + pathutil.Stem(p.ClothingImage) + ".png"
}

// NewName returns a collision-resistant filename with extension ext.
func NewName(ext string) string {
	if ext == "" {
		ext = "png"
	}
	return uuid.New().String() + "." + ext
}

// Stage writes both images under freshly generated names.
func (l Layout) Stage(userImage io.Reader, userExt string, clothingImage io.Reader, clothingExt string) (Pair, error) {
	pair := Pair{UserImage: NewName(userExt), ClothingImage: NewName(clothingExt)}

	if err := writeFile(filepath.Join(l.ImageDir(), pair.UserImage), userImage); err != nil {
		return Pair{}, err
	}
	if err := writeFile(filepath.Join(l.ClothDir(), pair.ClothingImage), clothingImage); err != nil {
		_ = os.Remove(filepath.Join(l.ImageDir(), pair.UserImage))
		return Pair{}, err
	}
	return pair, nil
}

// WriteManifest replaces the manifest with the single line naming pair.
func (l Layout) WriteManifest(pair Pair) error {
	line := pair.UserImage + " " + pair.ClothingImage + "\n"
	if err := os.WriteFile(l.ManifestPath(), []byte(line), 0o644); err != nil {
		return fmt.Errorf("failed to write try-on manifest: %w", err)
	}
	return nil
}

// ResultPath resolves name inside the output directory.
func (l Layout) ResultPath(name string) (string, error) {
	return pathutil.SecureJoin(l.OutputDir(), name)
}

// ResultExists reports whether the program produced name.
func (l Layout) ResultExists(name string) bool {
	path, err := l.ResultPath(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func writeFile(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return out.Close()
}
