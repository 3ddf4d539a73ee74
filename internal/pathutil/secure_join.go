package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecureJoin joins relativePath under basePath and returns the absolute
// result. Absolute inputs, ".." escapes and symlinks anywhere between the
// base and the target are rejected. The target itself need not exist.
func SecureJoin(basePath, relativePath string) (string, error) {
	baseAbs, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	cleanRel := filepath.Clean(relativePath)
	if cleanRel == "." {
		cleanRel = ""
	}
	if filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("illegal path: absolute paths are not allowed")
	}

	targetAbs, err := filepath.Abs(filepath.Join(baseAbs, cleanRel))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	if err := ensureNoSymlinkBetween(baseAbs, targetAbs); err != nil {
		return "", err
	}
	return targetAbs, nil
}

func ensureNoSymlinkBetween(baseAbs, targetAbs string) error {
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return fmt.Errorf("illegal path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("illegal path: target escapes base directory")
	}

	current := targetAbs
	for {
		info, statErr := os.Lstat(current)
		if statErr == nil {
			if info.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("illegal path: symlink at %s", current)
			}
		} else if !os.IsNotExist(statErr) {
			return fmt.Errorf("check path: %w", statErr)
		}

		if filepath.Clean(current) == filepath.Clean(baseAbs) {
			return nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return fmt.Errorf("illegal path: base directory not found above target")
		}
		current = parent
	}
}
