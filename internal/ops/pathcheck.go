package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/chefai/internal/errors"
)

// DocumentExt is the extension of every saved export.
const DocumentExt = ".pdf"

// ValidateDocumentPath checks a save path for an exported document:
// no traversal, the document extension, directly inside exportsDir (no
// subdirectories), and neither the directory nor the file may be a symlink.
//
// The "directly inside" rule means no intermediate directory can be swapped
// for a symlink between validation and open. O_NOFOLLOW covers the final component.
func ValidateDocumentPath(path, exportsDir string) error {
	if path == "" {
		return errors.NewValidation("path is required")
	}
	if containsTraversal(path) {
		return errors.NewValidation("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if !strings.EqualFold(filepath.Ext(cleaned), DocumentExt) {
		return errors.NewValidation(fmt.Sprintf("path must have %s extension", DocumentExt))
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewValidation(fmt.Sprintf("invalid path: %v", err))
	}
	allowed, err := resolveDir(exportsDir)
	if err != nil {
		return err
	}

	parentDir := filepath.Dir(absPath)
	if filepath.Clean(parentDir) != allowed {
		return errors.NewValidation(fmt.Sprintf("file must be directly in %s", allowed))
	}

	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewValidation("path must not be a symlink")
	}
	return nil
}

// resolveDir returns exportsDir as an absolute, cleaned path. An existing
// symlinked directory is resolved so the comparison is against its target.
func resolveDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.NewInternal(fmt.Errorf("exports directory is not configured"))
	}
	abs, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("invalid exports directory: %w", err))
	}
	if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return "", errors.NewInternal(fmt.Errorf("cannot resolve exports directory: %w", err))
		}
		abs = resolved
	}
	return abs, nil
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Forward slashes count on every platform
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
