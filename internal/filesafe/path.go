// Package filesafe holds the path-containment and URL-allowlist checks
// shared by every file tool (files_read, files_peek, files_range,
// file_download_url): symlink/hardlink escape prevention adapted from
// the host-execution path guard, generalized from "one workspace root"
// to "one root per project's upload directory".
package filesafe

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// ResolvePath resolves path relative to root and rejects anything that
// canonicalizes outside root — including via symlink or broken-symlink
// escape. Set root to the project's upload directory; every file tool
// call is scoped to exactly one project.
func ResolvePath(path, root string) (string, error) {
	var resolved string
	if filepath.IsAbs(path) {
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Clean(filepath.Join(root, path))
	}

	absRoot, _ := filepath.Abs(root)
	rootReal, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		rootReal = absRoot
	}

	absResolved, _ := filepath.Abs(resolved)
	real, err := filepath.EvalSymlinks(absResolved)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("filesafe: path resolve failed", "path", path, "error", err)
			return "", fmt.Errorf("access denied: cannot resolve path")
		}
		if linfo, lerr := os.Lstat(absResolved); lerr == nil && linfo.Mode()&os.ModeSymlink != 0 {
			target, readErr := os.Readlink(absResolved)
			if readErr != nil {
				return "", fmt.Errorf("access denied: cannot resolve symlink")
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(absResolved), target)
			}
			target = filepath.Clean(target)

			resolvedTarget, resolveErr := resolveThroughExistingAncestors(target)
			if resolveErr != nil {
				slog.Warn("filesafe: broken symlink resolve failed", "path", path, "target", target)
				return "", fmt.Errorf("access denied: cannot resolve broken symlink target")
			}
			if !isPathInside(resolvedTarget, rootReal) {
				slog.Warn("filesafe: broken symlink escape", "path", path, "target", resolvedTarget, "root", rootReal)
				return "", fmt.Errorf("access denied: broken symlink target outside root")
			}
			real = resolvedTarget
		} else {
			parentReal, parentErr := filepath.EvalSymlinks(filepath.Dir(absResolved))
			if parentErr != nil {
				return "", fmt.Errorf("access denied: cannot resolve path")
			}
			real = filepath.Join(parentReal, filepath.Base(absResolved))
		}
	}

	if !isPathInside(real, rootReal) {
		slog.Warn("filesafe: path escape", "path", path, "resolved", real, "root", rootReal)
		return "", fmt.Errorf("access denied: path outside project root")
	}
	if hasMutableSymlinkParent(real) {
		slog.Warn("filesafe: mutable symlink parent", "path", path, "resolved", real)
		return "", fmt.Errorf("access denied: path contains mutable symlink component")
	}
	if err := checkHardlink(real); err != nil {
		return "", err
	}
	return real, nil
}

func isPathInside(child, parent string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

func resolveThroughExistingAncestors(target string) (string, error) {
	if real, err := filepath.EvalSymlinks(target); err == nil {
		return real, nil
	}
	current := target
	var tail []string
	for {
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent
		if realParent, err := filepath.EvalSymlinks(current); err == nil {
			result := realParent
			for _, component := range tail {
				result = filepath.Join(result, component)
			}
			return result, nil
		}
	}
	return filepath.Clean(target), nil
}

func hasMutableSymlinkParent(path string) bool {
	clean := filepath.Clean(path)
	components := strings.Split(clean, string(filepath.Separator))
	current := string(filepath.Separator)
	for _, comp := range components {
		if comp == "" {
			continue
		}
		current = filepath.Join(current, comp)
		info, err := os.Lstat(current)
		if err != nil {
			break
		}
		if info.Mode()&os.ModeSymlink != 0 {
			parentDir := filepath.Dir(current)
			if syscall.Access(parentDir, 0x2) == nil {
				return true
			}
		}
	}
	return false
}

func checkHardlink(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		return nil
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		if stat.Nlink > 1 {
			slog.Warn("filesafe: hardlink rejected", "path", path, "nlink", stat.Nlink)
			return fmt.Errorf("access denied: hardlinked file not allowed")
		}
	}
	return nil
}
