package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StageDirectory creates an empty sibling of target to be filled and then
// moved into place with ReplaceDirectory.
func StageDirectory(target string) (string, error) {
	cleanTarget := filepath.Clean(target)
	parent := filepath.Dir(cleanTarget)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}
	staging, err := os.MkdirTemp(parent, stagingPattern(cleanTarget))
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	return staging, nil
}

// WriteTreeFile writes content at the slash separated relative name under root.
func WriteTreeFile(root string, name string, content []byte, mode os.FileMode) error {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) || strings.Contains(name, `\`) {
		return fmt.Errorf("path must be local relative: %s", name)
	}
	path := filepath.Join(root, local)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}
	// #nosec G306 -- mode is chosen by the caller for published pass content.
	if err := os.WriteFile(path, content, mode); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ReplaceDirectory moves staging to target. A previous target is moved aside
// first and restored if the final rename fails.
func ReplaceDirectory(staging string, target string) error {
	cleanTarget := filepath.Clean(target)
	previous := ""
	if info, err := os.Lstat(cleanTarget); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("destination exists and is not a directory: %s", cleanTarget)
		}
		previous = filepath.Clean(staging) + ".old"
		if err := os.Rename(cleanTarget, previous); err != nil {
			return fmt.Errorf("move previous directory aside: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat destination: %w", err)
	}
	if err := os.Rename(staging, cleanTarget); err != nil {
		if previous != "" {
			if restoreErr := os.Rename(previous, cleanTarget); restoreErr != nil {
				return fmt.Errorf("rename staging directory: %w (restore previous directory: %v)", err, restoreErr)
			}
		}
		return fmt.Errorf("rename staging directory: %w", err)
	}
	if previous != "" {
		if err := os.RemoveAll(previous); err != nil {
			return fmt.Errorf("remove previous directory: %w", err)
		}
	}
	syncDir(filepath.Dir(cleanTarget))
	return nil
}
