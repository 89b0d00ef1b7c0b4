package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// WriteFileAtomic writes content to a hidden sibling of path and renames it
// over path, so readers see either the old archive or the complete new one.
func WriteFileAtomic(path string, content []byte, mode os.FileMode) error {
	parent := filepath.Dir(path)
	tempFile, err := os.CreateTemp(parent, stagingPattern(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tempPath)
		}
	}()

	if err := writeAndClose(tempFile, content, mode); err != nil {
		return err
	}
	if err := renameOver(tempPath, path); err != nil {
		return err
	}
	committed = true
	syncDir(parent)
	return nil
}

func writeAndClose(file *os.File, content []byte, mode os.FileMode) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{"write", func() error { _, err := file.Write(content); return err }},
		{"sync", file.Sync},
		{"chmod", func() error { return file.Chmod(mode) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			_ = file.Close()
			return fmt.Errorf("%s temp file: %w", step.name, err)
		}
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return nil
}

// renameOver retries once after removing the destination on Windows, where
// rename does not replace an existing file.
func renameOver(from string, to string) error {
	err := os.Rename(from, to)
	if err == nil {
		return nil
	}
	if runtime.GOOS != "windows" {
		return fmt.Errorf("rename temp file: %w", err)
	}
	if removeErr := os.Remove(to); removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("remove destination before rename: %w", removeErr)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename temp file after remove: %w", err)
	}
	return nil
}

func stagingPattern(target string) string {
	return "." + filepath.Base(target) + ".tmp-*"
}

func syncDir(dir string) {
	// #nosec G304 -- directory path is derived from the caller's destination path.
	handle, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = handle.Sync()
	_ = handle.Close()
}
