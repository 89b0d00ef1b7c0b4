// Package zipx writes and reads the zip container used for pass archives.
// Entries are written sequentially in caller order with a fixed modification
// time, so identical inputs produce identical archive bytes.
package zipx

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

const MaxEntryBytes = int64(100 * 1024 * 1024)

var deterministicTimestamp = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type File struct {
	Path string
	Data []byte
	Mode os.FileMode
}

type Writer struct {
	zw   *zip.Writer
	seen map[string]struct{}
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), seen: map[string]struct{}{}}
}

// EntryError reports which entry a write failed on.
type EntryError struct {
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return e.Err.Error()
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Add appends one entry. Paths must be relative, slash separated and unique.
// Failures are returned as *EntryError.
func (w *Writer) Add(file File) error {
	if err := w.add(file); err != nil {
		return &EntryError{Path: file.Path, Err: err}
	}
	return nil
}

func (w *Writer) add(file File) error {
	if err := ValidatePath(file.Path); err != nil {
		return err
	}
	if _, exists := w.seen[file.Path]; exists {
		return fmt.Errorf("duplicate zip entry: %s", file.Path)
	}
	mode := file.Mode
	if mode == 0 {
		mode = 0o644
	}
	header := &zip.FileHeader{
		Name:     file.Path,
		Method:   zip.Deflate,
		Modified: deterministicTimestamp,
	}
	header.SetMode(mode)
	entry, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", file.Path, err)
	}
	if _, err := entry.Write(file.Data); err != nil {
		return fmt.Errorf("write zip entry %s: %w", file.Path, err)
	}
	w.seen[file.Path] = struct{}{}
	return nil
}

func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

// WriteDeterministicZip writes files in order and finalizes the archive.
func WriteDeterministicZip(w io.Writer, files []File) error {
	writer := NewWriter(w)
	for _, file := range files {
		if err := writer.Add(file); err != nil {
			return err
		}
	}
	return writer.Close()
}

func ValidatePath(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("zip entry path is required")
	}
	if strings.Contains(name, "\\") {
		return fmt.Errorf("zip entry path must use forward slashes: %s", name)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("zip entry path must be relative: %s", name)
	}
	if path.Clean(name) != name {
		return fmt.Errorf("zip entry path must be clean: %s", name)
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return fmt.Errorf("zip entry path must not traverse parent directories: %s", name)
		}
	}
	return nil
}

// Archive is a read-only view over zip bytes that preserves entry order.
type Archive struct {
	order []string
	files map[string]*zip.File
}

func ReadArchive(data []byte) (*Archive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	archive := &Archive{files: make(map[string]*zip.File, len(reader.File))}
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if _, exists := archive.files[file.Name]; exists {
			return nil, fmt.Errorf("duplicate zip entry: %s", file.Name)
		}
		archive.files[file.Name] = file
		archive.order = append(archive.order, file.Name)
	}
	return archive, nil
}

// Names returns entry names in archive order.
func (a *Archive) Names() []string {
	return append([]string(nil), a.order...)
}

func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

func (a *Archive) Open(name string) (io.ReadCloser, error) {
	file, ok := a.files[name]
	if !ok {
		return nil, fmt.Errorf("missing zip entry: %s", name)
	}
	return file.Open()
}

func (a *Archive) ReadFile(name string) ([]byte, error) {
	reader, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()
	payload, err := io.ReadAll(io.LimitReader(reader, MaxEntryBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read zip entry %s: %w", name, err)
	}
	if int64(len(payload)) > MaxEntryBytes {
		return nil, fmt.Errorf("zip entry too large: %s", name)
	}
	return payload, nil
}
