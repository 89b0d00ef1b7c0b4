package zipx

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestWriteDeterministicZipPreservesOrderAndBytes(t *testing.T) {
	files := []File{
		{Path: "icon.png", Data: []byte("png-bytes")},
		{Path: "en.lproj/pass.strings", Data: []byte(`"gate" = "Gate";`)},
		{Path: "pass.json", Data: []byte(`{"formatVersion":1}`)},
	}
	var first bytes.Buffer
	if err := WriteDeterministicZip(&first, files); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	var second bytes.Buffer
	if err := WriteDeterministicZip(&second, files); err != nil {
		t.Fatalf("write zip again: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("expected identical archive bytes for identical input")
	}

	archive, err := ReadArchive(first.Bytes())
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	want := []string{"icon.png", "en.lproj/pass.strings", "pass.json"}
	if got := archive.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order: %v", got)
	}
	for _, file := range files {
		data, err := archive.ReadFile(file.Path)
		if err != nil {
			t.Fatalf("read %s: %v", file.Path, err)
		}
		if !bytes.Equal(data, file.Data) {
			t.Fatalf("unexpected bytes for %s", file.Path)
		}
	}
	if archive.Has("manifest.json") {
		t.Fatalf("unexpected manifest.json entry")
	}
	if _, err := archive.ReadFile("manifest.json"); err == nil {
		t.Fatalf("expected missing entry error")
	}
}

func TestWriterRejectsDuplicatesAndUnsafePaths(t *testing.T) {
	writer := NewWriter(&bytes.Buffer{})
	if err := writer.Add(File{Path: "pass.json", Data: []byte("{}")}); err != nil {
		t.Fatalf("add pass.json: %v", err)
	}
	if err := writer.Add(File{Path: "pass.json", Data: []byte("{}")}); err == nil {
		t.Fatalf("expected duplicate entry error")
	}
	for _, name := range []string{"", "/abs.png", "../escape.png", "a/../b.png", `dir\file.png`, "./icon.png"} {
		if err := writer.Add(File{Path: name}); err == nil {
			t.Fatalf("expected path error for %q", name)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteDeterministicZipSurfacesWriterFailure(t *testing.T) {
	files := []File{{Path: "big.bin", Data: bytes.Repeat([]byte("x"), 1<<20)}}
	if err := WriteDeterministicZip(failingWriter{}, files); err == nil {
		t.Fatalf("expected write failure")
	}
}

func TestReadArchiveRejectsGarbage(t *testing.T) {
	if _, err := ReadArchive([]byte("not a zip")); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestWriteDeterministicZipNamesFailingEntry(t *testing.T) {
	files := []File{
		{Path: "icon.png", Data: []byte("png")},
		{Path: "../escape.png", Data: []byte("png")},
	}
	err := WriteDeterministicZip(&bytes.Buffer{}, files)
	var entryErr *EntryError
	if !errors.As(err, &entryErr) {
		t.Fatalf("expected entry error, got %v", err)
	}
	if entryErr.Path != "../escape.png" {
		t.Fatalf("unexpected failing entry: %s", entryErr.Path)
	}
}
