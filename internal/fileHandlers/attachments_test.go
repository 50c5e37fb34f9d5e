package fileHandlers

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestFromReader(t *testing.T) {
	tests := []struct {
		name            string
		inputName       string
		data            []byte
		wantContentType string
		wantSuffix      string
	}{
		{"Text", "notes.txt", []byte("hello there"), "text/plain; charset=utf-8", "notes.txt"},
		{"PngNamed", "cat.png", pngHeader, "image/png", "cat.png"},
		{"PngUnnamed", "", pngHeader, "image/png", ".png"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			attachment, err := FromReader(test.inputName, bytes.NewReader(test.data))
			if err != nil {
				t.Fatal(err)
			}
			if attachment.ContentType != test.wantContentType {
				t.Errorf("got content type %q, want %q", attachment.ContentType, test.wantContentType)
			}
			if !strings.HasSuffix(attachment.Name, test.wantSuffix) {
				t.Errorf("got name %q, want suffix %q", attachment.Name, test.wantSuffix)
			}
			if len(attachment.Hash) != 64 {
				t.Errorf("got hash %q", attachment.Hash)
			}
		})
	}
}

func TestFromReaderTooLarge(t *testing.T) {
	data := bytes.Repeat([]byte("a"), MaxAttachmentSize+1)
	if _, err := FromReader("big.txt", bytes.NewReader(data)); !errors.Is(err, ErrAttachmentTooLarge) {
		t.Errorf("got %v, want ErrAttachmentTooLarge", err)
	}
}

func TestReadAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	attachment, err := ReadAttachment(path)
	if err != nil {
		t.Fatal(err)
	}
	if attachment.Name != "hello.txt" || string(attachment.Data) != "hello" {
		t.Errorf("got %+v", attachment)
	}

	if _, err := ReadAttachment(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("reading a missing file succeeded")
	}
}
