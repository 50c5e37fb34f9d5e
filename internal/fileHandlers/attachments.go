package fileHandlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// MaxAttachmentSize is the largest file the service accepts in one upload.
const MaxAttachmentSize = 8 << 20

var ErrAttachmentTooLarge = errors.New("attachment is too large")

type Attachment struct {
	Name        string
	ContentType string
	Hash        string
	Data        []byte
}

func ReadAttachment(path string) (*Attachment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err := file.Close()
		if err != nil {
			fmt.Println(err)
		}
	}()

	return FromReader(filepath.Base(path), file)
}

// FromReader reads an attachment and detects its content type from the bytes.
// An empty name is replaced by the hash plus the detected extension.
func FromReader(name string, r io.Reader) (*Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAttachmentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxAttachmentSize {
		return nil, ErrAttachmentTooLarge
	}

	detected := mimetype.Detect(data)

	// use the hash for filename
	hash := sha256.Sum256(data)
	hashText := hex.EncodeToString(hash[:])
	if name == "" {
		name = hashText + detected.Extension()
	}

	return &Attachment{
		Name:        name,
		ContentType: detected.String(),
		Hash:        hashText,
		Data:        data,
	}, nil
}
