package upload

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"

	"podvision/internal/services"
)

// Audio describes the selected audio file.
type Audio struct {
	Name   string
	Path   string
	Size   int64
	Digest string
	// Open returns a fresh reader over the audio content.
	Open func() (io.ReadCloser, error)
}

// AudioFromFile stats path, fingerprints it with BLAKE3 and returns an Audio
// that reopens the file on each submission.
func AudioFromFile(path string) (Audio, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Audio{}, services.Wrap(services.ErrValidation, "select audio", fmt.Sprintf("cannot read %s", path), err)
	}
	if !info.Mode().IsRegular() {
		return Audio{}, services.Wrap(services.ErrValidation, "select audio", fmt.Sprintf("%s is not a regular file", path), nil)
	}
	digest, err := fileDigest(path)
	if err != nil {
		return Audio{}, services.Wrap(services.ErrValidation, "select audio", fmt.Sprintf("cannot read %s", path), err)
	}
	return Audio{
		Name:   filepath.Base(path),
		Path:   path,
		Size:   info.Size(),
		Digest: digest,
		Open:   func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ShortDigest returns the first 12 hex characters of the content digest.
func (a Audio) ShortDigest() string {
	if len(a.Digest) <= 12 {
		return a.Digest
	}
	return a.Digest[:12]
}
