// Package media captures and stores repair photos.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/kimhsiao/fixdesk/backend/internal/errors"
)

// DirName is the directory under the data dir that holds imported photos.
const DirName = "images"

const (
	// DefaultMaxWidth bounds the width of stored photos, in pixels.
	DefaultMaxWidth = 1600
	defaultQuality  = 85
)

// ErrNoImage is returned by a Camera when the user dismisses it without
// choosing an image.
var ErrNoImage = errors.New(errors.ErrCancelled, "no image chosen")

// Camera is the platform image picker. Capture returns the path of the
// captured or chosen file.
type Camera interface {
	Capture(ctx context.Context) (string, error)
}

// Library stores photos as JPEG files under <dataDir>/images.
type Library struct {
	dir      string
	maxWidth int
}

// NewLibrary creates a Library rooted at dataDir. maxWidth <= 0 selects
// DefaultMaxWidth.
func NewLibrary(dataDir string, maxWidth int) *Library {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &Library{dir: filepath.Join(dataDir, DirName), maxWidth: maxWidth}
}

// Dir returns the directory photos are written to.
func (l *Library) Dir() string {
	return l.dir
}

// Import copies the image at srcPath into the library and returns the new path.
func (l *Library) Import(srcPath string) (string, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return "", errors.Wrap(errors.ErrValidation, "failed to open image", err)
	}
	defer f.Close()
	return l.ImportReader(f)
}

// ImportReader decodes an image from r, applies its EXIF orientation,
// shrinks it to the maximum width and stores it as a new JPEG file.
func (l *Library) ImportReader(r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", errors.Wrap(errors.ErrValidation, "unsupported image", err)
	}
	if img.Bounds().Dx() > l.maxWidth {
		img = imaging.Resize(img, l.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(defaultQuality)); err != nil {
		return "", errors.Wrap(errors.ErrInternal, "failed to encode image", err)
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", errors.Wrap(errors.ErrInternal, "failed to create image directory", err)
	}
	path := filepath.Join(l.dir, uuid.NewString()+".jpg")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", errors.Wrap(errors.ErrInternal, "failed to write image", err)
	}
	return path, nil
}

// Remove deletes a photo previously returned by Import. Paths outside the
// library are ignored, as are files that no longer exist.
func (l *Library) Remove(path string) error {
	if !l.Owns(path) {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}

// Owns reports whether path lies inside the library directory.
func (l *Library) Owns(path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(l.dir, filepath.Clean(path))
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
