// Package filestore keeps item images in a media directory.
package filestore

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/erazemk/totetrack/internal/apperr"
	"github.com/erazemk/totetrack/internal/imaging"
)

// Dir stores images as JPEG files directly under Root.
type Dir struct {
	Root string
}

// NewDir creates the media directory if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &Dir{Root: root}, nil
}

// Store validates data as an image, normalizes it and writes it under a
// name derived from proposedName. It returns the stored file name.
func (d *Dir) Store(data []byte, proposedName string) (string, error) {
	img, err := imaging.Process(data)
	if err != nil {
		if errors.Is(err, imaging.ErrInvalidImage) {
			return "", apperr.Wrap(apperr.KindValidation, "invalid image", err)
		}
		return "", err
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generating file suffix: %w", err)
	}
	name := sanitize(filepath.Base(proposedName), 160) + "_" + hex.EncodeToString(suffix) + ".jpg"

	tmp, err := os.CreateTemp(d.Root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	_, err = tmp.Write(img.Data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), filepath.Join(d.Root, name))
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing image: %w", err)
	}

	return name, nil
}

// resolve maps a stored path to a file under Root. Only the base name is
// used.
func (d *Dir) resolve(path string) (string, bool) {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	if base == "." || base == ".." || base == "/" || base == "" || strings.HasPrefix(base, ".") {
		return "", false
	}
	return filepath.Join(d.Root, base), true
}

// Delete removes a stored image. Missing files are ignored.
func (d *Dir) Delete(path string) {
	target, ok := d.resolve(path)
	if !ok {
		return
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to delete image", "path", target, "error", err)
	}
}

// Open opens a stored image for reading.
func (d *Dir) Open(name string) (*os.File, error) {
	target, ok := d.resolve(name)
	if !ok || filepath.Base(name) != name {
		return nil, fs.ErrNotExist
	}
	return os.Open(target)
}
