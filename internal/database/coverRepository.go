package database

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ds124wfegd/newscover/internal/pkg/storage"
)

func NewCoverRepository(storage storage.FileStorage) CoverRepository {
	return &fileCoverRepository{storage: storage}
}

// Save encodes img as PNG and writes it as name.png. The directory must
// already exist; nothing is left on disk when encoding or writing fails.
func (r *fileCoverRepository) Save(name string, img image.Image) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if !r.storage.Exists(".") {
		return "", ErrDirNotExist
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode cover: %w", err)
	}

	file := name + coverExt
	if err := r.storage.Save(file, &buf); err != nil {
		return "", fmt.Errorf("write cover: %w", err)
	}
	return r.storage.Location(file), nil
}

func (r *fileCoverRepository) Open(name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	reader, err := r.storage.Get(name + coverExt)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCoverMissing
		}
		return nil, err
	}
	return reader, nil
}

func (r *fileCoverRepository) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := r.storage.Delete(name + coverExt); err != nil {
		if os.IsNotExist(err) {
			return ErrCoverMissing
		}
		return err
	}
	return nil
}

func (r *fileCoverRepository) Location(name string) string {
	return r.storage.Location(name + coverExt)
}

// validateName keeps covers inside the repository directory.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
