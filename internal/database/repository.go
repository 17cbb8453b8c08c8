package database

import (
	"errors"
	"image"
	"io"

	"github.com/ds124wfegd/newscover/internal/pkg/storage"
)

const coverExt = ".png"

var (
	ErrInvalidName  = errors.New("invalid cover name")
	ErrDirNotExist  = errors.New("output directory does not exist")
	ErrCoverMissing = errors.New("cover not found")
)

// CoverRepository keeps finished covers as PNG files in one directory.
// Names are given without the extension.
type CoverRepository interface {
	Save(name string, img image.Image) (string, error)
	Open(name string) (io.ReadCloser, error)
	Delete(name string) error
	Location(name string) string
}

type fileCoverRepository struct {
	storage storage.FileStorage
}
