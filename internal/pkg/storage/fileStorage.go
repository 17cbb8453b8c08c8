package storage

import (
	"io"
	"os"
	"path/filepath"
)

// FileStorage keeps files under one base directory. Paths given to its
// methods are relative to that directory.
type FileStorage interface {
	Save(path string, data io.Reader) error
	Get(path string) (io.ReadCloser, error)
	Delete(path string) error
	Exists(path string) bool
	Location(path string) string
}

type fileStorage struct {
	basePath string
}

func NewFileStorage(basePath string) FileStorage {
	return &fileStorage{basePath: basePath}
}

// Save writes data to path, creating missing parent directories. A file
// that could not be written completely is removed.
func (s *fileStorage) Save(path string, data io.Reader) error {
	fullPath := s.fullPath(path)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(file, data); err != nil {
		file.Close()
		os.Remove(fullPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(fullPath)
		return err
	}
	return nil
}

func (s *fileStorage) Get(path string) (io.ReadCloser, error) {
	return os.Open(s.fullPath(path))
}

func (s *fileStorage) Delete(path string) error {
	return os.Remove(s.fullPath(path))
}

func (s *fileStorage) Exists(path string) bool {
	_, err := os.Stat(s.fullPath(path))
	return !os.IsNotExist(err)
}

// Location reports path the way the caller configured the base: the base
// is used verbatim as a prefix, so "./out/" gives "./out/x.png".
func (s *fileStorage) Location(path string) string {
	switch {
	case s.basePath == "":
		return path
	case os.IsPathSeparator(s.basePath[len(s.basePath)-1]):
		return s.basePath + path
	default:
		return s.basePath + string(filepath.Separator) + path
	}
}

func (s *fileStorage) fullPath(path string) string {
	return filepath.Join(s.basePath, path)
}
