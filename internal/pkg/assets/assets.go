// Package assets loads the bundled cover assets: the blank canvas
// template, the two overlays and the title font.
package assets

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"

	_ "golang.org/x/image/webp"
)

const (
	GradientFile = "gradient.png"
	BannerFile   = "breaking_overlay.png"
	BlankFile    = "blank.png"
	FontFile     = "font.ttf"
)

type OverlayKind int

const (
	OverlayGradient OverlayKind = iota
	OverlayBanner
)

func (k OverlayKind) File() string {
	if k == OverlayGradient {
		return GradientFile
	}
	return BannerFile
}

type Store interface {
	Blank() (image.Image, error)
	Overlay(kind OverlayKind) (image.Image, error)
	Font() (*truetype.Font, error)
}

type fileStore struct {
	baseDir string
}

func NewStore(baseDir string) Store {
	return &fileStore{baseDir: baseDir}
}

func (s *fileStore) Blank() (image.Image, error) {
	return s.image(BlankFile)
}

func (s *fileStore) Overlay(kind OverlayKind) (image.Image, error) {
	return s.image(kind.File())
}

// Font parses the bundled TrueType font. A missing file is reported with
// an error matching fs.ErrNotExist.
func (s *fileStore) Font() (*truetype.Font, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, FontFile))
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return f, nil
}

func (s *fileStore) image(name string) (image.Image, error) {
	img, err := imaging.Open(filepath.Join(s.baseDir, name))
	if err != nil {
		return nil, fmt.Errorf("open asset %s: %w", name, err)
	}
	return img, nil
}
