package assets

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/gofont/goregular"
)

var blankColor = color.NRGBA{R: 18, G: 22, B: 31, A: 255}

// Generate writes a default asset set of the given square size into dir:
// a flat blank canvas, a bottom gradient, a breaking-news banner and the
// Go Regular font. Existing files are overwritten.
func Generate(dir string, size int) error {
	if size <= 0 {
		return fmt.Errorf("asset size must be positive, got %d", size)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := imaging.Save(imaging.New(size, size, blankColor), filepath.Join(dir, BlankFile)); err != nil {
		return fmt.Errorf("save %s: %w", BlankFile, err)
	}
	if err := gradient(size).SavePNG(filepath.Join(dir, GradientFile)); err != nil {
		return fmt.Errorf("save %s: %w", GradientFile, err)
	}
	if err := banner(size).SavePNG(filepath.Join(dir, BannerFile)); err != nil {
		return fmt.Errorf("save %s: %w", BannerFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, FontFile), goregular.TTF, 0644); err != nil {
		return fmt.Errorf("save %s: %w", FontFile, err)
	}
	return nil
}

// transparent at the top, darkening over the lower part
func gradient(size int) *gg.Context {
	s := float64(size)
	dc := gg.NewContext(size, size)

	grad := gg.NewLinearGradient(0, s*0.4, 0, s)
	grad.AddColorStop(0, color.NRGBA{A: 0})
	grad.AddColorStop(1, color.NRGBA{A: 235})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, s, s)
	dc.Fill()
	return dc
}

// dimmed frame with a red band across the middle
func banner(size int) *gg.Context {
	s := float64(size)
	dc := gg.NewContext(size, size)

	dc.SetColor(color.NRGBA{A: 90})
	dc.DrawRectangle(0, 0, s, s)
	dc.Fill()

	dc.SetColor(color.NRGBA{R: 190, G: 12, B: 24, A: 215})
	dc.DrawRectangle(0, s*0.3, s, s*0.4)
	dc.Fill()
	return dc
}
