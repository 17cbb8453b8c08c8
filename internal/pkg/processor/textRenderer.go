package processor

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Layout constants. Every existing cover depends on these exact values.
// Line spacing is the exact quotient, not the floored 81.0 older covers
// got at size 27.
const (
	fontScale          = 10
	lineSpacingDivisor = 3.3
	upperDivisor       = 7
	centerDivisor      = 2
)

// Anchor picks where the text block sits vertically.
type Anchor int

const (
	// AnchorUpper keeps the block in the upper part of the cover, above
	// the gradient.
	AnchorUpper Anchor = iota
	// AnchorCenter centers the block on the banner.
	AnchorCenter
)

var textColor = color.White

type TextLine struct {
	Text   string
	Width  int
	Height int
}

type PlacedLine struct {
	TextLine
	X int
	Y float64
}

type TextLayout struct {
	Lines       []PlacedLine
	LineSpacing float64
	TotalHeight float64
	StartY      float64
}

// FontPixelSize converts the user facing text size into pixels.
func FontPixelSize(textSize int) int {
	return textSize * fontScale
}

func LineSpacing(textSize int) float64 {
	return float64(FontPixelSize(textSize)) / lineSpacingDivisor
}

// NewFace keeps a single glyph mask in cache. freetype sizes the cache
// for the largest glyph, so the default 512 entries cost hundreds of MiB
// at large text sizes.
func NewFace(f *truetype.Font, textSize int) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:              float64(FontPixelSize(textSize)),
		DPI:               72,
		Hinting:           font.HintingNone,
		GlyphCacheEntries: 1,
	})
}

// MeasureLines returns the ink box of every line as drawn with face.
func MeasureLines(face font.Face, lines []string) []TextLine {
	out := make([]TextLine, 0, len(lines))
	for _, line := range lines {
		bounds, _ := font.BoundString(face, line)
		out = append(out, TextLine{
			Text:   line,
			Width:  bounds.Max.X.Ceil() - bounds.Min.X.Floor(),
			Height: bounds.Max.Y.Ceil() - bounds.Min.Y.Floor(),
		})
	}
	return out
}

// LayoutLines centers each line horizontally and stacks the block from
// the anchor's start offset. Lines wider than the canvas get a negative x
// and are clipped when drawn.
func LayoutLines(lines []TextLine, canvas image.Point, textSize int, anchor Anchor) TextLayout {
	spacing := LineSpacing(textSize)

	var total float64
	for _, l := range lines {
		total += float64(l.Height) + spacing
	}
	if len(lines) > 0 {
		total -= spacing
	}

	divisor := float64(centerDivisor)
	if anchor == AnchorUpper {
		divisor = upperDivisor
	}
	startY := math.Floor((float64(canvas.Y) - total) / divisor)

	layout := TextLayout{
		Lines:       make([]PlacedLine, 0, len(lines)),
		LineSpacing: spacing,
		TotalHeight: total,
		StartY:      startY,
	}
	y := startY
	for _, l := range lines {
		layout.Lines = append(layout.Lines, PlacedLine{
			TextLine: l,
			X:        floorDiv(canvas.X-l.Width, 2),
			Y:        y,
		})
		y += float64(l.Height) + spacing
	}
	return layout
}

// DrawText measures, lays out and draws lines in white. (x, y) of every
// line is the top of the font's ascent, so y+ascent is the baseline.
func (p *coverProcessor) DrawText(dst draw.Image, f *truetype.Font, lines []string, textSize int, anchor Anchor) TextLayout {
	face := NewFace(f, textSize)
	defer face.Close()

	b := dst.Bounds()
	layout := LayoutLines(MeasureLines(face, lines), b.Size(), textSize, anchor)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: face,
	}
	ascent := face.Metrics().Ascent
	for _, line := range layout.Lines {
		d.Dot = fixed.Point26_6{
			X: fixed.I(b.Min.X + line.X),
			Y: fixed.I(b.Min.Y) + toFixed(line.Y) + ascent,
		}
		d.DrawString(line.Text)
	}
	return layout
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
