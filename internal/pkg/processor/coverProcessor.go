package processor

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"
)

type CoverProcessor interface {
	Compose(background, template, overlay image.Image) *image.NRGBA
	DrawText(dst draw.Image, f *truetype.Font, lines []string, textSize int, anchor Anchor) TextLayout
}

type coverProcessor struct {
	filter imaging.ResampleFilter
}

func NewCoverProcessor() CoverProcessor {
	return &coverProcessor{filter: imaging.CatmullRom}
}

// SquareCrop returns the largest square centered in bounds. Odd leftovers
// go to the right and bottom edges.
func SquareCrop(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	size := w
	if h < size {
		size = h
	}
	left := bounds.Min.X + (w-size)/2
	top := bounds.Min.Y + (h-size)/2
	return image.Rect(left, top, left+size, top+size)
}

// Compose builds the cover base: the centered square of background is
// stretched over the whole template, then overlay (if any) is resized to
// the canvas and blended on top through its own alpha channel. The
// template only contributes its size.
func (p *coverProcessor) Compose(background, template, overlay image.Image) *image.NRGBA {
	size := template.Bounds().Size()

	square := imaging.Crop(background, SquareCrop(background.Bounds()))
	resized := imaging.Resize(square, size.X, size.Y, p.filter)

	canvas := imaging.Paste(template, resized, template.Bounds().Min)
	if overlay == nil {
		return canvas
	}

	layer := imaging.Resize(overlay, size.X, size.Y, p.filter)
	return imaging.Overlay(canvas, layer, image.Pt(0, 0), 1.0)
}
