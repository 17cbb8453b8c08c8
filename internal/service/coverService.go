package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"

	"github.com/sirupsen/logrus"

	"github.com/ds124wfegd/newscover/internal/entity"
	"github.com/ds124wfegd/newscover/internal/pkg/assets"
	"github.com/ds124wfegd/newscover/internal/pkg/processor"
	"github.com/ds124wfegd/newscover/internal/pkg/shaping"
)

const timestampLayout = "20060102-150405"

const (
	msgTemplateNotFound = "Wallpaper file not found"
	msgOverlayNotFound  = "Overlay file not found"
	msgFontNotFound     = "Font file not found"
	msgFontBroken       = "Failed to load font"
	msgSaveFailed       = "Failed to save final image"
	msgShowFailed       = "Failed to show image"
)

func (s *coverService) RenderParams(ctx context.Context, params entity.RenderParams) entity.Result {
	req, err := params.Request()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"background": params.Background,
		}).Warn("render request rejected")
		return entity.ErrorResult(err)
	}
	return s.Render(ctx, req)
}

func (s *coverService) Render(ctx context.Context, req entity.RenderRequest) (result entity.Result) {
	log := logrus.WithFields(logrus.Fields{
		"background": req.Background.Kind.String(),
		"news_type":  string(req.NewsType),
		"show":       req.Destination.Show,
	})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("render panicked")
			result = entity.ErrorResult(entity.NewError(entity.KindUnexpected, fmt.Sprint(r), nil))
		}
	}()

	img, err := s.Compose(ctx, req)
	if err != nil {
		return fail(log, err)
	}

	if req.Destination.Show {
		if err := s.viewer.Show(img); err != nil {
			return fail(log, entity.NewError(entity.KindUnexpected, msgShowFailed, err))
		}
		log.Info("cover shown")
		return entity.ShownResult()
	}

	name := req.Replace
	if name == "" {
		name = s.now().Format(timestampLayout)
	}
	location, err := s.repoFor(req.Destination.Dir).Save(name, img)
	if err != nil {
		return fail(log, entity.NewError(entity.KindWrite, msgSaveFailed, err))
	}
	log.WithField("location", location).Info("cover saved")
	s.publish(ctx, log, entity.CoverEvent{
		Location:   location,
		Background: req.Background.Kind.String(),
		NewsType:   req.NewsType,
		RenderedAt: s.now(),
	})
	return entity.SavedResult(location)
}

// publish reports a saved cover. A failed publish is logged and does not
// turn the render into a failure.
func (s *coverService) publish(ctx context.Context, log *logrus.Entry, event entity.CoverEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.SendMessage(ctx, event.Location, event); err != nil {
		log.WithError(err).Warn("failed to publish cover event")
	}
}

func fail(log *logrus.Entry, err error) entity.Result {
	result := entity.ErrorResult(err)
	entry := log.WithError(err).WithField("kind", result.Kind.String())
	switch result.Kind {
	case entity.KindInvalidBackground, entity.KindNotFound, entity.KindBadStatus:
		entry.Warn("render failed")
	default:
		entry.Error("render failed")
	}
	return result
}

// Compose resolves the background, lays it over the template, applies the
// overlay and draws the title. Photo covers get neither overlay nor text.
// A panic while composing is returned as an unexpected error.
func (s *coverService) Compose(ctx context.Context, req entity.RenderRequest) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("compose panicked")
			img, err = nil, entity.NewError(entity.KindUnexpected, fmt.Sprint(r), nil)
		}
	}()

	bg, err := s.resolver.Resolve(ctx, req.Background)
	if err != nil {
		return nil, err
	}

	template, err := s.assets.Blank()
	if err != nil {
		return nil, entity.NewError(entity.KindAssetNotFound, msgTemplateNotFound, err)
	}

	photo := req.NewsType == entity.NewsPhoto
	var overlay image.Image
	if !photo {
		overlay, err = s.assets.Overlay(overlayFor(req))
		if err != nil {
			return nil, entity.NewError(entity.KindAssetNotFound, msgOverlayNotFound, err)
		}
	}

	canvas := s.processor.Compose(bg, template, overlay)
	if photo {
		return canvas, nil
	}

	font, err := s.assets.Font()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, entity.NewError(entity.KindFontNotFound, msgFontNotFound, err)
		}
		return nil, entity.NewError(entity.KindUnexpected, msgFontBroken, err)
	}

	s.processor.DrawText(canvas, font, shaping.Lines(req.Text), req.TextSize, anchorFor(req))
	return canvas, nil
}

func (s *coverService) OpenCover(name string) (io.ReadCloser, error) {
	return s.covers.Open(name)
}

func (s *coverService) DeleteCover(name string) error {
	return s.covers.Delete(name)
}

// overlayFor picks the gradient for normal news and the banner for
// everything else. A blank background always gets the banner.
func overlayFor(req entity.RenderRequest) assets.OverlayKind {
	if req.NewsType == entity.NewsNormal && req.Background.Kind != entity.BackgroundBlank {
		return assets.OverlayGradient
	}
	return assets.OverlayBanner
}

// anchorFor mirrors overlayFor: text sits high above the gradient and is
// centered on the banner.
func anchorFor(req entity.RenderRequest) processor.Anchor {
	if req.Background.Kind == entity.BackgroundBlank {
		return processor.AnchorCenter
	}
	if req.NewsType == entity.NewsNormal {
		return processor.AnchorUpper
	}
	return processor.AnchorCenter
}
