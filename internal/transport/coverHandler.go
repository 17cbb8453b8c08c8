package transport

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ds124wfegd/newscover/internal/database"
	"github.com/ds124wfegd/newscover/internal/entity"
)

const (
	msgInvalidBody      = "Invalid request body"
	msgInvalidBg        = "Invalid bg parameter"
	msgLocalDisabled    = "Local backgrounds are disabled"
	msgInvalidSaveAt    = "Invalid save_at parameter"
	msgInvalidTextSize  = "Invalid text_size parameter"
	msgEncodeFailed     = "Failed to encode image"
	msgUnexpectedRender = "Unexpected error while rendering"
)

// RenderCover renders one cover. With save_at "show" the PNG itself is
// the response, otherwise the cover is saved under the output directory
// and its location returned.
func (h *CoverHandler) RenderCover(c *gin.Context) {
	var params entity.RenderParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(msgInvalidBody))
		return
	}
	if params.TextSize == 0 {
		params.TextSize = h.defaults.DefaultTextSize
	}
	if params.NewsType == "" {
		params.NewsType = h.defaults.DefaultNewsType
	}
	saveAt := params.SaveAt
	if saveAt == "" {
		params.SaveAt = h.defaults.OutputDir
	}

	req, err := params.Request()
	if err != nil {
		result := entity.ErrorResult(err)
		c.JSON(statusFor(result.Kind), result)
		return
	}
	if msg := h.confine(&req, saveAt); msg != "" {
		logrus.WithFields(logrus.Fields{
			"background": params.Background,
			"save_at":    saveAt,
			"text_size":  params.TextSize,
		}).Warn(msg)
		c.JSON(http.StatusBadRequest, errorBody(msg))
		return
	}

	if req.Destination.Show {
		h.streamCover(c, req)
		return
	}

	result := h.service.Render(c.Request.Context(), req)
	if !result.OK() {
		c.JSON(statusFor(result.Kind), result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// confine keeps API callers inside the configured directories: save_at
// and cmp: paths are relative to OutputDir and BackgroundsDir. It returns
// the rejection message, or "" when req may be rendered.
func (h *CoverHandler) confine(req *entity.RenderRequest, saveAt string) string {
	if req.TextSize < 0 || (h.defaults.MaxTextSize > 0 && req.TextSize > h.defaults.MaxTextSize) {
		return msgInvalidTextSize
	}

	if req.Background.Kind == entity.BackgroundLocal {
		if h.defaults.BackgroundsDir == "" {
			return msgLocalDisabled
		}
		path, ok := within(h.defaults.BackgroundsDir, req.Background.Value)
		if !ok {
			return msgInvalidBg
		}
		req.Background.Value = path
	}

	if !req.Destination.Show && saveAt != "" {
		dir, ok := within(h.defaults.OutputDir, saveAt)
		if !ok {
			return msgInvalidSaveAt
		}
		req.Destination.Dir = dir
	}
	return ""
}

// within joins the relative path rel onto root and reports false when rel
// is absolute or climbs out of root.
func within(root, rel string) (string, bool) {
	if rel == "" || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", false
	}
	joined := filepath.Join(root, rel)
	back, err := filepath.Rel(filepath.Clean(root), joined)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", false
	}
	return joined, true
}

func (h *CoverHandler) streamCover(c *gin.Context, req entity.RenderRequest) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("cover stream panicked")
			c.JSON(http.StatusInternalServerError, errorBody(msgUnexpectedRender))
		}
	}()

	img, err := h.service.Compose(c.Request.Context(), req)
	if err != nil {
		result := entity.ErrorResult(err)
		c.JSON(statusFor(result.Kind), result)
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		logrus.WithError(err).Error("failed to encode cover")
		c.JSON(http.StatusInternalServerError, errorBody(msgEncodeFailed))
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *CoverHandler) GetCover(c *gin.Context) {
	name := c.Param("name")

	reader, err := h.service.OpenCover(name)
	if err != nil {
		c.JSON(coverErrorStatus(err), errorBody(coverErrorMessage(err)))
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, "image/png", reader, nil)
}

func (h *CoverHandler) DeleteCover(c *gin.Context) {
	name := c.Param("name")

	if err := h.service.DeleteCover(name); err != nil {
		c.JSON(coverErrorStatus(err), errorBody(coverErrorMessage(err)))
		return
	}

	c.JSON(http.StatusOK, entity.Result{Status: entity.StatusSuccess, Message: "Cover deleted"})
}

func errorBody(message string) entity.Result {
	return entity.Result{Status: entity.StatusError, Message: message}
}

func statusFor(kind entity.Kind) int {
	switch kind {
	case entity.KindInvalidBackground:
		return http.StatusBadRequest
	case entity.KindNotFound:
		return http.StatusNotFound
	case entity.KindNetwork, entity.KindBadStatus:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func coverErrorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrCoverMissing):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func coverErrorMessage(err error) string {
	switch {
	case errors.Is(err, database.ErrInvalidName):
		return "Invalid cover name"
	case errors.Is(err, database.ErrCoverMissing):
		return "Cover not found"
	default:
		logrus.WithError(err).Error("cover storage failure")
		return "Internal error"
	}
}
