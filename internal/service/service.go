package service

import (
	"context"
	"image"
	"io"
	"time"

	"github.com/ds124wfegd/newscover/internal/database"
	"github.com/ds124wfegd/newscover/internal/entity"
	"github.com/ds124wfegd/newscover/internal/pkg/assets"
	"github.com/ds124wfegd/newscover/internal/pkg/background"
	"github.com/ds124wfegd/newscover/internal/pkg/kafka"
	"github.com/ds124wfegd/newscover/internal/pkg/processor"
	"github.com/ds124wfegd/newscover/internal/pkg/storage"
	"github.com/ds124wfegd/newscover/internal/pkg/viewer"
)

type CoverService interface {
	// Render runs one request end to end. It never panics and reports
	// every failure in the returned result.
	Render(ctx context.Context, req entity.RenderRequest) entity.Result
	RenderParams(ctx context.Context, params entity.RenderParams) entity.Result
	// Compose builds the finished cover without showing or saving it.
	Compose(ctx context.Context, req entity.RenderRequest) (image.Image, error)
	OpenCover(name string) (io.ReadCloser, error)
	DeleteCover(name string) error
}

type coverService struct {
	resolver  background.Resolver
	assets    assets.Store
	processor processor.CoverProcessor
	viewer    viewer.Viewer
	events    kafka.Producer
	covers    database.CoverRepository
	repoFor   func(dir string) database.CoverRepository
	now       func() time.Time
}

// NewCoverService wires the render pipeline. outputDir is where covers
// served by OpenCover and DeleteCover live. events may be nil.
func NewCoverService(resolver background.Resolver, store assets.Store, processor processor.CoverProcessor, viewer viewer.Viewer, events kafka.Producer, outputDir string) CoverService {
	return &coverService{
		resolver:  resolver,
		assets:    store,
		processor: processor,
		viewer:    viewer,
		events:    events,
		covers:    coverRepository(outputDir),
		repoFor:   coverRepository,
		now:       time.Now,
	}
}

func coverRepository(dir string) database.CoverRepository {
	return database.NewCoverRepository(storage.NewFileStorage(dir))
}
