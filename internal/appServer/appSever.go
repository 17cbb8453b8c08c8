// launching the HTTP server and wiring the render pipeline
package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ds124wfegd/newscover/config"
	"github.com/ds124wfegd/newscover/internal/pkg/assets"
	"github.com/ds124wfegd/newscover/internal/pkg/background"
	"github.com/ds124wfegd/newscover/internal/pkg/kafka"
	"github.com/ds124wfegd/newscover/internal/pkg/processor"
	"github.com/ds124wfegd/newscover/internal/pkg/storage"
	"github.com/ds124wfegd/newscover/internal/pkg/viewer"
	"github.com/ds124wfegd/newscover/internal/service"
	"github.com/ds124wfegd/newscover/internal/transport"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewCoverService builds the render pipeline from the cover section of
// the config. Shared by the HTTP server and the CLI. events may be nil.
func NewCoverService(cfg config.CoverConfig, events kafka.Producer) service.CoverService {
	store := assets.NewStore(cfg.AssetsDir)
	cache := storage.NewFileStorage(cfg.CacheDir)
	resolver := background.NewResolver(store, cache, cfg.FetchTimeout, cfg.BlockPrivateNetworks)
	return service.NewCoverService(resolver, store, processor.NewCoverProcessor(), viewer.NewSystemViewer(), events, cfg.OutputDir)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(new(logrus.JSONFormatter))

	if err := os.MkdirAll(cfg.Cover.OutputDir, 0755); err != nil {
		logrus.Fatalf("cannot create output directory %s: %s", cfg.Cover.OutputDir, err.Error())
	}

	producer := kafka.NewProducer(cfg.Events.Brokers, cfg.Events.Topic)
	defer producer.Close()

	coverService := NewCoverService(cfg.Cover, producer)
	coverHandler := transport.NewCoverHandler(coverService, cfg.Cover)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(coverHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("port", cfg.Server.Port).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

}
