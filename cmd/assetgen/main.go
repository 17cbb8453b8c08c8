// assetgen writes a default set of cover assets: blank canvas, gradient
// and banner overlays and the title font
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ds124wfegd/newscover/config"
	"github.com/ds124wfegd/newscover/internal/pkg/assets"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	flags := pflag.NewFlagSet("assetgen", pflag.ExitOnError)
	flags.String("dir", "", "output directory, defaults to cover.assets_dir")
	size := flags.Int("size", 3000, "canvas side length in pixels")
	flags.Parse(os.Args[1:])

	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}
	if err := config.BindFlags(viperInstance, flags, map[string]string{"dir": "cover.assets_dir"}); err != nil {
		logrus.Fatalf("Cannot bind flags. Error: {%s}", err.Error())
	}
	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	if err := assets.Generate(cfg.Cover.AssetsDir, *size); err != nil {
		logrus.Fatalf("Cannot generate assets. Error: {%s}", err.Error())
	}
	logrus.WithFields(logrus.Fields{
		"dir":  cfg.Cover.AssetsDir,
		"size": *size,
	}).Info("assets written")
}
