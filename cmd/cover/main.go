// cover renders a single news cover and prints the result as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ds124wfegd/newscover/config"
	"github.com/ds124wfegd/newscover/internal/appServer"
	"github.com/ds124wfegd/newscover/internal/entity"
	"github.com/ds124wfegd/newscover/internal/pkg/kafka"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))
	logrus.SetOutput(os.Stderr)

	flags := pflag.NewFlagSet("cover", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a config file")
	bg := flags.String("bg", "", `background: "cmp:<path>", "url:<url>" or "blank"`)
	text := flags.String("text", "", `cover title, "&" starts a new line`)
	flags.Int("size", entity.DefaultTextSize, "text size, the font is ten times larger in pixels")
	flags.String("type", string(entity.NewsNormal), "news type: normal, breaking or photo")
	replace := flags.String("replace", "", "file name without extension, defaults to a timestamp")
	saveAt := flags.String("save-at", entity.DestinationShow, `"show" or the directory to save into`)
	flags.String("assets", "", "directory with the bundled assets")
	flags.String("cache", "", "directory for downloaded backgrounds")
	flags.Parse(os.Args[1:])

	viperInstance, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}
	err = config.BindFlags(viperInstance, flags, map[string]string{
		"size":   "cover.default_text_size",
		"type":   "cover.default_news_type",
		"assets": "cover.assets_dir",
		"cache":  "cover.cache_dir",
	})
	if err != nil {
		logrus.Fatalf("Cannot bind flags. Error: {%s}", err.Error())
	}
	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	producer := kafka.NewProducer(cfg.Events.Brokers, cfg.Events.Topic)
	defer producer.Close()

	svc := appServer.NewCoverService(cfg.Cover, producer)
	result := svc.RenderParams(context.Background(), entity.RenderParams{
		Background: *bg,
		Text:       *text,
		TextSize:   cfg.Cover.DefaultTextSize,
		NewsType:   cfg.Cover.DefaultNewsType,
		Replace:    *replace,
		SaveAt:     *saveAt,
	})

	out, err := json.Marshal(result)
	if err != nil {
		logrus.Fatalf("Cannot encode result. Error: {%s}", err.Error())
	}
	fmt.Println(string(out))

	if !result.OK() {
		producer.Close()
		os.Exit(1)
	}
}
