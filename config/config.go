// Application configuration: the HTTP server and the cover renderer
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Cover  CoverConfig  `mapstructure:"cover"`
	Events EventsConfig `mapstructure:"events"`
}

type ServerConfig struct {
	AppVersion   string `mapstructure:"app_version"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	Timeout      time.Duration
	Idle_timeout time.Duration
	Env          string `mapstructure:"environment"`
	Mode         string `mapstructure:"mode"`
}

// CoverConfig drives the renderer. Over HTTP, save_at is resolved under
// OutputDir and cmp: paths under BackgroundsDir. An empty BackgroundsDir
// turns cmp: backgrounds off for the API.
type CoverConfig struct {
	AssetsDir            string        `mapstructure:"assets_dir"`
	CacheDir             string        `mapstructure:"cache_dir"`
	OutputDir            string        `mapstructure:"output_dir"`
	BackgroundsDir       string        `mapstructure:"backgrounds_dir"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	BlockPrivateNetworks bool          `mapstructure:"block_private_networks"`
	DefaultTextSize      int           `mapstructure:"default_text_size"`
	MaxTextSize          int           `mapstructure:"max_text_size"`
	DefaultNewsType      string        `mapstructure:"default_news_type"`
}

// EventsConfig points at the kafka cluster that gets a message per saved
// cover. No brokers means events are only logged.
type EventsConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

var defaults = map[string]any{
	"server.host":                  "0.0.0.0",
	"server.port":                  "8080",
	"server.timeout":               "30s",
	"server.idle_timeout":          "60s",
	"server.environment":           "development",
	"server.mode":                  "debug",
	"cover.assets_dir":             "./files",
	"cover.cache_dir":              "./cache/Download",
	"cover.output_dir":             "./covers",
	"cover.backgrounds_dir":        "",
	"cover.fetch_timeout":          "10s",
	"cover.block_private_networks": false,
	"cover.default_text_size":      27,
	"cover.max_text_size":          200,
	"cover.default_news_type":      "normal",
	"events.brokers":               []string{},
	"events.topic":                 "cover-rendered",
}

// LoadConfig reads config.yaml from ./config, or the file at path when
// one is given. A missing ./config/config.yaml is not an error, the
// defaults are used instead. Every key can be overridden from the
// environment: cover.output_dir becomes COVER_OUTPUT_DIR.
func LoadConfig(path ...string) (*viper.Viper, error) {

	viperInstance := viper.New()
	for key, value := range defaults {
		viperInstance.SetDefault(key, value)
	}

	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperInstance.AutomaticEnv()

	if len(path) > 0 && path[0] != "" {
		viperInstance.SetConfigFile(path[0])
	} else {
		viperInstance.AddConfigPath("./config")
		viperInstance.SetConfigName("config")
		viperInstance.SetConfigType("yaml")
	}

	err := viperInstance.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		logrus.Debug("config file not found, using defaults")
	}
	return viperInstance, nil
}

// BindFlags lets command line flags override config keys. Flag names
// are mapped to keys through keys, e.g. "out" -> "cover.output_dir".
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for flagName, key := range keys {
		flag := flags.Lookup(flagName)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", flagName)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	err := v.Unmarshal(&c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &c, nil
}
