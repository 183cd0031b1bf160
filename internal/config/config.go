// Package config loads application defaults from config.yml and the
// environment. CLI flags take precedence over everything loaded here; the
// engine itself only ever sees explicit parameter structs.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// App holds the file/env-configurable defaults.
type App struct {
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Engine struct {
		SplitCrossTalk     bool    `mapstructure:"split_cross_talk"`
		SplitThreshold     float64 `mapstructure:"split_threshold"`
		TieBreakEpsilon    float64 `mapstructure:"tie_break_epsilon"`
		DurationTolerance  float64 `mapstructure:"duration_tolerance"`
		TextOverlapEpsilon float64 `mapstructure:"text_overlap_epsilon"`
	} `mapstructure:"engine"`

	Catalog struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"catalog"`

	Metadata struct {
		CSVPath string `mapstructure:"csv_path"`
	} `mapstructure:"metadata"`

	Workers int `mapstructure:"workers"`
}

// Load reads config.yml (if present) and VOXALIGN_* environment variables.
func Load() (App, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("VOXALIGN")
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("engine.split_cross_talk", false)
	v.SetDefault("engine.split_threshold", 0.35)
	v.SetDefault("engine.tie_break_epsilon", 0.001)
	v.SetDefault("engine.duration_tolerance", 0.5)
	v.SetDefault("engine.text_overlap_epsilon", 0.0)
	v.SetDefault("catalog.path", "data/catalog.db")
	v.SetDefault("metadata.csv_path", "metadata/dataset_metadata.csv")
	v.SetDefault("workers", 4)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return App{}, fmt.Errorf("read config: %w", err)
		}
		// no config file: defaults and env only
	}

	var app App
	if err := v.Unmarshal(&app); err != nil {
		return App{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return app, nil
}
