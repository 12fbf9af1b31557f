// Package config loads tool-wide settings from an optional ladder.yaml file
// and LADDER_* environment variables. Flags on individual subcommands
// override these values.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"ladder/cache"
	"ladder/game"
)

type Config struct {
	CacheDir       string  `mapstructure:"cache-dir"`
	StoreBackend   string  `mapstructure:"store-backend"` // file, sqlite or none
	SQLitePath     string  `mapstructure:"sqlite-path"`
	ServerAddr     string  `mapstructure:"server-addr"`
	ExperimentsDir string  `mapstructure:"experiments-dir"`
	RatingStep     int     `mapstructure:"rating-step"`
	KCoeff         float64 `mapstructure:"k-coeff"`
	Mu             float64 `mapstructure:"mu"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("cache-dir", "results/cache")
	v.SetDefault("store-backend", "file")
	v.SetDefault("sqlite-path", "results/cache/ladder.db")
	v.SetDefault("server-addr", ":8080")
	v.SetDefault("experiments-dir", "results/experiments")
	v.SetDefault("rating-step", game.DefaultStep)
	v.SetDefault("k-coeff", game.DefaultK)
	v.SetDefault("mu", game.DefaultMu)

	v.SetConfigName("ladder")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("LADDER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) Parameters() game.Parameters {
	return game.Parameters{Step: c.RatingStep, K: c.KCoeff, Mu: c.Mu}
}

// OpenStore builds the configured persistent store. A nil store with a nil
// error means persistence is disabled.
func (c *Config) OpenStore() (cache.Store, error) {
	switch c.StoreBackend {
	case "file":
		return cache.NewFileStore(c.CacheDir), nil
	case "sqlite":
		return cache.NewSQLiteStore(c.SQLitePath)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
}
