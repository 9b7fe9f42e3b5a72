// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads the tiledemo configuration from a TOML file and
// TILEMAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Screen ScreenConfig
	View   ViewConfig
	Render RenderConfig
	Log    LogConfig
}

// ScreenConfig holds the surface size in pixels.
type ScreenConfig struct {
	Width  int
	Height int
}

// ViewConfig holds the initial view.
type ViewConfig struct {
	Lon   float64
	Lat   float64
	Zoom  float64
	Angle float64
}

// RenderConfig holds tile rendering settings.
type RenderConfig struct {
	Rasterizer      string
	Workers         int
	Queued          bool
	CacheCapacity   int    `mapstructure:"cache_capacity"`
	MaxFreeTextures int    `mapstructure:"max_free_textures"`
	Background      string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Rasterizers lists the accepted RenderConfig.Rasterizer values.
var Rasterizers = []string{"checker", "solid", "empty"}

// Load reads configuration from path, or when path is empty from
// $TILEMAP_CONFIG or ~/.config/tilemap/config.toml if present. Env var
// overrides use prefix TILEMAP_.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("screen.width", 800)
	v.SetDefault("screen.height", 600)
	v.SetDefault("view.lon", 2.3522)
	v.SetDefault("view.lat", 48.8566)
	v.SetDefault("view.zoom", 12.0)
	v.SetDefault("view.angle", 0.0)
	v.SetDefault("render.rasterizer", "checker")
	v.SetDefault("render.workers", 0)
	v.SetDefault("render.queued", false)
	v.SetDefault("render.cache_capacity", 0)
	v.SetDefault("render.max_free_textures", 0)
	v.SetDefault("render.background", "#f2efe9")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv("TILEMAP_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "tilemap"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TILEMAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return fmt.Errorf("config: screen size %dx%d must be positive", c.Screen.Width, c.Screen.Height)
	}
	if c.View.Lat < -90 || c.View.Lat > 90 || c.View.Lon < -180 || c.View.Lon > 180 {
		return fmt.Errorf("config: view center (%g, %g) out of range", c.View.Lon, c.View.Lat)
	}
	if c.View.Zoom < 0 {
		return fmt.Errorf("config: view zoom %g must not be negative", c.View.Zoom)
	}
	if !isValidRasterizer(c.Render.Rasterizer) {
		return fmt.Errorf("config: rasterizer %q must be one of %v", c.Render.Rasterizer, Rasterizers)
	}
	if _, err := ParseColor(c.Render.Background); err != nil {
		return fmt.Errorf("config: background: %w", err)
	}
	return nil
}

// ParseColor parses a #rrggbb or #rrggbbaa hex color.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func isValidRasterizer(name string) bool {
	for _, r := range Rasterizers {
		if r == name {
			return true
		}
	}
	return false
}
