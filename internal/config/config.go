package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/cloudcast/internal/evaluation"
	"github.com/raphaelgruber/cloudcast/internal/generator"
	"github.com/raphaelgruber/cloudcast/internal/intake"
	"github.com/raphaelgruber/cloudcast/internal/sequencer"
	"github.com/raphaelgruber/cloudcast/internal/service"
)

// DefaultFile is read when CLOUDCAST_CONFIG is unset. It may be absent.
const DefaultFile = "cloudcast.yaml"

// Config holds all configuration values.
type Config struct {
	// Intake and run shape
	MaxUploads     int `yaml:"max_uploads"`
	MaxPredictions int `yaml:"max_predictions"`

	// Stage pacing
	StageDelayMin time.Duration `yaml:"stage_delay_min"`
	StageDelayMax time.Duration `yaml:"stage_delay_max"`

	// Prediction rendering
	CanvasSize int    `yaml:"canvas_size"`
	Texture    string `yaml:"texture"`
	Seed       uint64 `yaml:"seed"`

	// Metric ranges
	Metrics evaluation.Ranges `yaml:"metrics"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxUploads:     intake.MaxUploads,
		MaxPredictions: service.DefaultMaxPredictions,
		StageDelayMin:  sequencer.DefaultDelayWindow.Min,
		StageDelayMax:  sequencer.DefaultDelayWindow.Max,
		CanvasSize:     generator.DefaultSize,
		Texture:        string(generator.TextureDots),
		Metrics:        evaluation.DefaultRanges,
		LogLevel:       slog.LevelInfo,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CLOUDCAST_CONFIG (or ./cloudcast.yaml if present), then CLOUDCAST_*
// environment variables.
func Load() (Config, error) {
	cfg := Default()

	path := getEnv("CLOUDCAST_CONFIG", "")
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return Config{}, err
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.MaxUploads, err = envInt("CLOUDCAST_MAX_UPLOADS", c.MaxUploads); err != nil {
		return err
	}
	if c.MaxPredictions, err = envInt("CLOUDCAST_MAX_PREDICTIONS", c.MaxPredictions); err != nil {
		return err
	}
	if c.StageDelayMin, err = envDuration("CLOUDCAST_STAGE_DELAY_MIN", c.StageDelayMin); err != nil {
		return err
	}
	if c.StageDelayMax, err = envDuration("CLOUDCAST_STAGE_DELAY_MAX", c.StageDelayMax); err != nil {
		return err
	}
	if c.CanvasSize, err = envInt("CLOUDCAST_CANVAS_SIZE", c.CanvasSize); err != nil {
		return err
	}
	if v := getEnv("CLOUDCAST_SEED", ""); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse CLOUDCAST_SEED: %w", err)
		}
		c.Seed = seed
	}

	c.Texture = getEnv("CLOUDCAST_TEXTURE", c.Texture)
	c.LogFile = getEnv("CLOUDCAST_LOG_FILE", c.LogFile)
	if v := getEnv("CLOUDCAST_LOG_LEVEL", ""); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	return nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxUploads < 1 {
		return fmt.Errorf("max_uploads must be positive, got %d", c.MaxUploads)
	}
	if c.MaxPredictions < 1 {
		return fmt.Errorf("max_predictions must be positive, got %d", c.MaxPredictions)
	}
	if c.CanvasSize < 1 {
		return fmt.Errorf("canvas_size must be positive, got %d", c.CanvasSize)
	}
	if err := c.DelayWindow().Validate(); err != nil {
		return fmt.Errorf("stage delay: %w", err)
	}
	if _, err := generator.ParseTexture(c.Texture); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// DelayWindow returns the configured per-stage pause bounds.
func (c Config) DelayWindow() sequencer.DelayWindow {
	return sequencer.DelayWindow{Min: c.StageDelayMin, Max: c.StageDelayMax}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
