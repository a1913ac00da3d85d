package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/mikeyg42/pixelbuffer/internal/pixlog"
)

// Config holds the settings used to build buffers, players, recorders and loaders.
type Config struct {
	Buffer   BufferConfig   `yaml:"buffer" json:"buffer"`
	Playback PlaybackConfig `yaml:"playback" json:"playback"`
	Recorder RecorderConfig `yaml:"recorder" json:"recorder"`
	Decode   DecodeConfig   `yaml:"decode" json:"decode"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// BufferConfig is the frame shape and initial frame count. Frames may be 0 to
// start empty and let a loader fix the shape.
type BufferConfig struct {
	Width    int `yaml:"width" json:"width"`
	Height   int `yaml:"height" json:"height"`
	Channels int `yaml:"channels" json:"channels"`
	Frames   int `yaml:"frames" json:"frames"`
}

// PlaybackConfig configures a player. All loop values are in frames.
type PlaybackConfig struct {
	FrameRate     float64 `yaml:"frame_rate" json:"frame_rate"`
	Speed         float64 `yaml:"speed" json:"speed"`
	Interpolation bool    `yaml:"interpolation" json:"interpolation"`

	Looping  bool `yaml:"looping" json:"looping"`
	PingPong bool `yaml:"ping_pong" json:"ping_pong"`

	LoopOnset float64 `yaml:"loop_onset" json:"loop_onset"`
	LoopSize  float64 `yaml:"loop_size" json:"loop_size"` // 0 = whole buffer

	LoopOnsetDeviation float64 `yaml:"loop_onset_deviation" json:"loop_onset_deviation"`
	LoopSizeDeviation  float64 `yaml:"loop_size_deviation" json:"loop_size_deviation"`
}

// RecorderConfig is the window a recorder arms with. Negative frames records to
// the end of the buffer.
type RecorderConfig struct {
	Onset  int `yaml:"onset" json:"onset"`
	Frames int `yaml:"frames" json:"frames"`
}

// DecodeConfig bounds the wait on decoders that deliver frames asynchronously.
type DecodeConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PollTimeout  time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
}

type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Buffer: BufferConfig{
			Width:    640,
			Height:   480,
			Channels: 3,
			Frames:   0,
		},
		Playback: PlaybackConfig{
			FrameRate: 30,
			Speed:     1,
		},
		Recorder: RecorderConfig{
			Onset:  0,
			Frames: -1,
		},
		Decode: DecodeConfig{
			PollInterval: 2 * time.Millisecond,
			PollTimeout:  5 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Buffer.Width <= 0 || c.Buffer.Height <= 0 {
		return fmt.Errorf("invalid buffer dimensions: %dx%d", c.Buffer.Width, c.Buffer.Height)
	}
	if c.Buffer.Channels < 1 || c.Buffer.Channels > 4 {
		return fmt.Errorf("buffer channels must be between 1 and 4, got %d", c.Buffer.Channels)
	}
	if c.Buffer.Frames < 0 {
		return fmt.Errorf("buffer frames must not be negative")
	}

	if c.Playback.FrameRate <= 0 {
		return fmt.Errorf("invalid frame rate: %v", c.Playback.FrameRate)
	}
	if c.Playback.LoopOnset < 0 || c.Playback.LoopSize < 0 {
		return fmt.Errorf("loop onset and size must not be negative")
	}
	if c.Playback.LoopOnsetDeviation < 0 || c.Playback.LoopSizeDeviation < 0 {
		return fmt.Errorf("loop deviations must not be negative")
	}

	if c.Decode.PollInterval <= 0 {
		return fmt.Errorf("decode poll interval must be positive")
	}
	if c.Decode.PollTimeout < c.Decode.PollInterval {
		return fmt.Errorf("decode poll timeout must be at least the poll interval")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// Build creates the zap logger described by the log section.
func (lc LogConfig) Build() (pixlog.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}

	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return pixlog.NewZap(l), nil
}
