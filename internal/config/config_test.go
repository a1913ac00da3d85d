package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30.0, cfg.Playback.FrameRate)
	assert.Equal(t, -1, cfg.Recorder.Frames)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
buffer:
  width: 320
  height: 240
  channels: 4
  frames: 90
playback:
  frame_rate: 25
  looping: true
  ping_pong: true
  loop_onset: 10
  loop_size: 40
  loop_onset_deviation: 2.5
decode:
  poll_timeout: 1s
log:
  level: debug
  development: true
`))
	require.NoError(t, err)

	assert.Equal(t, BufferConfig{Width: 320, Height: 240, Channels: 4, Frames: 90}, cfg.Buffer)
	assert.Equal(t, 25.0, cfg.Playback.FrameRate)
	assert.Equal(t, 1.0, cfg.Playback.Speed, "unset keys keep defaults")
	assert.True(t, cfg.Playback.PingPong)
	assert.Equal(t, 2.5, cfg.Playback.LoopOnsetDeviation)
	assert.Equal(t, time.Second, cfg.Decode.PollTimeout)
	assert.Equal(t, 2*time.Millisecond, cfg.Decode.PollInterval)
	assert.True(t, cfg.Log.Development)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Buffer.Width = 0 }},
		{"too many channels", func(c *Config) { c.Buffer.Channels = 5 }},
		{"negative frames", func(c *Config) { c.Buffer.Frames = -1 }},
		{"zero frame rate", func(c *Config) { c.Playback.FrameRate = 0 }},
		{"negative loop size", func(c *Config) { c.Playback.LoopSize = -1 }},
		{"negative deviation", func(c *Config) { c.Playback.LoopSizeDeviation = -0.5 }},
		{"zero poll interval", func(c *Config) { c.Decode.PollInterval = 0 }},
		{"timeout below interval", func(c *Config) { c.Decode.PollTimeout = time.Microsecond }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pixelbuffer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recorder:\n  onset: 4\n  frames: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RecorderConfig{Onset: 4, Frames: 8}, cfg.Recorder)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("buffer:\n  channels: 9\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestLogConfigBuild(t *testing.T) {
	l, err := LogConfig{Level: "warn"}.Build()
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = LogConfig{Level: "nope"}.Build()
	assert.Error(t, err)
}
