// Package adapter builds buffers, players, recorders and loaders from the
// application config.
package adapter

import (
	"fmt"

	"github.com/mikeyg42/pixelbuffer/internal/buffer"
	"github.com/mikeyg42/pixelbuffer/internal/config"
	"github.com/mikeyg42/pixelbuffer/internal/decode"
	"github.com/mikeyg42/pixelbuffer/internal/pixlog"
	"github.com/mikeyg42/pixelbuffer/internal/player"
	"github.com/mikeyg42/pixelbuffer/internal/recorder"
)

// InstallLogger builds the configured logger and makes it the global one.
func InstallLogger(cfg *config.Config) (pixlog.Logger, error) {
	l, err := cfg.Log.Build()
	if err != nil {
		return nil, err
	}
	pixlog.ReplaceGlobal(l)
	return l, nil
}

// NewFrameBuffer returns a buffer allocated to the configured shape, or an empty
// one when the configured frame count is 0.
func NewFrameBuffer(cfg *config.Config, opts ...buffer.Option) (*buffer.FrameBuffer, error) {
	b := cfg.Buffer
	if b.Frames == 0 {
		return buffer.New(opts...), nil
	}
	fb, err := buffer.NewAllocated(b.Width, b.Height, b.Channels, b.Frames, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame buffer: %w", err)
	}
	return fb, nil
}

// NewRingBuffer returns a ring of the configured shape; it needs at least one frame.
func NewRingBuffer(cfg *config.Config, opts ...buffer.Option) (*buffer.RingBuffer, error) {
	b := cfg.Buffer
	rb, err := buffer.NewRingAllocated(b.Width, b.Height, b.Channels, b.Frames, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ring buffer: %w", err)
	}
	return rb, nil
}

// NewPlayer returns a stopped player over src with the playback section applied.
// Options are applied after the source is bound.
func NewPlayer(cfg *config.Config, src player.Source, opts ...player.Option) (*player.Player, error) {
	pc := cfg.Playback

	p := player.New(append([]player.Option{player.WithSource(src)}, opts...)...)
	if err := p.SetFrameRate(pc.FrameRate); err != nil {
		return nil, err
	}
	p.SetSpeed(pc.Speed)
	p.SetInterpolation(pc.Interpolation)
	p.SetLooping(pc.Looping)
	p.SetLoopPingPong(pc.PingPong)
	p.SetLoopOnset(pc.LoopOnset)
	if pc.LoopSize > 0 {
		p.SetLoopSize(pc.LoopSize)
	}
	p.SetLoopOnsetDeviation(pc.LoopOnsetDeviation)
	p.SetLoopSizeDeviation(pc.LoopSizeDeviation)
	return p, nil
}

// NewRecorder returns a disarmed recorder bound to buf.
func NewRecorder(buf *buffer.FrameBuffer, logger pixlog.Logger) *recorder.Recorder {
	r := recorder.New(buf)
	r.SetLogger(logger)
	return r
}

// Record arms r with the configured window.
func Record(cfg *config.Config, r *recorder.Recorder) error {
	return r.Record(cfg.Recorder.Onset, cfg.Recorder.Frames)
}

// NewMovieLoader binds dec with the configured polling bounds.
func NewMovieLoader(cfg *config.Config, dec decode.SequenceDecoder, logger pixlog.Logger) *decode.MovieLoader {
	return decode.NewMovieLoader(dec,
		decode.WithPollInterval(cfg.Decode.PollInterval),
		decode.WithPollTimeout(cfg.Decode.PollTimeout),
		decode.WithLogger(logger))
}
