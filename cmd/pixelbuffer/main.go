package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikeyg42/pixelbuffer/internal/adapter"
	"github.com/mikeyg42/pixelbuffer/internal/buffer"
	"github.com/mikeyg42/pixelbuffer/internal/config"
	"github.com/mikeyg42/pixelbuffer/internal/decode"
	"github.com/mikeyg42/pixelbuffer/internal/pixels"
	"github.com/mikeyg42/pixelbuffer/internal/pixlog"
	"github.com/mikeyg42/pixelbuffer/internal/player"
)

type options struct {
	configPath string
	movie      string
	sequence   string
	camera     int
	duration   time.Duration
	snapshot   string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file")
	flag.StringVar(&opts.movie, "movie", "", "movie file to load into the buffer")
	flag.StringVar(&opts.sequence, "sequence", "", "numbered image files, e.g. frames/img_*.png")
	flag.IntVar(&opts.camera, "camera", -1, "capture device to stream into a ring buffer")
	flag.DurationVar(&opts.duration, "duration", 5*time.Second, "how long to play")
	flag.StringVar(&opts.snapshot, "snapshot", "", "write the last displayed frame to this PNG")
	flag.Parse()

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}

	logger, err := adapter.InstallLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer syncLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.duration)
	defer cancel()

	var last *pixels.Frame
	if opts.camera >= 0 {
		last, err = runCamera(ctx, cfg, logger, opts.camera)
	} else {
		last, err = runFile(ctx, cfg, logger, opts)
	}
	if err != nil {
		fatal(logger, "playback failed", err)
	}

	if opts.snapshot != "" && !last.IsEmpty() {
		if err := writeSnapshot(opts.snapshot, last); err != nil {
			fatal(logger, "failed to write snapshot", err)
		}
	}
}

// exit is swapped out by tests.
var exit = os.Exit

// fatal logs err, flushes the logger and exits. Deferred calls do not run after
// os.Exit, so the flush has to happen here.
func fatal(logger pixlog.Logger, msg string, err error) {
	logger.Error(msg, pixlog.Error(err))
	syncLogger(logger)
	exit(1)
}

func syncLogger(logger pixlog.Logger) {
	if zl := pixlog.Unwrap(logger); zl != nil {
		_ = zl.Sync()
	}
}

// runFile loads a movie or image sequence and plays it until ctx is done.
func runFile(ctx context.Context, cfg *config.Config, logger pixlog.Logger, opts options) (*pixels.Frame, error) {
	fb, err := adapter.NewFrameBuffer(cfg, buffer.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	switch {
	case opts.movie != "":
		dec := decode.NewVideoDecoder()
		defer dec.Close()
		if _, err := adapter.NewMovieLoader(cfg, dec, logger).Load(ctx, fb, opts.movie, -1, 0, 0); err != nil {
			return nil, err
		}
	case opts.sequence != "":
		n, err := decode.LoadMultiImage(fb, decode.ImageDecoder{}, opts.sequence, -1, 0, 0)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("no images matched %s", opts.sequence)
		}
	default:
		return nil, errors.New("one of -movie, -sequence or -camera is required")
	}

	p, err := adapter.NewPlayer(cfg, fb, player.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := p.Play(0); err != nil {
		return nil, err
	}
	if err := p.ResetLoop(); err != nil {
		return nil, err
	}

	return tick(ctx, p, logger, nil)
}

// runCamera streams a capture device into a ring buffer and plays the ring back,
// newest frame first, while a recorder keeps the configured window of frames.
func runCamera(ctx context.Context, cfg *config.Config, logger pixlog.Logger, device int) (*pixels.Frame, error) {
	cam, err := decode.OpenCamera(device)
	if err != nil {
		return nil, err
	}
	defer cam.Close()

	first, err := cam.Read()
	if err != nil {
		return nil, err
	}
	frames := max(1, cfg.Buffer.Frames)
	rb, err := buffer.NewRingAllocated(first.Width, first.Height, first.Channels, frames, buffer.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	take, err := buffer.NewFromFrame(first, frames, buffer.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	rec := adapter.NewRecorder(take, logger)
	if err := adapter.Record(cfg, rec); err != nil {
		return nil, err
	}

	p, err := adapter.NewPlayer(cfg, rb, player.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := p.Play(0); err != nil {
		return nil, err
	}

	capture := func() error {
		f, err := cam.Read()
		if err != nil {
			return err
		}
		if err := rb.In(f); err != nil {
			return err
		}
		return rec.In(f)
	}
	last, err := tick(ctx, p, logger, capture)
	logger.Info("capture finished",
		pixlog.Any("ring", rb.Metrics()),
		pixlog.Int("recorded", rec.RecordedFrames()),
		pixlog.String("take", rec.TakeID().String()))
	return last, err
}

// tick drives the player at its frame rate until ctx is done.
func tick(ctx context.Context, p *player.Player, logger pixlog.Logger, before func() error) (*pixels.Frame, error) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / p.FrameRate()))
	defer ticker.Stop()
	report := time.NewTicker(time.Second)
	defer report.Stop()

	last := &pixels.Frame{}
	for {
		select {
		case <-ctx.Done():
			return last, nil
		case <-report.C:
			logger.Info("playback",
				pixlog.Float64("position", p.Position()),
				pixlog.Bool("playing", p.IsPlaying()),
				pixlog.Duration("passed", p.PassedTime()))
		case <-ticker.C:
			if before != nil {
				if err := before(); err != nil {
					logger.Warn("capture failed", pixlog.Error(err))
				}
			}
			if err := p.Update(); err != nil {
				return last, err
			}
			last = p.Pixels()
			if !p.IsPlaying() {
				return last, nil
			}
		}
	}
}

func writeSnapshot(path string, f *pixels.Frame) error {
	img, err := f.ToImage()
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}
