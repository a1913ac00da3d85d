package decode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mikeyg42/pixelbuffer/internal/buffer"
	"github.com/mikeyg42/pixelbuffer/internal/pixlog"
)

func logger() pixlog.Logger { return pixlog.L().Named("decode") }

// LoadImage decodes one file into the frame at the clamped index of an allocated,
// non-empty buffer. The decoded frame must match the buffer's shape.
func LoadImage(buf *buffer.FrameBuffer, dec Decoder, path string, index int) error {
	if buf == nil {
		return buffer.ErrNoBuffer
	}
	if !buf.IsAllocated() {
		return fmt.Errorf("load image: %w", buffer.ErrNotAllocated)
	}
	if buf.Size() == 0 {
		return fmt.Errorf("load image: %w", buffer.ErrEmptyBuffer)
	}

	frame, err := dec.Decode(path)
	if err != nil {
		logger().Warn("decode failed", pixlog.String("path", path), pixlog.Error(err))
		return err
	}
	return buf.Write(index, frame)
}

// sequencePath substitutes index for the single '*' in pattern.
func sequencePath(pattern string, index int) string {
	return strings.Replace(pattern, "*", strconv.Itoa(index), 1)
}

// LoadMultiImage loads the numbered files matching pattern, starting with number
// startIndex, and returns how many frames were loaded.
//
// Into an empty buffer it appends: the first file fixes the shape, files of another
// shape are skipped, and loading stops at the first file that cannot be decoded or
// after numFiles files (numFiles < 0 means no limit).
//
// Into a non-empty buffer it writes the window starting at bufferOnset, at most
// numFiles frames, skipping files that fail to decode or do not match.
func LoadMultiImage(buf *buffer.FrameBuffer, dec Decoder, pattern string, numFiles, startIndex, bufferOnset int) (int, error) {
	if buf == nil {
		return 0, buffer.ErrNoBuffer
	}
	if strings.Count(pattern, "*") != 1 {
		logger().Warn("bad sequence pattern", pixlog.String("pattern", pattern))
		return 0, ErrNoWildcard
	}
	startIndex = max(0, startIndex)
	log := logger().With(pixlog.String("pattern", pattern))

	if buf.Size() == 0 {
		buf.ClearBuffer()
		loaded := 0
		for i := startIndex; numFiles < 0 || i < startIndex+numFiles; i++ {
			path := sequencePath(pattern, i)
			frame, err := dec.Decode(path)
			if err != nil {
				log.Debug("sequence ended", pixlog.String("path", path), pixlog.Error(err))
				break
			}
			if err := buf.PushBack(frame); err != nil {
				log.Warn("skipping file", pixlog.String("path", path), pixlog.Error(err))
				continue
			}
			loaded++
		}
		return loaded, nil
	}

	if !buf.IsAllocated() {
		return 0, fmt.Errorf("load sequence: %w", buffer.ErrNotAllocated)
	}
	size := buf.Size()
	bufferOnset = max(0, min(size-1, bufferOnset))
	count := size - bufferOnset
	if numFiles >= 0 {
		count = min(count, numFiles)
	}

	loaded := 0
	for i := startIndex; i < startIndex+count; i++ {
		path := sequencePath(pattern, i)
		frame, err := dec.Decode(path)
		if err != nil {
			log.Warn("skipping file", pixlog.String("path", path), pixlog.Error(err))
			continue
		}
		if err := buf.Write(bufferOnset+loaded, frame); err != nil {
			log.Warn("skipping file", pixlog.String("path", path), pixlog.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}

var errNotReady = errors.New("frame not ready")

const (
	DefaultPollInterval = 2 * time.Millisecond
	DefaultPollTimeout  = 5 * time.Second
)

// MovieLoader copies frame ranges from a SequenceDecoder into a FrameBuffer.
// Whether the decoder has to be polled for readiness is captured when it is bound.
type MovieLoader struct {
	dec          SequenceDecoder
	polling      bool
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       pixlog.Logger
}

// LoaderOption configures a MovieLoader.
type LoaderOption func(*MovieLoader)

// WithPollInterval sets the first wait between readiness checks.
func WithPollInterval(d time.Duration) LoaderOption {
	return func(m *MovieLoader) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithPollTimeout bounds the wait for a single frame.
func WithPollTimeout(d time.Duration) LoaderOption {
	return func(m *MovieLoader) {
		if d > 0 {
			m.pollTimeout = d
		}
	}
}

// WithLogger injects a logger. The loader logs under the "decode" name.
func WithLogger(l pixlog.Logger) LoaderOption {
	return func(m *MovieLoader) {
		if l != nil {
			m.logger = l.Named("decode")
		}
	}
}

// NewMovieLoader binds dec, which may be nil and set later with SetDecoder.
func NewMovieLoader(dec SequenceDecoder, opts ...LoaderOption) *MovieLoader {
	m := &MovieLoader{
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
		logger:       logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.SetDecoder(dec)
	return m
}

// SetDecoder rebinds the loader and re-reads the decoder's capabilities.
func (m *MovieLoader) SetDecoder(dec SequenceDecoder) {
	m.dec = dec
	m.polling = dec != nil && dec.Capabilities().RequiresPolling
}

// Decoder returns the bound decoder.
func (m *MovieLoader) Decoder() SequenceDecoder { return m.dec }

// RequiresPolling reports what the bound decoder declared at bind time.
func (m *MovieLoader) RequiresPolling() bool { return m.polling }

func (m *MovieLoader) fail(err error, fields ...pixlog.Field) error {
	m.logger.Warn("load movie failed", append(fields, pixlog.Error(err))...)
	return fmt.Errorf("load movie: %w", err)
}

// Load opens path and copies numFrames frames starting at frameOnset into buf.
// A negative numFrames reads to the end of the movie; at least one frame is read.
//
// An empty buffer is allocated to the movie's shape and the range. A non-empty
// buffer must match the movie's shape and receives the frames starting at
// bufferOnset, as many as fit. Load returns the number of frames written.
func (m *MovieLoader) Load(ctx context.Context, buf *buffer.FrameBuffer, path string, numFrames, frameOnset, bufferOnset int) (int, error) {
	if m.dec == nil {
		return 0, m.fail(ErrNoDecoder)
	}
	if buf == nil {
		return 0, m.fail(buffer.ErrNoBuffer)
	}
	if err := m.dec.Load(path); err != nil {
		return 0, m.fail(err, pixlog.String("path", path))
	}

	width, height := m.dec.Width(), m.dec.Height()
	channels := m.dec.PixelFormat().Channels()
	if channels == 0 {
		return 0, m.fail(fmt.Errorf("%w: unsupported pixel format %v", ErrDecode, m.dec.PixelFormat()))
	}

	total := m.dec.TotalFrames()
	frameOnset = max(0, min(total-1, frameOnset))
	if numFrames < 0 {
		numFrames = max(1, total-frameOnset)
	} else {
		numFrames = max(1, min(numFrames, total-frameOnset))
	}

	length := numFrames
	if buf.Size() == 0 {
		if err := buf.Allocate(width, height, channels, numFrames); err != nil {
			return 0, m.fail(err)
		}
		bufferOnset = 0
	} else {
		if !buf.IsAllocated() {
			return 0, m.fail(buffer.ErrNotAllocated)
		}
		if width != buf.Width() || height != buf.Height() || channels != buf.Channels() {
			return 0, m.fail(buffer.ErrDimensionMismatch,
				pixlog.String("movie", fmt.Sprintf("%dx%dx%d", width, height, channels)))
		}
		bufferOnset = max(0, min(buf.Size()-1, bufferOnset))
		length = min(buf.Size()-bufferOnset, numFrames)
	}

	if m.polling {
		// threaded decoders only deliver frames while playing
		m.dec.SetSpeed(0)
		m.dec.Play()
	}
	if err := m.dec.SetFrame(frameOnset); err != nil {
		return 0, m.fail(err)
	}

	for i := 0; i < length; i++ {
		if err := ctx.Err(); err != nil {
			return i, m.fail(err)
		}
		if m.polling {
			if err := m.waitReady(ctx); err != nil {
				return i, m.fail(err, pixlog.Int("frame", frameOnset+i))
			}
		}

		frame, err := m.dec.CurrentFrame()
		if err != nil {
			return i, m.fail(err, pixlog.Int("frame", frameOnset+i))
		}
		if err := buf.Write(bufferOnset+i, frame); err != nil {
			return i, m.fail(err, pixlog.Int("frame", frameOnset+i))
		}
		if i < length-1 {
			if err := m.dec.NextFrame(); err != nil {
				return i + 1, m.fail(err, pixlog.Int("frame", frameOnset+i+1))
			}
		}
	}

	m.logger.Debug("movie loaded",
		pixlog.String("path", path),
		pixlog.Int("frames", length),
		pixlog.Int("buffer_onset", bufferOnset))
	return length, nil
}

// waitReady polls the decoder until it reports a new frame, backing off between
// checks, until the poll timeout elapses or ctx is done.
func (m *MovieLoader) waitReady(ctx context.Context) error {
	if m.dec.NewFrameReady() {
		return nil
	}

	ebo := backoff.NewExponentialBackOff()
	ebo.InitialInterval = m.pollInterval
	ebo.MaxInterval = 10 * m.pollInterval
	ebo.MaxElapsedTime = m.pollTimeout
	ebo.Reset()

	op := func() error {
		if m.dec.NewFrameReady() {
			return nil
		}
		return errNotReady
	}
	if err := backoff.Retry(op, backoff.WithContext(ebo, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: decoder stalled after %v: %v", ErrDecode, m.pollTimeout, err)
	}
	return nil
}
