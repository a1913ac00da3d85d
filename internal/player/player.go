// Package player implements continuous-time playback over a frame Source with
// variable speed, looping (with randomized onset/size jitter and ping-pong
// reversal) and sub-frame linear interpolation.
//
// A Player is driven by calling Update once per display tick and reading the
// frame to show with Pixels. It is not safe for concurrent use.
package player

import (
	"fmt"
	"time"

	"github.com/mikeyg42/pixelbuffer/internal/buffer"
	"github.com/mikeyg42/pixelbuffer/internal/pixels"
	"github.com/mikeyg42/pixelbuffer/internal/pixlog"
)

// DefaultFrameRate is the playback rate of a new Player, in frames per second.
const DefaultFrameRate = 30

// Player walks a borrowed Source over time. The Source's owner must keep it alive
// and must not resize it while the Player may still hand out frames from it.
type Player struct {
	src    Source
	clock  Clock
	random Random
	logger pixlog.Logger
	empty  *pixels.Frame

	playing     bool
	looping     bool
	pingPong    bool
	interpolate bool
	wrapped     bool

	frameRate float64
	position  float64
	speed     float64
	direction int
	elapsed   float64 // seconds since Play
	lastTick  int64   // clock reading at the previous tick, in microseconds

	loop   loopParams
	window loopWindow // resolved window for the current loop iteration

	// lerp is the source's interpolation scratch frame from the last refresh.
	lerp *pixels.Frame
}

// Option configures a Player.
type Option func(*Player)

// WithSource binds the source at construction and sizes the loop to cover it.
func WithSource(src Source) Option {
	return func(p *Player) { p.src = src }
}

// WithClock replaces the monotonic system clock.
func WithClock(c Clock) Option {
	return func(p *Player) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithRandom replaces the source of loop jitter.
func WithRandom(r Random) Option {
	return func(p *Player) {
		if r != nil {
			p.random = r
		}
	}
}

// WithLogger injects a logger. The player logs under the "player" name.
func WithLogger(l pixlog.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.logger = l.Named("player")
		}
	}
}

// New creates a stopped player.
func New(opts ...Option) *Player {
	p := &Player{
		clock:     SystemClock(),
		random:    globalRandom{},
		logger:    pixlog.L().Named("player"),
		empty:     &pixels.Frame{},
		frameRate: DefaultFrameRate,
		speed:     1,
		direction: 1,
		loop:      loopParams{base: loopWindow{size: defaultLoopSize}},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.src != nil {
		p.loop.base.size = float64(p.src.Size())
	}
	p.window = p.loop.base
	return p
}

func (p *Player) fail(op string, err error) error {
	p.logger.Warn(op+" failed", pixlog.Error(err))
	return fmt.Errorf("player %s: %w", op, err)
}

// ready checks that a source is bound and holds frames.
func (p *Player) ready(op string) error {
	if p.src == nil {
		return p.fail(op, buffer.ErrNoBuffer)
	}
	if !p.src.IsAllocated() {
		return p.fail(op, buffer.ErrNotAllocated)
	}
	if p.src.Size() == 0 {
		return p.fail(op, buffer.ErrEmptyBuffer)
	}
	return nil
}

// SetSource rebinds the player. Loop parameters and position are kept.
func (p *Player) SetSource(src Source) {
	p.src = src
	p.lerp = nil
}

// Source returns the bound source (nil if unbound).
func (p *Player) Source() Source { return p.src }

// HasSource reports whether a source is bound.
func (p *Player) HasSource() bool { return p.src != nil }

func (p *Player) last() float64 {
	return float64(p.src.Size() - 1)
}

func (p *Player) clampPosition() {
	p.position = max(0, min(p.last(), p.position))
}

func (p *Player) refresh() {
	p.lerp, _ = p.src.ReadLinear(p.position)
}

// Update advances playback by the real time elapsed since the previous tick.
func (p *Player) Update() error {
	if err := p.ready("update"); err != nil {
		return err
	}
	if !p.playing {
		return p.Step(0)
	}

	now := p.clock.NowMicros()
	delta := time.Duration(now-p.lastTick) * time.Microsecond
	p.lastTick = now
	return p.Step(delta)
}

// Step advances playback by an explicit delta instead of reading the clock.
// While stopped it only clamps the position.
func (p *Player) Step(delta time.Duration) error {
	if err := p.ready("step"); err != nil {
		return err
	}
	p.wrapped = false
	if !p.playing {
		p.clampPosition()
		return nil
	}

	dt := delta.Seconds()
	p.elapsed += dt
	length := p.last()

	if p.looping {
		p.advanceLoop(dt, length)
	} else {
		// direction only matters while looping
		p.position += dt * p.speed * p.frameRate
		if p.position < 0 || p.position > length {
			p.playing = false
			p.elapsed = 0
			p.logger.Debug("playback reached the end", pixlog.Float64("position", p.position))
		}
	}

	p.clampPosition()
	if p.interpolate {
		p.refresh()
	}
	return nil
}

func (p *Player) advanceLoop(dt, length float64) {
	p.position += dt * p.speed * float64(p.direction) * p.frameRate
	p.window = p.window.clip(length)

	// Moving forward a loop can only be left over its right edge, moving
	// backward only over its left edge; entering from the other side is fine.
	forward := p.speed*float64(p.direction) >= 0
	if forward && p.position <= p.window.end() || !forward && p.position >= p.window.onset {
		return
	}

	p.wrapped = true
	p.window = p.loop.roll(p.random, length)

	switch {
	case p.pingPong && forward:
		p.direction = -p.direction
		p.position = p.window.end()
	case p.pingPong:
		p.direction = -p.direction
		p.position = p.window.onset
	case forward:
		p.position = p.window.onset
	default:
		p.position = p.window.end()
	}
	p.logger.Debug("loop wrapped",
		pixlog.Float64("onset", p.window.onset),
		pixlog.Float64("size", p.window.size),
		pixlog.Int("direction", p.direction))
}

// Pixels returns the frame to display: the interpolated frame when interpolation
// is on and a blend has been computed, otherwise the frame nearest the position.
// It returns an empty frame when nothing can be read.
func (p *Player) Pixels() *pixels.Frame {
	if p.src == nil {
		p.logger.Warn("pixels failed", pixlog.Error(buffer.ErrNoBuffer))
		return p.empty
	}
	if p.interpolate && p.lerp != nil {
		return p.lerp
	}
	f, _ := p.src.Read(int(p.position + 0.5))
	return f
}

// Play starts playback from a frame position, forward.
func (p *Player) Play(position float64) error {
	if p.src == nil {
		return p.fail("play", buffer.ErrNoBuffer)
	}
	p.position = position
	p.lastTick = p.clock.NowMicros()
	p.elapsed = 0
	// leaving a ping-pong loop always resumes forward
	p.direction = 1
	p.playing = true
	p.wrapped = false
	return nil
}

// Stop halts playback and resets the elapsed time.
func (p *Player) Stop() {
	p.playing = false
	p.elapsed = 0
	p.wrapped = false
}

// Pause halts playback and keeps the elapsed time.
func (p *Player) Pause() {
	p.playing = false
	p.wrapped = false
}

// Resume continues playback; the paused interval is not counted.
func (p *Player) Resume() {
	p.playing = true
	p.lastTick = p.clock.NowMicros()
}

// IsPlaying reports whether the player advances on Update.
func (p *Player) IsPlaying() bool { return p.playing }

// ResetLoop re-rolls the loop window and jumps to its entry edge for the sign of
// the speed. It does nothing unless looping is enabled.
func (p *Player) ResetLoop() error {
	if err := p.ready("reset loop"); err != nil {
		return err
	}
	if !p.looping {
		return nil
	}

	p.window = p.loop.roll(p.random, p.last())
	if p.speed >= 0 {
		p.position = p.window.onset
	} else {
		p.position = p.window.end()
	}

	if !p.playing && p.interpolate {
		p.clampPosition()
		p.refresh()
	}
	return nil
}

// StartLoop resets the loop and resumes playback.
func (p *Player) StartLoop() error {
	if err := p.ResetLoop(); err != nil {
		return err
	}
	p.Resume()
	return nil
}

// LoopWrapped reports whether the last tick crossed a loop boundary.
func (p *Player) LoopWrapped() bool { return p.wrapped }

func (p *Player) SetLooping(enable bool) { p.looping = enable }
func (p *Player) Looping() bool          { return p.looping }

// SetLoopPingPong switches between wrapping and reversing at loop edges.
// Changing the mode resets the direction to forward.
func (p *Player) SetLoopPingPong(enable bool) {
	if p.pingPong != enable {
		p.pingPong = enable
		p.direction = 1
	}
}

func (p *Player) LoopPingPong() bool { return p.pingPong }

// SetLoopOnset sets the base loop onset in frames (negative values become 0).
func (p *Player) SetLoopOnset(frames float64) {
	p.loop.base.onset = max(0, frames)
	p.window.onset = p.loop.base.onset
}

// LoopOnset returns the base onset clipped to the source.
func (p *Player) LoopOnset() float64 {
	if p.src == nil {
		return p.loop.base.onset
	}
	return max(0, min(p.last(), p.loop.base.onset))
}

// SetLoopSize sets the base loop size in frames (negative values become 0).
func (p *Player) SetLoopSize(frames float64) {
	p.loop.base.size = max(0, frames)
	p.window.size = p.loop.base.size
}

// LoopSize returns the base size clipped to what fits after the onset.
func (p *Player) LoopSize() float64 {
	if p.src == nil {
		return p.loop.base.size
	}
	return max(0, min(p.last()-p.loop.base.onset, p.loop.base.size))
}

func (p *Player) SetLoopOnsetDeviation(frames float64) { p.loop.onsetDeviation = max(0, frames) }
func (p *Player) LoopOnsetDeviation() float64          { return p.loop.onsetDeviation }
func (p *Player) SetLoopSizeDeviation(frames float64)  { p.loop.sizeDeviation = max(0, frames) }
func (p *Player) LoopSizeDeviation() float64           { return p.loop.sizeDeviation }

// Window returns the resolved onset and size of the current loop iteration.
func (p *Player) Window() (onset, size float64) {
	return p.window.onset, p.window.size
}

func (p *Player) SetInterpolation(enable bool) { p.interpolate = enable }
func (p *Player) Interpolation() bool          { return p.interpolate }

// SetFrameRate sets the playback rate; non-positive rates are rejected.
func (p *Player) SetFrameRate(fps float64) error {
	if fps <= 0 {
		return p.fail("set frame rate", fmt.Errorf("bad frame rate %v", fps))
	}
	p.frameRate = fps
	return nil
}

func (p *Player) FrameRate() float64 { return p.frameRate }

func (p *Player) SetSpeed(speed float64) { p.speed = speed }
func (p *Player) Speed() float64         { return p.speed }

// Direction is +1 or -1; it only flips in ping-pong loops.
func (p *Player) Direction() int { return p.direction }

// SetPosition jumps to a frame position and resets the direction to forward.
// While paused with interpolation on, the blend is refreshed right away.
func (p *Player) SetPosition(frames float64) error {
	if p.src == nil {
		return p.fail("set position", buffer.ErrNoBuffer)
	}
	if !p.playing && p.interpolate && p.src.IsAllocated() && p.src.Size() > 0 {
		p.position = frames
		p.clampPosition()
		p.refresh()
	} else {
		// Update clamps on the next tick
		p.position = frames
	}
	p.direction = 1
	return nil
}

// Position returns the playhead clipped to the source.
func (p *Player) Position() float64 {
	if p.src == nil || p.src.Size() == 0 {
		return 0
	}
	return max(0, min(p.last(), p.position))
}

// SetRelativePosition jumps to a fraction of the total frame count.
func (p *Player) SetRelativePosition(fraction float64) error {
	return p.SetPosition(fraction * float64(p.TotalFrames()))
}

// RelativePosition is Position divided by the total frame count.
func (p *Player) RelativePosition() float64 {
	n := p.TotalFrames()
	if n == 0 {
		return 0
	}
	return p.Position() / float64(n)
}

// TotalFrames is the size of the bound source.
func (p *Player) TotalFrames() int {
	if p.src == nil {
		return 0
	}
	return p.src.Size()
}

// TotalDuration is the source length at the current frame rate.
func (p *Player) TotalDuration() time.Duration {
	return time.Duration(float64(p.TotalFrames()) / p.frameRate * float64(time.Second))
}

// PassedTime is the playback time accumulated since Play.
func (p *Player) PassedTime() time.Duration {
	return time.Duration(p.elapsed * float64(time.Second))
}

func (p *Player) IsAllocated() bool {
	return p.src != nil && p.src.IsAllocated()
}

// Width, Height and Channels return -1 without a source.
func (p *Player) Width() int {
	if p.src == nil {
		return -1
	}
	return p.src.Width()
}

func (p *Player) Height() int {
	if p.src == nil {
		return -1
	}
	return p.src.Height()
}

func (p *Player) Channels() int {
	if p.src == nil {
		return -1
	}
	return p.src.Channels()
}
