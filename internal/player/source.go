package player

import (
	"math/rand/v2"
	"time"

	"github.com/mikeyg42/pixelbuffer/internal/pixels"
)

// Source is what a Player walks over. Both buffer.FrameBuffer and
// buffer.RingBuffer satisfy it; the Player never owns its Source.
type Source interface {
	Size() int
	IsAllocated() bool
	Width() int
	Height() int
	Channels() int
	Read(index int) (*pixels.Frame, error)
	ReadLinear(position float64) (*pixels.Frame, error)
}

// Clock reports monotonic elapsed microseconds since an arbitrary epoch.
type Clock interface {
	NowMicros() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

func (f ClockFunc) NowMicros() int64 { return f() }

type systemClock struct {
	epoch time.Time
}

// SystemClock returns a Clock backed by the runtime's monotonic clock.
func SystemClock() Clock {
	return &systemClock{epoch: time.Now()}
}

func (c *systemClock) NowMicros() int64 {
	return time.Since(c.epoch).Microseconds()
}

// Random produces uniform deviates in [-1, 1] for loop jitter.
type Random interface {
	Uniform() float64
}

// RandomFunc adapts a function to Random.
type RandomFunc func() float64

func (f RandomFunc) Uniform() float64 { return f() }

type pcgRandom struct {
	r *rand.Rand
}

// NewRandom returns a seeded Random so jittered loops can be replayed.
func NewRandom(seed uint64) Random {
	return &pcgRandom{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *pcgRandom) Uniform() float64 {
	return p.r.Float64()*2 - 1
}

type globalRandom struct{}

func (globalRandom) Uniform() float64 {
	return rand.Float64()*2 - 1
}
