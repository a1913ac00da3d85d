package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeyg42/pixelbuffer/internal/buffer"
	"github.com/mikeyg42/pixelbuffer/internal/pixels"
)

type fakeClock struct{ now int64 }

func (c *fakeClock) NowMicros() int64 { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now += d.Microseconds() }

// ramp builds a 1x1 gray buffer whose frame i holds the byte 10*i.
func ramp(t *testing.T, n int) *buffer.FrameBuffer {
	t.Helper()
	fb, err := buffer.NewAllocated(1, 1, 1, n)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, fb.Write(i, &pixels.Frame{Width: 1, Height: 1, Channels: 1, Pix: []byte{byte(10 * i)}}))
	}
	return fb
}

func noRandom(t *testing.T) Random {
	return RandomFunc(func() float64 {
		t.Fatal("random deviate drawn with zero deviation")
		return 0
	})
}

func TestNonLoopingPlaysToEndThenStops(t *testing.T) {
	clk := &fakeClock{}
	fb := ramp(t, 31)
	p := New(WithSource(fb), WithClock(clk))
	require.NoError(t, p.SetFrameRate(30))
	require.NoError(t, p.Play(0))

	for i := 0; i < 4; i++ {
		clk.advance(250 * time.Millisecond)
		require.NoError(t, p.Update())
	}
	assert.Equal(t, 30.0, p.Position())
	assert.True(t, p.IsPlaying())
	assert.Equal(t, time.Second, p.PassedTime())

	clk.advance(100 * time.Millisecond)
	require.NoError(t, p.Update())
	assert.False(t, p.IsPlaying())
	assert.Equal(t, 30.0, p.Position())
	assert.Equal(t, time.Duration(0), p.PassedTime())
	assert.Same(t, fb.At(30), p.Pixels())
}

func TestNonLoopingBackwardStops(t *testing.T) {
	p := New(WithSource(ramp(t, 11)))
	p.SetSpeed(-1)
	require.NoError(t, p.Play(7.5))

	require.NoError(t, p.Step(250*time.Millisecond))
	assert.Equal(t, 0.0, p.Position())
	assert.True(t, p.IsPlaying())

	require.NoError(t, p.Step(250*time.Millisecond))
	assert.False(t, p.IsPlaying())
	assert.Equal(t, 0.0, p.Position())
}

func TestPingPongFlipsDirection(t *testing.T) {
	p := New(WithSource(ramp(t, 11)), WithRandom(noRandom(t)))
	p.SetLooping(true)
	p.SetLoopPingPong(true)
	p.SetLoopOnset(0)
	p.SetLoopSize(10)
	require.NoError(t, p.Play(0))

	steps := []struct {
		position  float64
		direction int
		wrapped   bool
	}{
		{6, 1, false},
		{10, -1, true},
		{4, -1, false},
		{0, 1, true},
		{6, 1, false},
	}
	for i, want := range steps {
		require.NoError(t, p.Step(200*time.Millisecond))
		assert.InDelta(t, want.position, p.Position(), 1e-9, "tick %d", i)
		assert.Equal(t, want.direction, p.Direction(), "tick %d", i)
		assert.Equal(t, want.wrapped, p.LoopWrapped(), "tick %d", i)
	}
	assert.True(t, p.IsPlaying())
}

func TestLoopWrappedLastsOneTick(t *testing.T) {
	clk := &fakeClock{}
	p := New(WithSource(ramp(t, 11)), WithClock(clk), WithRandom(noRandom(t)))
	p.SetLooping(true)
	p.SetLoopOnset(0)
	p.SetLoopSize(10)
	require.NoError(t, p.Play(0))

	require.NoError(t, p.Step(400*time.Millisecond))
	require.True(t, p.LoopWrapped())
	p.SetLooping(false)
	require.NoError(t, p.Step(10*time.Millisecond))
	assert.False(t, p.LoopWrapped())
	assert.True(t, p.IsPlaying())

	p.SetLooping(true)
	require.NoError(t, p.Step(400*time.Millisecond))
	require.True(t, p.LoopWrapped())
	p.Pause()
	assert.False(t, p.LoopWrapped())
	clk.advance(time.Second)
	require.NoError(t, p.Update())
	assert.False(t, p.LoopWrapped())

	p.Resume()
	require.NoError(t, p.Step(400*time.Millisecond))
	require.True(t, p.LoopWrapped())
	p.Stop()
	assert.False(t, p.LoopWrapped())
}

func TestLoopWindowDeterministicWithoutDeviation(t *testing.T) {
	p := New(WithSource(ramp(t, 21)), WithRandom(noRandom(t)))
	p.SetLooping(true)
	p.SetLoopOnset(2)
	p.SetLoopSize(5)
	require.NoError(t, p.Play(2))

	wraps := 0
	for i := 0; i < 40; i++ {
		require.NoError(t, p.Step(100*time.Millisecond))
		if p.LoopWrapped() {
			wraps++
			assert.Equal(t, 2.0, p.Position())
		}
		onset, size := p.Window()
		assert.Equal(t, 2.0, onset)
		assert.Equal(t, 5.0, size)
		assert.GreaterOrEqual(t, p.Position(), 2.0)
		assert.LessOrEqual(t, p.Position(), 7.0)
	}
	assert.Greater(t, wraps, 5)
}

func TestLoopJitter(t *testing.T) {
	p := New(WithSource(ramp(t, 21)), WithRandom(RandomFunc(func() float64 { return 0.5 })))
	p.SetLooping(true)
	p.SetLoopOnset(2)
	p.SetLoopSize(5)
	p.SetLoopOnsetDeviation(2)
	p.SetLoopSizeDeviation(4)
	require.NoError(t, p.Play(6))

	require.NoError(t, p.Step(100*time.Millisecond))
	require.True(t, p.LoopWrapped())
	onset, size := p.Window()
	assert.Equal(t, 3.0, onset)
	assert.Equal(t, 7.0, size)
	assert.Equal(t, 3.0, p.Position())

	// base parameters are untouched by the roll
	assert.Equal(t, 2.0, p.LoopOnset())
	assert.Equal(t, 5.0, p.LoopSize())
}

func TestReverseLoopWrapsToRightEdge(t *testing.T) {
	p := New(WithSource(ramp(t, 21)))
	p.SetLooping(true)
	p.SetLoopOnset(2)
	p.SetLoopSize(5)
	p.SetSpeed(-1)
	require.NoError(t, p.Play(4))

	require.NoError(t, p.Step(100*time.Millisecond))
	assert.True(t, p.LoopWrapped())
	assert.Equal(t, 7.0, p.Position())
	assert.Equal(t, 1, p.Direction())
}

func TestLoopWindowClippedToSource(t *testing.T) {
	p := New(WithSource(ramp(t, 5)))
	p.SetLooping(true)
	p.SetLoopOnset(2)
	p.SetLoopSize(100)
	assert.Equal(t, 2.0, p.LoopSize())

	require.NoError(t, p.Play(2))
	require.NoError(t, p.Step(100*time.Millisecond))
	assert.True(t, p.LoopWrapped())
	assert.Equal(t, 2.0, p.Position())
	onset, size := p.Window()
	assert.Equal(t, 2.0, onset)
	assert.Equal(t, 2.0, size)
}

func TestResetLoop(t *testing.T) {
	p := New(WithSource(ramp(t, 11)))
	p.SetLoopOnset(2.5)
	p.SetLoopSize(4)

	// no-op unless looping
	require.NoError(t, p.ResetLoop())
	assert.Equal(t, 0.0, p.Position())

	p.SetLooping(true)
	p.SetInterpolation(true)
	require.NoError(t, p.ResetLoop())
	assert.Equal(t, 2.5, p.Position())
	assert.Equal(t, byte(25), p.Pixels().Pix[0], "paused interpolation refreshes eagerly")

	p.SetSpeed(-2)
	require.NoError(t, p.ResetLoop())
	assert.Equal(t, 6.5, p.Position())

	require.NoError(t, p.StartLoop())
	assert.True(t, p.IsPlaying())
}

func TestSetPosition(t *testing.T) {
	p := New(WithSource(ramp(t, 11)))
	p.SetLooping(true)
	p.SetLoopPingPong(true)
	require.NoError(t, p.Play(0))
	p.SetLoopSize(4)
	require.NoError(t, p.Step(200*time.Millisecond))
	require.Equal(t, -1, p.Direction())

	require.NoError(t, p.SetPosition(99))
	assert.Equal(t, 1, p.Direction())
	assert.Equal(t, 10.0, p.Position(), "getter clips")

	p.Pause()
	p.SetInterpolation(true)
	require.NoError(t, p.SetPosition(1.5))
	assert.Equal(t, byte(15), p.Pixels().Pix[0])

	require.NoError(t, p.SetRelativePosition(0.5))
	assert.InDelta(t, 5.5, p.Position(), 1e-9)
	assert.InDelta(t, 0.5, p.RelativePosition(), 1e-9)
}

func TestPingPongToggleResetsDirection(t *testing.T) {
	p := New(WithSource(ramp(t, 11)))
	p.SetLooping(true)
	p.SetLoopPingPong(true)
	p.SetLoopSize(2)
	require.NoError(t, p.Play(0))
	require.NoError(t, p.Step(100*time.Millisecond))
	require.Equal(t, -1, p.Direction())

	p.SetLoopPingPong(true)
	assert.Equal(t, -1, p.Direction(), "unchanged mode keeps direction")
	p.SetLoopPingPong(false)
	assert.Equal(t, 1, p.Direction())
}

func TestPauseResumeSkipsPausedInterval(t *testing.T) {
	clk := &fakeClock{}
	p := New(WithSource(ramp(t, 31)), WithClock(clk))
	require.NoError(t, p.Play(0))

	clk.advance(100 * time.Millisecond)
	require.NoError(t, p.Update())
	p.Pause()
	clk.advance(10 * time.Second)
	require.NoError(t, p.Update())
	assert.InDelta(t, 3.0, p.Position(), 1e-9)

	p.Resume()
	clk.advance(100 * time.Millisecond)
	require.NoError(t, p.Update())
	assert.InDelta(t, 6.0, p.Position(), 1e-9)
	assert.Equal(t, 200*time.Millisecond, p.PassedTime())

	p.Stop()
	assert.False(t, p.IsPlaying())
	assert.Equal(t, time.Duration(0), p.PassedTime())
}

func TestPixelsNearestFrame(t *testing.T) {
	p := New(WithSource(ramp(t, 5)))
	require.NoError(t, p.SetPosition(2.6))
	require.NoError(t, p.Update())
	assert.Equal(t, byte(30), p.Pixels().Pix[0])
}

func TestPlayerOverRing(t *testing.T) {
	rb, err := buffer.NewRingAllocated(1, 1, 1, 4)
	require.NoError(t, err)
	for v := byte(1); v <= 4; v++ {
		require.NoError(t, rb.In(&pixels.Frame{Width: 1, Height: 1, Channels: 1, Pix: []byte{v}}))
	}

	p := New(WithSource(rb))
	assert.Equal(t, 3.0, p.LoopSize(), "loop covers the ring")
	require.NoError(t, p.SetPosition(0))
	require.NoError(t, p.Update())
	assert.Equal(t, byte(4), p.Pixels().Pix[0], "newest first")
	require.NoError(t, p.SetPosition(3))
	require.NoError(t, p.Update())
	assert.Equal(t, byte(1), p.Pixels().Pix[0])
}

func TestPlayerErrors(t *testing.T) {
	p := New()
	assert.False(t, p.HasSource())
	assert.ErrorIs(t, p.Update(), buffer.ErrNoBuffer)
	assert.ErrorIs(t, p.Play(0), buffer.ErrNoBuffer)
	assert.ErrorIs(t, p.SetPosition(1), buffer.ErrNoBuffer)
	assert.ErrorIs(t, p.ResetLoop(), buffer.ErrNoBuffer)
	assert.True(t, p.Pixels().IsEmpty())
	assert.Equal(t, -1, p.Width())
	assert.Equal(t, 0, p.TotalFrames())
	assert.Error(t, p.SetFrameRate(0))
	assert.Equal(t, float64(DefaultFrameRate), p.FrameRate())

	p.SetSource(buffer.New())
	assert.ErrorIs(t, p.Update(), buffer.ErrNotAllocated)

	fb := ramp(t, 3)
	p.SetSource(fb)
	assert.NoError(t, p.Update())
	assert.Equal(t, 1, p.Channels())
	assert.Equal(t, 100*time.Millisecond, p.TotalDuration())
}
