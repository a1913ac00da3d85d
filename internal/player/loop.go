package player

// defaultLoopSize stands in for "the whole buffer" until a source is bound;
// it is clipped to the buffer on every use.
const defaultLoopSize = 1e6

// loopWindow is a loop range [onset, onset+size] in frames.
type loopWindow struct {
	onset float64
	size  float64
}

// clip bounds the window to a buffer whose last frame index is length.
func (w loopWindow) clip(length float64) loopWindow {
	length = max(0, length)
	w.onset = max(0, min(length, w.onset))
	w.size = max(0, min(length-w.onset, w.size))
	return w
}

func (w loopWindow) end() float64 { return w.onset + w.size }

// loopParams is the base window plus the jitter applied each time it is re-rolled.
type loopParams struct {
	base           loopWindow
	onsetDeviation float64
	sizeDeviation  float64
}

// roll derives a fresh window from the base parameters. A zero deviation leaves
// the matching base value untouched and never consumes a random deviate.
func (lp loopParams) roll(rnd Random, length float64) loopWindow {
	w := lp.base
	if lp.onsetDeviation > 0 {
		w.onset += rnd.Uniform() * lp.onsetDeviation
	}
	if lp.sizeDeviation > 0 {
		w.size += rnd.Uniform() * lp.sizeDeviation
	}
	return w.clip(length)
}
