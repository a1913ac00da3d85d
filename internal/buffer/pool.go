package buffer

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

// DefaultPoolMaxSize bounds the payloads kept by the shared pool (64MB per slice).
const DefaultPoolMaxSize = 64 * 1024 * 1024

var defaultPool = NewPayloadPool(DefaultPoolMaxSize)

// PayloadPool recycles zeroed frame payloads in power-of-two size classes so that
// growing, shrinking and clearing buffers does not churn the GC.
type PayloadPool struct {
	pools   map[int]*sync.Pool // Size (power of two) -> Pool
	maxSize int
	mu      sync.RWMutex

	// Metrics
	allocated atomic.Uint64
	inUse     atomic.Uint64
	hits      atomic.Uint64
	misses    atomic.Uint64
}

// NewPayloadPool creates a pool that refuses to retain slices larger than maxSize.
func NewPayloadPool(maxSize int) *PayloadPool {
	return &PayloadPool{
		pools:   make(map[int]*sync.Pool),
		maxSize: maxSize,
	}
}

// Get returns a zero-filled slice of exactly size bytes.
func (p *PayloadPool) Get(size int) []byte {
	if size <= 0 {
		return nil
	}

	poolSize := roundUpPowerOf2(size)
	if poolSize > p.maxSize {
		p.misses.Add(1)
		return make([]byte, size)
	}

	p.mu.RLock()
	pool, exists := p.pools[poolSize]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[poolSize]
		if !exists {
			localSize := poolSize
			pool = &sync.Pool{
				New: func() interface{} {
					p.allocated.Add(1)
					return make([]byte, localSize)
				},
			}
			p.pools[poolSize] = pool
		}
		p.mu.Unlock()
	}

	buf := pool.Get().([]byte)
	if cap(buf) < size {
		p.misses.Add(1)
		return make([]byte, size)
	}

	p.hits.Add(1)
	p.inUse.Add(1)
	return buf[:size]
}

// Put zeroes buf and returns it to its size class. Slices whose capacity is not
// a power of two did not come from Get and are left to the GC.
func (p *PayloadPool) Put(buf []byte) {
	size := cap(buf)
	if size <= 0 || size&(size-1) != 0 || size > p.maxSize {
		return
	}

	p.mu.RLock()
	pool, exists := p.pools[size]
	p.mu.RUnlock()
	if !exists {
		return
	}

	buf = buf[:size]
	clear(buf)
	pool.Put(buf)

	if p.inUse.Load() > 0 {
		p.inUse.Add(^uint64(0)) // subtract 1
	}
}

// Metrics returns pool statistics
func (p *PayloadPool) Metrics() map[string]interface{} {
	p.mu.RLock()
	poolCount := len(p.pools)
	p.mu.RUnlock()

	h := p.hits.Load()
	m := p.misses.Load()
	hitRate := float64(h) / float64(h+m+1) // +1 to avoid div-by-zero

	return map[string]interface{}{
		"pools":     poolCount,
		"allocated": p.allocated.Load(),
		"in_use":    p.inUse.Load(),
		"hits":      h,
		"misses":    m,
		"hit_rate":  hitRate,
	}
}

// roundUpPowerOf2 rounds n up to the nearest power of 2 (minimum 1)
func roundUpPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
