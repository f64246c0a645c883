package audio

import "sync"

// RingBuffer is a fixed-capacity circular buffer of float32 samples.
// It holds the rolling pre-speech look-back window while no utterance is
// in progress: writes past capacity overwrite the oldest samples, so the
// buffer always contains the most recent capacity samples.
type RingBuffer struct {
	data     []float32
	capacity int
	writePos int // next write position
	size     int // current sample count, <= capacity
	mu       sync.Mutex
}

// NewRingBuffer creates a ring buffer holding up to capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		data:     make([]float32, capacity),
		capacity: capacity,
	}
}

// Write appends samples, evicting the oldest when capacity is exceeded.
func (rb *RingBuffer) Write(samples []float32) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(samples)
	if n == 0 {
		return
	}

	// Incoming data larger than capacity: keep only the tail.
	if n >= rb.capacity {
		copy(rb.data, samples[n-rb.capacity:])
		rb.writePos = 0
		rb.size = rb.capacity
		return
	}

	spaceToEnd := rb.capacity - rb.writePos
	if n <= spaceToEnd {
		copy(rb.data[rb.writePos:], samples)
		rb.writePos += n
		if rb.writePos == rb.capacity {
			rb.writePos = 0
		}
	} else {
		copy(rb.data[rb.writePos:], samples[:spaceToEnd])
		copy(rb.data[0:], samples[spaceToEnd:])
		rb.writePos = n - spaceToEnd
	}

	rb.size += n
	if rb.size > rb.capacity {
		rb.size = rb.capacity
	}
}

// Drain returns all buffered samples in chronological order and empties
// the buffer. Used to seed an utterance with look-back audio on speech start.
func (rb *RingBuffer) Drain() []float32 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return nil
	}

	result := make([]float32, rb.size)
	if rb.size < rb.capacity {
		copy(result, rb.data[:rb.size])
	} else {
		// Buffer is full, oldest sample sits at writePos.
		firstPartLen := rb.capacity - rb.writePos
		copy(result[:firstPartLen], rb.data[rb.writePos:])
		copy(result[firstPartLen:], rb.data[:rb.writePos])
	}

	rb.writePos = 0
	rb.size = 0
	return result
}

// Clear resets the buffer to empty.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.writePos = 0
	rb.size = 0
}

// Size returns the current number of buffered samples.
func (rb *RingBuffer) Size() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// Capacity returns the maximum number of samples the buffer can hold.
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}
