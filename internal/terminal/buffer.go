package terminal

import "sync"

// Buffer is a fixed-size ring of recent terminal output. Once full, the
// oldest bytes are overwritten.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	size int
	head int
	n    int
}

// NewBuffer creates a buffer holding up to size bytes.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = 1
	}
	return &Buffer{data: make([]byte, size), size: size}
}

// Write appends p, discarding the oldest bytes when over capacity.
func (b *Buffer) Write(p []byte) (int, error) {
	written := len(p)

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p) >= b.size {
		copy(b.data, p[len(p)-b.size:])
		b.head, b.n = 0, b.size
		return written, nil
	}

	tail := (b.head + b.n) % b.size
	first := copy(b.data[tail:], p)
	copy(b.data, p[first:])

	b.n += len(p)
	if b.n > b.size {
		b.head = (b.head + b.n - b.size) % b.size
		b.n = b.size
	}
	return written, nil
}

// Snapshot returns the buffered bytes without consuming them.
func (b *Buffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyLocked()
}

// Drain returns the buffered bytes and empties the buffer.
func (b *Buffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.copyLocked()
	b.head, b.n = 0, 0
	return out
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func (b *Buffer) copyLocked() []byte {
	out := make([]byte, b.n)
	first := copy(out, b.data[b.head:min(b.head+b.n, b.size)])
	copy(out[first:], b.data[:b.n-first])
	return out
}
