package fetch

import (
	"io"
	"time"

	"github.com/dget-io/dget/internal/utils"
)

// chunker reads a stream in adaptively sized chunks: a read finishing under
// fastRead doubles the chunk size, one exceeding slowRead halves it. This
// amortizes per-call overhead on fast links without adding latency spikes on
// slow ones; it is a throughput policy only.
type chunker struct {
	r        io.Reader
	size     int
	minSize  int
	maxSize  int
	fastRead time.Duration
	slowRead time.Duration
	buf      []byte
}

func newChunker(r io.Reader) *chunker {
	return &chunker{
		r:        r,
		size:     utils.DefaultChunkSize,
		minSize:  utils.DefaultChunkSize,
		maxSize:  utils.MaxChunkSize,
		fastRead: 5 * time.Millisecond,
		slowRead: 100 * time.Millisecond,
		buf:      make([]byte, utils.MaxChunkSize),
	}
}

// Next returns the next chunk. The returned slice is valid until the
// following call. io.EOF signals a clean end of stream.
func (c *chunker) Next() ([]byte, error) {
	start := time.Now()
	n, err := c.r.Read(c.buf[:c.size])
	elapsed := time.Since(start)
	if elapsed < c.fastRead && c.size < c.maxSize {
		c.size *= 2
	} else if elapsed > c.slowRead && c.size > c.minSize {
		c.size /= 2
	}
	return c.buf[:n], err
}
