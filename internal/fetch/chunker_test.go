package fetch

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dget-io/dget/internal/utils"
)

// slowReader delays every read to trip the slow-read threshold.
type slowReader struct {
	r     io.Reader
	delay time.Duration
}

func (s *slowReader) Read(p []byte) (int, error) {
	time.Sleep(s.delay)
	return s.r.Read(p)
}

func drain(t *testing.T, c *chunker) []byte {
	t.Helper()
	var out bytes.Buffer
	for {
		chunk, err := c.Next()
		out.Write(chunk)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	return out.Bytes()
}

func TestChunkerReadsEverything(t *testing.T) {
	content := make([]byte, 300*1024)
	_, err := rand.Read(content)
	require.NoError(t, err)

	c := newChunker(bytes.NewReader(content))
	assert.Equal(t, content, drain(t, c))
}

func TestChunkerGrowsOnFastReads(t *testing.T) {
	content := make([]byte, 256*1024)
	c := newChunker(bytes.NewReader(content))
	drain(t, c)
	// In-memory reads complete well under the fast threshold.
	assert.Greater(t, c.size, utils.DefaultChunkSize)
}

func TestChunkerGrowthIsCapped(t *testing.T) {
	content := make([]byte, 256*1024)
	c := newChunker(bytes.NewReader(content))
	c.maxSize = 4 * utils.DefaultChunkSize
	drain(t, c)
	assert.LessOrEqual(t, c.size, 4*utils.DefaultChunkSize)
}

func TestChunkerNeverShrinksBelowStart(t *testing.T) {
	content := make([]byte, 64*1024)
	c := newChunker(&slowReader{r: bytes.NewReader(content), delay: 3 * time.Millisecond})
	c.fastRead = 0
	c.slowRead = time.Millisecond
	drain(t, c)
	assert.Equal(t, utils.DefaultChunkSize, c.size)
}
