package fetch

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dget-io/dget/internal/utils"
)

func testEngine(progress func(downloaded, total int64)) *Engine {
	return NewEngine(utils.HTTPClientConfig{Timeout: 10 * time.Second}, progress)
}

func testContent(t *testing.T, size int) []byte {
	t.Helper()
	content := make([]byte, size)
	_, err := rand.Read(content)
	require.NoError(t, err)
	return content
}

// rangeServer serves content with full Range support and records the Range
// header of every request.
func rangeServer(t *testing.T, content []byte) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var ranges []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Range"))
		mu.Unlock()
		http.ServeContent(w, r, "file.bin", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(server.Close)
	return server, &ranges
}

func TestFetchFull(t *testing.T) {
	content := testContent(t, 64*1024)
	server, _ := rangeServer(t, content)
	dest := filepath.Join(t.TempDir(), "file.bin")

	require.NoError(t, testEngine(nil).Fetch(server.URL, dest, false, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	_, err = os.Stat(dest + utils.PartSuffix)
	assert.True(t, os.IsNotExist(err), "part file must be gone after commit")
}

func TestFetchResume(t *testing.T) {
	content := testContent(t, 64*1024)
	server, ranges := rangeServer(t, content)
	dest := filepath.Join(t.TempDir(), "file.bin")
	require.NoError(t, os.WriteFile(dest+utils.PartSuffix, content[:1000], 0644))

	require.NoError(t, testEngine(nil).Fetch(server.URL, dest, true, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got, "resumed file must match a full download byte-for-byte")
	assert.Contains(t, *ranges, "bytes=1000-", "stream request must ask for the remainder only")
}

func TestFetchResumeIgnoredWithoutPartFile(t *testing.T) {
	content := testContent(t, 8*1024)
	server, ranges := rangeServer(t, content)
	dest := filepath.Join(t.TempDir(), "file.bin")

	require.NoError(t, testEngine(nil).Fetch(server.URL, dest, true, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	for _, rng := range *ranges {
		assert.Empty(t, rng)
	}
}

func TestFetchRangeRejectedFallsBackToFullRestart(t *testing.T) {
	content := testContent(t, 32*1024)
	// This server ignores Range and always replies 200 with the full body.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	t.Cleanup(server.Close)

	dest := filepath.Join(t.TempDir(), "file.bin")
	// Stale garbage in the part file must be truncated, not prepended.
	require.NoError(t, os.WriteFile(dest+utils.PartSuffix, bytes.Repeat([]byte("x"), 500), 0644))

	require.NoError(t, testEngine(nil).Fetch(server.URL, dest, true, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetchUnknownSize(t *testing.T) {
	content := testContent(t, 16*1024)
	// Flushing before the body forces chunked encoding with no
	// Content-Length.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		w.Write(content)
	}))
	t.Cleanup(server.Close)

	var totals []int64
	dest := filepath.Join(t.TempDir(), "file.bin")
	engine := testEngine(func(downloaded, total int64) { totals = append(totals, total) })

	require.NoError(t, engine.Fetch(server.URL, dest, false, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	require.NotEmpty(t, totals)
	for _, total := range totals {
		assert.Equal(t, int64(-1), total, "unknown size must be reported as -1")
	}
}

func TestFetchHashMismatch(t *testing.T) {
	content := testContent(t, 8*1024)
	server, _ := rangeServer(t, content)
	dest := filepath.Join(t.TempDir(), "file.bin")

	err := testEngine(nil).Fetch(server.URL, dest, false, "00000000000000000000000000000000")

	var integrityErr *IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no file may appear at the destination")
	_, statErr = os.Stat(dest + utils.PartSuffix)
	assert.NoError(t, statErr, "part file must be preserved for inspection")
}

func TestFetchHashMatch(t *testing.T) {
	content := testContent(t, 8*1024)
	server, _ := rangeServer(t, content)
	dest := filepath.Join(t.TempDir(), "file.bin")
	sum := md5.Sum(content)

	require.NoError(t, testEngine(nil).Fetch(server.URL, dest, false, hex.EncodeToString(sum[:])))
	_, err := os.Stat(dest)
	assert.NoError(t, err)
}

func TestFetchMalformedHashFailsBeforeNetwork(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	t.Cleanup(server.Close)
	dest := filepath.Join(t.TempDir(), "file.bin")

	err := testEngine(nil).Fetch(server.URL, dest, false, "deadbeef")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, requests, "validation must happen before any network activity")
}

func TestFetchPartLargerThanRemote(t *testing.T) {
	content := testContent(t, 1024)
	server, _ := rangeServer(t, content)
	dest := filepath.Join(t.TempDir(), "file.bin")
	require.NoError(t, os.WriteFile(dest+utils.PartSuffix, testContent(t, 2048), 0644))

	err := testEngine(nil).Fetch(server.URL, dest, true, "")

	var resumeErr *ResumeError
	require.ErrorAs(t, err, &resumeErr)
	assert.Equal(t, int64(2048), resumeErr.LocalSize)
	assert.Equal(t, int64(1024), resumeErr.RemoteSize)
}

func TestFetchCommitFailure(t *testing.T) {
	content := testContent(t, 1024)
	server, _ := rangeServer(t, content)
	dest := filepath.Join(t.TempDir(), "file.bin")
	// A directory at the destination path makes the final rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "sub"), 0755))

	err := testEngine(nil).Fetch(server.URL, dest, false, "")

	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, dest, commitErr.Path)
	_, statErr := os.Stat(dest + utils.PartSuffix)
	assert.NoError(t, statErr, "part file must survive a failed commit")
}

func TestFetchProbeFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)
	dest := filepath.Join(t.TempDir(), "file.bin")

	err := testEngine(nil).Fetch(server.URL, dest, false, "")

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
}

func TestFetchResourceChangedBetweenProbeAndStream(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		size := 100
		if requests > 1 {
			size = 50
		}
		http.ServeContent(w, r, "file.bin", time.Time{}, bytes.NewReader(make([]byte, size)))
	}))
	t.Cleanup(server.Close)
	dest := filepath.Join(t.TempDir(), "file.bin")

	err := testEngine(nil).Fetch(server.URL, dest, false, "")

	var resumeErr *ResumeError
	require.ErrorAs(t, err, &resumeErr)
}

func TestFetchFollowsRedirects(t *testing.T) {
	content := testContent(t, 4*1024)
	target, _ := rangeServer(t, content)
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	t.Cleanup(redirect.Close)
	dest := filepath.Join(t.TempDir(), "file.bin")

	require.NoError(t, testEngine(nil).Fetch(redirect.URL, dest, false, ""))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestFetchProgressReporting(t *testing.T) {
	content := testContent(t, 32*1024)
	server, _ := rangeServer(t, content)
	dest := filepath.Join(t.TempDir(), "file.bin")

	var mu sync.Mutex
	var last, total int64
	var monotonic = true
	engine := testEngine(func(d, tot int64) {
		mu.Lock()
		defer mu.Unlock()
		if d < last {
			monotonic = false
		}
		last, total = d, tot
	})

	require.NoError(t, engine.Fetch(server.URL, dest, false, ""))
	assert.True(t, monotonic, "byte counter must be monotonic")
	assert.Equal(t, int64(len(content)), last)
	assert.Equal(t, int64(len(content)), total)
}

func TestFetchValidation(t *testing.T) {
	var validationErr *ValidationError

	err := testEngine(nil).Fetch("https://example.com/x", "", false, "")
	require.ErrorAs(t, err, &validationErr)

	err = testEngine(nil).Fetch("gopher://example.com/x", filepath.Join(t.TempDir(), "f"), false, "")
	require.ErrorAs(t, err, &validationErr)
}
