package utils

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeofFmt(t *testing.T) {
	tests := []struct {
		num  int64
		want string
	}{
		{0, "0 bytes"},
		{1, "1 byte"},
		{42, "42 bytes"},
		{1000, "1000 bytes"},
		{1024, "1 kB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
		{-1, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeofFmt(tt.num), "SizeofFmt(%d)", tt.num)
	}
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "0 bytes/s", FormatSpeed(1024, 0))
	assert.Equal(t, "1 kB/s", FormatSpeed(2048, 2))
}

func TestInferOutputPath(t *testing.T) {
	assert.Equal(t, "data.csv", InferOutputPath("https://example.com/files/data.csv"))
	assert.Equal(t, "download", InferOutputPath("https://example.com/"))
	assert.Equal(t, "my file.txt", InferOutputPath("https://example.com/my%20file.txt"))
}

func TestRemoteFileName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plain":
			w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
		case "/unsafe":
			w.Header().Set("Content-Disposition", `attachment; filename="week/42:report.pdf"`)
		case "/encoded":
			w.Header().Set("Content-Disposition", `attachment; filename*=UTF-8''na%C3%AFve.txt`)
		}
	}))
	t.Cleanup(server.Close)
	client := NewHTTPClient(HTTPClientConfig{})

	assert.Equal(t, "report.pdf", RemoteFileName(server.URL+"/plain", client))
	assert.Equal(t, "week_42_report.pdf", RemoteFileName(server.URL+"/unsafe", client),
		"path separators in advertised names must be neutralized")
	assert.Equal(t, "na_ve.txt", RemoteFileName(server.URL+"/encoded", client))
	assert.Equal(t, "", RemoteFileName(server.URL+"/none", client),
		"no Content-Disposition means no advertised name")
	assert.Equal(t, "", RemoteFileName("ftp://mirror.example.com/f", client))
}

func TestParseHeaderArgs(t *testing.T) {
	headers := ParseHeaderArgs([]string{"Authorization: Bearer abc", "X-Custom:1", "garbage"})
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc", "X-Custom": "1"}, headers)
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "file.bin")
	part := dest + PartSuffix
	require.NoError(t, os.WriteFile(part, []byte("partial"), 0644))

	require.NoError(t, Clean(dest))
	_, err := os.Stat(part)
	assert.True(t, os.IsNotExist(err))

	// Cleaning again is a no-op.
	require.NoError(t, Clean(dest))
}

func TestParseArchiveKind(t *testing.T) {
	for _, s := range []string{"", "none", "zip", "tar", "tar.gz"} {
		_, err := ParseArchiveKind(s)
		assert.NoError(t, err, "kind %q", s)
	}
	_, err := ParseArchiveKind("rar")
	assert.Error(t, err)
}
