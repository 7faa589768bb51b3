package utils

import (
	"fmt"
	"math"
	"mime"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var sizeUnits = []string{"bytes", "kB", "MB", "GB", "TB", "PB"}
var sizeDecimals = []int{0, 0, 1, 2, 2, 2}

// SizeofFmt turns a byte count into a human-readable string using a 1024
// ladder: "0 bytes", "1 byte", "1000 bytes", "1.0 MB".
func SizeofFmt(num int64) string {
	if num == 0 {
		return "0 bytes"
	}
	if num == 1 {
		return "1 byte"
	}
	if num < 0 {
		return "unknown"
	}
	exponent := 0
	for n := num; n >= 1024 && exponent < len(sizeUnits)-1; n /= 1024 {
		exponent++
	}
	quotient := float64(num) / math.Pow(1024, float64(exponent))
	return fmt.Sprintf("%.*f %s", sizeDecimals[exponent], quotient, sizeUnits[exponent])
}

// FormatSpeed formats a transfer rate for progress display.
func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed == 0 {
		return "0 bytes/s"
	}
	return SizeofFmt(int64(float64(bytes)/elapsed)) + "/s"
}

// InferOutputPath derives a file name from the last URL path segment.
func InferOutputPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	parts := strings.Split(parsed.Path, "/")
	name := parts[len(parts)-1]
	if name == "" {
		return "download"
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return name
}

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

// RemoteFileName asks the server for its advertised file name with a HEAD
// request and returns the Content-Disposition filename, sanitized for use as
// a local path segment. Returns "" when the server does not advertise one.
func RemoteFileName(rawURL string, client *HTTPClient) string {
	req, err := http.NewRequest("HEAD", rawURL, nil)
	if err != nil {
		return ""
	}
	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	contentDisposition := resp.Header.Get("Content-Disposition")
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	if fn := params["filename"]; fn != "" {
		return filenameSanitizer.ReplaceAllString(fn, "_")
	}
	// ParseMediaType leaves an RFC 2231 filename* it could not decode as-is.
	if fn := params["filename*"]; strings.HasPrefix(fn, "UTF-8''") {
		if unescaped, err := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''")); err == nil {
			return filenameSanitizer.ReplaceAllString(unescaped, "_")
		}
	}
	return ""
}

// Clean removes the part file left behind by an aborted download.
func Clean(outputPath string) error {
	partPath := outputPath + PartSuffix
	if _, err := os.Stat(partPath); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(partPath)
}

// ParseHeaderArgs turns "Key: Value" CLI arguments into a header map.
func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}
