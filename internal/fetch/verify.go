package fetch

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/dget-io/dget/internal/utils"
)

// ValidateHash checks that expected is a well-formed hex digest of a
// supported algorithm (32 chars for MD5, 64 for SHA-256). It runs before any
// network activity so malformed hashes fail fast.
func ValidateHash(expected string) error {
	if _, err := hex.DecodeString(expected); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("expected hash %q is not hex", expected)}
	}
	switch len(expected) {
	case md5.Size * 2, sha256.Size * 2:
		return nil
	}
	return &ValidationError{
		Reason: fmt.Sprintf("expected hash has length %d, want 32 (md5) or 64 (sha256)", len(expected)),
	}
}

// ChecksumFile computes the hex digest of a file, choosing the algorithm by
// the expected digest's length. The file is streamed in fixed blocks so
// memory use is bounded regardless of file size.
func ChecksumFile(path string, expected string) (string, error) {
	var h hash.Hash
	switch len(expected) {
	case md5.Size * 2:
		h = md5.New()
	case sha256.Size * 2:
		h = sha256.New()
	default:
		return "", &ValidationError{
			Reason: fmt.Sprintf("expected hash has length %d, want 32 (md5) or 64 (sha256)", len(expected)),
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.CopyBuffer(h, f, make([]byte, utils.HashBlockSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// checkIntegrity compares the part file's digest against the expected one.
func checkIntegrity(partPath string, expected string) error {
	actual, err := ChecksumFile(partPath, expected)
	if err != nil {
		return err
	}
	if actual != expected {
		return &IntegrityError{Path: partPath, Expected: expected, Actual: actual}
	}
	return nil
}
