package fetch

import (
	"fmt"

	"github.com/dget-io/dget/internal/utils"
)

// ValidationError reports a malformed request, raised before any network
// activity.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// ProbeError reports a failure to resolve the remote size or redirects.
type ProbeError struct {
	URL string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probing %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ResumeError reports local/remote state unsafe to continue from: a part
// file larger than the remote resource, or a resource that changed between
// probe and transfer. Callers should discard the part file and retry fresh.
type ResumeError struct {
	URL        string
	LocalSize  int64
	RemoteSize int64
	Reason     string
}

func (e *ResumeError) Error() string {
	return fmt.Sprintf("cannot resume %s: %s (local %s, remote %s)",
		e.URL, e.Reason, utils.SizeofFmt(e.LocalSize), utils.SizeofFmt(e.RemoteSize))
}

// TransferError wraps a network failure during streaming with the offending
// URL. Not retried internally; a re-invocation with resume enabled picks up
// from the part file.
type TransferError struct {
	URL string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer from %s failed: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// CommitError reports a failure moving the completed part file into its
// final destination. The part file remains on disk.
type CommitError struct {
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("finalizing %s: %v", e.Path, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// IntegrityError reports a checksum mismatch after a complete download. The
// part file is left on disk for inspection.
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}
