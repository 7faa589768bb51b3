package fetch

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dget-io/dget/internal/utils"
)

// transferState tracks one active transfer. It lives only for the duration
// of a Fetch call; the part file on disk is the sole durable resume token.
type transferState struct {
	url         string
	destPath    string
	partPath    string
	initialSize int64
	fileSize    int64 // -1 when the remote size is unknown
	downloaded  int64
	onChunk     func(n int64)
}

// strategy is a scheme-specific transport: probe resolves the canonical URL
// and declared size, stream moves bytes from initialSize onward into the
// part file.
type strategy interface {
	probe(rawURL string) (canonicalURL string, size int64, err error)
	stream(st *transferState) error
}

// Engine owns the resumable download state machine. One Engine may run many
// transfers, but at most one writer per destination path at a time.
type Engine struct {
	client   *utils.HTTPClient
	timeout  time.Duration
	progress func(downloaded, total int64)
	log      zerolog.Logger
}

// NewEngine builds an engine with an injected progress sink. The sink is
// invoked synchronously after every chunk write and must not block.
func NewEngine(cfg utils.HTTPClientConfig, progress func(downloaded, total int64)) *Engine {
	return &Engine{
		client:   utils.NewHTTPClient(cfg),
		timeout:  cfg.Timeout,
		progress: progress,
		log:      utils.GetLogger("engine"),
	}
}

// Fetch downloads rawURL into destPath through the part file next to it.
// Sequence: probe the remote size, decide the resume offset, stream, verify
// the digest when one was supplied, then atomically rename. Failures are
// typed (ProbeError, ResumeError, TransferError, IntegrityError) and never
// retried internally; re-invoking with resume enabled continues from the
// part file.
func (e *Engine) Fetch(rawURL, destPath string, resume bool, expectedHash string) error {
	if destPath == "" {
		return &ValidationError{Reason: "destination path must not be empty"}
	}
	if expectedHash != "" {
		if err := ValidateHash(expectedHash); err != nil {
			return err
		}
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("malformed URL %q: %v", rawURL, err)}
	}
	var strat strategy
	switch parsed.Scheme {
	case "http", "https":
		strat = &httpStrategy{client: e.client, log: e.log}
	case "ftp":
		strat = &ftpStrategy{timeout: e.timeout, log: e.log}
	default:
		return &ValidationError{Reason: fmt.Sprintf("unsupported URL scheme %q", parsed.Scheme)}
	}

	canonical, fileSize, err := strat.probe(rawURL)
	if err != nil {
		return &ProbeError{URL: rawURL, Err: err}
	}
	if fileSize < 0 {
		fileSize = -1
		e.log.Debug().Str("url", canonical).Msg("Remote size unknown, size checks disabled")
	} else {
		e.log.Info().Str("url", canonical).Str("size", utils.SizeofFmt(fileSize)).Msg("Downloading")
	}

	partPath := destPath + utils.PartSuffix
	var initialSize int64
	if resume {
		if fi, statErr := os.Stat(partPath); statErr == nil {
			initialSize = fi.Size()
			e.log.Debug().Str("part", partPath).Str("offset", utils.SizeofFmt(initialSize)).Msg("Resuming from part file")
		}
	}
	if fileSize >= 0 && initialSize > fileSize {
		return &ResumeError{
			URL:        canonical,
			LocalSize:  initialSize,
			RemoteSize: fileSize,
			Reason:     "local part file is larger than the remote resource",
		}
	}

	st := &transferState{
		url:         canonical,
		destPath:    destPath,
		partPath:    partPath,
		initialSize: initialSize,
		fileSize:    fileSize,
		downloaded:  initialSize,
	}
	st.onChunk = func(n int64) {
		st.downloaded += n
		if e.progress != nil {
			e.progress(st.downloaded, st.fileSize)
		}
	}
	if e.progress != nil {
		e.progress(st.downloaded, st.fileSize)
	}

	if err := strat.stream(st); err != nil {
		var resumeErr *ResumeError
		if errors.As(err, &resumeErr) {
			return err
		}
		return &TransferError{URL: canonical, Err: err}
	}

	if expectedHash != "" {
		e.log.Debug().Str("path", partPath).Msg("Verifying download hash")
		if err := checkIntegrity(partPath, expectedHash); err != nil {
			return err
		}
	}

	// The destination is touched only here, after byte count and hash both
	// validated.
	if err := os.Rename(partPath, destPath); err != nil {
		return &CommitError{Path: destPath, Err: err}
	}
	e.log.Info().Str("path", destPath).Msg("Download complete")
	return nil
}

// writeChunks appends the stream to the part file through the adaptive
// chunker, reporting each write. A zero initialSize truncates instead.
func writeChunks(st *transferState, r io.Reader) error {
	mode := os.O_CREATE | os.O_WRONLY
	if st.initialSize > 0 {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}
	f, err := os.OpenFile(st.partPath, mode, 0644)
	if err != nil {
		return fmt.Errorf("opening part file: %v", err)
	}
	defer f.Close()

	ch := newChunker(r)
	for {
		chunk, err := ch.Next()
		if len(chunk) > 0 {
			if _, werr := f.Write(chunk); werr != nil {
				return fmt.Errorf("writing part file: %v", werr)
			}
			if st.onChunk != nil {
				st.onChunk(int64(len(chunk)))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading remote stream: %v", err)
		}
	}
	return f.Sync()
}
