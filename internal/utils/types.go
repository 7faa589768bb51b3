package utils

import "fmt"

// ArchiveKind selects the unpacking applied to a fetched artifact.
type ArchiveKind string

const (
	KindNone  ArchiveKind = "none"
	KindZip   ArchiveKind = "zip"
	KindTar   ArchiveKind = "tar"
	KindTarGz ArchiveKind = "tar.gz"
)

func ParseArchiveKind(s string) (ArchiveKind, error) {
	switch ArchiveKind(s) {
	case "", KindNone:
		return KindNone, nil
	case KindZip:
		return KindZip, nil
	case KindTar:
		return KindTar, nil
	case KindTarGz:
		return KindTarGz, nil
	}
	return KindNone, fmt.Errorf("unsupported archive kind %q (expected none, zip, tar or tar.gz)", s)
}

// FetchJob describes a single download. It is built once by the CLI (or a
// library caller) and not mutated by the engine.
type FetchJob struct {
	URL              string
	OutputPath       string
	Kind             ArchiveKind
	Resume           bool
	Replace          bool
	ExpectedHash     string
	ProgressFunc     func(downloaded, total int64)
	HTTPClientConfig HTTPClientConfig
}

// FetchEntry is one item of a YAML batch list.
type FetchEntry struct {
	OutputPath string `yaml:"op"`
	URL        string `yaml:"link"`
	Kind       string `yaml:"kind"`
	Hash       string `yaml:"hash"`
}

const (
	// PartSuffix marks an in-progress download next to its final path.
	PartSuffix = ".part"

	// DefaultChunkSize is the starting (and minimum) read chunk size.
	DefaultChunkSize = 8 * 1024

	// MaxChunkSize bounds adaptive chunk growth.
	MaxChunkSize = 8 * 1024 * 1024

	// HashBlockSize is the fixed block size for checksum streaming.
	HashBlockSize = 1024 * 1024
)
