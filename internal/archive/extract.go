// Package archive unpacks downloaded zip, tar and tar.gz artifacts into a
// destination directory. Extraction is staged: entries are unpacked into a
// scratch directory and moved into the destination only once the whole
// archive extracted cleanly, so a failed extraction leaves the destination
// untouched.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dget-io/dget/internal/utils"
)

// ExtractError wraps any failure while unpacking an archive.
type ExtractError struct {
	Archive string
	Err     error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Extract unpacks archivePath into destDir according to kind. destDir must
// already exist.
func Extract(archivePath, destDir string, kind utils.ArchiveKind) error {
	// Scratch lives inside destDir so the final moves are same-filesystem
	// renames.
	scratch := filepath.Join(destDir, ".extract-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return &ExtractError{Archive: archivePath, Err: err}
	}
	defer os.RemoveAll(scratch)

	var err error
	switch kind {
	case utils.KindZip:
		err = extractZip(archivePath, scratch)
	case utils.KindTar:
		err = extractTar(archivePath, scratch, false)
	case utils.KindTarGz:
		err = extractTar(archivePath, scratch, true)
	default:
		err = fmt.Errorf("unsupported archive kind %q", kind)
	}
	if err != nil {
		return &ExtractError{Archive: archivePath, Err: err}
	}
	if err := promote(scratch, destDir); err != nil {
		return &ExtractError{Archive: archivePath, Err: err}
	}
	return nil
}

// promote moves every top-level entry of the scratch directory into destDir.
func promote(scratch, destDir string) error {
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		src := filepath.Join(scratch, entry.Name())
		dst := filepath.Join(destDir, entry.Name())
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// safeJoin resolves an archive entry name under dir, rejecting names that
// escape it.
func safeJoin(dir, name string) (string, error) {
	if name == "" || !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("archive entry %q escapes the destination directory", name)
	}
	return filepath.Join(dir, filepath.FromSlash(name)), nil
}

func extractZip(archivePath, dir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()
	for _, file := range reader.File {
		target, err := safeJoin(dir, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		src, err := file.Open()
		if err != nil {
			return err
		}
		if err := writeEntry(target, src, file.Mode()); err != nil {
			src.Close()
			return err
		}
		src.Close()
	}
	return nil
}

func extractTar(archivePath, dir string, gzipped bool) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()
	var reader io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	}
	log := utils.GetLogger("archive")
	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dir, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := writeEntry(target, tr, os.FileMode(header.Mode)); err != nil {
				return err
			}
		default:
			// Symlinks, hardlinks and device nodes are not materialized.
			log.Debug().Str("entry", header.Name).Uint8("type", header.Typeflag).Msg("Skipping entry with unsupported type")
		}
	}
}

func writeEntry(target string, src io.Reader, mode os.FileMode) error {
	if mode&0400 == 0 {
		mode |= 0644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
