package ingest

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/limnoscan/specimen-processor/pkg/logger"
	"github.com/limnoscan/specimen-processor/pkg/storage"
)

// Unpacker downloads an uploaded archive from the blob store and extracts
// it into an isolated directory. Every entry is validated against the
// extraction root before anything is written, so a traversal entry anywhere
// in the archive aborts the extraction as a whole.
type Unpacker struct {
	blobs  storage.BlobStore
	logger logger.Logger
}

func NewUnpacker(blobs storage.BlobStore, log logger.Logger) *Unpacker {
	return &Unpacker{blobs: blobs, logger: log}
}

// Unpack fetches the archive stored under (container, uploadID) to
// localPath and extracts it into extractionDir.
func (u *Unpacker) Unpack(ctx context.Context, uploadID, container, localPath, extractionDir string) error {
	if err := u.blobs.Download(ctx, container, uploadID, localPath); err != nil {
		return wrapError(KindStorage, err)
	}

	if err := extractArchive(localPath, extractionDir); err != nil {
		return err
	}

	u.logger.Debug("Archive extracted",
		logger.String("uploadId", uploadID),
		logger.String("dir", extractionDir),
	)
	return nil
}

// extractArchive unpacks a tar.gz archive under dest. It makes two passes:
// the first validates every entry path, the second writes files. No entry
// is extracted before all entries have passed the traversal check.
func extractArchive(archivePath, dest string) error {
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return wrapError(KindIO, err)
	}

	if err := scanArchive(archivePath, absDest); err != nil {
		return err
	}

	return walkArchive(archivePath, func(hdr *tar.Header, r io.Reader) error {
		target := filepath.Join(absDest, hdr.Name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return wrapError(KindIO, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return wrapError(KindIO, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
			if err != nil {
				return wrapError(KindIO, err)
			}
			if _, err := io.Copy(out, r); err != nil {
				out.Close()
				return wrapError(KindIO, err)
			}
			if err := out.Close(); err != nil {
				return wrapError(KindIO, err)
			}
		default:
			// symlinks, devices and the like are never materialized
		}
		return nil
	})
}

// scanArchive checks every entry of the archive against the extraction
// root without writing anything.
func scanArchive(archivePath, absDest string) error {
	return walkArchive(archivePath, func(hdr *tar.Header, _ io.Reader) error {
		if !withinDirectory(absDest, filepath.Join(absDest, hdr.Name)) {
			return newError(KindPathTraversal, "archive entry %q escapes extraction directory", hdr.Name)
		}
		if hdr.Typeflag == tar.TypeSymlink || hdr.Typeflag == tar.TypeLink {
			if filepath.IsAbs(hdr.Linkname) ||
				!withinDirectory(absDest, filepath.Join(absDest, filepath.Dir(hdr.Name), hdr.Linkname)) {
				return newError(KindPathTraversal, "archive link %q targets %q outside extraction directory", hdr.Name, hdr.Linkname)
			}
		}
		return nil
	})
}

// walkArchive opens the tar.gz archive and calls fn for every entry.
func walkArchive(archivePath string, fn func(*tar.Header, io.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return wrapError(KindIO, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return wrapError(KindBadArchive, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapError(KindBadArchive, err)
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

// withinDirectory reports whether target resolves to root or below it.
func withinDirectory(root, target string) bool {
	abs, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	return abs == root || strings.HasPrefix(abs, root+string(os.PathSeparator))
}
