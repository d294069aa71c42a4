package ingest

import (
	"errors"
	"fmt"
)

// Kind classifies expected operational failures of the ingestion pipeline.
// The set is closed: anything not wrapped in *Error is treated as a bug and
// propagated after the job is marked failed.
type Kind string

const (
	// KindBadArchive covers unreadable archives and archives without the
	// expected single top-level directory.
	KindBadArchive Kind = "bad_archive"
	// KindPathTraversal marks an archive entry that would escape the
	// extraction directory. The whole extraction is aborted.
	KindPathTraversal Kind = "path_traversal"
	// KindMissingManifest means features.tsv is not among the data
	// directory's direct children.
	KindMissingManifest Kind = "missing_manifest"
	// KindEmptyManifest means the manifest has a header but no data rows.
	KindEmptyManifest Kind = "empty_manifest"
	// KindDataFormat covers malformed manifest values and undecodable images.
	KindDataFormat Kind = "data_format"
	// KindMissingAsset means a manifest row references an image file that is
	// not in the archive.
	KindMissingAsset Kind = "missing_asset"
	// KindStoreWrite covers structured-store write failures.
	KindStoreWrite Kind = "store_write"
	// KindStorage covers blob-store transfer failures.
	KindStorage Kind = "storage"
	// KindIO covers local filesystem failures while staging the archive.
	KindIO Kind = "io"
)

// Error is an expected ingestion failure. The orchestrator marks the job
// failed and swallows it instead of propagating.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func wrapError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
