package ingest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/limnoscan/specimen-processor/internal/models"
)

// archiveEntry is one entry of a test archive.
type archiveEntry struct {
	name     string
	body     []byte
	typeflag byte
	linkname string
}

func fileEntry(name string, body []byte) archiveEntry {
	return archiveEntry{name: name, body: body, typeflag: tar.TypeReg}
}

func dirEntry(name string) archiveEntry {
	return archiveEntry{name: name, typeflag: tar.TypeDir}
}

// buildArchive produces a tar.gz archive from the given entries.
func buildArchive(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, entry := range entries {
		hdr := &tar.Header{
			Name:     entry.name,
			Typeflag: entry.typeflag,
			Mode:     0644,
			Size:     int64(len(entry.body)),
			Linkname: entry.linkname,
			ModTime:  time.Now(),
		}
		if entry.typeflag == tar.TypeDir {
			hdr.Mode = 0755
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if entry.typeflag == tar.TypeReg {
			_, err := tw.Write(entry.body)
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// pngBytes encodes a blank image with the given dimensions.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// manifestBytes builds a tab-separated manifest from a header and rows.
func manifestBytes(header []string, rows ...[]string) []byte {
	var sb strings.Builder
	sb.WriteString(strings.Join(header, "\t"))
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// manifestHeader is a complete required-column header.
func manifestHeader(extra ...string) []string {
	header := append([]string{"url", "timestamp"}, models.MorphometricFields...)
	return append(header, extra...)
}

// manifestRow fills all morphometric columns with 1.5.
func manifestRow(url, timestamp string, extra ...string) []string {
	row := []string{url, timestamp}
	for range models.MorphometricFields {
		row = append(row, "1.5")
	}
	return append(row, extra...)
}

// fakeBlobStore keeps blobs in memory and records every operation.
type fakeBlobStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	metadata   map[string]map[string]string
	containers map[string]bool
	ops        []string

	downloadErr error
	uploadErr   error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		blobs:      make(map[string][]byte),
		metadata:   make(map[string]map[string]string),
		containers: make(map[string]bool),
	}
}

func blobKey(container, name string) string {
	return container + "/" + name
}

func (f *fakeBlobStore) put(container, name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[container] = true
	f.blobs[blobKey(container, name)] = data
}

func (f *fakeBlobStore) Download(ctx context.Context, container, blobName, destPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloadErr != nil {
		return f.downloadErr
	}
	data, ok := f.blobs[blobKey(container, blobName)]
	if !ok {
		return fmt.Errorf("blob %s not found", blobKey(container, blobName))
	}
	return os.WriteFile(destPath, data, 0644)
}

func (f *fakeBlobStore) Upload(ctx context.Context, container, blobName, srcPath string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	key := blobKey(container, blobName)
	f.blobs[key] = data
	f.metadata[key] = metadata
	f.ops = append(f.ops, "upload:"+key)
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, container string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.containers[container], nil
}

func (f *fakeBlobStore) EnsureContainer(ctx context.Context, container string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[container] = true
	f.ops = append(f.ops, "ensure:"+container)
	return nil
}

// fakeItemStore records inserts and assigns identifiers.
type fakeItemStore struct {
	mu        sync.Mutex
	items     []*models.Item
	ops       *[]string
	failAfter int // fail the (failAfter+1)-th insert; -1 never fails
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{failAfter: -1}
}

func (f *fakeItemStore) Insert(ctx context.Context, item *models.Item) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && len(f.items) == f.failAfter {
		return "", fmt.Errorf("insert rejected")
	}
	item.ID = uuid.New()
	f.items = append(f.items, item)
	if f.ops != nil {
		*f.ops = append(*f.ops, "insert:"+item.Filename)
	}
	return item.ID.String(), nil
}

// fakeLifecycle records state transitions.
type fakeLifecycle struct {
	mu        sync.Mutex
	states    []models.UploadState
	summaries map[models.UploadState]map[string]int
	failOn    models.UploadState
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{summaries: make(map[models.UploadState]map[string]int)}
}

func (f *fakeLifecycle) UpdateState(ctx context.Context, uploadID string, state models.UploadState, summary map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && f.failOn == state {
		return fmt.Errorf("state update rejected")
	}
	f.states = append(f.states, state)
	f.summaries[state] = summary
	return nil
}
