package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limnoscan/specimen-processor/internal/models"
	"github.com/limnoscan/specimen-processor/pkg/logger"
	"github.com/limnoscan/specimen-processor/pkg/storage"
)

func happyArchive(t *testing.T) []byte {
	t.Helper()
	return buildArchive(t,
		dirEntry("specimens/"),
		fileEntry("specimens/"+ManifestFilename, manifestBytes(
			manifestHeader(),
			manifestRow("http://sensor.local/raw/a.jpg", "2023-01-01"),
		)),
		fileEntry("specimens/a.jpg", pngBytes(t, 10, 20)),
	)
}

func newTestOrchestrator(blobs storage.BlobStore) (*Orchestrator, *fakeLifecycle, *fakeItemStore) {
	lifecycle := newFakeLifecycle()
	items := newFakeItemStore()
	return NewOrchestrator(lifecycle, items, blobs, logger.NewTestLogger()), lifecycle, items
}

func TestRunIngestsArchive(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.put(storage.UploadContainer, "u1", happyArchive(t))

	orchestrator, lifecycle, items := newTestOrchestrator(blobs)
	require.NoError(t, orchestrator.Run(context.Background(), "u1"))

	assert.Equal(t, []models.UploadState{models.UploadStateProcessing, models.UploadStateFinished}, lifecycle.states)
	assert.Equal(t, map[string]int{"items": 1}, lifecycle.summaries[models.UploadStateFinished])

	require.Len(t, items.items, 1)
	item := items.items[0]
	assert.Equal(t, "a.jpg", item.Filename)
	assert.Equal(t, "jpg", item.Extension)
	assert.Equal(t, 10, item.Width)
	assert.Equal(t, 20, item.Height)
	assert.Equal(t, "u1", item.GroupID)

	// the asset landed in the group container under the assigned id
	container := storage.ContainerName("u1")
	_, uploaded := blobs.blobs[blobKey(container, storage.BlobName(item.ID.String(), "jpg"))]
	assert.True(t, uploaded)
}

func TestRunMissingManifest(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.put(storage.UploadContainer, "u1", buildArchive(t,
		dirEntry("specimens/"),
		fileEntry("specimens/a.jpg", pngBytes(t, 10, 20)),
	))

	orchestrator, lifecycle, items := newTestOrchestrator(blobs)
	// a recognized failure is swallowed after marking the job failed
	require.NoError(t, orchestrator.Run(context.Background(), "u1"))

	assert.Equal(t, []models.UploadState{models.UploadStateProcessing, models.UploadStateFailed}, lifecycle.states)
	assert.Empty(t, items.items)
}

func TestRunTraversalArchive(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.put(storage.UploadContainer, "u1", buildArchive(t,
		fileEntry("../escape.txt", []byte("evil")),
	))

	orchestrator, lifecycle, items := newTestOrchestrator(blobs)
	require.NoError(t, orchestrator.Run(context.Background(), "u1"))

	assert.Equal(t, []models.UploadState{models.UploadStateProcessing, models.UploadStateFailed}, lifecycle.states)
	assert.Empty(t, items.items)
}

func TestRunMissingImage(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.put(storage.UploadContainer, "u1", buildArchive(t,
		dirEntry("specimens/"),
		fileEntry("specimens/"+ManifestFilename, manifestBytes(
			manifestHeader(),
			manifestRow("a.jpg", "2023-01-01"),
		)),
	))

	orchestrator, lifecycle, items := newTestOrchestrator(blobs)
	require.NoError(t, orchestrator.Run(context.Background(), "u1"))

	assert.Equal(t, []models.UploadState{models.UploadStateProcessing, models.UploadStateFailed}, lifecycle.states)
	assert.Empty(t, items.items)
}

func TestRunMultipleTopLevelEntries(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.put(storage.UploadContainer, "u1", buildArchive(t,
		dirEntry("one/"),
		dirEntry("two/"),
	))

	orchestrator, lifecycle, _ := newTestOrchestrator(blobs)
	require.NoError(t, orchestrator.Run(context.Background(), "u1"))

	assert.Equal(t, []models.UploadState{models.UploadStateProcessing, models.UploadStateFailed}, lifecycle.states)
}

func TestRunPropagatesUnrecognizedFailure(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.put(storage.UploadContainer, "u1", happyArchive(t))

	orchestrator, lifecycle, _ := newTestOrchestrator(blobs)
	lifecycle.failOn = models.UploadStateFinished

	err := orchestrator.Run(context.Background(), "u1")
	assert.Error(t, err)
}

func TestRunProcessingTransitionFailure(t *testing.T) {
	blobs := newFakeBlobStore()
	orchestrator, lifecycle, _ := newTestOrchestrator(blobs)
	lifecycle.failOn = models.UploadStateProcessing

	err := orchestrator.Run(context.Background(), "u1")
	assert.Error(t, err)
	assert.Empty(t, lifecycle.states)
}

func TestListItemFilenames(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.put(storage.UploadContainer, "u1", buildArchive(t,
		dirEntry("specimens/"),
		fileEntry("specimens/"+ManifestFilename, manifestBytes(
			manifestHeader(),
			manifestRow("c.png", "2023-01-01"),
			manifestRow("a.png", "2023-01-02"),
		)),
		fileEntry("specimens/c.png", pngBytes(t, 2, 2)),
		fileEntry("specimens/a.png", pngBytes(t, 3, 3)),
	))

	orchestrator, lifecycle, items := newTestOrchestrator(blobs)

	filenames, err := orchestrator.ListItemFilenames(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c.png", "a.png"}, filenames)

	// read-only: no state transitions, no inserts, no uploads
	assert.Empty(t, lifecycle.states)
	assert.Empty(t, items.items)
	assert.Empty(t, blobs.ops)

	// listing the same unmodified archive again yields the same result
	again, err := orchestrator.ListItemFilenames(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, filenames, again)
}

func TestListItemFilenamesRecognizedFailure(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.put(storage.UploadContainer, "u1", []byte("not an archive"))

	orchestrator, _, _ := newTestOrchestrator(blobs)

	filenames, err := orchestrator.ListItemFilenames(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, filenames)
	assert.Empty(t, filenames)
}
