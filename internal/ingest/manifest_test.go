package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limnoscan/specimen-processor/internal/models"
)

func writeManifest(t *testing.T, dir string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFilename), data, 0644))
}

func TestParseManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, manifestBytes(
		manifestHeader(),
		manifestRow("http://example.com/images/a.png", "2023-01-01"),
		manifestRow("b.png", "2023-06-15T12:30:00"),
	))

	records, err := Parser{}.Parse(dir, "g1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a.png", records[0].Filename)
	assert.Equal(t, "b.png", records[1].Filename)
	assert.Equal(t, "g1", records[0].GroupID)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Timestamp)

	for _, field := range models.MorphometricFields {
		assert.Equal(t, 1.5, records[0].Morphometrics[field])
	}
}

func TestParseManifestMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("img"), 0644))

	_, err := Parser{}.Parse(dir, "g1")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindMissingManifest, kind)
}

func TestParseManifestEmpty(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, manifestBytes(manifestHeader()))

		_, err := Parser{}.Parse(dir, "g1")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindEmptyManifest, kind)
	})

	t.Run("zero bytes", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, nil)

		_, err := Parser{}.Parse(dir, "g1")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindEmptyManifest, kind)
	})
}

func TestParseManifestBadValues(t *testing.T) {
	t.Run("non-numeric morphometric", func(t *testing.T) {
		dir := t.TempDir()
		row := manifestRow("a.png", "2023-01-01")
		row[2] = "not-a-number"
		writeManifest(t, dir, manifestBytes(manifestHeader(), row))

		_, err := Parser{}.Parse(dir, "g1")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindDataFormat, kind)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, manifestBytes(manifestHeader(), manifestRow("a.png", "yesterday")))

		_, err := Parser{}.Parse(dir, "g1")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindDataFormat, kind)
	})

	t.Run("missing morphometric column", func(t *testing.T) {
		dir := t.TempDir()
		writeManifest(t, dir, manifestBytes([]string{"url", "timestamp"}, []string{"a.png", "2023-01-01"}))

		_, err := Parser{}.Parse(dir, "g1")
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindDataFormat, kind)
	})
}

func TestParseManifestAnnotationDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, manifestBytes(manifestHeader(), manifestRow("a.png", "2023-01-01")))

	records, err := Parser{}.Parse(dir, "g1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	// every annotable field absent from the manifest gets the null triple
	for _, field := range models.AnnotableFields {
		annotation, ok := records[0].Annotations[field]
		require.True(t, ok, field)
		assert.Nil(t, annotation.Value, field)
		assert.Nil(t, annotation.ModifiedBy, field)
		assert.Nil(t, annotation.ModifiedAt, field)
	}
}

func TestParseManifestAnnotationsPreserved(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, manifestBytes(
		manifestHeader("species", "species_modified_by", "species_modification_time", "genus"),
		manifestRow("a.png", "2023-01-01", "copepoda", "annotator1", "2023-02-01T10:00:00", ""),
	))

	records, err := Parser{}.Parse(dir, "g1")
	require.NoError(t, err)
	require.Len(t, records, 1)

	species := records[0].Annotations["species"]
	require.NotNil(t, species.Value)
	assert.Equal(t, "copepoda", *species.Value)
	require.NotNil(t, species.ModifiedBy)
	assert.Equal(t, "annotator1", *species.ModifiedBy)
	require.NotNil(t, species.ModifiedAt)
	assert.Equal(t, "2023-02-01T10:00:00", *species.ModifiedAt)

	// a present column is preserved as-is, even when empty
	genus := records[0].Annotations["genus"]
	require.NotNil(t, genus.Value)
	assert.Equal(t, "", *genus.Value)
	assert.Nil(t, genus.ModifiedBy)

	// untouched fields still get the null triple
	kingdom := records[0].Annotations["kingdom"]
	assert.Nil(t, kingdom.Value)
}

func TestParseManifestRowOrder(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, manifestBytes(
		manifestHeader(),
		manifestRow("c.png", "2023-01-01"),
		manifestRow("a.png", "2023-01-02"),
		manifestRow("b.png", "2023-01-03"),
	))

	records, err := Parser{}.Parse(dir, "g1")
	require.NoError(t, err)

	var names []string
	for _, record := range records {
		names = append(names, record.Filename)
	}
	assert.Equal(t, []string{"c.png", "a.png", "b.png"}, names)
}
