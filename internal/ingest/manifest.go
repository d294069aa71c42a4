package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/limnoscan/specimen-processor/internal/models"
)

// ManifestFilename is the fixed manifest name expected directly inside the
// extracted data directory. Every other file there is an image asset.
const ManifestFilename = "features.tsv"

// Record is one manifest row before image enrichment.
type Record struct {
	GroupID       string
	Filename      string // basename of the manifest's url column
	Timestamp     time.Time
	Morphometrics map[string]float64
	Annotations   map[string]models.Annotation
}

// Parser reads the tab-separated manifest into typed records.
type Parser struct{}

// Timestamp layouts accepted in the manifest, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse reads features.tsv from dataDir and returns one record per data
// row, in file order. groupID is stamped onto every record.
func (Parser) Parse(dataDir, groupID string) ([]Record, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, wrapError(KindIO, err)
	}

	found := false
	for _, entry := range entries {
		if !entry.IsDir() && entry.Name() == ManifestFilename {
			found = true
			break
		}
	}
	if !found {
		return nil, newError(KindMissingManifest, "%s not found in %s", ManifestFilename, dataDir)
	}

	f, err := os.Open(filepath.Join(dataDir, ManifestFilename))
	if err != nil {
		return nil, wrapError(KindIO, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, newError(KindEmptyManifest, "%s has no rows", ManifestFilename)
	}
	if err != nil {
		return nil, wrapError(KindDataFormat, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range append([]string{"url", "timestamp"}, models.MorphometricFields...) {
		if _, ok := columns[required]; !ok {
			return nil, newError(KindDataFormat, "manifest is missing required column %q", required)
		}
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapError(KindDataFormat, err)
		}

		record, err := rowToRecord(row, columns, groupID)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, newError(KindEmptyManifest, "%s has no data rows", ManifestFilename)
	}
	return records, nil
}

func rowToRecord(row []string, columns map[string]int, groupID string) (Record, error) {
	cell := func(name string) (string, bool) {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return "", false
		}
		return row[idx], true
	}

	url, _ := cell("url")
	tsValue, _ := cell("timestamp")
	ts, err := parseTimestamp(tsValue)
	if err != nil {
		return Record{}, newError(KindDataFormat, "bad timestamp %q: %v", tsValue, err)
	}

	morphometrics := make(map[string]float64, len(models.MorphometricFields))
	for _, field := range models.MorphometricFields {
		raw, _ := cell(field)
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Record{}, newError(KindDataFormat, "bad %s value %q", field, raw)
		}
		morphometrics[field] = value
	}

	// Annotable columns present in the manifest are taken as-is; absent
	// ones get the null triple so a later annotation session can fill them.
	annotations := make(map[string]models.Annotation, len(models.AnnotableFields))
	for _, field := range models.AnnotableFields {
		var annotation models.Annotation
		if value, ok := cell(field); ok {
			annotation.Value = &value
		}
		if by, ok := cell(field + "_modified_by"); ok {
			annotation.ModifiedBy = &by
		}
		if at, ok := cell(field + "_modification_time"); ok {
			annotation.ModifiedAt = &at
		}
		annotations[field] = annotation
	}

	return Record{
		GroupID:       groupID,
		Filename:      path.Base(url),
		Timestamp:     ts,
		Morphometrics: morphometrics,
		Annotations:   annotations,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
