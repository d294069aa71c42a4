package ingest

import (
	"errors"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	// Image formats the catalog accepts; DecodeConfig reads only headers.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/limnoscan/specimen-processor/internal/models"
)

// Enricher joins manifest records with their image assets on disk and
// fills in pixel dimensions. It performs no network or storage I/O.
type Enricher struct{}

// Enrich resolves each record's image at dataDir/<filename>, reads its
// dimensions from the header, and builds the items to be cataloged.
func (Enricher) Enrich(dataDir string, records []Record) ([]*models.Item, error) {
	items := make([]*models.Item, 0, len(records))
	for _, record := range records {
		imagePath := filepath.Join(dataDir, record.Filename)

		width, height, err := imageSize(imagePath)
		if err != nil {
			return nil, err
		}

		items = append(items, &models.Item{
			GroupID:       record.GroupID,
			Filename:      filepath.Base(imagePath),
			Extension:     strings.TrimPrefix(filepath.Ext(imagePath), "."),
			Timestamp:     record.Timestamp,
			Width:         width,
			Height:        height,
			Morphometrics: record.Morphometrics,
			Annotations:   record.Annotations,
		})
	}
	return items, nil
}

// imageSize reads only the image header, not the pixel data.
func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, newError(KindMissingAsset, "referenced image %q not found", filepath.Base(path))
		}
		return 0, 0, wrapError(KindIO, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, newError(KindDataFormat, "can't decode image %q: %v", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}
