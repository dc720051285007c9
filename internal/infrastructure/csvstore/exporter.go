package csvstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	options "github.com/apurbab29/futu-options/internal/domain/entity/options"

	"github.com/gocarina/gocsv"
)

const DefaultLabel = "latest_300_filtered"

const exportFileMode os.FileMode = 0o644

// Exporter writes final tables as <dir>/<TICKER>_<label>.csv with the dot of
// the ticker replaced by an underscore.
type Exporter struct {
	dir   string
	label string
	cache *TableCache
}

// NewExporter returns an exporter rooted at dir. When cache is set, written
// paths are invalidated so a replay source sees the new file.
func NewExporter(dir, label string, cache *TableCache) *Exporter {
	if dir == "" {
		dir = "."
	}
	if label == "" {
		label = DefaultLabel
	}
	return &Exporter{dir: dir, label: label, cache: cache}
}

// FileName returns the export file name of ticker.
func (e *Exporter) FileName(ticker string) string {
	return fmt.Sprintf("%s_%s.csv", strings.ReplaceAll(strings.ToUpper(ticker), ".", "_"), e.label)
}

func (e *Exporter) Export(ctx context.Context, ticker string, records []options.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(e.dir, e.FileName(ticker))

	tmp, err := os.CreateTemp(e.dir, ".export-*.csv")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, records); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Chmod(exportFileMode); err != nil {
		tmp.Close()
		return "", fmt.Errorf("chmod export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move export file: %w", err)
	}
	if e.cache != nil {
		e.cache.Invalidate(path)
	}
	return path, nil
}

// WriteCSV writes records in the canonical column layout.
func WriteCSV(w io.Writer, records []options.Record) error {
	rows := make([]row, 0, len(records))
	for _, r := range records {
		rows = append(rows, fromRecord(r))
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return nil
}
