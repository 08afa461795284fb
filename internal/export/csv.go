package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// utf8BOM lets spreadsheet applications detect UTF-8 for the Chinese headers.
const utf8BOM = "\uFEFF"

// ResultsCSVPath returns the per-image CSV path: <outputDir>/<stem>_results.csv.
func ResultsCSVPath(outputDir, imagePath string) string {
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+"_results.csv")
}

// WriteCSV writes records to path as UTF-8 CSV with a byte order mark,
// creating parent directories as needed. With no records only the header
// row is written.
func WriteCSV(path string, records []Record, withImage bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV: %w", err)
	}

	if err := EncodeCSV(f, records, withImage); err != nil {
		f.Close()
		return fmt.Errorf("failed to write CSV %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close CSV %s: %w", path, err)
	}
	return nil
}

// EncodeCSV writes the BOM, the header row and one row per record to w.
func EncodeCSV(w io.Writer, records []Record, withImage bool) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Headers(withImage)); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Strings(withImage)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
