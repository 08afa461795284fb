package export

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Combined output file names.
const (
	CombinedCSVName   = "combined_results.csv"
	CombinedExcelName = "combined_results.xlsx"
)

// Dataset accumulates records across the images of one batch.
//
// A Dataset is passed explicitly through the pipeline; it is not safe for
// concurrent use.
type Dataset struct {
	// RunID identifies the batch in database rows and logs.
	RunID string

	records []Record
	images  []string
}

// NewDataset returns an empty dataset with a fresh run id.
func NewDataset() *Dataset {
	return &Dataset{RunID: uuid.NewString()}
}

// AddImage appends the records of one image. An image with no records is
// still listed in Images.
func (d *Dataset) AddImage(image string, records []Record) {
	d.images = append(d.images, image)
	for _, r := range records {
		r.Image = image
		d.records = append(d.records, r)
	}
}

// Records returns a copy of all records in insertion order.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Images returns the image names in the order they were added.
func (d *Dataset) Images() []string {
	out := make([]string, len(d.images))
	copy(out, d.images)
	return out
}

// CombinedPaths are the files written by WriteCombined.
type CombinedPaths struct {
	CSV   string
	Excel string
}

// WriteCombined writes the combined CSV and Excel workbook into dir. Both
// files are written even when the dataset is empty.
func (d *Dataset) WriteCombined(dir string) (CombinedPaths, error) {
	paths := CombinedPaths{
		CSV:   filepath.Join(dir, CombinedCSVName),
		Excel: filepath.Join(dir, CombinedExcelName),
	}

	if err := WriteCSV(paths.CSV, d.records, true); err != nil {
		return CombinedPaths{}, fmt.Errorf("combined CSV: %w", err)
	}
	if err := WriteExcel(paths.Excel, d.records, true); err != nil {
		return CombinedPaths{}, fmt.Errorf("combined workbook: %w", err)
	}
	return paths, nil
}
