// Package export writes recognized labels as tabular results: one CSV per
// image, and a combined CSV and Excel workbook (plus, optionally, a
// PostgreSQL table) for a whole batch.
package export

import (
	"math"
	"strconv"
)

// Column headers. The first two keep the names the results have always been
// published under.
const (
	ColumnImage      = "Image"
	ColumnSequence   = "序號"
	ColumnText       = "識別內容"
	ColumnRow        = "Row"
	ColumnX          = "X"
	ColumnY          = "Y"
	ColumnWidth      = "Width"
	ColumnHeight     = "Height"
	ColumnX1         = "X1"
	ColumnY1         = "Y1"
	ColumnX2         = "X2"
	ColumnY2         = "Y2"
	ColumnConfidence = "Confidence"
)

// Record is one recognized label in reading order.
type Record struct {
	// Image is the source file name (base name, no directory).
	Image string `json:"image"`

	// Sequence is the 1-based reading order position within the image.
	Sequence int `json:"sequence"`

	// Text is the cleaned, merged OCR text. Empty when nothing was read.
	Text string `json:"text"`

	// Row is the 0-based reading row.
	Row int `json:"row"`

	// Bounding box in source pixels.
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`

	// Confidence is the detector's score.
	Confidence float64 `json:"confidence"`
}

// CenterX returns the horizontal box center, rounded down.
func (r Record) CenterX() int { return (r.X1 + r.X2) / 2 }

// CenterY returns the vertical box center, rounded down.
func (r Record) CenterY() int { return (r.Y1 + r.Y2) / 2 }

// Width returns the box width.
func (r Record) Width() int { return r.X2 - r.X1 }

// Height returns the box height.
func (r Record) Height() int { return r.Y2 - r.Y1 }

// RoundedConfidence returns the confidence rounded to 3 decimal places.
func (r Record) RoundedConfidence() float64 {
	return math.Round(r.Confidence*1000) / 1000
}

// Headers returns the column names, with the Image column first when
// withImage is set.
func Headers(withImage bool) []string {
	cols := []string{
		ColumnSequence, ColumnText, ColumnRow,
		ColumnX, ColumnY, ColumnWidth, ColumnHeight,
		ColumnX1, ColumnY1, ColumnX2, ColumnY2,
		ColumnConfidence,
	}
	if withImage {
		return append([]string{ColumnImage}, cols...)
	}
	return cols
}

// Values returns the record as typed cell values in Headers order.
func (r Record) Values(withImage bool) []any {
	vals := []any{
		r.Sequence, r.Text, r.Row,
		r.CenterX(), r.CenterY(), r.Width(), r.Height(),
		r.X1, r.Y1, r.X2, r.Y2,
		r.RoundedConfidence(),
	}
	if withImage {
		return append([]any{r.Image}, vals...)
	}
	return vals
}

// Strings returns the record formatted for CSV in Headers order.
func (r Record) Strings(withImage bool) []string {
	vals := r.Values(withImage)
	out := make([]string, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case int:
			out[i] = strconv.Itoa(v)
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			out[i] = v
		}
	}
	return out
}
