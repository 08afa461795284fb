package detection

import (
	"context"
	"image"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Rect returns the bounds as an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Width returns X2 - X1.
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// CenterX returns the horizontal center of the box.
func (b Bounds) CenterX() float64 { return float64(b.X1+b.X2) / 2 }

// CenterY returns the vertical center of the box.
func (b Bounds) CenterY() float64 { return float64(b.Y1+b.Y2) / 2 }

// BoundsFromRect converts an image.Rectangle into Bounds.
func BoundsFromRect(r image.Rectangle) Bounds {
	r = r.Canon()
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Detection is one candidate circular label found in an image.
//
// Detections are values; once a Detector returns them they are not modified.
type Detection struct {
	// Bounds is the label's bounding box in source image coordinates.
	Bounds Bounds `json:"bounds"`

	// Confidence is the detector's score in [0, 1].
	Confidence float64 `json:"confidence"`

	// ClassID is the detector's class index. The Hough detector always
	// reports class 0.
	ClassID int `json:"class_id"`
}

// Rect returns the detection's bounding box.
func (d Detection) Rect() image.Rectangle { return d.Bounds.Rect() }

// Input is the image handed to a Detector. Path identifies the source file
// (prediction-file detectors look results up by its name); Image holds the
// decoded pixels.
type Input struct {
	Path  string
	Image image.Image
}

// Detector finds circular labels in an image.
//
// Implementations return detections at or above their configured confidence
// threshold, in no particular order. An image without labels yields an empty
// slice and a nil error.
type Detector interface {
	Detect(ctx context.Context, in Input) ([]Detection, error)
}

// FilterByConfidence returns the detections whose confidence is at least min.
// The input order is preserved.
func FilterByConfidence(dets []Detection, min float64) []Detection {
	kept := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= min {
			kept = append(kept, d)
		}
	}
	return kept
}
