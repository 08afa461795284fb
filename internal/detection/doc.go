// Package detection finds circular labels in images.
//
// Detection sits behind the Detector interface so the pipeline does not care
// where boxes come from. Two implementations are provided:
//
//   - HoughDetector: an in-process gradient Hough circle transform. It needs
//     no model and works well on flat layout drawings and photographs where
//     labels are clean circles.
//   - PredictionDetector: reads per-image YOLO prediction files produced by an
//     external trained model, which copes with clutter the transform cannot.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// # Confidence Scores
//
// Every Detection carries a confidence in [0, 1]. For the Hough detector it
// is the fraction of the circle's circumference backed by edge pixels. For
// prediction files it is the model's own score. Detectors drop anything
// below their configured threshold.
//
// # Performance Considerations
//
// The Hough transform is O(edge pixels × radius range). Large photographs
// are downscaled to HoughConfig.MaxDimension before detection, and boxes
// are scaled back to source coordinates.
package detection
