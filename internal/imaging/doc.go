// Package imaging provides the image handling used by the label pipeline.
//
// This package loads source photographs, extracts padded label regions for
// recognition, draws annotations (boxes, sequence numbers and recognized text)
// and writes the annotated result back to disk. All operations work with
// standard Go image.Image types and use a coordinate system where (0,0) is at
// the top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Region Extraction
//
// ExtractRegion never reads outside the source image. Padding that would
// cross an image edge is clipped to that edge, and a region that lies
// entirely outside the image produces an empty image instead of an error.
//
// # Supported Formats
//
// Input images may be JPEG, PNG, BMP or TIFF. EXIF orientation is applied on
// load so that boxes reported by a detector line up with what a viewer shows.
// Annotated images are written in the format implied by the file extension.
package imaging
