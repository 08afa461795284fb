package imaging

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// JPEGQuality is the quality used when an annotated image is saved as JPEG.
const JPEGQuality = 95

// Save writes img to path, creating parent directories as needed. The format
// follows the file extension (jpg, jpeg, png, bmp, tif, tiff, gif).
func Save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err := imaging.Save(img, path,
		imaging.JPEGQuality(JPEGQuality),
		imaging.PNGCompressionLevel(png.DefaultCompression),
	)
	if err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// AnnotatedPath returns the path the annotated copy of src is written to
// inside outputDir: "annotated_<base name>".
func AnnotatedPath(outputDir, src string) string {
	return filepath.Join(outputDir, "annotated_"+filepath.Base(src))
}
