package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// supportedFormats maps lower-case file extensions to format names.
var supportedFormats = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Path is the file the image was loaded from.
	Path string `json:"path"`

	// Width is the image width in pixels after orientation is applied.
	Width int `json:"width"`

	// Height is the image height in pixels after orientation is applied.
	Height int `json:"height"`

	// Format is the format implied by the file extension: "jpeg", "png",
	// "bmp", "tiff", or "unknown".
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// IsSupported reports whether path has an image extension the pipeline reads.
// The comparison is case-insensitive.
func IsSupported(path string) bool {
	_, ok := supportedFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load opens and decodes an image file, applying EXIF orientation.
//
// Returns:
//   - image.Image: The decoded image.
//   - *ImageInfo: Dimensions, format and file size.
//   - error: Non-nil if the file cannot be opened, stat'd or decoded. A missing
//     file yields an error that satisfies errors.Is(err, fs.ErrNotExist).
func Load(path string) (image.Image, *ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if stat.IsDir() {
		return nil, nil, fmt.Errorf("failed to open image: %s is a directory", path)
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	format, ok := supportedFormats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		format = "unknown"
	}

	bounds := img.Bounds()
	return img, &ImageInfo{
		Path:          path,
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}

// ListImages returns the supported image files directly inside dir, sorted by
// file name. Subdirectories are not searched.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(paths)
	return paths, nil
}
