package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// PaddedRect grows r by padding pixels on every side and clips the result to
// bounds. Negative padding is treated as zero. The result is empty when r does
// not overlap bounds.
func PaddedRect(r image.Rectangle, padding int, bounds image.Rectangle) image.Rectangle {
	if padding < 0 {
		padding = 0
	}
	return r.Canon().Inset(-padding).Intersect(bounds)
}

// ExtractRegion crops the box r, grown by padding, out of img.
//
// The padded region is clipped to the image bounds before cropping, so the
// call never reads outside the image and never fails. The returned image is
// a copy with its origin at (0,0); it is empty (zero size) when the region
// does not overlap the image.
func ExtractRegion(img image.Image, r image.Rectangle, padding int) *image.NRGBA {
	rect := PaddedRect(r, padding, img.Bounds())
	if rect.Empty() {
		return &image.NRGBA{}
	}
	return imaging.Crop(img, rect)
}
