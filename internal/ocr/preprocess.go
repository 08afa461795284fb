package ocr

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// MinOCRSize is the side length below which crops are upscaled.
const MinOCRSize = 100

// Preprocess prepares a label crop for recognition.
//
// Crops with a side under MinOCRSize are upscaled (Catmull-Rom) by
// max(MinOCRSize/h, MinOCRSize/w, 2). The result is then converted to
// grayscale, lightly blurred to suppress sensor noise, and contrast boosted.
func Preprocess(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	if w < MinOCRSize || h < MinOCRSize {
		scale := math.Max(math.Max(float64(MinOCRSize)/float64(h), float64(MinOCRSize)/float64(w)), 2)
		img = imaging.Resize(img, int(float64(w)*scale), int(float64(h)*scale), imaging.CatmullRom)
	}

	gray := effect.Grayscale(img)
	smoothed := blur.Gaussian(gray, 1.0)
	// One global contrast curve, no tiled equalization
	return adjust.Contrast(smoothed, 0.3)
}
