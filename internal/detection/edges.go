package detection

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// edgeMap is a Canny edge map together with the Sobel gradients it was
// computed from. All slices are row-major with width*height entries.
type edgeMap struct {
	width, height int
	edge          []bool
	gx, gy        []float64
}

func (m *edgeMap) isEdge(x, y int) bool { return m.edge[y*m.width+x] }

// blurRadius is the Gaussian radius applied before the Sobel step.
const blurRadius = 1.4

// cannyEdges runs Canny edge detection on img.
//
// The pipeline is: grayscale and Gaussian blur (bild), Sobel gradients,
// non-maximum suppression along the gradient direction, and hysteresis with
// highThreshold and highThreshold/2 (both on the 0-255 scale). Weak pixels
// survive only when 8-connected to a strong pixel. The signed gradients are
// kept for the Hough vote.
func cannyEdges(img image.Image, highThreshold int) *edgeMap {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	n := width * height

	m := &edgeMap{
		width:  width,
		height: height,
		edge:   make([]bool, n),
		gx:     make([]float64, n),
		gy:     make([]float64, n),
	}
	if n == 0 {
		return m
	}

	smoothed := blur.Gaussian(effect.Grayscale(img), blurRadius)
	origin := smoothed.Bounds().Min
	blurred := make([]float64, n)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Gray input, so any channel is the luminance
			blurred[y*width+x] = float64(smoothed.Pix[smoothed.PixOffset(x+origin.X, y+origin.Y)]) / 255.0
		}
	}

	magnitude := make([]float64, n)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := func(dx, dy int) float64 {
				return blurred[clamp(y+dy, 0, height-1)*width+clamp(x+dx, 0, width-1)]
			}
			gx := -p(-1, -1) + p(1, -1) - 2*p(-1, 0) + 2*p(1, 0) - p(-1, 1) + p(1, 1)
			gy := -p(-1, -1) - 2*p(0, -1) - p(1, -1) + p(-1, 1) + 2*p(0, 1) + p(1, 1)
			i := y*width + x
			m.gx[i] = gx
			m.gy[i] = gy
			magnitude[i] = math.Sqrt(gx*gx + gy*gy)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, n)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag == 0 {
				continue
			}
			angle := math.Atan2(m.gy[i], m.gx[i])

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = magnitude[i-1], magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = magnitude[i-width-1], magnitude[i+width+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = magnitude[i-width], magnitude[i+width]
			default:
				n1, n2 = magnitude[i-width+1], magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	highThresh := float64(highThreshold) / 255.0
	lowThresh := highThresh / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			val := suppressed[y*width+x]
			if val >= highThresh {
				m.edge[y*width+x] = true
				continue
			}
			if val < lowThresh || val == 0 {
				continue
			}
			strong := false
			for ky := -1; ky <= 1 && !strong; ky++ {
				for kx := -1; kx <= 1 && !strong; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					strong = suppressed[py*width+px] >= highThresh
				}
			}
			m.edge[y*width+x] = strong
		}
	}

	return m
}

// clamp constrains val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
