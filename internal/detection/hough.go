package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// HoughConfig tunes the in-process circle detector. Radii and distances are
// in source image pixels; they are rescaled internally when the image is
// downscaled for detection.
type HoughConfig struct {
	// MinRadius and MaxRadius bound the radii searched.
	MinRadius int
	MaxRadius int

	// MinDist is the minimum distance between two detected centers.
	MinDist float64

	// CannyHigh is the high hysteresis threshold (0-255) of the edge map.
	// The low threshold is half of it.
	CannyHigh int

	// AccumThreshold is the number of center votes (3x3 neighborhood) a
	// candidate needs. Lower values find more, and more false, circles.
	AccumThreshold int

	// MaxDimension limits the longer image side used for detection.
	// Zero disables downscaling.
	MaxDimension int

	// PaddingRatio enlarges the box around each circle by this fraction
	// of the radius.
	PaddingRatio float64

	// MinConfidence drops circles with less edge support.
	MinConfidence float64
}

// DefaultHoughConfig returns the settings used for the label photographs:
// radii 20-100 px, centers at least 50 px apart.
func DefaultHoughConfig() HoughConfig {
	return HoughConfig{
		MinRadius:      20,
		MaxRadius:      100,
		MinDist:        50,
		CannyHigh:      50,
		AccumThreshold: 30,
		MaxDimension:   1600,
		PaddingRatio:   0.1,
		MinConfidence:  0.5,
	}
}

// Validate reports the first invalid setting.
func (c HoughConfig) Validate() error {
	switch {
	case c.MinRadius < 1:
		return fmt.Errorf("min radius must be at least 1, got %d", c.MinRadius)
	case c.MaxRadius < c.MinRadius:
		return fmt.Errorf("max radius %d is smaller than min radius %d", c.MaxRadius, c.MinRadius)
	case c.MinDist < 0:
		return fmt.Errorf("min dist must not be negative, got %g", c.MinDist)
	case c.CannyHigh < 1 || c.CannyHigh > 255:
		return fmt.Errorf("canny high threshold must be in [1, 255], got %d", c.CannyHigh)
	case c.AccumThreshold < 1:
		return fmt.Errorf("accumulator threshold must be at least 1, got %d", c.AccumThreshold)
	case c.MaxDimension < 0:
		return fmt.Errorf("max dimension must not be negative, got %d", c.MaxDimension)
	case c.PaddingRatio < 0:
		return fmt.Errorf("padding ratio must not be negative, got %g", c.PaddingRatio)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("min confidence must be in [0, 1], got %g", c.MinConfidence)
	}
	return nil
}

// HoughDetector finds circles with the gradient Hough transform.
type HoughDetector struct {
	cfg HoughConfig
}

// NewHoughDetector returns a detector using cfg.
func NewHoughDetector(cfg HoughConfig) (*HoughDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hough config: %w", err)
	}
	return &HoughDetector{cfg: cfg}, nil
}

// Circle is a circle found by the transform, in the coordinates of the image
// it was run on.
type Circle struct {
	X, Y       int
	Radius     int
	Confidence float64
}

// Detect implements Detector.
//
// Images larger than MaxDimension are downscaled (aspect preserved) before
// detection and the resulting boxes mapped back to source coordinates. Each
// circle becomes a square box of side 2 × radius × (1 + PaddingRatio),
// clipped to the image.
func (d *HoughDetector) Detect(ctx context.Context, in Input) ([]Detection, error) {
	if in.Image == nil {
		return nil, errors.New("hough detector: no image")
	}

	bounds := in.Image.Bounds()
	if bounds.Empty() {
		return []Detection{}, nil
	}

	work := in.Image
	scale := 1.0
	if limit := d.cfg.MaxDimension; limit > 0 && (bounds.Dx() > limit || bounds.Dy() > limit) {
		work = imaging.Fit(in.Image, limit, limit, imaging.Lanczos)
		scale = float64(bounds.Dx()) / float64(work.Bounds().Dx())
	}

	minR := int(math.Max(1, math.Round(float64(d.cfg.MinRadius)/scale)))
	maxR := int(math.Max(float64(minR), math.Round(float64(d.cfg.MaxRadius)/scale)))

	circles, err := houghCircles(ctx, work, houghParams{
		minRadius:      minR,
		maxRadius:      maxR,
		minDist:        d.cfg.MinDist / scale,
		cannyHigh:      d.cfg.CannyHigh,
		accumThreshold: d.cfg.AccumThreshold,
	})
	if err != nil {
		return nil, err
	}

	dets := make([]Detection, 0, len(circles))
	for _, c := range circles {
		if c.Confidence < d.cfg.MinConfidence {
			continue
		}
		cx := float64(c.X)*scale + float64(bounds.Min.X)
		cy := float64(c.Y)*scale + float64(bounds.Min.Y)
		half := float64(c.Radius) * scale * (1 + d.cfg.PaddingRatio)

		r := image.Rect(
			int(math.Floor(cx-half)), int(math.Floor(cy-half)),
			int(math.Ceil(cx+half)), int(math.Ceil(cy+half)),
		).Intersect(bounds)
		if r.Empty() {
			continue
		}
		dets = append(dets, Detection{
			Bounds:     BoundsFromRect(r),
			Confidence: c.Confidence,
		})
	}
	return dets, nil
}

type houghParams struct {
	minRadius, maxRadius int
	minDist              float64
	cannyHigh            int
	accumThreshold       int
}

// houghCircles runs the gradient Hough circle transform on img.
//
// # Algorithm
//
//  1. Canny edge map with Sobel gradients.
//  2. Center voting: each edge pixel votes along its gradient direction, both
//     senses, at every distance in [minRadius, maxRadius]. Light circles on
//     dark ground and dark circles on light ground are both found.
//  3. Candidates: centers whose 3x3 vote sum reaches accumThreshold and is a
//     local maximum, strongest first.
//  4. Suppression: a candidate closer than minDist to an accepted center is
//     dropped.
//  5. Radius: the distance, averaged over a 3 px ring, at which the most edge
//     pixels lie around the center. Confidence is that support divided by
//     the circumference, capped at 1.0.
//
// Circles are returned strongest center first. The context is checked once
// per image row during voting and once per candidate.
func houghCircles(ctx context.Context, img image.Image, p houghParams) ([]Circle, error) {
	em := cannyEdges(img, p.cannyHigh)
	width, height := em.width, em.height
	if width == 0 || height == 0 {
		return nil, nil
	}

	acc := make([]int32, width*height)
	for y := 0; y < height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < width; x++ {
			i := y*width + x
			if !em.edge[i] {
				continue
			}
			g := math.Hypot(em.gx[i], em.gy[i])
			if g == 0 {
				continue
			}
			ux, uy := em.gx[i]/g, em.gy[i]/g
			for _, sign := range [2]float64{-1, 1} {
				for r := p.minRadius; r <= p.maxRadius; r++ {
					cx := int(math.Round(float64(x) + sign*ux*float64(r)))
					cy := int(math.Round(float64(y) + sign*uy*float64(r)))
					if cx < 0 || cx >= width || cy < 0 || cy >= height {
						break
					}
					acc[cy*width+cx]++
				}
			}
		}
	}

	score := make([]int32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum int32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := x+dx, y+dy
					if px >= 0 && px < width && py >= 0 && py < height {
						sum += acc[py*width+px]
					}
				}
			}
			score[y*width+x] = sum
		}
	}

	type candidate struct {
		x, y  int
		votes int32
	}
	candidates := make([]candidate, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			s := score[y*width+x]
			if int(s) < p.accumThreshold || !isLocalMax(score, width, height, x, y) {
				continue
			}
			candidates = append(candidates, candidate{x: x, y: y, votes: s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].votes > candidates[j].votes
	})

	circles := make([]Circle, 0)
	minDist2 := p.minDist * p.minDist
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tooClose := false
		for _, a := range circles {
			dx := float64(c.x - a.X)
			dy := float64(c.y - a.Y)
			if dx*dx+dy*dy < minDist2 {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		radius, support := estimateRadius(em, c.x, c.y, p.minRadius, p.maxRadius)
		if support == 0 {
			continue
		}
		circles = append(circles, Circle{
			X:          c.x,
			Y:          c.y,
			Radius:     radius,
			Confidence: math.Min(float64(support)/(2*math.Pi*float64(radius)), 1.0),
		})
	}

	return circles, nil
}

// isLocalMax reports whether score at (x, y) is not exceeded by any
// 8-neighbor. Plateaus resolve to their first pixel in row-major order.
func isLocalMax(score []int32, width, height, x, y int) bool {
	s := score[y*width+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			px, py := x+dx, y+dy
			if px < 0 || px >= width || py < 0 || py >= height {
				continue
			}
			n := score[py*width+px]
			before := dy < 0 || (dy == 0 && dx < 0)
			if n > s || (before && n == s) {
				return false
			}
		}
	}
	return true
}

// estimateRadius builds a histogram of distances from (cx, cy) to the edge
// pixels within maxRadius+1 and returns the radius in [minRadius, maxRadius]
// with the largest support over the ring r-1..r+1, plus that support.
// Ties keep the smaller radius.
func estimateRadius(em *edgeMap, cx, cy, minRadius, maxRadius int) (int, int) {
	reach := maxRadius + 1
	hist := make([]int, reach+2)

	for y := clamp(cy-reach, 0, em.height-1); y <= clamp(cy+reach, 0, em.height-1); y++ {
		for x := clamp(cx-reach, 0, em.width-1); x <= clamp(cx+reach, 0, em.width-1); x++ {
			if !em.isEdge(x, y) {
				continue
			}
			d := int(math.Round(math.Hypot(float64(x-cx), float64(y-cy))))
			if d <= reach {
				hist[d]++
			}
		}
	}

	best, bestSupport := minRadius, 0
	for r := minRadius; r <= maxRadius; r++ {
		support := hist[r-1] + hist[r] + hist[r+1]
		if support > bestSupport {
			best, bestSupport = r, support
		}
	}
	return best, bestSupport
}
