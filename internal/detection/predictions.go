package detection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PredictionDetector reads detections written by an external YOLO model
// (`predict --save-txt --save-conf`). Each image has a text file named after
// its stem in the prediction directory, one detection per line:
//
//	<class> <center x> <center y> <width> <height> [confidence]
//
// Coordinates are normalized to [0, 1]. A missing confidence column means 1.0.
// YOLO writes no file for an image without detections, so a missing file
// yields zero detections.
type PredictionDetector struct {
	dir           string
	minConfidence float64
}

// NewPredictionDetector returns a detector reading from dir. The directory
// must exist.
func NewPredictionDetector(dir string, minConfidence float64) (*PredictionDetector, error) {
	if dir == "" {
		return nil, errors.New("prediction directory not set")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("prediction directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("prediction path %s is not a directory", dir)
	}
	return &PredictionDetector{dir: dir, minConfidence: minConfidence}, nil
}

// PredictionPath returns the prediction file consulted for imagePath.
func (d *PredictionDetector) PredictionPath(imagePath string) string {
	base := filepath.Base(imagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(d.dir, stem+".txt")
}

// Detect implements Detector.
func (d *PredictionDetector) Detect(ctx context.Context, in Input) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, errors.New("prediction detector: no image")
	}

	path := d.PredictionPath(in.Path)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Detection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open predictions: %w", err)
	}
	defer f.Close()

	b := in.Image.Bounds()
	dets, err := ParsePredictions(f, b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for i := range dets {
		dets[i].Bounds.X1 += b.Min.X
		dets[i].Bounds.X2 += b.Min.X
		dets[i].Bounds.Y1 += b.Min.Y
		dets[i].Bounds.Y2 += b.Min.Y
	}
	return FilterByConfidence(dets, d.minConfidence), nil
}

// ParsePredictions parses YOLO text predictions for an image of the given
// size. Boxes are converted to pixels and clipped to [0, width] x [0, height].
// Blank lines are skipped. A malformed line, a negative box size or a
// confidence outside [0, 1] is an error naming its line number.
func ParsePredictions(r io.Reader, width, height int) ([]Detection, error) {
	dets := make([]Detection, 0)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 && len(fields) != 6 {
			return nil, fmt.Errorf("line %d: expected 5 or 6 fields, got %d", line, len(fields))
		}

		class, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid class %q", line, fields[0])
		}

		vals := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d: invalid number %q", line, f)
			}
			vals[i] = v
		}

		if vals[2] < 0 || vals[3] < 0 {
			return nil, fmt.Errorf("line %d: negative box size %gx%g", line, vals[2], vals[3])
		}

		conf := 1.0
		if len(vals) == 5 {
			conf = vals[4]
			if conf < 0 || conf > 1 {
				return nil, fmt.Errorf("line %d: confidence %g outside [0, 1]", line, conf)
			}
		}

		cx, cy := vals[0]*float64(width), vals[1]*float64(height)
		hw, hh := vals[2]*float64(width)/2, vals[3]*float64(height)/2

		dets = append(dets, Detection{
			Bounds: Bounds{
				X1: clamp(int(math.Round(cx-hw)), 0, width),
				Y1: clamp(int(math.Round(cy-hh)), 0, height),
				X2: clamp(int(math.Round(cx+hw)), 0, width),
				Y2: clamp(int(math.Round(cy+hh)), 0, height),
			},
			Confidence: conf,
			ClassID:    class,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read predictions: %w", err)
	}
	return dets, nil
}
