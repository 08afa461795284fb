// Package pipeline runs detection, recognition, ordering and export for one
// image or a directory of images.
//
// Work is strictly sequential: one image at a time, one region at a time.
// Per-batch state lives in an explicit export.Dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ironsheep/circle-label-ocr/internal/detection"
	"github.com/ironsheep/circle-label-ocr/internal/export"
	"github.com/ironsheep/circle-label-ocr/internal/imaging"
	"github.com/ironsheep/circle-label-ocr/internal/logger"
	"github.com/ironsheep/circle-label-ocr/internal/sorter"
)

// DefaultPadding is the number of pixels added around each box before OCR.
const DefaultPadding = 5

// ErrNoImages is returned by ProcessDirectory when the directory holds no
// supported images.
var ErrNoImages = errors.New("no images found")

// LabelReader turns a cropped label into text. *ocr.Reader implements it.
type LabelReader interface {
	ReadLabel(ctx context.Context, img image.Image) (string, error)
}

// Options controls a pipeline run.
type Options struct {
	// Padding is added around each detected box before recognition.
	Padding int

	// Tolerance is the row grouping tolerance in pixels. Zero derives one
	// from the detected box sizes for every image.
	Tolerance int

	// OutputDir receives annotated images and CSV files. When empty no
	// files are written.
	OutputDir string

	// Device is recorded in the logs and otherwise ignored.
	Device string

	// Annotate controls how annotated images are drawn.
	Annotate imaging.AnnotateOptions
}

// DefaultOptions returns the options used by the command line tool.
func DefaultOptions() Options {
	return Options{
		Padding:   DefaultPadding,
		OutputDir: "result_images",
		Annotate:  imaging.DefaultAnnotateOptions(),
	}
}

// Region is one detected label with its recognized text and reading order.
type Region struct {
	detection.Detection

	// Crop is the padded image region passed to OCR.
	Crop image.Image

	// Text is the cleaned recognized text, empty when OCR found nothing or
	// failed.
	Text string

	// Sequence is the 1-based reading order position within the image.
	Sequence int

	// Row is the 0-based reading row.
	Row int
}

// Record converts the region to an export row.
func (r Region) Record() export.Record {
	return export.Record{
		Sequence:   r.Sequence,
		Text:       r.Text,
		Row:        r.Row,
		X1:         r.Bounds.X1,
		Y1:         r.Bounds.Y1,
		X2:         r.Bounds.X2,
		Y2:         r.Bounds.Y2,
		Confidence: r.Confidence,
	}
}

// ImageResult summarizes the processing of one image.
type ImageResult struct {
	Path          string
	Info          *imaging.ImageInfo
	Count         int
	Tolerance     int
	Regions       []Region // in reading order
	Rows          []sorter.RowInfo
	AnnotatedPath string // empty when no output directory is set
	CSVPath       string
	OCRFailures   int
}

// Records returns the export rows of the image in reading order.
func (r *ImageResult) Records() []export.Record {
	records := make([]export.Record, len(r.Regions))
	for i, region := range r.Regions {
		records[i] = region.Record()
	}
	return records
}

// Texts returns the recognized texts in reading order.
func (r *ImageResult) Texts() []string {
	texts := make([]string, len(r.Regions))
	for i, region := range r.Regions {
		texts[i] = region.Text
	}
	return texts
}

// BatchResult is the outcome of ProcessPath or ProcessDirectory.
type BatchResult struct {
	Dataset *export.Dataset
	Images  []*ImageResult

	// Combined is set when combined files were written.
	Combined *export.CombinedPaths
}

// Detections returns the total number of labels over all images.
func (b *BatchResult) Detections() int {
	total := 0
	for _, img := range b.Images {
		total += img.Count
	}
	return total
}

// Pipeline wires a detector and a label reader together.
type Pipeline struct {
	detector detection.Detector
	reader   LabelReader
	opts     Options
	log      zerolog.Logger
}

// New returns a pipeline using detector and reader.
func New(detector detection.Detector, reader LabelReader, opts Options) *Pipeline {
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	return &Pipeline{
		detector: detector,
		reader:   reader,
		opts:     opts,
		log:      logger.WithComponent("pipeline"),
	}
}

// ProcessPath processes a single image, or every image of a directory.
func (p *Pipeline) ProcessPath(ctx context.Context, path string) (*BatchResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access input: %w", err)
	}
	if info.IsDir() {
		return p.ProcessDirectory(ctx, path)
	}

	dataset := export.NewDataset()
	result, err := p.ProcessImage(ctx, path, dataset)
	if err != nil {
		return nil, err
	}
	return &BatchResult{Dataset: dataset, Images: []*ImageResult{result}}, nil
}

// ProcessDirectory processes every supported image in dir in file name
// order, then writes the combined CSV and workbook. The combined files are
// written even when no labels were found, so that a run always leaves a
// complete set of outputs.
func (p *Pipeline) ProcessDirectory(ctx context.Context, dir string) (*BatchResult, error) {
	paths, err := imaging.ListImages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		p.log.Warn().Str("dir", dir).Msg("No images found")
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}

	batch := &BatchResult{Dataset: export.NewDataset()}
	p.log.Info().
		Str("dir", dir).
		Int("images", len(paths)).
		Str("run_id", batch.Dataset.RunID).
		Msg("Processing directory")

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := p.ProcessImage(ctx, path, batch.Dataset)
		if err != nil {
			return nil, err
		}
		batch.Images = append(batch.Images, result)

		p.log.Info().
			Int("index", i+1).
			Int("total", len(paths)).
			Str("image", filepath.Base(path)).
			Int("detected", result.Count).
			Msg("Image processed")
	}

	if p.opts.OutputDir != "" {
		combined, err := batch.Dataset.WriteCombined(p.opts.OutputDir)
		if err != nil {
			return nil, err
		}
		batch.Combined = &combined
		p.log.Info().
			Str("csv", combined.CSV).
			Str("excel", combined.Excel).
			Int("labels", batch.Dataset.Len()).
			Msg("Combined results saved")
	}
	return batch, nil
}

// ProcessImage detects, reads and orders the labels of one image, writes
// the annotated copy and the per-image CSV, and appends the rows to dataset.
//
// Failing to load the image or to run the detector is an error. A region
// whose OCR fails is logged and kept with empty text.
func (p *Pipeline) ProcessImage(ctx context.Context, path string, dataset *export.Dataset) (*ImageResult, error) {
	log := p.log.With().Str("image", filepath.Base(path)).Logger()

	img, info, err := imaging.Load(path)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("width", info.Width).
		Int("height", info.Height).
		Str("format", info.Format).
		Int64("bytes", info.FileSizeBytes).
		Msg("Image loaded")

	dets, err := p.detector.Detect(ctx, detection.Input{Path: path, Image: img})
	if err != nil {
		return nil, fmt.Errorf("detection failed for %s: %w", path, err)
	}
	log.Debug().Int("detections", len(dets)).Str("device", p.opts.Device).Msg("Detection complete")

	result := &ImageResult{Path: path, Info: info, Count: len(dets)}

	regions := make([]Region, 0, len(dets))
	for i, det := range dets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		crop := imaging.ExtractRegion(img, det.Rect(), p.opts.Padding)
		text, err := p.reader.ReadLabel(ctx, crop)
		if err != nil {
			result.OCRFailures++
			log.Warn().Err(err).Int("region", i).Msg("OCR failed, keeping region with empty text")
			text = ""
		}
		regions = append(regions, Region{Detection: det, Crop: crop, Text: text})
	}

	result.Tolerance = p.opts.Tolerance
	if result.Tolerance <= 0 {
		result.Tolerance = sorter.EstimateTolerance(regions)
	}

	rows := sorter.Rows(regions, float64(result.Tolerance))
	result.Regions = make([]Region, 0, len(regions))
	for _, row := range rows {
		for _, region := range row.Items {
			region.Sequence = len(result.Regions) + 1
			region.Row = row.Index
			result.Regions = append(result.Regions, region)
		}
	}
	result.Rows = sorter.Summarize(rows)

	if p.opts.OutputDir != "" {
		if err := p.writeOutputs(img, result); err != nil {
			return nil, err
		}
	}

	if dataset != nil {
		dataset.AddImage(filepath.Base(path), result.Records())
	}

	log.Info().
		Int("detected", result.Count).
		Int("rows", len(result.Rows)).
		Int("tolerance", result.Tolerance).
		Int("ocr_failures", result.OCRFailures).
		Msg("Labels read")
	return result, nil
}

func (p *Pipeline) writeOutputs(img image.Image, result *ImageResult) error {
	annotations := make([]imaging.Annotation, len(result.Regions))
	for i, r := range result.Regions {
		annotations[i] = imaging.Annotation{
			Bounds:   r.Rect(),
			Sequence: r.Sequence,
			Text:     r.Text,
			Row:      r.Row,
		}
	}

	result.AnnotatedPath = imaging.AnnotatedPath(p.opts.OutputDir, result.Path)
	annotated := imaging.Annotate(img, annotations, p.opts.Annotate)
	if err := imaging.Save(annotated, result.AnnotatedPath); err != nil {
		return err
	}

	result.CSVPath = export.ResultsCSVPath(p.opts.OutputDir, result.Path)
	return export.WriteCSV(result.CSVPath, result.Records(), false)
}
