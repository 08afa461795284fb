package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/circle-label-ocr/internal/config"
	"github.com/ironsheep/circle-label-ocr/internal/detection"
	"github.com/ironsheep/circle-label-ocr/internal/export"
	"github.com/ironsheep/circle-label-ocr/internal/logger"
	"github.com/ironsheep/circle-label-ocr/internal/ocr"
	"github.com/ironsheep/circle-label-ocr/internal/pipeline"
)

// newEngine opens the OCR engine. Tests replace it.
var newEngine = ocr.New

type runFlags struct {
	image        string
	input        string
	noPreprocess bool
}

func newRunCommand(cfg *config.Config) *cobra.Command {
	var rf runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Detect and read the labels of an image or a directory of images",
		Long: `Detect circular labels, read each one with OCR and export the results.

Detectors:
  hough  Gradient Hough transform, runs in-process (default)
  yolo   Reads YOLO prediction files <stem>.txt from --model, as written
         by "yolo predict save_txt=True save_conf=True"

OCR engines:
  tesseract  Local Tesseract through gosseract (default)
  vision     Google Cloud Vision; needs GOOGLE_CREDENTIALS or
             GOOGLE_APPLICATION_CREDENTIALS, or application default credentials

Every flag defaults to its CIRCLE_OCR_* environment variable when set.`,
		Example: `  # Read the labels of one photograph
  circle-ocr run --image photos/board1.jpg

  # Process a directory with Chinese OCR and a fixed row tolerance
  circle-ocr run -i photos -o results --lang ch --y-tolerance 30

  # Use YOLO predictions and store the results in PostgreSQL
  circle-ocr run -i photos --detector yolo -m runs/detect/predict/labels \
    --database-url postgres://localhost/labels`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("no-preprocess") {
				cfg.Preprocess = !rf.noPreprocess
			}
			return runPipeline(cmd, cfg, rf)
		},
	}

	f := cmd.Flags()
	f.StringVar(&rf.image, "image", "", "Process a single image")
	f.StringVarP(&rf.input, "input", "i", "", "Input directory with images")
	f.StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "Output directory for results")
	f.StringVarP(&cfg.ModelPath, "model", "m", cfg.ModelPath, "Directory of YOLO prediction files (yolo detector)")
	f.StringVar(&cfg.Detector, "detector", cfg.Detector, "Detector: hough or yolo")
	f.Float64VarP(&cfg.Confidence, "confidence", "c", cfg.Confidence, "Detection confidence threshold")
	f.IntVar(&cfg.Padding, "padding", cfg.Padding, "Pixels added around each label before OCR")
	f.IntVar(&cfg.YTolerance, "y-tolerance", cfg.YTolerance, "Row grouping tolerance in pixels (0 = auto)")
	f.StringVar(&cfg.Language, "lang", cfg.Language, "OCR language (en, ch, or Tesseract codes such as eng+deu)")
	f.StringVar(&cfg.Engine, "ocr-engine", cfg.Engine, "OCR engine: tesseract or vision")
	f.StringVar(&cfg.Device, "device", cfg.Device, "Inference device (accepted for compatibility, not used)")
	f.BoolVar(&rf.noPreprocess, "no-preprocess", !cfg.Preprocess, "Pass label crops to OCR without upscaling and contrast enhancement")
	f.StringVar(&cfg.TessdataPrefix, "tessdata", cfg.TessdataPrefix, "Tesseract tessdata directory")
	f.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL URL; results are copied into label_results")

	f.IntVar(&cfg.MinRadius, "min-radius", cfg.MinRadius, "Smallest circle radius in pixels (hough)")
	f.IntVar(&cfg.MaxRadius, "max-radius", cfg.MaxRadius, "Largest circle radius in pixels (hough)")
	f.Float64Var(&cfg.MinDist, "min-dist", cfg.MinDist, "Minimum distance between circle centers (hough)")
	f.IntVar(&cfg.CannyHigh, "canny-high", cfg.CannyHigh, "Canny high threshold (hough)")
	f.IntVar(&cfg.AccumThreshold, "accum-threshold", cfg.AccumThreshold, "Votes needed for a circle center (hough)")
	f.IntVar(&cfg.MaxDimension, "max-dimension", cfg.MaxDimension, "Downscale larger images to this size for detection, 0 = never (hough)")

	cmd.MarkFlagsOneRequired("image", "input")
	cmd.MarkFlagsMutuallyExclusive("image", "input")
	return cmd
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, rf runFlags) error {
	log := logger.WithComponent("run")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detector, err := newDetector(cfg)
	if err != nil {
		return err
	}

	engine, err := newEngine(ctx, cfg.OCROptions())
	if err != nil {
		return fmt.Errorf("failed to start OCR engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR engine")
		}
	}()

	opts := pipeline.DefaultOptions()
	opts.Padding = cfg.Padding
	opts.Tolerance = cfg.YTolerance
	opts.OutputDir = cfg.OutputDir
	opts.Device = cfg.Device

	p := pipeline.New(detector, ocr.NewReader(engine, cfg.Preprocess), opts)

	log.Info().
		Str("detector", cfg.Detector).
		Str("engine", engine.Name()).
		Str("lang", cfg.Language).
		Str("output", cfg.OutputDir).
		Msg("Starting label recognition")

	out := cmd.OutOrStdout()
	source := rf.input
	if rf.image != "" {
		source = rf.image
	}

	var batch *pipeline.BatchResult
	if rf.image != "" {
		batch, err = p.ProcessPath(ctx, source)
	} else {
		batch, err = p.ProcessDirectory(ctx, source)
	}
	if errors.Is(err, pipeline.ErrNoImages) {
		fmt.Fprintf(out, "No images found in %s\n", source)
		return nil
	}
	if err != nil {
		return err
	}

	printResults(out, batch, rf.image != "")

	if cfg.DatabaseURL != "" {
		if err := storeResults(ctx, cfg.DatabaseURL, batch.Dataset, log); err != nil {
			return err
		}
	}
	return nil
}

func newDetector(cfg *config.Config) (detection.Detector, error) {
	switch cfg.Detector {
	case config.DetectorYOLO:
		d, err := detection.NewPredictionDetector(cfg.ModelPath, cfg.Confidence)
		if err != nil {
			return nil, fmt.Errorf("model not found: %w", err)
		}
		return d, nil
	default:
		d, err := detection.NewHoughDetector(cfg.HoughConfig())
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

func printResults(w io.Writer, batch *pipeline.BatchResult, single bool) {
	if single && len(batch.Images) == 1 {
		result := batch.Images[0]
		fmt.Fprintln(w, export.FormatSummary(result.Records()))
		if result.AnnotatedPath != "" {
			fmt.Fprintf(w, "\nAnnotated image: %s\n", result.AnnotatedPath)
			fmt.Fprintf(w, "CSV results: %s\n", result.CSVPath)
		}
		return
	}

	for _, result := range batch.Images {
		fmt.Fprintf(w, "%s: %d labels\n", result.Path, result.Count)
	}
	if batch.Combined != nil {
		fmt.Fprintf(w, "\nCombined results saved to:\n")
		fmt.Fprintf(w, "  CSV:   %s\n", batch.Combined.CSV)
		fmt.Fprintf(w, "  Excel: %s\n", batch.Combined.Excel)
	}
	fmt.Fprintf(w, "\nTotal: %d images, %d labels detected\n", len(batch.Images), batch.Detections())
}

func storeResults(ctx context.Context, url string, dataset *export.Dataset, log zerolog.Logger) error {
	sink, err := export.NewPostgresSink(ctx, url)
	if err != nil {
		return err
	}
	defer sink.Close()

	n, err := sink.Write(ctx, dataset)
	if err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	log.Info().
		Int("rows", n).
		Str("run_id", dataset.RunID).
		Str("table", export.TableName).
		Msg("Results stored")
	return nil
}
