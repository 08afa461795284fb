// Package config loads run settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ironsheep/circle-label-ocr/internal/detection"
	"github.com/ironsheep/circle-label-ocr/internal/logger"
	"github.com/ironsheep/circle-label-ocr/internal/ocr"
)

// Detector names.
const (
	DetectorHough = "hough"
	DetectorYOLO  = "yolo"
)

type Config struct {
	// Detection
	Detector   string
	ModelPath  string // prediction directory for the yolo detector
	Confidence float64
	Device     string // passed through, never acted upon

	// Hough transform tuning
	MinRadius      int
	MaxRadius      int
	MinDist        float64
	CannyHigh      int
	AccumThreshold int
	MaxDimension   int

	// Regions and ordering
	Padding    int
	YTolerance int // 0 picks a tolerance from the box sizes

	// OCR
	Engine         string
	Language       string
	Preprocess     bool
	TessdataPrefix string

	// Output
	OutputDir   string
	DatabaseURL string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. Values that do not
// parse are reported; ranges are checked by Validate once flags have been
// applied.
func Load() (*Config, error) {
	hough := detection.DefaultHoughConfig()
	p := &parser{}

	config := &Config{
		Detector:       getEnv("CIRCLE_OCR_DETECTOR", DetectorHough),
		ModelPath:      getEnv("CIRCLE_OCR_MODEL", ""),
		Confidence:     p.getFloat("CIRCLE_OCR_CONFIDENCE", hough.MinConfidence),
		Device:         getEnv("CIRCLE_OCR_DEVICE", ""),
		MinRadius:      p.getInt("CIRCLE_OCR_MIN_RADIUS", hough.MinRadius),
		MaxRadius:      p.getInt("CIRCLE_OCR_MAX_RADIUS", hough.MaxRadius),
		MinDist:        p.getFloat("CIRCLE_OCR_MIN_DIST", hough.MinDist),
		CannyHigh:      p.getInt("CIRCLE_OCR_CANNY_HIGH", hough.CannyHigh),
		AccumThreshold: p.getInt("CIRCLE_OCR_ACCUM_THRESHOLD", hough.AccumThreshold),
		MaxDimension:   p.getInt("CIRCLE_OCR_MAX_DIMENSION", hough.MaxDimension),
		Padding:        p.getInt("CIRCLE_OCR_PADDING", 5),
		YTolerance:     p.getInt("CIRCLE_OCR_Y_TOLERANCE", 0),
		Engine:         getEnv("CIRCLE_OCR_ENGINE", ocr.EngineTesseract),
		Language:       getEnv("CIRCLE_OCR_LANG", "en"),
		Preprocess:     p.getBool("CIRCLE_OCR_PREPROCESS", true),
		TessdataPrefix: getEnv("CIRCLE_OCR_TESSDATA", ""),
		OutputDir:      getEnv("CIRCLE_OCR_OUTPUT", "result_images"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:  getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:      getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return config, nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	switch c.Detector {
	case DetectorHough:
		if err := c.HoughConfig().Validate(); err != nil {
			return fmt.Errorf("hough detector: %w", err)
		}
	case DetectorYOLO:
		if c.ModelPath == "" {
			return fmt.Errorf("the yolo detector needs a prediction directory (CIRCLE_OCR_MODEL or --model)")
		}
	default:
		return fmt.Errorf("unknown detector %q (want %s or %s)", c.Detector, DetectorHough, DetectorYOLO)
	}

	switch c.Engine {
	case ocr.EngineTesseract, ocr.EngineVision:
	default:
		return fmt.Errorf("unknown OCR engine %q (want %s or %s)", c.Engine, ocr.EngineTesseract, ocr.EngineVision)
	}

	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", c.Confidence)
	}
	if c.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %d", c.Padding)
	}
	if c.YTolerance < 0 {
		return fmt.Errorf("y tolerance must not be negative, got %d", c.YTolerance)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	return nil
}

// HoughConfig returns the Hough detector settings.
func (c *Config) HoughConfig() detection.HoughConfig {
	cfg := detection.DefaultHoughConfig()
	cfg.MinRadius = c.MinRadius
	cfg.MaxRadius = c.MaxRadius
	cfg.MinDist = c.MinDist
	cfg.CannyHigh = c.CannyHigh
	cfg.AccumThreshold = c.AccumThreshold
	cfg.MaxDimension = c.MaxDimension
	cfg.MinConfidence = c.Confidence
	return cfg
}

// OCROptions returns the engine options.
func (c *Config) OCROptions() ocr.Options {
	return ocr.Options{
		Engine:         c.Engine,
		Language:       c.Language,
		TessdataPrefix: c.TessdataPrefix,
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so that every bad variable is reported
// at once.
type parser struct {
	errs []error
}

func (p *parser) getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (p *parser) getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a number", key, v))
		return def
	}
	return f
}

func (p *parser) getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}
