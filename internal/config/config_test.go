package config

import (
	"strings"
	"testing"
)

var envKeys = []string{
	"CIRCLE_OCR_DETECTOR", "CIRCLE_OCR_MODEL", "CIRCLE_OCR_CONFIDENCE",
	"CIRCLE_OCR_DEVICE", "CIRCLE_OCR_MIN_RADIUS", "CIRCLE_OCR_MAX_RADIUS",
	"CIRCLE_OCR_MIN_DIST", "CIRCLE_OCR_CANNY_HIGH", "CIRCLE_OCR_ACCUM_THRESHOLD",
	"CIRCLE_OCR_MAX_DIMENSION", "CIRCLE_OCR_PADDING", "CIRCLE_OCR_Y_TOLERANCE",
	"CIRCLE_OCR_ENGINE", "CIRCLE_OCR_LANG", "CIRCLE_OCR_PREPROCESS",
	"CIRCLE_OCR_TESSDATA", "CIRCLE_OCR_OUTPUT", "DATABASE_URL",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_TIME_FORMAT", "LOG_OUTPUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detector != DetectorHough || cfg.Engine != "tesseract" || cfg.Language != "en" {
		t.Errorf("unexpected names: %+v", cfg)
	}
	if cfg.Confidence != 0.5 || cfg.Padding != 5 || cfg.YTolerance != 0 {
		t.Errorf("unexpected numbers: confidence %v padding %d tolerance %d",
			cfg.Confidence, cfg.Padding, cfg.YTolerance)
	}
	if cfg.MinRadius != 20 || cfg.MaxRadius != 100 || cfg.MinDist != 50 ||
		cfg.CannyHigh != 50 || cfg.AccumThreshold != 30 || cfg.MaxDimension != 1600 {
		t.Errorf("unexpected hough settings: %+v", cfg.HoughConfig())
	}
	if !cfg.Preprocess || cfg.OutputDir != "result_images" || cfg.LogOutput != "stderr" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CIRCLE_OCR_DETECTOR", "yolo")
	t.Setenv("CIRCLE_OCR_MODEL", "runs/predict/labels")
	t.Setenv("CIRCLE_OCR_CONFIDENCE", "0.3")
	t.Setenv("CIRCLE_OCR_Y_TOLERANCE", "25")
	t.Setenv("CIRCLE_OCR_LANG", "ch")
	t.Setenv("CIRCLE_OCR_PREPROCESS", "false")
	t.Setenv("DATABASE_URL", "postgres://localhost/labels")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Detector != DetectorYOLO || cfg.ModelPath != "runs/predict/labels" {
		t.Errorf("detector: got %s %s", cfg.Detector, cfg.ModelPath)
	}
	if cfg.Confidence != 0.3 || cfg.YTolerance != 25 || cfg.Preprocess {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if opts := cfg.OCROptions(); opts.Language != "ch" || opts.Engine != "tesseract" {
		t.Errorf("OCROptions = %+v", opts)
	}
	if cfg.HoughConfig().MinConfidence != 0.3 {
		t.Error("hough min confidence should follow the confidence setting")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoad_ParseErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CIRCLE_OCR_PADDING", "five")
	t.Setenv("CIRCLE_OCR_CONFIDENCE", "high")

	_, err := Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	for _, key := range []string{"CIRCLE_OCR_PADDING", "CIRCLE_OCR_CONFIDENCE"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should name %s: %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"unknown detector", func(c *Config) { c.Detector = "ssd" }, "unknown detector"},
		{"yolo without model", func(c *Config) { c.Detector = DetectorYOLO }, "prediction directory"},
		{"unknown engine", func(c *Config) { c.Engine = "paddle" }, "unknown OCR engine"},
		{"confidence above 1", func(c *Config) { c.Confidence = 1.5 }, "confidence"},
		{"negative padding", func(c *Config) { c.Padding = -1 }, "padding"},
		{"negative tolerance", func(c *Config) { c.YTolerance = -3 }, "tolerance"},
		{"radii reversed", func(c *Config) { c.MinRadius, c.MaxRadius = 50, 40 }, "radius"},
		{"no output", func(c *Config) { c.OutputDir = "" }, "output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.modify(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}
