package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine recognizes text with a local Tesseract install through
// gosseract. One client is reused for every image; it is not safe for
// concurrent use.
type TesseractEngine struct {
	client    *gosseract.Client
	languages []string
}

// TesseractLanguages maps a short language code to Tesseract language data
// names: "en" is eng, "ch" is simplified Chinese plus English. Any other
// value is taken as Tesseract codes joined by "+".
func TesseractLanguages(lang string) []string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "en":
		return []string{"eng"}
	case "ch":
		return []string{"chi_sim", "eng"}
	}

	langs := make([]string, 0)
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// NewTesseractEngine creates a Tesseract engine for lang. tessdataPrefix,
// when set, is the directory holding the .traineddata files.
func NewTesseractEngine(lang, tessdataPrefix string) (*TesseractEngine, error) {
	const op = "NewTesseractEngine"

	client := gosseract.NewClient()

	if tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(tessdataPrefix); err != nil {
			client.Close()
			return nil, NewError(op, ErrEngineUnavailable, fmt.Sprintf("failed to set tessdata path: %v", err))
		}
	}

	languages := TesseractLanguages(lang)
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, NewError(op, ErrEngineUnavailable, fmt.Sprintf("failed to set language: %v", err))
	}

	// Labels are one short block of one or two lines
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, NewError(op, ErrEngineUnavailable, fmt.Sprintf("failed to set page segmentation mode: %v", err))
	}

	return &TesseractEngine{client: client, languages: languages}, nil
}

// Name implements Engine.
func (e *TesseractEngine) Name() string { return EngineTesseract }

// Languages returns the Tesseract language codes in use.
func (e *TesseractEngine) Languages() []string { return e.languages }

// Recognize implements Engine. Lines come from Tesseract's text-line layout;
// when layout analysis fails the plain text is split on newlines instead.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	const op = "Recognize"

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return []Line{}, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, NewError(op, err, "failed to encode image")
	}

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, NewError(op, ErrRecognitionFailed, fmt.Sprintf("failed to set image: %v", err))
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil {
		lines := make([]Line, 0, len(boxes))
		for _, box := range boxes {
			if strings.TrimSpace(box.Word) == "" {
				continue
			}
			lines = append(lines, Line{
				Text:       strings.TrimSpace(box.Word),
				Y:          float64(box.Box.Min.Y+box.Box.Max.Y) / 2,
				Confidence: box.Confidence / 100.0,
			})
		}
		return lines, nil
	}

	text, err := e.client.Text()
	if err != nil {
		return nil, NewError(op, ErrRecognitionFailed, err.Error())
	}
	return splitLines(text), nil
}

// Close releases the Tesseract client.
func (e *TesseractEngine) Close() error {
	return e.client.Close()
}

// splitLines turns plain OCR text into lines ordered by their position.
func splitLines(text string) []Line {
	lines := make([]Line, 0)
	for i, s := range strings.Split(text, "\n") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		lines = append(lines, Line{Text: strings.TrimSpace(s), Y: float64(i)})
	}
	return lines
}
